package tx

import (
	"encoding/json"
	"math/big"

	sdkerrors "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/sonr-io/passkey/client/errors"
	"github.com/sonr-io/passkey/client/rpc"
)

// Phase is the lifecycle position of a bundle.
type Phase string

const (
	PhasePrepared  Phase = "prepared"
	PhaseSigned    Phase = "signed"
	PhaseSent      Phase = "sent"
	PhasePending   Phase = "pending"
	PhaseConfirmed Phase = "confirmed"
	PhaseFailed    Phase = "failed"
)

// PreparedCall is a quoted bundle awaiting its signature.
type PreparedCall struct {
	Account     common.Address  `json:"account"`
	ChainID     uint64          `json:"chainId"`
	Calls       []rpc.Call      `json:"calls"`
	Digest      common.Hash     `json:"digest"`
	Context     json.RawMessage `json:"context"`
	GasEstimate uint64          `json:"gasEstimate"`
	FeeAmount   *big.Int        `json:"feeAmount,omitempty"`
	Signature   hexutil.Bytes   `json:"signature,omitempty"`
	Phase       Phase           `json:"phase"`
}

// Bundle is a submitted set of calls. Once its status is terminal it never
// changes again.
type Bundle struct {
	ID              string         `json:"id"`
	Status          rpc.StatusCode `json:"status"`
	Phase           Phase          `json:"phase"`
	TransactionHash *common.Hash   `json:"transactionHash,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// NewBundle returns a freshly sent bundle.
func NewBundle(id string) *Bundle {
	return &Bundle{ID: id, Status: rpc.StatusPending, Phase: PhaseSent}
}

// Terminal reports whether the bundle reached success or failure.
func (b *Bundle) Terminal() bool {
	return b.Status.Terminal()
}

// Apply folds a status report into the bundle.
func (b *Bundle) Apply(status *rpc.CallsStatus) error {
	if b.Terminal() {
		if status.Status != b.Status {
			return sdkerrors.Wrapf(errors.ErrInvalidBundleState, "bundle %s: %s -> %s", b.ID, b.Status, status.Status)
		}
		return nil
	}

	b.Status = status.Status
	if hash := status.TxHash(); hash != nil {
		b.TransactionHash = hash
	}
	switch status.Status {
	case rpc.StatusSuccess:
		b.Phase = PhaseConfirmed
	case rpc.StatusFailed:
		b.Phase = PhaseFailed
		b.Error = status.ErrorMessage()
	default:
		b.Phase = PhasePending
	}
	return nil
}

// Err returns ErrBundleFailed for a failed bundle and nil otherwise.
func (b *Bundle) Err() error {
	if b.Status != rpc.StatusFailed {
		return nil
	}
	if b.Error != "" {
		return sdkerrors.Wrapf(errors.ErrBundleFailed, "bundle %s: %s", b.ID, b.Error)
	}
	return sdkerrors.Wrapf(errors.ErrBundleFailed, "bundle %s", b.ID)
}
