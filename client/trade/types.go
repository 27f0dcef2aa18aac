// Package trade executes token swaps for a session account: allowance,
// approval, swap, broadcast and settlement tracking.
package trade

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/sonr-io/passkey/client/rpc"
)

// NativeToken is the placeholder route backends use for the chain's native
// asset.
var NativeToken = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// Route is a quote obtained from the route backend before execution.
type Route struct {
	RouteID         string          `json:"routeId"`
	FromToken       common.Address  `json:"fromToken"`
	ToToken         common.Address  `json:"toToken"`
	FromAmount      *uint256.Int    `json:"fromAmount"`
	ToAmount        *uint256.Int    `json:"toAmount"`
	ApprovalSpender *common.Address `json:"approvalSpender,omitempty"`
	ApprovalAmount  *uint256.Int    `json:"approvalAmount,omitempty"`
}

// IsNative reports whether the route sells the native asset, which needs no
// approval.
func (r *Route) IsNative() bool {
	return r.FromToken == (common.Address{}) || r.FromToken == NativeToken
}

// SwapTx is the executable swap built from a route id. RequestHash is set
// when the swap settles through an off-chain matching backend.
type SwapTx struct {
	To          common.Address `json:"to"`
	Data        hexutil.Bytes  `json:"data"`
	Value       *uint256.Int   `json:"value,omitempty"`
	GasLimit    uint64         `json:"gasLimit"`
	RequestHash string         `json:"requestHash,omitempty"`
}

// Call converts the swap into a bundle call carrying gasLimit, if set.
func (s *SwapTx) Call(gasLimit uint64) rpc.Call {
	call := rpc.Call{To: s.To, Data: s.Data}
	if s.Value != nil && !s.Value.IsZero() {
		call.Value = (*hexutil.Big)(s.Value.ToBig())
	}
	if gasLimit > 0 {
		call.Gas = (*hexutil.Uint64)(&gasLimit)
	}
	return call
}

// TxKind labels a monitored transaction.
type TxKind string

const (
	KindApproval TxKind = "approval"
	KindSwap     TxKind = "swap"
)

// TxStatus is the settlement state of a monitored transaction.
type TxStatus string

const (
	StatusPending   TxStatus = "pending"
	StatusConfirmed TxStatus = "confirmed"
	StatusFailed    TxStatus = "failed"
)

// MonitoredTransaction tracks one bundle until its receipt is known.
type MonitoredTransaction struct {
	BundleID      string         `json:"bundleId"`
	Hash          common.Hash    `json:"hash"`
	Kind          TxKind         `json:"kind"`
	Status        TxStatus       `json:"status"`
	RelayStatus   rpc.StatusCode `json:"relayStatus,omitempty"`
	Confirmations uint64         `json:"confirmations"`
	BlockNumber   uint64         `json:"blockNumber,omitempty"`
}

// OrderStatus is the state of an off-chain matched order.
type OrderStatus struct {
	RequestHash     string         `json:"requestHash"`
	Status          rpc.StatusCode `json:"status"`
	TransactionHash *common.Hash   `json:"txHash,omitempty"`
}

// Result is the outcome of one execution attempt. A swap whose receipt is
// not yet known is reported pending, not failed.
type Result struct {
	AttemptID string                `json:"attemptId"`
	Approval  *MonitoredTransaction `json:"approval,omitempty"`
	Swap      *MonitoredTransaction `json:"swap,omitempty"`
	Order     *OrderStatus          `json:"order,omitempty"`
	GasLimit  uint64                `json:"gasLimit"` // sent with the swap call
	Warnings  []string              `json:"warnings,omitempty"`
}

// Status is the overall state of the attempt.
func (r *Result) Status() TxStatus {
	if r.Swap == nil {
		return StatusPending
	}
	if r.Swap.Status != StatusConfirmed || r.Order == nil {
		return r.Swap.Status
	}
	switch r.Order.Status {
	case rpc.StatusSuccess:
		return StatusConfirmed
	case rpc.StatusFailed:
		return StatusFailed
	default:
		return StatusPending
	}
}
