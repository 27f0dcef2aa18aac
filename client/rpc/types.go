package rpc

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/sonr-io/passkey/crypto/ephemeral"
)

// Contract names looked up in wallet_getCapabilities.
const (
	ContractAccountProxy = "accountProxy"
	ContractDelegation   = "delegation"
)

// ContractInfo is one advertised contract.
type ContractInfo struct {
	Address common.Address `json:"address"`
	Version string         `json:"version,omitempty"`
}

// ChainCapabilities is the per-chain entry of wallet_getCapabilities.
type ChainCapabilities struct {
	Contracts map[string]ContractInfo `json:"contracts"`
	Fees      json.RawMessage         `json:"fees,omitempty"`
}

// Contract returns the first advertised address among names.
func (c ChainCapabilities) Contract(names ...string) (common.Address, bool) {
	for _, name := range names {
		if info, ok := c.Contracts[name]; ok && info.Address != (common.Address{}) {
			return info.Address, true
		}
	}
	return common.Address{}, false
}

// AuthorizeKey grants a key a role on the upgraded account.
type AuthorizeKey struct {
	Type        string `json:"type"`
	Role        string `json:"role"`
	PublicKey   string `json:"publicKey"`
	Permissions []any  `json:"permissions"`
}

// UpgradeCapabilities carries the keys to authorize during upgrade.
type UpgradeCapabilities struct {
	AuthorizeKeys []AuthorizeKey `json:"authorizeKeys"`
}

// PrepareUpgradeRequest is the wallet_prepareUpgradeAccount parameter.
type PrepareUpgradeRequest struct {
	Address      common.Address      `json:"address"`
	ChainID      hexutil.Uint64      `json:"chainId"`
	Delegation   *common.Address     `json:"delegation,omitempty"`
	Capabilities UpgradeCapabilities `json:"capabilities"`
}

// PrepareUpgradeResponse holds the digests the bootstrap key must sign.
type PrepareUpgradeResponse struct {
	Digests ephemeral.Digests `json:"digests"`
	Context json.RawMessage   `json:"context"`
}

// UpgradeAccountRequest is the wallet_upgradeAccount parameter.
type UpgradeAccountRequest struct {
	Context    json.RawMessage      `json:"context"`
	Signatures ephemeral.Signatures `json:"signatures"`
}

// Call is a single call inside a bundle.
type Call struct {
	To    common.Address `json:"to"`
	Data  hexutil.Bytes  `json:"data,omitempty"`
	Value *hexutil.Big   `json:"value,omitempty"`
	// Gas is a per-call limit. Relays that price gas themselves ignore it.
	Gas *hexutil.Uint64 `json:"gas,omitempty"`
}

// CallCapabilities selects the fee token.
type CallCapabilities struct {
	FeeToken *common.Address `json:"feeToken,omitempty"`
}

// PrepareCallsRequest is the wallet_prepareCalls parameter.
type PrepareCallsRequest struct {
	Account      common.Address   `json:"account"`
	Calls        []Call           `json:"calls"`
	ChainID      hexutil.Uint64   `json:"chainId"`
	Capabilities CallCapabilities `json:"capabilities"`
}

// PrepareCallsResponse carries the digest to sign and the opaque context to
// send back.
type PrepareCallsResponse struct {
	Digest      common.Hash     `json:"digest"`
	Context     json.RawMessage `json:"context"`
	GasEstimate hexutil.Uint64  `json:"gasEstimate"`
	FeeAmount   *hexutil.Big    `json:"feeAmount,omitempty"`
}

// SendPreparedCallsRequest is the wallet_sendPreparedCalls parameter.
type SendPreparedCallsRequest struct {
	Context   json.RawMessage `json:"context"`
	Signature hexutil.Bytes   `json:"signature"`
}

// SendPreparedCallsResponse identifies the submitted bundle.
type SendPreparedCallsResponse struct {
	ID string `json:"id"`
}

// StatusCode is the normalized bundle status.
type StatusCode string

const (
	StatusPending StatusCode = "pending"
	StatusSuccess StatusCode = "success"
	StatusFailed  StatusCode = "failed"
)

// Terminal reports whether no further transition can happen.
func (s StatusCode) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// UnmarshalJSON accepts numeric codes (1xx pending, 2xx success, 4xx and up
// failed) as well as status strings.
func (s *StatusCode) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case float64:
		*s = statusFromCode(int(v))
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			*s = statusFromCode(n)
			return nil
		}
		*s = statusFromString(v)
	default:
		*s = StatusPending
	}
	return nil
}

func statusFromCode(code int) StatusCode {
	switch {
	case code >= 200 && code < 300:
		return StatusSuccess
	case code >= 400:
		return StatusFailed
	default:
		return StatusPending
	}
}

func statusFromString(s string) StatusCode {
	switch strings.ToLower(s) {
	case "success", "confirmed", "complete", "completed":
		return StatusSuccess
	case "failed", "failure", "reverted", "rejected":
		return StatusFailed
	default:
		return StatusPending
	}
}

// CallReceipt is a receipt entry of wallet_getCallsStatus.
type CallReceipt struct {
	TransactionHash common.Hash    `json:"transactionHash"`
	Status          hexutil.Uint64 `json:"status"`
}

// CallsStatus is the wallet_getCallsStatus result.
type CallsStatus struct {
	ID              string          `json:"id,omitempty"`
	Status          StatusCode      `json:"status"`
	TransactionHash *common.Hash    `json:"transactionHash,omitempty"`
	Receipts        []CallReceipt   `json:"receipts,omitempty"`
	Error           json.RawMessage `json:"error,omitempty"`
}

// TxHash returns the transaction hash from the top-level field or the first
// receipt.
func (c *CallsStatus) TxHash() *common.Hash {
	if c.TransactionHash != nil {
		return c.TransactionHash
	}
	if len(c.Receipts) > 0 {
		h := c.Receipts[0].TransactionHash
		return &h
	}
	return nil
}

// ErrorMessage flattens the error member, which services send either as a
// string or as an object.
func (c *CallsStatus) ErrorMessage() string {
	if len(c.Error) == 0 || string(c.Error) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(c.Error, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(c.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(c.Error)
}
