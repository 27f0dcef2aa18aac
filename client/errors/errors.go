// Package errors defines the wallet error taxonomy and its classification.
package errors

import (
	"context"
	"errors"
	"fmt"

	sdkerrors "cosmossdk.io/errors"

	"github.com/sonr-io/passkey/client/rpc"
	"github.com/sonr-io/passkey/crypto/ecdsa"
	"github.com/sonr-io/passkey/types/webauthn"
)

// Codespace of the wallet client errors.
const Codespace = "passkey_client"

// Error codes for the wallet client
const (
	// Upgrade errors
	CodeUpgradePrepareFailed uint32 = 1001 + iota
	CodeAccountNotFound
	CodeAlreadyUpgraded

	// Authentication errors
	CodeUserCancelledAuthentication uint32 = 2001 + iota
	CodeClientDataMismatch
	CodeCredentialNotFound
	CodeUnsupportedAlgorithm

	// Transaction errors
	CodeConfirmationTimeout uint32 = 3001 + iota
	CodeBundleFailed
	CodeInvalidBundleState

	// Trade errors
	CodeApprovalPropagationFailed uint32 = 4001 + iota
	CodeSimulationFailed
	CodeInsufficientFunds
	CodeTransactionReverted
	CodeOrderTimeout

	// Configuration errors
	CodeInvalidConfig uint32 = 6001 + iota
	CodeInvalidNetwork
)

var (
	// Upgrade errors
	ErrUpgradePrepareFailed = sdkerrors.Register(Codespace, CodeUpgradePrepareFailed, "account upgrade failed")
	ErrAccountNotFound      = sdkerrors.Register(Codespace, CodeAccountNotFound, "account not found")
	ErrAlreadyUpgraded      = sdkerrors.Register(Codespace, CodeAlreadyUpgraded, "account already upgraded")

	// Authentication errors
	ErrUserCancelledAuthentication = sdkerrors.Register(Codespace, CodeUserCancelledAuthentication, "user cancelled authentication")
	ErrClientDataMismatch          = sdkerrors.Register(Codespace, CodeClientDataMismatch, "authenticator client data differs from the signed literal")
	ErrCredentialNotFound          = sdkerrors.Register(Codespace, CodeCredentialNotFound, "credential not found")
	ErrUnsupportedAlgorithm        = sdkerrors.Register(Codespace, CodeUnsupportedAlgorithm, "unsupported credential algorithm")

	// Transaction errors
	ErrConfirmationTimeout = sdkerrors.Register(Codespace, CodeConfirmationTimeout, "bundle not confirmed within the attempt limit")
	ErrBundleFailed        = sdkerrors.Register(Codespace, CodeBundleFailed, "bundle failed")
	ErrInvalidBundleState  = sdkerrors.Register(Codespace, CodeInvalidBundleState, "invalid bundle state transition")

	// Trade errors
	ErrApprovalPropagationFailed = sdkerrors.Register(Codespace, CodeApprovalPropagationFailed, "approval confirmed but allowance still insufficient")
	ErrSimulationFailed          = sdkerrors.Register(Codespace, CodeSimulationFailed, "transaction simulation failed")
	ErrInsufficientFunds         = sdkerrors.Register(Codespace, CodeInsufficientFunds, "insufficient funds")
	ErrTransactionReverted       = sdkerrors.Register(Codespace, CodeTransactionReverted, "transaction reverted")
	ErrOrderTimeout              = sdkerrors.Register(Codespace, CodeOrderTimeout, "order did not settle within the attempt limit")

	// Configuration errors
	ErrInvalidConfig  = sdkerrors.Register(Codespace, CodeInvalidConfig, "invalid configuration")
	ErrInvalidNetwork = sdkerrors.Register(Codespace, CodeInvalidNetwork, "invalid network configuration")
)

// WrapError wraps an existing error with additional context and a registered
// error code.
func WrapError(err error, sdkErr *sdkerrors.Error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)
	return sdkerrors.Wrapf(sdkErr, "%s: %v", msg, err)
}

// GetErrorCode extracts the registered code from an error.
// Returns 0 if the error does not carry one.
func GetErrorCode(err error) uint32 {
	var sdkErr *sdkerrors.Error
	if errors.As(err, &sdkErr) {
		return sdkErr.ABCICode()
	}
	return 0
}

// Kind is the closed set of error classes callers act on.
type Kind int

const (
	KindUnknown Kind = iota
	KindCancelled
	KindUserCancelledAuthentication
	KindMalformedAttestation
	KindNoAttestedCredentialData
	KindInvalidDERSignature
	KindUpgradePrepareFailed
	KindConfirmationTimeout
	KindApprovalPropagationFailed
	KindInsufficientFunds
	KindSimulationFailed
	KindTransactionReverted
	KindRPC
	KindTransport
)

var kindNames = map[Kind]string{
	KindUnknown:                     "unknown",
	KindCancelled:                   "cancelled",
	KindUserCancelledAuthentication: "user_cancelled_authentication",
	KindMalformedAttestation:        "malformed_attestation",
	KindNoAttestedCredentialData:    "no_attested_credential_data",
	KindInvalidDERSignature:         "invalid_der_signature",
	KindUpgradePrepareFailed:        "upgrade_prepare_failed",
	KindConfirmationTimeout:         "confirmation_timeout",
	KindApprovalPropagationFailed:   "approval_propagation_failed",
	KindInsufficientFunds:           "insufficient_funds",
	KindSimulationFailed:            "simulation_failed",
	KindTransactionReverted:         "transaction_reverted",
	KindRPC:                         "rpc",
	KindTransport:                   "transport",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// classification is evaluated top to bottom; the first match wins. Specific
// sentinels precede the RPC and transport catch-alls they may wrap.
var classification = []struct {
	kind    Kind
	targets []error
}{
	{KindCancelled, []error{context.Canceled}},
	{KindUserCancelledAuthentication, []error{ErrUserCancelledAuthentication}},
	{KindMalformedAttestation, []error{webauthn.ErrMalformedAttestation, webauthn.ErrMalformedAuthenticatorData}},
	{KindNoAttestedCredentialData, []error{webauthn.ErrNoAttestedCredentialData}},
	{KindInvalidDERSignature, []error{ecdsa.ErrInvalidDERSignature, ecdsa.ErrScalarOverflow}},
	{KindUpgradePrepareFailed, []error{ErrUpgradePrepareFailed}},
	{KindConfirmationTimeout, []error{ErrConfirmationTimeout, ErrOrderTimeout}},
	{KindApprovalPropagationFailed, []error{ErrApprovalPropagationFailed}},
	{KindInsufficientFunds, []error{ErrInsufficientFunds}},
	{KindSimulationFailed, []error{ErrSimulationFailed}},
	{KindTransactionReverted, []error{ErrTransactionReverted, ErrBundleFailed}},
	{KindRPC, []error{rpc.ErrRPC}},
	{KindTransport, []error{rpc.ErrTransport, context.DeadlineExceeded}},
}

// Classify maps err onto its Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, c := range classification {
		for _, target := range c.targets {
			if errors.Is(err, target) {
				return c.kind
			}
		}
	}
	return KindUnknown
}

// Retryable reports whether re-invoking the failed operation may succeed
// without user intervention or a code change.
func Retryable(kind Kind) bool {
	switch kind {
	case KindUpgradePrepareFailed,
		KindConfirmationTimeout,
		KindApprovalPropagationFailed,
		KindRPC,
		KindTransport:
		return true
	default:
		return false
	}
}

// Message is a human-readable description of kind.
func Message(kind Kind) string {
	switch kind {
	case KindCancelled:
		return "The operation was cancelled."
	case KindUserCancelledAuthentication:
		return "Authentication was cancelled."
	case KindMalformedAttestation:
		return "The passkey returned an unreadable attestation."
	case KindNoAttestedCredentialData:
		return "The passkey did not return a public key."
	case KindInvalidDERSignature:
		return "The passkey returned an unreadable signature."
	case KindUpgradePrepareFailed:
		return "The account could not be upgraded yet. It remains usable and the upgrade can be retried."
	case KindConfirmationTimeout:
		return "The transaction is still pending. Check its status again later."
	case KindApprovalPropagationFailed:
		return "The token approval has not taken effect yet. Please try again."
	case KindInsufficientFunds:
		return "Insufficient balance to complete this transaction."
	case KindSimulationFailed:
		return "The transaction would fail if submitted."
	case KindTransactionReverted:
		return "The transaction was reverted on-chain."
	case KindRPC:
		return "The wallet service rejected the request."
	case KindTransport:
		return "The wallet service could not be reached."
	default:
		return "An unexpected error occurred."
	}
}

// IsAuthenticationError returns true if the error is related to the passkey.
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrUserCancelledAuthentication) ||
		errors.Is(err, ErrClientDataMismatch) ||
		errors.Is(err, ErrCredentialNotFound) ||
		errors.Is(err, ErrUnsupportedAlgorithm)
}
