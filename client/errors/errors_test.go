package errors

import (
	"context"
	"fmt"
	"testing"

	sdkerrors "cosmossdk.io/errors"
	"github.com/stretchr/testify/assert"

	"github.com/sonr-io/passkey/client/rpc"
	"github.com/sonr-io/passkey/crypto/ecdsa"
	"github.com/sonr-io/passkey/types/webauthn"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain error", fmt.Errorf("boom"), KindUnknown},
		{"context cancelled", fmt.Errorf("poll: %w", context.Canceled), KindCancelled},
		{"deadline", context.DeadlineExceeded, KindTransport},
		{"user cancelled", sdkerrors.Wrap(ErrUserCancelledAuthentication, "prompt dismissed"), KindUserCancelledAuthentication},
		{"malformed attestation", sdkerrors.Wrap(webauthn.ErrMalformedAttestation, "bad cbor"), KindMalformedAttestation},
		{"malformed authenticator data", webauthn.ErrMalformedAuthenticatorData, KindMalformedAttestation},
		{"no attested data", webauthn.ErrNoAttestedCredentialData, KindNoAttestedCredentialData},
		{"der", ecdsa.ErrInvalidDERSignature, KindInvalidDERSignature},
		{"upgrade", WrapError(&rpc.RPCError{Code: -32000}, ErrUpgradePrepareFailed, "prepare"), KindUpgradePrepareFailed},
		{"confirmation timeout", ErrConfirmationTimeout, KindConfirmationTimeout},
		{"order timeout", ErrOrderTimeout, KindConfirmationTimeout},
		{"approval", ErrApprovalPropagationFailed, KindApprovalPropagationFailed},
		{"insufficient funds wins over simulation", fmt.Errorf("%w: %w", ErrSimulationFailed, ErrInsufficientFunds), KindInsufficientFunds},
		{"simulation", ErrSimulationFailed, KindSimulationFailed},
		{"reverted", ErrTransactionReverted, KindTransactionReverted},
		{"bundle failed", ErrBundleFailed, KindTransactionReverted},
		{"rpc error", fmt.Errorf("send: %w", &rpc.RPCError{Code: -32602, Message: "bad params"}), KindRPC},
		{"transport", &rpc.TransportError{StatusCode: 502}, KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestRetryable(t *testing.T) {
	retryable := []Kind{KindUpgradePrepareFailed, KindConfirmationTimeout, KindApprovalPropagationFailed, KindRPC, KindTransport}
	fatal := []Kind{KindUnknown, KindCancelled, KindUserCancelledAuthentication, KindMalformedAttestation,
		KindNoAttestedCredentialData, KindInvalidDERSignature, KindInsufficientFunds, KindSimulationFailed, KindTransactionReverted}

	for _, k := range retryable {
		assert.True(t, Retryable(k), k.String())
	}
	for _, k := range fatal {
		assert.False(t, Retryable(k), k.String())
	}
}

func TestMessageAndString(t *testing.T) {
	for k := range kindNames {
		assert.NotEmpty(t, Message(k))
		assert.NotContains(t, k.String(), "kind(")
	}
	assert.Equal(t, "kind(99)", Kind(99).String())
	assert.Equal(t, Message(KindUnknown), Message(Kind(99)))
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, ErrInvalidConfig, "ignored"))

	err := WrapError(fmt.Errorf("missing origin"), ErrInvalidConfig, "network %s", "local")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "network local: missing origin")
	assert.Equal(t, CodeInvalidConfig, GetErrorCode(err))
	assert.Zero(t, GetErrorCode(fmt.Errorf("plain")))
}

func TestIsAuthenticationError(t *testing.T) {
	assert.True(t, IsAuthenticationError(ErrClientDataMismatch))
	assert.True(t, IsAuthenticationError(fmt.Errorf("prompt: %w", ErrUserCancelledAuthentication)))
	assert.False(t, IsAuthenticationError(ErrUpgradePrepareFailed))
}
