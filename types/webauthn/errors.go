package webauthn

import "cosmossdk.io/errors"

// ModuleName is the error codespace of this package.
const ModuleName = "webauthn"

var (
	ErrMalformedAttestation       = errors.Register(ModuleName, 1, "malformed attestation")
	ErrNoAttestedCredentialData   = errors.Register(ModuleName, 2, "attested credential data flag not set")
	ErrMalformedAuthenticatorData = errors.Register(ModuleName, 3, "malformed authenticator data")
	ErrInvalidChainSignature      = errors.Register(ModuleName, 4, "invalid on-chain signature encoding")
)
