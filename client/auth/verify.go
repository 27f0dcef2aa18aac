package auth

import (
	"bytes"
	stdecdsa "crypto/ecdsa"

	sdkerrors "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/sonr-io/passkey/client/errors"
	"github.com/sonr-io/passkey/types/webauthn"
	"github.com/sonr-io/passkey/types/webauthn/webauthncose"
)

// ModuleName is the error codespace of this package.
const ModuleName = "auth"

var ErrInvalidSignature = sdkerrors.Register(ModuleName, 1, "passkey signature does not verify")

// VerifyDigestSignature checks an encoded signature the way the on-chain
// verifier does: it rebuilds the expected clientDataJSON for digestHex and
// origin, requires the signed client data to equal it byte for byte, and
// verifies the P-256 signature over authenticatorData ‖ sha256(clientDataJSON).
func VerifyDigestSignature(publicKey *webauthncose.EC2PublicKey, digestHex string, encoded []byte, origin string) error {
	digest, err := hexutil.Decode(normalizeHex(digestHex))
	if err != nil {
		return sdkerrors.Wrapf(ErrInvalidSignature, "digest: %v", err)
	}

	decoded, err := webauthn.DecodeForChain(encoded)
	if err != nil {
		return err
	}

	expected, err := webauthn.NewAssertionClientData(digest, origin).JSON()
	if err != nil {
		return err
	}
	if !bytes.Equal(decoded.ClientDataJSON, expected) {
		return errors.ErrClientDataMismatch
	}

	pub, err := publicKey.ECDSA()
	if err != nil {
		return sdkerrors.Wrapf(ErrInvalidSignature, "%v", err)
	}

	msg := webauthn.AssertionDigest(decoded.AuthenticatorData, decoded.ClientDataJSON)
	r, s := decoded.Signature.BigInts()
	if !stdecdsa.Verify(pub, msg[:], r, s) {
		return ErrInvalidSignature
	}
	return nil
}
