package webauthn

import (
	"encoding/base64"
	"strings"

	"cosmossdk.io/errors"

	"github.com/sonr-io/passkey/types/webauthn/webauthncbor"
	"github.com/sonr-io/passkey/types/webauthn/webauthncose"
)

// AttestationObject is the CBOR map returned on credential creation.
type AttestationObject struct {
	Format       string
	RawAuthData  []byte
	AuthData     AuthenticatorData
	AttStatement webauthncbor.Value
}

// DecodeAttestation decodes a base64 attestation object and returns the
// credential's EC2 public key.
func DecodeAttestation(attestationBase64 string) (*webauthncose.EC2PublicKey, error) {
	raw, err := DecodeBase64(attestationBase64)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedAttestation, "base64: %v", err)
	}
	return DecodeAttestationBytes(raw)
}

// DecodeAttestationBytes is DecodeAttestation for an already decoded
// attestation object.
func DecodeAttestationBytes(raw []byte) (*webauthncose.EC2PublicKey, error) {
	obj, err := unmarshalAttestationObject(raw)
	if err != nil {
		return nil, err
	}

	// the AT flag is checked on the header alone so that a cleared flag is
	// reported as such rather than as leftover bytes
	if len(obj.RawAuthData) < minAuthDataLength {
		return nil, errors.Wrapf(ErrMalformedAttestation, "authenticator data is %d bytes", len(obj.RawAuthData))
	}
	if !AuthenticatorFlags(obj.RawAuthData[rpIDHashLength]).HasAttestedCredentialData() {
		return nil, ErrNoAttestedCredentialData
	}

	if err := obj.AuthData.Unmarshal(obj.RawAuthData); err != nil {
		return nil, errors.Wrapf(ErrMalformedAttestation, "%v", err)
	}

	return obj.PublicKey()
}

// ParseAttestationObject parses raw attestation object bytes including the
// authenticator data.
func ParseAttestationObject(raw []byte) (*AttestationObject, error) {
	obj, err := unmarshalAttestationObject(raw)
	if err != nil {
		return nil, err
	}
	if err := obj.AuthData.Unmarshal(obj.RawAuthData); err != nil {
		return nil, errors.Wrapf(ErrMalformedAttestation, "%v", err)
	}
	return obj, nil
}

// PublicKey returns the attested credential's EC2 key.
func (o *AttestationObject) PublicKey() (*webauthncose.EC2PublicKey, error) {
	if !o.AuthData.Flags.HasAttestedCredentialData() {
		return nil, ErrNoAttestedCredentialData
	}
	key, err := webauthncose.ParseEC2PublicKey(o.AuthData.AttData.PublicKey)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedAttestation, "%v", err)
	}
	return key, nil
}

// CredentialID returns the attested credential id.
func (o *AttestationObject) CredentialID() []byte {
	return o.AuthData.AttData.CredentialID
}

func unmarshalAttestationObject(raw []byte) (*AttestationObject, error) {
	v, err := webauthncbor.DecodeExact(raw)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedAttestation, "%v", err)
	}
	if v.Kind != webauthncbor.KindMap {
		return nil, errors.Wrapf(ErrMalformedAttestation, "expected map, got %s", v.Kind)
	}

	obj := &AttestationObject{}

	format, ok := v.GetText("fmt")
	if !ok || format.Kind != webauthncbor.KindText {
		return nil, errors.Wrap(ErrMalformedAttestation, "missing fmt")
	}
	obj.Format = format.Text

	authData, ok := v.GetText("authData")
	if !ok || authData.Kind != webauthncbor.KindBytes {
		return nil, errors.Wrap(ErrMalformedAttestation, "missing authData")
	}
	obj.RawAuthData = authData.Bytes

	if stmt, ok := v.GetText("attStmt"); ok {
		if stmt.Kind != webauthncbor.KindMap {
			return nil, errors.Wrapf(ErrMalformedAttestation, "attStmt is %s", stmt.Kind)
		}
		obj.AttStatement = stmt
	}

	return obj, nil
}

// DecodeBase64 accepts standard or URL alphabets with or without padding.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, "-_") {
		return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
