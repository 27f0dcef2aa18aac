package webauthn

import (
	"encoding/binary"

	"cosmossdk.io/errors"

	"github.com/sonr-io/passkey/types/webauthn/webauthncbor"
)

const (
	rpIDHashLength = 32
	aaguidLength   = 16
	// rpIdHash, flags, signCount
	minAuthDataLength = rpIDHashLength + 1 + 4
	// minAuthDataLength plus AAGUID and credential id length
	minAttestedAuthLength = minAuthDataLength + aaguidLength + 2
)

// AuthenticatorFlags is the flags byte of authenticator data.
type AuthenticatorFlags byte

const (
	FlagUserPresent            AuthenticatorFlags = 0x01
	FlagUserVerified           AuthenticatorFlags = 0x04
	FlagBackupEligible         AuthenticatorFlags = 0x08
	FlagBackupState            AuthenticatorFlags = 0x10
	FlagAttestedCredentialData AuthenticatorFlags = 0x40
	FlagHasExtensions          AuthenticatorFlags = 0x80
)

func (f AuthenticatorFlags) UserPresent() bool {
	return f&FlagUserPresent == FlagUserPresent
}

func (f AuthenticatorFlags) UserVerified() bool {
	return f&FlagUserVerified == FlagUserVerified
}

func (f AuthenticatorFlags) HasAttestedCredentialData() bool {
	return f&FlagAttestedCredentialData == FlagAttestedCredentialData
}

func (f AuthenticatorFlags) HasExtensions() bool {
	return f&FlagHasExtensions == FlagHasExtensions
}

// AuthenticatorData is the binary structure an authenticator signs over.
type AuthenticatorData struct {
	RPIDHash []byte
	Flags    AuthenticatorFlags
	Counter  uint32
	AttData  AttestedCredentialData
	ExtData  []byte
}

// AttestedCredentialData is present when the AT flag is set.
type AttestedCredentialData struct {
	AAGUID       []byte
	CredentialID []byte

	// CredentialPublicKey is the raw COSE key; PublicKey is its decoded form.
	CredentialPublicKey []byte
	PublicKey           webauthncbor.Value
}

// Unmarshal parses raw authenticator data. Assertions carry no attested
// credential data, so a missing AT flag is not an error here.
func (a *AuthenticatorData) Unmarshal(raw []byte) error {
	if len(raw) < minAuthDataLength {
		return errors.Wrapf(ErrMalformedAuthenticatorData,
			"length too short: expected at least %d bytes, got %d", minAuthDataLength, len(raw))
	}

	a.RPIDHash = raw[:rpIDHashLength]
	a.Flags = AuthenticatorFlags(raw[rpIDHashLength])
	a.Counter = binary.BigEndian.Uint32(raw[rpIDHashLength+1 : minAuthDataLength])

	rest := raw[minAuthDataLength:]

	if a.Flags.HasAttestedCredentialData() {
		if len(raw) < minAttestedAuthLength {
			return errors.Wrap(ErrMalformedAuthenticatorData, "attested credential flag set but data is missing")
		}

		var err error
		if rest, err = a.unmarshalAttestedData(rest); err != nil {
			return err
		}
	}

	if a.Flags.HasExtensions() {
		if len(rest) == 0 {
			return errors.Wrap(ErrMalformedAuthenticatorData, "extensions flag set but extensions data is missing")
		}

		_, after, err := webauthncbor.Decode(rest)
		if err != nil {
			return errors.Wrapf(ErrMalformedAuthenticatorData, "extensions: %v", err)
		}
		a.ExtData = rest[:len(rest)-len(after)]
		rest = after
	}

	if len(rest) != 0 {
		return errors.Wrapf(ErrMalformedAuthenticatorData, "%d leftover bytes", len(rest))
	}

	return nil
}

func (a *AuthenticatorData) unmarshalAttestedData(data []byte) ([]byte, error) {
	a.AttData.AAGUID = data[:aaguidLength]

	idLength := int(binary.BigEndian.Uint16(data[aaguidLength : aaguidLength+2]))
	data = data[aaguidLength+2:]
	if len(data) < idLength {
		return nil, errors.Wrapf(ErrMalformedAuthenticatorData,
			"credential id length %d exceeds remaining %d bytes", idLength, len(data))
	}
	a.AttData.CredentialID = data[:idLength]
	data = data[idLength:]

	key, rest, err := webauthncbor.Decode(data)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedAuthenticatorData, "credential public key: %v", err)
	}
	a.AttData.CredentialPublicKey = data[:len(data)-len(rest)]
	a.AttData.PublicKey = key

	return rest, nil
}
