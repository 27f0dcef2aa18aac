package auth

import (
	"context"
	"encoding/base64"

	"github.com/sonr-io/passkey/types/webauthn/webauthncose"
)

// UserVerificationRequired is the only user-verification level the wallet
// requests.
const UserVerificationRequired = "required"

// CreationOptions are the parameters of a platform registration ceremony.
type CreationOptions struct {
	RPID             string
	UserID           []byte
	UserName         string
	Challenge        []byte
	Algorithms       []webauthncose.COSEAlgorithmIdentifier
	ResidentKey      bool
	UserVerification string
}

// AttestationResponse is the platform's answer to a registration ceremony.
type AttestationResponse struct {
	CredentialID      []byte
	AttestationObject []byte
	ClientDataJSON    []byte
}

// AssertionOptions are the parameters of a platform get-assertion ceremony.
// ClientDataJSON is the exact literal the authenticator must sign over.
type AssertionOptions struct {
	RPID             string
	CredentialID     []byte
	Challenge        []byte
	ClientDataJSON   []byte
	UserVerification string
}

// AssertionResponse is a raw platform assertion. Signature is ASN.1 DER.
// ClientDataJSON is the client data the platform reports having signed, if
// it reports one.
type AssertionResponse struct {
	CredentialID      []byte
	AuthenticatorData []byte
	ClientDataJSON    []byte
	Signature         []byte
	UserHandle        []byte
}

// Authenticator is the platform passkey API. Implementations report a
// dismissed biometric prompt as errors.ErrUserCancelledAuthentication.
type Authenticator interface {
	MakeCredential(ctx context.Context, opts CreationOptions) (*AttestationResponse, error)
	GetAssertion(ctx context.Context, opts AssertionOptions) (*AssertionResponse, error)
}

// Role is the authority a credential holds on the account.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleSession Role = "session"
)

// Credential is a registered passkey. It is immutable once created.
type Credential struct {
	ID        []byte                     `json:"id"`
	PublicKey *webauthncose.EC2PublicKey `json:"-"`
	Label     string                     `json:"label"`
	Role      Role                       `json:"role"`
}

// EncodedID is the credential id in base64url without padding.
func (c *Credential) EncodedID() string {
	return base64.RawURLEncoding.EncodeToString(c.ID)
}

// PublicKeyHex is "0x" followed by the 32-byte x and y coordinates.
func (c *Credential) PublicKeyHex() string {
	return c.PublicKey.Hex()
}

// DecodeCredentialID accepts a base64 credential id in either alphabet.
func DecodeCredentialID(s string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(s)
}
