// Package auth manages the passkey that controls an upgraded account: it
// registers the credential and turns transaction digests into signatures the
// on-chain WebAuthn verifier accepts.
package auth

import (
	"bytes"
	"context"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/sonr-io/passkey/client/errors"
	"github.com/sonr-io/passkey/crypto/ecdsa"
	"github.com/sonr-io/passkey/types/webauthn"
	"github.com/sonr-io/passkey/types/webauthn/webauthncose"
)

// Options configures a Manager.
type Options struct {
	// RPID is the WebAuthn relying party id.
	RPID string
	// Origin is embedded in every clientDataJSON. It must equal the origin
	// the deployed verifier reconstructs.
	Origin string
	// LowS normalizes signatures to s <= n/2.
	LowS   bool
	Logger log.Logger
}

// DigestSignature is a passkey signature over a transaction digest.
type DigestSignature struct {
	// Encoded is abi.encode(authenticatorData, clientDataJSON, [r, s]).
	Encoded           hexutil.Bytes
	ClientDataJSON    []byte
	AuthenticatorData []byte
	Signature         ecdsa.Signature
}

// Manager creates credentials and signs with them.
type Manager struct {
	authenticator Authenticator
	rpID          string
	origin        string
	lowS          bool
	logger        log.Logger

	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewManager wraps a platform authenticator.
func NewManager(authenticator Authenticator, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Manager{
		authenticator: authenticator,
		rpID:          opts.RPID,
		origin:        opts.Origin,
		lowS:          opts.LowS,
		logger:        logger.With(log.ModuleKey, "auth"),
		locks:         make(map[string]chan struct{}),
	}
}

// Origin returns the configured clientDataJSON origin.
func (m *Manager) Origin() string {
	return m.origin
}

// Create registers a resident, user-verified ES256 credential and returns its
// public key.
func (m *Manager) Create(ctx context.Context, label string) (*Credential, error) {
	challenge := make([]byte, 32)
	if _, err := rand.Read(challenge); err != nil {
		return nil, err
	}

	resp, err := m.authenticator.MakeCredential(ctx, CreationOptions{
		RPID:             m.rpID,
		UserID:           []byte(label),
		UserName:         label,
		Challenge:        challenge,
		Algorithms:       []webauthncose.COSEAlgorithmIdentifier{webauthncose.AlgES256},
		ResidentKey:      true,
		UserVerification: UserVerificationRequired,
	})
	if err != nil {
		return nil, err
	}

	key, err := webauthn.DecodeAttestationBytes(resp.AttestationObject)
	if err != nil {
		return nil, err
	}
	if key.Algorithm != 0 && key.Algorithm != webauthncose.AlgES256 {
		return nil, errors.WrapError(fmt.Errorf("alg %d", key.Algorithm), errors.ErrUnsupportedAlgorithm, "credential %s", label)
	}
	if len(resp.CredentialID) == 0 {
		return nil, fmt.Errorf("%w: empty credential id", webauthn.ErrMalformedAttestation)
	}

	cred := &Credential{
		ID:        resp.CredentialID,
		PublicKey: key,
		Label:     label,
		Role:      RoleAdmin,
	}
	m.logger.Info("created passkey credential", "label", label, "credential", cred.EncodedID())
	return cred, nil
}

// SignAssertion runs a get-assertion ceremony over an arbitrary challenge
// and returns the raw platform response.
func (m *Manager) SignAssertion(ctx context.Context, credentialID, challenge []byte) (*AssertionResponse, error) {
	clientData, err := webauthn.CollectedClientData{
		Type:      webauthn.AssertCeremony,
		Challenge: webauthn.EncodeChallenge(challenge),
		Origin:    m.origin,
	}.JSON()
	if err != nil {
		return nil, err
	}
	return m.assert(ctx, credentialID, challenge, clientData)
}

// SignTransactionDigest signs a hex digest for the on-chain WebAuthn
// verifier. The challenge is base64url(digest) without padding.
func (m *Manager) SignTransactionDigest(ctx context.Context, credentialID []byte, digestHex string) (*DigestSignature, error) {
	digest, err := hexutil.Decode(normalizeHex(digestHex))
	if err != nil {
		return nil, fmt.Errorf("invalid digest %q: %w", digestHex, err)
	}

	clientData, err := webauthn.NewAssertionClientData(digest, m.origin).JSON()
	if err != nil {
		return nil, err
	}

	resp, err := m.assert(ctx, credentialID, digest, clientData)
	if err != nil {
		return nil, err
	}

	// platforms that rebuild the client data themselves must produce the
	// same bytes, or the verifier rejects the signature on-chain
	if len(resp.ClientDataJSON) > 0 && !bytes.Equal(resp.ClientDataJSON, clientData) {
		m.logger.Error("client data mismatch", "expected", string(clientData), "got", string(resp.ClientDataJSON))
		return nil, errors.ErrClientDataMismatch
	}

	sig, err := ecdsa.DecodeSignature(resp.Signature)
	if err != nil {
		return nil, err
	}
	if m.lowS {
		sig = ecdsa.NormalizeLowS(sig, elliptic.P256())
	}

	encoded, err := webauthn.EncodeForChain(resp.AuthenticatorData, clientData, sig)
	if err != nil {
		return nil, err
	}

	return &DigestSignature{
		Encoded:           encoded,
		ClientDataJSON:    clientData,
		AuthenticatorData: resp.AuthenticatorData,
		Signature:         sig,
	}, nil
}

// assert holds the credential's lock for the duration of the ceremony.
func (m *Manager) assert(ctx context.Context, credentialID, challenge, clientData []byte) (*AssertionResponse, error) {
	unlock, err := m.lock(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	resp, err := m.authenticator.GetAssertion(ctx, AssertionOptions{
		RPID:             m.rpID,
		CredentialID:     credentialID,
		Challenge:        challenge,
		ClientDataJSON:   clientData,
		UserVerification: UserVerificationRequired,
	})
	if err != nil {
		if errors.IsAuthenticationError(err) {
			m.logger.Warn("assertion not completed", "error", err)
		}
		return nil, err
	}
	return resp, nil
}

func (m *Manager) lock(ctx context.Context, credentialID []byte) (func(), error) {
	m.mu.Lock()
	sem, ok := m.locks[string(credentialID)]
	if !ok {
		sem = make(chan struct{}, 1)
		m.locks[string(credentialID)] = sem
	}
	m.mu.Unlock()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PasskeySigner signs bundle digests with one credential.
type PasskeySigner struct {
	manager      *Manager
	credentialID []byte
}

// Signer binds the manager to a credential.
func (m *Manager) Signer(credentialID []byte) *PasskeySigner {
	return &PasskeySigner{manager: m, credentialID: credentialID}
}

// SignDigest returns the ABI-encoded WebAuthn signature over digest.
func (s *PasskeySigner) SignDigest(ctx context.Context, digest common.Hash) (hexutil.Bytes, error) {
	sig, err := s.manager.SignTransactionDigest(ctx, s.credentialID, digest.Hex())
	if err != nil {
		return nil, err
	}
	return sig.Encoded, nil
}

func normalizeHex(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return s
}
