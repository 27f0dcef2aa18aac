package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"

	clienterrors "github.com/sonr-io/passkey/client/errors"
	sigcodec "github.com/sonr-io/passkey/crypto/ecdsa"
	"github.com/sonr-io/passkey/types/webauthn"
	"github.com/sonr-io/passkey/types/webauthn/webauthncose"
)

// VirtualAuthenticator is an in-process ES256 authenticator. It produces the
// same wire formats as a platform authenticator: CBOR attestation objects
// with "none" attestation and DER assertion signatures.
type VirtualAuthenticator struct {
	mu      sync.Mutex
	keys    map[string]*ecdsa.PrivateKey
	counter uint32
	encMode cbor.EncMode

	// Cancel makes every ceremony fail as a dismissed prompt.
	Cancel atomic.Bool
	// Delay is held inside each assertion, simulating a biometric prompt.
	Delay time.Duration
	// HighS flips assertion signatures to their high-s form.
	HighS bool
	// RewriteClientData, when set, replaces the client data the authenticator
	// reports having signed.
	RewriteClientData func([]byte) []byte

	active    atomic.Int32
	maxActive atomic.Int32
}

var _ Authenticator = (*VirtualAuthenticator)(nil)

// NewVirtualAuthenticator returns an authenticator with no credentials.
func NewVirtualAuthenticator() *VirtualAuthenticator {
	encMode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return &VirtualAuthenticator{
		keys:    make(map[string]*ecdsa.PrivateKey),
		encMode: encMode,
	}
}

// MakeCredential generates a P-256 key and returns its attestation.
func (v *VirtualAuthenticator) MakeCredential(ctx context.Context, opts CreationOptions) (*AttestationResponse, error) {
	if v.Cancel.Load() {
		return nil, clienterrors.ErrUserCancelledAuthentication
	}
	if len(opts.Algorithms) > 0 && !slices.Contains(opts.Algorithms, webauthncose.AlgES256) {
		return nil, clienterrors.ErrUnsupportedAlgorithm
	}

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	credID := make([]byte, 16)
	if _, err := rand.Read(credID); err != nil {
		return nil, err
	}

	coseKey, err := v.encMode.Marshal(map[int]any{
		int(webauthncose.LabelKeyType):   int(webauthncose.EllipticKey),
		int(webauthncose.LabelAlgorithm): int(webauthncose.AlgES256),
		int(webauthncose.LabelCurve):     int(webauthncose.P256),
		int(webauthncose.LabelX):         priv.PublicKey.X.FillBytes(make([]byte, 32)),
		int(webauthncose.LabelY):         priv.PublicKey.Y.FillBytes(make([]byte, 32)),
	})
	if err != nil {
		return nil, err
	}

	flags := webauthn.FlagUserPresent | webauthn.FlagUserVerified | webauthn.FlagAttestedCredentialData
	authData := v.authenticatorData(opts.RPID, flags, 0)
	authData = append(authData, make([]byte, 16)...) // zero AAGUID
	authData = binary.BigEndian.AppendUint16(authData, uint16(len(credID)))
	authData = append(authData, credID...)
	authData = append(authData, coseKey...)

	attestation, err := v.encMode.Marshal(map[string]any{
		"fmt":      "none",
		"attStmt":  map[string]any{},
		"authData": authData,
	})
	if err != nil {
		return nil, err
	}

	clientData, err := webauthn.CollectedClientData{
		Type:      webauthn.CreateCeremony,
		Challenge: webauthn.EncodeChallenge(opts.Challenge),
		Origin:    "https://" + opts.RPID,
	}.JSON()
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.keys[string(credID)] = priv
	v.mu.Unlock()

	return &AttestationResponse{
		CredentialID:      credID,
		AttestationObject: attestation,
		ClientDataJSON:    clientData,
	}, nil
}

// GetAssertion signs authenticatorData ‖ sha256(opts.ClientDataJSON).
func (v *VirtualAuthenticator) GetAssertion(ctx context.Context, opts AssertionOptions) (*AssertionResponse, error) {
	n := v.active.Add(1)
	defer v.active.Add(-1)
	for {
		peak := v.maxActive.Load()
		if n <= peak || v.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}

	if v.Delay > 0 {
		select {
		case <-time.After(v.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if v.Cancel.Load() {
		return nil, clienterrors.ErrUserCancelledAuthentication
	}

	v.mu.Lock()
	priv, ok := v.keys[string(opts.CredentialID)]
	v.counter++
	counter := v.counter
	v.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %x", clienterrors.ErrCredentialNotFound, opts.CredentialID)
	}

	authData := v.authenticatorData(opts.RPID, webauthn.FlagUserPresent|webauthn.FlagUserVerified, counter)
	digest := webauthn.AssertionDigest(authData, opts.ClientDataJSON)

	sig, err := sigcodec.SignDeterministic(priv, digest[:])
	if err != nil {
		return nil, err
	}
	if v.HighS {
		r, s := sig.BigInts()
		sig, err = sigcodec.SignatureFromBigInts(r, new(big.Int).Sub(priv.Curve.Params().N, s))
		if err != nil {
			return nil, err
		}
	}

	clientData := opts.ClientDataJSON
	if v.RewriteClientData != nil {
		clientData = v.RewriteClientData(clientData)
	}

	return &AssertionResponse{
		CredentialID:      opts.CredentialID,
		AuthenticatorData: authData,
		ClientDataJSON:    clientData,
		Signature:         sig.DER(),
	}, nil
}

// PublicKey returns the key registered under credentialID.
func (v *VirtualAuthenticator) PublicKey(credentialID []byte) (*ecdsa.PublicKey, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	priv, ok := v.keys[string(credentialID)]
	if !ok {
		return nil, false
	}
	return &priv.PublicKey, true
}

// MaxConcurrentAssertions is the highest number of assertions observed in
// flight at once.
func (v *VirtualAuthenticator) MaxConcurrentAssertions() int {
	return int(v.maxActive.Load())
}

func (v *VirtualAuthenticator) authenticatorData(rpID string, flags webauthn.AuthenticatorFlags, counter uint32) []byte {
	rpIDHash := sha256.Sum256([]byte(rpID))
	out := make([]byte, 0, 37)
	out = append(out, rpIDHash[:]...)
	out = append(out, byte(flags))
	return binary.BigEndian.AppendUint32(out, counter)
}
