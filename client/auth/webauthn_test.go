package auth

import (
	"context"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonr-io/passkey/client/errors"
	"github.com/sonr-io/passkey/crypto/ecdsa"
	"github.com/sonr-io/passkey/types/webauthn"
)

const (
	testRPID   = "wallet.example.com"
	testOrigin = "https://wallet.example.com"
)

func newTestManager(t *testing.T, lowS bool) (*Manager, *VirtualAuthenticator) {
	t.Helper()
	authn := NewVirtualAuthenticator()
	return NewManager(authn, Options{RPID: testRPID, Origin: testOrigin, LowS: lowS}), authn
}

func TestCreate(t *testing.T) {
	m, authn := newTestManager(t, true)

	cred, err := m.Create(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", cred.Label)
	assert.Equal(t, RoleAdmin, cred.Role)
	assert.Len(t, cred.ID, 16)

	pub, ok := authn.PublicKey(cred.ID)
	require.True(t, ok)
	x := pub.X.FillBytes(make([]byte, 32))
	y := pub.Y.FillBytes(make([]byte, 32))
	assert.Equal(t, "0x"+hex.EncodeToString(x)+hex.EncodeToString(y), cred.PublicKeyHex())

	decoded, err := DecodeCredentialID(cred.EncodedID())
	require.NoError(t, err)
	assert.Equal(t, cred.ID, decoded)
}

func TestCreate_Cancelled(t *testing.T) {
	m, authn := newTestManager(t, true)
	authn.Cancel.Store(true)

	_, err := m.Create(context.Background(), "alice")
	require.ErrorIs(t, err, errors.ErrUserCancelledAuthentication)
	assert.Equal(t, errors.KindUserCancelledAuthentication, errors.Classify(err))
}

func TestSignTransactionDigest_ClientDataLiteral(t *testing.T) {
	m, _ := newTestManager(t, true)
	cred, err := m.Create(context.Background(), "alice")
	require.NoError(t, err)

	digest := "0xfbf8e3a8e7aa9b4a6be9ab76cb3cbd69d1f9d0db7a9b8c7d6e5f4a3b2c1d28ff"
	sig, err := m.SignTransactionDigest(context.Background(), cred.ID, digest)
	require.NoError(t, err)

	raw, err := hex.DecodeString(digest[2:])
	require.NoError(t, err)
	expected := `{"type":"webauthn.get","challenge":"` + webauthn.EncodeChallenge(raw) + `","origin":"https://wallet.example.com","crossOrigin":false}`
	assert.Equal(t, expected, string(sig.ClientDataJSON))

	decoded, err := webauthn.DecodeForChain(sig.Encoded)
	require.NoError(t, err)
	assert.Equal(t, sig.AuthenticatorData, decoded.AuthenticatorData)
	assert.Equal(t, sig.ClientDataJSON, decoded.ClientDataJSON)
	assert.Equal(t, sig.Signature, decoded.Signature)
}

func TestSignTransactionDigest_RoundTrip(t *testing.T) {
	m, _ := newTestManager(t, true)
	cred, err := m.Create(context.Background(), "alice")
	require.NoError(t, err)

	for i := 0; i < 16; i++ {
		digest := sha256.Sum256([]byte{byte(i)})
		digestHex := hex.EncodeToString(digest[:])

		sig, err := m.SignTransactionDigest(context.Background(), cred.ID, digestHex)
		require.NoError(t, err)
		require.NoError(t, VerifyDigestSignature(cred.PublicKey, digestHex, sig.Encoded, testOrigin))

		// a verifier deployed for another origin rejects the same bytes
		err = VerifyDigestSignature(cred.PublicKey, digestHex, sig.Encoded, "https://staging.example.com")
		require.ErrorIs(t, err, errors.ErrClientDataMismatch)

		// so does one checking a different digest
		other := sha256.Sum256([]byte{byte(i), 1})
		err = VerifyDigestSignature(cred.PublicKey, hex.EncodeToString(other[:]), sig.Encoded, testOrigin)
		require.ErrorIs(t, err, errors.ErrClientDataMismatch)
	}
}

func TestVerifyDigestSignature_WrongKey(t *testing.T) {
	m, _ := newTestManager(t, true)
	alice, err := m.Create(context.Background(), "alice")
	require.NoError(t, err)
	bob, err := m.Create(context.Background(), "bob")
	require.NoError(t, err)

	digest := common.HexToHash("0x01").Hex()
	sig, err := m.SignTransactionDigest(context.Background(), alice.ID, digest)
	require.NoError(t, err)

	err = VerifyDigestSignature(bob.PublicKey, digest, sig.Encoded, testOrigin)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestSignTransactionDigest_ClientDataMismatch(t *testing.T) {
	m, authn := newTestManager(t, true)
	cred, err := m.Create(context.Background(), "alice")
	require.NoError(t, err)

	// a platform that re-serializes with a different origin
	authn.RewriteClientData = func(b []byte) []byte {
		cd, err := webauthn.ParseClientData(b)
		require.NoError(t, err)
		cd.Origin = "android:apk-key-hash:abc"
		out, err := cd.JSON()
		require.NoError(t, err)
		return out
	}

	_, err = m.SignTransactionDigest(context.Background(), cred.ID, common.HexToHash("0x02").Hex())
	require.ErrorIs(t, err, errors.ErrClientDataMismatch)
}

func TestSignTransactionDigest_LowS(t *testing.T) {
	tests := []struct {
		name     string
		lowS     bool
		wantLowS bool
	}{
		{name: "normalized", lowS: true, wantLowS: true},
		{name: "passed through", lowS: false, wantLowS: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, authn := newTestManager(t, tt.lowS)
			authn.HighS = true

			cred, err := m.Create(context.Background(), "alice")
			require.NoError(t, err)

			digest := common.HexToHash("0x03").Hex()
			sig, err := m.SignTransactionDigest(context.Background(), cred.ID, digest)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLowS, ecdsa.IsLowS(sig.Signature, elliptic.P256()))

			// both forms verify under P-256
			require.NoError(t, VerifyDigestSignature(cred.PublicKey, digest, sig.Encoded, testOrigin))
		})
	}
}

func TestSignTransactionDigest_InvalidInput(t *testing.T) {
	m, _ := newTestManager(t, true)
	cred, err := m.Create(context.Background(), "alice")
	require.NoError(t, err)

	_, err = m.SignTransactionDigest(context.Background(), cred.ID, "0xnothex")
	require.Error(t, err)

	_, err = m.SignTransactionDigest(context.Background(), []byte("unknown"), common.HexToHash("0x04").Hex())
	require.ErrorIs(t, err, errors.ErrCredentialNotFound)
}

func TestSignAssertion(t *testing.T) {
	m, _ := newTestManager(t, true)
	cred, err := m.Create(context.Background(), "alice")
	require.NoError(t, err)

	resp, err := m.SignAssertion(context.Background(), cred.ID, []byte("login"))
	require.NoError(t, err)

	cd, err := webauthn.ParseClientData(resp.ClientDataJSON)
	require.NoError(t, err)
	assert.Equal(t, webauthn.AssertCeremony, cd.Type)
	assert.Equal(t, webauthn.EncodeChallenge([]byte("login")), cd.Challenge)
	assert.Equal(t, testOrigin, cd.Origin)

	_, err = ecdsa.DecodeSignature(resp.Signature)
	require.NoError(t, err)
}

func TestSigning_SerializedPerCredential(t *testing.T) {
	m, authn := newTestManager(t, true)
	authn.Delay = 20 * time.Millisecond

	cred, err := m.Create(context.Background(), "alice")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.SignTransactionDigest(context.Background(), cred.ID, common.BigToHash(common.Big1).Hex())
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, authn.MaxConcurrentAssertions())
}

func TestSigning_WaitRespectsContext(t *testing.T) {
	m, authn := newTestManager(t, true)
	authn.Delay = 200 * time.Millisecond

	cred, err := m.Create(context.Background(), "alice")
	require.NoError(t, err)

	started := make(chan struct{})
	go func() {
		close(started)
		_, _ = m.SignTransactionDigest(context.Background(), cred.ID, common.HexToHash("0x05").Hex())
	}()
	<-started
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.SignTransactionDigest(ctx, cred.ID, common.HexToHash("0x06").Hex())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPasskeySigner(t *testing.T) {
	m, _ := newTestManager(t, true)
	cred, err := m.Create(context.Background(), "alice")
	require.NoError(t, err)

	digest := common.HexToHash("0xabcdef")
	encoded, err := m.Signer(cred.ID).SignDigest(context.Background(), digest)
	require.NoError(t, err)
	require.NoError(t, VerifyDigestSignature(cred.PublicKey, digest.Hex(), encoded, testOrigin))
}
