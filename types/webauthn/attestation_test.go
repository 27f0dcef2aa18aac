package webauthn

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildAuthData assembles authenticator data around a COSE key.
func buildAuthData(t *testing.T, flags byte, credentialID []byte, coseKey map[int]any) []byte {
	t.Helper()

	rpIDHash := sha256.Sum256([]byte("wallet.example.com"))
	out := append([]byte{}, rpIDHash[:]...)
	out = append(out, flags)
	out = binary.BigEndian.AppendUint32(out, 0)
	out = append(out, make([]byte, 16)...)
	out = binary.BigEndian.AppendUint16(out, uint16(len(credentialID)))
	out = append(out, credentialID...)

	key, err := cbor.Marshal(coseKey)
	require.NoError(t, err)
	return append(out, key...)
}

func buildAttestation(t *testing.T, authData []byte) string {
	t.Helper()
	raw, err := cbor.Marshal(map[string]any{
		"fmt":      "none",
		"attStmt":  map[string]any{},
		"authData": authData,
	})
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func ec2Key(x, y []byte) map[int]any {
	return map[int]any{1: 2, 3: -7, -1: 1, -2: x, -3: y}
}

func TestDecodeAttestation_KnownCoordinates(t *testing.T) {
	cases := map[string]struct {
		x, y []byte
	}{
		"random":               {x: randomBytes(t, 32), y: randomBytes(t, 32)},
		"leading zero x":       {x: append([]byte{0x00}, randomBytes(t, 31)...), y: randomBytes(t, 32)},
		"leading zeros y":      {x: randomBytes(t, 32), y: append([]byte{0x00, 0x00, 0x00}, randomBytes(t, 29)...)},
		"both leading zero":    {x: append([]byte{0x00}, randomBytes(t, 31)...), y: append([]byte{0x00}, randomBytes(t, 31)...)},
		"all zero coordinates": {x: make([]byte, 32), y: make([]byte, 32)},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			authData := buildAuthData(t, 0x45, randomBytes(t, 16), ec2Key(tc.x, tc.y))

			key, err := DecodeAttestation(buildAttestation(t, authData))
			require.NoError(t, err)
			assert.Equal(t, "0x"+hex.EncodeToString(tc.x)+hex.EncodeToString(tc.y), key.Hex())
		})
	}
}

func TestDecodeAttestation_Property(t *testing.T) {
	for i := 0; i < 100; i++ {
		x := randomBytes(t, 32)
		y := randomBytes(t, 32)
		// force leading zero bytes on a share of the iterations
		for j := 0; j < i%4; j++ {
			x[j] = 0
		}
		for j := 0; j < i%3; j++ {
			y[j] = 0
		}

		authData := buildAuthData(t, 0x45, randomBytes(t, 32), ec2Key(x, y))
		key, err := DecodeAttestation(buildAttestation(t, authData))
		require.NoError(t, err)
		require.Equal(t, "0x"+hex.EncodeToString(x)+hex.EncodeToString(y), key.Hex())
	}
}

func TestDecodeAttestation_StrippedCoordinatesArePadded(t *testing.T) {
	x := append([]byte{0x00, 0x00}, randomBytes(t, 30)...)
	y := append([]byte{0x00}, randomBytes(t, 31)...)

	// some authenticators emit minimal-length coordinates
	authData := buildAuthData(t, 0x45, randomBytes(t, 16), ec2Key(x[2:], y[1:]))

	key, err := DecodeAttestation(buildAttestation(t, authData))
	require.NoError(t, err)
	assert.Equal(t, "0x"+hex.EncodeToString(x)+hex.EncodeToString(y), key.Hex())
}

func TestDecodeAttestation_Flags(t *testing.T) {
	x, y := randomBytes(t, 32), randomBytes(t, 32)

	t.Run("AT and UP set", func(t *testing.T) {
		authData := buildAuthData(t, 0x45, randomBytes(t, 16), ec2Key(x, y))
		_, err := DecodeAttestation(buildAttestation(t, authData))
		require.NoError(t, err)
	})

	t.Run("UP only", func(t *testing.T) {
		authData := buildAuthData(t, 0x01, randomBytes(t, 16), ec2Key(x, y))
		_, err := DecodeAttestation(buildAttestation(t, authData))
		require.ErrorIs(t, err, ErrNoAttestedCredentialData)
	})

	t.Run("UP only without trailing data", func(t *testing.T) {
		authData := make([]byte, minAuthDataLength)
		authData[32] = 0x01
		_, err := DecodeAttestation(buildAttestation(t, authData))
		require.ErrorIs(t, err, ErrNoAttestedCredentialData)
	})
}

func TestDecodeAttestation_Malformed(t *testing.T) {
	x, y := randomBytes(t, 32), randomBytes(t, 32)

	encode := func(m any) string {
		raw, err := cbor.Marshal(m)
		require.NoError(t, err)
		return base64.StdEncoding.EncodeToString(raw)
	}

	tests := []struct {
		name  string
		input string
	}{
		{"not base64", "%%%"},
		{"not cbor", base64.StdEncoding.EncodeToString([]byte{0xff})},
		{"not a map", encode([]int{1, 2})},
		{"missing fmt", encode(map[string]any{"authData": []byte{1}, "attStmt": map[string]any{}})},
		{"missing authData", encode(map[string]any{"fmt": "none", "attStmt": map[string]any{}})},
		{"authData wrong type", encode(map[string]any{"fmt": "none", "authData": "nope"})},
		{"attStmt wrong type", encode(map[string]any{"fmt": "none", "authData": []byte{1}, "attStmt": 3})},
		{"short authData", buildAttestation(t, []byte{0x01, 0x02})},
		{"missing x", buildAttestation(t, buildAuthData(t, 0x45, []byte{1}, map[int]any{1: 2, 3: -7, -1: 1, -3: y}))},
		{"missing y", buildAttestation(t, buildAuthData(t, 0x45, []byte{1}, map[int]any{1: 2, 3: -7, -1: 1, -2: x}))},
		{"oversized x", buildAttestation(t, buildAuthData(t, 0x45, []byte{1}, ec2Key(append([]byte{0x01}, x...), y)))},
		{"trailing bytes", buildAttestation(t, append(buildAuthData(t, 0x45, []byte{1}, ec2Key(x, y)), 0x00))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAttestation(tt.input)
			require.ErrorIs(t, err, ErrMalformedAttestation)
		})
	}
}

func TestDecodeAttestation_Base64Variants(t *testing.T) {
	x, y := randomBytes(t, 32), randomBytes(t, 32)
	authData := buildAuthData(t, 0x45, randomBytes(t, 20), ec2Key(x, y))
	raw, err := base64.StdEncoding.DecodeString(buildAttestation(t, authData))
	require.NoError(t, err)

	for name, enc := range map[string]*base64.Encoding{
		"std":     base64.StdEncoding,
		"raw std": base64.RawStdEncoding,
		"url":     base64.URLEncoding,
		"raw url": base64.RawURLEncoding,
	} {
		t.Run(name, func(t *testing.T) {
			key, err := DecodeAttestation(enc.EncodeToString(raw))
			require.NoError(t, err)
			assert.Equal(t, x, key.X[:])
		})
	}
}

func TestParseAttestationObject(t *testing.T) {
	credentialID := randomBytes(t, 24)
	authData := buildAuthData(t, 0x45, credentialID, ec2Key(randomBytes(t, 32), randomBytes(t, 32)))
	raw, err := base64.StdEncoding.DecodeString(buildAttestation(t, authData))
	require.NoError(t, err)

	obj, err := ParseAttestationObject(raw)
	require.NoError(t, err)
	assert.Equal(t, "none", obj.Format)
	assert.Equal(t, credentialID, obj.CredentialID())
	assert.True(t, obj.AuthData.Flags.UserVerified())
	assert.Equal(t, authData, obj.RawAuthData)
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}
