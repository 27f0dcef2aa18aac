package webauthn

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonr-io/passkey/types/webauthn/webauthncose"
)

const (
	noneAuthDataBase64 = "pkLSG3xtVeHOI8U5mCjSx0m/am7y/gPMnhDN9O1ttItBAAAAAAAAAAAAAAAAAAAAAAAAAAAAQMAxl6G32ykWaLrv/ouCs5HoGsvONqBtOb7ZmyMs8K8PccnwyyqPzWn/yZuyQmQBguvjYSvH6gDBlFG65quUDCSlAQIDJiABIVggyJGP+ra/u/eVjqN4OeYXUShRWxrEeC6Sb5/bZmJ9q8MiWCCHIkRdg5oRb1RHoFVYUpogcjlObCKFsV1ls1T+uUc6rA=="
	attAuthDataBase64  = "lWkIjx7O4yMpVANdvRDXyuORMFonUbVZu4/Xy7IpvdRBAAAAAAAAAAAAAAAAAAAAAAAAAAAAQIniszxcGnhupdPFOHJIm6dscrWCC2h8xHicBMu91THD0kdOdB0QQtkaEn+6KfsfT1o3NmmFT8YfXrG734WfVSmlAQIDJiABIVggyoHHeiUw5aSbt8/GsL9zaqZGRzV26A4y3CnCGUhVXu4iWCBMnc8za5xgPzIygngAv9W+vZTMGJwwZcM4sjiqkcb/1g=="

	noneX = "c8918ffab6bfbbf7958ea37839e6175128515b1ac4782e926f9fdb66627dabc3"
	noneY = "8722445d839a116f5447a05558529a2072394e6c2285b15d65b354feb9473aac"
	attX  = "ca81c77a2530e5a49bb7cfc6b0bf736aa646473576e80e32dc29c21948555eee"
	attY  = "4c9dcf336b9c603f3232827800bfd5bebd94cc189c3065c338b238aa91c6ffd6"
)

func TestAuthenticatorFlags(t *testing.T) {
	tests := []struct {
		name string
		flag AuthenticatorFlags
		up   bool
		uv   bool
		at   bool
		ed   bool
	}{
		{"UP only", 0x01, true, false, false, false},
		{"UP UV AT", 0x45, true, true, true, false},
		{"UP AT", 0x41, true, false, true, false},
		{"all set", 0xc5, true, true, true, true},
		{"backup bits only", 0x18, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.up, tt.flag.UserPresent())
			assert.Equal(t, tt.uv, tt.flag.UserVerified())
			assert.Equal(t, tt.at, tt.flag.HasAttestedCredentialData())
			assert.Equal(t, tt.ed, tt.flag.HasExtensions())
		})
	}
}

func TestAuthenticatorData_Unmarshal(t *testing.T) {
	noneAuthData, _ := base64.StdEncoding.DecodeString(noneAuthDataBase64)
	attAuthData, _ := base64.StdEncoding.DecodeString(attAuthDataBase64)

	// attested credential data missing
	truncated := make([]byte, minAttestedAuthLength-1)
	copy(truncated, attAuthData)
	// flag cleared but data present
	flagCleared := append([]byte{}, attAuthData...)
	flagCleared[32] &= 0b0011_1111
	// extensions flag set but nothing follows the key
	extMissing := append([]byte{}, attAuthData...)
	extMissing[32] |= 0b1000_0000
	// leftover bytes
	leftover := append(append([]byte{}, attAuthData...), []byte("Hello World")...)
	// credential id length points past the end
	badIDLength := append([]byte{}, attAuthData[:minAttestedAuthLength]...)
	badIDLength[53], badIDLength[54] = 0xff, 0xff
	// extension map appended
	withExt := append([]byte{}, attAuthData...)
	withExt[32] |= 0b1000_0000
	withExt = append(withExt, 0xa1, 0x64, 'c', 'r', 'e', 'd', 0xf5)

	tests := []struct {
		name    string
		raw     []byte
		wantErr bool
		wantX   string
		wantY   string
		wantExt []byte
	}{
		{name: "none attestation", raw: noneAuthData, wantX: noneX, wantY: noneY},
		{name: "packed attestation", raw: attAuthData, wantX: attX, wantY: attY},
		{name: "with extensions", raw: withExt, wantX: attX, wantY: attY, wantExt: []byte{0xa1, 0x64, 'c', 'r', 'e', 'd', 0xf5}},
		{name: "empty", raw: []byte{}, wantErr: true},
		{name: "attested credential missing", raw: truncated, wantErr: true},
		{name: "attested flag not set", raw: flagCleared, wantErr: true},
		{name: "extensions missing", raw: extMissing, wantErr: true},
		{name: "leftover bytes", raw: leftover, wantErr: true},
		{name: "credential id overflow", raw: badIDLength, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a AuthenticatorData
			err := a.Unmarshal(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedAuthenticatorData)
				return
			}

			require.NoError(t, err)
			assert.Len(t, a.RPIDHash, 32)
			assert.True(t, a.Flags.UserPresent())
			assert.Len(t, a.AttData.AAGUID, 16)
			assert.Len(t, a.AttData.CredentialID, 64)
			assert.Equal(t, tt.wantExt, a.ExtData)

			key, err := webauthncose.ParseEC2PublicKey(a.AttData.PublicKey)
			require.NoError(t, err)
			assert.Equal(t, tt.wantX, hex.EncodeToString(key.X[:]))
			assert.Equal(t, tt.wantY, hex.EncodeToString(key.Y[:]))
			assert.Equal(t, webauthncose.AlgES256, key.Algorithm)
		})
	}
}

func TestAuthenticatorData_UnmarshalAssertion(t *testing.T) {
	raw := make([]byte, minAuthDataLength)
	raw[32] = byte(FlagUserPresent | FlagUserVerified)
	raw[36] = 0x07

	var a AuthenticatorData
	require.NoError(t, a.Unmarshal(raw))
	assert.True(t, a.Flags.UserVerified())
	assert.False(t, a.Flags.HasAttestedCredentialData())
	assert.Equal(t, uint32(7), a.Counter)
	assert.Empty(t, a.AttData.CredentialID)
}
