package ecdsa

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/asn1"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type asn1Signature struct {
	R, S *big.Int
}

func TestDecodeSignature_RawIsIdentity(t *testing.T) {
	raw := make([]byte, SignatureSize)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	raw[0] = 0x30 // looks like a DER tag but length decides

	sig, err := DecodeSignature(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, sig.Bytes())

	again, err := DecodeSignature(sig.Bytes())
	require.NoError(t, err)
	assert.Equal(t, sig, again)
}

func TestDecodeSignature_PlatformSignatures(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	for i := 0; i < 64; i++ {
		digest := sha256.Sum256([]byte{byte(i)})
		der, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
		require.NoError(t, err)

		var want asn1Signature
		_, err = asn1.Unmarshal(der, &want)
		require.NoError(t, err)

		sig, err := DecodeSignature(der)
		require.NoError(t, err)
		require.Len(t, sig.Bytes(), SignatureSize)

		r, s := sig.BigInts()
		assert.Equal(t, 0, want.R.Cmp(r))
		assert.Equal(t, 0, want.S.Cmp(s))
		assert.True(t, ecdsa.Verify(&priv.PublicKey, digest[:], r, s))

		// re-encoding produces the same minimal DER
		assert.Equal(t, der, sig.DER())
	}
}

func TestDecodeSignature_Padding(t *testing.T) {
	highR := bytes.Repeat([]byte{0x80}, 32)
	shortS := []byte{0x05}

	der := []byte{0x30, 0x26, 0x02, 0x21, 0x00}
	der = append(der, highR...)
	der = append(der, 0x02, 0x01)
	der = append(der, shortS...)

	sig, err := DecodeSignature(der)
	require.NoError(t, err)
	assert.Equal(t, highR, sig.R[:])

	wantS := make([]byte, 32)
	wantS[31] = 0x05
	assert.Equal(t, wantS, sig.S[:])
	assert.Equal(t, der, sig.DER())
}

func TestDecodeSignature_ShortScalarsLeftPadded(t *testing.T) {
	r := big.NewInt(0x0102)
	s := new(big.Int).SetBytes(append([]byte{0x00, 0x00, 0x7f}, bytes.Repeat([]byte{0x11}, 20)...))

	der, err := asn1.Marshal(asn1Signature{R: r, S: s})
	require.NoError(t, err)

	sig, err := DecodeSignature(der)
	require.NoError(t, err)

	gotR, gotS := sig.BigInts()
	assert.Equal(t, 0, r.Cmp(gotR))
	assert.Equal(t, 0, s.Cmp(gotS))
	assert.Equal(t, byte(0x01), sig.R[30])
	assert.Equal(t, byte(0x02), sig.R[31])
}

func TestDecodeSignature_Errors(t *testing.T) {
	valid := func() []byte {
		der, _ := asn1.Marshal(asn1Signature{R: big.NewInt(7), S: big.NewInt(9)})
		return der
	}

	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", []byte{}},
		{"single byte", []byte{0x30}},
		{"wrong sequence tag", func() []byte { b := valid(); b[0] = 0x31; return b }()},
		{"wrong integer tag", func() []byte { b := valid(); b[2] = 0x03; return b }()},
		{"sequence length mismatch", func() []byte { b := valid(); b[1]++; return b }()},
		{"trailing bytes in sequence", []byte{0x30, 0x07, 0x02, 0x01, 0x07, 0x02, 0x01, 0x09, 0x00}},
		{"zero length integer", []byte{0x30, 0x05, 0x02, 0x00, 0x02, 0x01, 0x09}},
		{"integer longer than data", []byte{0x30, 0x06, 0x02, 0x05, 0x07, 0x02, 0x01, 0x09}},
		{"missing s", []byte{0x30, 0x03, 0x02, 0x01, 0x07}},
		{"63 bytes of noise", bytes.Repeat([]byte{0x42}, 63)},
		{"65 bytes of noise", bytes.Repeat([]byte{0x42}, 65)},
		{"33 byte scalar without sign padding", func() []byte {
			der := []byte{0x30, 0x26, 0x02, 0x21, 0x01}
			der = append(der, bytes.Repeat([]byte{0x11}, 32)...)
			return append(der, 0x02, 0x01, 0x01)
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSignature(tt.input)
			require.ErrorIs(t, err, ErrInvalidDERSignature)
		})
	}
}

func TestDecodeSignatureHex(t *testing.T) {
	der, err := asn1.Marshal(asn1Signature{R: big.NewInt(7), S: big.NewInt(9)})
	require.NoError(t, err)

	sig, err := DecodeSignatureHex("0x" + big.NewInt(0).SetBytes(der).Text(16))
	require.NoError(t, err)
	assert.Equal(t, byte(7), sig.R[31])
	assert.Equal(t, byte(9), sig.S[31])

	_, err = DecodeSignatureHex("0xzz")
	require.ErrorIs(t, err, ErrInvalidDERSignature)
}

func TestSignatureFromBigInts(t *testing.T) {
	sig, err := SignatureFromBigInts(big.NewInt(1), big.NewInt(2))
	require.NoError(t, err)
	assert.Equal(t, byte(1), sig.R[31])
	assert.Equal(t, byte(2), sig.S[31])

	tooBig := new(big.Int).Lsh(big.NewInt(1), 256)
	_, err = SignatureFromBigInts(tooBig, big.NewInt(1))
	require.ErrorIs(t, err, ErrScalarOverflow)

	_, err = SignatureFromBigInts(big.NewInt(-1), big.NewInt(1))
	require.ErrorIs(t, err, ErrScalarOverflow)
}
