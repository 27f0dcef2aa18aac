package ecdsa

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"hash"
	"math/big"
)

// SignDeterministic signs a digest with an RFC 6979 nonce and returns a
// low-s signature. The software authenticator uses it so fixtures are
// reproducible.
func SignDeterministic(priv *ecdsa.PrivateKey, digest []byte) (Signature, error) {
	if priv == nil || priv.D == nil {
		return Signature{}, fmt.Errorf("invalid private key")
	}
	if len(digest) == 0 {
		return Signature{}, fmt.Errorf("digest cannot be empty")
	}

	k := nonceRFC6979(priv, digest, sha256.New)
	r, s, err := signWithNonce(priv, digest, k)
	if err != nil {
		return Signature{}, err
	}
	return SignatureFromBigInts(r, s)
}

func nonceRFC6979(priv *ecdsa.PrivateKey, digest []byte, hashFunc func() hash.Hash) *big.Int {
	N := priv.Curve.Params().N
	bitSize := N.BitLen()

	x := make([]byte, (bitSize+7)/8)
	priv.D.FillBytes(x)
	h1 := make([]byte, len(x))
	new(big.Int).Mod(bitsToInt(digest, priv.Curve), N).FillBytes(h1)

	hlen := hashFunc().Size()
	v := filled(hlen, 0x01)
	k := filled(hlen, 0x00)

	k = mac(hashFunc, k, v, []byte{0x00}, x, h1)
	v = mac(hashFunc, k, v)
	k = mac(hashFunc, k, v, []byte{0x01}, x, h1)
	v = mac(hashFunc, k, v)

	for {
		var t []byte
		for len(t)*8 < bitSize {
			v = mac(hashFunc, k, v)
			t = append(t, v...)
		}

		candidate := bitsToInt(t, priv.Curve)
		if candidate.Sign() > 0 && candidate.Cmp(N) < 0 {
			return candidate
		}

		k = mac(hashFunc, k, v, []byte{0x00})
		v = mac(hashFunc, k, v)
	}
}

func signWithNonce(priv *ecdsa.PrivateKey, digest []byte, k *big.Int) (*big.Int, *big.Int, error) {
	N := priv.Curve.Params().N

	x, _ := priv.Curve.ScalarBaseMult(k.Bytes())
	r := new(big.Int).Mod(x, N)
	if r.Sign() == 0 {
		return nil, nil, fmt.Errorf("invalid r value")
	}

	kInv := new(big.Int).ModInverse(k, N)
	if kInv == nil {
		return nil, nil, fmt.Errorf("nonce has no inverse")
	}

	s := new(big.Int).Mul(r, priv.D)
	s.Add(s, bitsToInt(digest, priv.Curve))
	s.Mul(s, kInv)
	s.Mod(s, N)
	if s.Sign() == 0 {
		return nil, nil, fmt.Errorf("invalid s value")
	}

	if s.Cmp(new(big.Int).Rsh(N, 1)) > 0 {
		s.Sub(N, s)
	}
	return r, s, nil
}

func bitsToInt(b []byte, curve elliptic.Curve) *big.Int {
	orderBits := curve.Params().N.BitLen()
	orderBytes := (orderBits + 7) / 8
	if len(b) > orderBytes {
		b = b[:orderBytes]
	}

	ret := new(big.Int).SetBytes(b)
	if excess := len(b)*8 - orderBits; excess > 0 {
		ret.Rsh(ret, uint(excess))
	}
	return ret
}

func mac(hashFunc func() hash.Hash, key []byte, data ...[]byte) []byte {
	m := hmac.New(hashFunc, key)
	for _, d := range data {
		m.Write(d)
	}
	return m.Sum(nil)
}

func filled(size int, value byte) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = value
	}
	return b
}
