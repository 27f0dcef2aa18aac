package ecdsa

import (
	"crypto/elliptic"
	"math/big"
)

// IsLowS reports whether s is in the lower half of the curve order. Some
// on-chain P-256 verifiers reject the malleable high-s form.
func IsLowS(sig Signature, curve elliptic.Curve) bool {
	_, s := sig.BigInts()
	halfN := new(big.Int).Rsh(curve.Params().N, 1)
	return s.Sign() > 0 && s.Cmp(halfN) <= 0
}

// NormalizeLowS replaces s with N - s when s > N/2. r is untouched and the
// result verifies against the same key and message.
func NormalizeLowS(sig Signature, curve elliptic.Curve) Signature {
	N := curve.Params().N
	r, s := sig.BigInts()
	if s.Sign() == 0 || s.Cmp(N) >= 0 || IsLowS(sig, curve) {
		return sig
	}

	s.Sub(N, s)
	out, err := SignatureFromBigInts(r, s)
	if err != nil {
		return sig
	}
	return out
}
