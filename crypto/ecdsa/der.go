// Package ecdsa converts between the ASN.1 DER signatures emitted by platform
// authenticators and the fixed-width r‖s form on-chain verifiers consume.
package ecdsa

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"cosmossdk.io/errors"
)

// ModuleName is the error codespace of this package.
const ModuleName = "ecdsa"

const (
	// ScalarSize is the width of r and s.
	ScalarSize = 32
	// SignatureSize is the width of r‖s.
	SignatureSize = 2 * ScalarSize

	tagSequence = 0x30
	tagInteger  = 0x02
)

var (
	ErrInvalidDERSignature = errors.Register(ModuleName, 1, "invalid DER signature")
	ErrScalarOverflow      = errors.Register(ModuleName, 2, "signature scalar exceeds 32 bytes")
)

// Signature is an ECDSA signature with both scalars left-padded to 32 bytes.
type Signature struct {
	R [ScalarSize]byte
	S [ScalarSize]byte
}

// DecodeSignature accepts either a raw 64-byte r‖s signature, returned as is,
// or a DER SEQUENCE of two INTEGERs.
func DecodeSignature(b []byte) (Signature, error) {
	var sig Signature
	if len(b) == SignatureSize {
		copy(sig.R[:], b[:ScalarSize])
		copy(sig.S[:], b[ScalarSize:])
		return sig, nil
	}
	return parseDER(b)
}

// DecodeSignatureHex is DecodeSignature for hex input with optional 0x prefix.
func DecodeSignatureHex(s string) (Signature, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Signature{}, errors.Wrapf(ErrInvalidDERSignature, "hex: %v", err)
	}
	return DecodeSignature(b)
}

// SignatureFromBigInts left-pads r and s into a Signature.
func SignatureFromBigInts(r, s *big.Int) (Signature, error) {
	var sig Signature
	if r == nil || s == nil || r.Sign() < 0 || s.Sign() < 0 {
		return sig, errors.Wrap(ErrScalarOverflow, "r and s must be non-negative")
	}
	if r.BitLen() > 8*ScalarSize || s.BitLen() > 8*ScalarSize {
		return sig, ErrScalarOverflow
	}
	r.FillBytes(sig.R[:])
	s.FillBytes(sig.S[:])
	return sig, nil
}

// Bytes returns r‖s.
func (sig Signature) Bytes() []byte {
	out := make([]byte, 0, SignatureSize)
	out = append(out, sig.R[:]...)
	return append(out, sig.S[:]...)
}

// BigInts returns r and s as integers.
func (sig Signature) BigInts() (*big.Int, *big.Int) {
	return new(big.Int).SetBytes(sig.R[:]), new(big.Int).SetBytes(sig.S[:])
}

// DER encodes the signature as a minimal ASN.1 SEQUENCE.
func (sig Signature) DER() []byte {
	r := derInteger(sig.R[:])
	s := derInteger(sig.S[:])

	body := make([]byte, 0, len(r)+len(s))
	body = append(body, r...)
	body = append(body, s...)

	out := []byte{tagSequence}
	out = appendLength(out, len(body))
	return append(out, body...)
}

func parseDER(b []byte) (Signature, error) {
	var sig Signature

	if len(b) < 2 || b[0] != tagSequence {
		return sig, errors.Wrapf(ErrInvalidDERSignature, "expected SEQUENCE tag, got %d bytes", len(b))
	}

	seqLen, hdr, err := readLength(b[1:])
	if err != nil {
		return sig, err
	}
	body := b[1+hdr:]
	if seqLen != len(body) {
		return sig, errors.Wrapf(ErrInvalidDERSignature, "sequence length %d does not match %d remaining bytes", seqLen, len(body))
	}

	r, body, err := readInteger(body)
	if err != nil {
		return sig, errors.Wrap(err, "r")
	}
	s, body, err := readInteger(body)
	if err != nil {
		return sig, errors.Wrap(err, "s")
	}
	if len(body) != 0 {
		return sig, errors.Wrapf(ErrInvalidDERSignature, "%d trailing bytes in sequence", len(body))
	}

	copy(sig.R[ScalarSize-len(r):], r)
	copy(sig.S[ScalarSize-len(s):], s)
	return sig, nil
}

// readInteger reads one INTEGER, strips a single sign-padding zero and
// checks the magnitude fits in 32 bytes.
func readInteger(b []byte) ([]byte, []byte, error) {
	if len(b) < 2 || b[0] != tagInteger {
		return nil, nil, errors.Wrap(ErrInvalidDERSignature, "expected INTEGER tag")
	}

	n, hdr, err := readLength(b[1:])
	if err != nil {
		return nil, nil, err
	}
	b = b[1+hdr:]
	if n == 0 || n > len(b) {
		return nil, nil, errors.Wrapf(ErrInvalidDERSignature, "integer length %d out of range", n)
	}

	v, rest := b[:n], b[n:]
	if len(v) > 1 && v[0] == 0x00 {
		v = v[1:]
	}
	if len(v) > ScalarSize {
		return nil, nil, errors.Wrapf(ErrInvalidDERSignature, "integer is %d bytes", len(v))
	}
	return v, rest, nil
}

// readLength supports the short form and the one-byte long form, which
// covers every P-256 signature.
func readLength(b []byte) (int, int, error) {
	if len(b) < 1 {
		return 0, 0, errors.Wrap(ErrInvalidDERSignature, "missing length")
	}
	switch {
	case b[0] < 0x80:
		return int(b[0]), 1, nil
	case b[0] == 0x81 && len(b) >= 2:
		return int(b[1]), 2, nil
	default:
		return 0, 0, errors.Wrapf(ErrInvalidDERSignature, "unsupported length encoding 0x%02x", b[0])
	}
}

func appendLength(out []byte, n int) []byte {
	if n < 0x80 {
		return append(out, byte(n))
	}
	return append(out, 0x81, byte(n))
}

func derInteger(v []byte) []byte {
	i := 0
	for i < len(v)-1 && v[i] == 0 {
		i++
	}
	v = v[i:]

	out := []byte{tagInteger}
	if v[0]&0x80 != 0 {
		out = appendLength(out, len(v)+1)
		out = append(out, 0x00)
	} else {
		out = appendLength(out, len(v))
	}
	return append(out, v...)
}

// String returns the hex of r‖s.
func (sig Signature) String() string {
	return fmt.Sprintf("0x%x", sig.Bytes())
}
