// Package webauthncose reads COSE (RFC 9053) EC2 public keys out of decoded
// CBOR maps.
package webauthncose

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/sonr-io/passkey/types/webauthn/webauthncbor"
)

// COSE key parameter labels.
const (
	LabelKeyType   int64 = 1
	LabelAlgorithm int64 = 3
	LabelCurve     int64 = -1
	LabelX         int64 = -2
	LabelY         int64 = -3
)

// COSEKeyType is the kty parameter.
type COSEKeyType int64

const (
	OctetKey     COSEKeyType = 1
	EllipticKey  COSEKeyType = 2
	RSAKey       COSEKeyType = 3
	SymmetricKey COSEKeyType = 4
)

// COSEAlgorithmIdentifier is the alg parameter.
type COSEAlgorithmIdentifier int64

const (
	AlgES256 COSEAlgorithmIdentifier = -7
	AlgEdDSA COSEAlgorithmIdentifier = -8
	AlgRS256 COSEAlgorithmIdentifier = -257
)

// COSEEllipticCurve is the crv parameter of an EC2 key.
type COSEEllipticCurve int64

const (
	P256 COSEEllipticCurve = 1
	P384 COSEEllipticCurve = 2
	P521 COSEEllipticCurve = 3
)

// CoordinateSize is the width of a P-256 coordinate.
const CoordinateSize = 32

var (
	ErrMissingCoordinate = errors.New("cose: EC2 key is missing a coordinate")
	ErrCoordinateTooLong = errors.New("cose: EC2 coordinate exceeds 32 bytes")
	ErrNotAMap           = errors.New("cose: key is not a CBOR map")
	ErrNotOnCurve        = errors.New("cose: point is not on the P-256 curve")
)

// EC2PublicKey is an elliptic curve public key with fixed-width coordinates.
type EC2PublicKey struct {
	KeyType   COSEKeyType
	Algorithm COSEAlgorithmIdentifier
	Curve     COSEEllipticCurve
	X         [CoordinateSize]byte
	Y         [CoordinateSize]byte
}

// ParseEC2PublicKey extracts an EC2 key from a decoded COSE map. Coordinates
// are left-padded to 32 bytes; longer coordinates are rejected, never
// truncated. kty, alg and crv are read when present but not enforced.
func ParseEC2PublicKey(v webauthncbor.Value) (*EC2PublicKey, error) {
	if v.Kind != webauthncbor.KindMap {
		return nil, fmt.Errorf("%w: got %s", ErrNotAMap, v.Kind)
	}

	key := &EC2PublicKey{}
	if kty, ok := intParam(v, LabelKeyType); ok {
		key.KeyType = COSEKeyType(kty)
	}
	if alg, ok := intParam(v, LabelAlgorithm); ok {
		key.Algorithm = COSEAlgorithmIdentifier(alg)
	}
	if crv, ok := intParam(v, LabelCurve); ok {
		key.Curve = COSEEllipticCurve(crv)
	}

	x, err := coordinate(v, LabelX)
	if err != nil {
		return nil, err
	}
	y, err := coordinate(v, LabelY)
	if err != nil {
		return nil, err
	}
	key.X, key.Y = x, y

	return key, nil
}

// Bytes returns x‖y.
func (k *EC2PublicKey) Bytes() []byte {
	out := make([]byte, 0, 2*CoordinateSize)
	out = append(out, k.X[:]...)
	return append(out, k.Y[:]...)
}

// Hex returns "0x" followed by the hex of x‖y.
func (k *EC2PublicKey) Hex() string {
	return "0x" + hex.EncodeToString(k.Bytes())
}

// ParseEC2Hex rebuilds an ES256 P-256 key from the output of Hex.
func ParseEC2Hex(s string) (*EC2PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("cose: invalid hex key: %w", err)
	}
	if len(raw) != 2*CoordinateSize {
		return nil, fmt.Errorf("cose: hex key has %d bytes, want %d", len(raw), 2*CoordinateSize)
	}

	key := &EC2PublicKey{KeyType: EllipticKey, Algorithm: AlgES256, Curve: P256}
	copy(key.X[:], raw[:CoordinateSize])
	copy(key.Y[:], raw[CoordinateSize:])
	return key, nil
}

// ECDSA returns the key as a P-256 public key after checking the point is on
// the curve.
func (k *EC2PublicKey) ECDSA() (*ecdsa.PublicKey, error) {
	uncompressed := append([]byte{0x04}, k.Bytes()...)
	if _, err := ecdh.P256().NewPublicKey(uncompressed); err != nil {
		return nil, ErrNotOnCurve
	}
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(k.X[:]),
		Y:     new(big.Int).SetBytes(k.Y[:]),
	}, nil
}

// FromECDSA builds an ES256 EC2 key from a P-256 public key.
func FromECDSA(pub *ecdsa.PublicKey) *EC2PublicKey {
	key := &EC2PublicKey{KeyType: EllipticKey, Algorithm: AlgES256, Curve: P256}
	pub.X.FillBytes(key.X[:])
	pub.Y.FillBytes(key.Y[:])
	return key
}

func intParam(v webauthncbor.Value, label int64) (int64, bool) {
	p, ok := v.Get(label)
	if !ok {
		return 0, false
	}
	return p.Int()
}

func coordinate(v webauthncbor.Value, label int64) ([CoordinateSize]byte, error) {
	var out [CoordinateSize]byte

	p, ok := v.Get(label)
	if !ok || p.Kind != webauthncbor.KindBytes {
		return out, fmt.Errorf("%w: label %d", ErrMissingCoordinate, label)
	}
	if len(p.Bytes) > CoordinateSize {
		return out, fmt.Errorf("%w: label %d has %d bytes", ErrCoordinateTooLong, label, len(p.Bytes))
	}

	copy(out[CoordinateSize-len(p.Bytes):], p.Bytes)
	return out, nil
}
