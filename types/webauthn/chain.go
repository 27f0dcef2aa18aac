package webauthn

import (
	"math/big"

	"cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/sonr-io/passkey/crypto/ecdsa"
)

var chainSignatureArgs = func() abi.Arguments {
	bytesType, err := abi.NewType("bytes", "", nil)
	if err != nil {
		panic(err)
	}
	pairType, err := abi.NewType("uint256[2]", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{
		{Name: "authenticatorData", Type: bytesType},
		{Name: "clientDataJSON", Type: bytesType},
		{Name: "rs", Type: pairType},
	}
}()

// ChainSignature is the decoded form of the on-chain verifier payload.
type ChainSignature struct {
	AuthenticatorData []byte
	ClientDataJSON    []byte
	Signature         ecdsa.Signature
}

// EncodeForChain ABI-encodes (bytes authenticatorData, bytes clientDataJSON,
// uint256[2] rs) for the on-chain P-256 verifier.
func EncodeForChain(authenticatorData, clientDataJSON []byte, sig ecdsa.Signature) ([]byte, error) {
	r, s := sig.BigInts()
	out, err := chainSignatureArgs.Pack(authenticatorData, clientDataJSON, [2]*big.Int{r, s})
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidChainSignature, "pack: %v", err)
	}
	return out, nil
}

// DecodeForChain reverses EncodeForChain.
func DecodeForChain(data []byte) (*ChainSignature, error) {
	values, err := chainSignatureArgs.Unpack(data)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidChainSignature, "unpack: %v", err)
	}
	if len(values) != 3 {
		return nil, errors.Wrapf(ErrInvalidChainSignature, "expected 3 values, got %d", len(values))
	}

	authData, ok1 := values[0].([]byte)
	clientData, ok2 := values[1].([]byte)
	rs, ok3 := values[2].([2]*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return nil, errors.Wrap(ErrInvalidChainSignature, "unexpected value types")
	}

	sig, err := ecdsa.SignatureFromBigInts(rs[0], rs[1])
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidChainSignature, "%v", err)
	}

	return &ChainSignature{
		AuthenticatorData: authData,
		ClientDataJSON:    clientData,
		Signature:         sig,
	}, nil
}
