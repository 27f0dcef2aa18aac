package account

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/sonr-io/passkey/crypto/ephemeral"
)

// EphemeralSigner signs bundle digests with the bootstrap key of an account
// that was never upgraded.
type EphemeralSigner struct {
	key *ephemeral.Key
}

// SignDigest returns a 65-byte r‖s‖v signature over digest.
func (s *EphemeralSigner) SignDigest(_ context.Context, digest common.Hash) (hexutil.Bytes, error) {
	return s.key.SignHash(digest.Bytes())
}

// Address is the EOA the signer controls.
func (s *EphemeralSigner) Address() common.Address {
	return s.key.Address()
}

// Close zeroes the key.
func (s *EphemeralSigner) Close() {
	s.key.Destroy()
}
