// Package ephemeral manages the single-use secp256k1 key that bootstraps an
// account before it is upgraded to passkey control.
package ephemeral

import (
	"crypto/ecdsa"
	"encoding/hex"
	"strings"

	"cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sonr-io/passkey/crypto/secure"
)

// ModuleName is the error codespace of this package.
const ModuleName = "ephemeral"

// maxGenerateAttempts bounds redraws of an invalid scalar, which happen with
// probability ~2^-128.
const maxGenerateAttempts = 8

var (
	ErrKeyDestroyed  = errors.Register(ModuleName, 1, "ephemeral key has been destroyed")
	ErrInvalidKey    = errors.Register(ModuleName, 2, "invalid ephemeral key")
	ErrInvalidDigest = errors.Register(ModuleName, 3, "digest must be 32 bytes")
)

// Key is a secp256k1 private key held in zeroable memory.
type Key struct {
	secret  *secure.SecureBytes
	address common.Address
}

// Digests are the two hashes the upgrade service asks the bootstrap key to sign.
type Digests struct {
	Auth common.Hash `json:"auth"`
	Exec common.Hash `json:"exec"`
}

// Signatures are 65-byte r‖s‖v signatures over Digests.
type Signatures struct {
	Auth hexutil.Bytes `json:"auth"`
	Exec hexutil.Bytes `json:"exec"`
}

// Generate draws 32 bytes from crypto/rand until they form a valid scalar.
func Generate() (*Key, error) {
	var lastErr error
	for i := 0; i < maxGenerateAttempts; i++ {
		secret, err := secure.Random(32)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidKey, "random: %v", err)
		}

		key, err := fromSecret(secret)
		if err == nil {
			return key, nil
		}
		secret.Clear()
		lastErr = err
	}
	return nil, lastErr
}

// Restore rebuilds a key retained by the fallback path.
func Restore(hexKey string) (*Key, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidKey, "hex: %v", err)
	}
	defer secure.Zeroize(raw)

	secret := secure.FromBytes(raw)
	key, err := fromSecret(secret)
	if err != nil {
		secret.Clear()
		return nil, err
	}
	return key, nil
}

func fromSecret(secret *secure.SecureBytes) (*Key, error) {
	var address common.Address
	err := secret.Use(func(b []byte) error {
		priv, err := crypto.ToECDSA(b)
		if err != nil {
			return errors.Wrapf(ErrInvalidKey, "%v", err)
		}
		defer zeroPrivateKey(priv)
		address = crypto.PubkeyToAddress(priv.PublicKey)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Key{secret: secret, address: address}, nil
}

// Address is the EOA controlled by the key.
func (k *Key) Address() common.Address {
	return k.address
}

// SignHash signs a 32-byte digest as is, with no message prefix.
func (k *Key) SignHash(digest []byte) ([]byte, error) {
	if len(digest) != common.HashLength {
		return nil, errors.Wrapf(ErrInvalidDigest, "got %d bytes", len(digest))
	}

	var sig []byte
	err := k.secret.Use(func(b []byte) error {
		priv, err := crypto.ToECDSA(b)
		if err != nil {
			return errors.Wrapf(ErrInvalidKey, "%v", err)
		}
		defer zeroPrivateKey(priv)

		sig, err = crypto.Sign(digest, priv)
		return err
	})
	if errors.IsOf(err, secure.ErrCleared) {
		return nil, ErrKeyDestroyed
	}
	return sig, err
}

// SignRawDigests signs both upgrade digests with the bootstrap key.
func SignRawDigests(k *Key, d Digests) (Signatures, error) {
	auth, err := k.SignHash(d.Auth.Bytes())
	if err != nil {
		return Signatures{}, errors.Wrap(err, "auth digest")
	}
	exec, err := k.SignHash(d.Exec.Bytes())
	if err != nil {
		return Signatures{}, errors.Wrap(err, "exec digest")
	}
	return Signatures{Auth: auth, Exec: exec}, nil
}

// Export returns the hex private key for retention in the credential store.
func (k *Key) Export() (string, error) {
	raw := k.secret.Bytes()
	if raw == nil {
		return "", ErrKeyDestroyed
	}
	defer secure.Zeroize(raw)
	return hex.EncodeToString(raw), nil
}

// Destroy zeroes the private key. Every later use returns ErrKeyDestroyed.
func (k *Key) Destroy() {
	k.secret.Clear()
}

// Destroyed reports whether Destroy has run.
func (k *Key) Destroyed() bool {
	return k.secret.Cleared()
}

func zeroPrivateKey(priv *ecdsa.PrivateKey) {
	words := priv.D.Bits()
	for i := range words {
		words[i] = 0
	}
}
