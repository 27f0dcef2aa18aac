package store

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"

	"cosmossdk.io/errors"

	"github.com/sonr-io/passkey/crypto/aead"
	"github.com/sonr-io/passkey/crypto/argon2"
)

// SealedSecrets encrypts Secret.Password before it reaches the underlying
// store. The stored value is an Argon2id header followed by the AES-GCM box:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<base64 box>
//
// The box is bound to the service name, so a value copied to another entry
// does not open. Usernames are stored as given.
type SealedSecrets struct {
	inner      SecretStore
	passphrase []byte
	kdf        *argon2.KDF

	mu      sync.Mutex
	header  string
	ciphers map[string]*aead.Cipher
}

var _ SecretStore = (*SealedSecrets)(nil)

// NewSealedSecrets wraps inner. A nil config selects argon2.DefaultConfig.
func NewSealedSecrets(inner SecretStore, passphrase string, config *argon2.Config) (*SealedSecrets, error) {
	if passphrase == "" {
		return nil, errors.Wrap(ErrSealed, "passphrase is required")
	}
	if config == nil {
		config = argon2.DefaultConfig()
	}
	if err := argon2.ValidateConfig(config); err != nil {
		return nil, err
	}
	if config.KeyLength != aead.KeySize {
		return nil, errors.Wrapf(ErrSealed, "key length must be %d bytes", aead.KeySize)
	}
	return &SealedSecrets{
		inner:      inner,
		passphrase: []byte(passphrase),
		kdf:        argon2.New(config),
		ciphers:    make(map[string]*aead.Cipher),
	}, nil
}

func (s *SealedSecrets) GetSecret(ctx context.Context, service string) (*Secret, error) {
	secret, err := s.inner.GetSecret(ctx, service)
	if err != nil {
		return nil, err
	}

	i := strings.LastIndexByte(secret.Password, '$')
	if !strings.HasPrefix(secret.Password, argon2.Prefix) || i < 0 {
		return nil, errors.Wrapf(ErrSealed, "%s is not sealed", service)
	}
	header, encoded := secret.Password[:i], secret.Password[i+1:]

	box, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrapf(ErrSealed, "%s: %v", service, err)
	}
	c, err := s.cipher(header)
	if err != nil {
		return nil, errors.Wrapf(ErrSealed, "%s: %v", service, err)
	}
	plaintext, err := c.Open(box, []byte(service))
	if err != nil {
		return nil, errors.Wrapf(ErrSealed, "%s: %v", service, err)
	}

	return &Secret{Username: secret.Username, Password: string(plaintext)}, nil
}

func (s *SealedSecrets) SetSecret(ctx context.Context, service string, secret Secret) error {
	header, err := s.currentHeader()
	if err != nil {
		return err
	}
	c, err := s.cipher(header)
	if err != nil {
		return err
	}
	box, err := c.Seal([]byte(secret.Password), []byte(service))
	if err != nil {
		return err
	}

	secret.Password = header + "$" + base64.RawStdEncoding.EncodeToString(box)
	return s.inner.SetSecret(ctx, service, secret)
}

func (s *SealedSecrets) DeleteSecret(ctx context.Context, service string) error {
	return s.inner.DeleteSecret(ctx, service)
}

// currentHeader returns the header new secrets are sealed under. One salt is
// drawn per SealedSecrets so the key is derived once per process.
func (s *SealedSecrets) currentHeader() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.header != "" {
		return s.header, nil
	}
	salt, err := s.kdf.GenerateSalt()
	if err != nil {
		return "", err
	}
	s.header = s.kdf.EncodeHeader(salt)
	return s.header, nil
}

// cipher derives, or reuses, the key for header.
func (s *SealedSecrets) cipher(header string) (*aead.Cipher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.ciphers[header]; ok {
		return c, nil
	}
	kdf, salt, err := argon2.DecodeHeader(header, aead.KeySize)
	if err != nil {
		return nil, err
	}
	key := kdf.DeriveKey(s.passphrase, salt)
	c, err := aead.NewAESGCM(key)
	clear(key)
	if err != nil {
		return nil, err
	}
	s.ciphers[header] = c
	return c, nil
}
