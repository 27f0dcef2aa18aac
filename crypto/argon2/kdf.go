// Package argon2 derives sealing keys from a passphrase with Argon2id and
// records the parameters next to the sealed data, so old boxes stay openable
// after the defaults change.
package argon2

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Prefix starts every encoded parameter header.
const Prefix = "$argon2id$"

var ErrInvalidHeader = errors.New("invalid argon2id header")

// Config defines Argon2id parameters.
type Config struct {
	Time        uint32 // iterations
	Memory      uint32 // KiB
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig returns the parameters used for new secrets.
func DefaultConfig() *Config {
	return &Config{
		Time:        1,
		Memory:      64 * 1024,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// LightConfig is the smallest configuration ValidateConfig accepts. Tests
// use it.
func LightConfig() *Config {
	return &Config{
		Time:        1,
		Memory:      8 * 1024,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// ValidateConfig rejects parameters too weak to protect a wallet key.
func ValidateConfig(config *Config) error {
	switch {
	case config == nil:
		return fmt.Errorf("config is required")
	case config.Time < 1:
		return fmt.Errorf("time must be at least 1")
	case config.Memory < 8*1024:
		return fmt.Errorf("memory must be at least 8MB")
	case config.Parallelism < 1:
		return fmt.Errorf("parallelism must be at least 1")
	case config.SaltLength < 16:
		return fmt.Errorf("salt length must be at least 16 bytes")
	case config.KeyLength < 16:
		return fmt.Errorf("key length must be at least 16 bytes")
	}
	return nil
}

// KDF implements Argon2id key derivation.
type KDF struct {
	config *Config
}

// New returns a KDF, using DefaultConfig when config is nil.
func New(config *Config) *KDF {
	if config == nil {
		config = DefaultConfig()
	}
	return &KDF{config: config}
}

// Config returns the KDF parameters.
func (k *KDF) Config() Config {
	return *k.config
}

// DeriveKey derives a key from passphrase and salt.
func (k *KDF) DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, k.config.Time, k.config.Memory, k.config.Parallelism, k.config.KeyLength)
}

// GenerateSalt returns SaltLength random bytes.
func (k *KDF) GenerateSalt() ([]byte, error) {
	salt := make([]byte, k.config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// EncodeHeader renders the parameters and salt in PHC form:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>
func (k *KDF) EncodeHeader(salt []byte) string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s",
		Prefix,
		argon2.Version,
		k.config.Memory,
		k.config.Time,
		k.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
	)
}

// DecodeHeader parses a header written by EncodeHeader and returns a KDF
// with the recorded parameters. keyLength is not recorded; the caller
// supplies it.
func DecodeHeader(header string, keyLength uint32) (*KDF, []byte, error) {
	parts := strings.Split(header, "$")
	if len(parts) != 5 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, nil, ErrInvalidHeader
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, fmt.Errorf("%w: version: %v", ErrInvalidHeader, err)
	}
	if version != argon2.Version {
		return nil, nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidHeader, version)
	}

	config := &Config{KeyLength: keyLength}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &config.Memory, &config.Time, &config.Parallelism); err != nil {
		return nil, nil, fmt.Errorf("%w: parameters: %v", ErrInvalidHeader, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: salt: %v", ErrInvalidHeader, err)
	}
	config.SaltLength = uint32(len(salt))

	if err := ValidateConfig(config); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	return &KDF{config: config}, salt, nil
}
