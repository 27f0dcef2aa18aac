package argon2

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKDF_DeriveKey(t *testing.T) {
	kdf := New(LightConfig())
	passphrase := []byte("correct horse battery staple")
	salt := []byte("salt-16-bytes!!!")

	key := kdf.DeriveKey(passphrase, salt)
	assert.Len(t, key, 32)
	assert.Equal(t, key, kdf.DeriveKey(passphrase, salt))
	assert.NotEqual(t, key, kdf.DeriveKey([]byte("other"), salt))
	assert.NotEqual(t, key, kdf.DeriveKey(passphrase, []byte("other-salt-16-by")))
}

func TestKDF_GenerateSalt(t *testing.T) {
	kdf := New(nil)

	a, err := kdf.GenerateSalt()
	require.NoError(t, err)
	assert.Len(t, a, 16)

	b, err := kdf.GenerateSalt()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHeader_RoundTrip(t *testing.T) {
	kdf := New(LightConfig())
	salt, err := kdf.GenerateSalt()
	require.NoError(t, err)

	header := kdf.EncodeHeader(salt)
	assert.True(t, strings.HasPrefix(header, Prefix+"v=19$m=8192,t=1,p=1$"))

	decoded, gotSalt, err := DecodeHeader(header, 32)
	require.NoError(t, err)
	assert.Equal(t, salt, gotSalt)
	assert.Equal(t, kdf.Config(), decoded.Config())

	passphrase := []byte("pw")
	assert.Equal(t, kdf.DeriveKey(passphrase, salt), decoded.DeriveKey(passphrase, gotSalt))
}

func TestDecodeHeader_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"empty", ""},
		{"wrong algorithm", "$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA"},
		{"wrong version", "$argon2id$v=16$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA"},
		{"bad parameters", "$argon2id$v=19$m=x$c2FsdHNhbHRzYWx0c2FsdA"},
		{"bad salt", "$argon2id$v=19$m=8192,t=1,p=1$!!!"},
		{"short salt", "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA"},
		{"weak memory", "$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA"},
		{"missing salt", "$argon2id$v=19$m=8192,t=1,p=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeHeader(tt.header, 32)
			require.ErrorIs(t, err, ErrInvalidHeader)
		})
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"zero time", func(c *Config) { c.Time = 0 }, true},
		{"low memory", func(c *Config) { c.Memory = 4 * 1024 }, true},
		{"zero parallelism", func(c *Config) { c.Parallelism = 0 }, true},
		{"short salt", func(c *Config) { c.SaltLength = 8 }, true},
		{"short key", func(c *Config) { c.KeyLength = 8 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := ValidateConfig(config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
	require.Error(t, ValidateConfig(nil))
}
