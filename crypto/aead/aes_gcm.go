// Package aead seals small secrets with AES-256-GCM.
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	NonceSize = 12
	TagSize   = 16
	KeySize   = 32
)

// ErrOpen is returned when a sealed box fails authentication. A wrong key,
// wrong associated data and tampering are indistinguishable.
var ErrOpen = errors.New("sealed data failed authentication")

// Cipher seals with a fixed key. Every Seal draws a fresh nonce.
type Cipher struct {
	gcm cipher.AEAD
}

// NewAESGCM returns a cipher for a 256-bit key.
func NewAESGCM(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size: expected %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM mode: %w", err)
	}
	return &Cipher{gcm: gcm}, nil
}

// Seal returns nonce ‖ ciphertext ‖ tag. aad binds the box to its context,
// e.g. the secret's service name.
func (c *Cipher) Seal(plaintext, aad []byte) ([]byte, error) {
	out := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return c.gcm.Seal(out, out[:NonceSize], plaintext, aad), nil
}

// Open authenticates and decrypts a box produced by Seal.
func (c *Cipher) Open(box, aad []byte) ([]byte, error) {
	if len(box) < NonceSize+TagSize {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrOpen, len(box))
	}
	plaintext, err := c.gcm.Open(nil, box[:NonceSize], box[NonceSize:], aad)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}
