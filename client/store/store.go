// Package store defines the persistence collaborators of the wallet: a plain
// key-value store for account records and a secret store for key material.
package store

import (
	"context"

	"cosmossdk.io/errors"
)

// ModuleName is the error codespace of this package.
const ModuleName = "store"

var (
	ErrNotFound = errors.Register(ModuleName, 1, "not found")
	ErrSealed   = errors.Register(ModuleName, 2, "secret cannot be unsealed")
)

// KeyValueStore persists small records. Writes are last-write-wins.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Secret is a credential-store entry.
type Secret struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SecretStore holds key material behind user authentication. Reads may block
// until the user approves or cancels the prompt.
type SecretStore interface {
	GetSecret(ctx context.Context, service string) (*Secret, error)
	SetSecret(ctx context.Context, service string, secret Secret) error
	DeleteSecret(ctx context.Context, service string) error
}
