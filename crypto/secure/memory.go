// Package secure holds short-lived secrets such as the bootstrap private key
// and zeroes them when they are no longer needed.
package secure

import (
	"crypto/rand"
	"errors"
	"runtime"
	"sync"
)

// ErrCleared is returned when a cleared buffer is used.
var ErrCleared = errors.New("secure bytes have been cleared")

// SecureBytes owns a copy of secret material. Clear zeroes it; a finalizer
// does the same if Clear was never called.
type SecureBytes struct {
	data    []byte
	mu      sync.RWMutex
	cleared bool
}

// FromBytes copies data into a new SecureBytes. The caller should zero its own
// copy.
func FromBytes(data []byte) *SecureBytes {
	sb := &SecureBytes{data: make([]byte, len(data))}
	copy(sb.data, data)
	runtime.SetFinalizer(sb, (*SecureBytes).Clear)
	return sb
}

// Random returns a SecureBytes filled from crypto/rand.
func Random(size int) (*SecureBytes, error) {
	sb := &SecureBytes{data: make([]byte, size)}
	if _, err := rand.Read(sb.data); err != nil {
		return nil, err
	}
	runtime.SetFinalizer(sb, (*SecureBytes).Clear)
	return sb, nil
}

// Use lends the secret to fn without copying it. fn must not retain the slice.
func (sb *SecureBytes) Use(fn func(secret []byte) error) error {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if sb.cleared {
		return ErrCleared
	}
	return fn(sb.data)
}

// Bytes returns a copy of the secret, or nil once cleared.
func (sb *SecureBytes) Bytes() []byte {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if sb.cleared {
		return nil
	}
	out := make([]byte, len(sb.data))
	copy(out, sb.data)
	return out
}

// Size returns the secret length, zero once cleared.
func (sb *SecureBytes) Size() int {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	return len(sb.data)
}

// Cleared reports whether Clear has run.
func (sb *SecureBytes) Cleared() bool {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	return sb.cleared
}

// Clear zeroes the secret. It is safe to call more than once.
func (sb *SecureBytes) Clear() {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.cleared {
		return
	}
	Zeroize(sb.data)
	sb.data = nil
	sb.cleared = true
	runtime.SetFinalizer(sb, nil)
}

// Zeroize overwrites data with zeros.
func Zeroize(data []byte) {
	for i := range data {
		data[i] = 0
	}
	// keep the writes from being optimized away
	runtime.KeepAlive(data)
}
