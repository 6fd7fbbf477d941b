// Package secure keeps freshly minted key material in locked memory for
// the window between IAM returning it and the payload landing in Secrets
// Manager.
package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Buffer holds a sensitive string in an encrypted memguard enclave. The
// plaintext only exists while a caller holds the LockedBuffer returned by
// Open.
type Buffer struct {
	enclave *memguard.Enclave
	mu      sync.RWMutex
	// destroyed makes Destroy idempotent and prevents use-after-destroy
	destroyed bool
}

// NewBuffer copies value into a protected memory region. The caller should
// drop its own reference to value afterwards.
func NewBuffer(value string) *Buffer {
	return &Buffer{enclave: memguard.NewEnclave([]byte(value))}
}

// Open decrypts the protected value. The caller must call Destroy on the
// returned LockedBuffer when done to wipe the plaintext.
func (b *Buffer) Open() (*memguard.LockedBuffer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}
	return b.enclave.Open()
}

// String decrypts the value, copies it out, and wipes the working buffer.
// The returned string escapes locked memory, so use Open directly where
// the value is only needed transiently.
func (b *Buffer) String() (string, error) {
	locked, err := b.Open()
	if err != nil {
		return "", err
	}
	defer locked.Destroy()
	return string(locked.Bytes()), nil
}

// Destroy marks the buffer unusable. The enclave contents stay encrypted
// at rest, so this is about preventing reuse, not wiping ciphertext.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroyed = true
	b.enclave = nil
}
