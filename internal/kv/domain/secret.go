// Package domain defines the versioned secret entity of the key/value store.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Secret is one version of a value stored at a path. Writes never mutate
// existing versions; each write appends version n+1.
//
// Deletion has two distinct shapes. A soft delete marks the version deleted
// while retaining metadata and ciphertext, and can be undone. A destroy
// removes the ciphertext irreversibly; a destroyed version reads as if it
// never existed.
type Secret struct {
	ID         uuid.UUID
	Path       string
	Version    uint
	Ciphertext []byte

	// Plaintext holds the decrypted value after a read. Never persisted.
	Plaintext []byte

	DeletedAt   *time.Time
	DestroyedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Readable reports whether this version can serve a read.
func (s *Secret) Readable() bool {
	return s.DeletedAt == nil && s.DestroyedAt == nil
}
