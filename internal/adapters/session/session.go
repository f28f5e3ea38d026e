package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"ibc-intranet/internal/core/domain"
)

// Store persists sessions outside the process.
// Implementations must make Regenerate atomic: readers see either the old or the new ID, never both.
type Store interface {
	// Get loads a session; a missing or expired ID yields domain.ErrSessionNotFound
	Get(ctx context.Context, id string) (*domain.Session, error)
	// Save writes the session, assigning a fresh ID when it has none
	Save(ctx context.Context, s *domain.Session) error
	// Regenerate moves the session to a fresh ID and deletes the old one
	Regenerate(ctx context.Context, s *domain.Session) error
	// Destroy deletes the session; unknown IDs are not an error
	Destroy(ctx context.Context, id string) error
	Close() error
}

// idBytes gives 256 bits of entropy per session ID
const idBytes = 32

// NewID returns an opaque, hex encoded random session ID
func NewID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
