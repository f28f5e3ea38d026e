package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"ibc-intranet/internal/adapters/session"
	"ibc-intranet/internal/core/domain"
)

const csrfTokenBytes = 32

// CSRFService issues and checks anti-forgery tokens bound to a session
type CSRFService struct {
	store session.Store
}

// NewCSRFService creates a new csrf service
func NewCSRFService(store session.Store) *CSRFService {
	return &CSRFService{store: store}
}

// GetToken returns the session token, creating and persisting one on first use
func (s *CSRFService) GetToken(ctx context.Context, sess *domain.Session) (string, error) {
	if sess.CSRFToken != "" {
		return sess.CSRFToken, nil
	}

	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	sess.CSRFToken = hex.EncodeToString(b)

	if err := s.store.Save(ctx, sess); err != nil {
		return "", err
	}
	return sess.CSRFToken, nil
}

// VerifyToken fails with ErrCSRFMismatch unless candidate equals the stored token
func (s *CSRFService) VerifyToken(sess *domain.Session, candidate string) error {
	if sess == nil || sess.CSRFToken == "" || candidate == "" {
		return domain.ErrCSRFMismatch
	}
	if subtle.ConstantTimeCompare([]byte(sess.CSRFToken), []byte(candidate)) != 1 {
		return domain.ErrCSRFMismatch
	}
	return nil
}
