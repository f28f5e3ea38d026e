package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ibc-intranet/internal/adapters/persistence/models"
	"ibc-intranet/internal/adapters/persistence/repositories"
	"ibc-intranet/internal/adapters/session"
	"ibc-intranet/internal/config"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/clock"
	"ibc-intranet/internal/pkg/metrics"
	"ibc-intranet/internal/pkg/password"
)

// AuthService handles login, logout and session checks
type AuthService struct {
	userRepo repositories.UserRepository
	store    session.Store
	hasher   *password.Hasher
	clock    clock.Clock
	metrics  *metrics.Metrics
	logger   *zap.Logger

	idleTimeout      time.Duration
	lockoutThreshold int
	lockoutDuration  time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	store session.Store,
	hasher *password.Hasher,
	clk clock.Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		store:            store,
		hasher:           hasher,
		clock:            clk,
		metrics:          m,
		logger:           logger.Named("auth"),
		idleTimeout:      cfg.Session.IdleTimeout,
		lockoutThreshold: cfg.Security.LockoutThreshold,
		lockoutDuration:  cfg.Security.LockoutDuration,
	}
}

// LoginInput represents login input
type LoginInput struct {
	Identifier string `json:"identifier" validate:"required,max=100"`
	Password   string `json:"password" validate:"required,max=128"`
}

// Login authenticates the credentials and binds the user to sess.
// The session ID is always replaced before any authenticated state is written.
func (s *AuthService) Login(ctx context.Context, sess *domain.Session, identifier, secret string) (*models.User, error) {
	user, err := s.authenticate(ctx, strings.TrimSpace(identifier), secret)
	if err != nil {
		s.metrics.Login(loginResult(err))
		return nil, err
	}

	role, err := domain.ParseRole(string(user.Role))
	if err != nil {
		s.logger.Error("user has unknown role", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
		return nil, fmt.Errorf("%w: user %d role", domain.ErrIntegrity, user.ID)
	}

	// drop whatever the visitor brought, then move to a fresh ID
	oldID := sess.ID
	sess.Reset()
	sess.ID = oldID
	if err := s.store.Regenerate(ctx, sess); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	sess.Authenticated = true
	sess.UserID = user.ID
	sess.Role = role
	sess.LastActivity = now
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	if err := s.userRepo.RecordLoginSuccess(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record login", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	s.metrics.Login("success")
	s.logger.Info("user logged in", zap.Uint("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

// authenticate verifies credentials. Every failure path spends one bcrypt comparison.
func (s *AuthService) authenticate(ctx context.Context, identifier, secret string) (*models.User, error) {
	if identifier == "" {
		s.hasher.VerifyDummy(secret)
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByIdentifier(ctx, identifier)
	if err != nil {
		s.hasher.VerifyDummy(secret)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.clock.Now()
	if user.IsLocked(now) {
		s.hasher.VerifyDummy(secret)
		s.logger.Warn("login attempt on locked account", zap.Uint("user_id", user.ID))
		return nil, domain.ErrAccountLocked
	}

	if !s.hasher.Verify(secret, user.Password) {
		if err := s.userRepo.RecordLoginFailure(ctx, user.ID, s.lockoutThreshold, now.Add(s.lockoutDuration)); err != nil {
			s.logger.Warn("failed to record login failure", zap.Uint("user_id", user.ID), zap.Error(err))
		}
		return nil, domain.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, domain.ErrAccountDisabled
	}
	return user, nil
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrAccountLocked):
		return "locked"
	case errors.Is(err, domain.ErrAccountDisabled):
		return "disabled"
	default:
		return "error"
	}
}

// Logout destroys the stored session and clears sess entirely
func (s *AuthService) Logout(ctx context.Context, sess *domain.Session) error {
	if sess.ID != "" {
		if err := s.store.Destroy(ctx, sess.ID); err != nil {
			return err
		}
	}
	if sess.Authenticated {
		s.logger.Info("user logged out", zap.Uint("user_id", sess.UserID))
	}
	sess.Reset()
	return nil
}

// Check reports whether sess is authenticated and within the idle timeout.
// The user is reloaded on every call: a deleted or deactivated account ends the
// session, and a changed role replaces the one cached in it.
// A live session has its activity refreshed; an expired one is destroyed.
func (s *AuthService) Check(ctx context.Context, sess *domain.Session) bool {
	if sess == nil || !sess.Authenticated {
		return false
	}

	now := s.clock.Now()
	if now.Sub(sess.LastActivity) > s.idleTimeout {
		s.logger.Debug("session expired", zap.Uint("user_id", sess.UserID))
		s.end(ctx, sess)
		return false
	}

	user, err := s.userRepo.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Info("session ended, account removed", zap.Uint("user_id", sess.UserID))
			s.end(ctx, sess)
		} else {
			s.logger.Error("failed to load session user", zap.Uint("user_id", sess.UserID), zap.Error(err))
		}
		return false
	}
	if !user.IsActive {
		s.logger.Info("session ended, account disabled", zap.Uint("user_id", user.ID))
		s.end(ctx, sess)
		return false
	}

	role, err := domain.ParseRole(string(user.Role))
	if err != nil {
		s.logger.Error("user has unknown role", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
		s.end(ctx, sess)
		return false
	}
	if role != sess.Role {
		s.logger.Info("session role changed",
			zap.Uint("user_id", user.ID),
			zap.String("from", string(sess.Role)),
			zap.String("to", string(role)),
		)
		sess.Role = role
	}

	sess.LastActivity = now
	if err := s.store.Save(ctx, sess); err != nil {
		s.logger.Warn("failed to refresh session", zap.Uint("user_id", sess.UserID), zap.Error(err))
	}
	return true
}

// end destroys the stored session and clears sess
func (s *AuthService) end(ctx context.Context, sess *domain.Session) {
	if err := s.store.Destroy(ctx, sess.ID); err != nil {
		s.logger.Warn("failed to destroy session", zap.Error(err))
	}
	sess.Reset()
}

// HasRole requires a live session holding exactly role
func (s *AuthService) HasRole(ctx context.Context, sess *domain.Session, role domain.Role) bool {
	return s.Check(ctx, sess) && domain.ExactMatch(sess.Role, role)
}

// HasPermission requires a live session whose role ranks at least the permission's minimum role
func (s *AuthService) HasPermission(ctx context.Context, sess *domain.Session, perm domain.Permission) bool {
	return s.Check(ctx, sess) && domain.Grants(sess.Role, perm)
}

// CurrentUser loads the user behind a live session
func (s *AuthService) CurrentUser(ctx context.Context, sess *domain.Session) (*models.User, error) {
	if !s.Check(ctx, sess) {
		return nil, domain.ErrSessionExpired
	}

	user, err := s.userRepo.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// account removed while logged in
			_ = s.Logout(ctx, sess)
			return nil, domain.ErrSessionExpired
		}
		return nil, err
	}
	return user, nil
}
