package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ibc-intranet/internal/adapters/persistence/models"
	"ibc-intranet/internal/adapters/persistence/repositories"
	"ibc-intranet/internal/config"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/clock"
	"ibc-intranet/internal/pkg/jwt"
	"ibc-intranet/internal/pkg/pagination"
	"ibc-intranet/internal/pkg/password"
)

// InvitationService issues invitation links and registers invited users
type InvitationService struct {
	txr      repositories.Transactor
	repo     repositories.InvitationRepository
	userRepo repositories.UserRepository
	hasher   *password.Hasher
	notify   *NotificationService
	clock    clock.Clock
	logger   *zap.Logger

	secret  string
	ttl     time.Duration
	baseURL string
}

// NewInvitationService creates a new invitation service
func NewInvitationService(
	txr repositories.Transactor,
	repo repositories.InvitationRepository,
	userRepo repositories.UserRepository,
	hasher *password.Hasher,
	notify *NotificationService,
	clk clock.Clock,
	logger *zap.Logger,
	cfg config.InvitationConfig,
) *InvitationService {
	return &InvitationService{
		txr:      txr,
		repo:     repo,
		userRepo: userRepo,
		hasher:   hasher,
		notify:   notify,
		clock:    clk,
		logger:   logger.Named("invitation"),
		secret:   cfg.Secret,
		ttl:      cfg.TTL,
		baseURL:  cfg.BaseURL,
	}
}

// IssueInput represents invitation input
type IssueInput struct {
	Email string `json:"email" validate:"required,email,max=100"`
	Role  string `json:"role" validate:"required,role"`
}

// IssuedInvitation is a stored invitation plus the link that redeems it.
// The link is only available at issue time.
type IssuedInvitation struct {
	Invitation *models.Invitation `json:"invitation"`
	Link       string             `json:"link"`
}

// Issue creates an invitation for email with role. The inviter may not grant
// a role ranked above their own.
func (s *InvitationService) Issue(ctx context.Context, actor domain.Actor, email, role string) (*IssuedInvitation, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domain.Validationf("email is required")
	}
	granted, err := domain.ParseRole(role)
	if err != nil {
		return nil, domain.Validationf("unknown role %q", role)
	}
	if !domain.AtLeast(actor.Role, granted) {
		return nil, domain.ErrForbidden
	}

	now := s.clock.Now()
	jti := uuid.NewString()
	inv := &models.Invitation{
		Email:     email,
		Role:      granted,
		TokenHash: password.HashToken(jti),
		Status:    domain.InvitationOpen,
		InvitedBy: actor.UserID,
		ExpiresAt: now.Add(s.ttl),
	}

	token, err := jwt.GenerateInviteToken(jti, email, string(granted), s.secret, now, inv.ExpiresAt)
	if err != nil {
		return nil, err
	}

	err = s.txr.Transaction(ctx, func(ctx context.Context) error {
		exists, err := s.userRepo.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrUserAlreadyExists
		}

		if _, err := s.repo.ExpireStale(ctx, email, now); err != nil {
			return err
		}
		open, err := s.repo.HasOpen(ctx, email, now)
		if err != nil {
			return err
		}
		if open {
			return domain.ErrDuplicateInvitation
		}
		return s.repo.Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	link := s.link(token)
	s.logger.Info("invitation issued",
		zap.Uint("invitation_id", inv.ID),
		zap.Uint("actor_id", actor.UserID),
		zap.String("role", string(granted)),
	)

	s.notify.Dispatch(ctx, domain.NotifyInvitation, email, map[string]any{
		"role":       string(granted),
		"link":       link,
		"expires_at": inv.ExpiresAt,
	})

	return &IssuedInvitation{Invitation: inv, Link: link}, nil
}

func (s *InvitationService) link(token string) string {
	return s.baseURL + "?token=" + url.QueryEscape(token)
}

// RegisterInput represents registration input
type RegisterInput struct {
	Token    string `json:"token" validate:"required"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// Register creates the invited user and consumes the invitation in one transaction
func (s *InvitationService) Register(ctx context.Context, token, username, secret string) (*models.User, error) {
	now := s.clock.Now()

	claims, err := jwt.ValidateInviteToken(token, s.secret, now)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.expire(ctx, claims.ID)
			return nil, domain.ErrInvitationExpired
		}
		return nil, domain.ErrInvitationNotFound
	}

	inv, err := s.repo.GetByTokenHash(ctx, password.HashToken(claims.ID))
	if err != nil {
		return nil, notFound(err, domain.ErrInvitationNotFound)
	}
	switch {
	case inv.Status == domain.InvitationUsed:
		return nil, domain.ErrInvitationUsed
	case inv.Status == domain.InvitationExpired:
		return nil, domain.ErrInvitationExpired
	case inv.IsExpired(now):
		s.expire(ctx, claims.ID)
		return nil, domain.ErrInvitationExpired
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.Validationf("username is required")
	}
	if !password.ValidatePassword(secret) {
		return nil, domain.ErrWeakPassword
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: username,
		Email:    inv.Email,
		Password: hash,
		Role:     inv.Role,
		IsActive: true,
	}
	err = s.txr.Transaction(ctx, func(ctx context.Context) error {
		taken, err := s.userRepo.ExistsByUsername(ctx, username)
		if err != nil {
			return err
		}
		if !taken {
			taken, err = s.userRepo.ExistsByEmail(ctx, inv.Email)
			if err != nil {
				return err
			}
		}
		if taken {
			return domain.ErrUserAlreadyExists
		}

		if err := s.userRepo.Create(ctx, user); err != nil {
			return err
		}
		return s.repo.MarkUsed(ctx, inv.ID, user.ID, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invitation redeemed",
		zap.Uint("invitation_id", inv.ID),
		zap.Uint("user_id", user.ID),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}

// expire records the open to expired transition for the invitation behind jti
func (s *InvitationService) expire(ctx context.Context, jti string) {
	inv, err := s.repo.GetByTokenHash(ctx, password.HashToken(jti))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("failed to load expired invitation", zap.Error(err))
		}
		return
	}
	if err := s.repo.MarkExpired(ctx, inv.ID); err != nil {
		s.logger.Warn("failed to expire invitation", zap.Uint("invitation_id", inv.ID), zap.Error(err))
	}
}

// ExpireStale moves every open invitation past its expiry to expired
func (s *InvitationService) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.ExpireStale(ctx, "", now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired stale invitations", zap.Int64("count", n))
	}
	return n, nil
}

// List lists invitations, filtered by status when it is set
func (s *InvitationService) List(ctx context.Context, status domain.InvitationStatus, params *pagination.Params) ([]*models.Invitation, int64, error) {
	return s.repo.List(ctx, status, params)
}

// CountOpen counts invitations that can still be redeemed
func (s *InvitationService) CountOpen(ctx context.Context) (int64, error) {
	return s.repo.CountOpen(ctx, s.clock.Now())
}
