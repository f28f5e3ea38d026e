package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ibc-intranet/internal/adapters/persistence/models"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/pagination"
)

// invitationRepository implements InvitationRepository interface
type invitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

// Create stores inv. A second open invitation for the same email fails with
// ErrDuplicateInvitation.
func (r *invitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	if inv.Status == "" {
		inv.Status = domain.InvitationOpen
	}
	if inv.Status == domain.InvitationOpen {
		email := inv.Email
		inv.OpenEmail = &email
	}
	if err := conn(ctx, r.db).Create(inv).Error; err != nil {
		if isDuplicateKey(err) && inv.OpenEmail != nil {
			return domain.ErrDuplicateInvitation
		}
		return err
	}
	return nil
}

func (r *invitationRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Invitation, error) {
	var inv models.Invitation
	if err := conn(ctx, r.db).Where("token_hash = ?", tokenHash).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// HasOpen reports whether email has an open invitation that has not expired at now
func (r *invitationRepository) HasOpen(ctx context.Context, email string, now time.Time) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Invitation{}).
		Where("email = ? AND status = ? AND expires_at > ?", email, domain.InvitationOpen, now).
		Count(&count).Error
	return count > 0, err
}

// ExpireStale moves open invitations past their expiry to expired.
// An empty email applies to every address.
func (r *invitationRepository) ExpireStale(ctx context.Context, email string, now time.Time) (int64, error) {
	query := conn(ctx, r.db).Model(&models.Invitation{}).
		Where("status = ? AND expires_at <= ?", domain.InvitationOpen, now)
	if email != "" {
		query = query.Where("email = ?", email)
	}
	result := query.Updates(map[string]interface{}{
		"status":     domain.InvitationExpired,
		"open_email": nil,
	})
	return result.RowsAffected, result.Error
}

// MarkUsed consumes an open invitation. Reuse fails with ErrInvitationUsed.
func (r *invitationRepository) MarkUsed(ctx context.Context, id, userID uint, at time.Time) error {
	result := conn(ctx, r.db).Model(&models.Invitation{}).
		Where("id = ? AND status = ?", id, domain.InvitationOpen).
		Updates(map[string]interface{}{
			"status":     domain.InvitationUsed,
			"used_at":    at,
			"used_by":    userID,
			"open_email": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInvitationUsed
	}
	return nil
}

func (r *invitationRepository) MarkExpired(ctx context.Context, id uint) error {
	return conn(ctx, r.db).Model(&models.Invitation{}).
		Where("id = ? AND status = ?", id, domain.InvitationOpen).
		Updates(map[string]interface{}{
			"status":     domain.InvitationExpired,
			"open_email": nil,
		}).Error
}

// List lists invitations newest first, all statuses when status is empty
func (r *invitationRepository) List(ctx context.Context, status domain.InvitationStatus, page *pagination.Params) ([]*models.Invitation, int64, error) {
	var list []*models.Invitation
	var total int64

	query := conn(ctx, r.db).Model(&models.Invitation{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC, id DESC").Scopes(page.Scope).Find(&list).Error
	return list, total, err
}

func (r *invitationRepository) CountOpen(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Invitation{}).
		Where("status = ? AND expires_at > ?", domain.InvitationOpen, now).
		Count(&count).Error
	return count, err
}
