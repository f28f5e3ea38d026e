package repositories

import (
	"context"
	"time"

	"ibc-intranet/internal/adapters/persistence/models"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/pagination"

	"gorm.io/gorm"
)

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return conn(ctx, r.db).Create(user).Error
}

// GetByID gets a user by ID
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := conn(ctx, r.db).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername gets a user by username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := conn(ctx, r.db).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail gets a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := conn(ctx, r.db).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIdentifier gets a user by username or email
func (r *userRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	err := conn(ctx, r.db).Where("username = ? OR email = ?", identifier, identifier).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates a user
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return conn(ctx, r.db).Save(user).Error
}

// Delete soft deletes a user
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	return conn(ctx, r.db).Delete(&models.User{}, id).Error
}

// List lists users with pagination
func (r *userRepository) List(ctx context.Context, page *pagination.Params) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	if err := conn(ctx, r.db).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := conn(ctx, r.db).Order("username").Scopes(page.Scope).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// ExistsByUsername checks if username exists
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// ExistsByEmail checks if email exists
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// RecordLoginFailure increments the failure counter in one statement and
// sets the lock when the counter reaches threshold
func (r *userRepository) RecordLoginFailure(ctx context.Context, id uint, threshold int, lockUntil time.Time) error {
	db := conn(ctx, r.db)
	if err := db.Model(&models.User{}).Where("id = ?", id).
		UpdateColumn("failed_logins", gorm.Expr("failed_logins + 1")).Error; err != nil {
		return err
	}
	if threshold <= 0 {
		return nil
	}
	return db.Model(&models.User{}).
		Where("id = ? AND failed_logins >= ?", id, threshold).
		UpdateColumns(map[string]interface{}{
			"failed_logins": 0,
			"locked_until":  lockUntil,
		}).Error
}

// RecordLoginSuccess clears lockout state and stamps the login time
func (r *userRepository) RecordLoginSuccess(ctx context.Context, id uint, at time.Time) error {
	return conn(ctx, r.db).Model(&models.User{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"failed_logins": 0,
			"locked_until":  nil,
			"last_login_at": at,
		}).Error
}

// CountByRole returns the number of users per role
func (r *userRepository) CountByRole(ctx context.Context) (map[domain.Role]int64, error) {
	var rows []struct {
		Role  domain.Role
		Total int64
	}
	err := conn(ctx, r.db).Model(&models.User{}).
		Select("role, COUNT(*) AS total").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.Role]int64, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Total
	}
	return counts, nil
}
