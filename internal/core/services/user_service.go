package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"ibc-intranet/internal/adapters/persistence/models"
	"ibc-intranet/internal/adapters/persistence/repositories"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/pagination"
	"ibc-intranet/internal/pkg/password"
)

// UserService handles user management business logic
type UserService struct {
	userRepo repositories.UserRepository
	hasher   *password.Hasher
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository, hasher *password.Hasher, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		hasher:   hasher,
		logger:   logger.Named("user"),
	}
}

// ListUsersOutput represents list users output
type ListUsersOutput struct {
	Users []*models.UserResponse `json:"users"`
	Meta  *pagination.Meta       `json:"meta"`
}

// UpdateUserByAdminInput represents update user input (for admin)
type UpdateUserByAdminInput struct {
	Email    *string `json:"email" validate:"omitempty,email,max=100"`
	Role     *string `json:"role" validate:"omitempty,role"`
	IsActive *bool   `json:"is_active"`
}

// UpdateProfileInput represents update profile input (for self)
type UpdateProfileInput struct {
	Email *string `json:"email" validate:"omitempty,email,max=100"`
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,max=128"`
}

// ListUsers lists all users with pagination
func (s *UserService) ListUsers(ctx context.Context, params *pagination.Params) (*ListUsersOutput, error) {
	users, total, err := s.userRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	out := make([]*models.UserResponse, len(users))
	for i, user := range users {
		out[i] = user.ToResponse()
	}

	return &ListUsersOutput{
		Users: out,
		Meta:  pagination.GetMeta(params, total),
	}, nil
}

// GetUserByID gets a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return user.ToResponse(), nil
}

// UpdateUserByAdmin updates a user by admin
func (s *UserService) UpdateUserByAdmin(ctx context.Context, actor domain.Actor, id uint, input *UpdateUserByAdminInput) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}

	// Prevent admin from changing own role or locking themselves out
	if id == actor.UserID && (input.Role != nil || (input.IsActive != nil && !*input.IsActive)) {
		return nil, domain.ErrCannotChangeOwnRole
	}

	if input.Email != nil {
		if err := s.changeEmail(ctx, user, *input.Email); err != nil {
			return nil, err
		}
	}

	if input.Role != nil {
		role, err := domain.ParseRole(*input.Role)
		if err != nil {
			return nil, domain.Validationf("unknown role %q", *input.Role)
		}
		user.Role = role
	}

	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user updated by admin",
		zap.Uint("user_id", id),
		zap.Uint("actor_id", actor.UserID),
		zap.String("role", string(user.Role)),
		zap.Bool("active", user.IsActive),
	)
	return user.ToResponse(), nil
}

func (s *UserService) changeEmail(ctx context.Context, user *models.User, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || email == user.Email {
		return nil
	}
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrUserAlreadyExists
	}
	user.Email = email
	return nil
}

// DeleteUser deletes a user (soft delete)
func (s *UserService) DeleteUser(ctx context.Context, actor domain.Actor, id uint) error {
	// Prevent admin from deleting self
	if id == actor.UserID {
		return domain.ErrCannotDeleteSelf
	}

	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		return notFound(err, domain.ErrUserNotFound)
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.Uint("user_id", id), zap.Uint("actor_id", actor.UserID))
	return nil
}

// GetProfile gets own profile
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.UserResponse, error) {
	return s.GetUserByID(ctx, userID)
}

// UpdateProfile updates own profile
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, input *UpdateProfileInput) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}

	if input.Email != nil {
		if err := s.changeEmail(ctx, user, *input.Email); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// ChangePassword changes user's password
func (s *UserService) ChangePassword(ctx context.Context, userID uint, input *ChangePasswordInput) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return notFound(err, domain.ErrUserNotFound)
	}

	if !s.hasher.Verify(input.OldPassword, user.Password) {
		return domain.ErrOldPasswordWrong
	}

	if !password.ValidatePassword(input.NewPassword) {
		return domain.ErrWeakPassword
	}

	hashed, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return err
	}

	user.Password = hashed
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	s.logger.Info("password changed", zap.Uint("user_id", userID))
	return nil
}

// EnsureAdmin creates an admin account unless one with the username exists.
// Used by the seeder.
func (s *UserService) EnsureAdmin(ctx context.Context, username, email, secret string) (*models.User, bool, error) {
	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err == nil {
		return existing, false, nil
	}
	if err := notFound(err, nil); err != nil {
		return nil, false, err
	}

	if !password.ValidatePassword(secret) {
		return nil, false, domain.ErrWeakPassword
	}
	hashed, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, false, err
	}

	admin := &models.User{
		Username: username,
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: hashed,
		Role:     domain.RoleAdmin,
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return nil, false, err
	}
	s.logger.Info("admin account created", zap.Uint("user_id", admin.ID), zap.String("username", username))
	return admin, true, nil
}
