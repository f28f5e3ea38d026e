package models

import (
	"time"

	"gorm.io/gorm"

	"ibc-intranet/internal/core/domain"
)

// ============================================================
// Users & Invitations
// ============================================================

// User represents users table
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email        string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password     string         `gorm:"size:255;not null" json:"-"`
	Role         domain.Role    `gorm:"size:20;not null;default:'member'" json:"role"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	FailedLogins int            `gorm:"not null;default:0" json:"-"`
	LockedUntil  *time.Time     `json:"-"`
	LastLoginAt  *time.Time     `json:"last_login_at"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// IsLocked reports whether the lockout window is still running at now
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// UserResponse DTO
type UserResponse struct {
	ID          uint        `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Role        domain.Role `json:"role"`
	IsActive    bool        `json:"is_active"`
	LastLoginAt *time.Time  `json:"last_login_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// Invitation represents invitations table. The raw token is never stored.
// OpenEmail mirrors Email while the invitation is open and is NULL otherwise,
// so the unique index allows at most one open invitation per address.
type Invitation struct {
	ID        uint                    `gorm:"primaryKey" json:"id"`
	Email     string                  `gorm:"size:100;not null;index" json:"email"`
	OpenEmail *string                 `gorm:"size:100;uniqueIndex" json:"-"`
	Role      domain.Role             `gorm:"size:20;not null" json:"role"`
	TokenHash string                  `gorm:"size:64;not null;uniqueIndex" json:"-"`
	Status    domain.InvitationStatus `gorm:"size:20;not null;index;default:'open'" json:"status"`
	InvitedBy uint                    `gorm:"not null" json:"invited_by"`
	ExpiresAt time.Time               `gorm:"not null;index" json:"expires_at"`
	UsedAt    *time.Time              `json:"used_at"`
	UsedBy    *uint                   `json:"used_by"`
	CreatedAt time.Time               `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time               `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Inviter *User `gorm:"foreignKey:InvitedBy" json:"inviter,omitempty"`
}

func (Invitation) TableName() string {
	return "invitations"
}

// IsExpired reports whether an invitation can no longer be used at now
func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate creates or updates every table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Invitation{},
		// Inventory
		&InventoryItem{},
		&Checkout{},
		&StockHistory{},
		// Events & Projects
		&Event{},
		&HelperSlot{},
		&HelperSignup{},
		&Project{},
		&ProjectApplication{},
	)
}
