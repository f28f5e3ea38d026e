package models

import (
	"time"

	"ibc-intranet/internal/core/domain"
)

// ============================================================
// Events
// ============================================================

// Event represents events table
type Event struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:150;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Location    string    `gorm:"size:200" json:"location"`
	StartsAt    time.Time `gorm:"not null;index" json:"starts_at"`
	EndsAt      time.Time `gorm:"not null" json:"ends_at"`
	CreatedBy   uint      `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Slots []HelperSlot `gorm:"foreignKey:EventID" json:"slots,omitempty"`
}

func (Event) TableName() string {
	return "events"
}

// HelperSlot is a task on an event that needs a number of helpers
type HelperSlot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   uint      `gorm:"not null;index" json:"event_id"`
	Task      string    `gorm:"size:150;not null" json:"task"`
	Capacity  int       `gorm:"not null" json:"capacity"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Signups []HelperSignup `gorm:"foreignKey:SlotID" json:"signups,omitempty"`
}

func (HelperSlot) TableName() string {
	return "helper_slots"
}

// HelperSignup represents helper_signups table
type HelperSignup struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SlotID    uint      `gorm:"not null;uniqueIndex:idx_signup_slot_user" json:"slot_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_signup_slot_user" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (HelperSignup) TableName() string {
	return "helper_signups"
}

// ============================================================
// Projects
// ============================================================

// Project represents projects table
type Project struct {
	ID          uint                 `gorm:"primaryKey" json:"id"`
	Title       string               `gorm:"size:150;not null" json:"title"`
	Description string               `gorm:"type:text" json:"description"`
	Status      domain.ProjectStatus `gorm:"size:20;not null;index;default:'open'" json:"status"`
	CreatedBy   uint                 `gorm:"not null" json:"created_by"`
	ClosedAt    *time.Time           `json:"closed_at"`
	CreatedAt   time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Project) TableName() string {
	return "projects"
}

// ProjectApplication represents project_applications table
type ProjectApplication struct {
	ID         uint                     `gorm:"primaryKey" json:"id"`
	ProjectID  uint                     `gorm:"not null;uniqueIndex:idx_application_project_user" json:"project_id"`
	UserID     uint                     `gorm:"not null;uniqueIndex:idx_application_project_user" json:"user_id"`
	Motivation string                   `gorm:"type:text" json:"motivation"`
	Status     domain.ApplicationStatus `gorm:"size:20;not null;index;default:'pending'" json:"status"`
	ReviewedBy *uint                    `json:"reviewed_by"`
	ReviewedAt *time.Time               `json:"reviewed_at"`
	CreatedAt  time.Time                `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time                `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (ProjectApplication) TableName() string {
	return "project_applications"
}
