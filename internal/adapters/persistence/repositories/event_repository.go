package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ibc-intranet/internal/adapters/persistence/models"
)

// eventRepository implements EventRepository interface
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// Create inserts an event together with its helper slots
func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	return conn(ctx, r.db).Create(event).Error
}

func (r *eventRepository) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := conn(ctx, r.db).
		Preload("Slots").
		Preload("Slots.Signups").
		First(&event, id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) ListUpcoming(ctx context.Context, now time.Time, limit int) ([]*models.Event, error) {
	var events []*models.Event
	err := conn(ctx, r.db).
		Preload("Slots").
		Where("ends_at >= ?", now).
		Order("starts_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *eventRepository) GetSlotForUpdate(ctx context.Context, slotID uint) (*models.HelperSlot, error) {
	var slot models.HelperSlot
	if err := forUpdate(conn(ctx, r.db)).First(&slot, slotID).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *eventRepository) CountSignups(ctx context.Context, slotID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.HelperSignup{}).Where("slot_id = ?", slotID).Count(&count).Error
	return count, err
}

func (r *eventRepository) HasSignup(ctx context.Context, slotID, userID uint) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.HelperSignup{}).
		Where("slot_id = ? AND user_id = ?", slotID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *eventRepository) CreateSignup(ctx context.Context, s *models.HelperSignup) error {
	return conn(ctx, r.db).Create(s).Error
}

func (r *eventRepository) DeleteSignup(ctx context.Context, slotID, userID uint) (int64, error) {
	result := conn(ctx, r.db).
		Where("slot_id = ? AND user_id = ?", slotID, userID).
		Delete(&models.HelperSignup{})
	return result.RowsAffected, result.Error
}
