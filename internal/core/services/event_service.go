package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"ibc-intranet/internal/adapters/persistence/models"
	"ibc-intranet/internal/adapters/persistence/repositories"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/clock"
)

const defaultUpcomingLimit = 20

// EventService manages events and helper signups
type EventService struct {
	txr      repositories.Transactor
	repo     repositories.EventRepository
	userRepo repositories.UserRepository
	notify   *NotificationService
	clock    clock.Clock
	logger   *zap.Logger
}

// NewEventService creates a new event service
func NewEventService(
	txr repositories.Transactor,
	repo repositories.EventRepository,
	userRepo repositories.UserRepository,
	notify *NotificationService,
	clk clock.Clock,
	logger *zap.Logger,
) *EventService {
	return &EventService{
		txr:      txr,
		repo:     repo,
		userRepo: userRepo,
		notify:   notify,
		clock:    clk,
		logger:   logger.Named("event"),
	}
}

// SlotInput describes one helper task
type SlotInput struct {
	Task     string `json:"task" validate:"required,max=150"`
	Capacity int    `json:"capacity" validate:"gt=0"`
}

// CreateEventInput represents create event input
type CreateEventInput struct {
	Title       string      `json:"title" validate:"required,max=150"`
	Description string      `json:"description"`
	Location    string      `json:"location" validate:"max=200"`
	StartsAt    time.Time   `json:"starts_at" validate:"required"`
	EndsAt      time.Time   `json:"ends_at" validate:"required"`
	Slots       []SlotInput `json:"slots" validate:"dive"`
}

// CreateEvent creates an event with its helper slots
func (s *EventService) CreateEvent(ctx context.Context, actor domain.Actor, input *CreateEventInput) (*models.Event, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domain.Validationf("title is required")
	}
	if !input.EndsAt.After(input.StartsAt) {
		return nil, domain.Validationf("event must end after it starts")
	}

	event := &models.Event{
		Title:       title,
		Description: input.Description,
		Location:    input.Location,
		StartsAt:    input.StartsAt.UTC(),
		EndsAt:      input.EndsAt.UTC(),
		CreatedBy:   actor.UserID,
	}
	for _, slot := range input.Slots {
		if slot.Capacity <= 0 {
			return nil, fmt.Errorf("%w: slot %q needs a positive capacity", domain.ErrInvalidQuantity, slot.Task)
		}
		event.Slots = append(event.Slots, models.HelperSlot{Task: strings.TrimSpace(slot.Task), Capacity: slot.Capacity})
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}
	s.logger.Info("event created", zap.Uint("event_id", event.ID), zap.Uint("actor_id", actor.UserID), zap.Int("slots", len(event.Slots)))
	return event, nil
}

// GetEvent gets an event with slots and signups
func (s *EventService) GetEvent(ctx context.Context, id uint) (*models.Event, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, domain.ErrEventNotFound)
	}
	return event, nil
}

// ListUpcoming lists events that have not ended yet, soonest first
func (s *EventService) ListUpcoming(ctx context.Context, limit int) ([]*models.Event, error) {
	if limit <= 0 {
		limit = defaultUpcomingLimit
	}
	return s.repo.ListUpcoming(ctx, s.clock.Now(), limit)
}

// Signup adds the actor as helper to a slot. Capacity is checked under the slot lock.
func (s *EventService) Signup(ctx context.Context, actor domain.Actor, slotID uint) (*models.HelperSignup, error) {
	var (
		signup *models.HelperSignup
		event  *models.Event
		task   string
	)
	err := s.txr.Transaction(ctx, func(ctx context.Context) error {
		slot, err := s.repo.GetSlotForUpdate(ctx, slotID)
		if err != nil {
			return notFound(err, domain.ErrSlotNotFound)
		}
		task = slot.Task

		event, err = s.repo.GetByID(ctx, slot.EventID)
		if err != nil {
			return notFound(err, domain.ErrEventNotFound)
		}
		if !event.EndsAt.After(s.clock.Now()) {
			return domain.Validationf("event is over")
		}

		exists, err := s.repo.HasSignup(ctx, slotID, actor.UserID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrAlreadySignedUp
		}

		taken, err := s.repo.CountSignups(ctx, slotID)
		if err != nil {
			return err
		}
		if taken >= int64(slot.Capacity) {
			return domain.ErrSlotFull
		}

		signup = &models.HelperSignup{SlotID: slotID, UserID: actor.UserID}
		return s.repo.CreateSignup(ctx, signup)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("helper signed up", zap.Uint("slot_id", slotID), zap.Uint("user_id", actor.UserID))

	if user, err := s.userRepo.GetByID(ctx, actor.UserID); err == nil {
		s.notify.Dispatch(ctx, domain.NotifyEventSignupConfirm, user.Email, map[string]any{
			"name":      user.Username,
			"event":     event.Title,
			"task":      task,
			"starts_at": event.StartsAt,
		})
	}
	return signup, nil
}

// CancelSignup removes the actor from a slot
func (s *EventService) CancelSignup(ctx context.Context, actor domain.Actor, slotID uint) error {
	n, err := s.repo.DeleteSignup(ctx, slotID, actor.UserID)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSignupNotFound
	}
	s.logger.Info("helper signup cancelled", zap.Uint("slot_id", slotID), zap.Uint("user_id", actor.UserID))
	return nil
}
