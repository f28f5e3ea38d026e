package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"ibc-intranet/internal/config"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/clock"
	"ibc-intranet/internal/pkg/metrics"
)

const jobTimeout = 10 * time.Minute

// ReminderService runs the scheduled jobs: overdue reminders and invitation expiry
type ReminderService struct {
	inventory   *InventoryService
	invitations *InvitationService
	notify      *NotificationService
	clock       clock.Clock
	metrics     *metrics.Metrics
	logger      *zap.Logger

	reminderSpec string
	expirySpec   string
	cron         *cron.Cron
}

// NewReminderService creates a new reminder service
func NewReminderService(
	inventory *InventoryService,
	invitations *InvitationService,
	notify *NotificationService,
	clk clock.Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg config.InventoryConfig,
) *ReminderService {
	return &ReminderService{
		inventory:    inventory,
		invitations:  invitations,
		notify:       notify,
		clock:        clk,
		metrics:      m,
		logger:       logger.Named("reminder"),
		reminderSpec: cfg.ReminderCron,
		expirySpec:   cfg.ExpiryCron,
	}
}

// Start schedules the jobs. Schedules are evaluated in UTC.
func (s *ReminderService) Start() error {
	c := cron.New(cron.WithLocation(time.UTC))

	if _, err := c.AddFunc(s.reminderSpec, s.runReminders); err != nil {
		return err
	}
	if _, err := c.AddFunc(s.expirySpec, s.runExpiry); err != nil {
		return err
	}

	c.Start()
	s.cron = c
	s.logger.Info("scheduler started",
		zap.String("reminders", s.reminderSpec),
		zap.String("invitation_expiry", s.expirySpec),
	)
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *ReminderService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *ReminderService) runReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := s.SendOverdueReminders(ctx); err != nil {
		s.logger.Error("overdue reminder run failed", zap.Error(err))
	}
}

func (s *ReminderService) runExpiry() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := s.invitations.ExpireStale(ctx, s.clock.Now()); err != nil {
		s.logger.Error("invitation expiry failed", zap.Error(err))
	}
}

// SendOverdueReminders notifies borrowers of overdue checkouts once per cooldown.
// A checkout is only stamped when its reminder was delivered.
func (s *ReminderService) SendOverdueReminders(ctx context.Context) (int, error) {
	now := s.clock.Now()
	sent := 0

	for c, err := range s.inventory.OverdueCheckouts(ctx, now) {
		if err != nil {
			return sent, err
		}
		if c.Borrower == nil || c.Item == nil {
			s.logger.Warn("overdue checkout without borrower or item", zap.Uint("checkout_id", c.ID))
			continue
		}

		ok := s.notify.Dispatch(ctx, domain.NotifyOverdueReminder, c.Borrower.Email, map[string]any{
			"name":     c.Borrower.Username,
			"item":     c.Item.Name,
			"quantity": c.Quantity,
			"due_at":   c.DueAt,
		})
		if !ok {
			continue
		}

		if err := s.inventory.MarkReminderSent(ctx, c.ID, now); err != nil {
			s.logger.Error("failed to stamp reminder", zap.Uint("checkout_id", c.ID), zap.Error(err))
			continue
		}
		s.metrics.ReminderSent()
		sent++
	}

	s.logger.Info("overdue reminders sent", zap.Int("count", sent))
	return sent, nil
}
