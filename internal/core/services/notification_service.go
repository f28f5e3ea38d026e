package services

import (
	"context"

	"go.uber.org/zap"

	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/metrics"
)

// Notifier delivers one notification. Implementations live in adapters/notify.
type Notifier interface {
	Send(ctx context.Context, kind domain.NotificationKind, recipient string, data map[string]any) error
}

// NotificationService fires notifications on business events.
// Delivery failures are logged and counted, never returned to the caller.
type NotificationService struct {
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewNotificationService creates a new notification service. A nil notifier disables sending.
func NewNotificationService(notifier Notifier, m *metrics.Metrics, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		notifier: notifier,
		metrics:  m,
		logger:   logger.Named("notification"),
	}
}

// IsEnabled checks if notification is enabled
func (s *NotificationService) IsEnabled() bool {
	return s != nil && s.notifier != nil
}

// Dispatch sends a notification and reports whether it was delivered
func (s *NotificationService) Dispatch(ctx context.Context, kind domain.NotificationKind, recipient string, data map[string]any) bool {
	if !s.IsEnabled() {
		return false
	}
	if recipient == "" {
		s.logger.Warn("notification without recipient", zap.String("kind", string(kind)))
		s.metrics.Notification(string(kind), false)
		return false
	}

	err := s.notifier.Send(ctx, kind, recipient, data)
	s.metrics.Notification(string(kind), err == nil)
	if err != nil {
		s.logger.Error("notification failed",
			zap.String("kind", string(kind)),
			zap.String("recipient", recipient),
			zap.Error(err),
		)
		return false
	}
	return true
}
