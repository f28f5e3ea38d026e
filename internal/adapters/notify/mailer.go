package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"ibc-intranet/internal/config"
	"ibc-intranet/internal/core/domain"
)

// Mailer sends notifications as plain text email over SMTP
type Mailer struct {
	templates *Templates
	from      string
	send      func(m *gomail.Message) error
	logger    *zap.Logger
}

// NewMailer creates an SMTP mailer
func NewMailer(cfg config.MailConfig, templates *Templates, logger *zap.Logger) *Mailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return &Mailer{
		templates: templates,
		from:      cfg.From,
		send:      func(m *gomail.Message) error { return dialer.DialAndSend(m) },
		logger:    logger.Named("mailer"),
	}
}

// Send renders the template for kind and delivers it to recipient
func (m *Mailer) Send(ctx context.Context, kind domain.NotificationKind, recipient string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, body, err := m.templates.Render(kind, data)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.send(msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	m.logger.Debug("mail sent", zap.String("kind", string(kind)), zap.String("to", recipient))
	return nil
}

// LogNotifier renders notifications and writes them to the log instead of sending.
// Used when no SMTP host is configured.
type LogNotifier struct {
	templates *Templates
	logger    *zap.Logger
}

// NewLogNotifier creates a notifier that only logs
func NewLogNotifier(templates *Templates, logger *zap.Logger) *LogNotifier {
	return &LogNotifier{templates: templates, logger: logger.Named("mail.log")}
}

func (n *LogNotifier) Send(_ context.Context, kind domain.NotificationKind, recipient string, data map[string]any) error {
	subject, body, err := n.templates.Render(kind, data)
	if err != nil {
		return err
	}
	n.logger.Info("notification",
		zap.String("kind", string(kind)),
		zap.String("to", recipient),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
