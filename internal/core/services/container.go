package services

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ibc-intranet/internal/adapters/persistence/repositories"
	"ibc-intranet/internal/adapters/session"
	"ibc-intranet/internal/config"
	"ibc-intranet/internal/pkg/clock"
	"ibc-intranet/internal/pkg/metrics"
	"ibc-intranet/internal/pkg/password"
)

// Container holds every service wired against one database and session store
type Container struct {
	Auth          *AuthService
	CSRF          *CSRFService
	Users         *UserService
	Inventory     *InventoryService
	Invitations   *InvitationService
	Events        *EventService
	Projects      *ProjectService
	Dashboard     *DashboardService
	Notifications *NotificationService
	Reminders     *ReminderService
}

// NewContainer builds the repositories and services
func NewContainer(
	db *gorm.DB,
	store session.Store,
	notifier Notifier,
	clk clock.Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg *config.Config,
) *Container {
	txr := repositories.NewTransactor(db)
	userRepo := repositories.NewUserRepository(db)
	inventoryRepo := repositories.NewInventoryRepository(db)
	invitationRepo := repositories.NewInvitationRepository(db)
	eventRepo := repositories.NewEventRepository(db)
	projectRepo := repositories.NewProjectRepository(db)

	hasher := password.NewHasher(cfg.Security.BcryptCost)
	notify := NewNotificationService(notifier, m, logger)

	inventory := NewInventoryService(txr, inventoryRepo, userRepo, notify, clk, m, logger, cfg.Inventory)
	invitations := NewInvitationService(txr, invitationRepo, userRepo, hasher, notify, clk, logger, cfg.Invitation)
	events := NewEventService(txr, eventRepo, userRepo, notify, clk, logger)
	projects := NewProjectService(txr, projectRepo, notify, clk, logger)

	return &Container{
		Auth:          NewAuthService(userRepo, store, hasher, clk, m, logger, cfg),
		CSRF:          NewCSRFService(store),
		Users:         NewUserService(userRepo, hasher, logger),
		Inventory:     inventory,
		Invitations:   invitations,
		Events:        events,
		Projects:      projects,
		Dashboard:     NewDashboardService(db, userRepo, inventory, invitations, events, projects),
		Notifications: notify,
		Reminders:     NewReminderService(inventory, invitations, notify, clk, m, logger, cfg.Inventory),
	}
}
