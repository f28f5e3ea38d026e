// Package seed creates the bootstrap admin and, in dev mode, a small demo catalogue.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ibc-intranet/internal/adapters/persistence/repositories"
	"ibc-intranet/internal/config"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/core/services"
	"ibc-intranet/internal/pkg/pagination"
)

// Seeder handles database seeding
type Seeder struct {
	users     *services.UserService
	inventory *services.InventoryService
	logger    *zap.Logger
	cfg       *config.Config
}

// NewSeeder creates a new seeder instance
func NewSeeder(svc *services.Container, logger *zap.Logger, cfg *config.Config) *Seeder {
	return &Seeder{
		users:     svc.Users,
		inventory: svc.Inventory,
		logger:    logger.Named("seed"),
		cfg:       cfg,
	}
}

// Run executes all seeders. Re-running is safe.
func (s *Seeder) Run(ctx context.Context) error {
	s.logger.Info("running database seeders")

	admin, err := s.seedAdmin(ctx)
	if err != nil {
		return err
	}

	if s.cfg.IsDev() && admin != nil {
		if err := s.seedInventory(ctx, domain.Actor{UserID: admin.UserID, Role: domain.RoleAdmin}); err != nil {
			return err
		}
	}

	s.logger.Info("database seeding completed")
	return nil
}

func (s *Seeder) seedAdmin(ctx context.Context) (*domain.Actor, error) {
	b := s.cfg.Bootstrap
	if b.AdminPassword == "" {
		s.logger.Warn("BOOTSTRAP_ADMIN_PASSWORD not set, skipping admin seed")
		return nil, nil
	}

	admin, created, err := s.users.EnsureAdmin(ctx, b.AdminUsername, b.AdminEmail, b.AdminPassword)
	if err != nil {
		if errors.Is(err, domain.ErrWeakPassword) {
			return nil, fmt.Errorf("BOOTSTRAP_ADMIN_PASSWORD: %w", err)
		}
		return nil, err
	}
	if !created {
		s.logger.Info("admin account already present", zap.String("username", admin.Username))
	}
	return &domain.Actor{UserID: admin.ID, Role: admin.Role}, nil
}

var demoItems = []services.CreateItemInput{
	{Name: "Folding table", Category: "furniture", Location: "Storage A", Unit: "pcs", MinStock: 2, UnitValue: decimal.RequireFromString("45.00"), InitialStock: 8},
	{Name: "Extension cord 10m", Category: "electrical", Location: "Storage B", Unit: "pcs", MinStock: 3, UnitValue: decimal.RequireFromString("12.50"), InitialStock: 10},
	{Name: "Projector", Category: "electronics", Location: "Office", Unit: "pcs", UnitValue: decimal.RequireFromString("390.00"), InitialStock: 1},
	{Name: "Gaffer tape", Category: "consumables", Location: "Storage B", Unit: "rolls", MinStock: 5, UnitValue: decimal.RequireFromString("6.90"), InitialStock: 4},
}

func (s *Seeder) seedInventory(ctx context.Context, actor domain.Actor) error {
	_, total, err := s.inventory.ListItems(ctx, repositories.ItemFilter{}, pagination.New(1, 1))
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}

	for i := range demoItems {
		item := demoItems[i]
		if _, err := s.inventory.CreateItem(ctx, actor, &item); err != nil {
			return fmt.Errorf("seed item %q: %w", item.Name, err)
		}
	}
	s.logger.Info("demo inventory seeded", zap.Int("items", len(demoItems)))
	return nil
}
