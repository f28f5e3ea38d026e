package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ibc-intranet/internal/adapters/persistence/models"
	"ibc-intranet/internal/adapters/persistence/repositories"
	"ibc-intranet/internal/config"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/clock"
	"ibc-intranet/internal/pkg/metrics"
	"ibc-intranet/internal/pkg/pagination"
)

const overdueBatchSize = 100

// errStopIteration aborts a batched scan when the consumer stops ranging
var errStopIteration = errors.New("stop iteration")

// InventoryService is the stock engine. Every stock change runs in one
// transaction that locks the item row, compares its version, and writes a history record.
type InventoryService struct {
	txr      repositories.Transactor
	repo     repositories.InventoryRepository
	userRepo repositories.UserRepository
	notify   *NotificationService
	clock    clock.Clock
	metrics  *metrics.Metrics
	logger   *zap.Logger

	loanDays         int
	defaultMinStock  int
	reminderCooldown time.Duration
}

// NewInventoryService creates a new inventory service
func NewInventoryService(
	txr repositories.Transactor,
	repo repositories.InventoryRepository,
	userRepo repositories.UserRepository,
	notify *NotificationService,
	clk clock.Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg config.InventoryConfig,
) *InventoryService {
	return &InventoryService{
		txr:              txr,
		repo:             repo,
		userRepo:         userRepo,
		notify:           notify,
		clock:            clk,
		metrics:          m,
		logger:           logger.Named("inventory"),
		loanDays:         cfg.DefaultLoanDays,
		defaultMinStock:  cfg.DefaultMinStock,
		reminderCooldown: cfg.ReminderCooldown,
	}
}

// ============================================================
// Catalogue
// ============================================================

// CreateItemInput represents create item input
type CreateItemInput struct {
	Name         string          `json:"name" validate:"required,max=150"`
	Category     string          `json:"category" validate:"max=80"`
	Location     string          `json:"location" validate:"max=120"`
	Description  string          `json:"description"`
	Unit         string          `json:"unit" validate:"max=30"`
	MinStock     int             `json:"min_stock" validate:"gte=0"`
	UnitValue    decimal.Decimal `json:"unit_value"`
	InitialStock int             `json:"initial_stock" validate:"gte=0"`
}

// UpdateItemInput represents update item input. Stock is changed through AdjustStock.
type UpdateItemInput struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=150"`
	Category    *string          `json:"category" validate:"omitempty,max=80"`
	Location    *string          `json:"location" validate:"omitempty,max=120"`
	Description *string          `json:"description"`
	Unit        *string          `json:"unit" validate:"omitempty,max=30"`
	MinStock    *int             `json:"min_stock" validate:"omitempty,gte=0"`
	UnitValue   *decimal.Decimal `json:"unit_value"`
}

// CreateItem creates an item and records its opening stock
func (s *InventoryService) CreateItem(ctx context.Context, actor domain.Actor, input *CreateItemInput) (*models.InventoryItem, error) {
	if input.UnitValue.IsNegative() {
		return nil, domain.Validationf("unit_value must not be negative")
	}
	if input.InitialStock < 0 || input.MinStock < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	unit := input.Unit
	if unit == "" {
		unit = "pcs"
	}
	item := &models.InventoryItem{
		Name:         strings.TrimSpace(input.Name),
		Category:     input.Category,
		Location:     input.Location,
		Description:  input.Description,
		Unit:         unit,
		MinStock:     input.MinStock,
		UnitValue:    input.UnitValue,
		CurrentStock: input.InitialStock,
		Version:      1,
	}

	err := s.txr.Transaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateItem(ctx, item); err != nil {
			return err
		}
		if item.CurrentStock == 0 {
			return nil
		}
		return s.repo.AddHistory(ctx, &models.StockHistory{
			ItemID:       item.ID,
			ChangeAmount: item.CurrentStock,
			Reason:       domain.ReasonInitial,
			Comment:      "opening stock",
			ActorID:      actor.UserID,
			CreatedAt:    s.clock.Now(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("item created", zap.Uint("item_id", item.ID), zap.Uint("actor_id", actor.UserID), zap.Int("stock", item.CurrentStock))
	return item, nil
}

// UpdateItem updates descriptive fields of an item
func (s *InventoryService) UpdateItem(ctx context.Context, actor domain.Actor, id uint, input *UpdateItemInput) (*models.InventoryItem, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, notFound(err, domain.ErrItemNotFound)
	}

	if input.Name != nil {
		item.Name = strings.TrimSpace(*input.Name)
	}
	if input.Category != nil {
		item.Category = *input.Category
	}
	if input.Location != nil {
		item.Location = *input.Location
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.Unit != nil {
		item.Unit = *input.Unit
	}
	if input.MinStock != nil {
		if *input.MinStock < 0 {
			return nil, domain.ErrInvalidQuantity
		}
		item.MinStock = *input.MinStock
	}
	if input.UnitValue != nil {
		if input.UnitValue.IsNegative() {
			return nil, domain.Validationf("unit_value must not be negative")
		}
		item.UnitValue = *input.UnitValue
	}

	if err := s.repo.UpdateItemDetails(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("item updated", zap.Uint("item_id", id), zap.Uint("actor_id", actor.UserID))
	return item, nil
}

// GetItem gets an item by ID
func (s *InventoryService) GetItem(ctx context.Context, id uint) (*models.InventoryItem, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, notFound(err, domain.ErrItemNotFound)
	}
	return item, nil
}

// ListItems lists items with optional category and search filter
func (s *InventoryService) ListItems(ctx context.Context, filter repositories.ItemFilter, params *pagination.Params) ([]*models.InventoryItem, int64, error) {
	return s.repo.ListItems(ctx, filter, params)
}

// DeleteItem removes an item that has no active checkouts
func (s *InventoryService) DeleteItem(ctx context.Context, actor domain.Actor, id uint) error {
	err := s.txr.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetItemForUpdate(ctx, id); err != nil {
			return notFound(err, domain.ErrItemNotFound)
		}
		active, err := s.repo.CountActiveCheckouts(ctx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return domain.ErrItemInUse
		}
		return s.repo.DeleteItem(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("item deleted", zap.Uint("item_id", id), zap.Uint("actor_id", actor.UserID))
	return nil
}

// LowStock lists items under their effective minimum stock
func (s *InventoryService) LowStock(ctx context.Context) ([]*models.InventoryItem, error) {
	return s.repo.LowStock(ctx, s.defaultMinStock)
}

// History returns the stock history of an item, oldest first
func (s *InventoryService) History(ctx context.Context, itemID uint) ([]*models.StockHistory, error) {
	if _, err := s.repo.GetItem(ctx, itemID); err != nil {
		return nil, notFound(err, domain.ErrItemNotFound)
	}
	return s.repo.ListHistory(ctx, itemID)
}

// ActiveCheckouts lists open checkouts of a borrower, or of everyone when borrowerID is 0
func (s *InventoryService) ActiveCheckouts(ctx context.Context, borrowerID uint) ([]*models.Checkout, error) {
	return s.repo.ListActiveCheckouts(ctx, borrowerID)
}

// GetCheckout gets a checkout by ID
func (s *InventoryService) GetCheckout(ctx context.Context, id uint) (*models.Checkout, error) {
	c, err := s.repo.GetCheckout(ctx, id)
	if err != nil {
		return nil, notFound(err, domain.ErrCheckoutNotFound)
	}
	return c, nil
}

// ============================================================
// Stock mutations
// ============================================================

// CheckoutInput represents checkout input
type CheckoutInput struct {
	ItemID      uint       `json:"item_id" validate:"required"`
	BorrowerID  uint       `json:"borrower_id"`
	Quantity    int        `json:"quantity" validate:"required,gt=0"`
	Destination string     `json:"destination" validate:"max=200"`
	DueAt       *time.Time `json:"due_at"`
}

// Checkout lends quantity units of an item. Borrower defaults to the actor
// and the due date to the configured loan period.
func (s *InventoryService) Checkout(ctx context.Context, actor domain.Actor, input *CheckoutInput) (*models.Checkout, error) {
	if input.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	now := s.clock.Now()
	borrowerID := input.BorrowerID
	if borrowerID == 0 {
		borrowerID = actor.UserID
	}
	due := now.AddDate(0, 0, s.loanDays)
	if input.DueAt != nil {
		due = input.DueAt.UTC()
	}
	if !due.After(now) {
		return nil, domain.Validationf("due date must be in the future")
	}

	var (
		checkout *models.Checkout
		item     *models.InventoryItem
		borrower *models.User
	)
	err := s.txr.Transaction(ctx, func(ctx context.Context) error {
		var err error
		item, err = s.repo.GetItemForUpdate(ctx, input.ItemID)
		if err != nil {
			return notFound(err, domain.ErrItemNotFound)
		}
		if input.Quantity > item.CurrentStock {
			return fmt.Errorf("%w: requested %d, available %d", domain.ErrInsufficientStock, input.Quantity, item.CurrentStock)
		}

		borrower, err = s.userRepo.GetByID(ctx, borrowerID)
		if err != nil {
			return notFound(err, domain.ErrUserNotFound)
		}

		if err := s.repo.UpdateStock(ctx, item.ID, item.Version, item.CurrentStock-input.Quantity); err != nil {
			return err
		}

		checkout = &models.Checkout{
			ItemID:       item.ID,
			BorrowerID:   borrowerID,
			Quantity:     input.Quantity,
			Destination:  input.Destination,
			CheckedOutAt: now,
			DueAt:        due,
			Status:       domain.CheckoutActive,
		}
		if err := s.repo.CreateCheckout(ctx, checkout); err != nil {
			return err
		}

		return s.repo.AddHistory(ctx, &models.StockHistory{
			ItemID:       item.ID,
			CheckoutID:   &checkout.ID,
			ChangeAmount: -input.Quantity,
			Reason:       domain.ReasonCheckout,
			Comment:      input.Destination,
			ActorID:      actor.UserID,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.StockMutation(string(domain.ReasonCheckout))
	s.logger.Info("item checked out",
		zap.Uint("item_id", item.ID),
		zap.Uint("checkout_id", checkout.ID),
		zap.Uint("borrower_id", borrowerID),
		zap.Uint("actor_id", actor.UserID),
		zap.Int("quantity", input.Quantity),
	)

	s.notify.Dispatch(ctx, domain.NotifyCheckoutConfirm, borrower.Email, map[string]any{
		"name":        borrower.Username,
		"item":        item.Name,
		"quantity":    input.Quantity,
		"destination": input.Destination,
		"due_at":      due,
	})

	checkout.Item = item
	return checkout, nil
}

// CheckinInput represents checkin input
type CheckinInput struct {
	Returned  int `json:"returned" validate:"gte=0"`
	Defective int `json:"defective" validate:"gte=0"`
}

// Checkin closes a checkout. Returned units go back to stock except the
// defective ones, which are written off. Returning nothing closes a checkout
// whose units were all lost.
func (s *InventoryService) Checkin(ctx context.Context, actor domain.Actor, checkoutID uint, returned, defective int) error {
	if returned < 0 || defective < 0 || defective > returned {
		return fmt.Errorf("%w: returned %d, defective %d", domain.ErrInvalidQuantity, returned, defective)
	}

	now := s.clock.Now()
	var checkout *models.Checkout
	err := s.txr.Transaction(ctx, func(ctx context.Context) error {
		var err error
		checkout, err = s.repo.GetCheckoutForUpdate(ctx, checkoutID)
		if err != nil {
			return notFound(err, domain.ErrCheckoutNotFound)
		}
		if checkout.Status != domain.CheckoutActive {
			return domain.ErrCheckoutAlreadyClosed
		}
		if returned > checkout.Quantity {
			return fmt.Errorf("%w: returned %d of %d", domain.ErrInvalidQuantity, returned, checkout.Quantity)
		}

		item, err := s.repo.GetItemForUpdate(ctx, checkout.ItemID)
		if err != nil {
			return notFound(err, domain.ErrItemNotFound)
		}
		if err := s.repo.UpdateStock(ctx, item.ID, item.Version, item.CurrentStock+returned-defective); err != nil {
			return err
		}

		checkout.ReturnedQuantity = returned
		checkout.DefectiveQuantity = defective
		checkout.ReturnedAt = &now
		if err := s.repo.CloseCheckout(ctx, checkout); err != nil {
			return err
		}

		if err := s.repo.AddHistory(ctx, &models.StockHistory{
			ItemID:       item.ID,
			CheckoutID:   &checkout.ID,
			ChangeAmount: returned,
			Reason:       domain.ReasonCheckin,
			Comment:      fmt.Sprintf("returned %d of %d", returned, checkout.Quantity),
			ActorID:      actor.UserID,
			CreatedAt:    now,
		}); err != nil {
			return err
		}
		if defective == 0 {
			return nil
		}
		return s.repo.AddHistory(ctx, &models.StockHistory{
			ItemID:       item.ID,
			CheckoutID:   &checkout.ID,
			ChangeAmount: -defective,
			Reason:       domain.ReasonWriteOff,
			Comment:      "defective on return",
			ActorID:      actor.UserID,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return err
	}

	s.metrics.StockMutation(string(domain.ReasonCheckin))
	if defective > 0 {
		s.metrics.StockMutation(string(domain.ReasonWriteOff))
	}
	s.logger.Info("item checked in",
		zap.Uint("checkout_id", checkoutID),
		zap.Uint("item_id", checkout.ItemID),
		zap.Uint("actor_id", actor.UserID),
		zap.Int("returned", returned),
		zap.Int("defective", defective),
	)
	return nil
}

// AdjustStockInput represents a manual stock correction
type AdjustStockInput struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required,max=255"`
}

// AdjustStock applies a manual correction. The result may not go below zero.
func (s *InventoryService) AdjustStock(ctx context.Context, actor domain.Actor, itemID uint, delta int, reason string) error {
	if delta == 0 {
		return fmt.Errorf("%w: delta must not be zero", domain.ErrInvalidQuantity)
	}
	if strings.TrimSpace(reason) == "" {
		return domain.Validationf("reason is required")
	}
	return s.mutate(ctx, actor, itemID, delta, domain.ReasonAdjustment, reason)
}

// WriteOffInput represents a write-off of shelf stock
type WriteOffInput struct {
	Quantity int    `json:"quantity" validate:"gt=0"`
	Comment  string `json:"comment" validate:"max=255"`
}

// WriteOff permanently removes lost or damaged units from stock
func (s *InventoryService) WriteOff(ctx context.Context, actor domain.Actor, itemID uint, quantity int, comment string) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidQuantity)
	}
	return s.mutate(ctx, actor, itemID, -quantity, domain.ReasonWriteOff, comment)
}

func (s *InventoryService) mutate(ctx context.Context, actor domain.Actor, itemID uint, delta int, reason domain.StockReason, comment string) error {
	now := s.clock.Now()
	err := s.txr.Transaction(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return notFound(err, domain.ErrItemNotFound)
		}
		next := item.CurrentStock + delta
		if next < 0 {
			return fmt.Errorf("%w: stock %d, change %d", domain.ErrInsufficientStock, item.CurrentStock, delta)
		}
		if err := s.repo.UpdateStock(ctx, item.ID, item.Version, next); err != nil {
			return err
		}
		return s.repo.AddHistory(ctx, &models.StockHistory{
			ItemID:       item.ID,
			ChangeAmount: delta,
			Reason:       reason,
			Comment:      comment,
			ActorID:      actor.UserID,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return err
	}

	s.metrics.StockMutation(string(reason))
	s.logger.Info("stock changed",
		zap.Uint("item_id", itemID),
		zap.Uint("actor_id", actor.UserID),
		zap.Int("delta", delta),
		zap.String("reason", string(reason)),
	)
	return nil
}

// ============================================================
// Reminders
// ============================================================

// OverdueCheckouts yields active checkouts past due whose last reminder is
// older than the cooldown. Each range runs fresh queries in batches.
func (s *InventoryService) OverdueCheckouts(ctx context.Context, now time.Time) iter.Seq2[*models.Checkout, error] {
	return func(yield func(*models.Checkout, error) bool) {
		cutoff := now.Add(-s.reminderCooldown)
		err := s.repo.FindOverdueInBatches(ctx, now, cutoff, overdueBatchSize, func(batch []*models.Checkout) error {
			for _, c := range batch {
				if !yield(c, nil) {
					return errStopIteration
				}
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopIteration) {
			yield(nil, err)
		}
	}
}

// MarkReminderSent stamps the reminder time; calling it again just moves the stamp
func (s *InventoryService) MarkReminderSent(ctx context.Context, checkoutID uint, now time.Time) error {
	return s.repo.MarkReminderSent(ctx, checkoutID, now)
}

// ============================================================
// Statistics
// ============================================================

// InStockStats sums units and value on the shelf
func (s *InventoryService) InStockStats(ctx context.Context) (*repositories.StockStats, error) {
	return s.repo.InStockStats(ctx)
}

// CheckedOutStats sums units and value currently lent out
func (s *InventoryService) CheckedOutStats(ctx context.Context) (*repositories.StockStats, error) {
	return s.repo.CheckedOutStats(ctx)
}

// WriteOffStatsThisMonth sums write-offs in the current calendar month
func (s *InventoryService) WriteOffStatsThisMonth(ctx context.Context) (*repositories.StockStats, error) {
	from, to := monthRange(s.clock.Now())
	return s.repo.WriteOffStats(ctx, from, to)
}
