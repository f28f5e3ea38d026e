package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ibc-intranet/internal/adapters/persistence/models"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/pagination"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, page *pagination.Params) ([]*models.User, int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	RecordLoginFailure(ctx context.Context, id uint, threshold int, lockUntil time.Time) error
	RecordLoginSuccess(ctx context.Context, id uint, at time.Time) error
	CountByRole(ctx context.Context) (map[domain.Role]int64, error)
}

// ItemFilter narrows an inventory listing
type ItemFilter struct {
	Category string
	Search   string
}

// StockStats aggregates units and value of a set of items or checkouts
type StockStats struct {
	Count int64           `json:"count"`
	Units int64           `json:"units"`
	Value decimal.Decimal `json:"value"`
}

// InventoryRepository defines inventory, checkout and stock history access
type InventoryRepository interface {
	CreateItem(ctx context.Context, item *models.InventoryItem) error
	GetItem(ctx context.Context, id uint) (*models.InventoryItem, error)
	GetItemForUpdate(ctx context.Context, id uint) (*models.InventoryItem, error)
	ListItems(ctx context.Context, filter ItemFilter, page *pagination.Params) ([]*models.InventoryItem, int64, error)
	UpdateItemDetails(ctx context.Context, item *models.InventoryItem) error
	UpdateStock(ctx context.Context, id uint, version, newStock int) error
	DeleteItem(ctx context.Context, id uint) error
	LowStock(ctx context.Context, defaultMin int) ([]*models.InventoryItem, error)

	CreateCheckout(ctx context.Context, c *models.Checkout) error
	GetCheckout(ctx context.Context, id uint) (*models.Checkout, error)
	GetCheckoutForUpdate(ctx context.Context, id uint) (*models.Checkout, error)
	CloseCheckout(ctx context.Context, c *models.Checkout) error
	CountActiveCheckouts(ctx context.Context, itemID uint) (int64, error)
	ListActiveCheckouts(ctx context.Context, borrowerID uint) ([]*models.Checkout, error)
	FindOverdueInBatches(ctx context.Context, now, remindedBefore time.Time, batchSize int, fn func([]*models.Checkout) error) error
	MarkReminderSent(ctx context.Context, id uint, at time.Time) error

	AddHistory(ctx context.Context, h *models.StockHistory) error
	ListHistory(ctx context.Context, itemID uint) ([]*models.StockHistory, error)

	InStockStats(ctx context.Context) (*StockStats, error)
	CheckedOutStats(ctx context.Context) (*StockStats, error)
	WriteOffStats(ctx context.Context, from, to time.Time) (*StockStats, error)
}

// InvitationRepository defines invitation repository interface
type InvitationRepository interface {
	Create(ctx context.Context, inv *models.Invitation) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Invitation, error)
	HasOpen(ctx context.Context, email string, now time.Time) (bool, error)
	ExpireStale(ctx context.Context, email string, now time.Time) (int64, error)
	MarkUsed(ctx context.Context, id, userID uint, at time.Time) error
	MarkExpired(ctx context.Context, id uint) error
	List(ctx context.Context, status domain.InvitationStatus, page *pagination.Params) ([]*models.Invitation, int64, error)
	CountOpen(ctx context.Context, now time.Time) (int64, error)
}

// EventRepository defines event and helper signup access
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uint) (*models.Event, error)
	ListUpcoming(ctx context.Context, now time.Time, limit int) ([]*models.Event, error)
	GetSlotForUpdate(ctx context.Context, slotID uint) (*models.HelperSlot, error)
	CountSignups(ctx context.Context, slotID uint) (int64, error)
	HasSignup(ctx context.Context, slotID, userID uint) (bool, error)
	CreateSignup(ctx context.Context, s *models.HelperSignup) error
	DeleteSignup(ctx context.Context, slotID, userID uint) (int64, error)
}

// ProjectRepository defines project and application access
type ProjectRepository interface {
	Create(ctx context.Context, p *models.Project) error
	GetByID(ctx context.Context, id uint) (*models.Project, error)
	List(ctx context.Context, status domain.ProjectStatus, page *pagination.Params) ([]*models.Project, int64, error)
	Close(ctx context.Context, id uint, at time.Time) (int64, error)
	CreateApplication(ctx context.Context, a *models.ProjectApplication) error
	HasApplication(ctx context.Context, projectID, userID uint) (bool, error)
	GetApplication(ctx context.Context, id uint) (*models.ProjectApplication, error)
	ListApplications(ctx context.Context, projectID uint) ([]*models.ProjectApplication, error)
	Review(ctx context.Context, id uint, status domain.ApplicationStatus, reviewer uint, at time.Time) (int64, error)
	CountPending(ctx context.Context) (int64, error)
}
