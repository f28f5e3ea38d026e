package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ibc-intranet/internal/adapters/persistence/models"
	"ibc-intranet/internal/adapters/persistence/repositories"
	"ibc-intranet/internal/core/domain"
)

const (
	dashboardEvents   = 5
	dashboardActivity = 10
)

// DashboardService handles dashboard operations
type DashboardService struct {
	db          *gorm.DB
	userRepo    repositories.UserRepository
	inventory   *InventoryService
	invitations *InvitationService
	events      *EventService
	projects    *ProjectService
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	inventory *InventoryService,
	invitations *InvitationService,
	events *EventService,
	projects *ProjectService,
) *DashboardService {
	return &DashboardService{
		db:          db,
		userRepo:    userRepo,
		inventory:   inventory,
		invitations: invitations,
		events:      events,
		projects:    projects,
	}
}

// DashboardData represents the board dashboard
type DashboardData struct {
	// Users
	UsersByRole map[domain.Role]int64 `json:"users_by_role"`
	TotalUsers  int64                 `json:"total_users"`

	// Inventory
	InStock           *repositories.StockStats `json:"in_stock"`
	CheckedOut        *repositories.StockStats `json:"checked_out"`
	WrittenOffMonth   *repositories.StockStats `json:"written_off_this_month"`
	LowStockCount     int                      `json:"low_stock_count"`
	OverdueCheckouts  int64                    `json:"overdue_checkouts"`
	RecentStockEvents []StockActivity          `json:"recent_stock_events"`

	// People
	OpenInvitations     int64           `json:"open_invitations"`
	PendingApplications int64           `json:"pending_applications"`
	UpcomingEvents      []*models.Event `json:"upcoming_events"`
}

// StockActivity is one line of the recent stock activity feed
type StockActivity struct {
	ItemID       uint      `json:"item_id"`
	ItemName     string    `json:"item_name"`
	ChangeAmount int       `json:"change_amount"`
	Reason       string    `json:"reason"`
	Actor        string    `json:"actor"`
	CreatedAt    time.Time `json:"created_at"`
}

// GetDashboard collects the read-only overview
func (s *DashboardService) GetDashboard(ctx context.Context) (*DashboardData, error) {
	data := &DashboardData{}
	var err error

	if data.UsersByRole, err = s.userRepo.CountByRole(ctx); err != nil {
		return nil, err
	}
	for _, n := range data.UsersByRole {
		data.TotalUsers += n
	}

	if data.InStock, err = s.inventory.InStockStats(ctx); err != nil {
		return nil, err
	}
	if data.CheckedOut, err = s.inventory.CheckedOutStats(ctx); err != nil {
		return nil, err
	}
	if data.WrittenOffMonth, err = s.inventory.WriteOffStatsThisMonth(ctx); err != nil {
		return nil, err
	}

	low, err := s.inventory.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	data.LowStockCount = len(low)

	err = s.db.WithContext(ctx).Model(&models.Checkout{}).
		Where("status = ? AND due_at < ?", domain.CheckoutActive, s.inventory.clock.Now()).
		Count(&data.OverdueCheckouts).Error
	if err != nil {
		return nil, err
	}

	if data.RecentStockEvents, err = s.recentActivity(ctx); err != nil {
		return nil, err
	}

	if data.OpenInvitations, err = s.invitations.CountOpen(ctx); err != nil {
		return nil, err
	}
	if data.PendingApplications, err = s.projects.CountPending(ctx); err != nil {
		return nil, err
	}
	if data.UpcomingEvents, err = s.events.ListUpcoming(ctx, dashboardEvents); err != nil {
		return nil, err
	}

	return data, nil
}

func (s *DashboardService) recentActivity(ctx context.Context) ([]StockActivity, error) {
	activity := []StockActivity{}
	err := s.db.WithContext(ctx).Table("stock_history").
		Select(`stock_history.item_id, inventory_items.name AS item_name,
			stock_history.change_amount, stock_history.reason,
			users.username AS actor, stock_history.created_at`).
		Joins("JOIN inventory_items ON inventory_items.id = stock_history.item_id").
		Joins("LEFT JOIN users ON users.id = stock_history.actor_id").
		Order("stock_history.created_at DESC, stock_history.id DESC").
		Limit(dashboardActivity).
		Scan(&activity).Error
	return activity, err
}
