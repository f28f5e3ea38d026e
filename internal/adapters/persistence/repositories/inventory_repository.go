package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ibc-intranet/internal/adapters/persistence/models"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/pagination"
)

// inventoryRepository implements InventoryRepository interface
type inventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

// ============================================================
// Items
// ============================================================

func (r *inventoryRepository) CreateItem(ctx context.Context, item *models.InventoryItem) error {
	return conn(ctx, r.db).Create(item).Error
}

func (r *inventoryRepository) GetItem(ctx context.Context, id uint) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := conn(ctx, r.db).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItemForUpdate reads an item and holds its row lock until the transaction ends
func (r *inventoryRepository) GetItemForUpdate(ctx context.Context, id uint) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := forUpdate(conn(ctx, r.db)).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepository) ListItems(ctx context.Context, filter ItemFilter, page *pagination.Params) ([]*models.InventoryItem, int64, error) {
	var items []*models.InventoryItem
	var total int64

	query := conn(ctx, r.db).Model(&models.InventoryItem{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("(name LIKE ? OR location LIKE ?)", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("name").Scopes(page.Scope).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UpdateItemDetails writes descriptive fields only; stock goes through UpdateStock
func (r *inventoryRepository) UpdateItemDetails(ctx context.Context, item *models.InventoryItem) error {
	return conn(ctx, r.db).Model(item).
		Select("name", "category", "location", "description", "unit", "min_stock", "unit_value").
		Updates(item).Error
}

// UpdateStock sets the stock if the row still carries version, and bumps the version.
// A concurrent writer that got there first makes this fail with ErrConflict.
func (r *inventoryRepository) UpdateStock(ctx context.Context, id uint, version, newStock int) error {
	result := conn(ctx, r.db).Model(&models.InventoryItem{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"current_stock": newStock,
			"version":       gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

// DeleteItem soft deletes an item so its history stays readable
func (r *inventoryRepository) DeleteItem(ctx context.Context, id uint) error {
	return conn(ctx, r.db).Delete(&models.InventoryItem{}, id).Error
}

// LowStock lists items below their own threshold, or below defaultMin when they have none
func (r *inventoryRepository) LowStock(ctx context.Context, defaultMin int) ([]*models.InventoryItem, error) {
	var items []*models.InventoryItem
	err := conn(ctx, r.db).
		Where("current_stock < CASE WHEN min_stock > 0 THEN min_stock ELSE ? END", defaultMin).
		Order("current_stock ASC, name ASC").
		Find(&items).Error
	return items, err
}

// ============================================================
// Checkouts
// ============================================================

func (r *inventoryRepository) CreateCheckout(ctx context.Context, c *models.Checkout) error {
	return conn(ctx, r.db).Create(c).Error
}

func (r *inventoryRepository) GetCheckout(ctx context.Context, id uint) (*models.Checkout, error) {
	var c models.Checkout
	if err := conn(ctx, r.db).Preload("Item").First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *inventoryRepository) GetCheckoutForUpdate(ctx context.Context, id uint) (*models.Checkout, error) {
	var c models.Checkout
	if err := forUpdate(conn(ctx, r.db)).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CloseCheckout moves an active checkout to returned. Only one caller can win.
func (r *inventoryRepository) CloseCheckout(ctx context.Context, c *models.Checkout) error {
	result := conn(ctx, r.db).Model(&models.Checkout{}).
		Where("id = ? AND status = ?", c.ID, domain.CheckoutActive).
		Updates(map[string]interface{}{
			"status":             domain.CheckoutReturned,
			"returned_quantity":  c.ReturnedQuantity,
			"defective_quantity": c.DefectiveQuantity,
			"returned_at":        c.ReturnedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrCheckoutAlreadyClosed
	}
	c.Status = domain.CheckoutReturned
	return nil
}

func (r *inventoryRepository) CountActiveCheckouts(ctx context.Context, itemID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Checkout{}).
		Where("item_id = ? AND status = ?", itemID, domain.CheckoutActive).
		Count(&count).Error
	return count, err
}

// ListActiveCheckouts lists active checkouts, all of them when borrowerID is 0
func (r *inventoryRepository) ListActiveCheckouts(ctx context.Context, borrowerID uint) ([]*models.Checkout, error) {
	var list []*models.Checkout
	query := conn(ctx, r.db).Preload("Item").Where("status = ?", domain.CheckoutActive)
	if borrowerID != 0 {
		query = query.Where("borrower_id = ?", borrowerID)
	}
	err := query.Order("due_at ASC").Find(&list).Error
	return list, err
}

// FindOverdueInBatches runs fn over active checkouts due before now whose last
// reminder is missing or not after remindedBefore. Each batch is a separate query.
func (r *inventoryRepository) FindOverdueInBatches(ctx context.Context, now, remindedBefore time.Time, batchSize int, fn func([]*models.Checkout) error) error {
	var batch []*models.Checkout
	result := conn(ctx, r.db).
		Preload("Item").
		Preload("Borrower").
		Where("status = ? AND due_at < ?", domain.CheckoutActive, now).
		Where("(last_reminder_sent_at IS NULL OR last_reminder_sent_at <= ?)", remindedBefore).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		})
	return result.Error
}

func (r *inventoryRepository) MarkReminderSent(ctx context.Context, id uint, at time.Time) error {
	return conn(ctx, r.db).Model(&models.Checkout{}).
		Where("id = ?", id).
		UpdateColumn("last_reminder_sent_at", at).Error
}

// ============================================================
// Stock History
// ============================================================

func (r *inventoryRepository) AddHistory(ctx context.Context, h *models.StockHistory) error {
	return conn(ctx, r.db).Create(h).Error
}

func (r *inventoryRepository) ListHistory(ctx context.Context, itemID uint) ([]*models.StockHistory, error) {
	var records []*models.StockHistory
	err := conn(ctx, r.db).
		Where("item_id = ?", itemID).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	return records, err
}

// ============================================================
// Statistics
// ============================================================

type unitsValueRow struct {
	Units     int64
	UnitValue decimal.Decimal
}

func sumRows(rows []unitsValueRow) *StockStats {
	stats := &StockStats{Value: decimal.Zero}
	for _, row := range rows {
		stats.Count++
		stats.Units += row.Units
		stats.Value = stats.Value.Add(row.UnitValue.Mul(decimal.NewFromInt(row.Units)))
	}
	return stats
}

// InStockStats sums stock on the shelf over all items
func (r *inventoryRepository) InStockStats(ctx context.Context) (*StockStats, error) {
	var rows []unitsValueRow
	err := conn(ctx, r.db).Model(&models.InventoryItem{}).
		Select("current_stock AS units, unit_value").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return sumRows(rows), nil
}

// CheckedOutStats sums units currently lent out
func (r *inventoryRepository) CheckedOutStats(ctx context.Context) (*StockStats, error) {
	var rows []unitsValueRow
	err := conn(ctx, r.db).Table("checkouts").
		Select("checkouts.quantity AS units, inventory_items.unit_value").
		Joins("JOIN inventory_items ON inventory_items.id = checkouts.item_id").
		Where("checkouts.status = ?", domain.CheckoutActive).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return sumRows(rows), nil
}

// WriteOffStats sums written-off units in [from, to)
func (r *inventoryRepository) WriteOffStats(ctx context.Context, from, to time.Time) (*StockStats, error) {
	var rows []unitsValueRow
	err := conn(ctx, r.db).Table("stock_history").
		Select("-stock_history.change_amount AS units, inventory_items.unit_value").
		Joins("JOIN inventory_items ON inventory_items.id = stock_history.item_id").
		Where("stock_history.reason = ?", domain.ReasonWriteOff).
		Where("stock_history.created_at >= ? AND stock_history.created_at < ?", from, to).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return sumRows(rows), nil
}
