package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ibc-intranet/internal/core/domain"
)

// InventoryItem represents inventory_items table.
// CurrentStock changes only through the stock engine, which bumps Version on every write.
type InventoryItem struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"size:150;not null;index" json:"name"`
	Category     string          `gorm:"size:80;index" json:"category"`
	Location     string          `gorm:"size:120" json:"location"`
	Description  string          `gorm:"type:text" json:"description"`
	CurrentStock int             `gorm:"not null;default:0" json:"current_stock"`
	Unit         string          `gorm:"size:30;default:'pcs'" json:"unit"`
	MinStock     int             `gorm:"not null;default:0" json:"min_stock"`
	UnitValue    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"unit_value"`
	Version      int             `gorm:"not null;default:1" json:"version"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (InventoryItem) TableName() string {
	return "inventory_items"
}

// EffectiveMinStock returns the item threshold, or fallback when the item has none
func (i *InventoryItem) EffectiveMinStock(fallback int) int {
	if i.MinStock > 0 {
		return i.MinStock
	}
	return fallback
}

// Checkout represents checkouts table
type Checkout struct {
	ID                 uint                  `gorm:"primaryKey" json:"id"`
	ItemID             uint                  `gorm:"not null;index" json:"item_id"`
	BorrowerID         uint                  `gorm:"not null;index" json:"borrower_id"`
	Quantity           int                   `gorm:"not null" json:"quantity"`
	Destination        string                `gorm:"size:200" json:"destination"`
	CheckedOutAt       time.Time             `gorm:"not null" json:"checked_out_at"`
	DueAt              time.Time             `gorm:"not null;index" json:"due_at"`
	Status             domain.CheckoutStatus `gorm:"size:20;not null;index;default:'active'" json:"status"`
	ReturnedQuantity   int                   `gorm:"not null;default:0" json:"returned_quantity"`
	DefectiveQuantity  int                   `gorm:"not null;default:0" json:"defective_quantity"`
	ReturnedAt         *time.Time            `json:"returned_at"`
	LastReminderSentAt *time.Time            `json:"last_reminder_sent_at"`
	CreatedAt          time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time             `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Item     *InventoryItem `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Borrower *User          `gorm:"foreignKey:BorrowerID" json:"borrower,omitempty"`
}

func (Checkout) TableName() string {
	return "checkouts"
}

// IsOverdue reports whether an active checkout is past its due date
func (c *Checkout) IsOverdue(now time.Time) bool {
	return c.Status == domain.CheckoutActive && now.After(c.DueAt)
}

// StockHistory is the append-only audit trail of stock changes
type StockHistory struct {
	ID           uint               `gorm:"primaryKey" json:"id"`
	ItemID       uint               `gorm:"not null;index" json:"item_id"`
	CheckoutID   *uint              `gorm:"index" json:"checkout_id"`
	ChangeAmount int                `gorm:"not null" json:"change_amount"`
	Reason       domain.StockReason `gorm:"size:20;not null;index" json:"reason"`
	Comment      string             `gorm:"size:255" json:"comment"`
	ActorID      uint               `gorm:"not null" json:"actor_id"`
	CreatedAt    time.Time          `gorm:"not null;index" json:"created_at"`

	// Relations
	Item  *InventoryItem `gorm:"foreignKey:ItemID" json:"-"`
	Actor *User          `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

func (StockHistory) TableName() string {
	return "stock_history"
}
