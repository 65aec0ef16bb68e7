package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StoreItem is a purchasable catalog entry with finite stock.
type StoreItem struct {
	ID               uint64          `gorm:"primaryKey" json:"id"`
	StoreID          uint64          `gorm:"not null;index" json:"store_id"`
	Name             string          `gorm:"size:128;not null" json:"name"`
	PricePoints      int64           `gorm:"not null;default:0" json:"price_points"`
	PriceCash        decimal.Decimal `gorm:"type:numeric(20,2);not null;default:'0'" json:"price_cash"`
	StockQuantity    int64           `gorm:"not null;default:0" json:"stock_quantity"`
	RequiresApproval bool            `gorm:"not null" json:"requires_approval"`
	IsActive         bool            `gorm:"not null" json:"is_active"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (StoreItem) TableName() string { return "store_items" }

// UnitPrice returns the item price for the given payment method.
func (i *StoreItem) UnitPrice(p PaymentMethod) decimal.Decimal {
	if p == PaymentCash {
		return i.PriceCash
	}
	return decimal.NewFromInt(i.PricePoints)
}

// StockMovement audits a single change to StoreItem.StockQuantity.
type StockMovement struct {
	ID          uint64      `gorm:"primaryKey" json:"id"`
	StoreItemID uint64      `gorm:"not null;uniqueIndex:idx_stock_movement_ref,priority:1" json:"store_item_id"`
	Delta       int64       `gorm:"not null" json:"delta"`
	Reason      StockReason `gorm:"size:32;not null;uniqueIndex:idx_stock_movement_ref,priority:2" json:"reason"`
	ReferenceID string      `gorm:"size:64;not null;uniqueIndex:idx_stock_movement_ref,priority:3" json:"reference_id"`
	ActorID     *uint64     `json:"actor_id,omitempty"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

func (StockMovement) TableName() string { return "stock_movements" }
