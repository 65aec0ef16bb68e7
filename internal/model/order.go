package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a student's request to buy store items. Totals are frozen at creation.
type Order struct {
	ID            uint64          `gorm:"primaryKey" json:"id"`
	StudentID     uint64          `gorm:"not null;index" json:"student_id"`
	StoreItemID   *uint64         `gorm:"index" json:"store_item_id,omitempty"`
	Quantity      int64           `gorm:"not null" json:"quantity"`
	PaymentMethod PaymentMethod   `gorm:"size:16;not null" json:"payment_method"`
	TotalPoints   int64           `gorm:"not null;default:0" json:"total_points"`
	TotalCash     decimal.Decimal `gorm:"type:numeric(20,2);not null;default:'0'" json:"total_cash"`
	Status        OrderStatus     `gorm:"size:16;not null;index" json:"status"`
	Notes         string          `gorm:"size:500" json:"notes,omitempty"`
	AdminNotes    string          `gorm:"size:500" json:"admin_notes,omitempty"`
	Items         []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// Reference is the ledger and stock reference id for this order.
func (o *Order) Reference() string {
	return strconv.FormatUint(o.ID, 10)
}

// Total returns the frozen order total in the payment currency.
func (o *Order) Total() decimal.Decimal {
	if o.PaymentMethod == PaymentCash {
		return o.TotalCash
	}
	return decimal.NewFromInt(o.TotalPoints)
}

// Line returns the order line for itemID, or nil.
func (o *Order) Line(itemID uint64) *OrderItem {
	for i := range o.Items {
		if o.Items[i].StoreItemID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// RequiresApproval reports whether any line needs a manager's approval.
func (o *Order) RequiresApproval(items map[uint64]*StoreItem) bool {
	for _, line := range o.Items {
		item, ok := items[line.StoreItemID]
		if !ok || item.RequiresApproval {
			return true
		}
	}
	return false
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID          uint64          `gorm:"primaryKey" json:"id"`
	OrderID     uint64          `gorm:"not null;index" json:"order_id"`
	StoreItemID uint64          `gorm:"not null" json:"store_item_id"`
	Quantity    int64           `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"unit_price"`
	TotalPrice  decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"total_price"`
}

func (OrderItem) TableName() string { return "order_items" }
