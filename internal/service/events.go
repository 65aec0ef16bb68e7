package service

import (
	"context"

	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/richardliu001/school-rewards/internal/repo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	aggregateWallet = "Wallet"
	aggregateOrder  = "Order"
	aggregateItem   = "StoreItem"
)

// LedgerEntryEvent is emitted for every committed wallet transaction.
type LedgerEntryEvent struct {
	TransactionID uint64          `json:"transaction_id"`
	StudentID     uint64          `json:"student_id"`
	Currency      model.Currency  `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Reason        model.Reason    `json:"reason"`
	ReferenceID   *string         `json:"reference_id,omitempty"`
	ActorID       *uint64         `json:"actor_id,omitempty"`
}

// OrderStatusEvent is emitted whenever an order is created or changes status.
type OrderStatusEvent struct {
	OrderID   uint64            `json:"order_id"`
	StudentID uint64            `json:"student_id"`
	From      model.OrderStatus `json:"from,omitempty"`
	Status    model.OrderStatus `json:"status"`
	Action    model.OrderAction `json:"action,omitempty"`
	ActorID   *uint64           `json:"actor_id,omitempty"`
}

// StockEvent is emitted for every committed stock movement.
type StockEvent struct {
	StoreItemID uint64            `json:"store_item_id"`
	Delta       int64             `json:"delta"`
	StockAfter  int64             `json:"stock_after"`
	Reason      model.StockReason `json:"reason"`
	ReferenceID string            `json:"reference_id"`
}

func emit(ctx context.Context, r repo.RepositoryInterface, tx *gorm.DB, aggregate string, id uint64, eventType string, payload interface{}) error {
	evt, err := repo.NewOutboxEvent(aggregate, id, eventType, payload)
	if err != nil {
		return err
	}
	return r.CreateOutboxEvent(ctx, tx, evt)
}

func orderEventType(status model.OrderStatus) string {
	switch status {
	case model.OrderPending:
		return "OrderCreated"
	case model.OrderApproved:
		return "OrderApproved"
	case model.OrderPurchased:
		return "OrderPurchased"
	case model.OrderReady:
		return "OrderReady"
	case model.OrderCollected:
		return "OrderCollected"
	default:
		return "OrderCancelled"
	}
}
