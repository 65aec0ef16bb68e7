package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/richardliu001/school-rewards/internal/metrics"
	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/richardliu001/school-rewards/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Inventory owns store item stock. stock_quantity is only written through
// the conditional update in repo.AdjustStock, and every change leaves a
// StockMovement row.
type Inventory struct {
	repo    repo.RepositoryInterface
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

// NewInventory returns Inventory.
func NewInventory(r repo.RepositoryInterface, logger *zap.SugaredLogger, m *metrics.Metrics) *Inventory {
	return &Inventory{repo: r, log: logger, metrics: m}
}

// NewItem is the input for CreateItem.
type NewItem struct {
	StoreID          uint64 `validate:"required"`
	Name             string `validate:"required,max=128"`
	PricePoints      int64  `validate:"gte=0"`
	PriceCash        decimal.Decimal
	StockQuantity    int64 `validate:"gte=0"`
	RequiresApproval bool
	ActorID          *uint64
}

// CreateItem adds a catalog entry. Initial stock is recorded as a restock movement.
func (s *Inventory) CreateItem(ctx context.Context, in NewItem) (*model.StoreItem, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.PriceCash.IsNegative() {
		return nil, fmt.Errorf("%w: price_cash must not be negative", ErrInvalidInput)
	}
	if in.PricePoints == 0 && !in.PriceCash.IsPositive() {
		return nil, fmt.Errorf("%w: item needs a positive points or cash price", ErrInvalidInput)
	}
	item := &model.StoreItem{
		StoreID:          in.StoreID,
		Name:             in.Name,
		PricePoints:      in.PricePoints,
		PriceCash:        in.PriceCash.Round(2),
		StockQuantity:    in.StockQuantity,
		RequiresApproval: in.RequiresApproval,
		IsActive:         true,
	}
	err := s.repo.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateItem(ctx, tx, item); err != nil {
			return err
		}
		if item.StockQuantity == 0 {
			return nil
		}
		return s.record(ctx, tx, item.ID, item.StockQuantity, item.StockQuantity, model.StockRestock, "initial", in.ActorID)
	})
	if err != nil {
		return nil, err
	}
	s.log.Infow("store item created", "item_id", item.ID, "store_id", item.StoreID, "stock", item.StockQuantity)
	return item, nil
}

// GetItem returns a store item.
func (s *Inventory) GetItem(ctx context.Context, itemID uint64) (*model.StoreItem, error) {
	return s.repo.GetItem(ctx, nil, itemID)
}

// ListItems returns a store's catalog.
func (s *Inventory) ListItems(ctx context.Context, storeID uint64, activeOnly bool) ([]model.StoreItem, error) {
	return s.repo.ListItems(ctx, storeID, activeOnly)
}

// SetActive shows or hides an item.
func (s *Inventory) SetActive(ctx context.Context, itemID uint64, active bool) (*model.StoreItem, error) {
	if err := s.repo.SetItemActive(ctx, itemID, active); err != nil {
		return nil, err
	}
	return s.repo.GetItem(ctx, nil, itemID)
}

// DecrementStock removes qty units for an irrevocable purchase identified by
// referenceID. A repeated reference is a no-op. Returns the stock after the call.
func (s *Inventory) DecrementStock(ctx context.Context, tx *gorm.DB, itemID uint64, qty int64, referenceID string, actorID *uint64) (int64, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	return s.move(ctx, tx, itemID, -qty, model.StockOrderPurchase, referenceID, actorID)
}

// RestoreStock puts qty units back for the order identified by referenceID.
func (s *Inventory) RestoreStock(ctx context.Context, tx *gorm.DB, itemID uint64, qty int64, referenceID string, actorID *uint64) (int64, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	return s.move(ctx, tx, itemID, qty, model.StockOrderRestore, referenceID, actorID)
}

// Restore returns goods from a purchased order to stock. The item must be one
// of the order's lines and at most the purchased quantity comes back; a second
// restore for the same line is a no-op.
func (s *Inventory) Restore(ctx context.Context, orderID, itemID uint64, qty int64, actorID *uint64) (*model.StoreItem, error) {
	if orderID == 0 || itemID == 0 {
		return nil, fmt.Errorf("%w: order and item are required", ErrInvalidInput)
	}
	err := s.repo.WithTx(ctx, func(tx *gorm.DB) error {
		o, err := s.repo.GetOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !o.Status.Purchased() {
			return fmt.Errorf("%w: order %d is %s", ErrRestoreNotAllowed, o.ID, o.Status)
		}
		line := o.Line(itemID)
		if line == nil {
			return fmt.Errorf("%w: item %d is not on order %d", ErrRestoreNotAllowed, itemID, o.ID)
		}
		if qty > line.Quantity {
			return fmt.Errorf("%w: order %d bought %d of item %d", ErrRestoreNotAllowed, o.ID, line.Quantity, itemID)
		}
		_, err = s.RestoreStock(ctx, tx, itemID, qty, o.Reference(), actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Infow("stock restored", "order_id", orderID, "item_id", itemID, "quantity", qty)
	s.metrics.IncStockMovement(string(model.StockOrderRestore))
	return s.repo.GetItem(ctx, nil, itemID)
}

// Restock adds newly delivered units.
func (s *Inventory) Restock(ctx context.Context, itemID uint64, qty int64, actorID *uint64) (*model.StoreItem, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	ref := uuid.NewString()
	err := s.repo.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.move(ctx, tx, itemID, qty, model.StockRestock, ref, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncStockMovement(string(model.StockRestock))
	return s.repo.GetItem(ctx, nil, itemID)
}

func (s *Inventory) move(ctx context.Context, tx *gorm.DB, itemID uint64, delta int64, reason model.StockReason, referenceID string, actorID *uint64) (int64, error) {
	existing, err := s.repo.FindStockMovement(ctx, tx, itemID, reason, referenceID)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		item, err := s.repo.GetItem(ctx, tx, itemID)
		if err != nil {
			return 0, err
		}
		return item.StockQuantity, nil
	}
	after, err := s.repo.AdjustStock(ctx, tx, itemID, delta)
	if err != nil {
		return 0, err
	}
	if err := s.record(ctx, tx, itemID, delta, after, reason, referenceID, actorID); err != nil {
		return 0, err
	}
	return after, nil
}

func (s *Inventory) record(ctx context.Context, tx *gorm.DB, itemID uint64, delta, after int64, reason model.StockReason, referenceID string, actorID *uint64) error {
	m := &model.StockMovement{
		StoreItemID: itemID,
		Delta:       delta,
		Reason:      reason,
		ReferenceID: referenceID,
		ActorID:     actorID,
	}
	if err := s.repo.CreateStockMovement(ctx, tx, m); err != nil {
		return err
	}
	return emit(ctx, s.repo, tx, aggregateItem, itemID, "StockMoved", StockEvent{
		StoreItemID: itemID,
		Delta:       delta,
		StockAfter:  after,
		Reason:      reason,
		ReferenceID: referenceID,
	})
}
