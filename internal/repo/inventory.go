package repo

import (
	"context"
	"errors"
	"time"

	"github.com/richardliu001/school-rewards/internal/model"
	"gorm.io/gorm"
)

// CreateItem inserts a store item.
func (r *Repository) CreateItem(ctx context.Context, tx *gorm.DB, item *model.StoreItem) error {
	return r.conn(ctx, tx).Create(item).Error
}

// GetItem loads a store item.
func (r *Repository) GetItem(ctx context.Context, tx *gorm.DB, itemID uint64) (*model.StoreItem, error) {
	var item model.StoreItem
	if err := r.conn(ctx, tx).Where("id = ?", itemID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetItems loads items keyed by id. Missing ids yield ErrItemNotFound.
func (r *Repository) GetItems(ctx context.Context, tx *gorm.DB, itemIDs []uint64) (map[uint64]*model.StoreItem, error) {
	var items []model.StoreItem
	if err := r.conn(ctx, tx).Where("id IN ?", itemIDs).Find(&items).Error; err != nil {
		return nil, err
	}
	out := make(map[uint64]*model.StoreItem, len(items))
	for i := range items {
		out[items[i].ID] = &items[i]
	}
	for _, id := range itemIDs {
		if _, ok := out[id]; !ok {
			return nil, ErrItemNotFound
		}
	}
	return out, nil
}

// ListItems lists a store's catalog.
func (r *Repository) ListItems(ctx context.Context, storeID uint64, activeOnly bool) ([]model.StoreItem, error) {
	var items []model.StoreItem
	q := r.db.WithContext(ctx).Where("store_id = ?", storeID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("name asc").Find(&items).Error
	return items, err
}

// SetItemActive toggles catalog visibility.
func (r *Repository) SetItemActive(ctx context.Context, itemID uint64, active bool) error {
	res := r.db.WithContext(ctx).Model(&model.StoreItem{}).Where("id = ?", itemID).
		Updates(map[string]interface{}{"is_active": active, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// AdjustStock adds delta to stock_quantity in one conditional UPDATE. Negative
// deltas only apply while enough stock remains. Returns the new quantity.
func (r *Repository) AdjustStock(ctx context.Context, tx *gorm.DB, itemID uint64, delta int64) (int64, error) {
	q := tx.WithContext(ctx).Model(&model.StoreItem{}).Where("id = ?", itemID)
	if delta < 0 {
		q = q.Where("stock_quantity >= ?", -delta)
	}
	res := q.Updates(map[string]interface{}{
		"stock_quantity": gorm.Expr("stock_quantity + ?", delta),
		"updated_at":     time.Now(),
	})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetItem(ctx, tx, itemID); err != nil {
			return 0, err
		}
		return 0, ErrInsufficientStock
	}
	item, err := r.GetItem(ctx, tx, itemID)
	if err != nil {
		return 0, err
	}
	return item.StockQuantity, nil
}

// CreateStockMovement records the audit row for a stock change.
func (r *Repository) CreateStockMovement(ctx context.Context, tx *gorm.DB, m *model.StockMovement) error {
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

// FindStockMovement returns the movement for (item, reason, reference), or nil.
func (r *Repository) FindStockMovement(ctx context.Context, tx *gorm.DB, itemID uint64, reason model.StockReason, referenceID string) (*model.StockMovement, error) {
	var m model.StockMovement
	res := r.conn(ctx, tx).
		Where("store_item_id = ? AND reason = ? AND reference_id = ?", itemID, reason, referenceID).
		Limit(1).Find(&m)
	if res.Error != nil || res.RowsAffected == 0 {
		return nil, res.Error
	}
	return &m, nil
}
