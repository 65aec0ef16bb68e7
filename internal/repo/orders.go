package repo

import (
	"context"
	"errors"
	"time"

	"github.com/richardliu001/school-rewards/internal/model"
	"gorm.io/gorm"
)

// CreateOrder inserts the order with its lines.
func (r *Repository) CreateOrder(ctx context.Context, tx *gorm.DB, o *model.Order) error {
	return r.conn(ctx, tx).Create(o).Error
}

// GetOrder loads an order and its lines.
func (r *Repository) GetOrder(ctx context.Context, tx *gorm.DB, orderID uint64) (*model.Order, error) {
	var o model.Order
	err := r.conn(ctx, tx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("store_item_id asc") }).
		Where("id = ?", orderID).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

// ListOrders lists a student's orders, newest first. An empty status lists all.
func (r *Repository) ListOrders(ctx context.Context, studentID uint64, status model.OrderStatus) ([]model.Order, error) {
	var orders []model.Order
	q := r.db.WithContext(ctx).Preload("Items").Where("student_id = ?", studentID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("created_at desc").Order("id desc").Find(&orders).Error
	return orders, err
}

// TransitionOrder moves an order from one status to another. Exactly one
// concurrent caller wins; the rest get ErrStatusConflict.
func (r *Repository) TransitionOrder(ctx context.Context, tx *gorm.DB, orderID uint64, from, to model.OrderStatus, adminNotes string) error {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if adminNotes != "" {
		updates["admin_notes"] = adminNotes
	}
	res := r.conn(ctx, tx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}
