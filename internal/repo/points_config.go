package repo

import (
	"context"

	"github.com/richardliu001/school-rewards/internal/model"
)

// GetPointsConfig returns the church's stored policy, or nil when none is stored.
func (r *Repository) GetPointsConfig(ctx context.Context, churchID uint64) (*model.PointsConfig, error) {
	var cfg model.PointsConfig
	res := r.db.WithContext(ctx).Where("church_id = ?", churchID).Limit(1).Find(&cfg)
	if res.Error != nil || res.RowsAffected == 0 {
		return nil, res.Error
	}
	return &cfg, nil
}

// SavePointsConfig inserts or replaces a church's policy.
func (r *Repository) SavePointsConfig(ctx context.Context, cfg *model.PointsConfig) error {
	return r.db.WithContext(ctx).Save(cfg).Error
}
