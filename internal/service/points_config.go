package service

import (
	"context"
	"fmt"

	"github.com/richardliu001/school-rewards/internal/config"
	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/richardliu001/school-rewards/internal/repo"
	"go.uber.org/zap"
)

// PointsConfigs serves per-church points policy. Churches without a stored
// row get the process-wide defaults.
type PointsConfigs struct {
	repo     repo.RepositoryInterface
	defaults config.PointsDefaults
	log      *zap.SugaredLogger
}

func NewPointsConfigs(r repo.RepositoryInterface, defaults config.PointsDefaults, logger *zap.SugaredLogger) *PointsConfigs {
	return &PointsConfigs{repo: r, defaults: defaults, log: logger}
}

// Get returns the church's policy.
func (p *PointsConfigs) Get(ctx context.Context, churchID uint64) (*model.PointsConfig, error) {
	if churchID == 0 {
		return nil, fmt.Errorf("%w: church is required", ErrInvalidInput)
	}
	cfg, err := p.repo.GetPointsConfig(ctx, churchID)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}
	d := p.defaults
	return &model.PointsConfig{
		ChurchID:                   churchID,
		AttendancePoints:           d.AttendancePoints,
		TripPoints:                 d.TripPoints,
		MaxTeacherAdjustment:       d.MaxTeacherAdjustment,
		IsTeacherAdjustmentEnabled: d.IsTeacherAdjustmentEnabled,
		IsStoreEnabled:             d.IsStoreEnabled,
		IsCashEnabled:              d.IsCashEnabled,
		MaxCashDeposit:             d.MaxCashDeposit,
	}, nil
}

// ForStudent resolves the policy of the church that owns the student's wallet.
func (p *PointsConfigs) ForStudent(ctx context.Context, studentID uint64) (*model.Wallet, *model.PointsConfig, error) {
	w, err := p.repo.GetWallet(ctx, nil, studentID)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := p.Get(ctx, w.ChurchID)
	if err != nil {
		return nil, nil, err
	}
	return w, cfg, nil
}

// Upsert stores a church's policy.
func (p *PointsConfigs) Upsert(ctx context.Context, cfg model.PointsConfig) (*model.PointsConfig, error) {
	if cfg.ChurchID == 0 {
		return nil, fmt.Errorf("%w: church is required", ErrInvalidInput)
	}
	if cfg.AttendancePoints < 0 || cfg.TripPoints < 0 || cfg.MaxTeacherAdjustment < 0 {
		return nil, fmt.Errorf("%w: points values must not be negative", ErrInvalidInput)
	}
	if cfg.MaxCashDeposit.IsNegative() {
		return nil, fmt.Errorf("%w: max_cash_deposit must not be negative", ErrInvalidInput)
	}
	cfg.MaxCashDeposit = cfg.MaxCashDeposit.Round(cashPlaces)
	if err := p.repo.SavePointsConfig(ctx, &cfg); err != nil {
		return nil, err
	}
	p.log.Infow("points config saved",
		"church_id", cfg.ChurchID,
		"max_teacher_adjustment", cfg.MaxTeacherAdjustment,
		"adjustments_enabled", cfg.IsTeacherAdjustmentEnabled,
		"store_enabled", cfg.IsStoreEnabled,
		"cash_enabled", cfg.IsCashEnabled,
		"max_cash_deposit", cfg.MaxCashDeposit.String())
	return &cfg, nil
}
