package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PointsConfig holds per-church points policy.
type PointsConfig struct {
	ChurchID                   uint64          `gorm:"primaryKey;autoIncrement:false" json:"church_id"`
	AttendancePoints           int64           `gorm:"not null;default:0" json:"attendance_points"`
	TripPoints                 int64           `gorm:"not null;default:0" json:"trip_points"`
	MaxTeacherAdjustment       int64           `gorm:"not null;default:0" json:"max_teacher_adjustment"`
	IsTeacherAdjustmentEnabled bool            `gorm:"not null" json:"is_teacher_adjustment_enabled"`
	IsStoreEnabled             bool            `gorm:"not null" json:"is_store_enabled"`
	IsCashEnabled              bool            `gorm:"not null" json:"is_cash_enabled"`
	MaxCashDeposit             decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"max_cash_deposit"`
	UpdatedAt                  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PointsConfig) TableName() string { return "points_configs" }
