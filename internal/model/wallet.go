package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet caches a student's balances. The ledger in wallet_transactions is the source of truth.
type Wallet struct {
	StudentID     uint64          `gorm:"primaryKey;column:student_id;autoIncrement:false" json:"student_id"`
	ChurchID      uint64          `gorm:"not null;index" json:"church_id"`
	PointsBalance int64           `gorm:"not null;default:0" json:"points_balance"`
	CashBalance   decimal.Decimal `gorm:"type:numeric(20,2);not null;default:'0'" json:"cash_balance"`
	Version       uint64          `gorm:"not null;default:0" json:"-"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Wallet) TableName() string { return "wallets" }

// Balance returns the cached balance for c.
func (w *Wallet) Balance(c Currency) decimal.Decimal {
	if c == CurrencyCash {
		return w.CashBalance
	}
	return decimal.NewFromInt(w.PointsBalance)
}
