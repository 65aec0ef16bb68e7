package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletTransaction is an immutable ledger entry. Amount is signed: credits are
// positive, debits negative. Refunds are new offsetting rows.
type WalletTransaction struct {
	ID           uint64          `gorm:"primaryKey" json:"id"`
	StudentID    uint64          `gorm:"not null;index;uniqueIndex:idx_wallet_tx_ref,priority:1" json:"student_id"`
	Amount       decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Currency     Currency        `gorm:"size:16;not null" json:"currency"`
	Reason       Reason          `gorm:"size:32;not null;uniqueIndex:idx_wallet_tx_ref,priority:2" json:"reason"`
	ReferenceID  *string         `gorm:"size:64;uniqueIndex:idx_wallet_tx_ref,priority:3" json:"reference_id,omitempty"`
	ActorID      *uint64         `json:"actor_id,omitempty"`
	BalanceAfter decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"balance_after"`
	Note         string          `gorm:"size:255" json:"note,omitempty"`
	CreatedAt    time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (WalletTransaction) TableName() string { return "wallet_transactions" }
