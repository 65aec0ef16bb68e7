package repo

import (
	"context"
	"errors"
	"time"

	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateWallet inserts w unless the student already has a wallet.
func (r *Repository) CreateWallet(ctx context.Context, tx *gorm.DB, w *model.Wallet) error {
	return r.conn(ctx, tx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "student_id"}}, DoNothing: true}).
		Create(w).Error
}

// GetWallet loads a wallet without locking.
func (r *Repository) GetWallet(ctx context.Context, tx *gorm.DB, studentID uint64) (*model.Wallet, error) {
	var w model.Wallet
	if err := r.conn(ctx, tx).Where("student_id = ?", studentID).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

// ApplyBalanceDelta adds delta to the cached balance in one conditional UPDATE.
// Negative deltas only apply while the balance covers them; otherwise nothing
// is written and ErrInsufficientFunds is returned. Returns the new balance.
func (r *Repository) ApplyBalanceDelta(ctx context.Context, tx *gorm.DB, studentID uint64, currency model.Currency, delta decimal.Decimal) (decimal.Decimal, error) {
	col := currency.BalanceColumn()
	q := tx.WithContext(ctx).Model(&model.Wallet{}).Where("student_id = ?", studentID)
	if delta.IsNegative() {
		q = q.Where(col+" >= ?", balanceArg(currency, delta.Neg()))
	}
	res := q.Updates(map[string]interface{}{
		col:          gorm.Expr(col+" + ?", balanceArg(currency, delta)),
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetWallet(ctx, tx, studentID); err != nil {
			return decimal.Zero, err
		}
		return decimal.Zero, ErrInsufficientFunds
	}
	w, err := r.GetWallet(ctx, tx, studentID)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance(currency), nil
}

// balanceArg binds points as integers so the bigint column never sees a numeric literal.
func balanceArg(currency model.Currency, amt decimal.Decimal) interface{} {
	if currency == model.CurrencyPoints {
		return amt.IntPart()
	}
	return amt
}

// CreateTransaction inserts record.
func (r *Repository) CreateTransaction(ctx context.Context, tx *gorm.DB, t *model.WalletTransaction) error {
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

// FindTransaction returns the entry for (student, reason, reference), or nil when none exists.
func (r *Repository) FindTransaction(ctx context.Context, tx *gorm.DB, studentID uint64, reason model.Reason, referenceID string) (*model.WalletTransaction, error) {
	if referenceID == "" {
		return nil, nil
	}
	var t model.WalletTransaction
	res := r.conn(ctx, tx).
		Where("student_id = ? AND reason = ? AND reference_id = ?", studentID, reason, referenceID).
		Limit(1).Find(&t)
	if res.Error != nil || res.RowsAffected == 0 {
		return nil, res.Error
	}
	return &t, nil
}

// ListTransactions returns the newest entries first. An empty currency lists both.
func (r *Repository) ListTransactions(ctx context.Context, studentID uint64, currency model.Currency, limit int) ([]model.WalletTransaction, error) {
	var txs []model.WalletTransaction
	q := r.db.WithContext(ctx).Where("student_id = ?", studentID)
	if currency != "" {
		q = q.Where("currency = ?", currency)
	}
	err := q.Order("created_at desc").Order("id desc").Limit(limit).Find(&txs).Error
	return txs, err
}

// SumTransactions recomputes a balance from the ledger.
func (r *Repository) SumTransactions(ctx context.Context, studentID uint64, currency model.Currency) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := r.db.WithContext(ctx).Model(&model.WalletTransaction{}).
		Where("student_id = ? AND currency = ?", studentID, currency).
		Pluck("amount", &amounts).Error
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}
