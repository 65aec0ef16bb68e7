package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/richardliu001/school-rewards/internal/metrics"
	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Deposits funds cash wallets with money handed in at the desk. Each deposit
// is keyed by its receipt, so re-submitting a receipt credits nothing new.
type Deposits struct {
	ledger  *Ledger
	configs *PointsConfigs
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewDeposits(l *Ledger, c *PointsConfigs, logger *zap.SugaredLogger, m *metrics.Metrics) *Deposits {
	return &Deposits{ledger: l, configs: c, log: logger, metrics: m}
}

// DepositRequest records cash received for a student.
type DepositRequest struct {
	StudentID uint64 `validate:"required"`
	Amount    decimal.Decimal
	ReceiptID string `validate:"required,max=64"`
	Note      string `validate:"max=255"`
	ActorID   *uint64
}

// DepositCash credits req.Amount to the cash balance when the church takes
// cash and the amount is within its per-deposit cap.
func (d *Deposits) DepositCash(ctx context.Context, req DepositRequest) (*AdjustResult, error) {
	if err := validateInput(req); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	_, cfg, err := d.configs.ForStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if !cfg.IsCashEnabled {
		d.metrics.IncRejection("feature_disabled")
		return nil, fmt.Errorf("%w: cash payments", ErrFeatureDisabled)
	}
	if req.Amount.GreaterThan(cfg.MaxCashDeposit) {
		d.metrics.IncRejection("exceeds_max_deposit")
		return nil, fmt.Errorf("%w: %s > %s", ErrExceedsMaxDeposit, req.Amount, cfg.MaxCashDeposit)
	}

	t, err := d.ledger.Credit(ctx, Entry{
		StudentID:   req.StudentID,
		Currency:    model.CurrencyCash,
		Amount:      req.Amount,
		Reason:      model.ReasonCashDeposit,
		ReferenceID: req.ReceiptID,
		ActorID:     req.ActorID,
		Note:        req.Note,
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidAmount) {
			d.log.Errorw("cash deposit failed", "student_id", req.StudentID, "receipt_id", req.ReceiptID, "err", err)
		}
		return nil, err
	}
	w, err := d.ledger.Wallet(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	return &AdjustResult{Transaction: t, Wallet: w}, nil
}
