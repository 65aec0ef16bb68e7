package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/richardliu001/school-rewards/internal/metrics"
	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const minNoteLength = 3

// Adjustments lets teachers credit or deduct points by hand, within the
// church's per-adjustment cap.
type Adjustments struct {
	ledger  *Ledger
	configs *PointsConfigs
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewAdjustments(l *Ledger, c *PointsConfigs, logger *zap.SugaredLogger, m *metrics.Metrics) *Adjustments {
	return &Adjustments{ledger: l, configs: c, log: logger, metrics: m}
}

// AdjustRequest is a teacher's manual points change.
type AdjustRequest struct {
	StudentID uint64 `validate:"required"`
	Delta     int64
	Note      string `validate:"max=255"`
	ActorID   *uint64
}

// AdjustResult is the committed entry and the wallet after it.
type AdjustResult struct {
	Transaction *model.WalletTransaction
	Wallet      *model.Wallet
}

// AdjustPoints applies req. Policy checks run before the ledger is touched.
func (a *Adjustments) AdjustPoints(ctx context.Context, req AdjustRequest) (*AdjustResult, error) {
	if err := validateInput(req); err != nil {
		return nil, err
	}
	if req.Delta == 0 {
		return nil, ErrInvalidAmount
	}
	note := strings.TrimSpace(req.Note)
	if utf8.RuneCountInString(note) < minNoteLength {
		return nil, ErrNoteTooShort
	}
	_, cfg, err := a.configs.ForStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if !cfg.IsTeacherAdjustmentEnabled {
		a.metrics.IncRejection("feature_disabled")
		return nil, ErrFeatureDisabled
	}
	magnitude := req.Delta
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if magnitude > cfg.MaxTeacherAdjustment {
		a.metrics.IncRejection("exceeds_max_adjustment")
		return nil, &AdjustmentLimitError{Delta: req.Delta, Max: cfg.MaxTeacherAdjustment}
	}

	e := Entry{
		StudentID:   req.StudentID,
		Currency:    model.CurrencyPoints,
		Amount:      decimal.NewFromInt(magnitude),
		Reason:      model.ReasonTeacherAdjustment,
		ReferenceID: uuid.NewString(),
		ActorID:     req.ActorID,
		Note:        note,
	}
	var t *model.WalletTransaction
	if req.Delta > 0 {
		t, err = a.ledger.Credit(ctx, e)
	} else {
		t, err = a.ledger.Debit(ctx, e)
	}
	if err != nil {
		if !errors.Is(err, ErrInsufficientFunds) {
			a.log.Errorw("teacher adjustment failed", "student_id", req.StudentID, "delta", req.Delta, "err", err)
		}
		return nil, err
	}
	w, err := a.ledger.Wallet(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	return &AdjustResult{Transaction: t, Wallet: w}, nil
}
