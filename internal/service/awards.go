package service

import (
	"context"
	"fmt"

	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/shopspring/decimal"
)

// Awards credits the church-configured points for attendance and trips.
// One award per (student, reference); repeats return the first entry.
type Awards struct {
	ledger  *Ledger
	configs *PointsConfigs
}

func NewAwards(l *Ledger, c *PointsConfigs) *Awards {
	return &Awards{ledger: l, configs: c}
}

// AwardAttendance credits attendance points for the attendance record ref.
// Returns nil when the church awards no attendance points.
func (a *Awards) AwardAttendance(ctx context.Context, studentID uint64, ref string, actorID *uint64) (*model.WalletTransaction, error) {
	return a.award(ctx, studentID, model.ReasonAttendanceAward, ref, actorID, func(c *model.PointsConfig) int64 { return c.AttendancePoints })
}

// AwardTrip credits trip points for the trip ref.
func (a *Awards) AwardTrip(ctx context.Context, studentID uint64, ref string, actorID *uint64) (*model.WalletTransaction, error) {
	return a.award(ctx, studentID, model.ReasonTripAward, ref, actorID, func(c *model.PointsConfig) int64 { return c.TripPoints })
}

func (a *Awards) award(ctx context.Context, studentID uint64, reason model.Reason, ref string, actorID *uint64, points func(*model.PointsConfig) int64) (*model.WalletTransaction, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrInvalidInput)
	}
	_, cfg, err := a.configs.ForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	amount := points(cfg)
	if amount <= 0 {
		return nil, nil
	}
	return a.ledger.Credit(ctx, Entry{
		StudentID:   studentID,
		Currency:    model.CurrencyPoints,
		Amount:      decimal.NewFromInt(amount),
		Reason:      reason,
		ReferenceID: ref,
		ActorID:     actorID,
	})
}
