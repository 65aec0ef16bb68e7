package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/richardliu001/school-rewards/internal/metrics"
	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/richardliu001/school-rewards/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500

	// cashPlaces matches the numeric(20,2) balance and amount columns.
	cashPlaces = 2
)

// Ledger owns student balances. Every change appends an immutable
// WalletTransaction and moves the cached balance in the same DB transaction.
type Ledger struct {
	repo    repo.RepositoryInterface
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

// NewLedger returns Ledger.
func NewLedger(r repo.RepositoryInterface, logger *zap.SugaredLogger, m *metrics.Metrics) *Ledger {
	return &Ledger{repo: r, log: logger, metrics: m}
}

// Entry describes one credit or debit. Amount is always positive; the
// operation decides the sign.
type Entry struct {
	StudentID   uint64         `validate:"required"`
	Currency    model.Currency `validate:"required,oneof=points cash"`
	Amount      decimal.Decimal
	Reason      model.Reason `validate:"required"`
	ReferenceID string       `validate:"max=64"`
	ActorID     *uint64
	Note        string `validate:"max=255"`
}

func (e Entry) check() error {
	if err := validateInput(e); err != nil {
		return err
	}
	if !e.Reason.IsValid() {
		return fmt.Errorf("%w: unknown reason %q", ErrInvalidInput, e.Reason)
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if e.Currency == model.CurrencyPoints && !e.Amount.Equal(e.Amount.Truncate(0)) {
		return fmt.Errorf("%w: points must be whole numbers", ErrInvalidAmount)
	}
	if e.Currency == model.CurrencyCash && !e.Amount.Equal(e.Amount.Round(cashPlaces)) {
		return fmt.Errorf("%w: cash has at most %d decimal places", ErrInvalidAmount, cashPlaces)
	}
	return nil
}

// OpenWallet creates an empty wallet for the student if none exists.
func (l *Ledger) OpenWallet(ctx context.Context, studentID, churchID uint64) (*model.Wallet, error) {
	if studentID == 0 || churchID == 0 {
		return nil, fmt.Errorf("%w: student and church are required", ErrInvalidInput)
	}
	if err := l.repo.CreateWallet(ctx, nil, &model.Wallet{StudentID: studentID, ChurchID: churchID}); err != nil {
		return nil, err
	}
	return l.repo.GetWallet(ctx, nil, studentID)
}

// Wallet returns the student's wallet row.
func (l *Ledger) Wallet(ctx context.Context, studentID uint64) (*model.Wallet, error) {
	return l.repo.GetWallet(ctx, nil, studentID)
}

// GetBalance returns the cached balance, reading through Redis.
func (l *Ledger) GetBalance(ctx context.Context, studentID uint64, currency model.Currency) (decimal.Decimal, error) {
	if !currency.IsValid() {
		return decimal.Zero, fmt.Errorf("%w: unknown currency %q", ErrInvalidInput, currency)
	}
	bal, err := l.repo.GetCachedBalance(ctx, studentID, currency)
	if err == nil {
		return bal, nil
	}
	if !errors.Is(err, redis.Nil) {
		l.log.Warnw("balance cache read failed", "student_id", studentID, "err", err)
	}
	w, err := l.repo.GetWallet(ctx, nil, studentID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := l.repo.CacheWallet(ctx, w); err != nil {
		l.log.Warnw("balance cache write failed", "student_id", studentID, "err", err)
	}
	return w.Balance(currency), nil
}

// Credit adds funds. It cannot violate the non-negative invariant.
func (l *Ledger) Credit(ctx context.Context, e Entry) (*model.WalletTransaction, error) {
	return l.run(ctx, e, false)
}

// Debit removes funds, failing with ErrInsufficientFunds when the balance does not cover them.
func (l *Ledger) Debit(ctx context.Context, e Entry) (*model.WalletTransaction, error) {
	return l.run(ctx, e, true)
}

// CreditTx is Credit inside a caller-owned transaction.
func (l *Ledger) CreditTx(ctx context.Context, tx *gorm.DB, e Entry) (*model.WalletTransaction, error) {
	t, _, err := l.post(ctx, tx, e, false)
	return t, err
}

// DebitTx is Debit inside a caller-owned transaction.
func (l *Ledger) DebitTx(ctx context.Context, tx *gorm.DB, e Entry) (*model.WalletTransaction, error) {
	t, _, err := l.post(ctx, tx, e, true)
	return t, err
}

func (l *Ledger) run(ctx context.Context, e Entry, debit bool) (*model.WalletTransaction, error) {
	var (
		out     *model.WalletTransaction
		created bool
	)
	err := l.repo.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		out, created, err = l.post(ctx, tx, e, debit)
		return err
	})
	if errors.Is(err, repo.ErrDuplicateReference) {
		// lost an insert race with an identical retry; the winner's row is the answer
		existing, ferr := l.repo.FindTransaction(ctx, nil, e.StudentID, e.Reason, e.ReferenceID)
		if ferr != nil {
			return nil, ferr
		}
		if existing != nil {
			return existing, nil
		}
	}
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			l.metrics.IncRejection("insufficient_funds")
		}
		return nil, err
	}
	if created {
		l.Committed(ctx, out)
	}
	return out, nil
}

// post writes one entry. created is false when an earlier entry with the same
// reference is returned instead.
func (l *Ledger) post(ctx context.Context, tx *gorm.DB, e Entry, debit bool) (t *model.WalletTransaction, created bool, err error) {
	if err := e.check(); err != nil {
		return nil, false, err
	}
	if e.Reason.Idempotent() && e.ReferenceID != "" {
		existing, err := l.repo.FindTransaction(ctx, tx, e.StudentID, e.Reason, e.ReferenceID)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
	}

	delta := e.Amount
	if debit {
		delta = delta.Neg()
	}
	bal, err := l.repo.ApplyBalanceDelta(ctx, tx, e.StudentID, e.Currency, delta)
	if err != nil {
		return nil, false, err
	}

	t = &model.WalletTransaction{
		StudentID:    e.StudentID,
		Amount:       delta,
		Currency:     e.Currency,
		Reason:       e.Reason,
		ActorID:      e.ActorID,
		BalanceAfter: bal,
		Note:         e.Note,
	}
	if e.ReferenceID != "" {
		ref := e.ReferenceID
		t.ReferenceID = &ref
	}
	if err := l.repo.CreateTransaction(ctx, tx, t); err != nil {
		return nil, false, err
	}
	evt := LedgerEntryEvent{
		TransactionID: t.ID,
		StudentID:     t.StudentID,
		Currency:      t.Currency,
		Amount:        t.Amount,
		BalanceAfter:  t.BalanceAfter,
		Reason:        t.Reason,
		ReferenceID:   t.ReferenceID,
		ActorID:       t.ActorID,
	}
	if err := emit(ctx, l.repo, tx, aggregateWallet, t.StudentID, "WalletTransactionRecorded", evt); err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// Committed runs post-commit bookkeeping for an entry written through CreditTx/DebitTx.
func (l *Ledger) Committed(ctx context.Context, t *model.WalletTransaction) {
	if t == nil {
		return
	}
	l.refreshCache(ctx, t.StudentID)
	l.metrics.IncLedgerEntry(t.Currency.String(), t.Reason.String(), t.Amount.IsPositive())
	l.log.Infow("ledger entry",
		"transaction_id", t.ID, "student_id", t.StudentID, "currency", t.Currency,
		"amount", t.Amount.String(), "balance_after", t.BalanceAfter.String(), "reason", t.Reason)
}

// refreshCache stores the committed balances. When that fails the keys are
// dropped so the next read goes to the database.
func (l *Ledger) refreshCache(ctx context.Context, studentID uint64) {
	w, err := l.repo.GetWallet(ctx, nil, studentID)
	if err == nil {
		err = l.repo.CacheWallet(ctx, w)
	}
	if err == nil {
		return
	}
	l.log.Warnw("balance cache refresh failed", "student_id", studentID, "err", err)
	if err := l.repo.InvalidateBalance(ctx, studentID); err != nil {
		l.log.Warnw("balance cache invalidate failed", "student_id", studentID, "err", err)
	}
}

// History fetches recent transactions, newest first.
func (l *Ledger) History(ctx context.Context, studentID uint64, currency model.Currency, limit int) ([]model.WalletTransaction, error) {
	if currency != "" && !currency.IsValid() {
		return nil, fmt.Errorf("%w: unknown currency %q", ErrInvalidInput, currency)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return l.repo.ListTransactions(ctx, studentID, currency, limit)
}

// BalanceCheck compares a cached balance with the ledger sum.
type BalanceCheck struct {
	Cached decimal.Decimal `json:"cached"`
	Ledger decimal.Decimal `json:"ledger"`
}

// Consistent reports whether the two agree.
func (b BalanceCheck) Consistent() bool { return b.Cached.Equal(b.Ledger) }

// Reconciliation is the result of recomputing a wallet from its ledger.
type Reconciliation struct {
	StudentID  uint64       `json:"student_id"`
	Points     BalanceCheck `json:"points"`
	Cash       BalanceCheck `json:"cash"`
	Consistent bool         `json:"consistent"`
}

// Reconcile recomputes both balances from wallet_transactions.
func (l *Ledger) Reconcile(ctx context.Context, studentID uint64) (*Reconciliation, error) {
	w, err := l.repo.GetWallet(ctx, nil, studentID)
	if err != nil {
		return nil, err
	}
	points, err := l.repo.SumTransactions(ctx, studentID, model.CurrencyPoints)
	if err != nil {
		return nil, err
	}
	cash, err := l.repo.SumTransactions(ctx, studentID, model.CurrencyCash)
	if err != nil {
		return nil, err
	}
	rec := &Reconciliation{
		StudentID: studentID,
		Points:    BalanceCheck{Cached: w.Balance(model.CurrencyPoints), Ledger: points},
		Cash:      BalanceCheck{Cached: w.Balance(model.CurrencyCash), Ledger: cash},
	}
	rec.Consistent = rec.Points.Consistent() && rec.Cash.Consistent()
	if !rec.Consistent {
		l.log.Errorw("wallet drifted from ledger",
			"student_id", studentID,
			"points_cached", rec.Points.Cached.String(), "points_ledger", rec.Points.Ledger.String(),
			"cash_cached", rec.Cash.Cached.String(), "cash_ledger", rec.Cash.Ledger.String())
	}
	return rec, nil
}
