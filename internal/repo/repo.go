package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrInsufficientFunds is returned when a debit would make a balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientStock is returned when a decrement would make stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrWalletNotFound means the student has no wallet yet.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrItemNotFound means the store item does not exist.
	ErrItemNotFound = errors.New("store item not found")
	// ErrOrderNotFound means the order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrStatusConflict means the order was not in the expected status when updated.
	ErrStatusConflict = errors.New("order status changed concurrently")
	// ErrDuplicateReference means a ledger or stock row with the same reference exists.
	ErrDuplicateReference = errors.New("duplicate reference")
)

// RepositoryInterface restricts Repository methods so services can be tested against fakes.
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	CreateWallet(ctx context.Context, tx *gorm.DB, w *model.Wallet) error
	GetWallet(ctx context.Context, tx *gorm.DB, studentID uint64) (*model.Wallet, error)
	ApplyBalanceDelta(ctx context.Context, tx *gorm.DB, studentID uint64, currency model.Currency, delta decimal.Decimal) (decimal.Decimal, error)
	CreateTransaction(ctx context.Context, tx *gorm.DB, t *model.WalletTransaction) error
	FindTransaction(ctx context.Context, tx *gorm.DB, studentID uint64, reason model.Reason, referenceID string) (*model.WalletTransaction, error)
	ListTransactions(ctx context.Context, studentID uint64, currency model.Currency, limit int) ([]model.WalletTransaction, error)
	SumTransactions(ctx context.Context, studentID uint64, currency model.Currency) (decimal.Decimal, error)

	CreateItem(ctx context.Context, tx *gorm.DB, item *model.StoreItem) error
	GetItem(ctx context.Context, tx *gorm.DB, itemID uint64) (*model.StoreItem, error)
	GetItems(ctx context.Context, tx *gorm.DB, itemIDs []uint64) (map[uint64]*model.StoreItem, error)
	ListItems(ctx context.Context, storeID uint64, activeOnly bool) ([]model.StoreItem, error)
	SetItemActive(ctx context.Context, itemID uint64, active bool) error
	AdjustStock(ctx context.Context, tx *gorm.DB, itemID uint64, delta int64) (int64, error)
	CreateStockMovement(ctx context.Context, tx *gorm.DB, m *model.StockMovement) error
	FindStockMovement(ctx context.Context, tx *gorm.DB, itemID uint64, reason model.StockReason, referenceID string) (*model.StockMovement, error)

	CreateOrder(ctx context.Context, tx *gorm.DB, o *model.Order) error
	GetOrder(ctx context.Context, tx *gorm.DB, orderID uint64) (*model.Order, error)
	ListOrders(ctx context.Context, studentID uint64, status model.OrderStatus) ([]model.Order, error)
	TransitionOrder(ctx context.Context, tx *gorm.DB, orderID uint64, from, to model.OrderStatus, adminNotes string) error

	GetPointsConfig(ctx context.Context, churchID uint64) (*model.PointsConfig, error)
	SavePointsConfig(ctx context.Context, cfg *model.PointsConfig) error

	CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error
	PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uint64) error
	PublishEvent(ctx context.Context, evt model.OutboxEvent) error

	CacheWallet(ctx context.Context, w *model.Wallet) error
	GetCachedBalance(ctx context.Context, studentID uint64, currency model.Currency) (decimal.Decimal, error)
	InvalidateBalance(ctx context.Context, studentID uint64) error
}

// Repository implements RepositoryInterface.
type Repository struct {
	db     *gorm.DB
	rdb    *redis.Client
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

// NewRepository constructs repo. rdb and w may be nil in processes that do not cache or publish.
func NewRepository(db *gorm.DB, rdb *redis.Client, w *kafka.Writer, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, rdb: rdb, writer: w, log: logger}
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// WithTx executes fn inside a transaction, rolling back on error or panic.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// conn picks the transaction when given, else the base connection.
func (r *Repository) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}
