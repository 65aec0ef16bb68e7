package service

import (
	"context"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/richardliu001/school-rewards/internal/config"
	"github.com/richardliu001/school-rewards/internal/logger"
	"github.com/richardliu001/school-rewards/internal/metrics"
	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/richardliu001/school-rewards/internal/repo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testChurch = 1

var testDefaults = config.PointsDefaults{
	AttendancePoints:           10,
	TripPoints:                 25,
	MaxTeacherAdjustment:       50,
	IsTeacherAdjustmentEnabled: true,
	IsStoreEnabled:             true,
	IsCashEnabled:              true,
	MaxCashDeposit:             decimal.NewFromInt(100),
}

type testEnv struct {
	ctx         context.Context
	db          *gorm.DB
	repo        *repo.Repository
	ledger      *Ledger
	inventory   *Inventory
	configs     *PointsConfigs
	awards      *Awards
	adjustments *Adjustments
	deposits    *Deposits
	orders      *Orders
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithCache(t, nil)
}

func newTestEnvWithCache(t *testing.T, rdb *redis.Client) *testEnv {
	t.Helper()
	dsn := "file:svc_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(model.All()...))

	log, err := logger.NewLogger()
	require.NoError(t, err)
	m := metrics.New(nil)
	r := repo.NewRepository(db, rdb, nil, log)

	env := &testEnv{ctx: context.Background(), db: db, repo: r}
	env.ledger = NewLedger(r, log, m)
	env.inventory = NewInventory(r, log, m)
	env.configs = NewPointsConfigs(r, testDefaults, log)
	env.awards = NewAwards(env.ledger, env.configs)
	env.adjustments = NewAdjustments(env.ledger, env.configs, log, m)
	env.deposits = NewDeposits(env.ledger, env.configs, log, m)
	env.orders = NewOrders(r, env.ledger, env.inventory, env.configs, log, m)
	return env
}

// wallet opens a wallet and funds it through the ledger so balances and
// transactions stay consistent.
func (e *testEnv) wallet(t *testing.T, studentID uint64, points int64) {
	t.Helper()
	_, err := e.ledger.OpenWallet(e.ctx, studentID, testChurch)
	require.NoError(t, err)
	if points == 0 {
		return
	}
	_, err = e.ledger.Credit(e.ctx, Entry{
		StudentID:   studentID,
		Currency:    model.CurrencyPoints,
		Amount:      decimal.NewFromInt(points),
		Reason:      model.ReasonAttendanceAward,
		ReferenceID: "seed-" + uuid.NewString(),
	})
	require.NoError(t, err)
}

func (e *testEnv) item(t *testing.T, pricePoints, stock int64, requiresApproval bool) *model.StoreItem {
	t.Helper()
	item, err := e.inventory.CreateItem(e.ctx, NewItem{
		StoreID:          1,
		Name:             "item-" + uuid.NewString()[:8],
		PricePoints:      pricePoints,
		StockQuantity:    stock,
		RequiresApproval: requiresApproval,
	})
	require.NoError(t, err)
	return item
}

func (e *testEnv) points(t *testing.T, studentID uint64) int64 {
	t.Helper()
	w, err := e.ledger.Wallet(e.ctx, studentID)
	require.NoError(t, err)
	return w.PointsBalance
}

func (e *testEnv) stock(t *testing.T, itemID uint64) int64 {
	t.Helper()
	item, err := e.inventory.GetItem(e.ctx, itemID)
	require.NoError(t, err)
	return item.StockQuantity
}

func (e *testEnv) requireConsistent(t *testing.T, studentID uint64) {
	t.Helper()
	rec, err := e.ledger.Reconcile(e.ctx, studentID)
	require.NoError(t, err)
	require.True(t, rec.Consistent, "points cached=%s ledger=%s", rec.Points.Cached, rec.Points.Ledger)
}

func ptr(v uint64) *uint64 { return &v }
