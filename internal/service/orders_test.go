package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const teacher = 900

func (e *testEnv) apply(orderID uint64, action model.OrderAction) (*ActionResult, error) {
	return e.orders.Apply(e.ctx, ActionRequest{OrderID: orderID, Action: action, ActorID: ptr(teacher)})
}

func (e *testEnv) approvedOrder(t *testing.T, studentID, itemID uint64, qty int64) *model.Order {
	t.Helper()
	o, err := e.orders.Create(e.ctx, NewOrder{
		StudentID: studentID, StoreItemID: itemID, Quantity: qty, PaymentMethod: model.PaymentPoints,
	}, ptr(studentID))
	require.NoError(t, err)
	_, err = e.apply(o.ID, model.ActionApprove)
	require.NoError(t, err)
	return o
}

func (e *testEnv) status(t *testing.T, orderID uint64) model.OrderStatus {
	t.Helper()
	o, err := e.orders.Get(e.ctx, orderID)
	require.NoError(t, err)
	return o.Status
}

func TestOrders_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.wallet(t, 1, 200)
	item := env.item(t, 80, 3, true)

	o, err := env.orders.Create(env.ctx, NewOrder{
		StudentID: 1, StoreItemID: item.ID, Quantity: 1, PaymentMethod: model.PaymentPoints, Notes: "for my sister",
	}, ptr(1))
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, o.Status)
	assert.Equal(t, int64(80), o.TotalPoints)
	require.Len(t, o.Items, 1)

	res, err := env.apply(o.ID, model.ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, model.OrderApproved, res.Order.Status)
	assert.Nil(t, res.TransactionID)

	res, err = env.apply(o.ID, model.ActionMarkPurchased)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPurchased, res.Order.Status)
	require.NotNil(t, res.TransactionID)
	require.NotNil(t, res.Wallet)
	assert.Equal(t, int64(120), res.Wallet.PointsBalance)
	require.Len(t, res.Items, 1)
	assert.Equal(t, int64(2), res.Items[0].StockQuantity)

	res, err = env.apply(o.ID, model.ActionMarkReady)
	require.NoError(t, err)
	assert.Equal(t, model.OrderReady, res.Order.Status)

	res, err = env.apply(o.ID, model.ActionCollect)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCollected, res.Order.Status)
	assert.True(t, res.Order.Status.IsTerminal())

	env.wallet(t, 2, 50)
	second := env.approvedOrder(t, 2, item.ID, 1)
	_, err = env.apply(second.ID, model.ActionMarkPurchased)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, model.OrderApproved, env.status(t, second.ID))
	assert.Equal(t, int64(50), env.points(t, 2))
	assert.Equal(t, int64(2), env.stock(t, item.ID))

	env.requireConsistent(t, 1)
	env.requireConsistent(t, 2)
}

func TestOrders_EveryUnlistedPairIsRejected(t *testing.T) {
	env := newTestEnv(t)
	env.wallet(t, 1, 1000)
	item := env.item(t, 1, 100, true)

	for _, from := range model.OrderStatuses() {
		for _, action := range model.OrderActions() {
			if _, ok := model.NextStatus(from, action); ok {
				continue
			}
			o, err := env.orders.Create(env.ctx, NewOrder{
				StudentID: 1, StoreItemID: item.ID, Quantity: 1, PaymentMethod: model.PaymentPoints,
			}, nil)
			require.NoError(t, err)
			require.NoError(t, env.db.Model(&model.Order{}).Where("id = ?", o.ID).Update("status", from).Error)

			_, err = env.apply(o.ID, action)
			var te *TransitionError
			require.True(t, errors.As(err, &te), "%s/%s: %v", from, action, err)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, from, te.From)
			assert.Equal(t, from, env.status(t, o.ID), "%s/%s changed status", from, action)
		}
	}
	assert.Equal(t, int64(1000), env.points(t, 1))
	assert.Equal(t, int64(100), env.stock(t, item.ID))
}

func TestOrders_RejectAndCancelTouchNothing(t *testing.T) {
	env := newTestEnv(t)
	env.wallet(t, 1, 100)
	item := env.item(t, 10, 2, true)

	pending, err := env.orders.Create(env.ctx, NewOrder{
		StudentID: 1, StoreItemID: item.ID, Quantity: 1, PaymentMethod: model.PaymentPoints,
	}, nil)
	require.NoError(t, err)
	res, err := env.orders.Apply(env.ctx, ActionRequest{
		OrderID: pending.ID, Action: model.ActionReject, ActorID: ptr(teacher), AdminNotes: "out of season",
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, res.Order.Status)
	assert.Equal(t, "out of season", res.Order.AdminNotes)

	approved := env.approvedOrder(t, 1, item.ID, 2)
	res, err = env.apply(approved.ID, model.ActionCancel)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, res.Order.Status)

	_, err = env.apply(approved.ID, model.ActionApprove)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Equal(t, int64(100), env.points(t, 1))
	assert.Equal(t, int64(2), env.stock(t, item.ID))
}

func TestOrders_ConcurrentPurchasesRespectStock(t *testing.T) {
	env := newTestEnv(t)
	item := env.item(t, 10, 1, true)
	env.wallet(t, 1, 100)
	env.wallet(t, 2, 100)
	orders := []*model.Order{
		env.approvedOrder(t, 1, item.ID, 1),
		env.approvedOrder(t, 2, item.ID, 1),
	}

	var wg sync.WaitGroup
	errs := make([]error, len(orders))
	for i, o := range orders {
		wg.Add(1)
		go func(i int, id uint64) {
			defer wg.Done()
			_, errs[i] = env.apply(id, model.ActionMarkPurchased)
		}(i, o.ID)
	}
	wg.Wait()

	purchased, outOfStock := 0, 0
	for i, err := range errs {
		switch {
		case err == nil:
			purchased++
			assert.Equal(t, model.OrderPurchased, env.status(t, orders[i].ID))
		case errors.Is(err, ErrInsufficientStock):
			outOfStock++
			assert.Equal(t, model.OrderApproved, env.status(t, orders[i].ID))
			assert.Equal(t, int64(100), env.points(t, orders[i].StudentID))
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, purchased)
	assert.Equal(t, 1, outOfStock)
	assert.Equal(t, int64(0), env.stock(t, item.ID))
	env.requireConsistent(t, 1)
	env.requireConsistent(t, 2)
}

func TestOrders_ConcurrentMarkPurchasedSameOrder(t *testing.T) {
	env := newTestEnv(t)
	env.wallet(t, 1, 100)
	item := env.item(t, 30, 5, true)
	o := env.approvedOrder(t, 1, item.ID, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.apply(o.ID, model.ActionMarkPurchased)
		}(i)
	}
	wg.Wait()

	ok, invalid := 0, 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, ErrInvalidTransition)
		invalid++
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, invalid)

	_, err := env.apply(o.ID, model.ActionMarkPurchased)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Equal(t, int64(70), env.points(t, 1))
	assert.Equal(t, int64(4), env.stock(t, item.ID))
	purchases, err := env.ledger.History(env.ctx, 1, model.CurrencyPoints, 0)
	require.NoError(t, err)
	debits := 0
	for _, tx := range purchases {
		if tx.Reason == model.ReasonOrderPurchase {
			debits++
			assert.Equal(t, o.Reference(), *tx.ReferenceID)
		}
	}
	assert.Equal(t, 1, debits)
	env.requireConsistent(t, 1)
}

func TestOrders_MultiLineRollsBackAsOneUnit(t *testing.T) {
	env := newTestEnv(t)
	env.wallet(t, 1, 500)
	pen := env.item(t, 10, 5, true)
	mug := env.item(t, 40, 2, true)

	o, err := env.orders.Create(env.ctx, NewOrder{
		StudentID:     1,
		PaymentMethod: model.PaymentPoints,
		Lines: []OrderLine{
			{StoreItemID: mug.ID, Quantity: 2},
			{StoreItemID: pen.ID, Quantity: 3},
		},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(110), o.TotalPoints)
	assert.Equal(t, int64(5), o.Quantity)
	assert.Nil(t, o.StoreItemID)
	_, err = env.apply(o.ID, model.ActionApprove)
	require.NoError(t, err)

	// another order takes one mug first
	require.NoError(t, env.repo.WithTx(env.ctx, func(tx *gorm.DB) error {
		_, err := env.inventory.DecrementStock(env.ctx, tx, mug.ID, 1, "walk-in", nil)
		return err
	}))

	_, err = env.apply(o.ID, model.ActionMarkPurchased)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, model.OrderApproved, env.status(t, o.ID))
	assert.Equal(t, int64(500), env.points(t, 1))
	assert.Equal(t, int64(5), env.stock(t, pen.ID))
	assert.Equal(t, int64(1), env.stock(t, mug.ID))

	_, err = env.inventory.Restock(env.ctx, mug.ID, 1, nil)
	require.NoError(t, err)
	res, err := env.apply(o.ID, model.ActionMarkPurchased)
	require.NoError(t, err)
	assert.Equal(t, int64(390), res.Wallet.PointsBalance)
	require.Len(t, res.Items, 2)
	assert.Equal(t, pen.ID, res.Items[0].ID)
	assert.Equal(t, int64(2), res.Items[0].StockQuantity)
	assert.Equal(t, int64(0), res.Items[1].StockQuantity)
	env.requireConsistent(t, 1)
}

func TestOrders_TotalsAreFrozenAtCreation(t *testing.T) {
	env := newTestEnv(t)
	env.wallet(t, 1, 100)
	item := env.item(t, 20, 5, true)
	o := env.approvedOrder(t, 1, item.ID, 2)

	require.NoError(t, env.db.Model(&model.StoreItem{}).Where("id = ?", item.ID).Update("price_points", 45).Error)

	res, err := env.apply(o.ID, model.ActionMarkPurchased)
	require.NoError(t, err)
	assert.Equal(t, int64(60), res.Wallet.PointsBalance)
}

func TestOrders_PlaceAutoApprovesWhenAllowed(t *testing.T) {
	env := newTestEnv(t)
	env.wallet(t, 1, 100)
	free := env.item(t, 10, 5, false)
	gated := env.item(t, 10, 5, true)

	res, err := env.orders.Place(env.ctx, NewOrder{
		StudentID: 1, StoreItemID: free.ID, Quantity: 1, PaymentMethod: model.PaymentPoints,
	}, ptr(1))
	require.NoError(t, err)
	assert.Equal(t, model.OrderApproved, res.Order.Status)

	res, err = env.orders.Place(env.ctx, NewOrder{
		StudentID: 1, StoreItemID: gated.ID, Quantity: 1, PaymentMethod: model.PaymentPoints,
	}, ptr(1))
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, res.Order.Status)

	assert.Equal(t, int64(100), env.points(t, 1))

	list, err := env.orders.ListByStudent(env.ctx, 1, model.OrderApproved)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, free.ID, *list[0].StoreItemID)

	_, err = env.orders.ListByStudent(env.ctx, 1, "lost")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestOrders_CreateRejections(t *testing.T) {
	env := newTestEnv(t)
	env.wallet(t, 1, 100)
	item := env.item(t, 10, 2, false)
	cashOnly, err := env.inventory.CreateItem(env.ctx, NewItem{
		StoreID: 1, Name: "Trip ticket", PriceCash: decimal.NewFromInt(15), StockQuantity: 10,
	})
	require.NoError(t, err)
	hidden := env.item(t, 10, 2, false)
	_, err = env.inventory.SetActive(env.ctx, hidden.ID, false)
	require.NoError(t, err)

	cases := []struct {
		name string
		in   NewOrder
		want error
	}{
		{"no item", NewOrder{StudentID: 1, Quantity: 1, PaymentMethod: model.PaymentPoints}, ErrInvalidInput},
		{"zero quantity", NewOrder{StudentID: 1, StoreItemID: item.ID, PaymentMethod: model.PaymentPoints}, ErrInvalidInput},
		{"bad payment", NewOrder{StudentID: 1, StoreItemID: item.ID, Quantity: 1, PaymentMethod: "iou"}, ErrInvalidInput},
		{"duplicate lines", NewOrder{StudentID: 1, PaymentMethod: model.PaymentPoints, Lines: []OrderLine{
			{StoreItemID: item.ID, Quantity: 1}, {StoreItemID: item.ID, Quantity: 1},
		}}, ErrInvalidInput},
		{"no wallet", NewOrder{StudentID: 2, StoreItemID: item.ID, Quantity: 1, PaymentMethod: model.PaymentPoints}, ErrWalletNotFound},
		{"unknown item", NewOrder{StudentID: 1, StoreItemID: 999, Quantity: 1, PaymentMethod: model.PaymentPoints}, ErrItemNotFound},
		{"inactive item", NewOrder{StudentID: 1, StoreItemID: hidden.ID, Quantity: 1, PaymentMethod: model.PaymentPoints}, ErrItemUnavailable},
		{"no points price", NewOrder{StudentID: 1, StoreItemID: cashOnly.ID, Quantity: 1, PaymentMethod: model.PaymentPoints}, ErrItemUnavailable},
		{"not enough stock", NewOrder{StudentID: 1, StoreItemID: item.ID, Quantity: 3, PaymentMethod: model.PaymentPoints}, ErrInsufficientStock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.orders.Create(env.ctx, tc.in, nil)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err = env.configs.Upsert(env.ctx, model.PointsConfig{ChurchID: testChurch, IsStoreEnabled: true})
	require.NoError(t, err)
	_, err = env.orders.Create(env.ctx, NewOrder{StudentID: 1, StoreItemID: cashOnly.ID, Quantity: 1, PaymentMethod: model.PaymentCash}, nil)
	assert.ErrorIs(t, err, ErrFeatureDisabled)

	_, err = env.configs.Upsert(env.ctx, model.PointsConfig{ChurchID: testChurch})
	require.NoError(t, err)
	_, err = env.orders.Create(env.ctx, NewOrder{StudentID: 1, StoreItemID: item.ID, Quantity: 1, PaymentMethod: model.PaymentPoints}, nil)
	assert.ErrorIs(t, err, ErrFeatureDisabled)
}

func TestOrders_CashPurchase(t *testing.T) {
	env := newTestEnv(t)
	env.wallet(t, 1, 0)
	_, err := env.deposits.DepositCash(env.ctx, DepositRequest{
		StudentID: 1, Amount: decimal.RequireFromString("20.00"), ReceiptID: "rcpt-1", ActorID: ptr(teacher),
	})
	require.NoError(t, err)
	item, err := env.inventory.CreateItem(env.ctx, NewItem{
		StoreID: 1, Name: "Trip ticket", PriceCash: decimal.RequireFromString("7.50"), StockQuantity: 10, RequiresApproval: true,
	})
	require.NoError(t, err)

	o, err := env.orders.Create(env.ctx, NewOrder{
		StudentID: 1, StoreItemID: item.ID, Quantity: 2, PaymentMethod: model.PaymentCash,
	}, nil)
	require.NoError(t, err)
	assert.True(t, o.TotalCash.Equal(decimal.NewFromInt(15)), o.TotalCash.String())
	_, err = env.apply(o.ID, model.ActionApprove)
	require.NoError(t, err)

	res, err := env.apply(o.ID, model.ActionMarkPurchased)
	require.NoError(t, err)
	assert.True(t, res.Wallet.CashBalance.Equal(decimal.NewFromInt(5)), res.Wallet.CashBalance.String())
	assert.Equal(t, int64(0), res.Wallet.PointsBalance)
	env.requireConsistent(t, 1)
}

func TestOrders_UnknownOrderAndAction(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.apply(404, model.ActionApprove)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = env.apply(1, "teleport")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
