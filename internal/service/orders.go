package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/richardliu001/school-rewards/internal/metrics"
	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/richardliu001/school-rewards/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Orders drives the order lifecycle. Wallet and stock are touched only by
// mark_purchased, which debits and decrements as one transaction.
type Orders struct {
	repo      repo.RepositoryInterface
	ledger    *Ledger
	inventory *Inventory
	configs   *PointsConfigs
	log       *zap.SugaredLogger
	metrics   *metrics.Metrics
}

func NewOrders(r repo.RepositoryInterface, l *Ledger, inv *Inventory, c *PointsConfigs, logger *zap.SugaredLogger, m *metrics.Metrics) *Orders {
	return &Orders{repo: r, ledger: l, inventory: inv, configs: c, log: logger, metrics: m}
}

// OrderLine is one requested item.
type OrderLine struct {
	StoreItemID uint64 `json:"store_item_id" validate:"required"`
	Quantity    int64  `json:"quantity" validate:"gt=0"`
}

// NewOrder is an order request. Either Lines or StoreItemID with Quantity is set.
type NewOrder struct {
	StudentID     uint64 `validate:"required"`
	StoreItemID   uint64
	Quantity      int64               `validate:"gte=0"`
	Lines         []OrderLine         `validate:"omitempty,dive"`
	PaymentMethod model.PaymentMethod `validate:"required,oneof=points cash"`
	Notes         string              `validate:"max=500"`
}

func (in NewOrder) lines() ([]OrderLine, error) {
	lines := in.Lines
	if len(lines) == 0 {
		if in.StoreItemID == 0 || in.Quantity <= 0 {
			return nil, fmt.Errorf("%w: an item and a positive quantity are required", ErrInvalidInput)
		}
		lines = []OrderLine{{StoreItemID: in.StoreItemID, Quantity: in.Quantity}}
	} else if in.StoreItemID != 0 {
		return nil, fmt.Errorf("%w: use either store_item_id or lines", ErrInvalidInput)
	}
	seen := make(map[uint64]bool, len(lines))
	for _, l := range lines {
		if seen[l.StoreItemID] {
			return nil, fmt.Errorf("%w: item %d listed twice", ErrInvalidInput, l.StoreItemID)
		}
		seen[l.StoreItemID] = true
	}
	return lines, nil
}

// ActionRequest applies Action to an order on behalf of ActorID.
type ActionRequest struct {
	OrderID    uint64            `validate:"required"`
	Action     model.OrderAction `validate:"required"`
	ActorID    *uint64
	AdminNotes string `validate:"max=500"`
}

// ActionResult is the state after a mutating order call. Wallet, Items and
// TransactionID are set only when the call touched them.
type ActionResult struct {
	Order         *model.Order      `json:"order"`
	Wallet        *model.Wallet     `json:"wallet,omitempty"`
	Items         []model.StoreItem `json:"items,omitempty"`
	TransactionID *uint64           `json:"transaction_id,omitempty"`
}

// Create records a pending order with frozen prices. Stock is checked but not taken.
func (s *Orders) Create(ctx context.Context, in NewOrder, actorID *uint64) (*model.Order, error) {
	o, _, err := s.create(ctx, in, actorID)
	return o, err
}

// Place is the student-facing flow: create, then approve straight away when
// no line needs a manager. It never goes past approved.
func (s *Orders) Place(ctx context.Context, in NewOrder, actorID *uint64) (*ActionResult, error) {
	o, items, err := s.create(ctx, in, actorID)
	if err != nil {
		return nil, err
	}
	if o.RequiresApproval(items) {
		return &ActionResult{Order: o}, nil
	}
	return s.Apply(ctx, ActionRequest{OrderID: o.ID, Action: model.ActionApprove, ActorID: actorID})
}

func (s *Orders) create(ctx context.Context, in NewOrder, actorID *uint64) (*model.Order, map[uint64]*model.StoreItem, error) {
	if err := validateInput(in); err != nil {
		return nil, nil, err
	}
	lines, err := in.lines()
	if err != nil {
		return nil, nil, err
	}
	_, cfg, err := s.configs.ForStudent(ctx, in.StudentID)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.IsStoreEnabled {
		return nil, nil, fmt.Errorf("%w: store", ErrFeatureDisabled)
	}
	if in.PaymentMethod == model.PaymentCash && !cfg.IsCashEnabled {
		return nil, nil, fmt.Errorf("%w: cash payments", ErrFeatureDisabled)
	}

	ids := make([]uint64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.StoreItemID)
	}
	items, err := s.repo.GetItems(ctx, nil, ids)
	if err != nil {
		return nil, nil, err
	}

	o := &model.Order{
		StudentID:     in.StudentID,
		PaymentMethod: in.PaymentMethod,
		Status:        model.OrderPending,
		Notes:         in.Notes,
		TotalCash:     decimal.Zero,
	}
	total := decimal.Zero
	for _, l := range lines {
		item := items[l.StoreItemID]
		if !item.IsActive {
			return nil, nil, fmt.Errorf("%w: %q is not active", ErrItemUnavailable, item.Name)
		}
		unit := item.UnitPrice(in.PaymentMethod)
		if !unit.IsPositive() {
			return nil, nil, fmt.Errorf("%w: %q has no %s price", ErrItemUnavailable, item.Name, in.PaymentMethod)
		}
		if item.StockQuantity < l.Quantity {
			return nil, nil, fmt.Errorf("%w: %q has %d left", ErrInsufficientStock, item.Name, item.StockQuantity)
		}
		lineTotal := unit.Mul(decimal.NewFromInt(l.Quantity))
		o.Items = append(o.Items, model.OrderItem{
			StoreItemID: l.StoreItemID,
			Quantity:    l.Quantity,
			UnitPrice:   unit,
			TotalPrice:  lineTotal,
		})
		o.Quantity += l.Quantity
		total = total.Add(lineTotal)
	}
	if len(lines) == 1 {
		id := lines[0].StoreItemID
		o.StoreItemID = &id
	}
	if in.PaymentMethod == model.PaymentCash {
		o.TotalCash = total
	} else {
		o.TotalPoints = total.IntPart()
	}

	err = s.repo.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateOrder(ctx, tx, o); err != nil {
			return err
		}
		return emit(ctx, s.repo, tx, aggregateOrder, o.ID, orderEventType(model.OrderPending), OrderStatusEvent{
			OrderID:   o.ID,
			StudentID: o.StudentID,
			Status:    model.OrderPending,
			ActorID:   actorID,
		})
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Infow("order created",
		"order_id", o.ID, "student_id", o.StudentID, "payment_method", o.PaymentMethod,
		"total", o.Total().String(), "lines", len(o.Items))
	return o, items, nil
}

// Get returns an order with its lines.
func (s *Orders) Get(ctx context.Context, orderID uint64) (*model.Order, error) {
	return s.repo.GetOrder(ctx, nil, orderID)
}

// ListByStudent returns a student's orders, optionally filtered by status.
func (s *Orders) ListByStudent(ctx context.Context, studentID uint64, status model.OrderStatus) ([]model.Order, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.repo.ListOrders(ctx, studentID, status)
}

// Apply performs one transition from the order table. Actions that are not
// legal in the current status fail with a *TransitionError and change nothing.
func (s *Orders) Apply(ctx context.Context, req ActionRequest) (res *ActionResult, err error) {
	defer func() { s.metrics.ObserveTransition(string(req.Action), err) }()
	if err := validateInput(req); err != nil {
		return nil, err
	}
	if !req.Action.IsValid() {
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, req.Action)
	}
	o, err := s.repo.GetOrder(ctx, nil, req.OrderID)
	if err != nil {
		return nil, err
	}
	next, ok := model.NextStatus(o.Status, req.Action)
	if !ok {
		return nil, &TransitionError{OrderID: o.ID, From: o.Status, Action: req.Action}
	}
	if req.Action == model.ActionMarkPurchased {
		return s.purchase(ctx, o, req)
	}

	err = s.repo.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.TransitionOrder(ctx, tx, o.ID, o.Status, next, req.AdminNotes); err != nil {
			return err
		}
		return s.emitTransition(ctx, tx, o, next, req)
	})
	if err != nil {
		return nil, s.transitionFailed(ctx, o, req, err)
	}
	s.log.Infow("order transition", "order_id", o.ID, "action", req.Action, "from", o.Status, "to", next)
	updated, err := s.repo.GetOrder(ctx, nil, o.ID)
	if err != nil {
		return nil, err
	}
	return &ActionResult{Order: updated}, nil
}

// purchase claims the order, debits the wallet and takes stock for every line
// in one transaction. Lines are decremented in item id order so concurrent
// multi-line purchases lock rows in the same sequence.
func (s *Orders) purchase(ctx context.Context, o *model.Order, req ActionRequest) (*ActionResult, error) {
	lines := append([]model.OrderItem(nil), o.Items...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].StoreItemID < lines[j].StoreItemID })
	ref := o.Reference()

	var t *model.WalletTransaction
	err := s.repo.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.TransitionOrder(ctx, tx, o.ID, model.OrderApproved, model.OrderPurchased, req.AdminNotes); err != nil {
			return err
		}
		var err error
		t, err = s.ledger.DebitTx(ctx, tx, Entry{
			StudentID:   o.StudentID,
			Currency:    o.PaymentMethod.Currency(),
			Amount:      o.Total(),
			Reason:      model.ReasonOrderPurchase,
			ReferenceID: ref,
			ActorID:     req.ActorID,
		})
		if err != nil {
			return err
		}
		for _, line := range lines {
			if _, err := s.inventory.DecrementStock(ctx, tx, line.StoreItemID, line.Quantity, ref, req.ActorID); err != nil {
				return fmt.Errorf("item %d: %w", line.StoreItemID, err)
			}
		}
		return s.emitTransition(ctx, tx, o, model.OrderPurchased, req)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientFunds):
			s.metrics.IncRejection("insufficient_funds")
		case errors.Is(err, ErrInsufficientStock):
			s.metrics.IncRejection("insufficient_stock")
		}
		return nil, s.transitionFailed(ctx, o, req, err)
	}

	s.ledger.Committed(ctx, t)
	ids := make([]uint64, 0, len(lines))
	for _, line := range lines {
		s.metrics.IncStockMovement(string(model.StockOrderPurchase))
		ids = append(ids, line.StoreItemID)
	}
	s.log.Infow("order purchased",
		"order_id", o.ID, "student_id", o.StudentID, "transaction_id", t.ID,
		"amount", o.Total().String(), "currency", o.PaymentMethod.Currency())

	res := &ActionResult{TransactionID: &t.ID}
	if res.Order, err = s.repo.GetOrder(ctx, nil, o.ID); err != nil {
		return nil, err
	}
	if res.Wallet, err = s.ledger.Wallet(ctx, o.StudentID); err != nil {
		return nil, err
	}
	byID, err := s.repo.GetItems(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		res.Items = append(res.Items, *byID[id])
	}
	return res, nil
}

func (s *Orders) emitTransition(ctx context.Context, tx *gorm.DB, o *model.Order, next model.OrderStatus, req ActionRequest) error {
	return emit(ctx, s.repo, tx, aggregateOrder, o.ID, orderEventType(next), OrderStatusEvent{
		OrderID:   o.ID,
		StudentID: o.StudentID,
		From:      o.Status,
		Status:    next,
		Action:    req.Action,
		ActorID:   req.ActorID,
	})
}

// transitionFailed turns a lost status race into a TransitionError against
// the status that won.
func (s *Orders) transitionFailed(ctx context.Context, o *model.Order, req ActionRequest, err error) error {
	if errors.Is(err, repo.ErrStatusConflict) {
		from := o.Status
		if cur, gerr := s.repo.GetOrder(ctx, nil, o.ID); gerr == nil {
			from = cur.Status
		}
		return &TransitionError{OrderID: o.ID, From: from, Action: req.Action}
	}
	s.log.Warnw("order transition rejected", "order_id", o.ID, "action", req.Action, "err", err)
	return err
}
