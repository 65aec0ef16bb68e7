package service

import (
	"errors"
	"fmt"

	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/richardliu001/school-rewards/internal/repo"
)

var (
	// ErrInvalidAmount means non-positive amount passed.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidTransition means the action is not legal for the order's current status.
	ErrInvalidTransition = errors.New("invalid order transition")
	// ErrExceedsMaxAdjustment means a teacher adjustment is larger than the church allows.
	ErrExceedsMaxAdjustment = errors.New("adjustment exceeds the church maximum")
	// ErrFeatureDisabled means the church has switched the feature off.
	ErrFeatureDisabled = errors.New("feature disabled")
	// ErrNoteTooShort means an adjustment note has fewer than minNoteLength characters.
	ErrNoteTooShort = errors.New("note must be at least 3 characters")
	// ErrItemUnavailable means the item is inactive or not sold for the chosen payment method.
	ErrItemUnavailable = errors.New("store item unavailable")
	// ErrRestoreNotAllowed means stock cannot go back against that order line.
	ErrRestoreNotAllowed = errors.New("stock restore not allowed")
	// ErrExceedsMaxDeposit means a cash deposit is larger than the church allows.
	ErrExceedsMaxDeposit = errors.New("deposit exceeds the church maximum")

	ErrInsufficientFunds = repo.ErrInsufficientFunds
	ErrInsufficientStock = repo.ErrInsufficientStock
	ErrWalletNotFound    = repo.ErrWalletNotFound
	ErrItemNotFound      = repo.ErrItemNotFound
	ErrOrderNotFound     = repo.ErrOrderNotFound
)

// TransitionError reports an action that is not legal in the order's status.
type TransitionError struct {
	OrderID uint64
	From    model.OrderStatus
	Action  model.OrderAction
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order %d: cannot %s when %s", e.OrderID, e.Action, e.From)
}

// Is makes errors.Is(err, ErrInvalidTransition) match.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// AdjustmentLimitError carries the configured cap alongside ErrExceedsMaxAdjustment.
type AdjustmentLimitError struct {
	Delta int64
	Max   int64
}

func (e *AdjustmentLimitError) Error() string {
	return fmt.Sprintf("adjustment of %d exceeds the maximum of %d", e.Delta, e.Max)
}

func (e *AdjustmentLimitError) Is(target error) bool {
	return target == ErrExceedsMaxAdjustment
}
