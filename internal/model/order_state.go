package model

import "fmt"

// OrderStatus tracks the lifecycle of a store order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderApproved  OrderStatus = "approved"
	OrderPurchased OrderStatus = "purchased"
	OrderReady     OrderStatus = "ready"
	OrderCollected OrderStatus = "collected"
	OrderCancelled OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderPending,
	OrderApproved,
	OrderPurchased,
	OrderReady,
	OrderCollected,
	OrderCancelled,
}

func (s OrderStatus) String() string { return string(s) }

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no action can move an order out of s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderCollected || s == OrderCancelled
}

// Purchased reports whether the order has been paid for and its stock taken.
func (s OrderStatus) Purchased() bool {
	return s == OrderPurchased || s == OrderReady || s == OrderCollected
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// OrderAction is a request to move an order to another status.
type OrderAction string

const (
	ActionApprove       OrderAction = "approve"
	ActionReject        OrderAction = "reject"
	ActionCancel        OrderAction = "cancel"
	ActionMarkPurchased OrderAction = "mark_purchased"
	ActionMarkReady     OrderAction = "mark_ready"
	ActionCollect       OrderAction = "collect"
)

var validOrderActions = []OrderAction{
	ActionApprove,
	ActionReject,
	ActionCancel,
	ActionMarkPurchased,
	ActionMarkReady,
	ActionCollect,
}

func (a OrderAction) String() string { return string(a) }

// IsValid reports whether the value is a known OrderAction.
func (a OrderAction) IsValid() bool {
	for _, candidate := range validOrderActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOrderAction converts raw input into an OrderAction.
func ParseOrderAction(value string) (OrderAction, error) {
	for _, candidate := range validOrderActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order action %q", value)
}

// OrderStatuses lists every status.
func OrderStatuses() []OrderStatus {
	return append([]OrderStatus(nil), validOrderStatuses...)
}

// OrderActions lists every action.
func OrderActions() []OrderAction {
	return append([]OrderAction(nil), validOrderActions...)
}

// orderTransitions is the complete transition table; any pair missing here is illegal.
var orderTransitions = map[OrderStatus]map[OrderAction]OrderStatus{
	OrderPending: {
		ActionApprove: OrderApproved,
		ActionReject:  OrderCancelled,
	},
	OrderApproved: {
		ActionMarkPurchased: OrderPurchased,
		ActionReject:        OrderCancelled,
		ActionCancel:        OrderCancelled,
	},
	OrderPurchased: {
		ActionMarkReady: OrderReady,
	},
	OrderReady: {
		ActionCollect: OrderCollected,
	},
}

// NextStatus returns the status reached by applying action in from.
func NextStatus(from OrderStatus, action OrderAction) (OrderStatus, bool) {
	next, ok := orderTransitions[from][action]
	return next, ok
}
