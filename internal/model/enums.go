package model

import "fmt"

// Currency is the unit a wallet balance or ledger entry is denominated in.
type Currency string

const (
	CurrencyPoints Currency = "points"
	CurrencyCash   Currency = "cash"
)

var validCurrencies = []Currency{CurrencyPoints, CurrencyCash}

func (c Currency) String() string { return string(c) }

// IsValid reports whether the value is a known Currency.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// BalanceColumn names the wallets column that caches the balance for c.
func (c Currency) BalanceColumn() string {
	if c == CurrencyCash {
		return "cash_balance"
	}
	return "points_balance"
}

// ParseCurrency converts raw input into a Currency.
func ParseCurrency(value string) (Currency, error) {
	for _, candidate := range validCurrencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}

// Reason classifies why a ledger entry exists.
type Reason string

const (
	ReasonOrderPurchase     Reason = "order_purchase"
	ReasonTeacherAdjustment Reason = "teacher_adjustment"
	ReasonAttendanceAward   Reason = "attendance_award"
	ReasonTripAward         Reason = "trip_award"
	ReasonOrderRefund       Reason = "order_refund"
	ReasonCashDeposit       Reason = "cash_deposit"
)

var validReasons = []Reason{
	ReasonOrderPurchase,
	ReasonTeacherAdjustment,
	ReasonAttendanceAward,
	ReasonTripAward,
	ReasonOrderRefund,
	ReasonCashDeposit,
}

func (r Reason) String() string { return string(r) }

// IsValid reports whether the value is a known Reason.
func (r Reason) IsValid() bool {
	for _, candidate := range validReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// Idempotent reports whether entries with this reason are deduplicated by reference.
func (r Reason) Idempotent() bool {
	switch r {
	case ReasonOrderPurchase, ReasonOrderRefund, ReasonAttendanceAward, ReasonTripAward, ReasonCashDeposit:
		return true
	default:
		return false
	}
}

// PaymentMethod selects which wallet balance pays for an order.
type PaymentMethod string

const (
	PaymentPoints PaymentMethod = "points"
	PaymentCash   PaymentMethod = "cash"
)

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	return p == PaymentPoints || p == PaymentCash
}

// Currency returns the wallet currency debited for this payment method.
func (p PaymentMethod) Currency() Currency {
	if p == PaymentCash {
		return CurrencyCash
	}
	return CurrencyPoints
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	p := PaymentMethod(value)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid payment method %q", value)
	}
	return p, nil
}

// StockReason classifies a stock movement.
type StockReason string

const (
	StockOrderPurchase StockReason = "order_purchase"
	StockOrderRestore  StockReason = "order_restore"
	StockRestock       StockReason = "restock"
)
