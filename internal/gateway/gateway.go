// Package gateway adapts the external payment processor. Callers receive
// closed status variants and sentinel errors instead of provider SDK types.
package gateway

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusSucceeded  Status = "succeeded"
	StatusProcessing Status = "processing"
	StatusCanceled   Status = "canceled"
	StatusFailed     Status = "failed"
)

var (
	// ErrTransient marks failures talking to the provider: timeouts,
	// 5xx responses, malformed bodies. They never mean the payment failed.
	ErrTransient        = errors.New("payment gateway unavailable")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidAmount    = errors.New("amount must be positive with at most two decimal places")
)

type Intent struct {
	ID            string
	ClientSecret  string
	Amount        decimal.Decimal
	Currency      string
	Status        Status
	PaymentMethod string
}

// Event is a verified webhook notification. Intent is only meaningful when
// Relevant is true.
type Event struct {
	ID       string
	Type     string
	Relevant bool
	Intent   Intent
}

// ToMinorUnits converts a two-decimal amount to cents without rounding.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() || !amount.Equal(amount.Truncate(2)) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	return amount.Shift(2).IntPart(), nil
}

func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
