package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fraction digits amounts are stored and sent with.
const MoneyPlaces = 2

// Money formats an amount the way the API sends it: a string with exactly two
// fraction digits.
func Money(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}

// The MarshalJSON methods below shadow the decimal fields with fixed-point
// strings; the shallower field wins in encoding/json.

func (p Project) MarshalJSON() ([]byte, error) {
	type alias Project
	return json.Marshal(struct {
		alias
		AgreedAmount string `json:"agreed_amount"`
	}{alias(p), Money(p.AgreedAmount)})
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	type alias Transaction
	return json.Marshal(struct {
		alias
		Amount      string `json:"amount"`
		PlatformFee string `json:"platform_fee"`
		NetAmount   string `json:"net_amount"`
	}{alias(t), Money(t.Amount), Money(t.PlatformFee), Money(t.NetAmount)})
}

func (d Deposit) MarshalJSON() ([]byte, error) {
	type alias Deposit
	return json.Marshal(struct {
		alias
		Amount string `json:"amount"`
	}{alias(d), Money(d.Amount)})
}

func (b UserBalance) MarshalJSON() ([]byte, error) {
	type alias UserBalance
	return json.Marshal(struct {
		alias
		EscrowBalance   string `json:"escrow_balance"`
		EarningsBalance string `json:"earnings_balance"`
		WithdrawnTotal  string `json:"withdrawn_total"`
	}{alias(b), Money(b.EscrowBalance), Money(b.EarningsBalance), Money(b.WithdrawnTotal)})
}

func (p Payout) MarshalJSON() ([]byte, error) {
	type alias Payout
	return json.Marshal(struct {
		alias
		Amount string `json:"amount"`
	}{alias(p), Money(p.Amount)})
}
