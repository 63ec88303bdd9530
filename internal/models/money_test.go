package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountsMarshalWithTwoPlaces(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want map[string]string
	}{
		{
			name: "transaction",
			v: Transaction{
				ID:        uuid.New(),
				Amount:    decimal.RequireFromString("1000.5"),
				NetAmount: decimal.NewFromInt(950),
			},
			want: map[string]string{"amount": "1000.50", "platform_fee": "0.00", "net_amount": "950.00"},
		},
		{
			name: "project",
			v:    Project{AgreedAmount: decimal.NewFromInt(1000), Status: ProjectOpen},
			want: map[string]string{"agreed_amount": "1000.00", "status": "open"},
		},
		{
			name: "deposit",
			v:    Deposit{Amount: decimal.RequireFromString("33.3"), IntentID: "pi_1"},
			want: map[string]string{"amount": "33.30", "intent_id": "pi_1"},
		},
		{
			name: "balance",
			v:    UserBalance{EarningsBalance: decimal.RequireFromString("0.1")},
			want: map[string]string{"escrow_balance": "0.00", "earnings_balance": "0.10", "withdrawn_total": "0.00"},
		},
		{
			name: "payout",
			v:    Payout{Reference: "w-1", Amount: decimal.NewFromInt(7)},
			want: map[string]string{"reference": "w-1", "amount": "7.00"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(tt.v)
			require.NoError(t, err)

			var got map[string]any
			require.NoError(t, json.Unmarshal(body, &got))
			for key, want := range tt.want {
				assert.Equal(t, want, got[key], key)
			}
		})
	}
}

func TestTransactionJSONDecodesBack(t *testing.T) {
	in := Transaction{ID: uuid.New(), Amount: decimal.RequireFromString("12.34"), Type: TransactionRelease}
	body, err := json.Marshal(in)
	require.NoError(t, err)

	var out Transaction
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, in.ID, out.ID)
	assert.True(t, in.Amount.Equal(out.Amount))
	assert.Equal(t, TransactionRelease, out.Type)
}
