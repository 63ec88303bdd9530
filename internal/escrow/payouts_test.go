package escrow_test

import (
	"context"
	"testing"

	"github.com/sol1corejz/workwise/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithdrawEarnings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.completedProject(t, "1000.00")
	_, err := f.svc.Approve(ctx, f.client, p.ID)
	require.NoError(t, err)

	payout, err := f.svc.Withdraw(ctx, f.worker, "payout-001", dec("900.00"))
	require.NoError(t, err)
	assert.Equal(t, models.PayoutRequested, payout.Status)

	b := f.balance(t, f.worker.UserID)
	assertAmount(t, "50.00", b.EarningsBalance)
	assertAmount(t, "900.00", b.WithdrawnTotal)

	_, err = f.svc.Withdraw(ctx, f.worker, "payout-002", dec("50.01"))
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)

	_, err = f.svc.Withdraw(ctx, f.worker, "payout-001", dec("10.00"))
	assert.ErrorIs(t, err, models.ErrDuplicateReference)
	assertAmount(t, "50.00", f.balance(t, f.worker.UserID).EarningsBalance)

	payouts, err := f.svc.ListPayouts(ctx, f.worker)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, "payout-001", payouts[0].Reference)
}

func TestWithdrawValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Withdraw(ctx, f.worker, "  ", dec("1.00"))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = f.svc.Withdraw(ctx, f.worker, "ref", dec("0"))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestEscrowBalanceIsNotWithdrawable(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.client.UserID, "100.00")

	_, err := f.svc.Withdraw(context.Background(), f.client, "ref-1", dec("10.00"))
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)
	assertAmount(t, "100.00", f.balance(t, f.client.UserID).EscrowBalance)
}
