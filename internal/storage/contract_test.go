package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/workwise/internal/ledger"
	"github.com/sol1corejz/workwise/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) ledger.Store

func memoryFactory(t *testing.T) ledger.Store {
	return NewMemory()
}

func postgresFactory(t *testing.T) ledger.Store {
	uri := os.Getenv("TEST_DATABASE_URI")
	if uri == "" {
		t.Skip("TEST_DATABASE_URI not set")
	}
	pg, err := New(context.Background(), uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Close() })

	_, err = pg.db.Exec(`TRUNCATE transactions, projects, deposits, webhook_events, payouts, user_balances;`)
	require.NoError(t, err)
	return pg
}

func TestMemoryStore(t *testing.T) {
	runContract(t, memoryFactory)
}

func TestPostgresStore(t *testing.T) {
	runContract(t, postgresFactory)
}

func runContract(t *testing.T, factory storeFactory) {
	tests := map[string]func(t *testing.T, s ledger.Store){
		"balances":         testBalances,
		"project guard":    testProjectGuard,
		"settle guard":     testSettleGuard,
		"deposits":         testDeposits,
		"pending deposits": testPendingDeposits,
		"webhook events":   testWebhookEvents,
		"payouts":          testPayouts,
		"rollback":         testRollback,
		"list projects":    testListProjects,
		"missing rows":     testMissingRows,
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

var base = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func inTx(t *testing.T, s ledger.Store, fn func(ctx context.Context, tx ledger.Tx) error) error {
	t.Helper()
	return s.WithinTx(context.Background(), fn)
}

func newProject(client uuid.UUID) models.Project {
	return models.Project{
		ID:           uuid.New(),
		ClientID:     client,
		Title:        "Design review",
		AgreedAmount: amount("250.00"),
		Status:       models.ProjectOpen,
		CreatedAt:    base,
		UpdatedAt:    base,
	}
}

func testBalances(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	user := uuid.New()

	require.NoError(t, inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
		if err := tx.AdjustBalance(ctx, user, models.AccountEscrow, amount("100.00"), base); err != nil {
			return err
		}
		return tx.AdjustBalance(ctx, user, models.AccountEarnings, amount("40.00"), base)
	}))

	err := inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
		return tx.AdjustBalance(ctx, user, models.AccountEscrow, amount("-100.01"), base)
	})
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)

	require.NoError(t, inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
		if err := tx.AdjustBalance(ctx, user, models.AccountEscrow, amount("-60.00"), base); err != nil {
			return err
		}
		return tx.AdjustBalance(ctx, user, models.AccountEarnings, amount("-15.00"), base)
	}))

	b, err := s.GetBalance(ctx, user)
	require.NoError(t, err)
	assert.True(t, b.EscrowBalance.Equal(amount("40.00")), b.EscrowBalance.String())
	assert.True(t, b.EarningsBalance.Equal(amount("25.00")), b.EarningsBalance.String())
	assert.True(t, b.WithdrawnTotal.Equal(amount("15.00")), b.WithdrawnTotal.String())
	assert.True(t, b.UpdatedAt.Equal(base), b.UpdatedAt.String())

	err = inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
		return tx.AdjustBalance(ctx, uuid.New(), models.AccountEarnings, amount("-1.00"), base)
	})
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)
}

func testProjectGuard(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	p := newProject(uuid.New())
	require.NoError(t, inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertProject(ctx, p)
	}))

	next := p
	next.Status = models.ProjectInProgress
	next.WorkerID = uuid.NullUUID{UUID: uuid.New(), Valid: true}

	var first, second bool
	require.NoError(t, inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		first, err = tx.UpdateProject(ctx, next, models.ProjectOpen, false)
		return err
	}))
	require.NoError(t, inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		second, err = tx.UpdateProject(ctx, next, models.ProjectOpen, false)
		return err
	}))
	assert.True(t, first)
	assert.False(t, second)

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectInProgress, got.Status)
	assert.Equal(t, next.WorkerID, got.WorkerID)
	assert.True(t, got.AgreedAmount.Equal(p.AgreedAmount))
}

func testSettleGuard(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	p := newProject(uuid.New())
	entry := models.Transaction{
		ID:          uuid.New(),
		ProjectID:   p.ID,
		Type:        models.TransactionEscrow,
		Status:      models.TransactionPending,
		Amount:      amount("250.00"),
		PlatformFee: decimal.Zero,
		NetAmount:   amount("250.00"),
		PayerID:     p.ClientID,
		PayeeID:     uuid.New(),
		CreatedAt:   base,
	}
	require.NoError(t, inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
		if err := tx.InsertProject(ctx, p); err != nil {
			return err
		}
		return tx.AppendTransaction(ctx, entry)
	}))

	var ok bool
	require.NoError(t, inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		ok, err = tx.SettleTransaction(ctx, entry.ID, models.TransactionPending, models.TransactionCompleted, base)
		return err
	}))
	assert.True(t, ok)
	require.NoError(t, inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		ok, err = tx.SettleTransaction(ctx, entry.ID, models.TransactionPending, models.TransactionCancelled, base)
		return err
	}))
	assert.False(t, ok)

	txs, err := s.ProjectTransactions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionCompleted, txs[0].Status)
	assert.NotNil(t, txs[0].ProcessedAt)
}

func newDeposit(user uuid.UUID, at time.Time) models.Deposit {
	return models.Deposit{
		ID:        uuid.New(),
		UserID:    user,
		Amount:    amount("80.00"),
		Currency:  "usd",
		Status:    models.DepositPending,
		IntentID:  "pi_" + uuid.NewString(),
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func testDeposits(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	d := newDeposit(uuid.New(), base)
	require.NoError(t, inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertDeposit(ctx, d)
	}))

	dup := newDeposit(d.UserID, base)
	dup.IntentID = d.IntentID
	err := inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertDeposit(ctx, dup)
	})
	assert.ErrorIs(t, err, models.ErrConflict)

	method := "card"
	var first, second bool
	require.NoError(t, inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		first, err = tx.TransitionDeposit(ctx, d.ID, models.DepositPending, models.DepositCompleted, &method, base)
		return err
	}))
	require.NoError(t, inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		second, err = tx.TransitionDeposit(ctx, d.ID, models.DepositPending, models.DepositFailed, nil, base)
		return err
	}))
	assert.True(t, first)
	assert.False(t, second)

	got, err := s.GetDepositByIntent(ctx, d.IntentID)
	require.NoError(t, err)
	assert.Equal(t, models.DepositCompleted, got.Status)
	require.NotNil(t, got.PaymentMethod)
	assert.Equal(t, "card", *got.PaymentMethod)

	list, err := s.ListDeposits(ctx, d.UserID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testPendingDeposits(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	user := uuid.New()
	old := newDeposit(user, base.Add(-48*time.Hour))
	early := newDeposit(user, base.Add(time.Hour))
	late := newDeposit(user, base.Add(2*time.Hour))
	done := newDeposit(user, base.Add(3*time.Hour))
	done.Status = models.DepositCompleted

	require.NoError(t, inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
		for _, d := range []models.Deposit{late, old, done, early} {
			if err := tx.InsertDeposit(ctx, d); err != nil {
				return err
			}
		}
		return nil
	}))

	pending, err := s.PendingDeposits(ctx, base, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, early.ID, pending[0].ID)
	assert.Equal(t, late.ID, pending[1].ID)

	pending, err = s.PendingDeposits(ctx, base, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, early.ID, pending[0].ID)
}

func testWebhookEvents(t *testing.T, s ledger.Store) {
	eventID := "evt_" + uuid.NewString()
	var results []bool
	for i := 0; i < 2; i++ {
		require.NoError(t, inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
			ok, err := tx.MarkEventProcessed(ctx, eventID, "payment_intent.succeeded", base)
			results = append(results, ok)
			return err
		}))
	}
	assert.Equal(t, []bool{true, false}, results)
}

func testPayouts(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	user := uuid.New()
	payout := models.Payout{
		ID:          uuid.New(),
		UserID:      user,
		Reference:   "ref-" + uuid.NewString(),
		Amount:      amount("12.00"),
		Status:      models.PayoutRequested,
		RequestedAt: base,
	}
	require.NoError(t, inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertPayout(ctx, payout)
	}))

	again := payout
	again.ID = uuid.New()
	err := inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertPayout(ctx, again)
	})
	assert.ErrorIs(t, err, models.ErrDuplicateReference)

	list, err := s.ListPayouts(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, payout.ID, list[0].ID)
}

func testRollback(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	user := uuid.New()
	p := newProject(user)
	boom := errors.New("boom")

	err := inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
		if err := tx.InsertProject(ctx, p); err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, user, models.AccountEscrow, amount("10.00"), base); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	b, err := s.GetBalance(ctx, user)
	require.NoError(t, err)
	assert.True(t, b.EscrowBalance.IsZero())
}

func testListProjects(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	client := uuid.New()
	worker := uuid.New()

	open := newProject(client)
	started := newProject(client)
	started.Status = models.ProjectInProgress
	started.WorkerID = uuid.NullUUID{UUID: worker, Valid: true}
	started.CreatedAt = base.Add(time.Minute)
	other := newProject(uuid.New())

	require.NoError(t, inTx(t, s, func(ctx context.Context, tx ledger.Tx) error {
		for _, p := range []models.Project{open, started, other} {
			if err := tx.InsertProject(ctx, p); err != nil {
				return err
			}
		}
		return nil
	}))

	all, err := s.ListProjects(ctx, client, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, started.ID, all[0].ID)

	mine, err := s.ListProjects(ctx, worker, nil)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	filtered, err := s.ListProjects(ctx, client, []models.ProjectStatus{models.ProjectOpen})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, open.ID, filtered[0].ID)
}

func testMissingRows(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	_, err := s.GetProject(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.GetDepositByIntent(ctx, "pi_missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	b, err := s.GetBalance(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, b.EscrowBalance.IsZero())
}
