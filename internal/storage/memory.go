package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/workwise/internal/ledger"
	"github.com/sol1corejz/workwise/internal/models"
)

// Memory is an in-process ledger.Store. Units of work are serialised and run
// against a copy of the state, which replaces the live state only when the
// callback returns nil.
type Memory struct {
	mu sync.Mutex
	st *memState
}

var _ ledger.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{st: newMemState()}
}

type memState struct {
	projects   map[uuid.UUID]models.Project
	txs        []models.Transaction
	deposits   map[uuid.UUID]models.Deposit
	intents    map[string]uuid.UUID
	balances   map[uuid.UUID]models.UserBalance
	events     map[string]string
	payouts    []models.Payout
	payoutRefs map[string]struct{}
}

func newMemState() *memState {
	return &memState{
		projects:   make(map[uuid.UUID]models.Project),
		deposits:   make(map[uuid.UUID]models.Deposit),
		intents:    make(map[string]uuid.UUID),
		balances:   make(map[uuid.UUID]models.UserBalance),
		events:     make(map[string]string),
		payoutRefs: make(map[string]struct{}),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.projects {
		c.projects[k] = v
	}
	c.txs = append(c.txs, s.txs...)
	for k, v := range s.deposits {
		c.deposits[k] = v
	}
	for k, v := range s.intents {
		c.intents[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	c.payouts = append(c.payouts, s.payouts...)
	for k := range s.payoutRefs {
		c.payoutRefs[k] = struct{}{}
	}
	return c
}

func (m *Memory) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.st.clone()
	if err := fn(ctx, &memTx{work}); err != nil {
		return err
	}
	m.st = work
	return nil
}

func (m *Memory) GetProject(ctx context.Context, id uuid.UUID) (models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getProject(id)
}

func (m *Memory) ProjectTransactions(ctx context.Context, projectID uuid.UUID) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.projectTransactions(projectID), nil
}

func (m *Memory) GetDepositByIntent(ctx context.Context, intentID string) (models.Deposit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getDepositByIntent(intentID)
}

func (m *Memory) GetBalance(ctx context.Context, userID uuid.UUID) (models.UserBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getBalance(userID), nil
}

func (m *Memory) ListProjects(ctx context.Context, userID uuid.UUID, statuses []models.ProjectStatus) ([]models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := make(map[models.ProjectStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	var out []models.Project
	for _, p := range m.st.projects {
		if !p.IsParty(userID) {
			continue
		}
		if len(want) > 0 && !want[p.Status] {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListDeposits(ctx context.Context, userID uuid.UUID) ([]models.Deposit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Deposit
	for _, d := range m.st.deposits {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) PendingDeposits(ctx context.Context, since time.Time, limit int) ([]models.Deposit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Deposit
	for _, d := range m.st.deposits {
		if d.Status == models.DepositPending && !d.CreatedAt.Before(since) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ListPayouts(ctx context.Context, userID uuid.UUID) ([]models.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Payout
	for _, p := range m.st.payouts {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memState) getProject(id uuid.UUID) (models.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return models.Project{}, models.ErrNotFound
	}
	return p, nil
}

func (s *memState) projectTransactions(projectID uuid.UUID) []models.Transaction {
	var out []models.Transaction
	for _, t := range s.txs {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out
}

func (s *memState) getDepositByIntent(intentID string) (models.Deposit, error) {
	id, ok := s.intents[intentID]
	if !ok {
		return models.Deposit{}, models.ErrNotFound
	}
	return s.deposits[id], nil
}

func (s *memState) getBalance(userID uuid.UUID) models.UserBalance {
	b, ok := s.balances[userID]
	if !ok {
		return models.UserBalance{UserID: userID}
	}
	return b
}

type memTx struct {
	*memState
}

func (t *memTx) GetProject(ctx context.Context, id uuid.UUID) (models.Project, error) {
	return t.getProject(id)
}

func (t *memTx) ProjectTransactions(ctx context.Context, projectID uuid.UUID) ([]models.Transaction, error) {
	return t.projectTransactions(projectID), nil
}

func (t *memTx) GetDepositByIntent(ctx context.Context, intentID string) (models.Deposit, error) {
	return t.getDepositByIntent(intentID)
}

func (t *memTx) GetBalance(ctx context.Context, userID uuid.UUID) (models.UserBalance, error) {
	return t.getBalance(userID), nil
}

func (t *memTx) InsertProject(ctx context.Context, p models.Project) error {
	if _, ok := t.projects[p.ID]; ok {
		return models.ErrConflict
	}
	t.projects[p.ID] = p
	return nil
}

func (t *memTx) UpdateProject(ctx context.Context, p models.Project, expectStatus models.ProjectStatus, expectReleased bool) (bool, error) {
	cur, ok := t.projects[p.ID]
	if !ok {
		return false, models.ErrNotFound
	}
	if cur.Status != expectStatus || cur.PaymentReleased != expectReleased {
		return false, nil
	}
	t.projects[p.ID] = p
	return true, nil
}

func (t *memTx) AdjustBalance(ctx context.Context, userID uuid.UUID, account models.Account, delta decimal.Decimal, at time.Time) error {
	b := t.getBalance(userID)
	switch account {
	case models.AccountEscrow:
		next := b.EscrowBalance.Add(delta)
		if next.IsNegative() {
			return models.ErrInsufficientBalance
		}
		b.EscrowBalance = next
	case models.AccountEarnings:
		next := b.EarningsBalance.Add(delta)
		if next.IsNegative() {
			return models.ErrInsufficientBalance
		}
		b.EarningsBalance = next
		if delta.IsNegative() {
			b.WithdrawnTotal = b.WithdrawnTotal.Sub(delta)
		}
	default:
		return models.ErrInvalidInput
	}
	b.UpdatedAt = at
	t.balances[userID] = b
	return nil
}

func (t *memTx) AppendTransaction(ctx context.Context, tx models.Transaction) error {
	t.txs = append(t.txs, tx)
	return nil
}

func (t *memTx) SettleTransaction(ctx context.Context, id uuid.UUID, from, to models.TransactionStatus, at time.Time) (bool, error) {
	for i := range t.txs {
		if t.txs[i].ID != id {
			continue
		}
		if t.txs[i].Status != from {
			return false, nil
		}
		t.txs[i].Status = to
		t.txs[i].ProcessedAt = &at
		return true, nil
	}
	return false, models.ErrNotFound
}

func (t *memTx) InsertDeposit(ctx context.Context, d models.Deposit) error {
	if _, ok := t.intents[d.IntentID]; ok {
		return models.ErrConflict
	}
	t.deposits[d.ID] = d
	t.intents[d.IntentID] = d.ID
	return nil
}

func (t *memTx) TransitionDeposit(ctx context.Context, id uuid.UUID, from, to models.DepositStatus, paymentMethod *string, at time.Time) (bool, error) {
	d, ok := t.deposits[id]
	if !ok {
		return false, models.ErrNotFound
	}
	if d.Status != from {
		return false, nil
	}
	d.Status = to
	if paymentMethod != nil {
		d.PaymentMethod = paymentMethod
	}
	d.UpdatedAt = at
	t.deposits[id] = d
	return true, nil
}

func (t *memTx) MarkEventProcessed(ctx context.Context, eventID, eventType string, at time.Time) (bool, error) {
	if _, seen := t.events[eventID]; seen {
		return false, nil
	}
	t.events[eventID] = eventType
	return true, nil
}

func (t *memTx) InsertPayout(ctx context.Context, p models.Payout) error {
	if _, ok := t.payoutRefs[p.Reference]; ok {
		return models.ErrDuplicateReference
	}
	t.payoutRefs[p.Reference] = struct{}{}
	t.payouts = append(t.payouts, p)
	return nil
}
