package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/workwise/internal/ledger"
	"github.com/sol1corejz/workwise/internal/logger"
	"github.com/sol1corejz/workwise/internal/models"
	"go.uber.org/zap"
)

var (
	ErrConnectionFailed    = errors.New("db connection failed")
	ErrCreatingTableFailed = errors.New("creating table failed")
)

const (
	projectColumns = `id, client_id, worker_id, title, agreed_amount, status, employer_approved,
		payment_released, revision_count, created_at, started_at, completed_at, updated_at`
	transactionColumns = `id, project_id, type, status, amount, platform_fee, net_amount, payer_id,
		payee_id, gateway_reference, processed_at, created_at`
	depositColumns = `id, user_id, amount, currency, status, intent_id, payment_method, created_at, updated_at`
)

var tables = []string{
	`CREATE TABLE IF NOT EXISTS user_balances (
		user_id UUID PRIMARY KEY NOT NULL,
		escrow_balance NUMERIC(14, 2) NOT NULL DEFAULT 0.00 CHECK (escrow_balance >= 0),
		earnings_balance NUMERIC(14, 2) NOT NULL DEFAULT 0.00 CHECK (earnings_balance >= 0),
		withdrawn_total NUMERIC(14, 2) NOT NULL DEFAULT 0.00,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS projects (
		id UUID PRIMARY KEY NOT NULL,
		client_id UUID NOT NULL,
		worker_id UUID,
		title VARCHAR(255) NOT NULL,
		agreed_amount NUMERIC(14, 2) NOT NULL,
		status VARCHAR(20) NOT NULL,
		employer_approved BOOLEAN NOT NULL DEFAULT FALSE,
		payment_released BOOLEAN NOT NULL DEFAULT FALSE,
		revision_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY NOT NULL,
		project_id UUID NOT NULL REFERENCES projects(id),
		type VARCHAR(20) NOT NULL,
		status VARCHAR(20) NOT NULL,
		amount NUMERIC(14, 2) NOT NULL,
		platform_fee NUMERIC(14, 2) NOT NULL DEFAULT 0.00,
		net_amount NUMERIC(14, 2) NOT NULL,
		payer_id UUID NOT NULL,
		payee_id UUID NOT NULL,
		gateway_reference VARCHAR(255),
		processed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS transactions_one_release_per_project
		ON transactions (project_id) WHERE type = 'release';`,
	`CREATE TABLE IF NOT EXISTS deposits (
		id UUID PRIMARY KEY NOT NULL,
		user_id UUID NOT NULL,
		amount NUMERIC(14, 2) NOT NULL,
		currency VARCHAR(3) NOT NULL,
		status VARCHAR(20) NOT NULL,
		intent_id VARCHAR(255) UNIQUE NOT NULL,
		payment_method VARCHAR(64),
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE INDEX IF NOT EXISTS deposits_pending_created_at
		ON deposits (created_at) WHERE status = 'pending';`,
	`CREATE TABLE IF NOT EXISTS webhook_events (
		event_id VARCHAR(255) PRIMARY KEY NOT NULL,
		event_type VARCHAR(64) NOT NULL,
		processed_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS payouts (
		id UUID PRIMARY KEY NOT NULL,
		user_id UUID NOT NULL,
		reference VARCHAR(255) UNIQUE NOT NULL,
		amount NUMERIC(14, 2) NOT NULL,
		status VARCHAR(20) NOT NULL,
		requested_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
}

// Postgres is the ledger.Store backed by PostgreSQL. Money-moving writes are
// conditional UPDATEs, so under READ COMMITTED the second of two racing
// writers re-evaluates the guard after the first commits and matches no rows.
type Postgres struct {
	pgQueries
	db *sqlx.DB
}

var _ ledger.Store = (*Postgres)(nil)

func New(ctx context.Context, databaseURI string) (*Postgres, error) {
	if databaseURI == "" {
		return nil, ErrConnectionFailed
	}

	db, err := sqlx.ConnectContext(ctx, "pgx", databaseURI)
	if err != nil {
		logger.Log.Error("Error opening database connection", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			logger.Log.Error("Error creating table", zap.Error(err))
			_ = db.Close()
			return nil, fmt.Errorf("%w: %v", ErrCreatingTableFailed, err)
		}
	}

	return &Postgres{pgQueries: pgQueries{q: db}, db: db}, nil
}

func (s *Postgres) Close() error {
	return s.db.Close()
}

func (s *Postgres) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logger.Log.Error("Error rolling back transaction", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(ctx, &pgQueries{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Postgres) ListProjects(ctx context.Context, userID uuid.UUID, statuses []models.ProjectStatus) ([]models.Project, error) {
	filter := make([]string, 0, len(statuses))
	for _, st := range statuses {
		filter = append(filter, string(st))
	}

	var projects []models.Project
	err := sqlx.SelectContext(ctx, s.db, &projects, `
		SELECT `+projectColumns+` FROM projects
		WHERE (client_id = $1 OR worker_id = $1)
			AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
		ORDER BY created_at DESC;
	`, userID, pq.Array(filter))
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *Postgres) ListDeposits(ctx context.Context, userID uuid.UUID) ([]models.Deposit, error) {
	var deposits []models.Deposit
	err := sqlx.SelectContext(ctx, s.db, &deposits, `
		SELECT `+depositColumns+` FROM deposits WHERE user_id = $1 ORDER BY created_at DESC;
	`, userID)
	if err != nil {
		return nil, err
	}
	return deposits, nil
}

func (s *Postgres) PendingDeposits(ctx context.Context, since time.Time, limit int) ([]models.Deposit, error) {
	var deposits []models.Deposit
	err := sqlx.SelectContext(ctx, s.db, &deposits, `
		SELECT `+depositColumns+` FROM deposits
		WHERE status = $1 AND created_at >= $2
		ORDER BY created_at
		LIMIT $3;
	`, string(models.DepositPending), since, limit)
	if err != nil {
		return nil, err
	}
	return deposits, nil
}

func (s *Postgres) ListPayouts(ctx context.Context, userID uuid.UUID) ([]models.Payout, error) {
	var payouts []models.Payout
	err := sqlx.SelectContext(ctx, s.db, &payouts, `
		SELECT id, user_id, reference, amount, status, requested_at
		FROM payouts WHERE user_id = $1 ORDER BY requested_at;
	`, userID)
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

// pgQueries runs against either the pool or an open transaction.
type pgQueries struct {
	q sqlx.ExtContext
}

func (p *pgQueries) GetProject(ctx context.Context, id uuid.UUID) (models.Project, error) {
	var project models.Project
	err := sqlx.GetContext(ctx, p.q, &project, `SELECT `+projectColumns+` FROM projects WHERE id = $1;`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Project{}, models.ErrNotFound
		}
		return models.Project{}, err
	}
	return project, nil
}

func (p *pgQueries) ProjectTransactions(ctx context.Context, projectID uuid.UUID) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := sqlx.SelectContext(ctx, p.q, &txs, `
		SELECT `+transactionColumns+` FROM transactions WHERE project_id = $1 ORDER BY created_at, id;
	`, projectID)
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (p *pgQueries) GetDepositByIntent(ctx context.Context, intentID string) (models.Deposit, error) {
	var deposit models.Deposit
	err := sqlx.GetContext(ctx, p.q, &deposit, `SELECT `+depositColumns+` FROM deposits WHERE intent_id = $1;`, intentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Deposit{}, models.ErrNotFound
		}
		return models.Deposit{}, err
	}
	return deposit, nil
}

func (p *pgQueries) GetBalance(ctx context.Context, userID uuid.UUID) (models.UserBalance, error) {
	var balance models.UserBalance
	err := sqlx.GetContext(ctx, p.q, &balance, `
		SELECT user_id, escrow_balance, earnings_balance, withdrawn_total, updated_at
		FROM user_balances WHERE user_id = $1;
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.UserBalance{UserID: userID}, nil
		}
		return models.UserBalance{}, err
	}
	return balance, nil
}

func (p *pgQueries) InsertProject(ctx context.Context, project models.Project) error {
	_, err := p.q.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`, project.ID, project.ClientID, project.WorkerID, project.Title, project.AgreedAmount, string(project.Status),
		project.EmployerApproved, project.PaymentReleased, project.RevisionCount, project.CreatedAt,
		project.StartedAt, project.CompletedAt, project.UpdatedAt)
	return err
}

func (p *pgQueries) UpdateProject(ctx context.Context, project models.Project, expectStatus models.ProjectStatus, expectReleased bool) (bool, error) {
	res, err := p.q.ExecContext(ctx, `
		UPDATE projects SET
			worker_id = $2, agreed_amount = $3, status = $4, employer_approved = $5,
			payment_released = $6, revision_count = $7, started_at = $8, completed_at = $9, updated_at = $10
		WHERE id = $1 AND status = $11 AND payment_released = $12;
	`, project.ID, project.WorkerID, project.AgreedAmount, string(project.Status), project.EmployerApproved,
		project.PaymentReleased, project.RevisionCount, project.StartedAt, project.CompletedAt, project.UpdatedAt,
		string(expectStatus), expectReleased)
	if err != nil {
		return false, err
	}
	return applied(res)
}

func (p *pgQueries) AdjustBalance(ctx context.Context, userID uuid.UUID, account models.Account, delta decimal.Decimal, at time.Time) error {
	var query string
	switch {
	case account == models.AccountEscrow && !delta.IsNegative():
		query = `
			INSERT INTO user_balances (user_id, escrow_balance, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (user_id) DO UPDATE
			SET escrow_balance = user_balances.escrow_balance + EXCLUDED.escrow_balance, updated_at = EXCLUDED.updated_at;`
	case account == models.AccountEscrow:
		query = `
			UPDATE user_balances SET escrow_balance = escrow_balance + $2, updated_at = $3
			WHERE user_id = $1 AND escrow_balance + $2 >= 0;`
	case account == models.AccountEarnings && !delta.IsNegative():
		query = `
			INSERT INTO user_balances (user_id, earnings_balance, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (user_id) DO UPDATE
			SET earnings_balance = user_balances.earnings_balance + EXCLUDED.earnings_balance, updated_at = EXCLUDED.updated_at;`
	case account == models.AccountEarnings:
		query = `
			UPDATE user_balances
			SET earnings_balance = earnings_balance + $2, withdrawn_total = withdrawn_total - $2, updated_at = $3
			WHERE user_id = $1 AND earnings_balance + $2 >= 0;`
	default:
		return models.ErrInvalidInput
	}

	res, err := p.q.ExecContext(ctx, query, userID, delta, at)
	if err != nil {
		return err
	}
	ok, err := applied(res)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrInsufficientBalance
	}
	return nil
}

func (p *pgQueries) AppendTransaction(ctx context.Context, t models.Transaction) error {
	_, err := p.q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`, t.ID, t.ProjectID, string(t.Type), string(t.Status), t.Amount, t.PlatformFee, t.NetAmount,
		t.PayerID, t.PayeeID, t.GatewayReference, t.ProcessedAt, t.CreatedAt)
	return err
}

func (p *pgQueries) SettleTransaction(ctx context.Context, id uuid.UUID, from, to models.TransactionStatus, at time.Time) (bool, error) {
	res, err := p.q.ExecContext(ctx, `
		UPDATE transactions SET status = $3, processed_at = $4 WHERE id = $1 AND status = $2;
	`, id, string(from), string(to), at)
	if err != nil {
		return false, err
	}
	return applied(res)
}

func (p *pgQueries) InsertDeposit(ctx context.Context, d models.Deposit) error {
	res, err := p.q.ExecContext(ctx, `
		INSERT INTO deposits (`+depositColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (intent_id) DO NOTHING;
	`, d.ID, d.UserID, d.Amount, d.Currency, string(d.Status), d.IntentID, d.PaymentMethod, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return err
	}
	ok, err := applied(res)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrConflict
	}
	return nil
}

func (p *pgQueries) TransitionDeposit(ctx context.Context, id uuid.UUID, from, to models.DepositStatus, paymentMethod *string, at time.Time) (bool, error) {
	res, err := p.q.ExecContext(ctx, `
		UPDATE deposits SET status = $3, payment_method = COALESCE($4, payment_method), updated_at = $5
		WHERE id = $1 AND status = $2;
	`, id, string(from), string(to), paymentMethod, at)
	if err != nil {
		return false, err
	}
	return applied(res)
}

func (p *pgQueries) MarkEventProcessed(ctx context.Context, eventID, eventType string, at time.Time) (bool, error) {
	res, err := p.q.ExecContext(ctx, `
		INSERT INTO webhook_events (event_id, event_type, processed_at) VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING;
	`, eventID, eventType, at)
	if err != nil {
		return false, err
	}
	return applied(res)
}

func (p *pgQueries) InsertPayout(ctx context.Context, payout models.Payout) error {
	res, err := p.q.ExecContext(ctx, `
		INSERT INTO payouts (id, user_id, reference, amount, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (reference) DO NOTHING;
	`, payout.ID, payout.UserID, payout.Reference, payout.Amount, string(payout.Status), payout.RequestedAt)
	if err != nil {
		return err
	}
	ok, err := applied(res)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrDuplicateReference
	}
	return nil
}

func applied(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
