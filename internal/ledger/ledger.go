// Package ledger defines the persistence contract the escrow service relies
// on. Every write that moves money goes through a Tx obtained from
// Store.WithinTx, so a balance change and the ledger entry recording it are
// committed together or not at all.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/workwise/internal/models"
)

// Reader holds the queries available both inside and outside a unit of work.
type Reader interface {
	GetProject(ctx context.Context, id uuid.UUID) (models.Project, error)
	ProjectTransactions(ctx context.Context, projectID uuid.UUID) ([]models.Transaction, error)
	GetDepositByIntent(ctx context.Context, intentID string) (models.Deposit, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (models.UserBalance, error)
}

// Tx is a unit of work. Conditional writes report whether their guard
// matched; a false result means a concurrent writer got there first.
type Tx interface {
	Reader

	InsertProject(ctx context.Context, p models.Project) error
	// UpdateProject writes p only if the stored row still has the expected
	// status and payment_released value.
	UpdateProject(ctx context.Context, p models.Project, expectStatus models.ProjectStatus, expectReleased bool) (bool, error)

	// AdjustBalance adds delta to the account and stamps the row with at. It
	// returns models.ErrInsufficientBalance, without writing, when the result
	// would be negative.
	AdjustBalance(ctx context.Context, userID uuid.UUID, account models.Account, delta decimal.Decimal, at time.Time) error

	AppendTransaction(ctx context.Context, t models.Transaction) error
	SettleTransaction(ctx context.Context, id uuid.UUID, from, to models.TransactionStatus, at time.Time) (bool, error)

	InsertDeposit(ctx context.Context, d models.Deposit) error
	TransitionDeposit(ctx context.Context, id uuid.UUID, from, to models.DepositStatus, paymentMethod *string, at time.Time) (bool, error)

	// MarkEventProcessed records a webhook event ID and reports whether this
	// was its first delivery.
	MarkEventProcessed(ctx context.Context, eventID, eventType string, at time.Time) (bool, error)

	InsertPayout(ctx context.Context, p models.Payout) error
}

type Store interface {
	Reader

	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	ListProjects(ctx context.Context, userID uuid.UUID, statuses []models.ProjectStatus) ([]models.Project, error)
	ListDeposits(ctx context.Context, userID uuid.UUID) ([]models.Deposit, error)
	// PendingDeposits returns pending deposits created at or after since,
	// oldest first.
	PendingDeposits(ctx context.Context, since time.Time, limit int) ([]models.Deposit, error)
	ListPayouts(ctx context.Context, userID uuid.UUID) ([]models.Payout, error)
}
