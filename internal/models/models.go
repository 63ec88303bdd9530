package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProjectStatus string

const (
	ProjectOpen       ProjectStatus = "open"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectApproved   ProjectStatus = "approved"
	ProjectDisputed   ProjectStatus = "disputed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectOpen, ProjectInProgress, ProjectCompleted, ProjectApproved, ProjectDisputed, ProjectCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition can leave the status.
func (s ProjectStatus) Terminal() bool {
	return s == ProjectApproved || s == ProjectCancelled
}

type TransactionType string

const (
	TransactionEscrow  TransactionType = "escrow"
	TransactionRelease TransactionType = "release"
	TransactionRefund  TransactionType = "refund"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionCancelled TransactionStatus = "cancelled"
)

type DepositStatus string

const (
	DepositPending   DepositStatus = "pending"
	DepositCompleted DepositStatus = "completed"
	DepositFailed    DepositStatus = "failed"
)

func (s DepositStatus) Terminal() bool {
	return s == DepositCompleted || s == DepositFailed
}

// Account selects which balance column a ledger adjustment touches.
type Account string

const (
	AccountEscrow   Account = "escrow"
	AccountEarnings Account = "earnings"
)

type PayoutStatus string

const (
	PayoutRequested PayoutStatus = "requested"
)

type Project struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	ClientID         uuid.UUID       `db:"client_id" json:"client_id"`
	WorkerID         uuid.NullUUID   `db:"worker_id" json:"worker_id"`
	Title            string          `db:"title" json:"title"`
	AgreedAmount     decimal.Decimal `db:"agreed_amount" json:"agreed_amount"`
	Status           ProjectStatus   `db:"status" json:"status"`
	EmployerApproved bool            `db:"employer_approved" json:"employer_approved"`
	PaymentReleased  bool            `db:"payment_released" json:"payment_released"`
	RevisionCount    int             `db:"revision_count" json:"revision_count"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	StartedAt        *time.Time      `db:"started_at" json:"started_at,omitempty"`
	CompletedAt      *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// IsParty reports whether userID is the client or the assigned worker.
func (p Project) IsParty(userID uuid.UUID) bool {
	return p.ClientID == userID || p.IsWorker(userID)
}

func (p Project) IsWorker(userID uuid.UUID) bool {
	return p.WorkerID.Valid && p.WorkerID.UUID == userID
}

type Transaction struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	ProjectID        uuid.UUID         `db:"project_id" json:"project_id"`
	Type             TransactionType   `db:"type" json:"type"`
	Status           TransactionStatus `db:"status" json:"status"`
	Amount           decimal.Decimal   `db:"amount" json:"amount"`
	PlatformFee      decimal.Decimal   `db:"platform_fee" json:"platform_fee"`
	NetAmount        decimal.Decimal   `db:"net_amount" json:"net_amount"`
	PayerID          uuid.UUID         `db:"payer_id" json:"payer_id"`
	PayeeID          uuid.UUID         `db:"payee_id" json:"payee_id"`
	GatewayReference *string           `db:"gateway_reference" json:"gateway_reference,omitempty"`
	ProcessedAt      *time.Time        `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
}

type Deposit struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	UserID        uuid.UUID       `db:"user_id" json:"user_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Currency      string          `db:"currency" json:"currency"`
	Status        DepositStatus   `db:"status" json:"status"`
	IntentID      string          `db:"intent_id" json:"intent_id"`
	PaymentMethod *string         `db:"payment_method" json:"payment_method,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

type UserBalance struct {
	UserID          uuid.UUID       `db:"user_id" json:"user_id"`
	EscrowBalance   decimal.Decimal `db:"escrow_balance" json:"escrow_balance"`
	EarningsBalance decimal.Decimal `db:"earnings_balance" json:"earnings_balance"`
	WithdrawnTotal  decimal.Decimal `db:"withdrawn_total" json:"withdrawn_total"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

type Payout struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	UserID      uuid.UUID       `db:"user_id" json:"user_id"`
	Reference   string          `db:"reference" json:"reference"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Status      PayoutStatus    `db:"status" json:"status"`
	RequestedAt time.Time       `db:"requested_at" json:"requested_at"`
}
