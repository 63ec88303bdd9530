package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/workwise/internal/gateway"
	"github.com/sol1corejz/workwise/internal/ledger"
	"github.com/sol1corejz/workwise/internal/logger"
	"github.com/sol1corejz/workwise/internal/models"
	"go.uber.org/zap"
)

// Outcome is what applying a gateway status did to a deposit.
type Outcome int

const (
	// OutcomePending means the gateway is still processing.
	OutcomePending Outcome = iota
	OutcomeConfirmed
	OutcomeFailed
	// OutcomeUnchanged means another path already finalised the deposit.
	OutcomeUnchanged
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeFailed:
		return "failed"
	case OutcomeUnchanged:
		return "unchanged"
	}
	return "unknown"
}

// CreateDeposit opens a payment intent for a wallet top-up and records the
// deposit as pending. The client secret is handed to the browser to finish
// the payment with the provider.
func (s *Service) CreateDeposit(ctx context.Context, actor Actor, amount decimal.Decimal) (models.Deposit, string, error) {
	if !validAmount(amount) {
		return models.Deposit{}, "", models.ErrInvalidInput
	}

	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	intent, err := s.gateway.CreateIntent(gctx, amount, s.cfg.Currency, map[string]string{
		"user_id": actor.UserID.String(),
		"purpose": "escrow_deposit",
	})
	if err != nil {
		return models.Deposit{}, "", err
	}

	now := s.cfg.Now()
	d := models.Deposit{
		ID:        uuid.New(),
		UserID:    actor.UserID,
		Amount:    amount,
		Currency:  s.cfg.Currency,
		Status:    models.DepositPending,
		IntentID:  intent.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertDeposit(ctx, d)
	})
	if err != nil {
		return models.Deposit{}, "", err
	}

	logger.Log.Info("Deposit created",
		zap.Stringer("depositID", d.ID),
		zap.Stringer("userID", d.UserID),
		zap.String("intentID", d.IntentID),
		zap.String("amount", amount.StringFixed(2)),
	)
	return d, intent.ClientSecret, nil
}

func (s *Service) ListDeposits(ctx context.Context, actor Actor) ([]models.Deposit, error) {
	return s.store.ListDeposits(ctx, actor.UserID)
}

// HandleWebhook verifies and applies a gateway notification. Redelivered
// events are recognised by ID and ignored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}
	if !ev.Relevant {
		logger.Log.Debug("Ignoring webhook event", zap.String("eventID", ev.ID), zap.String("type", ev.Type))
		return nil
	}

	return s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		first, err := tx.MarkEventProcessed(ctx, ev.ID, ev.Type, s.cfg.Now())
		if err != nil {
			return err
		}
		if !first {
			logger.Log.Info("Duplicate webhook event", zap.String("eventID", ev.ID))
			return nil
		}

		d, err := tx.GetDepositByIntent(ctx, ev.Intent.ID)
		if errors.Is(err, models.ErrNotFound) {
			logger.Log.Warn("Webhook for unknown payment intent", zap.String("eventID", ev.ID), zap.String("intentID", ev.Intent.ID))
			return nil
		}
		if err != nil {
			return err
		}

		outcome, err := s.applyIntent(ctx, tx, d, ev.Intent)
		if err != nil {
			return err
		}
		logger.Log.Info("Webhook applied",
			zap.String("eventID", ev.ID),
			zap.Stringer("depositID", d.ID),
			zap.Stringer("outcome", outcome),
		)
		return nil
	})
}

// ReconcileDeposit asks the gateway for the intent behind d and applies the
// answer. A gateway error or timeout leaves the deposit untouched.
func (s *Service) ReconcileDeposit(ctx context.Context, d models.Deposit) (Outcome, error) {
	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	intent, err := s.gateway.GetIntent(gctx, d.IntentID)
	cancel()
	if err != nil {
		return OutcomePending, fmt.Errorf("query intent %s: %w", d.IntentID, err)
	}

	var outcome Outcome
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		outcome, err = s.applyIntent(ctx, tx, d, intent)
		return err
	})
	if err != nil {
		return OutcomePending, err
	}
	return outcome, nil
}

// applyIntent moves d out of pending according to the intent's status. The
// pending->completed update is the guard: whichever of webhook and sweep
// commits it first credits the balance, the other changes nothing.
func (s *Service) applyIntent(ctx context.Context, tx ledger.Tx, d models.Deposit, intent gateway.Intent) (Outcome, error) {
	now := s.cfg.Now()

	switch intent.Status {
	case gateway.StatusSucceeded:
		if !intent.Amount.IsZero() && !intent.Amount.Equal(d.Amount) {
			logger.Log.Error("Ledger integrity violation",
				zap.Bool("alert", true),
				zap.Stringer("depositID", d.ID),
				zap.String("expected", d.Amount.StringFixed(2)),
				zap.String("gateway", intent.Amount.StringFixed(2)),
			)
			return OutcomePending, fmt.Errorf("%w: deposit %s amount differs from gateway", models.ErrIntegrityViolation, d.ID)
		}
		var method *string
		if intent.PaymentMethod != "" {
			method = &intent.PaymentMethod
		}
		ok, err := tx.TransitionDeposit(ctx, d.ID, models.DepositPending, models.DepositCompleted, method, now)
		if err != nil {
			return OutcomePending, err
		}
		if !ok {
			return OutcomeUnchanged, nil
		}
		if err := tx.AdjustBalance(ctx, d.UserID, models.AccountEscrow, d.Amount, now); err != nil {
			return OutcomePending, fmt.Errorf("credit escrow balance: %w", err)
		}
		return OutcomeConfirmed, nil

	case gateway.StatusCanceled, gateway.StatusFailed:
		ok, err := tx.TransitionDeposit(ctx, d.ID, models.DepositPending, models.DepositFailed, nil, now)
		if err != nil {
			return OutcomePending, err
		}
		if !ok {
			return OutcomeUnchanged, nil
		}
		return OutcomeFailed, nil

	default:
		return OutcomePending, nil
	}
}
