package escrow

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/workwise/internal/ledger"
	"github.com/sol1corejz/workwise/internal/logger"
	"github.com/sol1corejz/workwise/internal/models"
	"go.uber.org/zap"
)

// Withdraw debits the worker's earnings and records a payout request under a
// caller-chosen reference. A reference can be used once.
func (s *Service) Withdraw(ctx context.Context, actor Actor, reference string, amount decimal.Decimal) (models.Payout, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" || len(reference) > 255 || !validAmount(amount) {
		return models.Payout{}, models.ErrInvalidInput
	}

	payout := models.Payout{
		ID:          uuid.New(),
		UserID:      actor.UserID,
		Reference:   reference,
		Amount:      amount,
		Status:      models.PayoutRequested,
		RequestedAt: s.cfg.Now(),
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if err := tx.AdjustBalance(ctx, actor.UserID, models.AccountEarnings, amount.Neg(), payout.RequestedAt); err != nil {
			return err
		}
		return tx.InsertPayout(ctx, payout)
	})
	if err != nil {
		if !errors.Is(err, models.ErrInsufficientBalance) && !errors.Is(err, models.ErrDuplicateReference) {
			logger.Log.Error("Error creating payout", zap.Stringer("userID", actor.UserID), zap.Error(err))
		}
		return models.Payout{}, err
	}

	logger.Log.Info("Payout requested",
		zap.Stringer("userID", actor.UserID),
		zap.String("reference", reference),
		zap.String("amount", amount.StringFixed(2)),
	)
	return payout, nil
}

func (s *Service) ListPayouts(ctx context.Context, actor Actor) ([]models.Payout, error) {
	return s.store.ListPayouts(ctx, actor.UserID)
}
