package escrow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/workwise/internal/ledger"
	"github.com/sol1corejz/workwise/internal/logger"
	"github.com/sol1corejz/workwise/internal/models"
	"go.uber.org/zap"
)

// release pays the worker for p inside tx. The project row is claimed first
// with a guard on payment_released=false, so of two concurrent releases only
// one gets past the update; the other sees models.ErrConflict.
func (s *Service) release(ctx context.Context, tx ledger.Tx, p models.Project, to models.ProjectStatus) (models.Transaction, error) {
	if !p.WorkerID.Valid {
		return models.Transaction{}, s.integrity(p, "project has no worker to release to")
	}

	txs, err := tx.ProjectTransactions(ctx, p.ID)
	if err != nil {
		return models.Transaction{}, err
	}
	totals := ledger.Summarize(txs)
	if totals.Escrow == nil {
		return models.Transaction{}, s.integrity(p, "no escrow transaction to release from")
	}

	gross := p.AgreedAmount
	if gross.GreaterThan(totals.Remaining()) {
		return models.Transaction{}, s.integrity(p, fmt.Sprintf("release of %s exceeds remaining escrow %s", gross.StringFixed(2), totals.Remaining().StringFixed(2)))
	}
	fee := s.PlatformFee(gross)
	net := gross.Sub(fee)
	now := s.cfg.Now()

	updated := p
	updated.Status = to
	updated.EmployerApproved = true
	updated.PaymentReleased = true
	updated.UpdatedAt = now
	ok, err := tx.UpdateProject(ctx, updated, p.Status, false)
	if err != nil {
		return models.Transaction{}, err
	}
	if !ok {
		return models.Transaction{}, models.ErrConflict
	}

	if err := tx.AdjustBalance(ctx, p.WorkerID.UUID, models.AccountEarnings, net, now); err != nil {
		return models.Transaction{}, fmt.Errorf("credit worker earnings: %w", err)
	}

	rel := models.Transaction{
		ID:          uuid.New(),
		ProjectID:   p.ID,
		Type:        models.TransactionRelease,
		Status:      models.TransactionCompleted,
		Amount:      gross,
		PlatformFee: fee,
		NetAmount:   net,
		PayerID:     p.ClientID,
		PayeeID:     p.WorkerID.UUID,
		ProcessedAt: &now,
		CreatedAt:   now,
	}
	if err := tx.AppendTransaction(ctx, rel); err != nil {
		return models.Transaction{}, err
	}
	if _, err := tx.SettleTransaction(ctx, totals.Escrow.ID, models.TransactionPending, models.TransactionCompleted, now); err != nil {
		return models.Transaction{}, err
	}

	logger.Log.Info("Payment released",
		zap.Stringer("projectID", p.ID),
		zap.Stringer("workerID", p.WorkerID.UUID),
		zap.String("gross", gross.StringFixed(2)),
		zap.String("fee", fee.StringFixed(2)),
		zap.String("net", net.StringFixed(2)),
	)
	return rel, nil
}

// refund returns whatever is still held for p to the client and cancels it.
func (s *Service) refund(ctx context.Context, tx ledger.Tx, p models.Project) (models.Project, error) {
	txs, err := tx.ProjectTransactions(ctx, p.ID)
	if err != nil {
		return models.Project{}, err
	}
	totals := ledger.Summarize(txs)
	remaining := totals.Remaining()
	if remaining.IsNegative() {
		return models.Project{}, s.integrity(p, fmt.Sprintf("escrow overdrawn by %s", remaining.Neg().StringFixed(2)))
	}
	now := s.cfg.Now()

	updated := p
	updated.Status = models.ProjectCancelled
	updated.UpdatedAt = now
	ok, err := tx.UpdateProject(ctx, updated, p.Status, false)
	if err != nil {
		return models.Project{}, err
	}
	if !ok {
		return models.Project{}, models.ErrConflict
	}

	if remaining.IsPositive() {
		if err := tx.AdjustBalance(ctx, p.ClientID, models.AccountEscrow, remaining, now); err != nil {
			return models.Project{}, fmt.Errorf("credit client escrow: %w", err)
		}
		payer := p.ClientID
		if totals.Escrow != nil {
			payer = totals.Escrow.PayeeID
		}
		if err := tx.AppendTransaction(ctx, models.Transaction{
			ID:          uuid.New(),
			ProjectID:   p.ID,
			Type:        models.TransactionRefund,
			Status:      models.TransactionCompleted,
			Amount:      remaining,
			PlatformFee: decimal.Zero,
			NetAmount:   remaining,
			PayerID:     payer,
			PayeeID:     p.ClientID,
			ProcessedAt: &now,
			CreatedAt:   now,
		}); err != nil {
			return models.Project{}, err
		}
	}
	if totals.Escrow != nil {
		if _, err := tx.SettleTransaction(ctx, totals.Escrow.ID, models.TransactionPending, models.TransactionCancelled, now); err != nil {
			return models.Project{}, err
		}
	}

	logger.Log.Info("Escrow refunded",
		zap.Stringer("projectID", p.ID),
		zap.Stringer("clientID", p.ClientID),
		zap.String("amount", remaining.StringFixed(2)),
	)
	return updated, nil
}

// existingRelease finds the release entry of an already paid project.
func (s *Service) existingRelease(ctx context.Context, r ledger.Reader, p models.Project) (models.Transaction, error) {
	txs, err := r.ProjectTransactions(ctx, p.ID)
	if err != nil {
		return models.Transaction{}, err
	}
	if rel := ledger.Summarize(txs).Release; rel != nil {
		return *rel, nil
	}
	return models.Transaction{}, s.integrity(p, "payment_released is set but no release transaction exists")
}

func (s *Service) integrity(p models.Project, reason string) error {
	logger.Log.Error("Ledger integrity violation",
		zap.Bool("alert", true),
		zap.Stringer("projectID", p.ID),
		zap.String("status", string(p.Status)),
		zap.String("reason", reason),
	)
	return fmt.Errorf("%w: project %s: %s", models.ErrIntegrityViolation, p.ID, reason)
}
