package escrow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/workwise/internal/ledger"
	"github.com/sol1corejz/workwise/internal/logger"
	"github.com/sol1corejz/workwise/internal/models"
	"go.uber.org/zap"
)

// Resolution is an admin's decision on a disputed project.
type Resolution string

const (
	ResolveRelease Resolution = "release"
	ResolveRefund  Resolution = "refund"
)

func (s *Service) CreateProject(ctx context.Context, actor Actor, title string, budget decimal.Decimal) (models.Project, error) {
	title = strings.TrimSpace(title)
	if title == "" || len(title) > 255 || !validAmount(budget) {
		return models.Project{}, models.ErrInvalidInput
	}

	now := s.cfg.Now()
	p := models.Project{
		ID:           uuid.New(),
		ClientID:     actor.UserID,
		Title:        title,
		AgreedAmount: budget,
		Status:       models.ProjectOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertProject(ctx, p)
	})
	if err != nil {
		return models.Project{}, err
	}
	return p, nil
}

func (s *Service) GetProject(ctx context.Context, actor Actor, id uuid.UUID) (models.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	if !actor.Admin && !p.IsParty(actor.UserID) {
		return models.Project{}, models.ErrForbidden
	}
	return p, nil
}

func (s *Service) ListProjects(ctx context.Context, actor Actor, statuses []models.ProjectStatus) ([]models.Project, error) {
	for _, st := range statuses {
		if !st.Valid() {
			return nil, models.ErrInvalidInput
		}
	}
	return s.store.ListProjects(ctx, actor.UserID, statuses)
}

func (s *Service) ProjectTransactions(ctx context.Context, actor Actor, id uuid.UUID) ([]models.Transaction, error) {
	if _, err := s.GetProject(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.store.ProjectTransactions(ctx, id)
}

// AcceptBid assigns the worker, fixes the price and moves the price from the
// client's escrow balance into a pending escrow entry for the project.
func (s *Service) AcceptBid(ctx context.Context, actor Actor, id, workerID uuid.UUID, amount decimal.Decimal) (models.Project, error) {
	if !validAmount(amount) || workerID == uuid.Nil || workerID == actor.UserID {
		return models.Project{}, models.ErrInvalidInput
	}

	var out models.Project
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		p, err := tx.GetProject(ctx, id)
		if err != nil {
			return err
		}
		if p.ClientID != actor.UserID {
			return models.ErrForbidden
		}
		to, err := Next(ActionAcceptBid, p.Status)
		if err != nil {
			return err
		}

		now := s.cfg.Now()
		updated := p
		updated.WorkerID = uuid.NullUUID{UUID: workerID, Valid: true}
		updated.AgreedAmount = amount
		updated.Status = to
		updated.StartedAt = &now
		updated.UpdatedAt = now
		ok, err := tx.UpdateProject(ctx, updated, p.Status, false)
		if err != nil {
			return err
		}
		if !ok {
			return models.ErrConflict
		}

		if err := tx.AdjustBalance(ctx, p.ClientID, models.AccountEscrow, amount.Neg(), now); err != nil {
			if errors.Is(err, models.ErrInsufficientBalance) {
				return models.ErrInsufficientEscrowBalance
			}
			return err
		}
		if err := tx.AppendTransaction(ctx, models.Transaction{
			ID:          uuid.New(),
			ProjectID:   p.ID,
			Type:        models.TransactionEscrow,
			Status:      models.TransactionPending,
			Amount:      amount,
			PlatformFee: decimal.Zero,
			NetAmount:   amount,
			PayerID:     p.ClientID,
			PayeeID:     workerID,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		out = updated
		return nil
	})
	if errors.Is(err, models.ErrConflict) {
		return s.acceptAfterConflict(ctx, id, workerID, amount)
	}
	if err != nil {
		return models.Project{}, err
	}

	logger.Log.Info("Bid accepted",
		zap.Stringer("projectID", id),
		zap.Stringer("workerID", workerID),
		zap.String("amount", amount.StringFixed(2)),
	)
	return out, nil
}

func (s *Service) Complete(ctx context.Context, actor Actor, id uuid.UUID) (models.Project, error) {
	return s.advance(ctx, id, ActionComplete,
		func(p models.Project) error {
			if !p.IsWorker(actor.UserID) {
				return models.ErrForbidden
			}
			return nil
		},
		func(p *models.Project, now time.Time) {
			p.CompletedAt = &now
		})
}

func (s *Service) RequestRevision(ctx context.Context, actor Actor, id uuid.UUID) (models.Project, error) {
	return s.advance(ctx, id, ActionRequestRevision,
		func(p models.Project) error {
			if p.ClientID != actor.UserID {
				return models.ErrForbidden
			}
			return nil
		},
		func(p *models.Project, _ time.Time) {
			p.CompletedAt = nil
			p.RevisionCount++
		})
}

func (s *Service) Dispute(ctx context.Context, actor Actor, id uuid.UUID) (models.Project, error) {
	return s.advance(ctx, id, ActionDispute,
		func(p models.Project) error {
			if !p.IsParty(actor.UserID) {
				return models.ErrForbidden
			}
			return nil
		}, nil)
}

// Approve accepts delivered work and releases payment. Approving a project
// that is already paid returns the original release entry and changes
// nothing.
func (s *Service) Approve(ctx context.Context, actor Actor, id uuid.UUID) (models.Transaction, error) {
	var out models.Transaction
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		p, err := tx.GetProject(ctx, id)
		if err != nil {
			return err
		}
		if p.ClientID != actor.UserID {
			return models.ErrForbidden
		}
		if p.PaymentReleased {
			out, err = s.existingRelease(ctx, tx, p)
			return err
		}
		to, err := Next(ActionApprove, p.Status)
		if err != nil {
			return err
		}
		out, err = s.release(ctx, tx, p, to)
		return err
	})
	if errors.Is(err, models.ErrConflict) {
		return s.releaseAfterConflict(ctx, id, ActionApprove)
	}
	if err != nil {
		return models.Transaction{}, err
	}
	return out, nil
}

// Resolve settles a disputed project. Only admins may resolve.
func (s *Service) Resolve(ctx context.Context, actor Actor, id uuid.UUID, resolution Resolution) (models.Project, error) {
	if !actor.Admin {
		return models.Project{}, models.ErrForbidden
	}
	var action Action
	switch resolution {
	case ResolveRelease:
		action = ActionResolveRelease
	case ResolveRefund:
		action = ActionResolveRefund
	default:
		return models.Project{}, models.ErrInvalidInput
	}

	var out models.Project
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		p, err := tx.GetProject(ctx, id)
		if err != nil {
			return err
		}
		to, err := Next(action, p.Status)
		if err != nil {
			return err
		}
		if action == ActionResolveRefund {
			out, err = s.refund(ctx, tx, p)
			return err
		}
		if _, err := s.release(ctx, tx, p, to); err != nil {
			return err
		}
		out, err = tx.GetProject(ctx, id)
		return err
	})
	if errors.Is(err, models.ErrConflict) {
		return s.afterConflict(ctx, id, action)
	}
	if err != nil {
		return models.Project{}, err
	}
	return out, nil
}

// Cancel refunds the remaining escrow to the client. Cancelling an already
// cancelled project is a no-op.
func (s *Service) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (models.Project, error) {
	var out models.Project
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		p, err := tx.GetProject(ctx, id)
		if err != nil {
			return err
		}
		if !p.IsParty(actor.UserID) {
			return models.ErrForbidden
		}
		if p.PaymentReleased {
			return models.ErrCancellationNotAllowed
		}
		if p.Status == models.ProjectCancelled {
			out = p
			return nil
		}
		if _, err := Next(ActionCancel, p.Status); err != nil {
			return err
		}
		out, err = s.refund(ctx, tx, p)
		return err
	})
	if errors.Is(err, models.ErrConflict) {
		p, gerr := s.store.GetProject(ctx, id)
		if gerr != nil {
			return models.Project{}, gerr
		}
		if p.PaymentReleased {
			return models.Project{}, models.ErrCancellationNotAllowed
		}
		return s.afterConflict(ctx, id, ActionCancel)
	}
	if err != nil {
		return models.Project{}, err
	}
	return out, nil
}

// advance applies a transition that moves no money.
func (s *Service) advance(ctx context.Context, id uuid.UUID, action Action, authorize func(models.Project) error, apply func(*models.Project, time.Time)) (models.Project, error) {
	var out models.Project
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		p, err := tx.GetProject(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(p); err != nil {
			return err
		}
		to, err := Next(action, p.Status)
		if err != nil {
			return err
		}

		updated := p
		updated.Status = to
		updated.UpdatedAt = s.cfg.Now()
		if apply != nil {
			apply(&updated, updated.UpdatedAt)
		}
		ok, err := tx.UpdateProject(ctx, updated, p.Status, p.PaymentReleased)
		if err != nil {
			return err
		}
		if !ok {
			return models.ErrConflict
		}
		out = updated
		return nil
	})
	if errors.Is(err, models.ErrConflict) {
		return s.afterConflict(ctx, id, action)
	}
	if err != nil {
		return models.Project{}, err
	}
	return out, nil
}

// afterConflict handles a lost conditional update: if the concurrent writer
// already put the project where action would have, that counts as success.
func (s *Service) afterConflict(ctx context.Context, id uuid.UUID, action Action) (models.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	if p.Status == transitions[action].to {
		return p, nil
	}
	return models.Project{}, &models.TransitionError{Action: string(action), From: p.Status}
}

// acceptAfterConflict reports a lost accept-bid race as success only when the
// winner accepted the same worker at the same price.
func (s *Service) acceptAfterConflict(ctx context.Context, id, workerID uuid.UUID, amount decimal.Decimal) (models.Project, error) {
	p, err := s.afterConflict(ctx, id, ActionAcceptBid)
	if err != nil {
		return models.Project{}, err
	}
	if !p.IsWorker(workerID) || !p.AgreedAmount.Equal(amount) {
		return models.Project{}, &models.TransitionError{Action: string(ActionAcceptBid), From: p.Status}
	}
	return p, nil
}

func (s *Service) releaseAfterConflict(ctx context.Context, id uuid.UUID, action Action) (models.Transaction, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return models.Transaction{}, err
	}
	if !p.PaymentReleased {
		return models.Transaction{}, &models.TransitionError{Action: string(action), From: p.Status}
	}
	rel, err := s.existingRelease(ctx, s.store, p)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("load winning release: %w", err)
	}
	return rel, nil
}
