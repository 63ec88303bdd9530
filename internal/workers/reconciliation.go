package workers

import (
	"context"
	"errors"
	"time"

	"github.com/sol1corejz/workwise/internal/escrow"
	"github.com/sol1corejz/workwise/internal/logger"
	"github.com/sol1corejz/workwise/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultInterval = time.Hour
	DefaultWindow   = 7 * 24 * time.Hour
	DefaultBatch    = 500
)

var ErrSweepInProgress = errors.New("reconciliation sweep already running")

type DepositSource interface {
	PendingDeposits(ctx context.Context, since time.Time, limit int) ([]models.Deposit, error)
}

type DepositReconciler interface {
	ReconcileDeposit(ctx context.Context, d models.Deposit) (escrow.Outcome, error)
}

type Summary struct {
	Checked   int
	Confirmed int
	Failed    int
	Pending   int
	Errored   int
}

type Reconciler struct {
	deposits DepositSource
	escrow   DepositReconciler
	locker   Locker
	window   time.Duration
	batch    int
	now      func() time.Time
}

type Option func(*Reconciler)

func WithLocker(l Locker) Option {
	return func(r *Reconciler) { r.locker = l }
}

func WithWindow(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.window = d
		}
	}
}

func WithBatch(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.batch = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func NewReconciler(deposits DepositSource, svc DepositReconciler, opts ...Option) *Reconciler {
	r := &Reconciler{
		deposits: deposits,
		escrow:   svc,
		locker:   &LocalLocker{},
		window:   DefaultWindow,
		batch:    DefaultBatch,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start runs a sweep every interval until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	go func() {
		// Deposits left pending across a restart are picked up right away.
		r.sweepLogged(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Log.Info("Reconciliation worker stopped")
				return
			case <-ticker.C:
				r.sweepLogged(ctx)
			}
		}
	}()

	logger.Log.Info("Reconciliation worker started", zap.Duration("interval", interval))
}

func (r *Reconciler) sweepLogged(ctx context.Context) {
	if _, err := r.Sweep(ctx); err != nil && !errors.Is(err, ErrSweepInProgress) && ctx.Err() == nil {
		logger.Log.Error("Reconciliation sweep failed", zap.Error(err))
	}
}

// Sweep re-queries the gateway for every pending deposit inside the window.
// A failure on one deposit is counted and the sweep moves on.
func (r *Reconciler) Sweep(ctx context.Context) (Summary, error) {
	var sum Summary

	ok, unlock, err := r.locker.TryLock(ctx)
	if err != nil {
		return sum, err
	}
	if !ok {
		logger.Log.Info("Skipping reconciliation sweep, previous run still in flight")
		return sum, ErrSweepInProgress
	}
	defer unlock()

	since := r.now().Add(-r.window)
	deposits, err := r.deposits.PendingDeposits(ctx, since, r.batch)
	if err != nil {
		return sum, err
	}

	for _, d := range deposits {
		if ctx.Err() != nil {
			break
		}
		sum.Checked++
		outcome, err := r.escrow.ReconcileDeposit(ctx, d)
		if err != nil {
			sum.Errored++
			logger.Log.Warn("Failed to reconcile deposit",
				zap.Stringer("depositID", d.ID),
				zap.String("intentID", d.IntentID),
				zap.Error(err),
			)
			continue
		}
		switch outcome {
		case escrow.OutcomeConfirmed:
			sum.Confirmed++
		case escrow.OutcomeFailed:
			sum.Failed++
		case escrow.OutcomePending:
			sum.Pending++
		}
	}

	logger.Log.Info("reconciliation sweep finished",
		zap.Int("checked", sum.Checked),
		zap.Int("confirmed", sum.Confirmed),
		zap.Int("failed", sum.Failed),
		zap.Int("pending", sum.Pending),
		zap.Int("errored", sum.Errored),
	)
	return sum, ctx.Err()
}
