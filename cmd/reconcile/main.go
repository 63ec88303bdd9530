// Command reconcile runs one reconciliation sweep and exits. It is meant for
// cron; overlapping runs are skipped through the same lease the API server
// uses.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sol1corejz/workwise/cmd/config"
	"github.com/sol1corejz/workwise/internal/app"
	"github.com/sol1corejz/workwise/internal/logger"
	"github.com/sol1corejz/workwise/internal/workers"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = logger.Initialize("info")
	cfg, err := config.Load(os.Args[0], os.Args[1:])
	if err != nil {
		logger.Log.Error("Failed to load config", zap.Error(err))
		return 2
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		logger.Log.Error("Failed to initialize logger", zap.Error(err))
		return 2
	}
	defer logger.Log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		logger.Log.Error("Failed to init application", zap.Error(err))
		return 1
	}
	defer a.Close()

	sum, err := a.Reconciler.Sweep(ctx)
	switch {
	case errors.Is(err, workers.ErrSweepInProgress):
		return 0
	case err != nil:
		logger.Log.Error("Reconciliation sweep failed", zap.Error(err))
		return 1
	case sum.Errored > 0:
		return 1
	}
	return 0
}
