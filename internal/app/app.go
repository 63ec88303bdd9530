// Package app wires configuration into the ledger store, payment gateway,
// escrow service and reconciliation worker shared by the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sol1corejz/workwise/cmd/config"
	"github.com/sol1corejz/workwise/internal/escrow"
	"github.com/sol1corejz/workwise/internal/gateway"
	"github.com/sol1corejz/workwise/internal/ledger"
	"github.com/sol1corejz/workwise/internal/logger"
	"github.com/sol1corejz/workwise/internal/storage"
	"github.com/sol1corejz/workwise/internal/workers"
	"go.uber.org/zap"
)

const devJWTSecret = "workwise-dev-secret"

type App struct {
	Store      ledger.Store
	Escrow     *escrow.Service
	Reconciler *workers.Reconciler
	JWTSecret  string

	closers []func() error
}

func Build(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{JWTSecret: cfg.JWTSecret}

	var gw escrow.Gateway
	switch {
	case cfg.StripeKey != "" && cfg.WebhookSecret != "":
		gw = gateway.NewStripe(cfg.StripeKey, cfg.WebhookSecret)
	case !cfg.UseMemoryStore:
		return nil, errors.New("stripe secret key and webhook secret are required")
	case cfg.StripeKey != "":
		return nil, errors.New("webhook secret is required with a stripe key")
	default:
		logger.Log.Warn("No Stripe key configured, using the fake payment gateway")
		if cfg.WebhookSecret == "" {
			logger.Log.Warn("No webhook secret configured, payment webhooks will be rejected")
		}
		gw = gateway.NewFake(cfg.WebhookSecret)
	}

	if cfg.UseMemoryStore {
		logger.Log.Warn("Using in-memory ledger store, data is lost on exit")
		a.Store = storage.NewMemory()
	} else {
		pg, err := storage.New(ctx, cfg.DatabaseURI)
		if err != nil {
			return nil, err
		}
		a.Store = pg
		a.closers = append(a.closers, pg.Close)
	}

	if a.JWTSecret == "" {
		if !cfg.UseMemoryStore {
			a.Close()
			return nil, errors.New("jwt secret is required")
		}
		logger.Log.Warn("No JWT secret configured, using the development secret")
		a.JWTSecret = devJWTSecret
	}

	svc, err := escrow.New(a.Store, gw, escrow.Config{
		FeePercent:     cfg.FeePercent,
		Currency:       cfg.Currency,
		GatewayTimeout: cfg.GatewayTimeout,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Escrow = svc

	opts := []workers.Option{
		workers.WithWindow(cfg.SweepWindow),
		workers.WithBatch(cfg.SweepBatch),
	}
	if cfg.RedisURL != "" {
		client, err := workers.ConnectRedis(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		opts = append(opts, workers.WithLocker(workers.NewRedisLocker(client, leaseTTL(cfg))))
	}
	a.Reconciler = workers.NewReconciler(a.Store, svc, opts...)

	return a, nil
}

// leaseTTL bounds how long a crashed sweep can block others: one gateway
// timeout per deposit in a full batch.
func leaseTTL(cfg config.Config) time.Duration {
	return cfg.GatewayTimeout * time.Duration(cfg.SweepBatch)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Log.Warn("Error closing resource", zap.Error(err))
		}
	}
	a.closers = nil
}
