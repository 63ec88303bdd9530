// Package escrow moves project money between client escrow balances and
// worker earnings. Every operation runs as a single ledger unit of work and
// relies on conditional row updates, not locks, to decide which of two
// racing callers wins.
package escrow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/workwise/internal/gateway"
	"github.com/sol1corejz/workwise/internal/ledger"
	"github.com/sol1corejz/workwise/internal/models"
)

type Gateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (gateway.Intent, error)
	GetIntent(ctx context.Context, id string) (gateway.Intent, error)
	ParseWebhook(payload []byte, signature string) (gateway.Event, error)
}

type Config struct {
	// FeePercent is the platform's cut of each release, e.g. 5 for 5%.
	FeePercent     decimal.Decimal
	Currency       string
	GatewayTimeout time.Duration
	Now            func() time.Time
}

type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

type Service struct {
	store   ledger.Store
	gateway Gateway
	cfg     Config
}

func New(store ledger.Store, gw Gateway, cfg Config) (*Service, error) {
	if cfg.FeePercent.IsNegative() || cfg.FeePercent.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("fee percent %s out of range [0, 100)", cfg.FeePercent)
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 10 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{store: store, gateway: gw, cfg: cfg}, nil
}

// PlatformFee returns the fee withheld from gross, rounded to cents.
func (s *Service) PlatformFee(gross decimal.Decimal) decimal.Decimal {
	return gross.Mul(s.cfg.FeePercent).Div(decimal.NewFromInt(100)).Round(2)
}

func (s *Service) Balance(ctx context.Context, actor Actor) (models.UserBalance, error) {
	return s.store.GetBalance(ctx, actor.UserID)
}

// validAmount accepts positive amounts with at most two fraction digits.
func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Truncate(2))
}
