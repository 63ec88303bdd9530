package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	RunAddress     string
	DatabaseURI    string
	LogLevel       string
	UseMemoryStore bool

	JWTSecret     string
	StripeKey     string
	WebhookSecret string
	Currency      string
	FeePercent    decimal.Decimal

	SweepInterval  time.Duration
	SweepWindow    time.Duration
	SweepBatch     int
	GatewayTimeout time.Duration
	RedisURL       string
}

// Load reads flags from args, then lets environment variables override
// them. A .env file in the working directory, if present, is loaded into
// the environment first without replacing variables that are already set.
func Load(name string, args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	var fee string
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.RunAddress, "a", ":8080", "address to run server")
	fs.StringVar(&cfg.DatabaseURI, "d", "", "database uri")
	fs.StringVar(&cfg.LogLevel, "l", "info", "log level")
	fs.BoolVar(&cfg.UseMemoryStore, "memory", false, "keep the ledger in memory instead of postgres")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "secret used to verify identity tokens")
	fs.StringVar(&cfg.StripeKey, "stripe-key", "", "stripe secret key; empty runs the in-process fake gateway (memory store only)")
	fs.StringVar(&cfg.WebhookSecret, "webhook-secret", "", "webhook signing secret")
	fs.StringVar(&cfg.Currency, "currency", "usd", "deposit currency")
	fs.StringVar(&fee, "fee", "5", "platform fee percent")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", time.Hour, "reconciliation sweep interval")
	fs.DurationVar(&cfg.SweepWindow, "sweep-window", 7*24*time.Hour, "age of the oldest deposit the sweep looks at")
	fs.IntVar(&cfg.SweepBatch, "sweep-batch", 500, "max deposits per sweep")
	fs.DurationVar(&cfg.GatewayTimeout, "gateway-timeout", 10*time.Second, "timeout for each payment gateway call")
	fs.StringVar(&cfg.RedisURL, "redis", "", "redis url for the shared sweep lease")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	envString("RUN_ADDRESS", &cfg.RunAddress)
	envString("DATABASE_URI", &cfg.DatabaseURI)
	envString("LOG_LEVEL", &cfg.LogLevel)
	envString("JWT_SECRET", &cfg.JWTSecret)
	envString("STRIPE_SECRET_KEY", &cfg.StripeKey)
	envString("STRIPE_WEBHOOK_SECRET", &cfg.WebhookSecret)
	envString("CURRENCY", &cfg.Currency)
	envString("PLATFORM_FEE_PERCENT", &fee)
	envString("REDIS_URL", &cfg.RedisURL)
	if v := os.Getenv("USE_MEMORY_STORE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("USE_MEMORY_STORE: %w", err)
		}
		cfg.UseMemoryStore = b
	}
	for env, dst := range map[string]*time.Duration{
		"SWEEP_INTERVAL":  &cfg.SweepInterval,
		"SWEEP_WINDOW":    &cfg.SweepWindow,
		"GATEWAY_TIMEOUT": &cfg.GatewayTimeout,
	} {
		if v := os.Getenv(env); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("%s: %w", env, err)
			}
			*dst = d
		}
	}
	if v := os.Getenv("SWEEP_BATCH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("SWEEP_BATCH: %w", err)
		}
		cfg.SweepBatch = n
	}

	pct, err := decimal.NewFromString(fee)
	if err != nil {
		return Config{}, fmt.Errorf("fee percent %q: %w", fee, err)
	}
	cfg.FeePercent = pct

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.DatabaseURI == "" && !c.UseMemoryStore {
		return errors.New("database uri is required unless the memory store is used")
	}
	if !c.UseMemoryStore && (c.StripeKey == "" || c.WebhookSecret == "") {
		return errors.New("stripe secret key and webhook secret are required unless the memory store is used")
	}
	if c.SweepInterval <= 0 || c.SweepWindow <= 0 || c.GatewayTimeout <= 0 {
		return errors.New("sweep interval, sweep window and gateway timeout must be positive")
	}
	if c.SweepBatch <= 0 {
		return errors.New("sweep batch must be positive")
	}
	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
