package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sol1corejz/workwise/cmd/config"
	"github.com/sol1corejz/workwise/internal/app"
	"github.com/sol1corejz/workwise/internal/auth"
	"github.com/sol1corejz/workwise/internal/handlers"
	"github.com/sol1corejz/workwise/internal/logger"
	"github.com/sol1corejz/workwise/internal/middleware"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = logger.Initialize("info")
	cfg, err := config.Load(os.Args[0], os.Args[1:])
	if err != nil {
		logger.Log.Fatal("Failed to load config", zap.Error(err))
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		logger.Log.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer logger.Log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		logger.Log.Error("Failed to init application", zap.Error(err))
		return
	}
	defer a.Close()

	a.Reconciler.Start(ctx, cfg.SweepInterval)

	if err := run(ctx, cfg, a); err != nil {
		logger.Log.Error("Failed to run server", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, a *app.App) error {
	server := fiber.New()
	server.Use(middleware.RequestLogger)
	server.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
	}))

	handlers.New(a.Escrow).Register(server, middleware.Auth(auth.New(a.JWTSecret)))

	go func() {
		<-ctx.Done()
		logger.Log.Info("Shutting down server")
		if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Log.Error("Failed to shut down server", zap.Error(err))
		}
	}()

	logger.Log.Info("Running server", zap.String("address", cfg.RunAddress))
	return server.Listen(cfg.RunAddress)
}
