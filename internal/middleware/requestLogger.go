package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sol1corejz/workwise/internal/logger"
	"go.uber.org/zap"
)

func RequestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if fe, ok := err.(*fiber.Error); ok {
		status = fe.Code
	}
	logger.Log.Info("Request handled",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)),
		zap.Int("size", len(c.Response().Body())),
	)
	return err
}
