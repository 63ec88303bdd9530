package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sol1corejz/workwise/internal/gateway"
	"github.com/sol1corejz/workwise/internal/logger"
	"github.com/sol1corejz/workwise/internal/models"
	"go.uber.org/zap"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, gateway.ErrInvalidAmount),
		errors.Is(err, gateway.ErrInvalidSignature):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientEscrowBalance),
		errors.Is(err, models.ErrInsufficientBalance):
		return fiber.StatusPaymentRequired
	case errors.Is(err, models.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrCancellationNotAllowed),
		errors.Is(err, models.ErrDuplicateReference):
		return fiber.StatusConflict
	case errors.Is(err, gateway.ErrTransient):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		logger.Log.Error("Request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		if status == fiber.StatusBadGateway {
			return c.Status(status).JSON(fiber.Map{
				"error": "Payment provider unavailable",
			})
		}
		return c.Status(status).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}
