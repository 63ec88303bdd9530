package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/workwise/internal/models"
)

type WithdrawRequest struct {
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
}

type WithdrawalsResponse struct {
	Reference   string    `json:"reference"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"`
	RequestedAt time.Time `json:"requested_at"`
}

func (h *Handler) WithdrawHandler(c *fiber.Ctx) error {
	var request WithdrawRequest
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	payout, err := h.svc.Withdraw(ctx, actor(c), request.Reference, request.Amount)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(WithdrawalsResponse{
		Reference:   payout.Reference,
		Amount:      models.Money(payout.Amount),
		Status:      string(payout.Status),
		RequestedAt: payout.RequestedAt,
	})
}

func (h *Handler) GetWithdrawalsHandler(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	payouts, err := h.svc.ListPayouts(ctx, actor(c))
	if err != nil {
		return respondError(c, err)
	}
	if len(payouts) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}

	response := make([]WithdrawalsResponse, 0, len(payouts))
	for _, p := range payouts {
		response = append(response, WithdrawalsResponse{
			Reference:   p.Reference,
			Amount:      models.Money(p.Amount),
			Status:      string(p.Status),
			RequestedAt: p.RequestedAt,
		})
	}
	return c.Status(fiber.StatusOK).JSON(response)
}
