package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sol1corejz/workwise/internal/models"
)

type BalanceResponse struct {
	Escrow    string `json:"escrow"`
	Earnings  string `json:"earnings"`
	Withdrawn string `json:"withdrawn"`
}

func (h *Handler) GetUserBalanceHandler(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	balance, err := h.svc.Balance(ctx, actor(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(BalanceResponse{
		Escrow:    models.Money(balance.EscrowBalance),
		Earnings:  models.Money(balance.EarningsBalance),
		Withdrawn: models.Money(balance.WithdrawnTotal),
	})
}
