package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/workwise/internal/gateway"
	"github.com/sol1corejz/workwise/internal/logger"
	"github.com/sol1corejz/workwise/internal/models"
	"go.uber.org/zap"
)

const signatureHeader = "Stripe-Signature"

type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type DepositResponse struct {
	Deposit      models.Deposit `json:"deposit"`
	ClientSecret string         `json:"client_secret"`
}

func (h *Handler) CreateDepositHandler(c *fiber.Ctx) error {
	var request DepositRequest
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	d, secret, err := h.svc.CreateDeposit(ctx, actor(c), request.Amount)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(DepositResponse{Deposit: d, ClientSecret: secret})
}

func (h *Handler) ListDepositsHandler(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	deposits, err := h.svc.ListDeposits(ctx, actor(c))
	if err != nil {
		return respondError(c, err)
	}
	if len(deposits) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Status(fiber.StatusOK).JSON(deposits)
}

// PaymentWebhookHandler takes gateway notifications. It is not behind auth;
// the payload signature is the credential.
func (h *Handler) PaymentWebhookHandler(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)

	ctx, cancel := requestContext(c)
	defer cancel()

	err := h.svc.HandleWebhook(ctx, payload, c.Get(signatureHeader))
	if errors.Is(err, gateway.ErrInvalidSignature) {
		logger.Log.Warn("Rejected webhook with bad signature", zap.String("ip", c.IP()))
		return badRequest(c, "Invalid signature")
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
