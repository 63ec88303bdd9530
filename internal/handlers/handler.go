// Package handlers exposes the escrow service over HTTP.
package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sol1corejz/workwise/internal/escrow"
	"github.com/sol1corejz/workwise/internal/middleware"
)

const requestTimeout = 10 * time.Second

type Handler struct {
	svc *escrow.Service
}

func New(svc *escrow.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts every route on app. Webhook and health routes are
// registered before the authenticated group so the auth middleware never
// sees them.
func (h *Handler) Register(app *fiber.App, authMW fiber.Handler) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Post("/api/webhooks/payments", h.PaymentWebhookHandler)

	api := app.Group("/api", authMW)

	api.Post("/projects", h.CreateProjectHandler)
	api.Get("/projects", h.ListProjectsHandler)
	api.Get("/projects/:id", h.GetProjectHandler)
	api.Get("/projects/:id/transactions", h.ProjectTransactionsHandler)
	api.Post("/projects/:id/accept", h.AcceptBidHandler)
	api.Post("/projects/:id/complete", h.CompleteHandler)
	api.Post("/projects/:id/approve", h.ApproveHandler)
	api.Post("/projects/:id/revision", h.RequestRevisionHandler)
	api.Post("/projects/:id/dispute", h.DisputeHandler)
	api.Post("/projects/:id/resolve", h.ResolveHandler)
	api.Post("/projects/:id/cancel", h.CancelHandler)

	api.Get("/user/balance", h.GetUserBalanceHandler)
	api.Post("/user/balance/withdraw", h.WithdrawHandler)
	api.Get("/user/withdrawals", h.GetWithdrawalsHandler)

	api.Post("/deposits", h.CreateDepositHandler)
	api.Get("/deposits", h.ListDepositsHandler)
}

func actor(c *fiber.Ctx) escrow.Actor {
	return escrow.Actor{
		UserID: middleware.UserID(c),
		Admin:  middleware.IsAdmin(c),
	}
}

func requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), requestTimeout)
}

func projectID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}
