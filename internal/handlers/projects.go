package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/workwise/internal/escrow"
	"github.com/sol1corejz/workwise/internal/models"
)

type CreateProjectRequest struct {
	Title  string          `json:"title"`
	Budget decimal.Decimal `json:"budget"`
}

type AcceptBidRequest struct {
	WorkerID uuid.UUID       `json:"worker_id"`
	Amount   decimal.Decimal `json:"amount"`
}

type ResolveRequest struct {
	Resolution escrow.Resolution `json:"resolution"`
}

func (h *Handler) CreateProjectHandler(c *fiber.Ctx) error {
	var request CreateProjectRequest
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.svc.CreateProject(ctx, actor(c), request.Title, request.Budget)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *Handler) ListProjectsHandler(c *fiber.Ctx) error {
	var statuses []models.ProjectStatus
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, models.ProjectStatus(strings.TrimSpace(s)))
		}
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	projects, err := h.svc.ListProjects(ctx, actor(c), statuses)
	if err != nil {
		return respondError(c, err)
	}
	if len(projects) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Status(fiber.StatusOK).JSON(projects)
}

func (h *Handler) GetProjectHandler(c *fiber.Ctx) error {
	id, ok := projectID(c)
	if !ok {
		return badRequest(c, "Invalid project id")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.svc.GetProject(ctx, actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(p)
}

func (h *Handler) ProjectTransactionsHandler(c *fiber.Ctx) error {
	id, ok := projectID(c)
	if !ok {
		return badRequest(c, "Invalid project id")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	txs, err := h.svc.ProjectTransactions(ctx, actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	if len(txs) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Status(fiber.StatusOK).JSON(txs)
}

func (h *Handler) AcceptBidHandler(c *fiber.Ctx) error {
	id, ok := projectID(c)
	if !ok {
		return badRequest(c, "Invalid project id")
	}
	var request AcceptBidRequest
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.svc.AcceptBid(ctx, actor(c), id, request.WorkerID, request.Amount)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(p)
}

func (h *Handler) CompleteHandler(c *fiber.Ctx) error {
	return h.transition(c, h.svc.Complete)
}

func (h *Handler) RequestRevisionHandler(c *fiber.Ctx) error {
	return h.transition(c, h.svc.RequestRevision)
}

func (h *Handler) DisputeHandler(c *fiber.Ctx) error {
	return h.transition(c, h.svc.Dispute)
}

func (h *Handler) CancelHandler(c *fiber.Ctx) error {
	return h.transition(c, h.svc.Cancel)
}

func (h *Handler) ApproveHandler(c *fiber.Ctx) error {
	id, ok := projectID(c)
	if !ok {
		return badRequest(c, "Invalid project id")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	release, err := h.svc.Approve(ctx, actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(release)
}

func (h *Handler) ResolveHandler(c *fiber.Ctx) error {
	id, ok := projectID(c)
	if !ok {
		return badRequest(c, "Invalid project id")
	}
	var request ResolveRequest
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.svc.Resolve(ctx, actor(c), id, request.Resolution)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(p)
}

type projectAction func(ctx context.Context, actor escrow.Actor, id uuid.UUID) (models.Project, error)

func (h *Handler) transition(c *fiber.Ctx, action projectAction) error {
	id, ok := projectID(c)
	if !ok {
		return badRequest(c, "Invalid project id")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := action(ctx, actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(p)
}
