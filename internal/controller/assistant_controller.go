package controller

import (
	"ash-assistant-be/internal/dto"
	"ash-assistant-be/internal/pkg/logger"
	"ash-assistant-be/internal/pkg/serverutils"
	"ash-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAssistantController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	ListSessions(ctx *fiber.Ctx) error
	ShowSession(ctx *fiber.Ctx) error
	Ask(ctx *fiber.Ctx) error
	StartStream(ctx *fiber.Ctx) error
	Models(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
	Logs(ctx *fiber.Ctx) error
}

type assistantController struct {
	assistantService service.IAssistantService
	eventLog         logger.ILogger
}

func NewAssistantController(assistantService service.IAssistantService, eventLog logger.ILogger) IAssistantController {
	return &assistantController{
		assistantService: assistantService,
		eventLog:         eventLog,
	}
}

func (c *assistantController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/assistant/v1")
	h.Post("sessions", c.CreateSession)
	h.Get("sessions", c.ListSessions)
	h.Get("sessions/:id", c.ShowSession)
	h.Post("sessions/:id/stream", c.StartStream)
	h.Post("ask", c.Ask)
	h.Get("models", c.Models)
	h.Get("search", c.Search)
	h.Get("logs", c.Logs)
}

func (c *assistantController) CreateSession(ctx *fiber.Ctx) error {
	res, err := c.assistantService.CreateSession(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *assistantController) ListSessions(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 20)

	res := c.assistantService.ListSessions(limit)

	return ctx.JSON(serverutils.SuccessResponse("Success list sessions", res))
}

func (c *assistantController) ShowSession(ctx *fiber.Ctx) error {
	res, err := c.assistantService.GetSession(ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show session", res))
}

func (c *assistantController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.assistantService.Ask(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success ask assistant", res))
}

func (c *assistantController) StartStream(ctx *fiber.Ctx) error {
	var req dto.StreamStartRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.assistantService.StartStream(ctx.Params("id"), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Streaming started", res))
}

func (c *assistantController) Models(ctx *fiber.Ctx) error {
	res := c.assistantService.Models(ctx.Context())

	return ctx.JSON(serverutils.SuccessResponse("Success list models", res))
}

func (c *assistantController) Search(ctx *fiber.Ctx) error {
	q := ctx.Query("q", "")
	if q == "" {
		return fiber.NewError(fiber.StatusBadRequest, "query parameter 'q' is required")
	}

	k := ctx.QueryInt("k", 0)

	var namespaces []string
	if ns := ctx.Query("ns", ""); ns != "" {
		namespaces = append(namespaces, ns)
	}

	res := c.assistantService.Search(q, k, namespaces)

	return ctx.JSON(serverutils.SuccessResponse("Success search knowledge base", res))
}

func (c *assistantController) Logs(ctx *fiber.Ctx) error {
	level := ctx.Query("level", "")
	limit := ctx.QueryInt("limit", 50)
	offset := ctx.QueryInt("offset", 0)

	res, err := c.eventLog.GetLogs(level, limit, offset)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get event logs", res))
}
