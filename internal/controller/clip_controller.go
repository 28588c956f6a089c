package controller

import (
	"time"

	"ai-livestream-be/internal/pkg/serverutils"
	"ai-livestream-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IClipController interface {
	RegisterRoutes(r fiber.Router)
	GetSessionClips(ctx *fiber.Ctx) error
	GetClipAtTime(ctx *fiber.Ctx) error
	GetClipsInRange(ctx *fiber.Ctx) error
}

type clipController struct {
	service service.IClipService
}

func NewClipController(service service.IClipService) IClipController {
	return &clipController{service: service}
}

func (c *clipController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/clips")
	h.Get("/:sessionId", c.GetSessionClips)
	h.Get("/:sessionId/at", c.GetClipAtTime)
	h.Get("/:sessionId/range", c.GetClipsInRange)
}

func (c *clipController) GetSessionClips(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("sessionId")

	res, err := c.service.GetSessionClips(ctx.Context(), sessionId)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Session clips", res))
}

func (c *clipController) GetClipAtTime(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("sessionId")

	at, err := time.Parse(time.RFC3339, ctx.Query("t"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "t must be an RFC3339 timestamp"))
	}

	res, err := c.service.GetClipAtTime(ctx.Context(), sessionId, at)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	if res == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "No clip covers that moment"))
	}
	return ctx.JSON(serverutils.SuccessResponse("Clip at time", res))
}

func (c *clipController) GetClipsInRange(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("sessionId")

	start, err := time.Parse(time.RFC3339, ctx.Query("start"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "start must be an RFC3339 timestamp"))
	}
	end, err := time.Parse(time.RFC3339, ctx.Query("end"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "end must be an RFC3339 timestamp"))
	}
	if !end.After(start) {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "end must be after start"))
	}

	res, err := c.service.GetClipsInRange(ctx.Context(), sessionId, start, end)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Clips in range", res))
}
