package controller

import (
	"github.com/gofiber/fiber/v2"

	"doc-rag-be/internal/dto"
	"doc-rag-be/internal/pkg/serverutils"
	"doc-rag-be/internal/service"
)

type IRetrievalController interface {
	RegisterRoutes(r fiber.Router)
	Retrieve(ctx *fiber.Ctx) error
}

type retrievalController struct {
	retrievalService service.IRetrievalService
}

func NewRetrievalController(retrievalService service.IRetrievalService) IRetrievalController {
	return &retrievalController{
		retrievalService: retrievalService,
	}
}

func (c *retrievalController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/retrieval/v1")
	h.Use(serverutils.UserContextMiddleware)
	h.Post("query", c.Retrieve)
}

func (c *retrievalController) Retrieve(ctx *fiber.Ctx) error {
	userId := serverutils.UserId(ctx)

	var req dto.RetrieveRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "malformed request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.retrievalService.Retrieve(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Retrieved context", res))
}
