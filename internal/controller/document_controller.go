package controller

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"doc-rag-be/internal/dto"
	"doc-rag-be/internal/pkg/serverutils"
	"doc-rag-be/internal/service"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	Reprocess(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	QueueStatus(ctx *fiber.Ctx) error
	Progress(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type documentController struct {
	documentService service.IDocumentService
	documentsRoot   string
}

func NewDocumentController(documentService service.IDocumentService, documentsRoot string) IDocumentController {
	return &documentController{
		documentService: documentService,
		documentsRoot:   documentsRoot,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/document/v1")
	h.Use(serverutils.UserContextMiddleware)
	h.Post("", c.Upload)
	h.Get("queue/status", c.QueueStatus)
	h.Get("stats", c.Stats)
	h.Get("", c.List)
	h.Post("job/:jobId/cancel", c.Cancel)
	h.Delete("session/:sessionId", c.DeleteSession)
	h.Get(":id/progress", c.Progress)
	h.Post(":id/reprocess", c.Reprocess)
	h.Get(":id", c.Show)
	h.Delete(":id", c.Delete)
}

func (c *documentController) Upload(ctx *fiber.Ctx) error {
	userId := serverutils.UserId(ctx)

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "file is required"))
	}

	// land the upload under the per-user directory before anything else
	userDir := filepath.Join(c.documentsRoot, userId.String())
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return err
	}
	storedPath := filepath.Join(userDir, fmt.Sprintf("%s_%s", uuid.New().String()[:8], filepath.Base(fileHeader.Filename)))
	if err := ctx.SaveFile(fileHeader, storedPath); err != nil {
		return err
	}

	priority, _ := strconv.Atoi(ctx.FormValue("priority", "0"))
	extractImages := ctx.FormValue("extract_images", "true") != "false"

	req := &dto.UploadDocumentRequest{
		SessionId: ctx.FormValue("session_id"),
		FileName:  fileHeader.Filename,
		FilePath:  storedPath,
		Priority:  priority,
		Options: dto.ProcessingOptions{
			ExtractImages: extractImages,
		},
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.documentService.Upload(ctx.Context(), userId, req)
	if err != nil {
		// the row was never created, drop the orphaned upload
		_ = os.Remove(storedPath)
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Document queued", res))
}

func (c *documentController) Show(ctx *fiber.Ctx) error {
	userId := serverutils.UserId(ctx)
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "malformed document id"))
	}

	res, err := c.documentService.Show(ctx.Context(), userId, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Document", res))
}

func (c *documentController) List(ctx *fiber.Ctx) error {
	userId := serverutils.UserId(ctx)

	res, err := c.documentService.List(ctx.Context(), userId, ctx.Query("session_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Documents", res))
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	userId := serverutils.UserId(ctx)
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "malformed document id"))
	}

	if err := c.documentService.Delete(ctx.Context(), userId, id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Document deleted", nil))
}

func (c *documentController) DeleteSession(ctx *fiber.Ctx) error {
	userId := serverutils.UserId(ctx)

	deleted, err := c.documentService.DeleteSession(ctx.Context(), userId, ctx.Params("sessionId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session documents deleted", fiber.Map{"deleted": deleted}))
}

func (c *documentController) Reprocess(ctx *fiber.Ctx) error {
	userId := serverutils.UserId(ctx)
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "malformed document id"))
	}

	res, err := c.documentService.Reprocess(ctx.Context(), userId, id)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Document requeued", res))
}

func (c *documentController) Cancel(ctx *fiber.Ctx) error {
	userId := serverutils.UserId(ctx)
	jobId, err := uuid.Parse(ctx.Params("jobId"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "malformed job id"))
	}

	res, err := c.documentService.Cancel(ctx.Context(), userId, jobId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Cancel requested", res))
}

func (c *documentController) QueueStatus(ctx *fiber.Ctx) error {
	userId := serverutils.UserId(ctx)

	res, err := c.documentService.QueueStatus(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Queue status", res))
}

func (c *documentController) Progress(ctx *fiber.Ctx) error {
	userId := serverutils.UserId(ctx)
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "malformed document id"))
	}

	res, err := c.documentService.Progress(ctx.Context(), userId, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Progress", res))
}

func (c *documentController) Stats(ctx *fiber.Ctx) error {
	userId := serverutils.UserId(ctx)

	res, err := c.documentService.Stats(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Store stats", res))
}
