package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"doc-rag-be/internal/apperror"
)

// UserContextMiddleware resolves the caller's identity. Authentication
// happens at the gateway; this service trusts the forwarded X-User-Id
// header and only insists that it is present and well-formed.
func UserContextMiddleware(ctx *fiber.Ctx) error {
	userIdStr := ctx.Get("X-User-Id")
	if userIdStr == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "missing user identity"))
	}
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "malformed user identity"))
	}

	ctx.Locals("user_id", userId.String())
	return ctx.Next()
}

// UserId reads the identity placed by UserContextMiddleware.
func UserId(ctx *fiber.Ctx) uuid.UUID {
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)
	return userId
}

// ErrorHandlerMiddleware maps pipeline error kinds onto HTTP statuses so
// controllers can just return errors.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		code := statusFor(apperror.KindOf(err))
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation, apperror.KindPathSecurity:
		return fiber.StatusBadRequest
	case apperror.KindUnauthorized:
		return fiber.StatusForbidden
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindUnsupportedType:
		return fiber.StatusUnsupportedMediaType
	case apperror.KindQueue:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
