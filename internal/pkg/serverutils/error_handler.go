package serverutils

import (
	"errors"
	"log"

	"smartshop-be/pkg/catalog"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into the JSON envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return writeError(ctx, err)
	}
}

func writeError(ctx *fiber.Ctx, err error) error {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		res := ErrorResponse(fiber.StatusBadRequest, "Invalid request")
		res.Errors = validationErr.Fields
		return ctx.Status(fiber.StatusBadRequest).JSON(res)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
	}

	var statusErr interface{ HTTPStatus() int }
	if errors.As(err, &statusErr) {
		code := statusErr.HTTPStatus()
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}

	if errors.Is(err, catalog.ErrProductNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(ErrorResponse(fiber.StatusNotFound, err.Error()))
	}

	log.Printf("unhandled error on %s %s: %v", ctx.Method(), ctx.Path(), err)
	return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, "Internal server error"))
}
