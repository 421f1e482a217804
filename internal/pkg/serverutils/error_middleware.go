package serverutils

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts handler errors into JSON envelopes so a
// failed request never leaks a stack trace to the client.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		if fe, ok := err.(*fiber.Error); ok {
			return ctx.Status(fe.Code).JSON(ErrorResponse(fe.Message))
		}

		status := fiber.StatusInternalServerError
		if strings.HasPrefix(err.Error(), "validation:") {
			status = fiber.StatusBadRequest
		}
		return ctx.Status(status).JSON(ErrorResponse(err.Error()))
	}
}
