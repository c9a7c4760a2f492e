package transport

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/selimaydogdu/hospital-registry/internal/domain"
	"go.uber.org/zap"
)

// ErrorHandler renders every error surfaced by a handler as JSON.
// CSV validation failures keep their structured error list; everything
// else collapses to a single "error" field.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var verr *domain.ValidationErrors
		if errors.As(err, &verr) {
			logger.Warn("request rejected",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Strings("errors", verr.Errors),
			)

			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": verr.Message,
				"errors":  verr.Errors,
			})
		}

		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error("request error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
