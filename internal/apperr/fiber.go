package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler renders every error as {"error": message, "code": code}.
// Storage failures are logged with their cause and hidden from the caller.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		if e, ok := As(err); ok {
			if e.Kind == KindStorage {
				log.Error("storage failure",
					zap.String("op", e.Message),
					zap.String("path", c.Path()),
					zap.Error(e.Err))
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "storage failure",
					"code":  e.Code,
				})
			}
			return c.Status(e.Status()).JSON(fiber.Map{
				"error": e.Message,
				"code":  e.Code,
			})
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"error": fe.Message,
			})
		}

		log.Error("unexpected error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "unexpected server error",
		})
	}
}
