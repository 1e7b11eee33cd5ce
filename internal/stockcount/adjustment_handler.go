package stockcount

import (
	"stockcount-backend/internal/apperr"
	"stockcount-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

type GenerateAdjustmentRequest struct {
	Reason string `json:"reason"`
}

// POST /api/counts/:id/adjustments
func GenerateAdjustmentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		var body GenerateAdjustmentRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return bodyError()
			}
		}

		adj, err := svc.GenerateFromCount(c.UserContext(), actor, id, body.Reason)
		if err != nil {
			return err
		}
		if adj == nil {
			return apperr.Rule(apperr.CodeNothingToAdjust, "No discrepancies left to adjust")
		}
		return c.Status(fiber.StatusCreated).JSON(adj)
	}
}

// GET /api/counts/:id/adjustments
func ListAdjustmentsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		list, err := svc.ListAdjustments(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

// GET /api/adjustments/:id
func GetAdjustmentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		adj, err := svc.GetAdjustment(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(adj)
	}
}

// POST /api/adjustments/:id/apply
func ApplyAdjustmentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		applied, err := svc.Apply(c.UserContext(), actor, id)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"applied": applied})
	}
}
