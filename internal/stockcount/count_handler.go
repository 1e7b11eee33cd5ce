package stockcount

import (
	"context"
	"strings"

	"stockcount-backend/internal/apperr"
	"stockcount-backend/internal/auth"
	"stockcount-backend/internal/models"
	"stockcount-backend/internal/store"

	"github.com/gofiber/fiber/v2"
)

type CreateCountRequest struct {
	Description     string  `json:"description"`
	CountDate       string  `json:"count_date"` // YYYY-MM-DD
	StorageLocation *string `json:"storage_location"`
	CountType       string  `json:"count_type"`
	ScheduledDate   *string `json:"scheduled_date"`
	Notes           string  `json:"notes"`
}

type UpdateCountRequest struct {
	Description     *string `json:"description"`
	CountDate       *string `json:"count_date"`
	StorageLocation *string `json:"storage_location"`
	ScheduledDate   *string `json:"scheduled_date"`
	Notes           *string `json:"notes"`
	Status          *string `json:"status"`
}

type AddItemRequest struct {
	InventoryItemID uint   `json:"inventory_item_id"`
	StorageLocation string `json:"storage_location"`
	Notes           string `json:"notes"`
}

type PopulateRequest struct {
	StorageLocation *string `json:"storage_location"`
}

// POST /api/counts
func CreateCountHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var body CreateCountRequest
		if err := c.BodyParser(&body); err != nil {
			return bodyError()
		}

		in := CreateCountInput{
			Description:     body.Description,
			StorageLocation: body.StorageLocation,
			CountType:       models.CountType(strings.ToLower(strings.TrimSpace(body.CountType))),
			Notes:           body.Notes,
		}
		if body.CountDate != "" {
			d, err := parseDate("count_date", body.CountDate)
			if err != nil {
				return err
			}
			in.CountDate = d
		}
		if in.ScheduledDate, err = parseOptionalDate("scheduled_date", body.ScheduledDate); err != nil {
			return err
		}

		count, err := svc.CreateCount(c.UserContext(), actor, in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(count)
	}
}

// GET /api/counts?status=in_progress&storage_location=A
func ListCountsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		counts, err := svc.ListCounts(c.UserContext(), store.CountFilter{
			Status:          models.CountStatus(c.Query("status")),
			StorageLocation: c.Query("storage_location"),
			Limit:           c.QueryInt("limit", 100),
		})
		if err != nil {
			return err
		}
		return c.JSON(counts)
	}
}

// GET /api/counts/:id
func GetCountHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		count, err := svc.GetCount(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(count)
	}
}

// GET /api/counts/number/:countNumber
func GetCountByNumberHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		count, err := svc.GetCountByNumber(c.UserContext(), c.Params("countNumber"))
		if err != nil {
			return err
		}
		return c.JSON(count)
	}
}

// PUT /api/counts/:id
func UpdateCountHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		var body UpdateCountRequest
		if err := c.BodyParser(&body); err != nil {
			return bodyError()
		}

		in := UpdateCountInput{
			Description:     body.Description,
			StorageLocation: body.StorageLocation,
			Notes:           body.Notes,
		}
		if in.CountDate, err = parseOptionalDate("count_date", body.CountDate); err != nil {
			return err
		}
		if in.ScheduledDate, err = parseOptionalDate("scheduled_date", body.ScheduledDate); err != nil {
			return err
		}
		if body.Status != nil {
			st := models.CountStatus(strings.ToLower(strings.TrimSpace(*body.Status)))
			in.Status = &st
		}

		count, err := svc.UpdateCount(c.UserContext(), actor, id, in)
		if err != nil {
			return err
		}
		return c.JSON(count)
	}
}

// DELETE /api/counts/:id
func DeleteCountHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		if err := svc.DeleteCount(c.UserContext(), actor, id); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "count deleted"})
	}
}

// countAction serves the start/cancel/approve endpoints, which share a shape.
func countAction(fn func(ctx context.Context, actor models.Actor, id uint) (*models.PhysicalStockCount, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		count, err := fn(c.UserContext(), actor, id)
		if err != nil {
			return err
		}
		return c.JSON(count)
	}
}

// POST /api/counts/:id/start
func StartCountHandler(svc *Service) fiber.Handler { return countAction(svc.StartCount) }

// POST /api/counts/:id/cancel
func CancelCountHandler(svc *Service) fiber.Handler { return countAction(svc.CancelCount) }

// POST /api/counts/:id/approve
func ApproveCountHandler(svc *Service) fiber.Handler { return countAction(svc.ApproveCount) }

// POST /api/counts/:id/populate
func PopulateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		var body PopulateRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return bodyError()
			}
		}

		n, err := svc.Populate(c.UserContext(), actor, id, body.StorageLocation)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"itemsAdded": n})
	}
}

// POST /api/counts/:id/items
func AddItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		var body AddItemRequest
		if err := c.BodyParser(&body); err != nil {
			return bodyError()
		}

		item, err := svc.AddItem(c.UserContext(), actor, id, AddItemInput{
			InventoryItemID: body.InventoryItemID,
			StorageLocation: body.StorageLocation,
			Notes:           body.Notes,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

// GET /api/counts/:id/items?status=discrepancy&variance_only=true
func ListItemsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		items, err := svc.ListCountItems(c.UserContext(), id, store.ItemFilter{
			Status:       models.CountItemStatus(c.Query("status")),
			OnlyVariance: c.QueryBool("variance_only", false),
		})
		if err != nil {
			return err
		}
		return c.JSON(items)
	}
}

type UpdateItemRequest struct {
	FirstCountQuantity  *int    `json:"first_count_quantity"`
	SecondCountQuantity *int    `json:"second_count_quantity"`
	DiscrepancyReason   *string `json:"discrepancy_reason"`
	Notes               *string `json:"notes"`
}

type RecordCountRequest struct {
	Pass     string `json:"pass"`
	Quantity *int   `json:"quantity"`
}

// PUT /api/count-items/:id
func UpdateItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		var body UpdateItemRequest
		if err := c.BodyParser(&body); err != nil {
			return bodyError()
		}

		item, err := svc.UpdateCountItem(c.UserContext(), actor, id, UpdateItemInput{
			FirstCountQuantity:  body.FirstCountQuantity,
			SecondCountQuantity: body.SecondCountQuantity,
			DiscrepancyReason:   body.DiscrepancyReason,
			Notes:               body.Notes,
		})
		if err != nil {
			return err
		}
		return c.JSON(item)
	}
}

// POST /api/count-items/:id/count
func RecordCountHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		var body RecordCountRequest
		if err := c.BodyParser(&body); err != nil {
			return bodyError()
		}
		if body.Quantity == nil {
			return apperr.Validation("quantity is required")
		}

		pass := models.CountPass(strings.ToLower(strings.TrimSpace(body.Pass)))
		item, err := svc.RecordCount(c.UserContext(), actor, id, pass, *body.Quantity)
		if err != nil {
			return err
		}
		return c.JSON(item)
	}
}

// POST /api/counts/:id/finalize
func FinalizeHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		summary, err := svc.Finalize(c.UserContext(), actor, id)
		if err != nil {
			return err
		}
		return c.JSON(summary)
	}
}
