package stockcount

import (
	"strings"

	"stockcount-backend/internal/apperr"
	"stockcount-backend/internal/auth"
	"stockcount-backend/internal/models"
	"stockcount-backend/internal/store"

	"github.com/gofiber/fiber/v2"
)

type OpenSessionRequest struct {
	StorageZone string `json:"storage_zone"`
}

type UpdateSessionRequest struct {
	Status string `json:"status"`
}

type ScanRequest struct {
	Barcode         string `json:"barcode"`
	Quantity        int    `json:"quantity"`
	StorageLocation string `json:"storage_location"`
	ClientScanID    string `json:"client_scan_id"`
	Notes           string `json:"notes"`
}

// POST /api/counts/:id/scanning-sessions
func OpenSessionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		var body OpenSessionRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return bodyError()
			}
		}

		session, err := svc.OpenSession(c.UserContext(), actor, id, body.StorageZone)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(session)
	}
}

// GET /api/counts/:id/scanning-sessions
func ListSessionsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		sessions, err := svc.ListSessions(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(sessions)
	}
}

// PUT /api/scanning-sessions/:id  {"status":"completed"}
func UpdateSessionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		var body UpdateSessionRequest
		if err := c.BodyParser(&body); err != nil {
			return bodyError()
		}
		if models.SessionStatus(strings.ToLower(strings.TrimSpace(body.Status))) != models.SessionStatusCompleted {
			return apperr.Validation("a session can only be moved to completed")
		}

		session, err := svc.CloseSession(c.UserContext(), actor, id)
		if err != nil {
			return err
		}
		return c.JSON(session)
	}
}

// POST /api/scanning-sessions/:id/scan
// Business-rule failures answer 400 with the ScanResult body.
func ScanHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		var body ScanRequest
		if err := c.BodyParser(&body); err != nil {
			return bodyError()
		}

		result, err := svc.Scan(c.UserContext(), actor, ScanInput{
			SessionID:       id,
			Barcode:         body.Barcode,
			Quantity:        body.Quantity,
			StorageLocation: body.StorageLocation,
			ClientScanID:    body.ClientScanID,
			Notes:           body.Notes,
		})
		if err != nil {
			return err
		}
		if !result.Success {
			return c.Status(fiber.StatusBadRequest).JSON(result)
		}
		return c.JSON(result)
	}
}

// GET /api/scanning-sessions/:id/scans
func ListSessionScansHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		if _, err := svc.GetSession(c.UserContext(), id); err != nil {
			return err
		}
		scans, err := svc.ListScans(c.UserContext(), store.ScanFilter{SessionID: id})
		if err != nil {
			return err
		}
		return c.JSON(scans)
	}
}

// PUT /api/scanned-items/:id/verify
func VerifyScanHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		scan, err := svc.VerifyScan(c.UserContext(), actor, id)
		if err != nil {
			return err
		}
		return c.JSON(scan)
	}
}
