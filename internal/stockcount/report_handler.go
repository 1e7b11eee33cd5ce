package stockcount

import (
	"bytes"
	"fmt"
	"strings"

	"stockcount-backend/internal/apperr"
	"stockcount-backend/internal/auth"
	"stockcount-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GET /api/counts/:id/summary
func SummaryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		out, err := svc.Summary(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(out)
	}
}

// GET /api/counts/:id/variance-report
func VarianceReportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		out, err := svc.VarianceReport(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(out)
	}
}

// GET /api/counts/:id/statistics
func StatisticsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		out, err := svc.Statistics(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(out)
	}
}

// GET /api/counts/:id/variance-report/export
func ExportVarianceReportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		data, filename, err := svc.ExportVarianceReport(c.UserContext(), id)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, xlsxContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
		return c.Send(data)
	}
}

// POST /api/counts/:id/count-sheet (multipart: file, pass)
func ImportCountSheetHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return apperr.Validation("file is required")
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return apperr.Validation("only .xlsx files are accepted")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return apperr.Validation("could not open uploaded file")
		}
		defer file.Close()

		var buf bytes.Buffer
		if _, err := buf.ReadFrom(file); err != nil {
			return apperr.Validation("could not read uploaded file")
		}

		pass := models.CountPass(strings.ToLower(strings.TrimSpace(c.FormValue("pass", string(models.CountPassFirst)))))
		result, err := svc.ImportCountSheet(c.UserContext(), actor, id, pass, &buf)
		if err != nil {
			return err
		}
		return c.JSON(result)
	}
}
