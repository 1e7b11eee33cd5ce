package stockcount

import (
	"stockcount-backend/internal/auth"
	"stockcount-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the counting API on an authenticated router.
func RegisterRoutes(r fiber.Router, svc *Service) {
	supervisors := auth.RequireRole(models.RoleAdmin, models.RoleSupervisor)

	// counts
	r.Get("/counts", ListCountsHandler(svc))
	r.Post("/counts", supervisors, CreateCountHandler(svc))
	r.Get("/counts/number/:countNumber", GetCountByNumberHandler(svc))
	r.Get("/counts/:id", GetCountHandler(svc))
	r.Put("/counts/:id", supervisors, UpdateCountHandler(svc))
	r.Delete("/counts/:id", supervisors, DeleteCountHandler(svc))
	r.Post("/counts/:id/start", supervisors, StartCountHandler(svc))
	r.Post("/counts/:id/cancel", supervisors, CancelCountHandler(svc))
	r.Post("/counts/:id/approve", auth.RequireRole(models.RoleAdmin), ApproveCountHandler(svc))
	r.Post("/counts/:id/populate", supervisors, PopulateHandler(svc))
	r.Post("/counts/:id/finalize", supervisors, FinalizeHandler(svc))

	// lines
	r.Get("/counts/:id/items", ListItemsHandler(svc))
	r.Post("/counts/:id/items", AddItemHandler(svc))
	r.Put("/count-items/:id", UpdateItemHandler(svc))
	r.Post("/count-items/:id/count", RecordCountHandler(svc))
	r.Post("/counts/:id/count-sheet", ImportCountSheetHandler(svc))

	// scanning
	r.Post("/counts/:id/scanning-sessions", OpenSessionHandler(svc))
	r.Get("/counts/:id/scanning-sessions", ListSessionsHandler(svc))
	r.Put("/scanning-sessions/:id", UpdateSessionHandler(svc))
	r.Post("/scanning-sessions/:id/scan", ScanHandler(svc))
	r.Get("/scanning-sessions/:id/scans", ListSessionScansHandler(svc))
	r.Put("/scanned-items/:id/verify", supervisors, VerifyScanHandler(svc))

	// adjustments
	r.Post("/counts/:id/adjustments", supervisors, GenerateAdjustmentHandler(svc))
	r.Get("/counts/:id/adjustments", ListAdjustmentsHandler(svc))
	r.Get("/adjustments/:id", GetAdjustmentHandler(svc))
	r.Post("/adjustments/:id/apply", supervisors, ApplyAdjustmentHandler(svc))

	// reports
	r.Get("/counts/:id/summary", SummaryHandler(svc))
	r.Get("/counts/:id/variance-report", VarianceReportHandler(svc))
	r.Get("/counts/:id/variance-report/export", ExportVarianceReportHandler(svc))
	r.Get("/counts/:id/statistics", StatisticsHandler(svc))
}
