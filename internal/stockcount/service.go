// Package stockcount runs physical stock counts: population of count lines,
// barcode scanning sessions, two-pass reconciliation, and the adjustments that
// push confirmed variances into the inventory ledger.
package stockcount

import (
	"context"
	"time"

	"stockcount-backend/internal/apperr"
	"stockcount-backend/internal/audit"
	"stockcount-backend/internal/models"
	"stockcount-backend/internal/store"

	"go.uber.org/zap"
)

const (
	entityCount      = "physical_stock_count"
	entityCountItem  = "physical_stock_count_item"
	entitySession    = "scanning_session"
	entityScan       = "scanned_item"
	entityAdjustment = "physical_stock_adjustment"
)

// AuditLogger receives one entry per committed mutation.
type AuditLogger interface {
	WriteLog(ctx context.Context, opts audit.LogOptions) error
}

type Service struct {
	store store.Store
	audit AuditLogger
	log   *zap.Logger
	now   func() time.Time
}

func NewService(st store.Store, auditLog AuditLogger, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store: st,
		audit: auditLog,
		log:   log,
		now:   time.Now,
	}
}

// record writes an audit entry after commit. A failing sink never undoes the
// mutation, it is only logged.
func (s *Service) record(ctx context.Context, opts audit.LogOptions) {
	if s.audit == nil {
		return
	}
	if err := s.audit.WriteLog(ctx, opts); err != nil {
		s.log.Warn("audit log write failed",
			zap.String("entity_type", opts.EntityType),
			zap.Uint("entity_id", opts.EntityID),
			zap.String("action", string(opts.Action)),
			zap.Error(err))
	}
}

func requireActor(actor models.Actor) error {
	if !actor.Valid() {
		return apperr.MissingActor()
	}
	return nil
}

// startIfPending moves a Pending count to InProgress inside tx and reports
// whether this call did it. Losing the race to another starter is fine.
func (s *Service) startIfPending(ctx context.Context, tx store.Store, count *models.PhysicalStockCount, actor models.Actor, at time.Time) (bool, error) {
	if count.Status != models.CountStatusPending {
		return false, nil
	}
	ok, err := tx.UpdateCountIfStatus(ctx, count.ID, models.CountStatusPending, map[string]any{
		"status":     models.CountStatusInProgress,
		"started_by": actor.ID,
		"started_at": at,
	})
	if err != nil {
		return false, err
	}
	if ok {
		count.Status = models.CountStatusInProgress
		count.StartedBy = &actor.ID
		count.StartedAt = &at
	}
	return ok, nil
}

// recordStart logs the Pending to InProgress transition once it is committed.
func (s *Service) recordStart(ctx context.Context, actor models.Actor, count *models.PhysicalStockCount, cause string) {
	s.record(ctx, audit.LogOptions{
		Actor:       actor,
		EntityType:  entityCount,
		EntityID:    count.ID,
		Action:      models.AuditActionUpdate,
		Description: "count " + count.CountNumber + " started (" + cause + ")",
		Before:      map[string]any{"status": models.CountStatusPending},
		After:       map[string]any{"status": models.CountStatusInProgress, "started_by": actor.ID, "started_at": count.StartedAt},
	})
}

func uintPtr(v uint) *uint { return &v }

func timePtr(v time.Time) *time.Time { return &v }
