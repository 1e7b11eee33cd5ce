package stockcount

import (
	"context"
	"strings"

	"stockcount-backend/internal/apperr"
	"stockcount-backend/internal/audit"
	"stockcount-backend/internal/models"
	"stockcount-backend/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GenerateFromCount drafts one adjustment covering every discrepant line that
// is neither applied nor already drafted. A nil adjustment with a nil error
// means there is nothing to adjust.
func (s *Service) GenerateFromCount(ctx context.Context, actor models.Actor, countID uint, reason string) (*models.PhysicalStockAdjustment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		adj, err := s.generateOnce(ctx, actor, countID, reason, attempt)
		if apperr.HasCode(err, apperr.CodeDuplicate) {
			// either the number collided or another request drafted the same lines
			continue
		}
		if err != nil {
			return nil, err
		}
		if adj == nil && attempt > 0 {
			return nil, apperr.Rule(apperr.CodeAdjustmentExists, "An adjustment already covers these lines")
		}
		if adj != nil {
			s.record(ctx, audit.LogOptions{
				Actor:       actor,
				EntityType:  entityAdjustment,
				EntityID:    adj.ID,
				Action:      models.AuditActionCreate,
				Description: "adjustment " + adj.AdjustmentNumber + " drafted",
				After:       adj,
			})
		}
		return adj, nil
	}
	return nil, apperr.Rule(apperr.CodeAdjustmentExists, "An adjustment already covers these lines")
}

func (s *Service) generateOnce(ctx context.Context, actor models.Actor, countID uint, reason string, attempt int) (*models.PhysicalStockAdjustment, error) {
	var adj *models.PhysicalStockAdjustment
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		count, err := tx.GetCount(ctx, countID)
		if err != nil {
			return err
		}
		if count.Status != models.CountStatusCompleted {
			return apperr.Rule(apperr.CodeCountNotFinalized, "Count must be finalized before adjusting stock")
		}

		pending, err := tx.ListItemsPendingAdjustment(ctx, countID)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		now := s.now()
		number, err := nextNumber(ctx, tx, store.NumberAdjustment, "ADJ", now, attempt)
		if err != nil {
			return err
		}
		if reason == "" {
			reason = "Physical stock count " + count.CountNumber
		}

		adj = &models.PhysicalStockAdjustment{
			AdjustmentNumber:     number,
			PhysicalStockCountID: countID,
			TotalAdjustmentValue: decimal.Zero,
			Reason:               reason,
			Status:               models.AdjustmentStatusDraft,
			CreatedBy:            actor.ID,
			CreatedAt:            now,
			Items:                make([]models.PhysicalStockAdjustmentItem, 0, len(pending)),
		}
		for _, item := range pending {
			adj.Items = append(adj.Items, models.NewAdjustmentItem(item))
			adj.TotalAdjustmentValue = adj.TotalAdjustmentValue.Add(item.VarianceValue)
		}
		return tx.CreateAdjustment(ctx, adj)
	})
	if err != nil {
		return nil, err
	}
	return adj, nil
}

// Apply pushes a Draft adjustment into the inventory levels and the movement
// ledger. The header is claimed first with a conditional update, so retries and
// concurrent callers fail with ALREADY_APPLIED and never write twice. Any
// failure rolls back every line.
func (s *Service) Apply(ctx context.Context, actor models.Actor, adjustmentID uint) (bool, error) {
	if err := requireActor(actor); err != nil {
		return false, err
	}

	var (
		adj       *models.PhysicalStockAdjustment
		movements []models.StockMovement
	)
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		now := s.now()
		ok, err := tx.ClaimAdjustment(ctx, adjustmentID, actor.ID, now)
		if err != nil {
			return err
		}
		adj, err = tx.GetAdjustment(ctx, adjustmentID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Rule(apperr.CodeAlreadyApplied, "Adjustment "+adj.AdjustmentNumber+" is already applied")
		}

		movements = make([]models.StockMovement, 0, len(adj.Items))
		for _, line := range adj.Items {
			if line.AdjustmentQuantity == 0 {
				continue
			}
			before, after, err := tx.IncrementLevel(ctx, line.InventoryItemID, line.StorageLocation, line.AdjustmentQuantity)
			if err != nil {
				return err
			}

			moved := line.AdjustmentQuantity
			if moved < 0 {
				moved = -moved
			}
			m := models.StockMovement{
				InventoryItemID: line.InventoryItemID,
				StorageLocation: line.StorageLocation,
				MovementType:    models.MovementTypeFor(line.AdjustmentQuantity),
				QuantityBefore:  before,
				QuantityMoved:   moved,
				QuantityAfter:   after,
				ReferenceType:   models.ReferencePhysicalStockAdjustment,
				ReferenceID:     adj.ID,
				Reason:          adj.Reason,
				CreatedBy:       actor.ID,
				CreatedAt:       now,
			}
			if err := tx.CreateMovement(ctx, &m); err != nil {
				return err
			}
			movements = append(movements, m)

			marked, err := tx.MarkCountItemAdjusted(ctx, line.PhysicalStockCountItemID, actor.ID, now)
			if err != nil {
				return err
			}
			if !marked {
				return apperr.Rule(apperr.CodeAlreadyApplied, "Count line is already adjusted")
			}
		}

		adj.Status = models.AdjustmentStatusApplied
		adj.AppliedBy = uintPtr(actor.ID)
		adj.AppliedAt = timePtr(now)
		return nil
	})
	if err != nil {
		return false, err
	}

	s.log.Info("adjustment applied",
		zap.Uint("adjustment_id", adj.ID),
		zap.String("adjustment_number", adj.AdjustmentNumber),
		zap.Int("movements", len(movements)))

	s.record(ctx, audit.LogOptions{
		Actor:       actor,
		EntityType:  entityAdjustment,
		EntityID:    adj.ID,
		Action:      models.AuditActionApply,
		Description: "adjustment " + adj.AdjustmentNumber + " applied",
		Before:      map[string]any{"status": models.AdjustmentStatusDraft},
		After:       map[string]any{"status": models.AdjustmentStatusApplied, "movements": movements},
	})
	return true, nil
}

func (s *Service) GetAdjustment(ctx context.Context, id uint) (*models.PhysicalStockAdjustment, error) {
	return s.store.GetAdjustment(ctx, id)
}

func (s *Service) ListAdjustments(ctx context.Context, countID uint) ([]models.PhysicalStockAdjustment, error) {
	if _, err := s.store.GetCount(ctx, countID); err != nil {
		return nil, err
	}
	return s.store.ListAdjustments(ctx, countID)
}

func (s *Service) ListMovements(ctx context.Context, f store.MovementFilter) ([]models.StockMovement, error) {
	return s.store.ListMovements(ctx, f)
}
