package stockcount

import (
	"context"

	"stockcount-backend/internal/apperr"
	"stockcount-backend/internal/audit"
	"stockcount-backend/internal/models"
	"stockcount-backend/internal/store"

	"github.com/shopspring/decimal"
)

// RecordCount stores one counting pass for a line. Recording the same pass
// again overwrites it, so client retries are harmless.
func (s *Service) RecordCount(ctx context.Context, actor models.Actor, itemID uint, pass models.CountPass, quantity int) (*models.PhysicalStockCountItem, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !pass.Valid() {
		return nil, apperr.Validation("pass must be first or second")
	}
	if quantity < 0 {
		return nil, apperr.Validation("quantity must not be negative")
	}

	var (
		item    *models.PhysicalStockCountItem
		before  models.PhysicalStockCountItem
		count   *models.PhysicalStockCount
		started bool
	)
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		item, err = tx.GetCountItem(ctx, itemID)
		if err != nil {
			return err
		}
		count, err = tx.GetCount(ctx, item.PhysicalStockCountID)
		if err != nil {
			return err
		}
		before = *item
		started, err = s.recordCountTx(ctx, tx, actor, count, item, pass, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}

	if started {
		s.recordStart(ctx, actor, count, "count recorded")
	}

	s.record(ctx, audit.LogOptions{
		Actor:       actor,
		EntityType:  entityCountItem,
		EntityID:    item.ID,
		Action:      models.AuditActionCount,
		Description: string(pass) + " count recorded",
		Before:      countSnapshot(&before),
		After:       countSnapshot(item),
	})
	return item, nil
}

// recordCountTx applies one pass to item inside tx. It reports whether the
// pass also moved the count from Pending to InProgress.
func (s *Service) recordCountTx(ctx context.Context, tx store.Store, actor models.Actor, count *models.PhysicalStockCount, item *models.PhysicalStockCountItem, pass models.CountPass, quantity int) (bool, error) {
	switch count.Status {
	case models.CountStatusCompleted:
		return false, apperr.Rule(apperr.CodeItemFinalized, "Count is finalized, quantities can no longer change")
	case models.CountStatusCancelled:
		return false, apperr.Rule(apperr.CodeCountCancelled, "Count is cancelled")
	}
	if !item.Status.CanTransition(models.CountItemStatusCounted) {
		return false, apperr.Rule(apperr.CodeInvalidTransition, "Line is "+string(item.Status)+" and cannot be counted")
	}

	now := s.now()
	q := quantity
	switch pass {
	case models.CountPassFirst:
		item.FirstCountQuantity = &q
		item.FirstCountBy = uintPtr(actor.ID)
		item.FirstCountAt = timePtr(now)
		if item.SecondCountQuantity == nil {
			item.RequiresRecount = q != item.SystemQuantity
		}
	case models.CountPassSecond:
		if item.FirstCountQuantity == nil {
			return false, apperr.Rule(apperr.CodeFirstCountRequired, "Second count requires a first count")
		}
		item.SecondCountQuantity = &q
		item.SecondCountBy = uintPtr(actor.ID)
		item.SecondCountAt = timePtr(now)
		item.RequiresRecount = false
	}
	item.Status = models.CountItemStatusCounted

	started, err := s.startIfPending(ctx, tx, count, actor, now)
	if err != nil {
		return false, err
	}
	return started, tx.SaveCountItem(ctx, item)
}

type UpdateItemInput struct {
	FirstCountQuantity  *int
	SecondCountQuantity *int
	DiscrepancyReason   *string
	Notes               *string
}

// UpdateCountItem records passes and annotations in one transaction. Reason
// and notes stay editable after finalization so variances can be explained.
func (s *Service) UpdateCountItem(ctx context.Context, actor models.Actor, itemID uint, in UpdateItemInput) (*models.PhysicalStockCountItem, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	for _, q := range []*int{in.FirstCountQuantity, in.SecondCountQuantity} {
		if q != nil && *q < 0 {
			return nil, apperr.Validation("quantity must not be negative")
		}
	}

	var (
		item    *models.PhysicalStockCountItem
		before  models.PhysicalStockCountItem
		count   *models.PhysicalStockCount
		started bool
	)
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		item, err = tx.GetCountItem(ctx, itemID)
		if err != nil {
			return err
		}
		before = *item

		if in.FirstCountQuantity != nil || in.SecondCountQuantity != nil {
			count, err = tx.GetCount(ctx, item.PhysicalStockCountID)
			if err != nil {
				return err
			}
			if in.FirstCountQuantity != nil {
				ok, err := s.recordCountTx(ctx, tx, actor, count, item, models.CountPassFirst, *in.FirstCountQuantity)
				if err != nil {
					return err
				}
				started = started || ok
			}
			if in.SecondCountQuantity != nil {
				ok, err := s.recordCountTx(ctx, tx, actor, count, item, models.CountPassSecond, *in.SecondCountQuantity)
				if err != nil {
					return err
				}
				started = started || ok
			}
		}

		if in.DiscrepancyReason == nil && in.Notes == nil {
			return nil
		}
		if in.DiscrepancyReason != nil {
			item.DiscrepancyReason = *in.DiscrepancyReason
		}
		if in.Notes != nil {
			item.Notes = *in.Notes
		}
		return tx.SaveCountItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	if started {
		s.recordStart(ctx, actor, count, "count line updated")
	}
	s.record(ctx, audit.LogOptions{
		Actor:       actor,
		EntityType:  entityCountItem,
		EntityID:    item.ID,
		Action:      models.AuditActionUpdate,
		Description: "count line updated",
		Before:      countSnapshot(&before),
		After:       countSnapshot(item),
	})
	return item, nil
}

func (s *Service) ListCountItems(ctx context.Context, countID uint, f store.ItemFilter) ([]models.PhysicalStockCountItem, error) {
	if _, err := s.store.GetCount(ctx, countID); err != nil {
		return nil, err
	}
	return s.store.ListCountItems(ctx, countID, f)
}

func (s *Service) GetCountItem(ctx context.Context, id uint) (*models.PhysicalStockCountItem, error) {
	return s.store.GetCountItem(ctx, id)
}

type FinalizeSummary struct {
	Count              *models.PhysicalStockCount `json:"count"`
	TotalItems         int                        `json:"total_items"`
	ItemsCounted       int                        `json:"items_counted"`
	Discrepancies      int                        `json:"discrepancies"`
	TotalVarianceValue decimal.Decimal            `json:"total_variance_value"`
}

// Finalize settles every line from its stored passes and completes the count.
// Uncounted lines settle at zero.
func (s *Service) Finalize(ctx context.Context, actor models.Actor, countID uint) (*FinalizeSummary, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	summary := &FinalizeSummary{TotalVarianceValue: decimal.Zero}
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		count, err := tx.GetCount(ctx, countID)
		if err != nil {
			return err
		}
		switch count.Status {
		case models.CountStatusCompleted:
			return apperr.Rule(apperr.CodeAlreadyFinalized, "Count is already finalized")
		case models.CountStatusCancelled:
			return apperr.Rule(apperr.CodeCountCancelled, "Count is cancelled")
		case models.CountStatusPending:
			return apperr.Rule(apperr.CodeCountNotStarted, "Count has not been started")
		}

		active, err := tx.CountActiveSessions(ctx, countID)
		if err != nil {
			return err
		}
		if active > 0 {
			return apperr.Rule(apperr.CodeSessionsActive, "Close all scanning sessions before finalizing")
		}

		items, err := tx.ListCountItems(ctx, countID, store.ItemFilter{})
		if err != nil {
			return err
		}
		for i := range items {
			item := &items[i]
			if item.HasCount() {
				summary.ItemsCounted++
			}
			item.Settle()
			if item.Variance != 0 {
				summary.Discrepancies++
			}
			summary.TotalVarianceValue = summary.TotalVarianceValue.Add(item.VarianceValue)
			if err := tx.SaveCountItem(ctx, item); err != nil {
				return err
			}
		}
		summary.TotalItems = len(items)

		now := s.now()
		ok, err := tx.UpdateCountIfStatus(ctx, countID, models.CountStatusInProgress, map[string]any{
			"status":              models.CountStatusCompleted,
			"completed_by":        actor.ID,
			"completed_at":        now,
			"total_items_counted": summary.ItemsCounted,
			"total_discrepancies": summary.Discrepancies,
		})
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Rule(apperr.CodeAlreadyFinalized, "Count is already finalized")
		}

		count.Status = models.CountStatusCompleted
		count.CompletedBy = uintPtr(actor.ID)
		count.CompletedAt = timePtr(now)
		count.TotalItemsCounted = summary.ItemsCounted
		count.TotalDiscrepancies = summary.Discrepancies
		summary.Count = count
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.LogOptions{
		Actor:       actor,
		EntityType:  entityCount,
		EntityID:    countID,
		Action:      models.AuditActionFinalize,
		Description: "count " + summary.Count.CountNumber + " finalized",
		Before:      map[string]any{"status": models.CountStatusInProgress},
		After: map[string]any{
			"status":               models.CountStatusCompleted,
			"total_items_counted":  summary.ItemsCounted,
			"total_discrepancies":  summary.Discrepancies,
			"total_variance_value": summary.TotalVarianceValue,
		},
	})
	return summary, nil
}

func countSnapshot(i *models.PhysicalStockCountItem) map[string]any {
	return map[string]any{
		"first_count_quantity":  i.FirstCountQuantity,
		"second_count_quantity": i.SecondCountQuantity,
		"status":                i.Status,
		"requires_recount":      i.RequiresRecount,
		"discrepancy_reason":    i.DiscrepancyReason,
		"notes":                 i.Notes,
	}
}
