package stockcount

import (
	"context"
	"strings"

	"stockcount-backend/internal/apperr"
	"stockcount-backend/internal/audit"
	"stockcount-backend/internal/models"
	"stockcount-backend/internal/store"
)

// Populate snapshots book quantities into count lines numbered 1..n. It is
// only allowed while the count is Pending; populating again replaces the lines.
// A nil location falls back to the count's own scope.
func (s *Service) Populate(ctx context.Context, actor models.Actor, countID uint, location *string) (int, error) {
	if err := requireActor(actor); err != nil {
		return 0, err
	}
	if location != nil {
		loc := strings.TrimSpace(*location)
		if loc == "" {
			location = nil
		} else {
			location = &loc
		}
	}

	var (
		count    *models.PhysicalStockCount
		inserted int
		replaced int
	)
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		count, err = tx.GetCount(ctx, countID)
		if err != nil {
			return err
		}
		if count.Status != models.CountStatusPending {
			return apperr.Rule(apperr.CodeAlreadyPopulated, "Count items can only be populated while the count is pending")
		}

		filter := location
		if filter == nil {
			filter = count.StorageLocation
		}

		rows, err := tx.ListSnapshot(ctx, filter)
		if err != nil {
			return err
		}

		existing, err := tx.ListCountItems(ctx, countID, store.ItemFilter{})
		if err != nil {
			return err
		}
		replaced = len(existing)
		if replaced > 0 {
			if err := tx.DeleteCountItems(ctx, countID); err != nil {
				return err
			}
		}

		items := make([]models.PhysicalStockCountItem, 0, len(rows))
		for i, r := range rows {
			items = append(items, models.NewCountItemFromLevel(countID, i+1, r.Item, r.Level))
		}
		if err := tx.CreateCountItems(ctx, items); err != nil {
			return err
		}
		inserted = len(items)

		ok, err := tx.UpdateCountIfStatus(ctx, countID, models.CountStatusPending, map[string]any{
			"total_items_expected": inserted,
		})
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Rule(apperr.CodeAlreadyPopulated, "Count was started while populating")
		}
		count.TotalItemsExpected = inserted
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.record(ctx, audit.LogOptions{
		Actor:       actor,
		EntityType:  entityCount,
		EntityID:    countID,
		Action:      models.AuditActionPopulate,
		Description: "count " + count.CountNumber + " populated",
		After:       map[string]any{"items_added": inserted, "items_replaced": replaced, "storage_location": location},
	})
	return inserted, nil
}

type AddItemInput struct {
	InventoryItemID uint
	StorageLocation string
	Notes           string
}

// AddItem appends a manual line after the last line number. The expected total
// set by population is left untouched.
func (s *Service) AddItem(ctx context.Context, actor models.Actor, countID uint, in AddItemInput) (*models.PhysicalStockCountItem, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if in.InventoryItemID == 0 {
		return nil, apperr.Validation("inventory_item_id is required")
	}

	var line models.PhysicalStockCountItem
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		count, err := tx.GetCount(ctx, countID)
		if err != nil {
			return err
		}
		if count.IsClosed() {
			return apperr.Rule(apperr.CodeCountClosed, "Count is "+string(count.Status)+" and cannot take new items")
		}

		item, err := tx.GetInventoryItem(ctx, in.InventoryItemID)
		if err != nil {
			return err
		}

		location := strings.TrimSpace(in.StorageLocation)
		if location == "" && count.StorageLocation != nil {
			location = *count.StorageLocation
		}

		_, err = tx.FindCountItemForInventory(ctx, countID, item.ID, location)
		switch {
		case err == nil:
			return apperr.Rule(apperr.CodeDuplicate, "Item is already on this count")
		case !apperr.IsKind(err, apperr.KindNotFound):
			return err
		}

		level := models.InventoryLevel{InventoryItemID: item.ID, StorageLocation: location}
		if location != "" {
			lvl, err := tx.GetLevel(ctx, item.ID, location)
			switch {
			case err == nil:
				level = *lvl
			case !apperr.IsKind(err, apperr.KindNotFound):
				return err
			}
		}

		last, err := tx.MaxLineNumber(ctx, countID)
		if err != nil {
			return err
		}

		// the slice shares its backing array, so the generated id lands in lines[0]
		lines := []models.PhysicalStockCountItem{models.NewCountItemFromLevel(countID, last+1, *item, level)}
		lines[0].Notes = in.Notes
		if err := tx.CreateCountItems(ctx, lines); err != nil {
			return err
		}
		line = lines[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	created := &line

	s.record(ctx, audit.LogOptions{
		Actor:       actor,
		EntityType:  entityCountItem,
		EntityID:    created.ID,
		Action:      models.AuditActionCreate,
		Description: "manual line added",
		After:       created,
	})
	return created, nil
}
