package stockcount

import (
	"context"
	"strings"
	"time"

	"stockcount-backend/internal/apperr"
	"stockcount-backend/internal/audit"
	"stockcount-backend/internal/models"
	"stockcount-backend/internal/store"
)

type CreateCountInput struct {
	Description     string
	CountDate       time.Time
	StorageLocation *string
	CountType       models.CountType
	ScheduledDate   *time.Time
	Notes           string
}

type UpdateCountInput struct {
	Description     *string
	CountDate       *time.Time
	StorageLocation *string
	ScheduledDate   *time.Time
	Notes           *string
	Status          *models.CountStatus
}

func (s *Service) CreateCount(ctx context.Context, actor models.Actor, in CreateCountInput) (*models.PhysicalStockCount, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if in.CountType == "" {
		in.CountType = models.CountTypeFull
	}
	if !in.CountType.Valid() {
		return nil, apperr.Validation("count_type must be full, cycle or spot")
	}
	now := s.now()
	if in.CountDate.IsZero() {
		in.CountDate = now
	}
	if in.StorageLocation != nil {
		loc := strings.TrimSpace(*in.StorageLocation)
		if loc == "" {
			in.StorageLocation = nil
		} else {
			in.StorageLocation = &loc
		}
	}

	var count *models.PhysicalStockCount
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := nextNumber(ctx, s.store, store.NumberCount, "PSC", now, attempt)
		if err != nil {
			return nil, err
		}
		count = &models.PhysicalStockCount{
			CountNumber:     number,
			Description:     strings.TrimSpace(in.Description),
			CountDate:       in.CountDate,
			StorageLocation: in.StorageLocation,
			CountType:       in.CountType,
			Status:          models.CountStatusPending,
			ScheduledDate:   in.ScheduledDate,
			Notes:           in.Notes,
			CreatedBy:       actor.ID,
		}
		err = s.store.CreateCount(ctx, count)
		if err == nil {
			break
		}
		if !apperr.HasCode(err, apperr.CodeDuplicate) || attempt == maxNumberAttempts-1 {
			return nil, err
		}
	}

	s.record(ctx, audit.LogOptions{
		Actor:       actor,
		EntityType:  entityCount,
		EntityID:    count.ID,
		Action:      models.AuditActionCreate,
		Description: "count " + count.CountNumber + " created",
		After:       count,
	})
	return count, nil
}

func (s *Service) GetCount(ctx context.Context, id uint) (*models.PhysicalStockCount, error) {
	return s.store.GetCount(ctx, id)
}

func (s *Service) GetCountByNumber(ctx context.Context, number string) (*models.PhysicalStockCount, error) {
	return s.store.GetCountByNumber(ctx, strings.TrimSpace(number))
}

func (s *Service) ListCounts(ctx context.Context, f store.CountFilter) ([]models.PhysicalStockCount, error) {
	return s.store.ListCounts(ctx, f)
}

// UpdateCount applies a partial update in one transaction. Field edits are
// applied first, then a requested status goes through the start or cancel
// transition; completion only happens through Finalize.
func (s *Service) UpdateCount(ctx context.Context, actor models.Actor, id uint, in UpdateCountInput) (*models.PhysicalStockCount, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if in.Status != nil {
		switch *in.Status {
		case models.CountStatusInProgress, models.CountStatusCancelled:
		case models.CountStatusCompleted:
			return nil, apperr.Rule(apperr.CodeInvalidTransition, "Use finalize to complete a count")
		default:
			return nil, apperr.Validation("unknown status")
		}
	}
	editing := in.Description != nil || in.CountDate != nil || in.StorageLocation != nil || in.ScheduledDate != nil || in.Notes != nil

	var (
		count     *models.PhysicalStockCount
		before    models.PhysicalStockCount
		started   bool
		cancelled bool
	)
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		count, err = tx.GetCount(ctx, id)
		if err != nil {
			return err
		}
		before = *count

		if editing {
			if err := applyCountEdits(count, in); err != nil {
				return err
			}
			if err := tx.SaveCount(ctx, count); err != nil {
				return err
			}
		}

		if in.Status == nil {
			return nil
		}
		if *in.Status == models.CountStatusCancelled {
			if err := s.cancelTx(ctx, tx, count); err != nil {
				return err
			}
			cancelled = true
			return nil
		}
		switch count.Status {
		case models.CountStatusInProgress:
			return nil
		case models.CountStatusPending:
			started, err = s.startIfPending(ctx, tx, count, actor, s.now())
			return err
		default:
			return apperr.Rule(apperr.CodeInvalidTransition, "Count is "+string(count.Status)+" and cannot be started")
		}
	})
	if err != nil {
		return nil, err
	}

	if editing {
		edited := *count
		edited.Status = before.Status
		edited.StartedBy, edited.StartedAt = before.StartedBy, before.StartedAt
		s.record(ctx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityCount,
			EntityID:    count.ID,
			Action:      models.AuditActionUpdate,
			Description: "count " + count.CountNumber + " updated",
			Before:      before,
			After:       edited,
		})
	}
	if started {
		s.recordStart(ctx, actor, count, "status update")
	}
	if cancelled {
		s.recordCancel(ctx, actor, count, before.Status)
	}
	return count, nil
}

func applyCountEdits(count *models.PhysicalStockCount, in UpdateCountInput) error {
	if count.IsClosed() {
		return apperr.Rule(apperr.CodeCountClosed, "Count is "+string(count.Status)+" and can no longer be edited")
	}
	if in.StorageLocation != nil {
		if count.Status != models.CountStatusPending {
			return apperr.Rule(apperr.CodeInvalidTransition, "Storage location can only change while the count is pending")
		}
		loc := strings.TrimSpace(*in.StorageLocation)
		if loc == "" {
			count.StorageLocation = nil
		} else {
			count.StorageLocation = &loc
		}
	}
	if in.Description != nil {
		count.Description = strings.TrimSpace(*in.Description)
	}
	if in.CountDate != nil {
		count.CountDate = *in.CountDate
	}
	if in.ScheduledDate != nil {
		count.ScheduledDate = in.ScheduledDate
	}
	if in.Notes != nil {
		count.Notes = *in.Notes
	}
	return nil
}

// StartCount moves Pending to InProgress. Starting a running count is a no-op.
func (s *Service) StartCount(ctx context.Context, actor models.Actor, id uint) (*models.PhysicalStockCount, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var (
		count   *models.PhysicalStockCount
		started bool
	)
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		count, err = tx.GetCount(ctx, id)
		if err != nil {
			return err
		}
		switch count.Status {
		case models.CountStatusInProgress:
			return nil
		case models.CountStatusPending:
			started, err = s.startIfPending(ctx, tx, count, actor, s.now())
			return err
		default:
			return apperr.Rule(apperr.CodeInvalidTransition, "Count is "+string(count.Status)+" and cannot be started")
		}
	})
	if err != nil {
		return nil, err
	}
	if started {
		s.recordStart(ctx, actor, count, "explicit")
	}
	return count, nil
}

// CancelCount cancels a Pending or InProgress count and closes its open sessions.
func (s *Service) CancelCount(ctx context.Context, actor models.Actor, id uint) (*models.PhysicalStockCount, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var count *models.PhysicalStockCount
	var before models.CountStatus
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		count, err = tx.GetCount(ctx, id)
		if err != nil {
			return err
		}
		before = count.Status
		return s.cancelTx(ctx, tx, count)
	})
	if err != nil {
		return nil, err
	}

	s.recordCancel(ctx, actor, count, before)
	return count, nil
}

// cancelTx flips count to Cancelled inside tx and closes its active sessions.
func (s *Service) cancelTx(ctx context.Context, tx store.Store, count *models.PhysicalStockCount) error {
	if !count.Status.CanTransition(models.CountStatusCancelled) {
		return apperr.Rule(apperr.CodeInvalidTransition, "Count is "+string(count.Status)+" and cannot be cancelled")
	}

	now := s.now()
	ok, err := tx.UpdateCountIfStatus(ctx, count.ID, count.Status, map[string]any{"status": models.CountStatusCancelled})
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Rule(apperr.CodeInvalidTransition, "Count changed status concurrently")
	}
	count.Status = models.CountStatusCancelled

	sessions, err := tx.ListSessions(ctx, count.ID)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if sess.Status != models.SessionStatusActive {
			continue
		}
		if _, err := tx.CloseSession(ctx, sess.ID, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) recordCancel(ctx context.Context, actor models.Actor, count *models.PhysicalStockCount, before models.CountStatus) {
	s.record(ctx, audit.LogOptions{
		Actor:       actor,
		EntityType:  entityCount,
		EntityID:    count.ID,
		Action:      models.AuditActionUpdate,
		Description: "count " + count.CountNumber + " cancelled",
		Before:      map[string]any{"status": before},
		After:       map[string]any{"status": count.Status},
	})
}

// ApproveCount signs off a finalized count once.
func (s *Service) ApproveCount(ctx context.Context, actor models.Actor, id uint) (*models.PhysicalStockCount, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	count, err := s.store.GetCount(ctx, id)
	if err != nil {
		return nil, err
	}
	if count.Status != models.CountStatusCompleted {
		return nil, apperr.Rule(apperr.CodeCountNotFinalized, "Only a finalized count can be approved")
	}

	now := s.now()
	ok, err := s.store.ApproveCount(ctx, id, actor.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Rule(apperr.CodeAlreadyApproved, "Count is already approved")
	}
	count.ApprovedBy = uintPtr(actor.ID)
	count.ApprovedAt = timePtr(now)

	s.record(ctx, audit.LogOptions{
		Actor:       actor,
		EntityType:  entityCount,
		EntityID:    count.ID,
		Action:      models.AuditActionUpdate,
		Description: "count " + count.CountNumber + " approved",
		After:       map[string]any{"approved_by": actor.ID, "approved_at": now},
	})
	return count, nil
}

// DeleteCount removes a count that never produced stock effects.
func (s *Service) DeleteCount(ctx context.Context, actor models.Actor, id uint) error {
	if err := requireActor(actor); err != nil {
		return err
	}

	count, err := s.store.GetCount(ctx, id)
	if err != nil {
		return err
	}
	if count.Status != models.CountStatusPending && count.Status != models.CountStatusCancelled {
		return apperr.Rule(apperr.CodeCountNotDeletable, "Only pending or cancelled counts can be deleted")
	}

	if err := s.store.DeleteCount(ctx, id); err != nil {
		return err
	}

	s.record(ctx, audit.LogOptions{
		Actor:       actor,
		EntityType:  entityCount,
		EntityID:    count.ID,
		Action:      models.AuditActionDelete,
		Description: "count " + count.CountNumber + " deleted",
		Before:      count,
	})
	return nil
}
