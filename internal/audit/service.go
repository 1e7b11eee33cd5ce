package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"stockcount-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LogOptions struct {
	Actor       models.Actor
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// Service persists audit rows and, when configured, forwards them to a webhook.
type Service struct {
	db        *gorm.DB
	forwarder *Forwarder
	log       *zap.Logger
}

func NewService(db *gorm.DB, forwarder *Forwarder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, forwarder: forwarder, log: log}
}

func (s *Service) WriteLog(ctx context.Context, opts LogOptions) error {
	// jsonb columns need the JSON literal null, not an empty string
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	entry := models.AuditLog{
		UserID:      opts.Actor.ID,
		UserName:    opts.Actor.Name,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("could not save audit log: %w", err)
	}

	if s.forwarder != nil {
		if err := s.forwarder.Forward(ctx, entry); err != nil {
			s.log.Warn("audit webhook failed",
				zap.Uint("audit_id", entry.ID),
				zap.String("entity_type", entry.EntityType),
				zap.Error(err))
		}
	}

	return nil
}

type ListFilter struct {
	EntityType string
	EntityID   uint
	UserID     uint
	Limit      int
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.AuditLog, error) {
	q := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var logs []models.AuditLog
	if err := q.Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("could not list audit logs: %w", err)
	}
	return logs, nil
}
