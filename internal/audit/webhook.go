package audit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"stockcount-backend/internal/models"

	"github.com/go-resty/resty/v2"
)

// Forwarder posts every audit row to an external sink as JSON.
type Forwarder struct {
	httpClient *resty.Client
	url        string
}

func NewForwarder(url string, timeout time.Duration) *Forwarder {
	if url == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)

	return &Forwarder{httpClient: client, url: url}
}

type webhookPayload struct {
	ID          uint               `json:"id"`
	CreatedAt   time.Time          `json:"created_at"`
	UserID      uint               `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
}

func (f *Forwarder) Forward(ctx context.Context, entry models.AuditLog) error {
	resp, err := f.httpClient.R().
		SetContext(ctx).
		SetBody(webhookPayload{
			ID:          entry.ID,
			CreatedAt:   entry.CreatedAt,
			UserID:      entry.UserID,
			UserName:    entry.UserName,
			EntityType:  entry.EntityType,
			EntityID:    entry.EntityID,
			Action:      entry.Action,
			Description: entry.Description,
		}).
		Post(f.url)
	if err != nil {
		return fmt.Errorf("post audit webhook: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("audit webhook error: status=%d", resp.StatusCode())
	}
	return nil
}
