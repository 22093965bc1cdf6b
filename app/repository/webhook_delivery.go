package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-coinwallet/app/entity"
)

type WebhookDeliveryRepository struct {
	db DBTX
}

func NewWebhookDeliveryRepository(db DBTX) *WebhookDeliveryRepository {
	return &WebhookDeliveryRepository{db: db}
}

func (r *WebhookDeliveryRepository) Create(ctx context.Context, delivery *entity.WebhookDelivery) error {
	if delivery.ID == "" {
		delivery.ID = uuid.NewString()
	}

	query := `
		INSERT INTO webhook_deliveries (
			id, provider_event_id, event_type, payment_intent_id, status, error, payload_json, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		delivery.ID,
		nullableStringValue(delivery.ProviderEventID),
		delivery.EventType,
		nullableStringValue(delivery.PaymentIntentID),
		delivery.Status,
		nullableStringValue(delivery.Error),
		delivery.PayloadJSON,
		delivery.CreatedAt.UTC(),
	)
	return err
}
