package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-coinwallet/app/entity"
)

type PaymentEventRepository struct {
	db DBTX
}

func NewPaymentEventRepository(db DBTX) *PaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

func (r *PaymentEventRepository) Create(ctx context.Context, event *entity.PaymentEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	query := `
		INSERT INTO payment_events (
			id, payment_intent_id, event_type, source, old_status, new_status, provider_event_id, detail, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var oldStatus interface{}
	if event.OldStatus != nil {
		oldStatus = string(*event.OldStatus)
	}

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.PaymentIntentID,
		event.EventType,
		event.Source,
		oldStatus,
		event.NewStatus,
		nullableStringValue(event.ProviderEventID),
		nullableStringValue(event.Detail),
		event.CreatedAt.UTC(),
	)
	return err
}

func (r *PaymentEventRepository) ListByPaymentIntentID(ctx context.Context, paymentIntentID string) ([]*entity.PaymentEvent, error) {
	query := `
		SELECT id, payment_intent_id, event_type, source, old_status, new_status, provider_event_id, detail, created_at
		FROM payment_events
		WHERE payment_intent_id = ?
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, paymentIntentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*entity.PaymentEvent, 0)
	for rows.Next() {
		var (
			event           entity.PaymentEvent
			oldStatus       sql.NullString
			providerEventID sql.NullString
			detail          sql.NullString
		)
		if err := rows.Scan(
			&event.ID,
			&event.PaymentIntentID,
			&event.EventType,
			&event.Source,
			&oldStatus,
			&event.NewStatus,
			&providerEventID,
			&detail,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		if oldStatus.Valid {
			status := entity.PaymentStatus(oldStatus.String)
			event.OldStatus = &status
		}
		event.ProviderEventID = stringPtrFromNull(providerEventID)
		event.Detail = stringPtrFromNull(detail)
		event.CreatedAt = event.CreatedAt.UTC()
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
