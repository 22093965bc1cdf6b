package entity

import "time"

const (
	EventSourceCreate  = "create"
	EventSourceWebhook = "webhook"
	EventSourcePoll    = "poll"
	EventSourceQuery   = "query"
	EventSourceCredit  = "credit"
	EventSourceExpire  = "expire"
)

type PaymentEvent struct {
	ID string

	PaymentIntentID string

	EventType string
	Source    string

	OldStatus *PaymentStatus
	NewStatus PaymentStatus

	ProviderEventID *string
	Detail          *string

	CreatedAt time.Time
}
