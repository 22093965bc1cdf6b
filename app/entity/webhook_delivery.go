package entity

import "time"

const (
	WebhookDeliveryProcessed = "PROCESSED"
	WebhookDeliveryIgnored   = "IGNORED"
	WebhookDeliveryRejected  = "REJECTED"
)

type WebhookDelivery struct {
	ID string

	ProviderEventID *string
	EventType       string
	PaymentIntentID *string

	Status      string
	Error       *string
	PayloadJSON string

	CreatedAt time.Time
}
