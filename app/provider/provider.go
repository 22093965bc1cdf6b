package provider

import (
	"context"
	"errors"
)

var (
	ErrIntentNotFound   = errors.New("payment intent not found at provider")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrNotConfigured    = errors.New("payment provider is not configured")
)

type CreateIntentInput struct {
	Amount      int64
	Currency    string
	Description string
	Email       string
	Metadata    map[string]string
}

// QRCode is the PromptPay display payload returned with a confirmed intent.
type QRCode struct {
	ImageURL              string
	Data                  string
	HostedInstructionsURL string
}

// Intent is the provider-side view of a payment intent. Status uses the
// provider's own vocabulary.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
	Metadata     map[string]string
	QRCode       *QRCode
}

type WebhookEvent struct {
	ID     string
	Type   string
	Intent *Intent
}

type Gateway interface {
	CreateIntent(ctx context.Context, input *CreateIntentInput) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
	CancelIntent(ctx context.Context, id string) (*Intent, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

func (e *WebhookEvent) IntentID() string {
	if e == nil || e.Intent == nil {
		return ""
	}
	return e.Intent.ID
}
