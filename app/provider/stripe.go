package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/webhook"
)

const (
	paymentMethodPromptPay = "promptpay"

	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusRequiresConfirmation  = "requires_confirmation"
	StatusRequiresAction        = "requires_action"
	StatusProcessing            = "processing"
	StatusSucceeded             = "succeeded"
	StatusCanceled              = "canceled"
)

type StripeConfig struct {
	SecretKey                 string
	WebhookSecret             string
	SignatureToleranceSeconds int64
}

type StripeGateway struct {
	cfg StripeConfig
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	if cfg.SignatureToleranceSeconds <= 0 {
		cfg.SignatureToleranceSeconds = 300
	}
	if key := strings.TrimSpace(cfg.SecretKey); key != "" {
		stripe.Key = key
	}
	return &StripeGateway{cfg: cfg}
}

// CreateIntent creates and immediately confirms a PromptPay-only intent so the
// QR code is available in the response.
func (g *StripeGateway) CreateIntent(ctx context.Context, input *CreateIntentInput) (*Intent, error) {
	if strings.TrimSpace(g.cfg.SecretKey) == "" {
		return nil, ErrNotConfigured
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(input.Amount),
		Currency:           stripe.String(input.Currency),
		PaymentMethodTypes: stripe.StringSlice([]string{paymentMethodPromptPay}),
		PaymentMethodData: &stripe.PaymentIntentPaymentMethodDataParams{
			Type: stripe.String(paymentMethodPromptPay),
			BillingDetails: &stripe.PaymentIntentPaymentMethodDataBillingDetailsParams{
				Email: stripe.String(input.Email),
			},
		},
		Confirm: stripe.Bool(true),
	}
	if input.Description != "" {
		params.Description = stripe.String(input.Description)
	}
	for key, value := range input.Metadata {
		params.AddMetadata(key, value)
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	return intentFromStripe(pi), nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	if strings.TrimSpace(g.cfg.SecretKey) == "" {
		return nil, ErrNotConfigured
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(id, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("stripe retrieve payment intent: %w", err)
	}
	return intentFromStripe(pi), nil
}

// CancelIntent cancels an abandoned intent so a late QR scan can no longer be
// paid. Stripe refuses to cancel an intent that already succeeded.
func (g *StripeGateway) CancelIntent(ctx context.Context, id string) (*Intent, error) {
	if strings.TrimSpace(g.cfg.SecretKey) == "" {
		return nil, ErrNotConfigured
	}

	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx

	pi, err := paymentintent.Cancel(id, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("stripe cancel payment intent: %w", err)
	}
	return intentFromStripe(pi), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes payment
// intent events. Events for other object types come back with a nil Intent.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if strings.TrimSpace(g.cfg.WebhookSecret) == "" {
		return nil, ErrNotConfigured
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret, webhook.ConstructEventOptions{
		Tolerance:                time.Duration(g.cfg.SignatureToleranceSeconds) * time.Second,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if !strings.HasPrefix(out.Type, "payment_intent.") || event.Data == nil {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent event: %w", err)
	}
	out.Intent = intentFromStripe(&pi)
	return out, nil
}

func intentFromStripe(pi *stripe.PaymentIntent) *Intent {
	intent := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
	if intent.Metadata == nil {
		intent.Metadata = map[string]string{}
	}

	if pi.NextAction != nil && pi.NextAction.PromptPayDisplayQRCode != nil {
		qr := pi.NextAction.PromptPayDisplayQRCode
		imageURL := qr.ImageURLPNG
		if imageURL == "" {
			imageURL = qr.ImageURLSVG
		}
		if imageURL != "" || qr.Data != "" {
			intent.QRCode = &QRCode{
				ImageURL:              imageURL,
				Data:                  qr.Data,
				HostedInstructionsURL: qr.HostedInstructionsURL,
			}
		}
	}
	return intent
}

func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == http.StatusNotFound
}
