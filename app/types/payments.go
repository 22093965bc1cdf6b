package types

import (
	"errors"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
)

const HeaderStripeSignature = "Stripe-Signature"

type CreatePaymentIntentRequest struct {
	Amount      int64             `json:"amount" validate:"min=1"`
	Currency    string            `json:"currency" validate:"omitempty,len=3,alpha"`
	Description string            `json:"description" validate:"max=1000"`
	Email       string            `json:"email" validate:"omitempty,email"`
	Metadata    map[string]string `json:"metadata"`
	CallbackUrl string            `json:"callbackUrl" validate:"omitempty,url"`
	CancelUrl   string            `json:"cancelUrl" validate:"omitempty,url"`
}

func NewCreatePaymentIntentRequestFromContext(ctx echo.Context) (*CreatePaymentIntentRequest, error) {
	var body CreatePaymentIntentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Currency = strings.ToLower(strings.TrimSpace(body.Currency))
	body.Description = strings.TrimSpace(body.Description)
	body.Email = strings.TrimSpace(body.Email)
	body.CallbackUrl = strings.TrimSpace(body.CallbackUrl)
	body.CancelUrl = strings.TrimSpace(body.CancelUrl)

	return &body, nil
}

func (r *CreatePaymentIntentRequest) Validate() error {
	return validateStruct(r)
}

func (r *CreatePaymentIntentRequest) GetAmount() int64 {
	if r == nil {
		return 0
	}
	return r.Amount
}

func (r *CreatePaymentIntentRequest) GetCurrency() string {
	if r == nil {
		return ""
	}
	return r.Currency
}

func (r *CreatePaymentIntentRequest) GetDescription() string {
	if r == nil {
		return ""
	}
	return r.Description
}

func (r *CreatePaymentIntentRequest) GetEmail() string {
	if r == nil {
		return ""
	}
	return r.Email
}

func (r *CreatePaymentIntentRequest) GetMetadata() map[string]string {
	if r == nil {
		return nil
	}
	return r.Metadata
}

func (r *CreatePaymentIntentRequest) GetCallbackUrl() string {
	if r == nil {
		return ""
	}
	return r.CallbackUrl
}

func (r *CreatePaymentIntentRequest) GetCancelUrl() string {
	if r == nil {
		return ""
	}
	return r.CancelUrl
}

type GetPaymentRequest struct {
	Id string `validate:"required,max=255"`
}

func NewGetPaymentRequestFromContext(ctx echo.Context) (*GetPaymentRequest, error) {
	return &GetPaymentRequest{Id: strings.TrimSpace(ctx.Param("id"))}, nil
}

func (r *GetPaymentRequest) Validate() error {
	if strings.TrimSpace(r.GetId()) == "" {
		return errors.New("invalid payment id")
	}
	return validateStruct(r)
}

func (r *GetPaymentRequest) GetId() string {
	if r == nil {
		return ""
	}
	return r.Id
}

// WebhookRequest carries the raw body exactly as received; signature checks
// run over these bytes.
type WebhookRequest struct {
	Signature string
	Payload   []byte
}

func NewWebhookRequestFromContext(ctx echo.Context) (*WebhookRequest, error) {
	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}
	return &WebhookRequest{
		Signature: strings.TrimSpace(ctx.Request().Header.Get(HeaderStripeSignature)),
		Payload:   payload,
	}, nil
}

func (r *WebhookRequest) Validate() error {
	if r.GetSignature() == "" {
		return errors.New("missing stripe-signature header")
	}
	if len(r.GetPayload()) == 0 {
		return errors.New("missing raw body")
	}
	return nil
}

func (r *WebhookRequest) GetSignature() string {
	if r == nil {
		return ""
	}
	return r.Signature
}

func (r *WebhookRequest) GetPayload() []byte {
	if r == nil {
		return nil
	}
	return r.Payload
}

type QRCode struct {
	ImageUrl string `json:"imageUrl"`
	Data     string `json:"data"`
}

type CreatePaymentIntentResponse struct {
	PaymentIntentId string  `json:"paymentIntentId"`
	ClientSecret    string  `json:"clientSecret"`
	Status          string  `json:"status"`
	Amount          int64   `json:"amount"`
	Currency        string  `json:"currency"`
	Qr              *QRCode `json:"qr"`
	PaymentUrl      string  `json:"paymentUrl"`
	Error           string  `json:"error,omitempty"`
}

type PaymentStatusResponse struct {
	Id                string            `json:"id"`
	Status            string            `json:"status"`
	Amount            int64             `json:"amount"`
	Currency          string            `json:"currency"`
	Description       *string           `json:"description"`
	Metadata          map[string]string `json:"metadata"`
	QrCodeUrl         *string           `json:"qrCodeUrl"`
	PaidAt            string            `json:"paidAt,omitempty"`
	CreditStatus      string            `json:"creditStatus"`
	CallbackSignature string            `json:"callbackSignature,omitempty"`
}

type PaymentEvent struct {
	Id              string `json:"id"`
	EventType       string `json:"eventType"`
	Source          string `json:"source"`
	OldStatus       string `json:"oldStatus,omitempty"`
	NewStatus       string `json:"newStatus"`
	ProviderEventId string `json:"providerEventId,omitempty"`
	Detail          string `json:"detail,omitempty"`
	CreatedAt       string `json:"createdAt"`
}

type ListPaymentEventsResponse struct {
	Events []*PaymentEvent `json:"events"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
