package controller

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-coinwallet/app/provider"
	"github.com/vibast-solutions/ms-go-coinwallet/app/service"
	"github.com/vibast-solutions/ms-go-coinwallet/app/types"
)

func TestHealth(t *testing.T) {
	f := newControllerFixture(t)
	ctx, rec := newRequestContext(http.MethodGet, "/health", "")
	if err := f.payments.Health(ctx); err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreatePaymentIntentCreated(t *testing.T) {
	f := newControllerFixture(t)
	f.gateway.created = &provider.Intent{
		ID:           "pi_http",
		ClientSecret: "secret_http",
		Status:       provider.StatusRequiresAction,
		QRCode:       &provider.QRCode{ImageURL: "https://qr.example.com/pi_http.png", Data: "000201"},
	}

	ctx, rec := newRequestContext(http.MethodPost, "/payments/intents", `{"amount":9900,"metadata":{"userId":"u1","type":"coin_pack","coinsAmount":"21623"}}`)
	if err := f.payments.CreatePaymentIntent(ctx); err != nil {
		t.Fatalf("CreatePaymentIntent() error = %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp types.CreatePaymentIntentResponse
	decodeBody(t, rec, &resp)
	if resp.PaymentIntentId != "pi_http" || resp.Status != "requires_action" || resp.Currency != "thb" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Qr == nil || resp.Qr.ImageUrl != "https://qr.example.com/pi_http.png" {
		t.Fatalf("expected qr payload, got %+v", resp.Qr)
	}
	if resp.PaymentUrl != "https://pay.example.com/payment/pi_http" {
		t.Fatalf("unexpected payment url %q", resp.PaymentUrl)
	}
}

func TestCreatePaymentIntentValidation(t *testing.T) {
	f := newControllerFixture(t)
	ctx, rec := newRequestContext(http.MethodPost, "/payments/intents", `{"amount":0}`)
	if err := f.payments.CreatePaymentIntent(ctx); err != nil {
		t.Fatalf("CreatePaymentIntent() error = %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreatePaymentIntentRejectsUnpricedCredit(t *testing.T) {
	f := newControllerFixture(t)
	f.gateway.created = &provider.Intent{ID: "pi_cheap", Status: provider.StatusRequiresAction}

	ctx, rec := newRequestContext(http.MethodPost, "/payments/intents", `{"amount":1,"metadata":{"userId":"u1","type":"coin_pack","coinsAmount":"2361464"}}`)
	if err := f.payments.CreatePaymentIntent(ctx); err != nil {
		t.Fatalf("CreatePaymentIntent() error = %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := f.gateway.remote["pi_cheap"]; ok {
		t.Fatalf("provider intent must not be created for an unpriced credit")
	}
}

func TestCreatePaymentIntentGatewayFailure(t *testing.T) {
	f := newControllerFixture(t)
	f.gateway.createErr = errors.New("stripe down")

	ctx, rec := newRequestContext(http.MethodPost, "/payments/intents", `{"amount":100}`)
	if err := f.payments.CreatePaymentIntent(ctx); err != nil {
		t.Fatalf("CreatePaymentIntent() error = %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestGetPaymentStatus(t *testing.T) {
	f := newControllerFixture(t)
	f.gateway.created = &provider.Intent{ID: "pi_status", Status: provider.StatusRequiresAction}
	ctx, _ := newRequestContext(http.MethodPost, "/payments/intents", `{"amount":2500}`)
	if err := f.payments.CreatePaymentIntent(ctx); err != nil {
		t.Fatalf("CreatePaymentIntent() error = %v", err)
	}
	f.gateway.remote["pi_status"].Status = provider.StatusProcessing

	ctx, rec := newRequestContext(http.MethodGet, "/payments/pi_status", "", "id", "pi_status")
	if err := f.payments.GetPaymentStatus(ctx); err != nil {
		t.Fatalf("GetPaymentStatus() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderCacheControl) != "no-store" {
		t.Fatalf("expected Cache-Control no-store, got %q", rec.Header().Get(echo.HeaderCacheControl))
	}

	var resp types.PaymentStatusResponse
	decodeBody(t, rec, &resp)
	if resp.Status != "processing" {
		t.Fatalf("expected processing, got %q", resp.Status)
	}
	if resp.CallbackSignature != service.CallbackSignature("secret", "pi_status", 2500) {
		t.Fatalf("unexpected callback signature %q", resp.CallbackSignature)
	}
}

func TestGetPaymentStatusNotFound(t *testing.T) {
	f := newControllerFixture(t)
	ctx, rec := newRequestContext(http.MethodGet, "/payments/pi_none", "", "id", "pi_none")
	if err := f.payments.GetPaymentStatus(ctx); err != nil {
		t.Fatalf("GetPaymentStatus() error = %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleWebhook(t *testing.T) {
	f := newControllerFixture(t)
	f.gateway.created = &provider.Intent{ID: "pi_hook", Status: provider.StatusRequiresAction}
	ctx, _ := newRequestContext(http.MethodPost, "/payments/intents", `{"amount":1000,"currency":"thb","metadata":{"userId":"hook-user","type":"coin_pack","coinsAmount":"2090"}}`)
	if err := f.payments.CreatePaymentIntent(ctx); err != nil {
		t.Fatalf("CreatePaymentIntent() error = %v", err)
	}

	body := `{"id":"evt_hook","type":"payment_intent.succeeded","intent":"pi_hook"}`
	ctx, rec := newRequestContext(http.MethodPost, "/payments/webhook", body)
	ctx.Request().Header.Set(types.HeaderStripeSignature, "valid")
	if err := f.payments.HandleWebhook(ctx); err != nil {
		t.Fatalf("HandleWebhook() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp types.WebhookResponse
	decodeBody(t, rec, &resp)
	if !resp.Received {
		t.Fatalf("expected received=true")
	}

	ctx, rec = newRequestContext(http.MethodGet, "/wallets/hook-user", "", "userId", "hook-user")
	if err := f.wallets.GetWallet(ctx); err != nil {
		t.Fatalf("GetWallet() error = %v", err)
	}
	var wallet types.WalletResponse
	decodeBody(t, rec, &wallet)
	if wallet.Wallet == nil || wallet.Wallet.Balance != 2090 {
		t.Fatalf("expected credited wallet, got %s", rec.Body.String())
	}

	ctx, rec = newRequestContext(http.MethodGet, "/payments/pi_hook/events", "", "id", "pi_hook")
	if err := f.payments.ListPaymentEvents(ctx); err != nil {
		t.Fatalf("ListPaymentEvents() error = %v", err)
	}
	var events types.ListPaymentEventsResponse
	decodeBody(t, rec, &events)
	if len(events.Events) < 2 {
		t.Fatalf("expected creation and transition events, got %+v", events.Events)
	}
}

func TestHandleWebhookRejections(t *testing.T) {
	f := newControllerFixture(t)
	cases := []struct {
		name      string
		body      string
		signature string
	}{
		{name: "missing signature", body: `{"id":"evt"}`},
		{name: "missing body", signature: "valid"},
		{name: "bad signature", body: `{"id":"evt"}`, signature: "forged"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, rec := newRequestContext(http.MethodPost, "/payments/webhook", tc.body)
			if tc.signature != "" {
				ctx.Request().Header.Set(types.HeaderStripeSignature, tc.signature)
			}
			if err := f.payments.HandleWebhook(ctx); err != nil {
				t.Fatalf("HandleWebhook() error = %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}
