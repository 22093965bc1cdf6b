package controller

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-coinwallet/app/database"
	"github.com/vibast-solutions/ms-go-coinwallet/app/provider"
	"github.com/vibast-solutions/ms-go-coinwallet/app/repository"
	"github.com/vibast-solutions/ms-go-coinwallet/app/service"
	"github.com/vibast-solutions/ms-go-coinwallet/config"
)

type controllerGateway struct {
	created     *provider.Intent
	createErr   error
	remote      map[string]*provider.Intent
	retrieveErr error
}

func (g *controllerGateway) CreateIntent(_ context.Context, input *provider.CreateIntentInput) (*provider.Intent, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	created := *g.created
	created.Amount = input.Amount
	created.Currency = input.Currency
	created.Metadata = input.Metadata
	g.remote[created.ID] = &created
	return &created, nil
}

func (g *controllerGateway) RetrieveIntent(_ context.Context, id string) (*provider.Intent, error) {
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	item, ok := g.remote[id]
	if !ok {
		return nil, provider.ErrIntentNotFound
	}
	copyItem := *item
	return &copyItem, nil
}

// ParseWebhook accepts signature "valid" with a body of {"id","type","intent"}.
func (g *controllerGateway) CancelIntent(_ context.Context, id string) (*provider.Intent, error) {
	item, ok := g.remote[id]
	if !ok {
		return nil, provider.ErrIntentNotFound
	}
	item.Status = provider.StatusCanceled
	copyItem := *item
	return &copyItem, nil
}

func (g *controllerGateway) ParseWebhook(payload []byte, signature string) (*provider.WebhookEvent, error) {
	if signature != "valid" {
		return nil, provider.ErrInvalidSignature
	}
	var body struct {
		ID     string `json:"id"`
		Type   string `json:"type"`
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, err
	}
	return &provider.WebhookEvent{ID: body.ID, Type: body.Type, Intent: &provider.Intent{ID: body.Intent}}, nil
}

type controllerFixture struct {
	db       *sql.DB
	gateway  *controllerGateway
	payments *PaymentController
	wallets  *WalletController
	packs    *CoinPackController
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Options{
		Driver: database.DriverSQLite,
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(ctx, db, database.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	gateway := &controllerGateway{remote: map[string]*provider.Intent{}}
	walletRepo := repository.NewWalletRepository(db)
	paymentService := service.NewPaymentService(
		repository.NewPaymentIntentRepository(db),
		repository.NewPaymentEventRepository(db),
		repository.NewWebhookDeliveryRepository(db),
		walletRepo,
		gateway,
		nil,
		nil,
		config.PaymentsConfig{
			BaseURL:                 "https://pay.example.com",
			DefaultEmail:            "customer@example.com",
			DefaultCurrency:         "thb",
			CallbackSignatureSecret: "secret",
			CreditMaxAttempts:       3,
		},
	)

	coinPackRepo := repository.NewCoinPackRepository(db)
	paymentService.SetCoinPackCatalog(coinPackRepo)

	return &controllerFixture{
		db:       db,
		gateway:  gateway,
		payments: NewPaymentController(paymentService),
		wallets:  NewWalletController(service.NewWalletService(walletRepo)),
		packs:    NewCoinPackController(service.NewCoinPackService(coinPackRepo, paymentService)),
	}
}

func newRequestContext(method, target, body string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	if len(params) > 0 {
		names := make([]string, 0, len(params)/2)
		values := make([]string, 0, len(params)/2)
		for i := 0; i+1 < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		ctx.SetParamNames(names...)
		ctx.SetParamValues(values...)
	}
	return ctx, rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}
