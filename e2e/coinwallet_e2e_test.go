//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-coinwallet/app/types"
)

const defaultCoinWalletHTTPBase = "http://localhost:48080"

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient() *httpClient {
	baseURL := strings.TrimRight(os.Getenv("COINWALLET_HTTP_URL"), "/")
	if baseURL == "" {
		baseURL = defaultCoinWalletHTTPBase
	}
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpClient) do(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var reqBody io.Reader = bytes.NewReader(nil)
	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = bytes.NewReader(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("json marshal failed: %v", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", fmt.Sprintf("e2e-http-%d", time.Now().UnixNano()))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}
	return resp, bodyBytes
}

func requireStatus(t *testing.T, resp *http.Response, body []byte, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d: %s", expected, resp.StatusCode, string(body))
	}
}

func decode(t *testing.T, body []byte, dest any) {
	t.Helper()
	if err := json.Unmarshal(body, dest); err != nil {
		t.Fatalf("decode %q: %v", string(body), err)
	}
}

func TestHealth(t *testing.T) {
	c := newHTTPClient()
	resp, body := c.do(t, http.MethodGet, "/health", nil, nil)
	requireStatus(t, resp, body, http.StatusOK)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected request id to be echoed")
	}
}

func TestWalletLifecycle(t *testing.T) {
	c := newHTTPClient()
	alice := "e2e-" + uuid.NewString()
	bob := "e2e-" + uuid.NewString()

	for _, user := range []string{alice, bob} {
		resp, body := c.do(t, http.MethodPost, "/wallets", map[string]string{"userId": user}, nil)
		requireStatus(t, resp, body, http.StatusCreated)
	}

	resp, body := c.do(t, http.MethodPost, "/wallets/"+alice+"/credit", map[string]any{"amount": 250, "type": "DEPOSIT"}, nil)
	requireStatus(t, resp, body, http.StatusOK)

	resp, body = c.do(t, http.MethodPost, "/wallets/"+alice+"/debit", map[string]any{"amount": 1000, "type": "WITHDRAWAL"}, nil)
	requireStatus(t, resp, body, http.StatusConflict)

	resp, body = c.do(t, http.MethodPost, "/wallets/transfers", map[string]any{"fromUserId": alice, "toUserId": bob, "amount": 100}, nil)
	requireStatus(t, resp, body, http.StatusOK)
	var transfer types.TransferResponse
	decode(t, body, &transfer)
	if transfer.FromBalance != 150 || transfer.ToBalance != 100 {
		t.Fatalf("unexpected transfer %+v", transfer)
	}

	resp, body = c.do(t, http.MethodGet, "/wallets/"+alice+"/transactions", nil, nil)
	requireStatus(t, resp, body, http.StatusOK)
	var txns types.ListTransactionsResponse
	decode(t, body, &txns)
	if len(txns.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txns.Transactions))
	}
}

func TestCoinPacks(t *testing.T) {
	c := newHTTPClient()

	resp, body := c.do(t, http.MethodGet, "/coin-packs", nil, nil)
	requireStatus(t, resp, body, http.StatusOK)
	var packs types.ListCoinPacksResponse
	decode(t, body, &packs)
	if len(packs.Packs) == 0 {
		t.Fatalf("expected seeded coin packs")
	}

	resp, body = c.do(t, http.MethodGet, "/coin-packs/suggest?shortfall=1", nil, nil)
	requireStatus(t, resp, body, http.StatusOK)
	var suggestion types.SuggestCoinPackResponse
	decode(t, body, &suggestion)
	if suggestion.Pack == nil || !suggestion.Covers {
		t.Fatalf("unexpected suggestion %s", string(body))
	}
}

func TestPaymentErrors(t *testing.T) {
	c := newHTTPClient()

	resp, body := c.do(t, http.MethodGet, "/payments/pi_does_not_exist", nil, nil)
	requireStatus(t, resp, body, http.StatusNotFound)

	resp, body = c.do(t, http.MethodPost, "/payments/intents", map[string]any{"amount": 0}, nil)
	requireStatus(t, resp, body, http.StatusBadRequest)

	resp, body = c.do(t, http.MethodPost, "/payments/webhook", []byte(`{"id":"evt_e2e"}`), nil)
	requireStatus(t, resp, body, http.StatusBadRequest)

	resp, body = c.do(t, http.MethodPost, "/payments/webhook", []byte(`{"id":"evt_e2e"}`), map[string]string{
		types.HeaderStripeSignature: "t=1,v1=forged",
	})
	requireStatus(t, resp, body, http.StatusBadRequest)
}

// Needs STRIPE_SECRET_KEY on the running service; skipped unless
// COINWALLET_E2E_STRIPE is set.
func TestCreatePromptPayIntent(t *testing.T) {
	if os.Getenv("COINWALLET_E2E_STRIPE") == "" {
		t.Skip("COINWALLET_E2E_STRIPE not set")
	}
	c := newHTTPClient()

	resp, body := c.do(t, http.MethodPost, "/payments/intents", map[string]any{
		"amount":   1000,
		"currency": "thb",
		"metadata": map[string]string{"userId": "e2e-" + uuid.NewString(), "type": "coin_pack", "coinsAmount": "2090"},
	}, nil)
	requireStatus(t, resp, body, http.StatusCreated)
	var created types.CreatePaymentIntentResponse
	decode(t, body, &created)

	resp, body = c.do(t, http.MethodGet, "/payments/"+created.PaymentIntentId, nil, nil)
	requireStatus(t, resp, body, http.StatusOK)
	if resp.Header.Get("Cache-Control") != "no-store" {
		t.Fatalf("expected no-store cache header")
	}
}
