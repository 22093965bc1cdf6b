package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDiscordEditsCorrelatedMessage(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotAuth   string
		gotBody   discordMessageEdit
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	d := NewDiscord(DiscordConfig{BotToken: "bot-token", APIBaseURL: srv.URL, Timeout: time.Second})
	err := d.NotifyPaymentSucceeded(context.Background(), PaymentSucceeded{
		PaymentIntentID: "pi_1",
		UserID:          "u1",
		Amount:          9900,
		Currency:        "thb",
		CoinsAmount:     21623,
		ChannelID:       "c1",
		MessageID:       "m1",
	})
	require.NoError(t, err)

	require.Equal(t, http.MethodPatch, gotMethod)
	require.Equal(t, "/channels/c1/messages/m1", gotPath)
	require.Equal(t, "Bot bot-token", gotAuth)
	require.Len(t, gotBody.Embeds, 1)
	require.Equal(t, "99.00 THB", gotBody.Embeds[0].Fields[0].Value)
	require.Equal(t, "21623", gotBody.Embeds[0].Fields[1].Value)
}

func TestDiscordSkipsWithoutCorrelationIDs(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	d := NewDiscord(DiscordConfig{BotToken: "bot-token", APIBaseURL: srv.URL})
	require.NoError(t, d.NotifyPaymentSucceeded(context.Background(), PaymentSucceeded{PaymentIntentID: "pi_1"}))
	require.False(t, called)
}

func TestDiscordReportsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	d := NewDiscord(DiscordConfig{BotToken: "bot-token", APIBaseURL: srv.URL})
	err := d.NotifyPaymentSucceeded(context.Background(), PaymentSucceeded{PaymentIntentID: "pi_1", ChannelID: "c", MessageID: "m"})
	require.Error(t, err)
}

func TestFormatMinorUnits(t *testing.T) {
	require.Equal(t, "10.00 THB", formatMinorUnits(1000, "thb"))
	require.Equal(t, "0.05 THB", formatMinorUnits(5, "thb"))
}
