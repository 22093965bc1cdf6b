package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultDiscordAPIBaseURL = "https://discord.com/api/v10"
	discordColorSuccess      = 0x00ff00
)

type DiscordConfig struct {
	BotToken   string
	APIBaseURL string
	Timeout    time.Duration
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title     string              `json:"title"`
	Color     int                 `json:"color"`
	Fields    []discordEmbedField `json:"fields"`
	Timestamp string              `json:"timestamp"`
}

type discordMessageEdit struct {
	Embeds     []discordEmbed `json:"embeds"`
	Components []any          `json:"components"`
}

// Discord edits the purchase message in place once the payment succeeds.
type Discord struct {
	client *resty.Client
	now    func() time.Time
}

func NewDiscord(cfg DiscordConfig) *Discord {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if baseURL == "" {
		baseURL = defaultDiscordAPIBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Authorization", "Bot "+cfg.BotToken).
		SetHeader("Content-Type", "application/json")

	return &Discord{client: client, now: time.Now}
}

func (d *Discord) NotifyPaymentSucceeded(ctx context.Context, n PaymentSucceeded) error {
	if n.ChannelID == "" || n.MessageID == "" {
		logrus.WithField("payment_intent_id", n.PaymentIntentID).Debug("discord correlation ids missing, notification skipped")
		return nil
	}

	body := discordMessageEdit{
		Embeds: []discordEmbed{{
			Title: "Payment received",
			Color: discordColorSuccess,
			Fields: []discordEmbedField{
				{Name: "Amount", Value: formatMinorUnits(n.Amount, n.Currency), Inline: true},
				{Name: "Coins", Value: fmt.Sprintf("%d", n.CoinsAmount), Inline: true},
				{Name: "User", Value: fmt.Sprintf("<@%s>", n.UserID), Inline: true},
				{Name: "Payment", Value: n.PaymentIntentID, Inline: false},
			},
			Timestamp: d.now().UTC().Format(time.RFC3339),
		}},
		Components: []any{},
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"channel": n.ChannelID, "message": n.MessageID}).
		SetBody(body).
		Patch("/channels/{channel}/messages/{message}")
	if err != nil {
		return fmt.Errorf("discord edit message: %w", err)
	}
	if resp.IsError() {
		return errors.New("discord edit message failed: status=" + resp.Status())
	}
	return nil
}

func formatMinorUnits(amount int64, currency string) string {
	return decimal.New(amount, -2).StringFixed(2) + " " + strings.ToUpper(currency)
}
