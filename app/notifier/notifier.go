package notifier

import "context"

// PaymentSucceeded carries what an external channel needs to announce a paid
// intent. ChannelID and MessageID correlate the announcement with the
// message that started the purchase; both may be empty.
type PaymentSucceeded struct {
	PaymentIntentID string
	UserID          string
	Amount          int64
	Currency        string
	CoinsAmount     int64
	ChannelID       string
	MessageID       string
}

type Notifier interface {
	NotifyPaymentSucceeded(ctx context.Context, n PaymentSucceeded) error
}

// Nop drops every notification.
type Nop struct{}

func (Nop) NotifyPaymentSucceeded(context.Context, PaymentSucceeded) error {
	return nil
}
