package entity

import "time"

type PaymentStatus string

const (
	PaymentStatusPending        PaymentStatus = "PENDING"
	PaymentStatusRequiresAction PaymentStatus = "REQUIRES_ACTION"
	PaymentStatusProcessing     PaymentStatus = "PROCESSING"
	PaymentStatusSucceeded      PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed         PaymentStatus = "FAILED"
	PaymentStatusCanceled       PaymentStatus = "CANCELED"
)

// TerminalPaymentStatuses never transition again once stored.
var TerminalPaymentStatuses = []PaymentStatus{
	PaymentStatusSucceeded,
	PaymentStatusFailed,
	PaymentStatusCanceled,
}

func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusSucceeded, PaymentStatusFailed, PaymentStatusCanceled:
		return true
	default:
		return false
	}
}

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending,
		PaymentStatusRequiresAction,
		PaymentStatusProcessing,
		PaymentStatusSucceeded,
		PaymentStatusFailed,
		PaymentStatusCanceled:
		return true
	default:
		return false
	}
}

type CreditStatus string

const (
	CreditStatusNone    CreditStatus = "NONE"
	CreditStatusPending CreditStatus = "PENDING"
	CreditStatusDone    CreditStatus = "DONE"
	CreditStatusSkipped CreditStatus = "SKIPPED"
	CreditStatusFailed  CreditStatus = "FAILED"
)

// Metadata keys understood by the reconciliation core.
const (
	MetadataUserID           = "userId"
	MetadataType             = "type"
	MetadataCoinsAmount      = "coinsAmount"
	MetadataCallbackURL      = "callbackUrl"
	MetadataCancelURL        = "cancelUrl"
	MetadataQRCodeURL        = "qrCodeUrl"
	MetadataDiscordChannelID = "discordChannelId"
	MetadataDiscordMessageID = "discordMessageId"
	MetadataPackNumber       = "packNumber"

	PaymentTypeCoinPack     = "coin_pack"
	PaymentTypeDiscordTopup = "discord_topup"
)

// PaymentIntent is the local shadow record of a processor payment intent.
type PaymentIntent struct {
	ID string

	Amount   int64
	Currency string

	Status      PaymentStatus
	Description *string
	Metadata    map[string]string
	QRCodeURL   *string
	UserID      *string
	PaidAt      *time.Time

	CreditStatus    CreditStatus
	CreditAttempts  int32
	CreditLastError *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
