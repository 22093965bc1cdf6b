package entity

import "time"

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypeGift       TransactionType = "GIFT"
	TransactionTypeCoinPack   TransactionType = "COIN_PACK"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit,
		TransactionTypeWithdrawal,
		TransactionTypeTransfer,
		TransactionTypeGift,
		TransactionTypeCoinPack:
		return true
	default:
		return false
	}
}

// IsManual reports whether the type may be posted directly through the wallet
// API. COIN_PACK and TRANSFER lines are only written by the payment credit
// and transfer flows.
func (t TransactionType) IsManual() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeGift:
		return true
	default:
		return false
	}
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

type Wallet struct {
	ID      string
	UserID  string
	Balance int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is one append-only ledger line paired with a balance mutation.
type Transaction struct {
	ID          string
	UserID      string
	WalletID    string
	Amount      int64
	Type        TransactionType
	Status      TransactionStatus
	ReferenceID *string

	CreatedAt time.Time
}
