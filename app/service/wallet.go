package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vibast-solutions/ms-go-coinwallet/app/entity"
	"github.com/vibast-solutions/ms-go-coinwallet/app/repository"
)

const (
	defaultTransactionsLimit = int32(50)
	maxTransactionsLimit     = int32(500)
)

type walletRepository interface {
	OpenWallet(ctx context.Context, userID string) (*entity.Wallet, error)
	FindByUserID(ctx context.Context, userID string) (*entity.Wallet, error)
	Credit(ctx context.Context, entry repository.LedgerEntry) (*entity.Transaction, int64, error)
	Debit(ctx context.Context, entry repository.LedgerEntry) (*entity.Transaction, int64, error)
	Transfer(ctx context.Context, fromUserID, toUserID string, amount int64) (*repository.TransferResult, error)
	ListTransactions(ctx context.Context, userID string, limit, offset int32) ([]*entity.Transaction, error)
}

type ledgerRequest interface {
	GetUserId() string
	GetAmount() int64
	GetType() string
	GetReferenceId() string
}

type transferRequest interface {
	GetFromUserId() string
	GetToUserId() string
	GetAmount() int64
}

type LedgerResult struct {
	Transaction *entity.Transaction
	Balance     int64
}

type WalletService struct {
	walletRepo walletRepository
}

func NewWalletService(walletRepo walletRepository) *WalletService {
	return &WalletService{walletRepo: walletRepo}
}

func (s *WalletService) OpenWallet(ctx context.Context, userID string) (*entity.Wallet, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}
	return s.walletRepo.OpenWallet(ctx, userID)
}

func (s *WalletService) GetWallet(ctx context.Context, userID string) (*entity.Wallet, error) {
	wallet, err := s.walletRepo.FindByUserID(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}
	return wallet, nil
}

func (s *WalletService) ListTransactions(ctx context.Context, userID string, limit, offset int32) ([]*entity.Transaction, error) {
	if _, err := s.GetWallet(ctx, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultTransactionsLimit
	}
	if limit > maxTransactionsLimit {
		limit = maxTransactionsLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.walletRepo.ListTransactions(ctx, strings.TrimSpace(userID), limit, offset)
}

// Credit adds amount to the user's balance together with its ledger line.
func (s *WalletService) Credit(ctx context.Context, req ledgerRequest) (*LedgerResult, error) {
	entry, err := ledgerEntryFromRequest(req)
	if err != nil {
		return nil, err
	}
	txn, balance, err := s.walletRepo.Credit(ctx, entry)
	if err != nil {
		return nil, mapLedgerError(err)
	}
	return &LedgerResult{Transaction: txn, Balance: balance}, nil
}

// Debit removes amount from the user's balance; it never drives the balance
// below zero.
func (s *WalletService) Debit(ctx context.Context, req ledgerRequest) (*LedgerResult, error) {
	entry, err := ledgerEntryFromRequest(req)
	if err != nil {
		return nil, err
	}
	txn, balance, err := s.walletRepo.Debit(ctx, entry)
	if err != nil {
		return nil, mapLedgerError(err)
	}
	return &LedgerResult{Transaction: txn, Balance: balance}, nil
}

func (s *WalletService) Transfer(ctx context.Context, req transferRequest) (*repository.TransferResult, error) {
	from := strings.TrimSpace(req.GetFromUserId())
	to := strings.TrimSpace(req.GetToUserId())
	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: fromUserId and toUserId are required", ErrInvalidRequest)
	}
	if from == to {
		return nil, fmt.Errorf("%w: cannot transfer to the same wallet", ErrInvalidRequest)
	}
	if req.GetAmount() <= 0 {
		return nil, fmt.Errorf("%w: amount must be > 0", ErrInvalidRequest)
	}

	result, err := s.walletRepo.Transfer(ctx, from, to, req.GetAmount())
	if err != nil {
		return nil, mapLedgerError(err)
	}
	return result, nil
}

func ledgerEntryFromRequest(req ledgerRequest) (repository.LedgerEntry, error) {
	userID := strings.TrimSpace(req.GetUserId())
	if userID == "" {
		return repository.LedgerEntry{}, fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}
	if req.GetAmount() <= 0 {
		return repository.LedgerEntry{}, fmt.Errorf("%w: amount must be > 0", ErrInvalidRequest)
	}
	txnType := entity.TransactionType(strings.ToUpper(strings.TrimSpace(req.GetType())))
	if !txnType.IsValid() {
		return repository.LedgerEntry{}, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidRequest, req.GetType())
	}
	if !txnType.IsManual() {
		return repository.LedgerEntry{}, fmt.Errorf("%w: transaction type %s is reserved for payment and transfer flows", ErrInvalidRequest, txnType)
	}

	return repository.LedgerEntry{
		UserID:      userID,
		Amount:      req.GetAmount(),
		Type:        txnType,
		ReferenceID: normalizeOptionalString(req.GetReferenceId()),
	}, nil
}

func mapLedgerError(err error) error {
	switch {
	case errors.Is(err, repository.ErrWalletNotFound):
		return ErrWalletNotFound
	case errors.Is(err, repository.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, repository.ErrDuplicateReference):
		return fmt.Errorf("%w: %v", ErrPaymentAlreadyExists, err)
	default:
		return err
	}
}
