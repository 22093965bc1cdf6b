package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-coinwallet/app/entity"
)

var (
	ErrWalletNotFound     = errors.New("wallet not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrDuplicateReference = errors.New("transaction reference already recorded")
)

// LedgerEntry describes one balance mutation and its ledger line.
type LedgerEntry struct {
	UserID      string
	Amount      int64
	Type        entity.TransactionType
	ReferenceID *string
}

type TransferResult struct {
	ReferenceID string
	From        *entity.Transaction
	To          *entity.Transaction
	FromBalance int64
	ToBalance   int64
}

// WalletRepository owns wallets and their transactions. Every balance change
// and its transaction row are written in the same database transaction.
type WalletRepository struct {
	db  TxBeginner
	now func() time.Time
}

func NewWalletRepository(db TxBeginner) *WalletRepository {
	return &WalletRepository{db: db, now: time.Now}
}

// OpenWallet returns the user's wallet, creating an empty one when missing.
func (r *WalletRepository) OpenWallet(ctx context.Context, userID string) (*entity.Wallet, error) {
	now := r.now().UTC()
	wallet := &entity.Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, wallet.ID, wallet.UserID, wallet.Balance, wallet.CreatedAt, wallet.UpdatedAt)
	if err == nil {
		return wallet, nil
	}
	if !isDuplicateEntryError(err) {
		return nil, err
	}

	existing, err := r.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrWalletNotFound
	}
	return existing, nil
}

func (r *WalletRepository) FindByUserID(ctx context.Context, userID string) (*entity.Wallet, error) {
	return findWallet(ctx, r.db, userID)
}

func (r *WalletRepository) Credit(ctx context.Context, entry LedgerEntry) (*entity.Transaction, int64, error) {
	return r.apply(ctx, entry, false)
}

// Debit fails with ErrInsufficientFunds instead of letting the balance go negative.
func (r *WalletRepository) Debit(ctx context.Context, entry LedgerEntry) (*entity.Transaction, int64, error) {
	return r.apply(ctx, entry, true)
}

func (r *WalletRepository) apply(ctx context.Context, entry LedgerEntry, debit bool) (*entity.Transaction, int64, error) {
	var (
		txn     *entity.Transaction
		balance int64
	)

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		wallet, err := findWallet(ctx, tx, entry.UserID)
		if err != nil {
			return err
		}
		if wallet == nil {
			return ErrWalletNotFound
		}

		delta := entry.Amount
		if debit {
			delta = -entry.Amount
		}

		txn, err = r.insertTransaction(ctx, tx, wallet, delta, entry.Type, entry.ReferenceID)
		if err != nil {
			return err
		}
		if err := r.adjustBalance(ctx, tx, wallet.ID, delta); err != nil {
			return err
		}

		balance, err = readBalance(ctx, tx, wallet.ID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return txn, balance, nil
}

// Transfer moves amount between two wallets in one database transaction.
// Wallet rows are touched in user id order so opposing transfers queue
// behind each other rather than deadlocking.
func (r *WalletRepository) Transfer(ctx context.Context, fromUserID, toUserID string, amount int64) (*TransferResult, error) {
	result := &TransferResult{ReferenceID: uuid.NewString()}

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		from, err := findWallet(ctx, tx, fromUserID)
		if err != nil {
			return err
		}
		to, err := findWallet(ctx, tx, toUserID)
		if err != nil {
			return err
		}
		if from == nil || to == nil {
			return ErrWalletNotFound
		}

		legs := []struct {
			wallet *entity.Wallet
			delta  int64
			out    **entity.Transaction
		}{
			{wallet: from, delta: -amount, out: &result.From},
			{wallet: to, delta: amount, out: &result.To},
		}
		if toUserID < fromUserID {
			legs[0], legs[1] = legs[1], legs[0]
		}

		for _, leg := range legs {
			if err := r.adjustBalance(ctx, tx, leg.wallet.ID, leg.delta); err != nil {
				return err
			}
			txn, err := r.insertTransaction(ctx, tx, leg.wallet, leg.delta, entity.TransactionTypeTransfer, &result.ReferenceID)
			if err != nil {
				return err
			}
			*leg.out = txn
		}

		if result.FromBalance, err = readBalance(ctx, tx, from.ID); err != nil {
			return err
		}
		result.ToBalance, err = readBalance(ctx, tx, to.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *WalletRepository) ListTransactions(ctx context.Context, userID string, limit, offset int32) ([]*entity.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, wallet_id, amount, type, status, reference_id, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]*entity.Transaction, 0)
	for rows.Next() {
		var (
			txn         entity.Transaction
			referenceID sql.NullString
		)
		if err := rows.Scan(
			&txn.ID,
			&txn.UserID,
			&txn.WalletID,
			&txn.Amount,
			&txn.Type,
			&txn.Status,
			&referenceID,
			&txn.CreatedAt,
		); err != nil {
			return nil, err
		}
		txn.ReferenceID = stringPtrFromNull(referenceID)
		txn.CreatedAt = txn.CreatedAt.UTC()
		transactions = append(transactions, &txn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}

// FindTransactionByReference returns the ledger line holding the
// (wallet, type, reference) slot for the user's wallet, or nil.
func (r *WalletRepository) FindTransactionByReference(
	ctx context.Context,
	userID string,
	txnType entity.TransactionType,
	referenceID string,
) (*entity.Transaction, error) {
	var (
		txn       entity.Transaction
		reference sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT t.id, t.user_id, t.wallet_id, t.amount, t.type, t.status, t.reference_id, t.created_at
		FROM transactions t
		JOIN wallets w ON w.id = t.wallet_id
		WHERE w.user_id = ? AND t.type = ? AND t.reference_id = ?
	`, userID, txnType, referenceID).Scan(
		&txn.ID,
		&txn.UserID,
		&txn.WalletID,
		&txn.Amount,
		&txn.Type,
		&txn.Status,
		&reference,
		&txn.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	txn.ReferenceID = stringPtrFromNull(reference)
	txn.CreatedAt = txn.CreatedAt.UTC()
	return &txn, nil
}

func (r *WalletRepository) adjustBalance(ctx context.Context, tx DBTX, walletID string, delta int64) error {
	now := r.now().UTC()

	var (
		result sql.Result
		err    error
	)
	if delta < 0 {
		result, err = tx.ExecContext(ctx, `
			UPDATE wallets SET balance = balance + ?, updated_at = ?
			WHERE id = ? AND balance >= ?
		`, delta, now, walletID, -delta)
	} else {
		result, err = tx.ExecContext(ctx, `
			UPDATE wallets SET balance = balance + ?, updated_at = ?
			WHERE id = ?
		`, delta, now, walletID)
	}
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if delta < 0 {
			return ErrInsufficientFunds
		}
		return ErrWalletNotFound
	}
	return nil
}

func (r *WalletRepository) insertTransaction(
	ctx context.Context,
	tx DBTX,
	wallet *entity.Wallet,
	amount int64,
	txnType entity.TransactionType,
	referenceID *string,
) (*entity.Transaction, error) {
	txn := &entity.Transaction{
		ID:          uuid.NewString(),
		UserID:      wallet.UserID,
		WalletID:    wallet.ID,
		Amount:      amount,
		Type:        txnType,
		Status:      entity.TransactionStatusCompleted,
		ReferenceID: referenceID,
		CreatedAt:   r.now().UTC(),
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, wallet_id, amount, type, status, reference_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, txn.ID, txn.UserID, txn.WalletID, txn.Amount, txn.Type, txn.Status, nullableStringValue(txn.ReferenceID), txn.CreatedAt)
	if err != nil {
		if isDuplicateEntryError(err) {
			return nil, ErrDuplicateReference
		}
		return nil, err
	}
	return txn, nil
}

func findWallet(ctx context.Context, db DBTX, userID string) (*entity.Wallet, error) {
	wallet := &entity.Wallet{}
	err := db.QueryRowContext(ctx, `
		SELECT id, user_id, balance, created_at, updated_at
		FROM wallets
		WHERE user_id = ?
	`, userID).Scan(&wallet.ID, &wallet.UserID, &wallet.Balance, &wallet.CreatedAt, &wallet.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	wallet.CreatedAt = wallet.CreatedAt.UTC()
	wallet.UpdatedAt = wallet.UpdatedAt.UTC()
	return wallet, nil
}

func readBalance(ctx context.Context, db DBTX, walletID string) (int64, error) {
	var balance int64
	err := db.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE id = ?`, walletID).Scan(&balance)
	return balance, err
}
