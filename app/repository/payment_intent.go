package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-coinwallet/app/entity"
)

var (
	ErrPaymentIntentNotFound      = errors.New("payment intent not found")
	ErrPaymentIntentAlreadyExists = errors.New("payment intent already exists")
)

const paymentIntentColumns = `
	id, amount, currency, status, description, metadata_json, qr_code_url, user_id, paid_at,
	credit_status, credit_attempts, credit_last_error, created_at, updated_at
`

type PaymentIntentRepository struct {
	db DBTX
}

func NewPaymentIntentRepository(db DBTX) *PaymentIntentRepository {
	return &PaymentIntentRepository{db: db}
}

func (r *PaymentIntentRepository) Create(ctx context.Context, intent *entity.PaymentIntent) error {
	metadataJSON, err := serializeMetadata(intent.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO payment_intents (` + paymentIntentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		intent.ID,
		intent.Amount,
		intent.Currency,
		intent.Status,
		nullableStringValue(intent.Description),
		metadataJSON,
		nullableStringValue(intent.QRCodeURL),
		nullableStringValue(intent.UserID),
		nullableTimeValue(intent.PaidAt),
		intent.CreditStatus,
		intent.CreditAttempts,
		nullableStringValue(intent.CreditLastError),
		intent.CreatedAt.UTC(),
		intent.UpdatedAt.UTC(),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentIntentAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PaymentIntentRepository) FindByID(ctx context.Context, id string) (*entity.PaymentIntent, error) {
	query := `SELECT ` + paymentIntentColumns + ` FROM payment_intents WHERE id = ?`

	intent := &entity.PaymentIntent{}
	if err := scanPaymentIntent(r.db.QueryRowContext(ctx, query, id), intent); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return intent, nil
}

// TransitionStatus moves a non-terminal record to status `to` and reports
// whether this call performed the move. Entering SUCCEEDED also stamps paid_at
// and the initial credit status in the same statement, so only the winning
// caller ever observes the first transition.
func (r *PaymentIntentRepository) TransitionStatus(
	ctx context.Context,
	id string,
	to entity.PaymentStatus,
	creditStatus entity.CreditStatus,
	now time.Time,
) (bool, error) {
	now = now.UTC()
	terminal := entity.TerminalPaymentStatuses

	var (
		result sql.Result
		err    error
	)
	if to == entity.PaymentStatusSucceeded {
		result, err = r.db.ExecContext(ctx, `
			UPDATE payment_intents
			SET status = ?, paid_at = ?, credit_status = ?, updated_at = ?
			WHERE id = ? AND status NOT IN (?, ?, ?) AND status <> ?
		`, to, now, creditStatus, now, id, terminal[0], terminal[1], terminal[2], to)
	} else {
		result, err = r.db.ExecContext(ctx, `
			UPDATE payment_intents
			SET status = ?, updated_at = ?
			WHERE id = ? AND status NOT IN (?, ?, ?) AND status <> ?
		`, to, now, id, terminal[0], terminal[1], terminal[2], to)
	}
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Touch bumps updated_at so the poll loop rotates through long-lived records.
func (r *PaymentIntentRepository) Touch(ctx context.Context, id string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE payment_intents SET updated_at = ? WHERE id = ?`, now.UTC(), id)
	return err
}

func (r *PaymentIntentRepository) UpdateCreditOutcome(
	ctx context.Context,
	id string,
	status entity.CreditStatus,
	attempts int32,
	lastError *string,
	now time.Time,
) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payment_intents
		SET credit_status = ?, credit_attempts = ?, credit_last_error = ?, updated_at = ?
		WHERE id = ? AND credit_status <> ?
	`, status, attempts, nullableStringValue(lastError), now.UTC(), id, entity.CreditStatusDone)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		existing, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrPaymentIntentNotFound
		}
	}
	return nil
}

func (r *PaymentIntentRepository) ListNonTerminal(ctx context.Context, limit int32) ([]*entity.PaymentIntent, error) {
	terminal := entity.TerminalPaymentStatuses
	query := `
		SELECT ` + paymentIntentColumns + `
		FROM payment_intents
		WHERE status NOT IN (?, ?, ?)
		ORDER BY updated_at ASC
		LIMIT ?
	`
	return r.list(ctx, query, terminal[0], terminal[1], terminal[2], limit)
}

func (r *PaymentIntentRepository) ListPendingCredits(ctx context.Context, limit int32) ([]*entity.PaymentIntent, error) {
	query := `
		SELECT ` + paymentIntentColumns + `
		FROM payment_intents
		WHERE status = ? AND credit_status = ?
		ORDER BY updated_at ASC
		LIMIT ?
	`
	return r.list(ctx, query, entity.PaymentStatusSucceeded, entity.CreditStatusPending, limit)
}

// ListExpiredPending returns non-terminal intents created before cutoff,
// oldest first.
func (r *PaymentIntentRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.PaymentIntent, error) {
	terminal := entity.TerminalPaymentStatuses
	query := `
		SELECT ` + paymentIntentColumns + `
		FROM payment_intents
		WHERE status NOT IN (?, ?, ?) AND created_at < ?
		ORDER BY created_at ASC
		LIMIT ?
	`
	return r.list(ctx, query, terminal[0], terminal[1], terminal[2], cutoff.UTC(), limit)
}

func (r *PaymentIntentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.PaymentIntent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	intents := make([]*entity.PaymentIntent, 0)
	for rows.Next() {
		item := &entity.PaymentIntent{}
		if err := scanPaymentIntent(rows, item); err != nil {
			return nil, err
		}
		intents = append(intents, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return intents, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPaymentIntent(row rowScanner, intent *entity.PaymentIntent) error {
	var (
		description     sql.NullString
		metadataJSON    string
		qrCodeURL       sql.NullString
		userID          sql.NullString
		paidAt          sql.NullTime
		creditLastError sql.NullString
	)

	if err := row.Scan(
		&intent.ID,
		&intent.Amount,
		&intent.Currency,
		&intent.Status,
		&description,
		&metadataJSON,
		&qrCodeURL,
		&userID,
		&paidAt,
		&intent.CreditStatus,
		&intent.CreditAttempts,
		&creditLastError,
		&intent.CreatedAt,
		&intent.UpdatedAt,
	); err != nil {
		return err
	}

	metadata, err := parseMetadata(metadataJSON)
	if err != nil {
		return err
	}

	intent.Description = stringPtrFromNull(description)
	intent.Metadata = metadata
	intent.QRCodeURL = stringPtrFromNull(qrCodeURL)
	intent.UserID = stringPtrFromNull(userID)
	intent.PaidAt = timePtrFromNull(paidAt)
	intent.CreditLastError = stringPtrFromNull(creditLastError)
	intent.CreatedAt = intent.CreatedAt.UTC()
	intent.UpdatedAt = intent.UpdatedAt.UTC()
	return nil
}
