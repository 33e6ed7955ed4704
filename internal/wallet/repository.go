package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrUserNotFound indicates no user record matched the lookup key.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateReference indicates a transaction with the provided provider
	// reference already exists for the user and the operation should be
	// treated as an idempotent replay.
	ErrDuplicateReference = errors.New("duplicate reference")

	// ErrInsufficientFunds occurs when the wallet lacks available balance to
	// cover a requested debit.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Entry captures the data required to post a balance mutation.
type Entry struct {
	Amount      decimal.Decimal
	Description string
	Reference   string
}

// MutationResult captures the outcome of a balance mutation.
type MutationResult struct {
	TransactionID string
	Balance       decimal.Decimal
}

// Repository persists users and their wallet transaction history.
type Repository interface {
	Get(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByRecipientCode(ctx context.Context, code string) (User, error)
	SetRecipientCode(ctx context.Context, id, code string) error

	// Credit applies the balance increment and appends the transaction record
	// as a single atomic unit. A reference already recorded for the user
	// yields ErrDuplicateReference with the current balance and no mutation.
	Credit(ctx context.Context, userID string, entry Entry) (MutationResult, error)

	// Debit mirrors Credit for withdrawals and additionally guards against
	// overdrawing the wallet.
	Debit(ctx context.Context, userID string, entry Entry) (MutationResult, error)

	Transactions(ctx context.Context, userID string) ([]Transaction, error)
}

// PostgresRepository stores users and transactions in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, COALESCE(paystack_recipient_code, ''), wallet_balance::text, created_at`

// Get fetches a user by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrUserNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

// FindByEmail fetches at most one user by email. When more than one record
// shares the email only the oldest is returned.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 ORDER BY created_at LIMIT 1`, email)
	return scanUser(row)
}

// FindByRecipientCode fetches at most one user by provider recipient code.
func (r *PostgresRepository) FindByRecipientCode(ctx context.Context, code string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE paystack_recipient_code = $1 ORDER BY created_at LIMIT 1`, code)
	return scanUser(row)
}

// SetRecipientCode stores the provider recipient code on the user record.
func (r *PostgresRepository) SetRecipientCode(ctx context.Context, id, code string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrUserNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET paystack_recipient_code = $1 WHERE id = $2`, code, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Credit increments the wallet balance and appends a credit transaction in a
// single database transaction so a crash cannot leave a balance update
// without its audit entry.
func (r *PostgresRepository) Credit(ctx context.Context, userID string, entry Entry) (MutationResult, error) {
	if !entry.Amount.IsPositive() {
		return MutationResult{}, fmt.Errorf("amount must be positive")
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return MutationResult{}, ErrUserNotFound
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return MutationResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// Lock the user row before the dedup check so concurrent deliveries of
	// the same reference serialize here instead of both passing the check.
	current, err := lockBalance(ctx, tx, id)
	if err != nil {
		return MutationResult{}, err
	}

	if txID, err := existingReference(ctx, tx, id, entry.Reference); err == nil {
		return MutationResult{TransactionID: txID, Balance: current}, ErrDuplicateReference
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return MutationResult{}, err
	}

	var balanceText string
	err = tx.QueryRow(ctx, `UPDATE users SET wallet_balance = wallet_balance + $1::numeric
        WHERE id = $2 RETURNING wallet_balance::text`, entry.Amount.String(), id).Scan(&balanceText)
	if err != nil {
		return MutationResult{}, err
	}

	txID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO wallet_transactions (id, user_id, type, amount, description, reference, status)
        VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)`,
		txID, id, TypeCredit, entry.Amount.String(), entry.Description, entry.Reference, StatusCompleted); err != nil {
		return MutationResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return MutationResult{}, err
	}

	balance, err := decimal.NewFromString(balanceText)
	if err != nil {
		return MutationResult{}, fmt.Errorf("parse balance: %w", err)
	}

	return MutationResult{TransactionID: txID.String(), Balance: balance}, nil
}

// Debit decrements the wallet balance and appends a debit transaction in a
// single database transaction, refusing to overdraw.
func (r *PostgresRepository) Debit(ctx context.Context, userID string, entry Entry) (MutationResult, error) {
	if !entry.Amount.IsPositive() {
		return MutationResult{}, fmt.Errorf("amount must be positive")
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return MutationResult{}, ErrUserNotFound
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return MutationResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	current, err := lockBalance(ctx, tx, id)
	if err != nil {
		return MutationResult{}, err
	}

	if txID, err := existingReference(ctx, tx, id, entry.Reference); err == nil {
		return MutationResult{TransactionID: txID, Balance: current}, ErrDuplicateReference
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return MutationResult{}, err
	}

	if current.LessThan(entry.Amount) {
		return MutationResult{}, ErrInsufficientFunds
	}

	var balanceText string
	err = tx.QueryRow(ctx, `UPDATE users SET wallet_balance = wallet_balance - $1::numeric
        WHERE id = $2 RETURNING wallet_balance::text`, entry.Amount.String(), id).Scan(&balanceText)
	if err != nil {
		return MutationResult{}, err
	}

	txID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO wallet_transactions (id, user_id, type, amount, description, reference, status)
        VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)`,
		txID, id, TypeDebit, entry.Amount.String(), entry.Description, entry.Reference, StatusCompleted); err != nil {
		return MutationResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return MutationResult{}, err
	}

	balance, err := decimal.NewFromString(balanceText)
	if err != nil {
		return MutationResult{}, fmt.Errorf("parse balance: %w", err)
	}

	return MutationResult{TransactionID: txID.String(), Balance: balance}, nil
}

// Transactions lists a user's wallet history, newest first.
func (r *PostgresRepository) Transactions(ctx context.Context, userID string) ([]Transaction, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	rows, err := r.db.Query(ctx, `SELECT id, user_id, type, amount::text, description, reference, status, created_at
        FROM wallet_transactions WHERE user_id = $1 ORDER BY created_at DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Transaction
	for rows.Next() {
		var (
			txID       uuid.UUID
			uid        uuid.UUID
			amountText string
			createdAt  time.Time
			tr         Transaction
		)
		if err := rows.Scan(&txID, &uid, &tr.Type, &amountText, &tr.Description, &tr.Reference, &tr.Status, &createdAt); err != nil {
			return nil, err
		}
		tr.ID = txID.String()
		tr.UserID = uid.String()
		tr.CreatedAt = createdAt.UTC()
		tr.Amount, err = decimal.NewFromString(amountText)
		if err != nil {
			return nil, fmt.Errorf("parse amount: %w", err)
		}
		result = append(result, tr)
	}
	return result, rows.Err()
}

// lockBalance takes the row lock on the user and returns the current balance.
func lockBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (decimal.Decimal, error) {
	var balanceText string
	if err := tx.QueryRow(ctx, `SELECT wallet_balance::text FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&balanceText); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Decimal{}, ErrUserNotFound
		}
		return decimal.Decimal{}, err
	}
	balance, err := decimal.NewFromString(balanceText)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse balance: %w", err)
	}
	return balance, nil
}

func existingReference(ctx context.Context, tx pgx.Tx, userID uuid.UUID, reference string) (string, error) {
	const query = `SELECT id FROM wallet_transactions
        WHERE user_id = $1 AND reference = $2
        LIMIT 1`
	var txID uuid.UUID
	if err := tx.QueryRow(ctx, query, userID, reference).Scan(&txID); err != nil {
		return "", err
	}
	return txID.String(), nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id          uuid.UUID
		balanceText string
		createdAt   time.Time
		user        User
	)
	if err := row.Scan(&id, &user.Email, &user.RecipientCode, &balanceText, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	user.ID = id.String()
	user.CreatedAt = createdAt.UTC()
	balance, err := decimal.NewFromString(balanceText)
	if err != nil {
		return User{}, fmt.Errorf("parse balance: %w", err)
	}
	user.Balance = balance
	return user, nil
}
