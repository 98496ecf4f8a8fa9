package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store persists transaction records.
type Store interface {
	Create(ctx context.Context, tx Transaction) (Transaction, error)
	FindByTransactionID(ctx context.Context, transactionID string) (Transaction, error)
	UpdateStatus(ctx context.Context, id string, status Status) (Transaction, error)
	ListByWallet(ctx context.Context, walletID string) ([]Transaction, error)
}

// PostgresStore persists transactions in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed transaction store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const txColumns = `id, transaction_id, from_wallet_id, to_wallet_id, amount::text, description, created_at, status`

// Create inserts a transaction record. A unique index on transaction_id turns
// concurrent duplicates into ErrDuplicateID.
func (s *PostgresStore) Create(ctx context.Context, tx Transaction) (Transaction, error) {
	id, err := uuid.Parse(tx.ID)
	if err != nil {
		return Transaction{}, err
	}
	transactionID, err := uuid.Parse(tx.TransactionID)
	if err != nil {
		return Transaction{}, err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO transactions (id, transaction_id, from_wallet_id, to_wallet_id, amount, description, created_at, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, transactionID, tx.FromWalletID, tx.ToWalletID, tx.Amount.String(), tx.Description, tx.Timestamp.UTC(), string(tx.Status))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Transaction{}, ErrDuplicateID
		}
		return Transaction{}, err
	}
	return tx, nil
}

// FindByTransactionID fetches a record by its idempotency key.
func (s *PostgresStore) FindByTransactionID(ctx context.Context, transactionID string) (Transaction, error) {
	txID, err := uuid.Parse(transactionID)
	if err != nil {
		return Transaction{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE transaction_id = $1`, txID)
	return scanTransaction(row)
}

// UpdateStatus performs a legal status transition. The WHERE clause only
// matches rows still in a status that may transition to the target, so a
// terminal record is never rewritten.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status) (Transaction, error) {
	if status != StatusCompleted && status != StatusFailed {
		return Transaction{}, ErrInvalidTransition
	}
	txID, err := uuid.Parse(id)
	if err != nil {
		return Transaction{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `UPDATE transactions SET status = $1
        WHERE id = $2 AND status = $3 RETURNING `+txColumns,
		string(status), txID, string(StatusPending))
	tx, err := scanTransaction(row)
	if errors.Is(err, ErrNotFound) {
		// Distinguish a missing row from an illegal transition.
		if _, lookupErr := s.findByID(ctx, txID); lookupErr == nil {
			return Transaction{}, ErrInvalidTransition
		}
		return Transaction{}, ErrNotFound
	}
	return tx, err
}

// ListByWallet returns all transactions that touch the wallet, newest first.
func (s *PostgresStore) ListByWallet(ctx context.Context, walletID string) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `SELECT `+txColumns+` FROM transactions
        WHERE from_wallet_id = $1 OR to_wallet_id = $1 ORDER BY created_at DESC`, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func (s *PostgresStore) findByID(ctx context.Context, id uuid.UUID) (Transaction, error) {
	row := s.db.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var (
		tx        Transaction
		id        uuid.UUID
		txID      uuid.UUID
		amount    string
		createdAt time.Time
		status    string
	)
	if err := row.Scan(&id, &txID, &tx.FromWalletID, &tx.ToWalletID, &amount, &tx.Description, &createdAt, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return Transaction{}, err
	}
	tx.ID = id.String()
	tx.TransactionID = txID.String()
	tx.Amount = value
	tx.Timestamp = createdAt.UTC()
	tx.Status = Status(status)
	return tx, nil
}
