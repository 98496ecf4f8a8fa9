package wallet

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

// Repository persists wallet records.
//
// UpdateBalances is the only write path for balances: it commits both wallets'
// balances in one atomic unit iff each wallet's Version still matches the
// stored row, and returns ErrVersionConflict otherwise.
type Repository interface {
	Create(ctx context.Context, wallet Wallet) error
	Get(ctx context.Context, id string) (Wallet, error)
	GetByIBAN(ctx context.Context, iban string) (Wallet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Wallet, error)
	Rename(ctx context.Context, id, name string) (Wallet, error)
	UpdateBalances(ctx context.Context, from, to Wallet) (Wallet, Wallet, error)
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const walletColumns = `id, owner_id, iban, name, balance::text, version, created_at`

// Create inserts a wallet record.
func (r *PostgresRepository) Create(ctx context.Context, wallet Wallet) error {
	walletID, err := uuid.Parse(wallet.ID)
	if err != nil {
		return err
	}
	ownerID, err := uuid.Parse(wallet.OwnerID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO wallets (id, owner_id, iban, name, balance, version, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		walletID, ownerID, wallet.IBAN, wallet.Name, wallet.Balance.String(), wallet.Version, wallet.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrIBANTaken
	}
	return err
}

// Get fetches a wallet by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Wallet, error) {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, walletID)
	return scanWallet(row)
}

// GetByIBAN fetches a wallet by its account number.
func (r *PostgresRepository) GetByIBAN(ctx context.Context, iban string) (Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE iban = $1`, iban)
	return scanWallet(row)
}

// ListByOwner returns all wallets belonging to a user.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]Wallet, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+walletColumns+` FROM wallets WHERE owner_id = $1 ORDER BY created_at`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// Rename updates the display name only.
func (r *PostgresRepository) Rename(ctx context.Context, id, name string) (Wallet, error) {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE wallets SET name = $1 WHERE id = $2`, name, walletID)
	if err != nil {
		return Wallet{}, err
	}
	if cmd.RowsAffected() == 0 {
		return Wallet{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

// UpdateBalances commits both balance writes in a single transaction. Rows are
// updated in ascending wallet id order so two transfers over the same pair
// cannot deadlock. Either version check failing aborts the whole transaction.
func (r *PostgresRepository) UpdateBalances(ctx context.Context, from, to Wallet) (Wallet, Wallet, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Wallet{}, Wallet{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	ordered := []*Wallet{&from, &to}
	if to.ID < from.ID {
		ordered[0], ordered[1] = &to, &from
	}

	for _, w := range ordered {
		walletID, err := uuid.Parse(w.ID)
		if err != nil {
			return Wallet{}, Wallet{}, ErrNotFound
		}
		cmd, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1, version = version + 1
            WHERE id = $2 AND version = $3`, w.Balance.String(), walletID, w.Version)
		if err != nil {
			return Wallet{}, Wallet{}, err
		}
		if cmd.RowsAffected() == 0 {
			return Wallet{}, Wallet{}, ErrVersionConflict
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Wallet{}, Wallet{}, err
	}

	from.Version++
	to.Version++
	return from, to, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (Wallet, error) {
	var (
		w       Wallet
		id      uuid.UUID
		ownerID uuid.UUID
		balance string
		created time.Time
	)
	if err := row.Scan(&id, &ownerID, &w.IBAN, &w.Name, &balance, &w.Version, &created); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	amount, err := decimal.NewFromString(balance)
	if err != nil {
		return Wallet{}, err
	}
	w.ID = id.String()
	w.OwnerID = ownerID.String()
	w.Balance = amount
	w.CreatedAt = created.UTC()
	return w, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
