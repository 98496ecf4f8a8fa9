package wallet

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates the wallet does not exist.
	ErrNotFound = errors.New("wallet not found")

	// ErrIBANTaken indicates the IBAN is already registered to another wallet.
	ErrIBANTaken = errors.New("iban already registered")

	// ErrVersionConflict indicates a conditional balance update lost a race and
	// the caller must reload and retry.
	ErrVersionConflict = errors.New("wallet version conflict")
)

// Wallet is a stored-value account owned by a single user. Balance is an exact
// decimal and is mutated only through Repository.UpdateBalances; every committed
// balance write bumps Version.
type Wallet struct {
	ID        string
	OwnerID   string
	IBAN      string
	Name      string
	Balance   decimal.Decimal
	Version   int64
	CreatedAt time.Time
}
