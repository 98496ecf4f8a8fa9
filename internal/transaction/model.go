package transaction

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates no transaction matches the lookup.
	ErrNotFound = errors.New("transaction not found")

	// ErrDuplicateID indicates the transaction identifier is already taken.
	ErrDuplicateID = errors.New("duplicate transaction id")

	// ErrInvalidTransition indicates a status change that the state machine
	// forbids, such as leaving a terminal status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Status is the lifecycle state of a transfer record.
//
// Transitions:
//
//	PENDING → COMPLETED | FAILED
//
// COMPLETED and FAILED are terminal. PENDING is a transient internal state;
// the orchestrator resolves it before returning to the caller.
type Status string

const (
	// StatusPending marks a record created before the balance mutation ran.
	StatusPending Status = "PENDING"
	// StatusCompleted marks a record whose balance mutation durably succeeded.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed marks a record whose balance mutation failed.
	StatusFailed Status = "FAILED"
)

// Terminal reports whether the status will never change again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving to next is a legal transition.
func (s Status) CanTransitionTo(next Status) bool {
	if s != StatusPending {
		return false
	}
	return next == StatusCompleted || next == StatusFailed
}

// Transaction is an immutable-once-terminal record of one attempted transfer.
// TransactionID is the caller-facing idempotency key, distinct from the
// storage-assigned ID.
type Transaction struct {
	ID            string
	TransactionID string
	FromWalletID  string
	ToWalletID    string
	Amount        decimal.Decimal
	Description   string
	Timestamp     time.Time
	Status        Status
}
