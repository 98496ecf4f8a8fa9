// Package ledger applies balance-preserving mutations to pairs of wallets.
// It is the sole writer of wallet balances.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/walletgrid/walletgrid/internal/wallet"
)

var (
	// ErrInsufficientFunds occurs when the source wallet lacks available balance
	// to cover the requested amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrRetriesExhausted occurs when the conditional balance update kept losing
	// version races and no attempts remain.
	ErrRetriesExhausted = errors.New("balance update retries exhausted")
)

const (
	defaultMaxAttempts = 5
	defaultRetryDelay  = 10 * time.Millisecond
)

// Ledger moves funds between two wallets as a single logical unit. Both
// balance writes become durable together or not at all; lost updates are
// prevented by the wallet store's version checks with bounded retry here.
type Ledger struct {
	wallets     wallet.Repository
	maxAttempts int
	retryDelay  time.Duration
}

// Option adjusts ledger retry behavior.
type Option func(*Ledger)

// WithMaxAttempts bounds the number of optimistic-concurrency attempts.
func WithMaxAttempts(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the base delay between conflicting attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.retryDelay = d
		}
	}
}

// New builds a ledger over the given wallet store.
func New(wallets wallet.Repository, opts ...Option) *Ledger {
	l := &Ledger{
		wallets:     wallets,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Apply debits amount from the source wallet and credits it to the destination
// wallet. Wallets are re-read fresh on every attempt so the funds check always
// runs against current balances. Returns both updated wallets on success.
func (l *Ledger) Apply(ctx context.Context, fromID, toID string, amount decimal.Decimal) (wallet.Wallet, wallet.Wallet, error) {
	if !amount.IsPositive() {
		return wallet.Wallet{}, wallet.Wallet{}, fmt.Errorf("amount must be positive")
	}
	if fromID == toID {
		return wallet.Wallet{}, wallet.Wallet{}, fmt.Errorf("source and destination wallets must differ")
	}

	for attempt := 0; attempt < l.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := l.wait(ctx, attempt); err != nil {
				return wallet.Wallet{}, wallet.Wallet{}, err
			}
		}

		from, err := l.wallets.Get(ctx, fromID)
		if err != nil {
			return wallet.Wallet{}, wallet.Wallet{}, err
		}
		to, err := l.wallets.Get(ctx, toID)
		if err != nil {
			return wallet.Wallet{}, wallet.Wallet{}, err
		}

		if from.Balance.LessThan(amount) {
			return wallet.Wallet{}, wallet.Wallet{}, ErrInsufficientFunds
		}

		from.Balance = from.Balance.Sub(amount)
		to.Balance = to.Balance.Add(amount)

		updatedFrom, updatedTo, err := l.wallets.UpdateBalances(ctx, from, to)
		if errors.Is(err, wallet.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return wallet.Wallet{}, wallet.Wallet{}, err
		}
		return updatedFrom, updatedTo, nil
	}

	return wallet.Wallet{}, wallet.Wallet{}, ErrRetriesExhausted
}

// wait sleeps for a linearly growing backoff or until the context ends.
func (l *Ledger) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(l.retryDelay * time.Duration(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
