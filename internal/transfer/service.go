// Package transfer orchestrates wallet-to-wallet fund transfers: request
// validation, idempotency, the ledger mutation, and the durable transaction
// record with its status lifecycle.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/walletgrid/walletgrid/internal/ledger"
	"github.com/walletgrid/walletgrid/internal/notification"
	"github.com/walletgrid/walletgrid/internal/transaction"
	"github.com/walletgrid/walletgrid/internal/wallet"
)

// ErrTransferInFlight indicates a transfer with the same transaction id is
// still pending, so the duplicate request is rejected rather than replayed.
var ErrTransferInFlight = errors.New("transfer with this transaction id is in flight")

// Service validates transfer requests, drives the ledger, and owns all
// transaction status transitions.
type Service struct {
	wallets  *wallet.Service
	ledger   *ledger.Ledger
	store    transaction.Store
	notifier notification.Notifier
}

// NewService constructs a transfer service.
func NewService(wallets *wallet.Service, ledger *ledger.Ledger, store transaction.Store, notifier notification.Notifier) *Service {
	return &Service{wallets: wallets, ledger: ledger, store: store, notifier: notifier}
}

// Request captures the data needed to move funds between wallets. Either the
// wallet id or the account (IBAN) may identify each side. TransactionID is an
// optional caller-supplied idempotency key; one is generated when absent.
type Request struct {
	TransactionID string
	FromWalletID  string
	FromAccount   string
	ToWalletID    string
	ToAccount     string
	Amount        decimal.Decimal
	Description   string
}

// CreateTransaction runs one transfer end to end and resolves the record to a
// terminal status before returning. Expected domain failures come back as a
// failed CommandResult with a nil error; a non-nil error means the
// infrastructure could not complete the request.
func (s *Service) CreateTransaction(ctx context.Context, req Request) (CommandResult, error) {
	if !req.Amount.IsPositive() {
		return CommandResult{Success: false, Message: msgInvalidAmount}, nil
	}

	from, found, err := s.resolveWallet(ctx, req.FromWalletID, req.FromAccount)
	if err != nil {
		return CommandResult{}, err
	}
	if !found {
		return CommandResult{Success: false, Message: msgSourceNotFound}, nil
	}
	to, found, err := s.resolveWallet(ctx, req.ToWalletID, req.ToAccount)
	if err != nil {
		return CommandResult{}, err
	}
	if !found {
		return CommandResult{Success: false, Message: msgTargetNotFound}, nil
	}

	if from.ID == to.ID {
		return CommandResult{Success: false, Message: msgSameWallet}, nil
	}

	txID := req.TransactionID
	if txID == "" {
		txID = uuid.New().String()
	} else {
		existing, err := s.store.FindByTransactionID(ctx, txID)
		switch {
		case err == nil:
			return s.replay(existing)
		case !errors.Is(err, transaction.ErrNotFound):
			return CommandResult{}, fmt.Errorf("lookup transaction %s: %w", txID, err)
		}
	}

	record, err := s.store.Create(ctx, transaction.Transaction{
		ID:            uuid.New().String(),
		TransactionID: txID,
		FromWalletID:  from.ID,
		ToWalletID:    to.ID,
		Amount:        req.Amount,
		Description:   req.Description,
		Timestamp:     time.Now().UTC(),
		Status:        transaction.StatusPending,
	})
	if errors.Is(err, transaction.ErrDuplicateID) {
		// Lost a race against a concurrent request with the same key.
		existing, lookupErr := s.store.FindByTransactionID(ctx, txID)
		if lookupErr != nil {
			return CommandResult{}, fmt.Errorf("lookup duplicate transaction %s: %w", txID, lookupErr)
		}
		return s.replay(existing)
	}
	if err != nil {
		return CommandResult{}, fmt.Errorf("create transaction record: %w", err)
	}

	_, updatedTo, err := s.ledger.Apply(ctx, from.ID, to.ID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return s.fail(ctx, record, msgInsufficientFunds)
		case errors.Is(err, wallet.ErrNotFound):
			return s.fail(ctx, record, msgWalletDisappeared)
		case errors.Is(err, ledger.ErrRetriesExhausted):
			if _, markErr := s.store.UpdateStatus(ctx, record.ID, transaction.StatusFailed); markErr != nil {
				return CommandResult{}, fmt.Errorf("mark transaction failed after conflict: %w", markErr)
			}
			return CommandResult{}, fmt.Errorf("transfer %s: %w", txID, err)
		default:
			if _, markErr := s.store.UpdateStatus(ctx, record.ID, transaction.StatusFailed); markErr != nil {
				return CommandResult{}, fmt.Errorf("mark transaction failed: %w (apply: %v)", markErr, err)
			}
			return CommandResult{}, fmt.Errorf("apply transfer %s: %w", txID, err)
		}
	}

	if _, err := s.store.UpdateStatus(ctx, record.ID, transaction.StatusCompleted); err != nil {
		// Balances moved but the record is stuck PENDING; reconciliation owns it.
		return CommandResult{}, fmt.Errorf("mark transaction completed: %w", err)
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferCompleted,
			Destination: updatedTo.OwnerID,
			Body:        fmt.Sprintf("You received %s on wallet %s", req.Amount.String(), updatedTo.ID),
		})
	}

	return CommandResult{Success: true, Message: msgCompleted, TransactionID: txID}, nil
}

// History returns the transaction records touching a wallet, newest first.
func (s *Service) History(ctx context.Context, walletID string) ([]transaction.Transaction, error) {
	if _, err := s.wallets.Get(ctx, walletID); err != nil {
		return nil, err
	}
	return s.store.ListByWallet(ctx, walletID)
}

// resolveWallet loads a wallet by id when given, otherwise by account number.
// A missing wallet is reported through the found flag, not an error.
func (s *Service) resolveWallet(ctx context.Context, id, account string) (wallet.Wallet, bool, error) {
	var (
		w   wallet.Wallet
		err error
	)
	switch {
	case id != "":
		w, err = s.wallets.Get(ctx, id)
	case account != "":
		w, err = s.wallets.GetByIBAN(ctx, account)
	default:
		return wallet.Wallet{}, false, nil
	}
	if errors.Is(err, wallet.ErrNotFound) {
		return wallet.Wallet{}, false, nil
	}
	if err != nil {
		return wallet.Wallet{}, false, fmt.Errorf("resolve wallet: %w", err)
	}
	return w, true, nil
}

// replay reconstructs the prior outcome for a terminal record; a still-pending
// record means a concurrent duplicate and is rejected with a conflict.
func (s *Service) replay(existing transaction.Transaction) (CommandResult, error) {
	switch existing.Status {
	case transaction.StatusCompleted:
		return CommandResult{Success: true, Message: msgCompleted, TransactionID: existing.TransactionID}, nil
	case transaction.StatusFailed:
		return CommandResult{Success: false, Message: msgTransferFailed, TransactionID: existing.TransactionID}, nil
	default:
		return CommandResult{}, ErrTransferInFlight
	}
}

// fail marks the record FAILED and reports the domain failure to the caller.
func (s *Service) fail(ctx context.Context, record transaction.Transaction, msg string) (CommandResult, error) {
	if _, err := s.store.UpdateStatus(ctx, record.ID, transaction.StatusFailed); err != nil {
		return CommandResult{}, fmt.Errorf("mark transaction failed: %w", err)
	}
	return CommandResult{Success: false, Message: msg, TransactionID: record.TransactionID}, nil
}
