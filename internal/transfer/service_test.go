package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/walletgrid/walletgrid/internal/ledger"
	"github.com/walletgrid/walletgrid/internal/notification"
	"github.com/walletgrid/walletgrid/internal/transaction"
	"github.com/walletgrid/walletgrid/internal/user"
	"github.com/walletgrid/walletgrid/internal/wallet"
)

type testNotifier struct {
	mu   sync.Mutex
	last notification.Message
	sent int
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = msg
	n.sent++
	return nil
}

type fixture struct {
	users    *user.Service
	wallets  *wallet.Service
	store    transaction.Store
	service  *Service
	notifier *testNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	userRepo := user.NewMemoryRepository()
	walletRepo := wallet.NewMemoryRepository()
	store := transaction.NewMemoryStore()
	walletSvc := wallet.NewService(walletRepo, userRepo)
	notifier := &testNotifier{}
	svc := NewService(walletSvc, ledger.New(walletRepo), store, notifier)
	return &fixture{
		users:    user.NewService(userRepo),
		wallets:  walletSvc,
		store:    store,
		service:  svc,
		notifier: notifier,
	}
}

func (f *fixture) seedWallet(t *testing.T, iban, balance string) wallet.Wallet {
	t.Helper()
	owner, err := f.users.Register(context.Background(), user.RegisterInput{
		Username: "owner-" + iban,
		Password: "long enough password",
	})
	if err != nil {
		t.Fatalf("register owner: %v", err)
	}
	w, err := f.wallets.Create(context.Background(), wallet.CreateInput{
		OwnerID:        owner.ID,
		IBAN:           iban,
		Name:           "wallet " + iban,
		OpeningBalance: decimal.RequireFromString(balance),
	})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return w
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	w, err := f.wallets.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	return w.Balance
}

func TestCreateTransactionScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.seedWallet(t, "TR-A", "1000.00")
	b := f.seedWallet(t, "TR-B", "500.00")

	result, err := f.service.CreateTransaction(ctx, Request{
		FromWalletID: a.ID,
		ToWalletID:   b.ID,
		Amount:       decimal.RequireFromString("100.00"),
		Description:  "rent",
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.TransactionID == "" {
		t.Fatal("expected a generated transaction id")
	}
	if !f.balance(t, a.ID).Equal(decimal.RequireFromString("900.00")) {
		t.Fatalf("expected A=900.00, got %s", f.balance(t, a.ID))
	}
	if !f.balance(t, b.ID).Equal(decimal.RequireFromString("600.00")) {
		t.Fatalf("expected B=600.00, got %s", f.balance(t, b.ID))
	}

	record, err := f.store.FindByTransactionID(ctx, result.TransactionID)
	if err != nil {
		t.Fatalf("find record: %v", err)
	}
	if record.Status != transaction.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", record.Status)
	}
	if record.Description != "rent" {
		t.Fatalf("unexpected description %q", record.Description)
	}

	// Second leg: more than A now holds.
	result2, err := f.service.CreateTransaction(ctx, Request{
		FromWalletID: a.ID,
		ToWalletID:   b.ID,
		Amount:       decimal.RequireFromString("2000.00"),
	})
	if err != nil {
		t.Fatalf("second transaction: %v", err)
	}
	if result2.Success {
		t.Fatalf("expected failure, got %+v", result2)
	}
	if result2.Message != msgInsufficientFunds {
		t.Fatalf("unexpected message %q", result2.Message)
	}
	if !f.balance(t, a.ID).Equal(decimal.RequireFromString("900.00")) || !f.balance(t, b.ID).Equal(decimal.RequireFromString("600.00")) {
		t.Fatalf("failed transfer mutated balances: %s / %s", f.balance(t, a.ID), f.balance(t, b.ID))
	}

	failed, err := f.store.FindByTransactionID(ctx, result2.TransactionID)
	if err != nil {
		t.Fatalf("find failed record: %v", err)
	}
	if failed.Status != transaction.StatusFailed {
		t.Fatalf("expected FAILED, got %s", failed.Status)
	}
}

func TestCreateTransactionInvalidAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.seedWallet(t, "TR-A", "100")
	b := f.seedWallet(t, "TR-B", "0")

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-10)} {
		result, err := f.service.CreateTransaction(ctx, Request{
			FromWalletID: a.ID,
			ToWalletID:   b.ID,
			Amount:       amount,
		})
		if err != nil {
			t.Fatalf("create transaction: %v", err)
		}
		if result.Success || result.Message != msgInvalidAmount {
			t.Fatalf("expected invalid amount failure, got %+v", result)
		}
		if result.TransactionID != "" {
			t.Fatal("no record should exist for a rejected request")
		}
	}
}

func TestCreateTransactionSameWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.seedWallet(t, "TR-A", "100")

	result, err := f.service.CreateTransaction(ctx, Request{
		FromWalletID: a.ID,
		ToAccount:    a.IBAN,
		Amount:       decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	if result.Success || result.Message != msgSameWallet {
		t.Fatalf("expected same-wallet rejection, got %+v", result)
	}
}

func TestCreateTransactionWalletNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.seedWallet(t, "TR-A", "100")

	result, err := f.service.CreateTransaction(ctx, Request{
		FromWalletID: a.ID,
		ToWalletID:   uuid.NewString(),
		Amount:       decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	if result.Success || result.Message != msgTargetNotFound {
		t.Fatalf("expected destination not found, got %+v", result)
	}

	result, err = f.service.CreateTransaction(ctx, Request{
		FromAccount: "TR-MISSING",
		ToWalletID:  a.ID,
		Amount:      decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	if result.Success || result.Message != msgSourceNotFound {
		t.Fatalf("expected source not found, got %+v", result)
	}
}

func TestCreateTransactionByAccountNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.seedWallet(t, "TR1234567890123456789012345678", "1000.00")
	b := f.seedWallet(t, "TR9876543210987654321098765432", "500.00")

	result, err := f.service.CreateTransaction(ctx, Request{
		FromAccount: a.IBAN,
		ToAccount:   b.IBAN,
		Amount:      decimal.RequireFromString("250.00"),
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if !f.balance(t, a.ID).Equal(decimal.RequireFromString("750.00")) {
		t.Fatalf("expected A=750.00, got %s", f.balance(t, a.ID))
	}

	if f.notifier.sent != 1 || f.notifier.last.Kind != notification.KindTransferCompleted {
		t.Fatalf("expected one completion notification, got %+v", f.notifier.last)
	}
	if f.notifier.last.Destination != b.OwnerID {
		t.Fatalf("notification sent to %s, want %s", f.notifier.last.Destination, b.OwnerID)
	}
}

func TestCreateTransactionIdempotentReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.seedWallet(t, "TR-A", "1000.00")
	b := f.seedWallet(t, "TR-B", "0")

	req := Request{
		TransactionID: uuid.NewString(),
		FromWalletID:  a.ID,
		ToWalletID:    b.ID,
		Amount:        decimal.RequireFromString("100.00"),
	}

	first, err := f.service.CreateTransaction(ctx, req)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if !first.Success {
		t.Fatalf("expected success, got %+v", first)
	}

	second, err := f.service.CreateTransaction(ctx, req)
	if err != nil {
		t.Fatalf("replay call: %v", err)
	}
	if second != first {
		t.Fatalf("replay differs: %+v vs %+v", second, first)
	}

	// The mutation applied exactly once.
	if !f.balance(t, a.ID).Equal(decimal.RequireFromString("900.00")) {
		t.Fatalf("expected A=900.00 after replay, got %s", f.balance(t, a.ID))
	}
	if !f.balance(t, b.ID).Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("expected B=100.00 after replay, got %s", f.balance(t, b.ID))
	}
}

func TestCreateTransactionReplaysFailedOutcome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.seedWallet(t, "TR-A", "10.00")
	b := f.seedWallet(t, "TR-B", "1000.00")

	req := Request{
		TransactionID: uuid.NewString(),
		FromWalletID:  a.ID,
		ToWalletID:    b.ID,
		Amount:        decimal.RequireFromString("50.00"),
	}

	first, err := f.service.CreateTransaction(ctx, req)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if first.Success {
		t.Fatalf("expected failure, got %+v", first)
	}

	// Top up the source; the replay must still report the original failure
	// rather than re-running the transfer.
	if _, err := f.service.CreateTransaction(ctx, Request{
		FromWalletID: b.ID,
		ToWalletID:   a.ID,
		Amount:       decimal.RequireFromString("500.00"),
	}); err != nil {
		t.Fatalf("top up: %v", err)
	}

	replayed, err := f.service.CreateTransaction(ctx, req)
	if err != nil {
		t.Fatalf("replay call: %v", err)
	}
	if replayed.Success {
		t.Fatalf("replay re-applied a failed transfer: %+v", replayed)
	}
	if replayed.TransactionID != req.TransactionID {
		t.Fatalf("replay lost the transaction id: %+v", replayed)
	}
}

func TestCreateTransactionRejectsInFlightDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.seedWallet(t, "TR-A", "100")
	b := f.seedWallet(t, "TR-B", "0")

	txID := uuid.NewString()
	if _, err := f.store.Create(ctx, transaction.Transaction{
		ID:            uuid.NewString(),
		TransactionID: txID,
		FromWalletID:  a.ID,
		ToWalletID:    b.ID,
		Amount:        decimal.NewFromInt(10),
		Timestamp:     time.Now().UTC(),
		Status:        transaction.StatusPending,
	}); err != nil {
		t.Fatalf("seed pending record: %v", err)
	}

	_, err := f.service.CreateTransaction(ctx, Request{
		TransactionID: txID,
		FromWalletID:  a.ID,
		ToWalletID:    b.ID,
		Amount:        decimal.NewFromInt(10),
	})
	if !errors.Is(err, ErrTransferInFlight) {
		t.Fatalf("expected in-flight rejection, got %v", err)
	}
}

func TestCreateTransactionConcurrentContended(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Funds cover exactly one of the two transfers.
	a := f.seedWallet(t, "TR-A", "100.00")
	b := f.seedWallet(t, "TR-B", "0")
	c := f.seedWallet(t, "TR-C", "0")

	type outcome struct {
		result CommandResult
		err    error
	}
	outcomes := make(chan outcome, 2)
	var wg sync.WaitGroup
	for _, target := range []string{b.ID, c.ID} {
		wg.Add(1)
		go func(toID string) {
			defer wg.Done()
			res, err := f.service.CreateTransaction(ctx, Request{
				FromWalletID: a.ID,
				ToWalletID:   toID,
				Amount:       decimal.RequireFromString("100.00"),
			})
			outcomes <- outcome{result: res, err: err}
		}(target)
	}
	wg.Wait()
	close(outcomes)

	var succeeded, rejected int
	for o := range outcomes {
		if o.err != nil {
			t.Fatalf("unexpected infrastructure error: %v", o.err)
		}
		if o.result.Success {
			succeeded++
		} else if o.result.Message == msgInsufficientFunds {
			rejected++
		} else {
			t.Fatalf("unexpected outcome: %+v", o.result)
		}
	}
	if succeeded != 1 || rejected != 1 {
		t.Fatalf("expected exactly one success and one rejection, got %d/%d", succeeded, rejected)
	}
	if f.balance(t, a.ID).IsNegative() {
		t.Fatalf("source went negative: %s", f.balance(t, a.ID))
	}
}

func TestCreateTransactionConcurrentDisjoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.seedWallet(t, "TR-A", "300.00")
	b := f.seedWallet(t, "TR-B", "0")
	c := f.seedWallet(t, "TR-C", "400.00")
	d := f.seedWallet(t, "TR-D", "0")

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		res, err := f.service.CreateTransaction(ctx, Request{FromWalletID: a.ID, ToWalletID: b.ID, Amount: decimal.RequireFromString("300.00")})
		if err == nil && !res.Success {
			err = errors.New(res.Message)
		}
		errs <- err
	}()
	go func() {
		defer wg.Done()
		res, err := f.service.CreateTransaction(ctx, Request{FromWalletID: c.ID, ToWalletID: d.ID, Amount: decimal.RequireFromString("400.00")})
		if err == nil && !res.Success {
			err = errors.New(res.Message)
		}
		errs <- err
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("disjoint transfer failed: %v", err)
		}
	}
	if !f.balance(t, b.ID).Equal(decimal.RequireFromString("300.00")) || !f.balance(t, d.ID).Equal(decimal.RequireFromString("400.00")) {
		t.Fatalf("unexpected balances: %s / %s", f.balance(t, b.ID), f.balance(t, d.ID))
	}
}

func TestHistoryListsBothDirections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.seedWallet(t, "TR-A", "1000.00")
	b := f.seedWallet(t, "TR-B", "1000.00")

	if _, err := f.service.CreateTransaction(ctx, Request{FromWalletID: a.ID, ToWalletID: b.ID, Amount: decimal.NewFromInt(10)}); err != nil {
		t.Fatalf("transfer out: %v", err)
	}
	if _, err := f.service.CreateTransaction(ctx, Request{FromWalletID: b.ID, ToWalletID: a.ID, Amount: decimal.NewFromInt(20)}); err != nil {
		t.Fatalf("transfer in: %v", err)
	}

	history, err := f.service.History(ctx, a.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 records, got %d", len(history))
	}

	if _, err := f.service.History(ctx, uuid.NewString()); !errors.Is(err, wallet.ErrNotFound) {
		t.Fatalf("expected wallet not found, got %v", err)
	}
}
