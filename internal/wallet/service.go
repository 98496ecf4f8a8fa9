package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/walletgrid/walletgrid/internal/user"
)

// Service exposes wallet lifecycle operations. Balances are read here but only
// ever written by the ledger.
type Service struct {
	repo  Repository
	users user.Repository
}

// NewService builds a wallet service instance.
func NewService(repo Repository, users user.Repository) *Service {
	return &Service{repo: repo, users: users}
}

// CreateInput captures data required to create a wallet.
type CreateInput struct {
	OwnerID        string
	IBAN           string
	Name           string
	OpeningBalance decimal.Decimal
}

// Create provisions a wallet for an existing user. The opening balance may be
// zero but never negative.
func (s *Service) Create(ctx context.Context, input CreateInput) (Wallet, error) {
	if _, err := uuid.Parse(input.OwnerID); err != nil {
		return Wallet{}, err
	}
	if input.IBAN == "" {
		return Wallet{}, errors.New("iban is required")
	}
	if input.OpeningBalance.IsNegative() {
		return Wallet{}, errors.New("opening balance cannot be negative")
	}

	if _, err := s.users.FindByID(ctx, input.OwnerID); err != nil {
		return Wallet{}, err
	}

	wallet := Wallet{
		ID:        uuid.New().String(),
		OwnerID:   input.OwnerID,
		IBAN:      input.IBAN,
		Name:      input.Name,
		Balance:   input.OpeningBalance,
		Version:   1,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, wallet); err != nil {
		return Wallet{}, err
	}

	return wallet, nil
}

// Get retrieves a wallet by id.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
	return s.repo.Get(ctx, id)
}

// GetByIBAN retrieves a wallet by account number.
func (s *Service) GetByIBAN(ctx context.Context, iban string) (Wallet, error) {
	return s.repo.GetByIBAN(ctx, iban)
}

// ListByOwner returns all wallets owned by the given user.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Wallet, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Rename updates the wallet display name. Transfers never touch the name.
func (s *Service) Rename(ctx context.Context, id, name string) (Wallet, error) {
	if name == "" {
		return Wallet{}, errors.New("name is required")
	}
	return s.repo.Rename(ctx, id, name)
}
