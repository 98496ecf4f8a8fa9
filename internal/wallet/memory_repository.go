package wallet

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Wallet
	byIBAN  map[string]string
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		storage: make(map[string]Wallet),
		byIBAN:  make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, wallet Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byIBAN[wallet.IBAN]; exists {
		return ErrIBANTaken
	}
	r.storage[wallet.ID] = wallet
	r.byIBAN[wallet.IBAN] = wallet.ID
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wallet, ok := r.storage[id]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return wallet, nil
}

func (r *memoryRepository) GetByIBAN(_ context.Context, iban string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byIBAN[iban]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return r.storage[id], nil
}

func (r *memoryRepository) ListByOwner(_ context.Context, ownerID string) ([]Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var wallets []Wallet
	for _, w := range r.storage {
		if w.OwnerID == ownerID {
			wallets = append(wallets, w)
		}
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].CreatedAt.Before(wallets[j].CreatedAt) })
	return wallets, nil
}

func (r *memoryRepository) Rename(_ context.Context, id, name string) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wallet, ok := r.storage[id]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	wallet.Name = name
	r.storage[id] = wallet
	return wallet, nil
}

// UpdateBalances applies both writes under one lock: both version checks pass
// and both wallets change, or neither does.
func (r *memoryRepository) UpdateBalances(_ context.Context, from, to Wallet) (Wallet, Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, w := range []Wallet{from, to} {
		current, ok := r.storage[w.ID]
		if !ok {
			return Wallet{}, Wallet{}, ErrNotFound
		}
		if current.Version != w.Version {
			return Wallet{}, Wallet{}, ErrVersionConflict
		}
	}

	from.Version++
	to.Version++
	r.storage[from.ID] = from
	r.storage[to.ID] = to
	return from, to, nil
}
