package transaction

import (
	"context"
	"sort"
	"sync"
)

type memoryStore struct {
	mu      sync.RWMutex
	storage map[string]Transaction
	byTxID  map[string]string
}

// NewMemoryStore constructs an in-memory store for tests.
func NewMemoryStore() Store {
	return &memoryStore{
		storage: make(map[string]Transaction),
		byTxID:  make(map[string]string),
	}
}

func (s *memoryStore) Create(_ context.Context, tx Transaction) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byTxID[tx.TransactionID]; exists {
		return Transaction{}, ErrDuplicateID
	}
	s.storage[tx.ID] = tx
	s.byTxID[tx.TransactionID] = tx.ID
	return tx, nil
}

func (s *memoryStore) FindByTransactionID(_ context.Context, transactionID string) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byTxID[transactionID]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return s.storage[id], nil
}

func (s *memoryStore) UpdateStatus(_ context.Context, id string, status Status) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.storage[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	if !tx.Status.CanTransitionTo(status) {
		return Transaction{}, ErrInvalidTransition
	}
	tx.Status = status
	s.storage[id] = tx
	return tx, nil
}

func (s *memoryStore) ListByWallet(_ context.Context, walletID string) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var transactions []Transaction
	for _, tx := range s.storage {
		if tx.FromWalletID == walletID || tx.ToWalletID == walletID {
			transactions = append(transactions, tx)
		}
	}
	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].Timestamp.After(transactions[j].Timestamp)
	})
	return transactions, nil
}
