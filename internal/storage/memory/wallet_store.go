package memory

import (
	"context"
	"sort"
	"sync"

	"solana-wallet-tracker/internal/domain"
	"solana-wallet-tracker/internal/storage"
)

// WalletStore is an in-memory implementation of storage.WalletStore.
type WalletStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TrackedWallet // keyed by wallet ID
}

// NewWalletStore creates a new in-memory wallet store.
func NewWalletStore() *WalletStore {
	return &WalletStore{
		data: make(map[string]*domain.TrackedWallet),
	}
}

// Create adds a new wallet. Returns ErrDuplicateKey if the address is
// already tracked.
func (s *WalletStore) Create(_ context.Context, w *domain.TrackedWallet) error {
	if w == nil || w.ID == "" || w.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[w.ID]; exists {
		return storage.ErrDuplicateKey
	}
	for _, existing := range s.data {
		if existing.Address == w.Address {
			return storage.ErrDuplicateKey
		}
	}

	// Store a copy to prevent external mutation
	walletCopy := *w
	s.data[w.ID] = &walletCopy
	return nil
}

// GetByID retrieves a wallet by its ID. Returns ErrNotFound if not exists.
func (s *WalletStore) GetByID(_ context.Context, id string) (*domain.TrackedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	walletCopy := *w
	return &walletCopy, nil
}

// GetByAddress retrieves a wallet by address. Returns ErrNotFound if not exists.
func (s *WalletStore) GetByAddress(_ context.Context, address string) (*domain.TrackedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.data {
		if w.Address == address {
			walletCopy := *w
			return &walletCopy, nil
		}
	}

	return nil, storage.ErrNotFound
}

// List retrieves all wallets ordered by creation time descending.
func (s *WalletStore) List(_ context.Context) ([]*domain.TrackedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TrackedWallet, 0, len(s.data))
	for _, w := range s.data {
		walletCopy := *w
		result = append(result, &walletCopy)
	}

	sortWalletsNewestFirst(result)
	return result, nil
}

// ListActive retrieves wallets with is_active set, ordered by creation
// time descending.
func (s *WalletStore) ListActive(_ context.Context) ([]*domain.TrackedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TrackedWallet
	for _, w := range s.data {
		if w.IsActive {
			walletCopy := *w
			result = append(result, &walletCopy)
		}
	}

	sortWalletsNewestFirst(result)
	return result, nil
}

// Update persists name and is_active changes. Returns ErrNotFound if
// the wallet does not exist.
func (s *WalletStore) Update(_ context.Context, w *domain.TrackedWallet) error {
	if w == nil || w.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[w.ID]
	if !exists {
		return storage.ErrNotFound
	}

	existing.Name = w.Name
	existing.IsActive = w.IsActive
	existing.UpdatedAt = w.UpdatedAt
	return nil
}

// Delete removes a wallet. Returns ErrNotFound if the wallet does not exist.
func (s *WalletStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return storage.ErrNotFound
	}

	delete(s.data, id)
	return nil
}

// sortWalletsNewestFirst orders by created_at DESC with ID as tiebreak
// for deterministic listings.
func sortWalletsNewestFirst(wallets []*domain.TrackedWallet) {
	sort.Slice(wallets, func(i, j int) bool {
		if wallets[i].CreatedAt != wallets[j].CreatedAt {
			return wallets[i].CreatedAt > wallets[j].CreatedAt
		}
		return wallets[i].ID < wallets[j].ID
	})
}

// Verify interface compliance at compile time.
var _ storage.WalletStore = (*WalletStore)(nil)
