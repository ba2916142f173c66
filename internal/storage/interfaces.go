package storage

import (
	"context"

	"solana-wallet-tracker/internal/domain"
)

// WalletStore provides access to tracked_wallets storage.
type WalletStore interface {
	// Create adds a new wallet. Returns ErrDuplicateKey if the address
	// is already tracked.
	Create(ctx context.Context, w *domain.TrackedWallet) error

	// GetByID retrieves a wallet by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.TrackedWallet, error)

	// GetByAddress retrieves a wallet by address. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.TrackedWallet, error)

	// List retrieves all wallets ordered by creation time descending.
	List(ctx context.Context) ([]*domain.TrackedWallet, error)

	// ListActive retrieves wallets with is_active set, ordered by
	// creation time descending.
	ListActive(ctx context.Context) ([]*domain.TrackedWallet, error)

	// Update persists name and is_active changes. Returns ErrNotFound
	// if the wallet does not exist.
	Update(ctx context.Context, w *domain.TrackedWallet) error

	// Delete removes a wallet. Returns ErrNotFound if the wallet does
	// not exist.
	Delete(ctx context.Context, id string) error
}

// RecordFilter narrows RecordStore listings. Zero values mean no
// constraint; Limit and Page have store defaults applied.
type RecordFilter struct {
	WalletID  string
	Direction domain.Direction
	Limit     int
	Page      int
}

// RecordStore provides access to swap_records storage.
type RecordStore interface {
	// CreateIfAbsent inserts a record keyed by signature. A duplicate
	// signature is not an error; stored reports whether a row was
	// actually written.
	CreateIfAbsent(ctx context.Context, r *domain.SwapRecord) (stored bool, err error)

	// List retrieves records matching the filter, newest first, with
	// the total count before pagination.
	List(ctx context.Context, f RecordFilter) ([]*domain.SwapRecord, int, error)

	// CountByWallet returns the number of records for a wallet.
	CountByWallet(ctx context.Context, walletID string) (int, error)

	// ListTokens aggregates records by token mint, most recently seen
	// first.
	ListTokens(ctx context.Context) ([]*domain.TokenActivity, error)
}
