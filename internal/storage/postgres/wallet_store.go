package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-wallet-tracker/internal/domain"
	"solana-wallet-tracker/internal/storage"
)

// WalletStore implements storage.WalletStore using PostgreSQL.
type WalletStore struct {
	pool *Pool
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(pool *Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// Create adds a new wallet. Returns ErrDuplicateKey if the address is
// already tracked.
func (s *WalletStore) Create(ctx context.Context, w *domain.TrackedWallet) error {
	if w == nil || w.ID == "" || w.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tracked_wallets (wallet_id, address, name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		w.ID, w.Address, w.Name, w.IsActive, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert tracked wallet: %w", err)
	}
	return nil
}

// GetByID retrieves a wallet by its ID. Returns ErrNotFound if not exists.
func (s *WalletStore) GetByID(ctx context.Context, id string) (*domain.TrackedWallet, error) {
	query := `
		SELECT wallet_id, address, name, is_active, created_at, updated_at
		FROM tracked_wallets
		WHERE wallet_id = $1
	`

	row := s.pool.QueryRow(ctx, query, id)
	w, err := scanWallet(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get tracked wallet by id: %w", err)
	}
	return w, nil
}

// GetByAddress retrieves a wallet by address. Returns ErrNotFound if not exists.
func (s *WalletStore) GetByAddress(ctx context.Context, address string) (*domain.TrackedWallet, error) {
	query := `
		SELECT wallet_id, address, name, is_active, created_at, updated_at
		FROM tracked_wallets
		WHERE address = $1
	`

	row := s.pool.QueryRow(ctx, query, address)
	w, err := scanWallet(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get tracked wallet by address: %w", err)
	}
	return w, nil
}

// List retrieves all wallets ordered by creation time descending.
func (s *WalletStore) List(ctx context.Context) ([]*domain.TrackedWallet, error) {
	query := `
		SELECT wallet_id, address, name, is_active, created_at, updated_at
		FROM tracked_wallets
		ORDER BY created_at DESC, wallet_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tracked wallets: %w", err)
	}
	defer rows.Close()

	return scanWallets(rows)
}

// ListActive retrieves wallets with is_active set, ordered by creation
// time descending.
func (s *WalletStore) ListActive(ctx context.Context) ([]*domain.TrackedWallet, error) {
	query := `
		SELECT wallet_id, address, name, is_active, created_at, updated_at
		FROM tracked_wallets
		WHERE is_active
		ORDER BY created_at DESC, wallet_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active tracked wallets: %w", err)
	}
	defer rows.Close()

	return scanWallets(rows)
}

// Update persists name and is_active changes. Returns ErrNotFound if
// the wallet does not exist.
func (s *WalletStore) Update(ctx context.Context, w *domain.TrackedWallet) error {
	if w == nil || w.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE tracked_wallets
		SET name = $2, is_active = $3, updated_at = $4
		WHERE wallet_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, w.ID, w.Name, w.IsActive, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update tracked wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a wallet. Its swap records go with it via the
// ON DELETE CASCADE on swap_records. Returns ErrNotFound if the wallet
// does not exist.
func (s *WalletStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tracked_wallets WHERE wallet_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tracked wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanWallet scans a single row into a TrackedWallet.
func scanWallet(row pgx.Row) (*domain.TrackedWallet, error) {
	var w domain.TrackedWallet
	err := row.Scan(&w.ID, &w.Address, &w.Name, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// scanWallets scans multiple rows into a slice of TrackedWallet.
func scanWallets(rows pgx.Rows) ([]*domain.TrackedWallet, error) {
	var wallets []*domain.TrackedWallet

	for rows.Next() {
		var w domain.TrackedWallet
		err := rows.Scan(&w.ID, &w.Address, &w.Name, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan tracked wallet row: %w", err)
		}
		wallets = append(wallets, &w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracked wallet rows: %w", err)
	}

	return wallets, nil
}
