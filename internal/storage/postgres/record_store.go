package postgres

import (
	"context"
	"fmt"

	"solana-wallet-tracker/internal/domain"
	"solana-wallet-tracker/internal/storage"
)

// DefaultRecordLimit is the page size applied when a filter does not
// set one.
const DefaultRecordLimit = 50

// RecordStore implements storage.RecordStore using PostgreSQL.
type RecordStore struct {
	pool *Pool
}

// NewRecordStore creates a new RecordStore.
func NewRecordStore(pool *Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RecordStore = (*RecordStore)(nil)

const recordColumns = `
	signature, wallet_id, wallet_address, direction, venue,
	token_in, token_out, token_mint, amount_in, amount_out,
	sol_price_usd, description, slot, observed_at
`

// CreateIfAbsent inserts a record keyed by signature. A duplicate
// signature is not an error; stored reports whether a row was written.
func (s *RecordStore) CreateIfAbsent(ctx context.Context, r *domain.SwapRecord) (bool, error) {
	if r == nil || r.Signature == "" {
		return false, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO swap_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (signature) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query,
		r.Signature, r.WalletID, r.WalletAddress, string(r.Direction), r.Venue,
		r.TokenIn, r.TokenOut, r.TokenMint, r.AmountIn, r.AmountOut,
		r.SolPriceUSD, r.Description, r.Slot, r.ObservedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert swap record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List retrieves records matching the filter, newest first, with the
// total count before pagination.
func (s *RecordStore) List(ctx context.Context, f storage.RecordFilter) ([]*domain.SwapRecord, int, error) {
	where := " WHERE TRUE"
	args := []interface{}{}

	if f.WalletID != "" {
		args = append(args, f.WalletID)
		where += fmt.Sprintf(" AND wallet_id = $%d", len(args))
	}
	if f.Direction != "" {
		args = append(args, string(f.Direction))
		where += fmt.Sprintf(" AND direction = $%d", len(args))
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM swap_records" + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count swap records: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultRecordLimit
	}
	page := f.Page
	if page < 1 {
		page = 1
	}

	args = append(args, limit, (page-1)*limit)
	query := "SELECT " + recordColumns + " FROM swap_records" + where +
		fmt.Sprintf(" ORDER BY observed_at DESC, signature ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list swap records: %w", err)
	}
	defer rows.Close()

	var records []*domain.SwapRecord
	for rows.Next() {
		var r domain.SwapRecord
		var direction string
		err := rows.Scan(
			&r.Signature, &r.WalletID, &r.WalletAddress, &direction, &r.Venue,
			&r.TokenIn, &r.TokenOut, &r.TokenMint, &r.AmountIn, &r.AmountOut,
			&r.SolPriceUSD, &r.Description, &r.Slot, &r.ObservedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan swap record row: %w", err)
		}
		r.Direction = domain.Direction(direction)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate swap record rows: %w", err)
	}

	return records, total, nil
}

// CountByWallet returns the number of records for a wallet.
func (s *RecordStore) CountByWallet(ctx context.Context, walletID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM swap_records WHERE wallet_id = $1`, walletID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count swap records by wallet: %w", err)
	}
	return count, nil
}

// ListTokens aggregates records by token mint, most recently seen first.
// Records without a resolved mint are skipped.
func (s *RecordStore) ListTokens(ctx context.Context) ([]*domain.TokenActivity, error) {
	query := `
		SELECT
			token_mint,
			MAX(token_out) AS token_out,
			COUNT(*) AS trades,
			COUNT(*) FILTER (WHERE direction = 'buy') AS buys,
			COUNT(*) FILTER (WHERE direction = 'sell') AS sells,
			MAX(observed_at) AS last_seen_at
		FROM swap_records
		WHERE token_mint <> ''
		GROUP BY token_mint
		ORDER BY last_seen_at DESC, token_mint ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var result []*domain.TokenActivity
	for rows.Next() {
		var t domain.TokenActivity
		err := rows.Scan(&t.TokenMint, &t.TokenOut, &t.Trades, &t.Buys, &t.Sells, &t.LastSeenAt)
		if err != nil {
			return nil, fmt.Errorf("scan token activity row: %w", err)
		}
		result = append(result, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token activity rows: %w", err)
	}

	return result, nil
}
