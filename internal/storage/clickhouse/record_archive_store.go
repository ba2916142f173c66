package clickhouse

import (
	"context"
	"fmt"

	"solana-wallet-tracker/internal/domain"
)

// RecordArchiveStore writes classified swap records into the
// swap_records_archive table. Inserts go through batches; the
// ReplacingMergeTree collapses replayed signatures on merge, so the
// store never checks for duplicates up front.
type RecordArchiveStore struct {
	conn *Conn
}

// NewRecordArchiveStore creates a new RecordArchiveStore.
func NewRecordArchiveStore(conn *Conn) *RecordArchiveStore {
	return &RecordArchiveStore{conn: conn}
}

// InsertBatch appends all records in one batch insert.
func (s *RecordArchiveStore) InsertBatch(ctx context.Context, records []*domain.SwapRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO swap_records_archive (
			signature, wallet_id, wallet_address, direction, venue,
			token_in, token_out, token_mint, amount_in, amount_out,
			sol_price_usd, description, slot, observed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			r.Signature, r.WalletID, r.WalletAddress, string(r.Direction), r.Venue,
			r.TokenIn, r.TokenOut, r.TokenMint, r.AmountIn, r.AmountOut,
			r.SolPriceUSD, r.Description, r.Slot, r.ObservedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByWallet retrieves archived records for a wallet, newest first.
func (s *RecordArchiveStore) GetByWallet(ctx context.Context, walletID string) ([]*domain.SwapRecord, error) {
	query := `
		SELECT
			signature, wallet_id, wallet_address, direction, venue,
			token_in, token_out, token_mint, amount_in, amount_out,
			sol_price_usd, description, slot, observed_at
		FROM swap_records_archive
		WHERE wallet_id = ?
		ORDER BY observed_at DESC, signature ASC
	`

	rows, err := s.conn.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("query archive by wallet: %w", err)
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
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		r.Direction = domain.Direction(direction)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive rows: %w", err)
	}

	return records, nil
}
