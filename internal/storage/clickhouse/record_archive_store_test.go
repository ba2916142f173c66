package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-tracker/internal/domain"
)

func TestRecordArchiveStore_InsertBatchAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRecordArchiveStore(conn)
	ctx := context.Background()

	records := []*domain.SwapRecord{
		{
			Signature:     "sig1",
			WalletID:      "w1",
			WalletAddress: "addr1",
			Direction:     domain.DirectionBuy,
			Venue:         "raydium",
			TokenIn:       "SOL",
			TokenOut:      "minA...",
			TokenMint:     "mintA",
			AmountIn:      "1.5",
			AmountOut:     "1000000",
			SolPriceUSD:   150.0,
			Description:   "BUY 1.5 SOL for 1000000 minA...",
			Slot:          100,
			ObservedAt:    1700000002000,
		},
		{
			Signature:     "sig2",
			WalletID:      "w1",
			WalletAddress: "addr1",
			Direction:     domain.DirectionSell,
			Venue:         "jupiter",
			TokenMint:     "mintB",
			AmountIn:      "2",
			AmountOut:     "0",
			ObservedAt:    1700000001000,
		},
		{
			Signature:  "sig3",
			WalletID:   "w2",
			Direction:  domain.DirectionTransfer,
			Venue:      "unknown",
			ObservedAt: 1700000003000,
		},
	}

	err := store.InsertBatch(ctx, records)
	require.NoError(t, err)

	got, err := store.GetByWallet(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first
	assert.Equal(t, "sig1", got[0].Signature)
	assert.Equal(t, domain.DirectionBuy, got[0].Direction)
	assert.Equal(t, "raydium", got[0].Venue)
	assert.Equal(t, "1.5", got[0].AmountIn)
	assert.Equal(t, 150.0, got[0].SolPriceUSD)

	assert.Equal(t, "sig2", got[1].Signature)
	assert.Equal(t, domain.DirectionSell, got[1].Direction)
}

func TestRecordArchiveStore_EmptyBatch(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRecordArchiveStore(conn)
	err := store.InsertBatch(context.Background(), nil)
	require.NoError(t, err)
}
