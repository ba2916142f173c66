package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"solana-wallet-tracker/internal/domain"
	"solana-wallet-tracker/internal/storage"
)

func TestRecordStore_CreateIfAbsent(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()

	r := &domain.SwapRecord{
		Signature:     "sig1",
		WalletID:      "w1",
		WalletAddress: "addr1",
		Direction:     domain.DirectionBuy,
		Venue:         "raydium",
		TokenMint:     "mint1",
		ObservedAt:    100,
	}

	stored, err := store.CreateIfAbsent(ctx, r)
	if err != nil {
		t.Fatalf("CreateIfAbsent failed: %v", err)
	}
	if !stored {
		t.Error("Expected stored=true on first insert")
	}

	// Same signature again: silently skipped
	stored, err = store.CreateIfAbsent(ctx, r)
	if err != nil {
		t.Fatalf("Duplicate CreateIfAbsent failed: %v", err)
	}
	if stored {
		t.Error("Expected stored=false on duplicate signature")
	}

	records, total, err := store.List(ctx, storage.RecordFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(records) != 1 {
		t.Errorf("Expected exactly one record, got total=%d len=%d", total, len(records))
	}
}

func TestRecordStore_InvalidInput(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()

	if _, err := store.CreateIfAbsent(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if _, err := store.CreateIfAbsent(ctx, &domain.SwapRecord{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty signature, got %v", err)
	}
}

func seedRecords(t *testing.T, store *RecordStore, n int) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < n; i++ {
		direction := domain.DirectionBuy
		walletID := "w1"
		if i%2 == 1 {
			direction = domain.DirectionSell
			walletID = "w2"
		}
		r := &domain.SwapRecord{
			Signature:  fmt.Sprintf("sig%03d", i),
			WalletID:   walletID,
			Direction:  direction,
			TokenMint:  "mint1",
			ObservedAt: int64(1000 + i),
		}
		if _, err := store.CreateIfAbsent(ctx, r); err != nil {
			t.Fatalf("seed record %d: %v", i, err)
		}
	}
}

func TestRecordStore_ListFilters(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()
	seedRecords(t, store, 10)

	records, total, err := store.List(ctx, storage.RecordFilter{WalletID: "w1"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 5 {
		t.Errorf("Expected 5 records for w1, got %d", total)
	}
	for _, r := range records {
		if r.WalletID != "w1" {
			t.Errorf("Filter leak: got record for %s", r.WalletID)
		}
	}

	_, total, err = store.List(ctx, storage.RecordFilter{Direction: domain.DirectionSell})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 5 {
		t.Errorf("Expected 5 sell records, got %d", total)
	}
}

func TestRecordStore_ListPagination(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()
	seedRecords(t, store, 10)

	page1, total, err := store.List(ctx, storage.RecordFilter{Limit: 4, Page: 1})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 10 {
		t.Errorf("Expected total 10, got %d", total)
	}
	if len(page1) != 4 {
		t.Fatalf("Expected 4 records on page 1, got %d", len(page1))
	}

	// Newest first
	if page1[0].Signature != "sig009" {
		t.Errorf("Expected sig009 first, got %s", page1[0].Signature)
	}

	page3, _, err := store.List(ctx, storage.RecordFilter{Limit: 4, Page: 3})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page3) != 2 {
		t.Errorf("Expected 2 records on page 3, got %d", len(page3))
	}

	empty, total, err := store.List(ctx, storage.RecordFilter{Limit: 4, Page: 9})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(empty) != 0 || total != 10 {
		t.Errorf("Expected empty page with total 10, got len=%d total=%d", len(empty), total)
	}
}

func TestRecordStore_CountByWallet(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()
	seedRecords(t, store, 10)

	count, err := store.CountByWallet(ctx, "w2")
	if err != nil {
		t.Fatalf("CountByWallet failed: %v", err)
	}
	if count != 5 {
		t.Errorf("Expected 5 records for w2, got %d", count)
	}

	count, err = store.CountByWallet(ctx, "missing")
	if err != nil {
		t.Fatalf("CountByWallet failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 records for unknown wallet, got %d", count)
	}
}

func TestRecordStore_ListTokens(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()

	records := []*domain.SwapRecord{
		{Signature: "s1", WalletID: "w1", Direction: domain.DirectionBuy, TokenMint: "mintA", TokenOut: "minA...", ObservedAt: 100},
		{Signature: "s2", WalletID: "w1", Direction: domain.DirectionSell, TokenMint: "mintA", TokenOut: "minA...", ObservedAt: 300},
		{Signature: "s3", WalletID: "w2", Direction: domain.DirectionBuy, TokenMint: "mintB", TokenOut: "minB...", ObservedAt: 200},
		{Signature: "s4", WalletID: "w2", Direction: domain.DirectionTransfer, TokenMint: "", ObservedAt: 400},
	}
	for _, r := range records {
		if _, err := store.CreateIfAbsent(ctx, r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	tokens, err := store.ListTokens(ctx)
	if err != nil {
		t.Fatalf("ListTokens failed: %v", err)
	}

	// Record without a mint is skipped
	if len(tokens) != 2 {
		t.Fatalf("Expected 2 tokens, got %d", len(tokens))
	}

	// Most recently seen first
	if tokens[0].TokenMint != "mintA" {
		t.Errorf("Expected mintA first, got %s", tokens[0].TokenMint)
	}
	if tokens[0].Trades != 2 || tokens[0].Buys != 1 || tokens[0].Sells != 1 {
		t.Errorf("Unexpected mintA aggregate: %+v", tokens[0])
	}
	if tokens[0].LastSeenAt != 300 {
		t.Errorf("Expected LastSeenAt 300, got %d", tokens[0].LastSeenAt)
	}

	if tokens[1].TokenMint != "mintB" || tokens[1].Trades != 1 || tokens[1].Buys != 1 {
		t.Errorf("Unexpected mintB aggregate: %+v", tokens[1])
	}
}
