package memory

import (
	"context"
	"sort"
	"sync"

	"solana-wallet-tracker/internal/domain"
	"solana-wallet-tracker/internal/storage"
)

// DefaultRecordLimit is the page size applied when a filter does not
// set one.
const DefaultRecordLimit = 50

// RecordStore is an in-memory implementation of storage.RecordStore.
type RecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SwapRecord // keyed by signature
}

// NewRecordStore creates a new in-memory swap record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		data: make(map[string]*domain.SwapRecord),
	}
}

// CreateIfAbsent inserts a record keyed by signature. A duplicate
// signature is not an error; stored reports whether a row was written.
func (s *RecordStore) CreateIfAbsent(_ context.Context, r *domain.SwapRecord) (bool, error) {
	if r == nil || r.Signature == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.Signature]; exists {
		return false, nil
	}

	// Store a copy to prevent external mutation
	recordCopy := *r
	s.data[r.Signature] = &recordCopy
	return true, nil
}

// List retrieves records matching the filter, newest first, with the
// total count before pagination.
func (s *RecordStore) List(_ context.Context, f storage.RecordFilter) ([]*domain.SwapRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.SwapRecord
	for _, r := range s.data {
		if f.WalletID != "" && r.WalletID != f.WalletID {
			continue
		}
		if f.Direction != "" && r.Direction != f.Direction {
			continue
		}
		recordCopy := *r
		matched = append(matched, &recordCopy)
	}

	sortRecordsNewestFirst(matched)

	total := len(matched)

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultRecordLimit
	}
	page := f.Page
	if page < 1 {
		page = 1
	}

	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}

	return matched[start:end], total, nil
}

// CountByWallet returns the number of records for a wallet.
func (s *RecordStore) CountByWallet(_ context.Context, walletID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.data {
		if r.WalletID == walletID {
			count++
		}
	}
	return count, nil
}

// ListTokens aggregates records by token mint, most recently seen first.
// Records without a resolved mint are skipped.
func (s *RecordStore) ListTokens(_ context.Context) ([]*domain.TokenActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byMint := make(map[string]*domain.TokenActivity)
	for _, r := range s.data {
		if r.TokenMint == "" {
			continue
		}

		agg, exists := byMint[r.TokenMint]
		if !exists {
			agg = &domain.TokenActivity{
				TokenMint: r.TokenMint,
				TokenOut:  r.TokenOut,
			}
			byMint[r.TokenMint] = agg
		}

		agg.Trades++
		switch r.Direction {
		case domain.DirectionBuy:
			agg.Buys++
		case domain.DirectionSell:
			agg.Sells++
		}
		if r.ObservedAt > agg.LastSeenAt {
			agg.LastSeenAt = r.ObservedAt
			agg.TokenOut = r.TokenOut
		}
	}

	result := make([]*domain.TokenActivity, 0, len(byMint))
	for _, agg := range byMint {
		result = append(result, agg)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].LastSeenAt != result[j].LastSeenAt {
			return result[i].LastSeenAt > result[j].LastSeenAt
		}
		return result[i].TokenMint < result[j].TokenMint
	})

	return result, nil
}

// sortRecordsNewestFirst orders by observed_at DESC with signature as
// tiebreak for deterministic pagination.
func sortRecordsNewestFirst(records []*domain.SwapRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].ObservedAt != records[j].ObservedAt {
			return records[i].ObservedAt > records[j].ObservedAt
		}
		return records[i].Signature < records[j].Signature
	})
}

// Verify interface compliance at compile time.
var _ storage.RecordStore = (*RecordStore)(nil)
