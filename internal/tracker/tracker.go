// Package tracker wires the live pipeline: per-wallet log
// subscriptions feed a keyword filter, a bounded-retry transaction
// fetch, a pure classifier, and an idempotent persistence sink.
package tracker

import (
	"context"
	"log"
	"sync"
	"time"

	"solana-wallet-tracker/internal/classify"
	"solana-wallet-tracker/internal/domain"
	"solana-wallet-tracker/internal/observability"
	"solana-wallet-tracker/internal/pricing"
	"solana-wallet-tracker/internal/solana"
	"solana-wallet-tracker/internal/storage"
)

// Archiver receives every stored record for long-horizon archival.
type Archiver interface {
	Enqueue(r *domain.SwapRecord)
}

// Status is a point-in-time view of the tracker.
type Status struct {
	IsRunning         bool `json:"isRunning"`
	TrackedWallets    int  `json:"trackedWallets"`
	LiveSubscriptions int  `json:"liveSubscriptions"`
}

// Tracker orchestrates wallet tracking: it keeps the in-memory tracked
// set, drives the subscription manager from the wallet store, and runs
// the classification pipeline on every relevant notification.
type Tracker struct {
	wallets  storage.WalletStore
	records  storage.RecordStore
	fetcher  *Fetcher
	prices   *pricing.Cache
	manager  *Manager
	archiver Archiver
	logger   *log.Logger
	metrics  *observability.Metrics

	// onRecord fires once per classified record, before the persist
	// outcome is known. Live push consumers see duplicates the store
	// later skips.
	onRecord func(*domain.SwapRecord)

	mu      sync.Mutex
	running bool
	tracked map[string]*domain.TrackedWallet // keyed by address
}

// Options contains configuration for creating a Tracker.
type Options struct {
	WalletStore storage.WalletStore
	RecordStore storage.RecordStore
	Pool        *solana.Pool
	Fetcher     *Fetcher
	Prices      *pricing.Cache
	Archiver    Archiver
	Logger      *log.Logger
	Metrics     *observability.Metrics
	OnRecord    func(*domain.SwapRecord)
}

// New creates a Tracker. The Fetcher defaults to one over the given
// pool when not supplied.
func New(opts Options) *Tracker {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = NewFetcher(FetcherOptions{
			Pool:    opts.Pool,
			Logger:  logger,
			Metrics: opts.Metrics,
		})
	}

	t := &Tracker{
		wallets:  opts.WalletStore,
		records:  opts.RecordStore,
		fetcher:  fetcher,
		prices:   opts.Prices,
		archiver: opts.Archiver,
		logger:   logger,
		metrics:  opts.Metrics,
		onRecord: opts.OnRecord,
		tracked:  make(map[string]*domain.TrackedWallet),
	}
	t.manager = NewManager(ManagerOptions{
		Pool:    opts.Pool,
		Handler: t.handleNotification,
		Logger:  logger,
		Metrics: opts.Metrics,
	})
	return t
}

// Start loads every active wallet and opens its live feed. Idempotent;
// calling it while running is reported and skipped. Per-wallet
// subscribe errors are non-fatal.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		t.logger.Printf("[tracker] already running")
		return nil
	}
	t.running = true
	t.mu.Unlock()

	active, err := t.wallets.ListActive(ctx)
	if err != nil {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
		return err
	}

	for _, w := range active {
		t.mu.Lock()
		t.tracked[w.Address] = w
		t.mu.Unlock()

		if err := t.manager.Start(ctx, w); err != nil {
			t.logger.Printf("WARN: start tracking %s: %v", w.Address, err)
		}
	}

	t.logger.Printf("[tracker] started, %d active wallets", len(active))
	return nil
}

// Stop releases every live feed. The tracked set survives so Start can
// resume from the store.
func (t *Tracker) Stop(ctx context.Context) {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.mu.Unlock()

	t.manager.StopAll(ctx)
	t.logger.Printf("[tracker] stopped")
}

// AddWallet records the wallet in the tracked set. A live feed is
// opened only when the tracker runs and the wallet is active.
func (t *Tracker) AddWallet(ctx context.Context, w *domain.TrackedWallet) {
	t.mu.Lock()
	t.tracked[w.Address] = w
	running := t.running
	t.mu.Unlock()

	if running && w.IsActive {
		if err := t.manager.Start(ctx, w); err != nil {
			t.logger.Printf("WARN: start tracking %s: %v", w.Address, err)
		}
	}
}

// RemoveWallet releases the wallet's live feed and drops it from the
// tracked set.
func (t *Tracker) RemoveWallet(ctx context.Context, address string) {
	t.manager.Stop(ctx, address)

	t.mu.Lock()
	delete(t.tracked, address)
	t.mu.Unlock()
}

// Status returns a point-in-time view of the tracker.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		IsRunning:         t.running,
		TrackedWallets:    len(t.tracked),
		LiveSubscriptions: t.manager.Count(),
	}
}

// handleNotification runs the pipeline for one log notification:
// filter, fetch, classify, annotate, persist.
func (t *Tracker) handleNotification(ctx context.Context, w *domain.TrackedWallet, notif solana.LogNotification) {
	if t.metrics != nil {
		t.metrics.NotificationsReceived.Inc()
		t.metrics.LastNotificationAt.Set(float64(time.Now().Unix()))
	}

	// Failed transactions carry an err object in the notification.
	if notif.Err != nil {
		return
	}

	if !classify.Relevant(notif.Logs) {
		if t.metrics != nil {
			t.metrics.NotificationsFiltered.Inc()
		}
		return
	}

	tx := t.fetcher.Fetch(ctx, notif.Signature)
	if tx == nil {
		return
	}

	price := t.prices.Get(ctx)
	if t.metrics != nil {
		t.metrics.SolPriceUSD.Set(price)
	}

	rec := classify.Classify(tx, w.Address, price)
	if rec == nil {
		if t.metrics != nil {
			t.metrics.RecordsRejected.Inc()
		}
		return
	}
	rec.WalletID = w.ID

	if t.metrics != nil {
		t.metrics.RecordsClassified.WithLabelValues(string(rec.Direction)).Inc()
	}
	if t.onRecord != nil {
		t.onRecord(rec)
	}

	stored, err := t.records.CreateIfAbsent(ctx, rec)
	if err != nil {
		if t.metrics != nil {
			t.metrics.StoreErrors.WithLabelValues("create_record").Inc()
		}
		t.logger.Printf("WARN: store record %s: %v", rec.Signature, err)
		return
	}
	if !stored {
		if t.metrics != nil {
			t.metrics.RecordsDuplicate.Inc()
		}
		return
	}

	if t.metrics != nil {
		t.metrics.RecordsStored.Inc()
	}
	t.logger.Printf("[tracker] %s", rec.Description)

	if t.archiver != nil {
		t.archiver.Enqueue(rec)
	}
}
