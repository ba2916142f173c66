package tracker

import (
	"context"
	"fmt"
	"log"
	"sync"

	"solana-wallet-tracker/internal/domain"
	"solana-wallet-tracker/internal/observability"
	"solana-wallet-tracker/internal/solana"
)

// NotificationHandler processes one log notification for a wallet.
type NotificationHandler func(ctx context.Context, wallet *domain.TrackedWallet, notif solana.LogNotification)

// Manager owns the live log subscriptions, one per wallet address.
// Subscribe and unsubscribe both go through the pool's primary node so
// the releasing call targets the session that issued the handle.
// Errors opening or closing one feed never affect the others.
type Manager struct {
	pool    *solana.Pool
	handler NotificationHandler
	logger  *log.Logger
	metrics *observability.Metrics

	mu   sync.Mutex
	subs map[string]*subscription // keyed by wallet address
}

// subscription is the local bookkeeping for one live feed.
type subscription struct {
	wallet *domain.TrackedWallet
	subID  int64
	cancel context.CancelFunc
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	Pool    *solana.Pool
	Handler NotificationHandler
	Logger  *log.Logger
	Metrics *observability.Metrics
}

// NewManager creates a subscription manager.
func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		pool:    opts.Pool,
		handler: opts.Handler,
		logger:  logger,
		metrics: opts.Metrics,
		subs:    make(map[string]*subscription),
	}
}

// Start opens a live log feed for the wallet and registers the
// notification pipeline. No-op if the address is already subscribed.
func (m *Manager) Start(ctx context.Context, w *domain.TrackedWallet) error {
	m.mu.Lock()
	_, exists := m.subs[w.Address]
	m.mu.Unlock()
	if exists {
		return nil
	}

	node, err := m.pool.Primary()
	if err != nil {
		return err
	}

	subID, ch, err := node.WS.SubscribeLogs(ctx, solana.LogsFilter{
		Mentions: []string{w.Address},
	})
	if err != nil {
		return fmt.Errorf("subscribe logs for %s: %w", w.Address, err)
	}

	consumerCtx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	if _, exists := m.subs[w.Address]; exists {
		// Lost a concurrent Start race; release the extra handle.
		m.mu.Unlock()
		cancel()
		if err := node.WS.UnsubscribeLogs(ctx, subID); err != nil {
			m.logger.Printf("WARN: release duplicate subscription %d for %s: %v", subID, w.Address, err)
		}
		return nil
	}
	m.subs[w.Address] = &subscription{wallet: w, subID: subID, cancel: cancel}
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.LiveSubscriptions.Inc()
	}
	m.logger.Printf("[tracker] subscribed to %s (sub=%d)", w.Address, subID)

	go m.consume(consumerCtx, w, ch)
	return nil
}

// consume drains the notification channel until the feed is stopped.
// Each notification is dispatched on its own goroutine so a slow fetch
// never stalls the feed. The consumer context only stops this loop:
// a notification already delivered runs its pipeline to completion
// even if the wallet is stopped mid-flight.
func (m *Manager) consume(ctx context.Context, w *domain.TrackedWallet, ch <-chan solana.LogNotification) {
	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-ch:
			if !ok {
				return
			}
			go m.handler(context.Background(), w, notif)
		}
	}
}

// Stop releases the wallet's live feed. No-op if the address is not
// subscribed. Close errors are logged, not returned; the local state is
// dropped either way.
func (m *Manager) Stop(ctx context.Context, address string) {
	m.mu.Lock()
	sub, exists := m.subs[address]
	if exists {
		delete(m.subs, address)
	}
	m.mu.Unlock()
	if !exists {
		return
	}

	sub.cancel()
	if m.metrics != nil {
		m.metrics.LiveSubscriptions.Dec()
	}

	node, err := m.pool.Primary()
	if err != nil {
		m.logger.Printf("WARN: unsubscribe %s: %v", address, err)
		return
	}
	if err := node.WS.UnsubscribeLogs(ctx, sub.subID); err != nil {
		m.logger.Printf("WARN: unsubscribe %s (sub=%d): %v", address, sub.subID, err)
		return
	}
	m.logger.Printf("[tracker] unsubscribed from %s (sub=%d)", address, sub.subID)
}

// StopAll releases every live feed.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	addresses := make([]string, 0, len(m.subs))
	for addr := range m.subs {
		addresses = append(addresses, addr)
	}
	m.mu.Unlock()

	for _, addr := range addresses {
		m.Stop(ctx, addr)
	}
}

// Subscribed reports whether the address has a live feed.
func (m *Manager) Subscribed(address string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.subs[address]
	return exists
}

// Count returns the number of live feeds.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
