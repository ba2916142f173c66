package stub

import (
	"context"
	"fmt"
	"sync"

	"solana-wallet-tracker/internal/solana"
)

// WSClient implements solana.WSClient for testing. Subscriptions get
// sequential IDs; tests push notifications with Push.
type WSClient struct {
	mu     sync.Mutex
	nextID int64
	subs   map[int64]chan solana.LogNotification
	byAddr map[string]int64
	closed bool

	// Unsubscribed collects released subscription IDs in order.
	Unsubscribed []int64
}

// NewWSClient creates a new stub WebSocket client.
func NewWSClient() *WSClient {
	return &WSClient{
		subs:   make(map[int64]chan solana.LogNotification),
		byAddr: make(map[string]int64),
	}
}

// SubscribeLogs registers a subscription for the first mentioned
// address and returns its channel.
func (c *WSClient) SubscribeLogs(_ context.Context, filter solana.LogsFilter) (int64, <-chan solana.LogNotification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, nil, fmt.Errorf("stub: client closed")
	}

	c.nextID++
	ch := make(chan solana.LogNotification, 64)
	c.subs[c.nextID] = ch
	if len(filter.Mentions) > 0 {
		c.byAddr[filter.Mentions[0]] = c.nextID
	}
	return c.nextID, ch, nil
}

// UnsubscribeLogs drops the subscription and closes its channel.
func (c *WSClient) UnsubscribeLogs(_ context.Context, subID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.subs[subID]
	if !ok {
		return fmt.Errorf("stub: unknown subscription %d", subID)
	}
	delete(c.subs, subID)
	for addr, id := range c.byAddr {
		if id == subID {
			delete(c.byAddr, addr)
		}
	}
	close(ch)
	c.Unsubscribed = append(c.Unsubscribed, subID)
	return nil
}

// Close closes every subscription channel.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	return nil
}

// Push delivers a notification to the subscription mentioning address.
// Reports whether a subscription existed.
func (c *WSClient) Push(address string, notif solana.LogNotification) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.byAddr[address]
	if !ok {
		return false
	}
	c.subs[id] <- notif
	return true
}

// ActiveSubscriptions returns the number of live subscriptions.
func (c *WSClient) ActiveSubscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Compile-time interface check.
var _ solana.WSClient = (*WSClient)(nil)
