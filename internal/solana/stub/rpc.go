// Package stub provides in-memory Solana client fakes for tests.
package stub

import (
	"context"
	"errors"
	"sync"

	"solana-wallet-tracker/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu           sync.Mutex
	transactions map[string]*solana.Transaction
	failures     map[string]int // error returns remaining per signature
	calls        int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		transactions: make(map[string]*solana.Transaction),
		failures:     make(map[string]int),
	}
}

// GetTransaction retrieves a transaction by signature from the stub
// store. Unknown signatures yield (nil, nil), matching the live client.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++

	if n := c.failures[signature]; n > 0 {
		c.failures[signature] = n - 1
		return nil, errors.New("stub: transient failure")
	}

	return c.transactions[signature], nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions[tx.Signature] = tx
}

// FailTimes makes the next n GetTransaction calls for signature return
// an error before the stored value is served.
func (c *RPCClient) FailTimes(signature string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[signature] = n
}

// Calls returns the total number of GetTransaction calls.
func (c *RPCClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)
