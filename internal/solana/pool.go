package solana

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrNoEndpoints is returned when the pool was constructed without any
// upstream nodes.
var ErrNoEndpoints = errors.New("no RPC endpoints configured")

// Node bundles the HTTP and WebSocket clients for one upstream endpoint.
type Node struct {
	Label string
	RPC   RPCClient
	WS    WSClient
}

// Pool hands out upstream nodes in round-robin order. The cursor is a
// shared atomic so concurrent callers never observe the same
// pre-increment value. Primary returns the first configured node
// without advancing the cursor, for calls that need endpoint affinity.
type Pool struct {
	nodes  []*Node
	cursor atomic.Uint64
}

// NewPool creates a pool over the given nodes. An empty node list is
// accepted here; the misconfiguration surfaces on the first Next call.
func NewPool(nodes []*Node) *Pool {
	return &Pool{nodes: nodes}
}

// Dial constructs a pool with live HTTP and WebSocket clients, one pair
// per endpoint. rpcEndpoints and wsEndpoints are parallel lists.
func Dial(ctx context.Context, rpcEndpoints, wsEndpoints []string) (*Pool, error) {
	if len(rpcEndpoints) != len(wsEndpoints) {
		return nil, fmt.Errorf("endpoint list mismatch: %d rpc vs %d ws", len(rpcEndpoints), len(wsEndpoints))
	}

	nodes := make([]*Node, 0, len(rpcEndpoints))
	for i, rpcURL := range rpcEndpoints {
		ws, err := NewWSClient(ctx, wsEndpoints[i], nil)
		if err != nil {
			for _, n := range nodes {
				n.WS.Close()
			}
			return nil, fmt.Errorf("dial ws endpoint %s: %w", wsEndpoints[i], err)
		}
		nodes = append(nodes, &Node{
			Label: rpcURL,
			RPC:   NewHTTPClient(rpcURL),
			WS:    ws,
		})
	}

	return NewPool(nodes), nil
}

// Next returns the node at the current cursor and advances it modulo
// the pool size.
func (p *Pool) Next() (*Node, error) {
	if len(p.nodes) == 0 {
		return nil, ErrNoEndpoints
	}
	idx := (p.cursor.Add(1) - 1) % uint64(len(p.nodes))
	return p.nodes[idx], nil
}

// Primary returns the first configured node without advancing the cursor.
func (p *Pool) Primary() (*Node, error) {
	if len(p.nodes) == 0 {
		return nil, ErrNoEndpoints
	}
	return p.nodes[0], nil
}

// Size returns the number of configured nodes.
func (p *Pool) Size() int {
	return len(p.nodes)
}

// Close closes every node's WebSocket client.
func (p *Pool) Close() {
	for _, n := range p.nodes {
		if n.WS != nil {
			n.WS.Close()
		}
	}
}
