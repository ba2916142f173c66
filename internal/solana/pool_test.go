package solana

import (
	"sync"
	"testing"
)

func testNodes(n int) []*Node {
	nodes := make([]*Node, n)
	for i := range nodes {
		nodes[i] = &Node{Label: string(rune('a' + i))}
	}
	return nodes
}

func TestPool_Next_RoundRobin(t *testing.T) {
	nodes := testNodes(3)
	pool := NewPool(nodes)

	for i := 0; i < 9; i++ {
		node, err := pool.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if want := nodes[i%3]; node != want {
			t.Errorf("call %d: got %s, want %s", i, node.Label, want.Label)
		}
	}
}

func TestPool_Next_Empty(t *testing.T) {
	pool := NewPool(nil)

	if _, err := pool.Next(); err != ErrNoEndpoints {
		t.Errorf("expected ErrNoEndpoints, got %v", err)
	}
	if _, err := pool.Primary(); err != ErrNoEndpoints {
		t.Errorf("expected ErrNoEndpoints from Primary, got %v", err)
	}
}

func TestPool_Primary_DoesNotAdvance(t *testing.T) {
	nodes := testNodes(3)
	pool := NewPool(nodes)

	for i := 0; i < 5; i++ {
		node, err := pool.Primary()
		if err != nil {
			t.Fatalf("Primary: %v", err)
		}
		if node != nodes[0] {
			t.Errorf("Primary returned %s, want %s", node.Label, nodes[0].Label)
		}
	}

	// The rotation cursor is untouched by Primary.
	node, err := pool.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if node != nodes[0] {
		t.Errorf("first Next after Primary calls: got %s, want %s", node.Label, nodes[0].Label)
	}
}

func TestPool_Next_ConcurrentDistribution(t *testing.T) {
	const workers = 8
	const perWorker = 30

	nodes := testNodes(3)
	pool := NewPool(nodes)

	counts := make(map[string]int)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				node, err := pool.Next()
				if err != nil {
					t.Errorf("Next: %v", err)
					return
				}
				mu.Lock()
				counts[node.Label]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// workers*perWorker is a multiple of the pool size, so the split
	// must be exact.
	want := workers * perWorker / len(nodes)
	for _, n := range nodes {
		if counts[n.Label] != want {
			t.Errorf("node %s served %d calls, want %d", n.Label, counts[n.Label], want)
		}
	}
}

func TestPool_Size(t *testing.T) {
	if got := NewPool(testNodes(4)).Size(); got != 4 {
		t.Errorf("Size: got %d, want 4", got)
	}
	if got := NewPool(nil).Size(); got != 0 {
		t.Errorf("Size of empty pool: got %d, want 0", got)
	}
}
