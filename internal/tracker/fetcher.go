package tracker

import (
	"context"
	"log"
	"time"

	"solana-wallet-tracker/internal/observability"
	"solana-wallet-tracker/internal/solana"
)

const (
	// DefaultFetchAttempts bounds how many nodes are tried per signature.
	DefaultFetchAttempts = 3
	// DefaultFetchBaseDelay is multiplied by the attempt number between
	// retries, so the backoff grows linearly.
	DefaultFetchBaseDelay = 1 * time.Second
)

// Fetcher retrieves full transaction detail for a signature. Every
// attempt targets a freshly rotated pool node; per-attempt timeouts are
// enforced by the node's HTTP client. A signature that stays
// unavailable after all attempts is given up on without error.
type Fetcher struct {
	pool      *solana.Pool
	attempts  int
	baseDelay time.Duration
	logger    *log.Logger
	metrics   *observability.Metrics
}

// FetcherOptions contains configuration for creating a Fetcher.
type FetcherOptions struct {
	Pool      *solana.Pool
	Attempts  int
	BaseDelay time.Duration
	Logger    *log.Logger
	Metrics   *observability.Metrics
}

// NewFetcher creates a Fetcher over the given pool.
func NewFetcher(opts FetcherOptions) *Fetcher {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = DefaultFetchAttempts
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultFetchBaseDelay
	}
	return &Fetcher{
		pool:      opts.Pool,
		attempts:  attempts,
		baseDelay: baseDelay,
		logger:    logger,
		metrics:   opts.Metrics,
	}
}

// Fetch returns the parsed transaction, or nil when the signature could
// not be fetched within the allowed attempts. A nil result is not an
// error; confirmed transactions can lag behind their notifications and
// the caller simply drops the event.
func (f *Fetcher) Fetch(ctx context.Context, signature string) *solana.Transaction {
	for attempt := 1; attempt <= f.attempts; attempt++ {
		node, err := f.pool.Next()
		if err != nil {
			f.logger.Printf("WARN: fetch %s: %v", signature, err)
			return nil
		}

		if f.metrics != nil {
			f.metrics.FetchAttempts.Inc()
		}

		start := time.Now()
		tx, err := node.RPC.GetTransaction(ctx, signature)
		if f.metrics != nil {
			f.metrics.RPCCallLatency.WithLabelValues("getTransaction").Observe(time.Since(start).Seconds())
		}

		if err == nil && tx != nil {
			return tx
		}
		if err != nil {
			f.logger.Printf("[fetch] Retry %d/%d for %s on %s: %v", attempt, f.attempts, signature, node.Label, err)
		}

		if attempt == f.attempts {
			break
		}
		if f.metrics != nil {
			f.metrics.FetchRetries.Inc()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(attempt) * f.baseDelay):
		}
	}

	if f.metrics != nil {
		f.metrics.FetchExhausted.Inc()
	}
	f.logger.Printf("WARN: giving up on tx %s after %d attempts", signature, f.attempts)
	return nil
}
