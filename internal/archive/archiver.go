// Package archive streams stored swap records into the long-horizon
// ClickHouse archive in batches.
package archive

import (
	"context"
	"log"
	"sync"
	"time"

	"solana-wallet-tracker/internal/domain"
	"solana-wallet-tracker/internal/observability"
)

// Sink receives flushed record batches.
type Sink interface {
	InsertBatch(ctx context.Context, records []*domain.SwapRecord) error
}

const (
	// DefaultBatchSize triggers a flush once this many records buffer up.
	DefaultBatchSize = 100
	// DefaultFlushInterval force-flushes a partial batch so quiet
	// wallets still reach the archive promptly.
	DefaultFlushInterval = 5 * time.Second
	// DefaultQueueSize bounds the intake queue. Enqueue drops records
	// once the archiver falls this far behind.
	DefaultQueueSize = 1024

	flushTimeout = 30 * time.Second
)

// Archiver buffers records and writes them to the sink in batches,
// either when the batch fills or on a periodic tick. Archival is
// best-effort: a failed flush is logged and its batch dropped, since
// the primary store already holds every record.
type Archiver struct {
	sink          Sink
	batchSize     int
	flushInterval time.Duration
	logger        *log.Logger
	metrics       *observability.Metrics

	queue chan *domain.SwapRecord

	mu      sync.Mutex
	pending []*domain.SwapRecord
}

// Options contains configuration for creating an Archiver.
type Options struct {
	Sink          Sink
	BatchSize     int
	FlushInterval time.Duration
	QueueSize     int
	Logger        *log.Logger
	Metrics       *observability.Metrics
}

// New creates an Archiver over the given sink.
func New(opts Options) *Archiver {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	flushInterval := opts.FlushInterval
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Archiver{
		sink:          opts.Sink,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger,
		metrics:       opts.Metrics,
		queue:         make(chan *domain.SwapRecord, queueSize),
	}
}

// Enqueue hands a record to the archiver. Never blocks; when the queue
// is full the record is dropped with a warning.
func (a *Archiver) Enqueue(r *domain.SwapRecord) {
	select {
	case a.queue <- r:
	default:
		a.logger.Printf("WARN: archive queue full, dropping record %s", r.Signature)
	}
}

// Run drains the queue until the context is cancelled, flushing on
// batch size or on the periodic tick. Remaining records are flushed
// before returning.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	a.logger.Printf("[archive] started, batch size %d, flush interval %v", a.batchSize, a.flushInterval)

	for {
		select {
		case <-ctx.Done():
			a.drainQueue()
			a.flush()
			a.logger.Printf("[archive] stopped")
			return ctx.Err()

		case r := <-a.queue:
			a.mu.Lock()
			a.pending = append(a.pending, r)
			full := len(a.pending) >= a.batchSize
			a.mu.Unlock()
			if full {
				a.flush()
			}

		case <-ticker.C:
			a.flush()
		}
	}
}

// drainQueue moves everything still queued into the pending buffer.
func (a *Archiver) drainQueue() {
	for {
		select {
		case r := <-a.queue:
			a.mu.Lock()
			a.pending = append(a.pending, r)
			a.mu.Unlock()
		default:
			return
		}
	}
}

// flush writes the pending buffer to the sink. The buffer is taken
// first so Enqueue never waits on a slow insert.
func (a *Archiver) flush() {
	a.mu.Lock()
	batch := a.pending
	a.pending = nil
	a.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := a.sink.InsertBatch(ctx, batch); err != nil {
		if a.metrics != nil {
			a.metrics.StoreErrors.WithLabelValues("archive_batch").Inc()
		}
		a.logger.Printf("WARN: archive flush of %d records failed: %v", len(batch), err)
		return
	}

	if a.metrics != nil {
		a.metrics.ArchiveBatches.Inc()
	}
	a.logger.Printf("[archive] flushed %d records", len(batch))
}
