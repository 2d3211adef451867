// Package process implements the per-schema processors that turn dispatched
// feed messages into database state. Each processor drains its queue in
// timed batches so bursts collapse into few transactions.
package process

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/svdwoude/edmarket-data/internal/dispatch"
	"github.com/svdwoude/edmarket-data/internal/feed"
)

// initialQueueCapacity sizes a processor's inbound queue; the buffer grows
// on demand.
const initialQueueCapacity = 64

// batchLoop is the timer-driven drain shared by all processors. It polls the
// queue every pollInterval and flushes when the queue reaches maxBatchSize
// or maxBatchTimeout has passed since the last flush, whichever comes first.
// The flush callback also fires on empty batches so time-based bookkeeping
// (station creation retries) keeps advancing.
type batchLoop struct {
	schema string
	logger *slog.Logger

	queue           *dispatch.GrowableBuffer[feed.Message]
	maxBatchSize    int
	maxBatchTimeout time.Duration
	pollInterval    time.Duration

	flush func(ctx context.Context, batch []feed.Message, elapsed time.Duration)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newBatchLoop(schema string, size int, timeout, poll time.Duration, logger *slog.Logger) *batchLoop {
	return &batchLoop{
		schema:          schema,
		logger:          logger,
		queue:           dispatch.NewGrowableBuffer[feed.Message](initialQueueCapacity),
		maxBatchSize:    size,
		maxBatchTimeout: timeout,
		pollInterval:    poll,
	}
}

// Schema returns the schema reference this processor handles.
func (b *batchLoop) Schema() string {
	return b.schema
}

// Enqueue hands a message to the processor's queue.
func (b *batchLoop) Enqueue(msg feed.Message) {
	b.queue.Send(msg)
}

// QueueDepth returns the number of messages waiting.
func (b *batchLoop) QueueDepth() int {
	return b.queue.Len()
}

// Start begins the drain loop.
func (b *batchLoop) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	b.wg.Add(1)
	go b.run()

	b.logger.Info("processor started",
		"schema", b.schema,
		"max_batch_size", b.maxBatchSize,
		"max_batch_timeout", b.maxBatchTimeout,
	)
	return nil
}

// Stop drains remaining messages and shuts the processor down.
func (b *batchLoop) Stop(ctx context.Context) error {
	b.logger.Info("stopping processor", "schema", b.schema)

	if b.cancel != nil {
		b.cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("processor stopped", "schema", b.schema)
	case <-ctx.Done():
		b.logger.Warn("processor stop timed out", "schema", b.schema)
	}
	return nil
}

func (b *batchLoop) run() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	lastFlush := time.Now()
	for {
		select {
		case <-b.ctx.Done():
			// Final drain so queued messages survive a restart as database
			// state rather than being lost.
			b.doFlush(&lastFlush)
			return

		case <-ticker.C:
			if b.queue.Len() >= b.maxBatchSize || time.Since(lastFlush) >= b.maxBatchTimeout {
				b.doFlush(&lastFlush)
			}
		}
	}
}

func (b *batchLoop) doFlush(lastFlush *time.Time) {
	batch := b.queue.DrainTo(0)
	elapsed := time.Since(*lastFlush)
	*lastFlush = time.Now()
	b.flush(context.Background(), batch, elapsed)
}
