package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/svdwoude/edmarket-data/internal/feed"
)

// Processor consumes messages for one schema.
type Processor interface {
	// Schema returns the schema reference this processor handles.
	Schema() string

	// Enqueue hands a message to the processor's queue.
	Enqueue(msg feed.Message)

	// QueueDepth returns the number of messages waiting.
	QueueDepth() int
}

// Stats contains runtime dispatcher statistics.
type Stats struct {
	Received int64
	Routed   int64
	Unknown  int64
}

// Dispatcher routes listener messages to their schema processors.
type Dispatcher struct {
	logger         *slog.Logger
	queueWarnDepth int

	input      <-chan feed.Message
	processors map[string]Processor

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	received int64
	routed   int64
	unknown  int64
}

// NewDispatcher creates a dispatcher over the given processors.
func NewDispatcher(input <-chan feed.Message, processors []Processor, queueWarnDepth int, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	bySchema := make(map[string]Processor, len(processors))
	for _, p := range processors {
		bySchema[p.Schema()] = p
	}

	return &Dispatcher{
		logger:         logger,
		queueWarnDepth: queueWarnDepth,
		input:          input,
		processors:     bySchema,
	}
}

// Start begins routing messages.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(1)
	go d.routeLoop()

	d.logger.Info("dispatcher started", "schemas", len(d.processors))
	return nil
}

// Stop gracefully shuts down the dispatcher.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.logger.Info("stopping dispatcher")

	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("dispatcher stopped")
	case <-ctx.Done():
		d.logger.Warn("dispatcher stop timed out")
	}
	return nil
}

// Stats returns current statistics.
func (d *Dispatcher) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Stats{
		Received: d.received,
		Routed:   d.routed,
		Unknown:  d.unknown,
	}
}

func (d *Dispatcher) routeLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case msg, ok := <-d.input:
			if !ok {
				return
			}
			d.route(msg)
		}
	}
}

func (d *Dispatcher) route(msg feed.Message) {
	d.mu.Lock()
	d.received++
	d.mu.Unlock()

	p, ok := d.processors[msg.Schema]
	if !ok {
		d.mu.Lock()
		d.unknown++
		d.mu.Unlock()
		d.logger.Debug("no processor for schema", "schema", msg.Schema)
		return
	}

	if depth := p.QueueDepth(); depth > d.queueWarnDepth {
		d.logger.Warn("processor queue backing up",
			"schema", msg.Schema,
			"depth", depth,
		)
	}

	p.Enqueue(msg)

	d.mu.Lock()
	d.routed++
	d.mu.Unlock()
}
