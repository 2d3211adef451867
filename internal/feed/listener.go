package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/svdwoude/edmarket-data/internal/config"
	"github.com/svdwoude/edmarket-data/internal/model"
)

// Message is one decoded, schema-filtered relay message. Exactly one of
// Commodity and Journal is set, matching Schema.
type Message struct {
	Schema    string
	Header    Header
	Commodity *CommodityMessage
	Journal   *JournalMessage
	Timestamp time.Time
	Received  time.Time
}

// stationKey collapses commodity snapshots per station within a batch.
type stationKey struct {
	system  string
	station string
}

// Listener consumes the relay and emits deduplicated message batches.
type Listener struct {
	cfg    config.FeedConfig
	logger *slog.Logger

	dial   func() Client
	client Client

	out chan Message

	lastReceived time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewListener creates a listener. A nil dial uses the default websocket
// client; tests inject their own.
func NewListener(cfg config.FeedConfig, dial func() Client, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	if dial == nil {
		dial = func() Client {
			return NewClient(ClientConfig{
				URL:        cfg.URL,
				BufferSize: cfg.BufferSize,
			}, logger)
		}
	}
	return &Listener{
		cfg:    cfg,
		logger: logger,
		dial:   dial,
		out:    make(chan Message, cfg.BufferSize),
	}
}

// Start connects to the relay and begins batching.
func (l *Listener) Start(ctx context.Context) error {
	l.ctx, l.cancel = context.WithCancel(ctx)

	l.client = l.dial()
	if err := l.client.Connect(l.ctx); err != nil {
		return err
	}
	l.lastReceived = time.Now()

	l.wg.Add(1)
	go l.run()

	l.logger.Info("feed listener started",
		"url", l.cfg.URL,
		"min_batch_time", l.cfg.MinBatchTime,
		"max_batch_time", l.cfg.MaxBatchTime,
		"burst_limit", l.cfg.BurstLimit,
	)
	return nil
}

// Stop gracefully shuts down the listener.
func (l *Listener) Stop(ctx context.Context) error {
	l.logger.Info("stopping feed listener")

	if l.cancel != nil {
		l.cancel()
	}
	if l.client != nil {
		l.client.Close()
	}

	// The output channel closes only after the run loop has fully exited,
	// so a timed-out Stop cannot close it under an in-flight emit.
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(l.out)
		close(done)
	}()

	select {
	case <-done:
		l.logger.Info("feed listener stopped")
	case <-ctx.Done():
		l.logger.Warn("feed listener stop timed out")
	}
	return nil
}

// Messages returns the channel of batched messages.
func (l *Listener) Messages() <-chan Message {
	return l.out
}

func (l *Listener) run() {
	defer l.wg.Done()

	for {
		select {
		case <-l.ctx.Done():
			return
		default:
			l.cycle()
		}
	}
}

// cycle collects one batch. Collection runs until the soft cutoff, or the
// hard cutoff when bursts keep extending it, then everything gathered is
// flushed downstream.
func (l *Listener) cycle() {
	now := time.Now()
	hard := now.Add(l.cfg.MaxBatchTime)
	soft := now.Add(l.cfg.MinBatchTime)

	commodities := make(map[stationKey]Message)
	var journals []Message
	bursts := 0

	for {
		if time.Since(l.lastReceived) > l.cfg.ReconnectTimeout {
			l.logger.Warn("no relay data within reconnect timeout, reconnecting",
				"timeout", l.cfg.ReconnectTimeout)
			if !l.reconnect() {
				return
			}
		}

		cutoff := soft
		if hard.Before(cutoff) {
			cutoff = hard
		}
		wait := time.Until(cutoff)
		if wait <= 0 {
			break
		}

		timer := time.NewTimer(wait)
		select {
		case <-l.ctx.Done():
			timer.Stop()
			return

		case err := <-l.client.Errors():
			timer.Stop()
			l.logger.Warn("relay connection error", "error", err)
			if !l.reconnect() {
				return
			}

		case frame, ok := <-l.client.Frames():
			timer.Stop()
			if !ok {
				if !l.reconnect() {
					return
				}
				continue
			}
			l.lastReceived = time.Now()
			bursts++

			if msg, ok := l.decode(frame); ok {
				l.collect(msg, commodities, &journals)
			}

			// A sustained burst means a backlog is draining; stop extending
			// the batch and flush soon.
			if bursts >= l.cfg.BurstLimit {
				if s := time.Now().Add(500 * time.Millisecond); s.Before(soft) {
					soft = s
				}
			}

		case <-timer.C:
		}
	}

	for _, m := range journals {
		l.emit(m)
	}
	for _, m := range commodities {
		l.emit(m)
	}
}

// decode turns a raw frame into a typed message, dropping anything that is
// not a supported schema or fails to parse.
func (l *Listener) decode(frame Frame) (Message, bool) {
	env, err := DecodeFrame(frame.Data)
	if err != nil {
		l.logger.Debug("dropping malformed frame", "error", err)
		return Message{}, false
	}

	msg := Message{
		Schema:   env.SchemaRef,
		Header:   env.Header,
		Received: frame.ReceivedAt,
	}

	switch env.SchemaRef {
	case SchemaCommodity:
		var cm CommodityMessage
		if err := json.Unmarshal(env.Message, &cm); err != nil {
			l.logger.Debug("dropping bad commodity message", "error", err)
			return Message{}, false
		}
		ts, err := model.ParseFeedTimestamp(cm.Timestamp)
		if err != nil {
			l.logger.Debug("dropping commodity message with bad timestamp",
				"timestamp", cm.Timestamp)
			return Message{}, false
		}
		msg.Commodity = &cm
		msg.Timestamp = ts
		return msg, true

	case SchemaJournal:
		var jm JournalMessage
		if err := json.Unmarshal(env.Message, &jm); err != nil {
			l.logger.Debug("dropping bad journal message", "error", err)
			return Message{}, false
		}
		ts, err := model.ParseFeedTimestamp(jm.Timestamp)
		if err != nil {
			l.logger.Debug("dropping journal message with bad timestamp",
				"timestamp", jm.Timestamp)
			return Message{}, false
		}
		msg.Journal = &jm
		msg.Timestamp = ts
		return msg, true

	default:
		return Message{}, false
	}
}

// collect merges a message into the current batch. Commodity snapshots are
// deduplicated per station, keeping the newest timestamp; journal messages
// pass through untouched.
func (l *Listener) collect(msg Message, commodities map[stationKey]Message, journals *[]Message) {
	if msg.Journal != nil {
		*journals = append(*journals, msg)
		return
	}

	key := stationKey{
		system:  strings.ToUpper(msg.Commodity.SystemName),
		station: strings.ToUpper(msg.Commodity.StationName),
	}
	if existing, ok := commodities[key]; ok && existing.Timestamp.After(msg.Timestamp) {
		return
	}
	commodities[key] = msg
}

func (l *Listener) emit(msg Message) {
	select {
	case l.out <- msg:
	case <-l.ctx.Done():
	}
}

// reconnect replaces the client, retrying until connected or shut down.
// It reports false when the listener is shutting down.
func (l *Listener) reconnect() bool {
	l.client.Close()

	for {
		select {
		case <-l.ctx.Done():
			return false
		default:
		}

		l.client = l.dial()
		if err := l.client.Connect(l.ctx); err != nil {
			l.logger.Warn("relay reconnect failed",
				"error", err,
				"retry_in", l.cfg.ReconnectDelay,
			)
			select {
			case <-l.ctx.Done():
				return false
			case <-time.After(l.cfg.ReconnectDelay):
			}
			continue
		}

		l.lastReceived = time.Now()
		l.logger.Info("relay reconnected")
		return true
	}
}
