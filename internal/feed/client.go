package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrNotConnected tags transport failures reported through Errors, so
	// callers can match them with errors.Is.
	ErrNotConnected = errors.New("feed: not connected")

	// ErrAlreadyClosed is returned when connecting an already closed client.
	ErrAlreadyClosed = errors.New("feed: client closed")
)

// Frame is one raw relay frame with its local receive time.
type Frame struct {
	Data       []byte
	ReceivedAt time.Time
}

// Client is a single subscription connection to the relay.
type Client interface {
	// Connect establishes the connection and starts the read loop.
	Connect(ctx context.Context) error

	// Close gracefully closes the connection.
	Close() error

	// Frames returns the channel of received raw frames.
	Frames() <-chan Frame

	// Errors returns a channel of connection errors.
	Errors() <-chan error

	// IsConnected returns current connection state.
	IsConnected() bool
}

// ClientConfig holds connection settings for one relay client.
type ClientConfig struct {
	URL        string
	BufferSize int
}

type client struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn *websocket.Conn

	frames chan Frame
	errors chan error
	done   chan struct{}

	mu        sync.RWMutex
	connected bool
	closed    bool
}

// NewClient creates a relay client.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &client{
		cfg:    cfg,
		logger: logger,
		frames: make(chan Frame, cfg.BufferSize),
		errors: make(chan error, 1),
		done:   make(chan struct{}),
	}
}

func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	// Relay pings keep idle connections alive; answer them and nothing else.
	conn.SetPingHandler(func(data string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	go c.readLoop()

	c.logger.Debug("relay connected", "url", c.cfg.URL)
	return nil
}

func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	c.mu.Unlock()

	close(c.done)

	if c.conn != nil {
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return c.conn.Close()
	}
	return nil
}

func (c *client) Frames() <-chan Frame {
	return c.frames
}

func (c *client) Errors() <-chan error {
	return c.errors
}

func (c *client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// lostErr wraps a transport failure under the ErrNotConnected sentinel.
func lostErr(err error) error {
	return fmt.Errorf("%w: %v", ErrNotConnected, err)
}

// readLoop reads binary frames from the socket into the frames channel.
func (c *client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			// Ignore errors after Close() is called
			select {
			case <-c.done:
				return
			default:
				select {
				case c.errors <- lostErr(err):
				default:
				}
				return
			}
		}

		frame := Frame{
			Data:       data,
			ReceivedAt: receivedAt,
		}

		select {
		case c.frames <- frame:
		case <-c.done:
			return
		default:
			c.logger.Warn("frame buffer full, dropping frame")
		}
	}
}
