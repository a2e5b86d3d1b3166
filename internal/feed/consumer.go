package feed

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Consumer maintains the websocket subscription to the mempool feed and
// emits decoded swaps on a buffered channel. Malformed messages are input
// errors: dropped at this boundary with a debug trace, never propagated.
type Consumer struct {
	url              string
	dialTimeout      time.Duration
	reconnectInitial time.Duration
	reconnectMax     time.Duration
	out              chan *DecodedSwap
	logger           *zap.Logger
}

// Config holds consumer configuration.
type Config struct {
	URL              string
	DialTimeout      time.Duration
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
	BufferSize       int
	Logger           *zap.Logger
}

// New creates a feed consumer.
func New(cfg *Config) (c *Consumer, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.URL == "" {
		return nil, errors.New("feed URL cannot be empty")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.BufferSize <= 0 {
		return nil, errors.New("buffer size must be positive")
	}

	c = &Consumer{
		url:              cfg.URL,
		dialTimeout:      cfg.DialTimeout,
		reconnectInitial: cfg.ReconnectInitial,
		reconnectMax:     cfg.ReconnectMax,
		out:              make(chan *DecodedSwap, cfg.BufferSize),
		logger:           cfg.Logger,
	}

	return c, nil
}

// Events returns the channel of decoded swaps. Closed when Run returns.
func (c *Consumer) Events() <-chan *DecodedSwap {
	return c.out
}

// Run connects and consumes until the context is cancelled, reconnecting
// with exponential backoff on connection loss.
func (c *Consumer) Run(ctx context.Context) error {
	defer close(c.out)

	delay := c.reconnectInitial
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, err := c.dial(ctx)
		if err != nil {
			c.logger.Warn("feed-connect-failed",
				zap.String("url", c.url),
				zap.Duration("retry_in", delay),
				zap.Error(err))
			ReconnectsTotal.Inc()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}

			delay *= 2
			if delay > c.reconnectMax {
				delay = c.reconnectMax
			}
			continue
		}

		c.logger.Info("feed-connected", zap.String("url", c.url))
		delay = c.reconnectInitial

		c.readLoop(ctx, conn)
		_ = conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("feed-disconnected", zap.String("url", c.url))
		ReconnectsTotal.Inc()
	}
}

func (c *Consumer) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.dialTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	return conn, err
}

// readLoop consumes messages until the connection breaks or ctx ends.
func (c *Consumer) readLoop(ctx context.Context, conn *websocket.Conn) {
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		MessagesTotal.Inc()

		swap, err := DecodeMessage(raw)
		if err != nil {
			MessagesDroppedTotal.Inc()
			c.logger.Debug("feed-message-dropped", zap.Error(err))
			continue
		}

		select {
		case c.out <- swap:
		default:
			// Backpressure: an opportunity older than the queue is a
			// lost opportunity anyway.
			MessagesDroppedTotal.Inc()
			c.logger.Warn("feed-buffer-full",
				zap.String("tx_hash", swap.TxHash.Hex()))
		}
	}
}
