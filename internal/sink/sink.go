package sink

import (
	"fmt"
	"log/slog"
	"time"
)

// Message is a decoded payload handed to sinks. Text holds the recovered
// UTF-8 string, or the "[HEX] ..." rendering when Hex is set.
type Message struct {
	ID          string        `json:"id"`
	Text        string        `json:"text"`
	Hex         bool          `json:"hex"`
	DecodedAt   time.Time     `json:"decoded_at"`
	DecodeTime  time.Duration `json:"decode_time"`
	SampleCount int           `json:"sample_count"`
	BitCount    int           `json:"bit_count"`
}

// Sink receives decoded messages. Deliver is called at most once per decode
// that yields at least one bit, from the decode worker goroutine.
type Sink interface {
	Deliver(msg Message) error
}

// Func adapts a plain function to the Sink interface
type Func func(msg Message) error

// Deliver invokes the function
func (f Func) Deliver(msg Message) error {
	return f(msg)
}

// Channel forwards messages into a buffered channel, marshaling delivery
// from the decode worker to whatever goroutine consumes the channel.
// When the channel is full the message is dropped with a warning instead of
// blocking the decode worker.
type Channel struct {
	ch      chan Message
	logger  *slog.Logger
	dropped uint64
}

// NewChannel creates a channel sink with the given buffer size
func NewChannel(size int, logger *slog.Logger) (*Channel, error) {
	if size < 1 {
		return nil, fmt.Errorf("channel size must be at least 1, got %d", size)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Channel{
		ch:     make(chan Message, size),
		logger: logger,
	}, nil
}

// Deliver enqueues the message, dropping it if the consumer lags
func (c *Channel) Deliver(msg Message) error {
	select {
	case c.ch <- msg:
		return nil
	default:
		c.dropped++
		c.logger.Warn("Message channel full, dropping message",
			slog.String("message_id", msg.ID),
			slog.Uint64("dropped_total", c.dropped),
		)
		return fmt.Errorf("message channel full")
	}
}

// Messages returns the receive side of the sink
func (c *Channel) Messages() <-chan Message {
	return c.ch
}

// Multi fans a message out to several sinks. A failing sink is logged and
// does not stop delivery to the others.
type Multi struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewMulti creates a fan-out sink
func NewMulti(logger *slog.Logger, sinks ...Sink) *Multi {
	if logger == nil {
		logger = slog.Default()
	}

	return &Multi{sinks: sinks, logger: logger}
}

// Deliver forwards the message to every sink
func (m *Multi) Deliver(msg Message) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Deliver(msg); err != nil {
			m.logger.Warn("Sink delivery failed",
				slog.String("message_id", msg.ID),
				slog.String("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
