package sink

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConfig contains NATS sink configuration
type NATSConfig struct {
	URL            string
	Subject        string
	ConnectTimeout time.Duration
}

// NATS publishes decoded messages as JSON on a NATS subject
type NATS struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATS connects to the configured server and returns a publishing sink
func NewNATS(cfg NATSConfig, logger *slog.Logger) (*NATS, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats url cannot be empty")
	}
	if cfg.Subject == "" {
		return nil, fmt.Errorf("nats subject cannot be empty")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("tbsk-receiver"),
		nats.Timeout(cfg.ConnectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	logger.Info("Connected to NATS",
		slog.String("url", cfg.URL),
		slog.String("subject", cfg.Subject),
	)

	return &NATS{
		conn:    conn,
		subject: cfg.Subject,
		logger:  logger,
	}, nil
}

// Deliver publishes the JSON-encoded message
func (n *NATS) Deliver(msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if err := n.conn.Publish(n.subject, payload); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

// Close drains and closes the connection
func (n *NATS) Close() error {
	if n.conn == nil {
		return nil
	}

	n.logger.Info("Closing NATS connection")
	if err := n.conn.Drain(); err != nil {
		return fmt.Errorf("drain nats connection: %w", err)
	}
	return nil
}
