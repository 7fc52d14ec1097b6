package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"
)

// WebhookConfig contains webhook sink configuration
type WebhookConfig struct {
	Endpoint      string
	AuthToken     string
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int
}

// Webhook POSTs decoded messages as JSON to an HTTP endpoint, with retry,
// exponential backoff, and a concurrency cap so a slow receiver cannot pile
// up unbounded in-flight requests.
type Webhook struct {
	config     WebhookConfig
	httpClient *http.Client
	semaphore  chan struct{}

	// Statistics
	totalDeliveries uint64
	successes       uint64
	failures        uint64
	totalRetries    uint64

	mu sync.RWMutex
}

// WebhookStats represents webhook sink statistics
type WebhookStats struct {
	TotalDeliveries uint64  `json:"total_deliveries"`
	Successes       uint64  `json:"successes"`
	Failures        uint64  `json:"failures"`
	SuccessRate     float64 `json:"success_rate"`
	TotalRetries    uint64  `json:"total_retries"`
}

// NewWebhook creates a webhook sink
func NewWebhook(config WebhookConfig) (*Webhook, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 3
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Webhook{
		config:     config,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, config.MaxConcurrent),
	}, nil
}

// Deliver posts the message, retrying transient failures with backoff
func (w *Webhook) Deliver(msg Message) error {
	w.semaphore <- struct{}{}
	defer func() { <-w.semaphore }()

	w.mu.Lock()
	w.totalDeliveries++
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(),
		w.config.Timeout*time.Duration(w.config.MaxRetries+1))
	defer cancel()

	var lastErr error

	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			w.mu.Lock()
			w.totalRetries++
			w.mu.Unlock()

			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				w.recordFailure()
				return ctx.Err()
			}
		}

		err := w.doRequest(ctx, msg)
		if err == nil {
			w.mu.Lock()
			w.successes++
			w.mu.Unlock()
			return nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	w.recordFailure()
	return fmt.Errorf("webhook delivery failed after %d attempts: %w", w.config.MaxRetries+1, lastErr)
}

// doRequest performs a single POST of the JSON-encoded message
func (w *Webhook) doRequest(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "tbsk-receiver/1.0")
	if w.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+w.config.AuthToken)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// isRetryableError reports whether a delivery error is worth retrying.
// Server-side errors, rate limiting, and connection failures are; client
// errors are not.
func isRetryableError(err error) bool {
	if err == context.DeadlineExceeded {
		return true
	}

	errStr := err.Error()

	if strings.Contains(errStr, "HTTP error 5") {
		return true
	}
	if strings.Contains(errStr, "HTTP error 429") {
		return true
	}
	if strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "refused") {
		return true
	}

	return false
}

func (w *Webhook) recordFailure() {
	w.mu.Lock()
	w.failures++
	w.mu.Unlock()
}

// GetStats returns current webhook delivery statistics
func (w *Webhook) GetStats() WebhookStats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	successRate := float64(0)
	if w.totalDeliveries > 0 {
		successRate = float64(w.successes) / float64(w.totalDeliveries) * 100
	}

	return WebhookStats{
		TotalDeliveries: w.totalDeliveries,
		Successes:       w.successes,
		Failures:        w.failures,
		SuccessRate:     successRate,
		TotalRetries:    w.totalRetries,
	}
}

// Close waits for in-flight deliveries to finish
func (w *Webhook) Close() error {
	for i := 0; i < w.config.MaxConcurrent; i++ {
		w.semaphore <- struct{}{}
	}
	return nil
}
