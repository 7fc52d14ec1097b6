package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hirossan4049/tbsk-receiver/internal/capture"
	"github.com/hirossan4049/tbsk-receiver/internal/config"
	"github.com/hirossan4049/tbsk-receiver/internal/metrics"
	"github.com/hirossan4049/tbsk-receiver/internal/receiver"
)

// HTTPServer provides HTTP API endpoints for monitoring and management
type HTTPServer struct {
	server     *http.Server
	logger     *slog.Logger
	config     *config.Config
	controller *receiver.Controller
	udpDevice  *capture.UDPDevice // nil when the memory backend is configured
	metrics    *metrics.Metrics

	// Server state
	startTime time.Time
	mu        sync.RWMutex
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger,
	appConfig *config.Config, controller *receiver.Controller, udpDevice *capture.UDPDevice, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:     logger,
		config:     appConfig,
		controller: controller,
		udpDevice:  udpDevice,
		metrics:    m,
		startTime:  time.Now(),
	}

	// Create HTTP server with routes
	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Statistics endpoints
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))
	mux.HandleFunc("/stats/decode", h.withMetrics("/stats/decode", h.handleDecodeStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		// Call the original handler
		handler(ww, r)

		// Record metrics
		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		// Record error if status code indicates an error
		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	ctrlStats := h.controller.GetStats()

	components := map[string]interface{}{
		"receiver": map[string]interface{}{
			"status":           "running",
			"state":            ctrlStats.State,
			"buffered_seconds": ctrlStats.BufferedSeconds,
			"decode_in_flight": ctrlStats.Decode.Decoding,
		},
	}

	if h.udpDevice != nil {
		udpStats := h.udpDevice.GetStats()
		components["udp_capture"] = map[string]interface{}{
			"status":            "running",
			"packets_received":  udpStats.PacketsReceived,
			"packets_processed": udpStats.PacketsProcessed,
			"decode_errors":     udpStats.DecodeErrors,
			"packets_dropped":   udpStats.PacketsDropped,
		}
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "tbsk-receiver",
			"version": "1.0.0",
		},
		"components": components,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"audio": map[string]interface{}{
			"sample_rate": h.config.Audio.SampleRate,
			"channels":    h.config.Audio.Channels,
		},
		"capture": map[string]interface{}{
			"backend":             h.config.Capture.Backend,
			"device_id":           h.config.Capture.DeviceID,
			"ring_buffer_seconds": h.config.Capture.RingBufferSeconds,
			"process_chunk_size":  h.config.Capture.ProcessChunkSize,
			"tick_interval_ms":    h.config.Capture.TickIntervalMS,
			"udp_bind_address":    h.config.Capture.UDP.BindAddress,
			"udp_port":            h.config.Capture.UDP.Port,
			"pcm_format":          h.config.Capture.UDP.PCMFormat,
		},
		"trigger": map[string]interface{}{
			"decode_on_silence":        h.config.Trigger.DecodeOnSilence,
			"silence_rms_threshold":    h.config.Trigger.SilenceRMSThreshold,
			"silence_hold_time":        h.config.Trigger.SilenceHoldTime,
			"min_buffer_seconds":       h.config.Trigger.MinBufferSeconds,
			"decode_threshold_seconds": h.config.Trigger.DecodeThresholdSeconds,
		},
		"decode": map[string]interface{}{
			"use_async_decode": h.config.Decode.UseAsyncDecode,
			"flush_on_stop":    h.config.Decode.FlushOnStop,
		},
		"sink": map[string]interface{}{
			"channel_size":     h.config.Sink.ChannelSize,
			"webhook_enabled":  h.config.Sink.Webhook.Enabled,
			"webhook_endpoint": h.config.Sink.Webhook.Endpoint,
			// Note: auth token is intentionally omitted for security
			"nats_enabled": h.config.Sink.NATS.Enabled,
			"nats_subject": h.config.Sink.NATS.Subject,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctrlStats := h.controller.GetStats()
	uptime := time.Since(h.startTime)

	stats := map[string]interface{}{
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC(),
		"receiver":  ctrlStats,
	}

	if h.udpDevice != nil {
		stats["udp"] = h.udpDevice.GetStats()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleDecodeStats implements the /stats/decode endpoint
func (h *HTTPServer) handleDecodeStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := h.controller.GetStats().Decode

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "TBSK Acoustic Modem Receiver",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":             "API documentation",
			"GET /health":       "Service health check",
			"GET /config":       "Get service configuration",
			"GET /stats":        "Get receiver statistics",
			"GET /stats/decode": "Get decode scheduler statistics",
			"GET /metrics":      "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
