package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hirossan4049/tbsk-receiver/internal/capture"
	"github.com/hirossan4049/tbsk-receiver/internal/config"
	"github.com/hirossan4049/tbsk-receiver/internal/decode"
	"github.com/hirossan4049/tbsk-receiver/internal/metrics"
	"github.com/hirossan4049/tbsk-receiver/internal/receiver"
	"github.com/hirossan4049/tbsk-receiver/internal/server"
	"github.com/hirossan4049/tbsk-receiver/internal/sink"
	"github.com/hirossan4049/tbsk-receiver/internal/trigger"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "tbsk-receiver"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.String("backend", cfg.Capture.Backend),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Float64("ring_buffer_seconds", cfg.Capture.RingBufferSeconds),
		slog.Int("process_chunk_size", cfg.Capture.ProcessChunkSize),
		slog.Bool("decode_on_silence", cfg.Trigger.DecodeOnSilence),
		slog.Bool("use_async_decode", cfg.Decode.UseAsyncDecode),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Create the capture device
	var (
		dev       capture.Device
		udpDevice *capture.UDPDevice
	)
	switch cfg.Capture.Backend {
	case config.BackendUDP:
		udpDevice, err = capture.NewUDPDevice(capture.UDPConfig{
			BindAddress:    cfg.Capture.UDP.BindAddress,
			Port:           cfg.Capture.UDP.Port,
			ReadBufferSize: cfg.Capture.UDP.ReadBufferSize,
			PCMFormat:      cfg.Capture.UDP.PCMFormat,
			RingCapacity:   cfg.RingCapacity(),
		}, logger)
		if err != nil {
			logger.Error("Failed to create UDP capture device", slog.String("error", err.Error()))
			os.Exit(1)
		}
		udpDevice.SetMetrics(appMetrics)
		dev = udpDevice
	case config.BackendMemory:
		memDevice, err := capture.NewMemDevice(cfg.RingCapacity())
		if err != nil {
			logger.Error("Failed to create memory capture device", slog.String("error", err.Error()))
			os.Exit(1)
		}
		dev = memDevice
	}
	logger.Info("Capture device initialized", slog.String("backend", cfg.Capture.Backend))

	// Build the decode trigger
	var trig trigger.Trigger
	if cfg.Trigger.DecodeOnSilence {
		trig, err = trigger.NewSilenceTrigger(
			cfg.Trigger.SilenceRMSThreshold,
			cfg.Trigger.GetSilenceHoldTime(),
			cfg.Trigger.MinBufferSeconds,
		)
	} else {
		trig, err = trigger.NewDurationTrigger(cfg.Trigger.DecodeThresholdSeconds)
	}
	if err != nil {
		logger.Error("Failed to create trigger", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Build the message sink chain
	channelSink, err := sink.NewChannel(cfg.Sink.ChannelSize, logger)
	if err != nil {
		logger.Error("Failed to create channel sink", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sinks := []sink.Sink{channelSink}

	var webhookSink *sink.Webhook
	if cfg.Sink.Webhook.Enabled {
		webhookSink, err = sink.NewWebhook(sink.WebhookConfig{
			Endpoint:      cfg.Sink.Webhook.Endpoint,
			AuthToken:     cfg.Sink.Webhook.AuthToken,
			Timeout:       cfg.Sink.Webhook.GetTimeout(),
			MaxRetries:    cfg.Sink.Webhook.MaxRetries,
			MaxConcurrent: cfg.Sink.Webhook.MaxConcurrent,
		})
		if err != nil {
			logger.Error("Failed to create webhook sink", slog.String("error", err.Error()))
			os.Exit(1)
		}
		sinks = append(sinks, webhookSink)
		logger.Info("Webhook sink initialized", slog.String("endpoint", cfg.Sink.Webhook.Endpoint))
	}

	var natsSink *sink.NATS
	if cfg.Sink.NATS.Enabled {
		natsSink, err = sink.NewNATS(sink.NATSConfig{
			URL:            cfg.Sink.NATS.URL,
			Subject:        cfg.Sink.NATS.Subject,
			ConnectTimeout: cfg.Sink.NATS.GetConnectTimeout(),
		}, logger)
		if err != nil {
			logger.Error("Failed to create NATS sink", slog.String("error", err.Error()))
			os.Exit(1)
		}
		sinks = append(sinks, natsSink)
		logger.Info("NATS sink initialized",
			slog.String("url", cfg.Sink.NATS.URL),
			slog.String("subject", cfg.Sink.NATS.Subject),
		)
	}

	out := sink.NewMulti(logger, sinks...)

	// Build the decode scheduler around the demodulator
	demod, err := newDemodulator(cfg.Decode.Demodulator, cfg.Audio.SampleRate, logger)
	if err != nil {
		logger.Error("Failed to create demodulator", slog.String("error", err.Error()))
		os.Exit(1)
	}
	sched, err := decode.NewScheduler(demod, out,
		decode.SchedulerConfig{Async: cfg.Decode.UseAsyncDecode}, logger)
	if err != nil {
		logger.Error("Failed to create decode scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Build the recording controller
	controller, err := receiver.NewController(receiver.Config{
		DeviceID:     cfg.Capture.DeviceID,
		Channels:     cfg.Audio.Channels,
		SampleRate:   cfg.Audio.SampleRate,
		ChunkSize:    cfg.Capture.ProcessChunkSize,
		TickInterval: cfg.Capture.GetTickInterval(),
		FlushOnStop:  cfg.Decode.FlushOnStop,
	}, dev, trig, sched, logger)
	if err != nil {
		logger.Error("Failed to create controller", slog.String("error", err.Error()))
		os.Exit(1)
	}
	controller.SetMetrics(appMetrics)
	logger.Info("Recording controller initialized")

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, controller, udpDevice, appMetrics)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Start recording
	if err := controller.Start(); err != nil {
		logger.Error("Failed to start recording", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Drive ticks until shutdown
	go controller.Run(ctx)

	// Log decoded messages as they arrive on the channel sink
	go func() {
		for msg := range channelSink.Messages() {
			logger.Info("Message received",
				slog.String("id", msg.ID),
				slog.String("text", msg.Text),
				slog.Bool("hex", msg.Hex),
				slog.Duration("decode_time", msg.DecodeTime),
			)
		}
	}()

	// Start HTTP server (if enabled)
	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")
	cancel()

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop recording; flushes the buffered tail per configuration
	if err := controller.Stop(); err != nil {
		logger.Error("Error stopping recording", slog.String("error", err.Error()))
	}

	// Let any in-flight async decode finish before closing sinks
	sched.Wait()

	if webhookSink != nil {
		if err := webhookSink.Close(); err != nil {
			logger.Error("Error closing webhook sink", slog.String("error", err.Error()))
		}
	}
	if natsSink != nil {
		if err := natsSink.Close(); err != nil {
			logger.Error("Error closing NATS sink", slog.String("error", err.Error()))
		}
	}

	// Get final statistics
	stats := controller.GetStats()
	logger.Info("Final receiver statistics",
		slog.Uint64("ticks", stats.Ticks),
		slog.Uint64("samples_captured", stats.Reader.TotalSamples),
		slog.Uint64("decode_attempts", stats.Decode.Attempts),
		slog.Uint64("messages_emitted", stats.Decode.MessagesEmitted),
		slog.Uint64("dropped_triggers", stats.Decode.DroppedTriggers),
	)

	logger.Info("Service stopped")
}

// newDemodulator builds the demodulator from configuration. Without an
// endpoint the receiver still runs the full capture and scheduling pipeline;
// every window simply reports no frame.
func newDemodulator(cfg config.DemodulatorConfig, sampleRate int, logger *slog.Logger) (decode.Demodulator, error) {
	if cfg.Endpoint == "" {
		logger.Warn("No demodulator endpoint configured, decode attempts will find no frames")
		return decode.DemodulatorFunc(func(samples []float64) ([]byte, error) {
			return nil, nil
		}), nil
	}

	logger.Info("HTTP demodulator initialized", slog.String("endpoint", cfg.Endpoint))
	return decode.NewHTTPDemodulator(decode.HTTPDemodConfig{
		Endpoint:   cfg.Endpoint,
		SampleRate: sampleRate,
		Timeout:    cfg.GetTimeout(),
	})
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
