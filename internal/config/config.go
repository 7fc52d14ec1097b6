package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hirossan4049/tbsk-receiver/internal/capture"
)

// Capture backends.
const (
	BackendUDP    = "udp"
	BackendMemory = "memory"
)

// Config represents the complete service configuration
type Config struct {
	Audio   AudioConfig   `yaml:"audio"`
	Capture CaptureConfig `yaml:"capture"`
	Trigger TriggerConfig `yaml:"trigger"`
	Decode  DecodeConfig  `yaml:"decode"`
	Sink    SinkConfig    `yaml:"sink"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
}

// AudioConfig contains the audio format parameters
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"` // Hz
	Channels   int `yaml:"channels"`
}

// CaptureConfig contains capture device configuration
type CaptureConfig struct {
	Backend           string           `yaml:"backend"` // "udp" or "memory"
	DeviceID          string           `yaml:"device_id"`
	RingBufferSeconds float64          `yaml:"ring_buffer_seconds"`
	ProcessChunkSize  int              `yaml:"process_chunk_size"` // samples per tick
	TickIntervalMS    int              `yaml:"tick_interval_ms"`
	UDP               UDPCaptureConfig `yaml:"udp"`
}

// UDPCaptureConfig contains the UDP capture backend configuration
type UDPCaptureConfig struct {
	BindAddress    string `yaml:"bind_address"`
	Port           int    `yaml:"port"`
	ReadBufferSize int    `yaml:"read_buffer_size"`
	PCMFormat      string `yaml:"pcm_format"` // "u8" or "s16le"
}

// TriggerConfig selects and parameterizes the decode trigger. Exactly one
// trigger mode is active: silence-gated when DecodeOnSilence is true,
// duration-threshold otherwise.
type TriggerConfig struct {
	DecodeOnSilence        bool    `yaml:"decode_on_silence"`
	SilenceRMSThreshold    float64 `yaml:"silence_rms_threshold"`
	SilenceHoldTime        float64 `yaml:"silence_hold_time"` // seconds
	MinBufferSeconds       float64 `yaml:"min_buffer_seconds"`
	DecodeThresholdSeconds float64 `yaml:"decode_threshold_seconds"`
}

// DecodeConfig contains decode scheduling configuration
type DecodeConfig struct {
	UseAsyncDecode bool              `yaml:"use_async_decode"`
	FlushOnStop    bool              `yaml:"flush_on_stop"`
	Demodulator    DemodulatorConfig `yaml:"demodulator"`
}

// DemodulatorConfig points at the external demodulation service. An empty
// endpoint leaves the receiver running with a frameless demodulator.
type DemodulatorConfig struct {
	Endpoint string `yaml:"endpoint"`
	Timeout  int    `yaml:"timeout"` // seconds
}

// SinkConfig configures message delivery
type SinkConfig struct {
	ChannelSize int               `yaml:"channel_size"`
	Webhook     WebhookSinkConfig `yaml:"webhook"`
	NATS        NATSSinkConfig    `yaml:"nats"`
}

// WebhookSinkConfig configures the HTTP webhook sink
type WebhookSinkConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Endpoint      string `yaml:"endpoint"`
	AuthToken     string `yaml:"auth_token"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxRetries    int    `yaml:"max_retries"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// NATSSinkConfig configures the NATS publisher sink
type NATSSinkConfig struct {
	Enabled        bool   `yaml:"enabled"`
	URL            string `yaml:"url"`
	Subject        string `yaml:"subject"`
	ConnectTimeout int    `yaml:"connect_timeout"` // seconds
}

// HTTPConfig contains the monitoring HTTP API configuration
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Trigger.Validate(); err != nil {
		return fmt.Errorf("trigger config: %w", err)
	}

	if err := c.Decode.Validate(); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	if err := c.Sink.Validate(); err != nil {
		return fmt.Errorf("sink config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	return nil
}

// Validate validates capture configuration
func (c *CaptureConfig) Validate() error {
	if c.Backend != BackendUDP && c.Backend != BackendMemory {
		return fmt.Errorf("backend must be %q or %q, got %q", BackendUDP, BackendMemory, c.Backend)
	}

	if c.RingBufferSeconds <= 0 {
		return fmt.Errorf("ring_buffer_seconds must be positive, got %f", c.RingBufferSeconds)
	}

	if c.ProcessChunkSize < 64 {
		return fmt.Errorf("process_chunk_size must be at least 64 samples, got %d", c.ProcessChunkSize)
	}

	if c.TickIntervalMS < 1 {
		return fmt.Errorf("tick_interval_ms must be at least 1, got %d", c.TickIntervalMS)
	}

	if c.Backend == BackendUDP {
		if c.DeviceID != "" {
			if _, _, err := net.SplitHostPort(c.DeviceID); err != nil {
				return fmt.Errorf("device_id for the udp backend must be empty or a host:port bind address, got %q: %w", c.DeviceID, err)
			}
		}

		if c.UDP.Port < 1 || c.UDP.Port > 65535 {
			return fmt.Errorf("udp port must be between 1 and 65535, got %d", c.UDP.Port)
		}

		if c.UDP.BindAddress == "" {
			return fmt.Errorf("udp bind_address cannot be empty")
		}

		if !capture.ValidPCMFormat(c.UDP.PCMFormat) {
			return fmt.Errorf("udp pcm_format must be %q or %q, got %q",
				capture.FormatU8, capture.FormatS16LE, c.UDP.PCMFormat)
		}
	}

	return nil
}

// Validate validates trigger configuration
func (t *TriggerConfig) Validate() error {
	if t.DecodeOnSilence {
		if t.SilenceRMSThreshold <= 0 || t.SilenceRMSThreshold >= 1 {
			return fmt.Errorf("silence_rms_threshold must be in (0, 1), got %f", t.SilenceRMSThreshold)
		}

		if t.SilenceHoldTime <= 0 {
			return fmt.Errorf("silence_hold_time must be positive, got %f", t.SilenceHoldTime)
		}

		if t.MinBufferSeconds < 0 {
			return fmt.Errorf("min_buffer_seconds cannot be negative, got %f", t.MinBufferSeconds)
		}
	} else {
		if t.DecodeThresholdSeconds <= 0 {
			return fmt.Errorf("decode_threshold_seconds must be positive, got %f", t.DecodeThresholdSeconds)
		}
	}

	return nil
}

// Validate validates decode configuration
func (d *DecodeConfig) Validate() error {
	if d.Demodulator.Timeout < 0 {
		return fmt.Errorf("demodulator timeout cannot be negative, got %d", d.Demodulator.Timeout)
	}

	return nil
}

// Validate validates sink configuration
func (s *SinkConfig) Validate() error {
	if s.ChannelSize < 1 {
		return fmt.Errorf("channel_size must be at least 1, got %d", s.ChannelSize)
	}

	if s.Webhook.Enabled {
		if s.Webhook.Endpoint == "" {
			return fmt.Errorf("webhook endpoint cannot be empty when webhook sink is enabled")
		}

		if s.Webhook.MaxRetries < 0 {
			return fmt.Errorf("webhook max_retries cannot be negative, got %d", s.Webhook.MaxRetries)
		}
	}

	if s.NATS.Enabled {
		if s.NATS.URL == "" {
			return fmt.Errorf("nats url cannot be empty when nats sink is enabled")
		}

		if s.NATS.Subject == "" {
			return fmt.Errorf("nats subject cannot be empty when nats sink is enabled")
		}
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// RingCapacity returns the capture ring size in samples
func (c *Config) RingCapacity() int {
	return int(c.Capture.RingBufferSeconds * float64(c.Audio.SampleRate))
}

// GetTickInterval returns the tick interval as a time.Duration
func (c *CaptureConfig) GetTickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// GetSilenceHoldTime returns the silence hold time as a time.Duration
func (t *TriggerConfig) GetSilenceHoldTime() time.Duration {
	return time.Duration(t.SilenceHoldTime * float64(time.Second))
}

// GetTimeout returns the demodulator request timeout as a time.Duration
func (d *DemodulatorConfig) GetTimeout() time.Duration {
	return time.Duration(d.Timeout) * time.Second
}

// GetTimeout returns the webhook timeout as a time.Duration
func (w *WebhookSinkConfig) GetTimeout() time.Duration {
	return time.Duration(w.Timeout) * time.Second
}

// GetConnectTimeout returns the NATS connect timeout as a time.Duration
func (n *NATSSinkConfig) GetConnectTimeout() time.Duration {
	return time.Duration(n.ConnectTimeout) * time.Second
}
