package receiver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hirossan4049/tbsk-receiver/internal/audio"
	"github.com/hirossan4049/tbsk-receiver/internal/capture"
	"github.com/hirossan4049/tbsk-receiver/internal/decode"
	"github.com/hirossan4049/tbsk-receiver/internal/metrics"
	"github.com/hirossan4049/tbsk-receiver/internal/trigger"
)

// State is the controller lifecycle state
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
)

// Config contains recording controller configuration
type Config struct {
	DeviceID     string
	Channels     int
	SampleRate   int           // Hz
	ChunkSize    int           // samples consumed per tick at most
	TickInterval time.Duration // cadence used by Run
	FlushOnStop  bool          // decode the buffered tail on Stop
}

// Controller drives the receive pipeline: each tick reads newly captured
// samples, feeds the shared buffer and the RMS window, evaluates the trigger,
// and hands fired triggers to the decode scheduler. The tick path is single
// threaded; the shared buffer is the only state also touched by the decode
// worker.
type Controller struct {
	config  Config
	dev     capture.Device
	reader  *capture.Reader
	buffer  *audio.SharedBuffer
	rms     *audio.RMSTracker
	trig    trigger.Trigger
	sched   *decode.Scheduler
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu        sync.RWMutex
	state     State
	startedAt time.Time
	ticks     uint64
}

// Stats represents controller statistics for monitoring
type Stats struct {
	State           State                 `json:"state"`
	UptimeSeconds   float64               `json:"uptime_seconds"`
	Ticks           uint64                `json:"ticks"`
	BufferedSamples int                   `json:"buffered_samples"`
	BufferedSeconds float64               `json:"buffered_seconds"`
	CurrentRMS      float64               `json:"current_rms"`
	Reader          capture.ReaderStats   `json:"reader"`
	Decode          decode.SchedulerStats `json:"decode"`
}

// NewController creates a recording controller in the Idle state
func NewController(config Config, dev capture.Device, trig trigger.Trigger, sched *decode.Scheduler, logger *slog.Logger) (*Controller, error) {
	if dev == nil {
		return nil, fmt.Errorf("capture device cannot be nil")
	}
	if trig == nil {
		return nil, fmt.Errorf("trigger cannot be nil")
	}
	if sched == nil {
		return nil, fmt.Errorf("scheduler cannot be nil")
	}
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}
	if config.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", config.ChunkSize)
	}
	if config.Channels <= 0 {
		config.Channels = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	buffer, err := audio.NewSharedBuffer(config.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared buffer: %w", err)
	}

	return &Controller{
		config: config,
		dev:    dev,
		reader: capture.NewReader(dev, config.ChunkSize, logger),
		buffer: buffer,
		rms:    audio.NewRMSTracker(config.SampleRate),
		trig:   trig,
		sched:  sched,
		logger: logger,
		state:  StateIdle,
	}, nil
}

// SetMetrics attaches Prometheus metrics; nil leaves metrics disabled.
func (c *Controller) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
	c.sched.SetMetrics(m)
}

// Start opens the capture device and transitions to Recording. The read
// cursor, shared buffer, RMS window, trigger state, and decode flag are all
// reset so a restarted session never sees stale data. Start while already
// Recording is a no-op. A device open failure leaves the controller Idle
// with no partial state.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRecording {
		c.logger.Debug("Start ignored, already recording")
		return nil
	}

	if err := c.dev.Open(c.config.DeviceID, c.config.Channels, c.config.SampleRate); err != nil {
		return fmt.Errorf("failed to open capture device: %w", err)
	}

	c.reader.Reset()
	c.buffer.Clear()
	c.rms.Reset()
	c.trig.Reset()
	c.sched.Reset()

	c.state = StateRecording
	c.startedAt = time.Now()

	c.logger.Info("Recording started",
		slog.String("device_id", c.config.DeviceID),
		slog.Int("sample_rate", c.config.SampleRate),
		slog.Int("channels", c.config.Channels),
	)

	return nil
}

// Tick advances the pipeline by one capture cycle: read newly available
// samples, append them to the shared buffer while updating the RMS window,
// then evaluate the trigger and schedule a decode if it fired. dt is the
// wall time since the previous tick. Tick while Idle is a no-op.
func (c *Controller) Tick(dt time.Duration) {
	c.mu.RLock()
	recording := c.state == StateRecording
	c.mu.RUnlock()
	if !recording {
		return
	}

	// Reader and RMS tracker are not internally synchronized; the tick path
	// touches them under the controller mutex so GetStats can observe them
	// safely. The buffer has its own lock, so the decode worker is never
	// blocked on this one.
	c.mu.Lock()
	n := c.reader.ReadTick(func(samples []float64) {
		c.buffer.Append(samples)
		for _, s := range samples {
			c.rms.Update(s)
		}
	})
	c.ticks++
	rms := c.rms.CurrentRMS()
	c.mu.Unlock()

	buffered := c.buffer.Duration()

	if c.metrics != nil {
		c.metrics.RecordTick(n)
		c.metrics.SetBufferedSeconds(buffered)
		c.metrics.SetCurrentRMS(rms)
	}

	if c.trig.Evaluate(rms, buffered, dt) {
		c.sched.TryDecode(c.buffer)
	}
}

// Stop closes the capture device and transitions to Idle. When flush-on-stop
// is enabled and no decode is in flight, the remaining buffered samples get
// one synchronous best-effort decode; otherwise the tail is discarded. Stop
// while already Idle is a no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		c.logger.Debug("Stop ignored, already idle")
		return nil
	}

	closeErr := c.dev.Close()
	c.state = StateIdle
	uptime := time.Since(c.startedAt)
	c.mu.Unlock()

	if c.buffer.Len() > 0 {
		if c.config.FlushOnStop && !c.sched.InFlight() {
			c.sched.Flush(c.buffer)
		} else {
			discarded := c.buffer.Len()
			c.buffer.Clear()
			c.logger.Debug("Buffered tail discarded on stop",
				slog.Int("samples", discarded),
			)
		}
	}

	c.logger.Info("Recording stopped",
		slog.Duration("uptime", uptime),
	)

	if closeErr != nil {
		return fmt.Errorf("failed to close capture device: %w", closeErr)
	}
	return nil
}

// Run drives Tick on the configured interval until the context is cancelled.
// Library users may skip Run and call Tick on their own cadence.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.config.TickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.Tick(now.Sub(last))
			last = now
		}
	}
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Buffer returns the shared audio buffer
func (c *Controller) Buffer() *audio.SharedBuffer {
	return c.buffer
}

// GetStats returns current controller statistics
func (c *Controller) GetStats() Stats {
	c.mu.RLock()
	state := c.state
	ticks := c.ticks
	rms := c.rms.CurrentRMS()
	readerStats := c.reader.GetStats()
	var uptime float64
	if state == StateRecording {
		uptime = time.Since(c.startedAt).Seconds()
	}
	c.mu.RUnlock()

	return Stats{
		State:           state,
		UptimeSeconds:   uptime,
		Ticks:           ticks,
		BufferedSamples: c.buffer.Len(),
		BufferedSeconds: c.buffer.Duration(),
		CurrentRMS:      rms,
		Reader:          readerStats,
		Decode:          c.sched.GetStats(),
	}
}
