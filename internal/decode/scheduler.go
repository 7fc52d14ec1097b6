package decode

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hirossan4049/tbsk-receiver/internal/audio"
	"github.com/hirossan4049/tbsk-receiver/internal/metrics"
	"github.com/hirossan4049/tbsk-receiver/internal/sink"
)

// Job is an immutable snapshot of the shared buffer taken at trigger time.
// At most one Job is outstanding at any moment.
type Job struct {
	ID        string
	Samples   []float64
	CreatedAt time.Time

	gen uint64
}

// SchedulerConfig contains decode scheduler configuration
type SchedulerConfig struct {
	Async bool // run accepted jobs on a worker goroutine
}

// Scheduler owns the snapshot-and-clear handoff from the shared buffer to
// the demodulator. The in-progress flag is checked and set under the
// scheduler's lock together with the snapshot, so two concurrent triggers
// can never both take a job; the loser is dropped silently. The flag is
// cleared before any result is published, which re-enables the next trigger.
type Scheduler struct {
	demod   Demodulator
	out     sink.Sink
	logger  *slog.Logger
	config  SchedulerConfig
	metrics *metrics.Metrics

	decoding bool
	gen      uint64
	wg       sync.WaitGroup

	// Statistics
	attempts        uint64
	successes       uint64
	emptyResults    uint64
	failures        uint64
	droppedTriggers uint64
	messagesEmitted uint64

	mu sync.Mutex
}

// SchedulerStats represents scheduler statistics for monitoring
type SchedulerStats struct {
	Decoding        bool   `json:"decoding"`
	Attempts        uint64 `json:"attempts"`
	Successes       uint64 `json:"successes"`
	EmptyResults    uint64 `json:"empty_results"`
	Failures        uint64 `json:"failures"`
	DroppedTriggers uint64 `json:"dropped_triggers"`
	MessagesEmitted uint64 `json:"messages_emitted"`
}

// NewScheduler creates a decode scheduler
func NewScheduler(demod Demodulator, out sink.Sink, config SchedulerConfig, logger *slog.Logger) (*Scheduler, error) {
	if demod == nil {
		return nil, fmt.Errorf("demodulator cannot be nil")
	}
	if out == nil {
		return nil, fmt.Errorf("sink cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		demod:  demod,
		out:    out,
		logger: logger,
		config: config,
	}, nil
}

// SetMetrics attaches Prometheus metrics; nil leaves metrics disabled.
func (s *Scheduler) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// TryDecode snapshots and clears the buffer and runs one decode, on a worker
// goroutine when async decode is configured. It returns false when the
// trigger was dropped because a decode is already in flight, or when the
// buffer turned out to be empty.
func (s *Scheduler) TryDecode(buf *audio.SharedBuffer) bool {
	return s.schedule(buf, s.config.Async)
}

// Flush runs one synchronous decode of the remaining buffered samples; used
// by Stop as the best-effort terminal attempt. Dropped, like any trigger, if
// a decode is in flight.
func (s *Scheduler) Flush(buf *audio.SharedBuffer) bool {
	return s.schedule(buf, false)
}

func (s *Scheduler) schedule(buf *audio.SharedBuffer, async bool) bool {
	s.mu.Lock()
	if s.decoding {
		s.droppedTriggers++
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordDroppedTrigger()
		}
		return false
	}

	samples := buf.SnapshotAndClear()
	if len(samples) == 0 {
		s.mu.Unlock()
		return false
	}

	s.decoding = true
	s.attempts++
	gen := s.gen
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordDecodeAttempt(len(samples))
	}

	job := &Job{
		ID:        uuid.NewString(),
		Samples:   samples,
		CreatedAt: time.Now(),
		gen:       gen,
	}

	s.logger.Debug("Decode job accepted",
		slog.String("job_id", job.ID),
		slog.Int("samples", len(job.Samples)),
		slog.Bool("async", async),
	)

	if async {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runJob(job)
		}()
	} else {
		s.runJob(job)
	}

	return true
}

// runJob executes the demodulation outside any lock, clears the in-progress
// flag, and only then publishes a result.
func (s *Scheduler) runJob(job *Job) {
	start := time.Now()
	bits, err := s.demodulate(job.Samples)
	elapsed := time.Since(start)

	// Clear the flag first so the next trigger can proceed regardless of
	// what publication does. A job from a superseded session (Reset was
	// called while it ran) must not clear the current session's flag.
	s.mu.Lock()
	if job.gen == s.gen {
		s.decoding = false
	}
	switch {
	case err != nil:
		s.failures++
	case len(bits) == 0:
		s.emptyResults++
	default:
		s.successes++
	}
	s.mu.Unlock()

	if s.metrics != nil {
		switch {
		case err != nil:
			s.metrics.RecordDecodeFailure(elapsed.Seconds())
		case len(bits) == 0:
			s.metrics.RecordDecodeEmpty(elapsed.Seconds())
		default:
			s.metrics.RecordDecodeSuccess(elapsed.Seconds())
		}
	}

	if err != nil {
		s.logger.Warn("Decode failed",
			slog.String("job_id", job.ID),
			slog.Int("samples", len(job.Samples)),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)
		return
	}

	if len(bits) == 0 {
		s.logger.Debug("No frame found",
			slog.String("job_id", job.ID),
			slog.Int("samples", len(job.Samples)),
			slog.Duration("elapsed", elapsed),
		)
		return
	}

	text, hex, ok := DecodeBits(bits)
	if !ok {
		return
	}

	msg := sink.Message{
		ID:          job.ID,
		Text:        text,
		Hex:         hex,
		DecodedAt:   time.Now(),
		DecodeTime:  elapsed,
		SampleCount: len(job.Samples),
		BitCount:    len(bits),
	}

	s.logger.Info("Message decoded",
		slog.String("job_id", job.ID),
		slog.String("text", text),
		slog.Bool("hex", hex),
		slog.Int("bits", len(bits)),
		slog.Duration("elapsed", elapsed),
	)

	if err := s.out.Deliver(msg); err != nil {
		s.logger.Warn("Message delivery failed",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		if s.metrics != nil {
			s.metrics.RecordSinkFailure()
		}
		return
	}

	s.mu.Lock()
	s.messagesEmitted++
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordMessageEmitted(len(msg.Text))
	}
}

// demodulate calls the demodulator with panic recovery; a panicking
// demodulator is treated as a decode error and never takes down the worker.
func (s *Scheduler) demodulate(samples []float64) (bits []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			bits = nil
			err = fmt.Errorf("demodulator panic: %v", r)
		}
	}()

	return s.demod.Demodulate(samples)
}

// Reset clears the in-progress flag and starts a new session. A job still
// running from before the reset keeps executing (there is no cancellation)
// but can no longer clear the new session's flag when it finishes.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decoding = false
	s.gen++
}

// InFlight reports whether a decode job is currently outstanding
func (s *Scheduler) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decoding
}

// Wait blocks until any outstanding async job has finished; used by tests
// and by shutdown paths that want a quiet scheduler.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// GetStats returns current scheduler statistics
func (s *Scheduler) GetStats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SchedulerStats{
		Decoding:        s.decoding,
		Attempts:        s.attempts,
		Successes:       s.successes,
		EmptyResults:    s.emptyResults,
		Failures:        s.failures,
		DroppedTriggers: s.droppedTriggers,
		MessagesEmitted: s.messagesEmitted,
	}
}
