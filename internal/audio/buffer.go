package audio

import (
	"fmt"
	"sync"
	"time"
)

// SharedBuffer accumulates normalized samples captured since the last decode.
// It is the only pipeline state touched by two goroutines (the capture tick
// and the decode scheduler), so every access happens under one exclusive lock.
// Lock scope is limited to the append or snapshot operation itself; the
// demodulation call never runs while the lock is held.
type SharedBuffer struct {
	sampleRate int
	samples    []float64

	// Statistics
	totalAppended uint64
	snapshots     uint64
	lastAppend    time.Time

	mu sync.Mutex
}

// BufferStats represents buffer statistics for monitoring
type BufferStats struct {
	SampleRate      int     `json:"sample_rate"`
	BufferedSamples int     `json:"buffered_samples"`
	BufferedSeconds float64 `json:"buffered_seconds"`
	TotalAppended   uint64  `json:"total_appended"`
	Snapshots       uint64  `json:"snapshots"`
}

// NewSharedBuffer creates a new shared sample buffer for the given sample rate
func NewSharedBuffer(sampleRate int) (*SharedBuffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	return &SharedBuffer{
		sampleRate: sampleRate,
		samples:    make([]float64, 0, sampleRate*2),
	}, nil
}

// Append adds samples captured by the tick path to the buffer
func (b *SharedBuffer) Append(samples []float64) {
	if len(samples) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.samples = append(b.samples, samples...)
	b.totalAppended += uint64(len(samples))
	b.lastAppend = time.Now()
}

// Len returns the number of samples currently buffered
func (b *SharedBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Duration returns the buffered audio duration in seconds
func (b *SharedBuffer) Duration() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return float64(len(b.samples)) / float64(b.sampleRate)
}

// SnapshotAndClear copies all buffered samples and empties the buffer in a
// single lock acquisition. Samples appended afterwards can never appear in
// the returned slice.
func (b *SharedBuffer) SnapshotAndClear() []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.samples) == 0 {
		return nil
	}

	snapshot := make([]float64, len(b.samples))
	copy(snapshot, b.samples)
	b.samples = b.samples[:0]
	b.snapshots++

	return snapshot
}

// Clear discards all buffered samples without taking a snapshot
func (b *SharedBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = b.samples[:0]
}

// SampleRate returns the sample rate the buffer was created with
func (b *SharedBuffer) SampleRate() int {
	return b.sampleRate
}

// GetStats returns current buffer statistics
func (b *SharedBuffer) GetStats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BufferStats{
		SampleRate:      b.sampleRate,
		BufferedSamples: len(b.samples),
		BufferedSeconds: float64(len(b.samples)) / float64(b.sampleRate),
		TotalAppended:   b.totalAppended,
		Snapshots:       b.snapshots,
	}
}
