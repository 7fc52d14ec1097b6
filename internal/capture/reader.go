package capture

import (
	"log/slog"
)

// Reader drains a Device once per scheduler tick. It owns the read cursor
// and performs the wrap-aware available computation against the device's
// write cursor, splitting reads that cross the physical end of the ring
// into two contiguous sub-reads.
type Reader struct {
	dev       Device
	chunkSize int
	cursor    int
	scratch   []float64
	logger    *slog.Logger

	// Statistics
	totalRead  uint64
	ticks      uint64
	emptyTicks uint64
}

// ReaderStats represents reader statistics for monitoring
type ReaderStats struct {
	ReadCursor   int    `json:"read_cursor"`
	TotalSamples uint64 `json:"total_samples"`
	Ticks        uint64 `json:"ticks"`
	EmptyTicks   uint64 `json:"empty_ticks"`
}

// NewReader creates a reader that pulls at most chunkSize samples per tick
func NewReader(dev Device, chunkSize int, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}

	return &Reader{
		dev:       dev,
		chunkSize: chunkSize,
		scratch:   make([]float64, chunkSize),
		logger:    logger,
	}
}

// ReadTick reads the samples available since the previous tick, up to the
// chunk size, and passes them to consume in capture order. It returns the
// number of samples consumed. A device that is not yet warmed up (negative
// write position) makes the tick a no-op.
//
// The slice passed to consume is only valid for the duration of the call.
func (r *Reader) ReadTick(consume func(samples []float64)) int {
	r.ticks++

	writePos := r.dev.WritePosition()
	if writePos < 0 {
		r.emptyTicks++
		return 0
	}

	capacity := r.dev.Capacity()

	var available int
	if writePos >= r.cursor {
		available = writePos - r.cursor
	} else {
		available = capacity - r.cursor + writePos
	}

	n := available
	if n > r.chunkSize {
		n = r.chunkSize
	}
	if n == 0 {
		r.emptyTicks++
		return 0
	}

	// First contiguous span, up to the physical end of the ring.
	first := r.dev.Read(r.scratch[:min(n, capacity-r.cursor)], r.cursor)
	read := first

	// Second span from index 0 when the read wrapped.
	if read < n {
		read += r.dev.Read(r.scratch[read:n], 0)
	}

	if read == 0 {
		r.emptyTicks++
		return 0
	}

	consume(r.scratch[:read])

	r.cursor = (r.cursor + read) % capacity
	r.totalRead += uint64(read)

	return read
}

// Reset rewinds the read cursor to zero; called when capture restarts
func (r *Reader) Reset() {
	r.cursor = 0
}

// Cursor returns the current read cursor (ring index)
func (r *Reader) Cursor() int {
	return r.cursor
}

// GetStats returns current reader statistics
func (r *Reader) GetStats() ReaderStats {
	return ReaderStats{
		ReadCursor:   r.cursor,
		TotalSamples: r.totalRead,
		Ticks:        r.ticks,
		EmptyTicks:   r.emptyTicks,
	}
}
