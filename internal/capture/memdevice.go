package capture

import (
	"fmt"
	"sync"
)

// MemDevice is an in-memory capture device. Producers push normalized
// samples with WriteSamples and the ring wraps at capacity, mirroring the
// cursor behavior of a hardware capture ring. It backs both the tests and
// the UDP capture backend.
type MemDevice struct {
	ring     []float64
	writePos int
	written  uint64
	open     bool

	mu sync.Mutex
}

// NewMemDevice creates an in-memory device with the given ring capacity
func NewMemDevice(capacity int) (*MemDevice, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring capacity must be positive, got %d", capacity)
	}

	return &MemDevice{
		ring: make([]float64, capacity),
	}, nil
}

// Open marks the device ready to accept samples
func (d *MemDevice) Open(deviceID string, channels, sampleRate int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return ErrAlreadyOpen
	}

	d.open = true
	d.writePos = 0
	d.written = 0
	return nil
}

// Close stops the device
func (d *MemDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.open = false
	return nil
}

// WriteSamples appends samples at the write cursor, wrapping at capacity.
// Samples pushed while the device is closed are dropped.
func (d *MemDevice) WriteSamples(samples []float64) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return 0
	}

	for _, s := range samples {
		d.ring[d.writePos] = s
		d.writePos = (d.writePos + 1) % len(d.ring)
	}
	d.written += uint64(len(samples))

	return len(samples)
}

// WritePosition returns the write cursor, or -1 before any sample arrives
func (d *MemDevice) WritePosition() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open || d.written == 0 {
		return -1
	}
	return d.writePos
}

// Read copies a contiguous span starting at ring index from; it never wraps
func (d *MemDevice) Read(dst []float64, from int) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open || from < 0 || from >= len(d.ring) {
		return 0
	}

	n := copy(dst, d.ring[from:])
	return n
}

// Capacity returns the total ring capacity in samples
func (d *MemDevice) Capacity() int {
	return len(d.ring)
}

// TotalWritten returns the cumulative number of samples pushed
func (d *MemDevice) TotalWritten() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.written
}
