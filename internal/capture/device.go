package capture

import "errors"

// ErrAlreadyOpen is returned when opening a device that is already open.
var ErrAlreadyOpen = errors.New("capture device already open")

// ErrNotOpen is returned when using a device that has not been opened.
var ErrNotOpen = errors.New("capture device not open")

// Device is a circular audio sample store written by some capture backend.
// Samples are normalized float64 values in [-1, 1].
//
// WritePosition reports the backend's write cursor as an absolute ring index;
// it returns a negative value while the device is not yet warmed up. Read
// copies a contiguous span only and never wraps; the caller is responsible
// for splitting a read that crosses the physical end of the ring.
type Device interface {
	// Open starts the capture backend. channels and sampleRate follow the
	// service configuration; deviceID is backend-specific.
	Open(deviceID string, channels, sampleRate int) error

	// WritePosition returns the current write index into the ring, or a
	// negative value if the device is not ready.
	WritePosition() int

	// Read copies up to len(dst) samples starting at ring index from,
	// stopping at the physical end of the ring. It returns the number of
	// samples copied.
	Read(dst []float64, from int) int

	// Capacity returns the total ring capacity in samples.
	Capacity() int

	// Close stops the capture backend and releases its resources.
	Close() error
}
