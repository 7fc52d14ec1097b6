package audio

import "math"

// minRMSWindow is the smallest window used regardless of sample rate.
const minRMSWindow = 10

// RMSTracker computes the RMS of the most recent window of samples using a
// fixed-capacity circular buffer of squared values and a running sum.
// Window capacity is max(sampleRate/100, 10), i.e. roughly 10ms of audio.
//
// RMSTracker is only touched from the capture tick and carries no lock of
// its own.
type RMSTracker struct {
	window []float64
	sum    float64
	index  int
	filled bool
}

// NewRMSTracker creates an RMS tracker sized for the given sample rate
func NewRMSTracker(sampleRate int) *RMSTracker {
	capacity := sampleRate / 100
	if capacity < minRMSWindow {
		capacity = minRMSWindow
	}

	return &RMSTracker{
		window: make([]float64, capacity),
	}
}

// Update feeds one normalized sample into the sliding window
func (r *RMSTracker) Update(sample float64) {
	sq := sample * sample

	if r.filled {
		r.sum -= r.window[r.index]
	}
	r.window[r.index] = sq
	r.sum += sq

	r.index++
	if r.index == len(r.window) {
		r.index = 0
		r.filled = true
	}
}

// CurrentRMS returns sqrt(sum/count) over the samples currently held.
// Before the window fills, count is the number of slots written so far;
// an empty window yields 0.
func (r *RMSTracker) CurrentRMS() float64 {
	count := r.Count()
	if count == 0 {
		return 0
	}

	// The running sum can drift slightly negative from float cancellation.
	sum := r.sum
	if sum < 0 {
		sum = 0
	}

	return math.Sqrt(sum / float64(count))
}

// Count returns the number of samples currently represented in the window
func (r *RMSTracker) Count() int {
	if r.filled {
		return len(r.window)
	}
	return r.index
}

// Capacity returns the fixed window capacity in samples
func (r *RMSTracker) Capacity() int {
	return len(r.window)
}

// Reset empties the window and zeroes the running sum
func (r *RMSTracker) Reset() {
	for i := range r.window {
		r.window[i] = 0
	}
	r.sum = 0
	r.index = 0
	r.filled = false
}
