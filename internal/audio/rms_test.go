package audio

import (
	"math"
	"testing"
)

// exactRMS computes RMS directly for comparison against the tracker.
func exactRMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func TestRMSWindowCapacity(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate int
		wantCap    int
	}{
		{name: "16kHz", sampleRate: 16000, wantCap: 160},
		{name: "8kHz", sampleRate: 8000, wantCap: 80},
		{name: "tiny rate clamps to minimum", sampleRate: 100, wantCap: 10},
		{name: "sub-minimum rate clamps to minimum", sampleRate: 50, wantCap: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewRMSTracker(tt.sampleRate)
			if tracker.Capacity() != tt.wantCap {
				t.Errorf("Expected capacity %d, got %d", tt.wantCap, tracker.Capacity())
			}
		})
	}
}

func TestRMSEmptyWindow(t *testing.T) {
	tracker := NewRMSTracker(16000)
	if got := tracker.CurrentRMS(); got != 0 {
		t.Errorf("Expected 0 RMS for empty window, got %f", got)
	}
	if tracker.Count() != 0 {
		t.Errorf("Expected count 0, got %d", tracker.Count())
	}
}

func TestRMSPartialWindow(t *testing.T) {
	tracker := NewRMSTracker(16000) // capacity 160

	samples := []float64{0.5, -0.5, 0.25}
	for _, s := range samples {
		tracker.Update(s)
	}

	if tracker.Count() != len(samples) {
		t.Errorf("Expected count %d, got %d", len(samples), tracker.Count())
	}

	want := exactRMS(samples)
	if got := tracker.CurrentRMS(); math.Abs(got-want) > 1e-12 {
		t.Errorf("Partial-window RMS mismatch: got %f, want %f", got, want)
	}
}

func TestRMSSlidingWindowExactness(t *testing.T) {
	// Once full, CurrentRMS must equal the exact RMS of the last
	// `capacity` samples, not of everything fed since start.
	tracker := NewRMSTracker(1000) // capacity 10

	var fed []float64
	for i := 0; i < 137; i++ {
		s := math.Sin(float64(i) * 0.37)
		fed = append(fed, s)
		tracker.Update(s)

		start := len(fed) - tracker.Capacity()
		if start < 0 {
			start = 0
		}
		want := exactRMS(fed[start:])
		if got := tracker.CurrentRMS(); math.Abs(got-want) > 1e-9 {
			t.Fatalf("RMS mismatch after %d samples: got %g, want %g", i+1, got, want)
		}
	}

	if tracker.Count() != tracker.Capacity() {
		t.Errorf("Expected full window count %d, got %d", tracker.Capacity(), tracker.Count())
	}
}

func TestRMSReset(t *testing.T) {
	tracker := NewRMSTracker(1000)
	for i := 0; i < 25; i++ {
		tracker.Update(0.8)
	}

	tracker.Reset()

	if tracker.Count() != 0 {
		t.Errorf("Expected count 0 after reset, got %d", tracker.Count())
	}
	if got := tracker.CurrentRMS(); got != 0 {
		t.Errorf("Expected 0 RMS after reset, got %f", got)
	}

	// Tracker is reusable after reset
	tracker.Update(0.5)
	if got := tracker.CurrentRMS(); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Expected RMS 0.5 after reset and one sample, got %f", got)
	}
}
