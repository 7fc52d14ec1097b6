package audio

import (
	"sync"
	"testing"
)

func TestNewSharedBuffer(t *testing.T) {
	buf, err := NewSharedBuffer(16000)
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}

	if buf.Len() != 0 {
		t.Errorf("Expected empty buffer, got %d samples", buf.Len())
	}

	if buf.SampleRate() != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", buf.SampleRate())
	}
}

func TestNewSharedBufferValidation(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate int
		expectErr  bool
	}{
		{name: "valid rate", sampleRate: 8000, expectErr: false},
		{name: "zero rate", sampleRate: 0, expectErr: true},
		{name: "negative rate", sampleRate: -1, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSharedBuffer(tt.sampleRate)
			if tt.expectErr && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestAppendAndDuration(t *testing.T) {
	buf, err := NewSharedBuffer(1000)
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}

	buf.Append(make([]float64, 500))

	if buf.Len() != 500 {
		t.Errorf("Expected 500 samples, got %d", buf.Len())
	}

	if got := buf.Duration(); got != 0.5 {
		t.Errorf("Expected duration 0.5s, got %f", got)
	}

	// Empty appends are ignored
	buf.Append(nil)
	if buf.Len() != 500 {
		t.Errorf("Expected 500 samples after empty append, got %d", buf.Len())
	}
}

func TestSnapshotAndClear(t *testing.T) {
	buf, err := NewSharedBuffer(8000)
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}

	buf.Append([]float64{0.1, 0.2, 0.3})

	snapshot := buf.SnapshotAndClear()
	if len(snapshot) != 3 {
		t.Fatalf("Expected snapshot of 3 samples, got %d", len(snapshot))
	}
	if snapshot[0] != 0.1 || snapshot[1] != 0.2 || snapshot[2] != 0.3 {
		t.Errorf("Snapshot does not match appended samples: %v", snapshot)
	}

	if buf.Len() != 0 {
		t.Errorf("Expected empty buffer after snapshot, got %d samples", buf.Len())
	}

	// Samples appended after the snapshot must not alias the snapshot slice
	buf.Append([]float64{0.9})
	if snapshot[0] != 0.1 {
		t.Error("Snapshot was mutated by a later append")
	}

	if second := buf.SnapshotAndClear(); len(second) != 1 || second[0] != 0.9 {
		t.Errorf("Second snapshot should contain only samples appended after the first, got %v", second)
	}
}

func TestSnapshotEmptyBuffer(t *testing.T) {
	buf, err := NewSharedBuffer(8000)
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}

	if snapshot := buf.SnapshotAndClear(); snapshot != nil {
		t.Errorf("Expected nil snapshot for empty buffer, got %v", snapshot)
	}
}

func TestConcurrentAppendAndSnapshot(t *testing.T) {
	buf, err := NewSharedBuffer(8000)
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}

	const appends = 200
	const perAppend = 64

	var wg sync.WaitGroup
	wg.Add(2)

	var drained int
	go func() {
		defer wg.Done()
		for i := 0; i < appends; i++ {
			buf.Append(make([]float64, perAppend))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < appends; i++ {
			drained += len(buf.SnapshotAndClear())
		}
	}()

	wg.Wait()
	drained += len(buf.SnapshotAndClear())

	if drained != appends*perAppend {
		t.Errorf("Expected %d samples drained in total, got %d", appends*perAppend, drained)
	}

	stats := buf.GetStats()
	if stats.TotalAppended != appends*perAppend {
		t.Errorf("Expected %d total appended, got %d", appends*perAppend, stats.TotalAppended)
	}
}
