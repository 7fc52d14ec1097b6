package capture

import (
	"math"
	"testing"
)

func newOpenMemDevice(t *testing.T, capacity int) *MemDevice {
	t.Helper()

	dev, err := NewMemDevice(capacity)
	if err != nil {
		t.Fatalf("Failed to create device: %v", err)
	}
	if err := dev.Open("", 1, 16000); err != nil {
		t.Fatalf("Failed to open device: %v", err)
	}
	return dev
}

func TestReadTickNotWarmedUp(t *testing.T) {
	dev := newOpenMemDevice(t, 64)
	reader := NewReader(dev, 16, nil)

	// No samples written yet: WritePosition is negative, tick is a no-op.
	called := false
	n := reader.ReadTick(func(samples []float64) { called = true })

	if n != 0 {
		t.Errorf("Expected 0 samples from cold device, got %d", n)
	}
	if called {
		t.Error("Consumer must not be called for a cold device")
	}
	if reader.Cursor() != 0 {
		t.Errorf("Cursor must not advance on a no-op tick, got %d", reader.Cursor())
	}
}

func TestReadTickChunkLimit(t *testing.T) {
	dev := newOpenMemDevice(t, 256)
	reader := NewReader(dev, 16, nil)

	dev.WriteSamples(make([]float64, 40))

	if n := reader.ReadTick(func([]float64) {}); n != 16 {
		t.Errorf("Expected first tick to read chunk size 16, got %d", n)
	}
	if n := reader.ReadTick(func([]float64) {}); n != 16 {
		t.Errorf("Expected second tick to read 16, got %d", n)
	}
	if n := reader.ReadTick(func([]float64) {}); n != 8 {
		t.Errorf("Expected final tick to read the remaining 8, got %d", n)
	}
	if n := reader.ReadTick(func([]float64) {}); n != 0 {
		t.Errorf("Expected drained device to yield 0, got %d", n)
	}
}

func TestReadTickWrapSafety(t *testing.T) {
	// Cumulative samples read across many ticks must equal cumulative
	// samples written, with no duplication or loss, even as the device
	// cursor wraps many times.
	const capacity = 97 // deliberately not a multiple of anything below
	dev := newOpenMemDevice(t, capacity)
	reader := NewReader(dev, 13, nil)

	var written, read uint64
	var lost bool
	next := 0.0 // value sequence lets us detect duplication/loss

	expect := 0.0
	consume := func(samples []float64) {
		for _, s := range samples {
			if math.Abs(s-expect) > 1e-9 {
				lost = true
			}
			expect++
		}
		read += uint64(len(samples))
	}

	for i := 0; i < 500; i++ {
		// Write bursts of varying size, never exceeding the free space
		// between write and read cursors.
		burst := (i % 11) + 1
		chunk := make([]float64, burst)
		for j := range chunk {
			chunk[j] = next
			next++
		}
		dev.WriteSamples(chunk)
		written += uint64(burst)

		// Drain fully so the unread span never exceeds capacity.
		for reader.ReadTick(consume) > 0 {
		}
	}

	if read != written {
		t.Errorf("Cumulative read %d != cumulative written %d", read, written)
	}
	if lost {
		t.Error("Sample sequence was duplicated or lost across wraparound")
	}
	if dev.TotalWritten() != written {
		t.Errorf("Device reports %d written, expected %d", dev.TotalWritten(), written)
	}
}

func TestReadTickSplitsAcrossPhysicalEnd(t *testing.T) {
	const capacity = 32
	dev := newOpenMemDevice(t, capacity)
	reader := NewReader(dev, capacity, nil)

	// Fill to just before the end, drain, then write across the boundary.
	dev.WriteSamples(make([]float64, 30))
	reader.ReadTick(func([]float64) {})

	chunk := []float64{1, 2, 3, 4, 5, 6}
	dev.WriteSamples(chunk) // wraps: 2 samples at the end, 4 at the start

	var got []float64
	n := reader.ReadTick(func(samples []float64) {
		got = append(got, samples...)
	})

	if n != len(chunk) {
		t.Fatalf("Expected %d samples, got %d", len(chunk), n)
	}
	for i, want := range chunk {
		if got[i] != want {
			t.Errorf("Sample %d: got %f, want %f", i, got[i], want)
		}
	}
	if reader.Cursor() != (30+len(chunk))%capacity {
		t.Errorf("Expected cursor %d, got %d", (30+len(chunk))%capacity, reader.Cursor())
	}
}

func TestReaderStats(t *testing.T) {
	dev := newOpenMemDevice(t, 64)
	reader := NewReader(dev, 8, nil)

	dev.WriteSamples(make([]float64, 10))
	reader.ReadTick(func([]float64) {})
	reader.ReadTick(func([]float64) {})
	reader.ReadTick(func([]float64) {})

	stats := reader.GetStats()
	if stats.TotalSamples != 10 {
		t.Errorf("Expected 10 total samples, got %d", stats.TotalSamples)
	}
	if stats.Ticks != 3 {
		t.Errorf("Expected 3 ticks, got %d", stats.Ticks)
	}
	if stats.EmptyTicks != 1 {
		t.Errorf("Expected 1 empty tick, got %d", stats.EmptyTicks)
	}
}
