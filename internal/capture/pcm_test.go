package capture

import (
	"math"
	"testing"
)

func TestDecodeU8(t *testing.T) {
	samples, err := DecodePCM(FormatU8, []byte{0, 128, 255})
	if err != nil {
		t.Fatalf("Failed to decode u8: %v", err)
	}

	wants := []float64{-1.0, 0.0, 127.0 / 128.0}
	for i, want := range wants {
		if math.Abs(samples[i]-want) > 1e-12 {
			t.Errorf("Sample %d: got %f, want %f", i, samples[i], want)
		}
	}

	for i, s := range samples {
		if s < -1 || s > 1 {
			t.Errorf("Sample %d out of [-1, 1]: %f", i, s)
		}
	}
}

func TestDecodeS16LE(t *testing.T) {
	// -32768, 0, 32767 little-endian
	data := []byte{0x00, 0x80, 0x00, 0x00, 0xFF, 0x7F}
	samples, err := DecodePCM(FormatS16LE, data)
	if err != nil {
		t.Fatalf("Failed to decode s16le: %v", err)
	}

	wants := []float64{-1.0, 0.0, 32767.0 / 32768.0}
	for i, want := range wants {
		if math.Abs(samples[i]-want) > 1e-12 {
			t.Errorf("Sample %d: got %f, want %f", i, samples[i], want)
		}
	}
}

func TestDecodeS16LEOddLength(t *testing.T) {
	if _, err := DecodePCM(FormatS16LE, []byte{0x01, 0x02, 0x03}); err == nil {
		t.Error("Expected error for odd-length s16le data")
	}
}

func TestDecodeUnknownFormat(t *testing.T) {
	if _, err := DecodePCM("f32", []byte{1, 2, 3, 4}); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestValidPCMFormat(t *testing.T) {
	tests := []struct {
		format string
		want   bool
	}{
		{format: FormatU8, want: true},
		{format: FormatS16LE, want: true},
		{format: "f32", want: false},
		{format: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			if got := ValidPCMFormat(tt.format); got != tt.want {
				t.Errorf("ValidPCMFormat(%q) = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}

func TestMemDeviceLifecycle(t *testing.T) {
	dev, err := NewMemDevice(16)
	if err != nil {
		t.Fatalf("Failed to create device: %v", err)
	}

	if dev.WritePosition() >= 0 {
		t.Error("Closed device must report a negative write position")
	}
	if n := dev.WriteSamples([]float64{0.1}); n != 0 {
		t.Errorf("Closed device must drop samples, wrote %d", n)
	}

	if err := dev.Open("", 1, 8000); err != nil {
		t.Fatalf("Failed to open device: %v", err)
	}
	if err := dev.Open("", 1, 8000); err != ErrAlreadyOpen {
		t.Errorf("Expected ErrAlreadyOpen on double open, got %v", err)
	}

	if dev.WritePosition() >= 0 {
		t.Error("Device must report a negative write position before the first write")
	}

	dev.WriteSamples([]float64{0.1, 0.2})
	if pos := dev.WritePosition(); pos != 2 {
		t.Errorf("Expected write position 2, got %d", pos)
	}

	if err := dev.Close(); err != nil {
		t.Fatalf("Failed to close device: %v", err)
	}
	if dev.WritePosition() >= 0 {
		t.Error("Closed device must report a negative write position")
	}
}
