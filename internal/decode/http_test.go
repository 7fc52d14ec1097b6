package decode

import (
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPDemodulatorValidation(t *testing.T) {
	tests := []struct {
		name      string
		config    HTTPDemodConfig
		expectErr bool
	}{
		{
			name:      "valid config",
			config:    HTTPDemodConfig{Endpoint: "http://localhost:9000/demod", SampleRate: 16000},
			expectErr: false,
		},
		{
			name:      "empty endpoint",
			config:    HTTPDemodConfig{SampleRate: 16000},
			expectErr: true,
		},
		{
			name:      "zero sample rate",
			config:    HTTPDemodConfig{Endpoint: "http://localhost:9000/demod"},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHTTPDemodulator(tt.config)
			if tt.expectErr && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestHTTPDemodulatorDemodulate(t *testing.T) {
	var gotBody []byte
	var gotSampleRate string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSampleRate = r.Header.Get("X-Sample-Rate")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bits": [0, 1, 0, 0, 1, 0, 0, 0]}`))
	}))
	defer ts.Close()

	demod, err := NewHTTPDemodulator(HTTPDemodConfig{
		Endpoint:   ts.URL,
		SampleRate: 16000,
		Timeout:    5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create demodulator: %v", err)
	}

	samples := []float64{0.5, -0.5, 1.5, -1.5}
	bits, err := demod.Demodulate(samples)
	if err != nil {
		t.Fatalf("Demodulate failed: %v", err)
	}

	want := []byte{0, 1, 0, 0, 1, 0, 0, 0}
	if len(bits) != len(want) {
		t.Fatalf("Expected %d bits, got %d", len(want), len(bits))
	}
	for i := range want {
		if bits[i] != want[i] {
			t.Errorf("Bit %d: expected %d, got %d", i, want[i], bits[i])
		}
	}

	if gotSampleRate != "16000" {
		t.Errorf("Expected X-Sample-Rate 16000, got %q", gotSampleRate)
	}

	// Body is s16le PCM with out-of-range samples clipped.
	if len(gotBody) != len(samples)*2 {
		t.Fatalf("Expected %d body bytes, got %d", len(samples)*2, len(gotBody))
	}
	third := int16(binary.LittleEndian.Uint16(gotBody[4:6]))
	if third != 32767 {
		t.Errorf("Expected sample 1.5 clipped to 32767, got %d", third)
	}
	fourth := int16(binary.LittleEndian.Uint16(gotBody[6:8]))
	if fourth != -32767 {
		t.Errorf("Expected sample -1.5 clipped to -32767, got %d", fourth)
	}
}

func TestHTTPDemodulatorNoFrame(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bits": []}`))
	}))
	defer ts.Close()

	demod, err := NewHTTPDemodulator(HTTPDemodConfig{Endpoint: ts.URL, SampleRate: 16000})
	if err != nil {
		t.Fatalf("Failed to create demodulator: %v", err)
	}

	bits, err := demod.Demodulate([]float64{0.1, 0.2})
	if err != nil {
		t.Errorf("Expected no error for empty frame, got: %v", err)
	}
	if bits != nil {
		t.Errorf("Expected nil bits for empty frame, got %v", bits)
	}
}

func TestHTTPDemodulatorErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json`))
			},
		},
		{
			name: "invalid bit value",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"bits": [0, 1, 2]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			demod, err := NewHTTPDemodulator(HTTPDemodConfig{Endpoint: ts.URL, SampleRate: 16000})
			if err != nil {
				t.Fatalf("Failed to create demodulator: %v", err)
			}

			if _, err := demod.Demodulate([]float64{0.1}); err == nil {
				t.Error("Expected error but got none")
			}
		})
	}
}
