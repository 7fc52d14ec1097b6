package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// HTTPDemodConfig contains configuration for the HTTP demodulator client
type HTTPDemodConfig struct {
	Endpoint   string
	SampleRate int
	Timeout    time.Duration
}

// HTTPDemodulator sends a sample window to an external demodulation service
// and returns the recovered bits. The request body is the window encoded as
// s16le PCM; the response is JSON with a 0/1 bit array. An empty bit array
// means no frame was found in the window, which is not an error.
type HTTPDemodulator struct {
	config     HTTPDemodConfig
	httpClient *http.Client
}

type demodResponse struct {
	Bits []int `json:"bits"`
}

// NewHTTPDemodulator creates an HTTP demodulator client
func NewHTTPDemodulator(config HTTPDemodConfig) (*HTTPDemodulator, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &HTTPDemodulator{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Demodulate implements the Demodulator interface
func (d *HTTPDemodulator) Demodulate(samples []float64) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.Endpoint,
		bytes.NewReader(encodeS16LE(samples)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Sample-Rate", strconv.Itoa(d.config.SampleRate))
	req.Header.Set("User-Agent", "tbsk-receiver/1.0")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("demodulation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("demodulation service returned status %d", resp.StatusCode)
	}

	var result demodResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Bits) == 0 {
		return nil, nil
	}

	bits := make([]byte, len(result.Bits))
	for i, b := range result.Bits {
		if b != 0 && b != 1 {
			return nil, fmt.Errorf("invalid bit value %d at index %d", b, i)
		}
		bits[i] = byte(b)
	}
	return bits, nil
}

// encodeS16LE converts normalized samples to little-endian 16-bit PCM,
// clipping anything outside [-1, 1].
func encodeS16LE(samples []float64) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	return data
}
