package capture

import "fmt"

// PCM sample formats accepted from capture backends.
const (
	FormatU8    = "u8"    // 8-bit unsigned PCM
	FormatS16LE = "s16le" // 16-bit signed little-endian PCM
)

// DecodePCM converts raw PCM bytes in the given format to normalized
// float64 samples in [-1, 1].
func DecodePCM(format string, data []byte) ([]float64, error) {
	switch format {
	case FormatU8:
		return decodeU8(data), nil
	case FormatS16LE:
		return decodeS16LE(data)
	default:
		return nil, fmt.Errorf("unsupported PCM format %q", format)
	}
}

// ValidPCMFormat reports whether format names a supported PCM encoding.
func ValidPCMFormat(format string) bool {
	return format == FormatU8 || format == FormatS16LE
}

// decodeU8 normalizes 8-bit unsigned PCM. 128 is the zero line.
func decodeU8(data []byte) []float64 {
	samples := make([]float64, len(data))
	for i, b := range data {
		samples[i] = float64(int(b)-128) / 128.0
	}
	return samples
}

// decodeS16LE normalizes 16-bit signed little-endian PCM.
func decodeS16LE(data []byte) ([]float64, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("s16le data length must be even (got %d bytes)", len(data))
	}

	samples := make([]float64, len(data)/2)
	for i := range samples {
		v := int16(data[i*2]) | int16(data[i*2+1])<<8
		samples[i] = float64(v) / 32768.0
	}
	return samples, nil
}
