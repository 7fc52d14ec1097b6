package decode

// Demodulator recovers a bit sequence from an ordered run of normalized
// samples. An empty result with a nil error means no valid frame was found;
// an error signals malformed input. Implementations must be callable from
// outside the capture goroutine.
type Demodulator interface {
	Demodulate(samples []float64) ([]byte, error)
}

// DemodulatorFunc adapts a plain function to the Demodulator interface
type DemodulatorFunc func(samples []float64) ([]byte, error)

// Demodulate invokes the function
func (f DemodulatorFunc) Demodulate(samples []float64) ([]byte, error) {
	return f(samples)
}
