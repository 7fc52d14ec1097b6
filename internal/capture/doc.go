// Package capture abstracts the audio capture device behind a ring-buffer interface
// and implements the wrap-aware cursor arithmetic that drains it once per tick.
// It ships an in-memory device for tests and simulation and a UDP-fed device
// for raw PCM delivered over the network.
package capture
