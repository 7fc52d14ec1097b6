// Package decode schedules demodulation off the capture path and turns
// recovered bit sequences into text. The scheduler enforces the single-flight
// invariant: at most one decode job exists at any moment, and triggers that
// arrive while one is in flight are dropped as deliberate backpressure.
package decode
