package trigger

import (
	"fmt"
	"time"
)

// Trigger evaluates once per tick whether a decode should fire. Evaluate is
// only called while recording; a fire that lands while a decode is still in
// flight is dropped downstream by the scheduler.
type Trigger interface {
	// Evaluate consumes the current RMS, the buffered audio duration in
	// seconds, and the elapsed tick time, and reports whether a decode
	// should be scheduled now.
	Evaluate(rms float64, bufferedSeconds float64, dt time.Duration) bool

	// Reset clears any accumulated state; called when recording starts.
	Reset()
}

// SilenceTrigger fires after the RMS has stayed below a threshold for a hold
// time, provided enough audio is buffered. A message burst followed by
// sustained silence is the normal firing pattern.
type SilenceTrigger struct {
	threshold        float64
	holdTime         time.Duration
	minBufferSeconds float64

	silenceElapsed time.Duration
}

// NewSilenceTrigger creates a silence-gated trigger
func NewSilenceTrigger(threshold float64, holdTime time.Duration, minBufferSeconds float64) (*SilenceTrigger, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("silence threshold must be positive, got %f", threshold)
	}
	if holdTime <= 0 {
		return nil, fmt.Errorf("hold time must be positive, got %v", holdTime)
	}
	if minBufferSeconds < 0 {
		return nil, fmt.Errorf("min buffer seconds cannot be negative, got %f", minBufferSeconds)
	}

	return &SilenceTrigger{
		threshold:        threshold,
		holdTime:         holdTime,
		minBufferSeconds: minBufferSeconds,
	}, nil
}

// Evaluate advances the silence timer by dt while the RMS stays below the
// threshold and zeroes it on any loud tick. It fires, and zeroes the timer
// again, once the timer reaches the hold time with enough audio buffered.
func (t *SilenceTrigger) Evaluate(rms float64, bufferedSeconds float64, dt time.Duration) bool {
	if rms >= t.threshold {
		t.silenceElapsed = 0
		return false
	}

	t.silenceElapsed += dt

	if t.silenceElapsed >= t.holdTime && bufferedSeconds >= t.minBufferSeconds {
		t.silenceElapsed = 0
		return true
	}

	return false
}

// Reset zeroes the silence timer
func (t *SilenceTrigger) Reset() {
	t.silenceElapsed = 0
}

// SilenceElapsed returns the current below-threshold time, for monitoring
func (t *SilenceTrigger) SilenceElapsed() time.Duration {
	return t.silenceElapsed
}

// DurationTrigger fires whenever the buffered duration reaches a fixed
// threshold, regardless of signal level.
type DurationTrigger struct {
	thresholdSeconds float64
}

// NewDurationTrigger creates a duration-threshold trigger
func NewDurationTrigger(thresholdSeconds float64) (*DurationTrigger, error) {
	if thresholdSeconds <= 0 {
		return nil, fmt.Errorf("decode threshold seconds must be positive, got %f", thresholdSeconds)
	}

	return &DurationTrigger{thresholdSeconds: thresholdSeconds}, nil
}

// Evaluate fires once the buffered duration reaches the threshold
func (t *DurationTrigger) Evaluate(rms float64, bufferedSeconds float64, dt time.Duration) bool {
	return bufferedSeconds >= t.thresholdSeconds
}

// Reset is a no-op; the trigger keeps no state
func (t *DurationTrigger) Reset() {}
