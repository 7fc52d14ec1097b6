// Package audio implements sample buffering and amplitude tracking for the decode pipeline.
// It provides the lock-guarded shared sample accumulator drained by decode snapshots
// and a sliding-window RMS estimator used for silence detection.
package audio
