// Package trigger decides when the buffered samples are handed to a decode attempt.
// Two mutually exclusive policies exist: silence-gated triggering on sustained
// low RMS, and plain duration-threshold triggering. Configuration selects
// exactly one of them.
package trigger
