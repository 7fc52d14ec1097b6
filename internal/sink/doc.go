// Package sink delivers decoded messages to their consumers.
// Delivery happens on the decode worker goroutine; implementations that hand
// messages to single-threaded consumers must marshal them across themselves,
// which the channel sink does by design.
package sink
