// Package server implements the HTTP API for monitoring and management:
// health checks, receiver statistics, sanitized configuration, and the
// Prometheus metrics endpoint.
package server
