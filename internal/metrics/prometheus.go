package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the receiver
type Metrics struct {
	// Capture metrics
	SamplesCaptured prometheus.Counter
	CaptureTicks    prometheus.Counter
	EmptyTicks      prometheus.Counter
	BufferedSeconds prometheus.Gauge
	CurrentRMS      prometheus.Gauge

	// UDP backend metrics
	PacketsReceived prometheus.Counter
	PacketsDropped  prometheus.Counter
	DecodeErrors    prometheus.Counter

	// Decode scheduling metrics
	DecodeAttempts  prometheus.Counter
	DecodeSuccesses prometheus.Counter
	DecodeEmpty     prometheus.Counter
	DecodeFailures  prometheus.Counter
	DroppedTriggers prometheus.Counter
	DecodeDuration  prometheus.Histogram
	DecodeInputSize prometheus.Histogram

	// Message metrics
	MessagesEmitted prometheus.Counter
	MessageLength   prometheus.Histogram
	SinkFailures    prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Capture metrics
		SamplesCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tbsk_samples_captured_total",
			Help: "Total number of audio samples read from the capture device",
		}),
		CaptureTicks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tbsk_capture_ticks_total",
			Help: "Total number of capture ticks executed",
		}),
		EmptyTicks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tbsk_empty_ticks_total",
			Help: "Total number of capture ticks that yielded no samples",
		}),
		BufferedSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tbsk_buffered_seconds",
			Help: "Seconds of audio currently held in the shared buffer",
		}),
		CurrentRMS: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tbsk_current_rms",
			Help: "Current sliding-window RMS level of the input signal",
		}),

		// UDP backend metrics
		PacketsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tbsk_udp_packets_received_total",
			Help: "Total number of UDP audio packets received",
		}),
		PacketsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tbsk_udp_packets_dropped_total",
			Help: "Total number of UDP packets dropped due to a full queue",
		}),
		DecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tbsk_pcm_decode_errors_total",
			Help: "Total number of PCM payload decode errors",
		}),

		// Decode scheduling metrics
		DecodeAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tbsk_decode_attempts_total",
			Help: "Total number of demodulation attempts scheduled",
		}),
		DecodeSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tbsk_decode_successes_total",
			Help: "Total number of demodulation attempts that produced bits",
		}),
		DecodeEmpty: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tbsk_decode_empty_total",
			Help: "Total number of demodulation attempts that found no frame",
		}),
		DecodeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tbsk_decode_failures_total",
			Help: "Total number of demodulation attempts that failed",
		}),
		DroppedTriggers: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tbsk_dropped_triggers_total",
			Help: "Total number of triggers dropped because a decode was in flight",
		}),
		DecodeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tbsk_decode_duration_seconds",
			Help:    "Duration of demodulation attempts",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}),
		DecodeInputSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tbsk_decode_input_samples",
			Help:    "Number of samples handed to the demodulator per attempt",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1K to ~4M samples
		}),

		// Message metrics
		MessagesEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tbsk_messages_emitted_total",
			Help: "Total number of decoded messages delivered to sinks",
		}),
		MessageLength: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tbsk_message_length_bytes",
			Help:    "Length of decoded message payloads in bytes",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1B to ~2KB
		}),
		SinkFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tbsk_sink_failures_total",
			Help: "Total number of message delivery failures",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tbsk_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tbsk_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tbsk_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordTick records a capture tick and the samples it produced
func (m *Metrics) RecordTick(samples int) {
	m.CaptureTicks.Inc()
	if samples == 0 {
		m.EmptyTicks.Inc()
		return
	}
	m.SamplesCaptured.Add(float64(samples))
}

// SetBufferedSeconds sets the buffered audio gauge
func (m *Metrics) SetBufferedSeconds(seconds float64) {
	m.BufferedSeconds.Set(seconds)
}

// SetCurrentRMS sets the RMS level gauge
func (m *Metrics) SetCurrentRMS(rms float64) {
	m.CurrentRMS.Set(rms)
}

// RecordPacketReceived increments the UDP packets received counter
func (m *Metrics) RecordPacketReceived() {
	m.PacketsReceived.Inc()
}

// RecordPacketDropped increments the UDP packets dropped counter
func (m *Metrics) RecordPacketDropped() {
	m.PacketsDropped.Inc()
}

// RecordDecodeError increments the PCM decode errors counter
func (m *Metrics) RecordDecodeError() {
	m.DecodeErrors.Inc()
}

// RecordDecodeAttempt records a scheduled demodulation attempt
func (m *Metrics) RecordDecodeAttempt(inputSamples int) {
	m.DecodeAttempts.Inc()
	m.DecodeInputSize.Observe(float64(inputSamples))
}

// RecordDecodeSuccess records a demodulation attempt that produced bits
func (m *Metrics) RecordDecodeSuccess(durationSeconds float64) {
	m.DecodeSuccesses.Inc()
	m.DecodeDuration.Observe(durationSeconds)
}

// RecordDecodeEmpty records a demodulation attempt that found no frame
func (m *Metrics) RecordDecodeEmpty(durationSeconds float64) {
	m.DecodeEmpty.Inc()
	m.DecodeDuration.Observe(durationSeconds)
}

// RecordDecodeFailure records a failed demodulation attempt
func (m *Metrics) RecordDecodeFailure(durationSeconds float64) {
	m.DecodeFailures.Inc()
	m.DecodeDuration.Observe(durationSeconds)
}

// RecordDroppedTrigger increments the dropped triggers counter
func (m *Metrics) RecordDroppedTrigger() {
	m.DroppedTriggers.Inc()
}

// RecordMessageEmitted records a delivered message and its payload length
func (m *Metrics) RecordMessageEmitted(lengthBytes int) {
	m.MessagesEmitted.Inc()
	m.MessageLength.Observe(float64(lengthBytes))
}

// RecordSinkFailure increments the sink failures counter
func (m *Metrics) RecordSinkFailure() {
	m.SinkFailures.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
