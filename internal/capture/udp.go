package capture

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/hirossan4049/tbsk-receiver/internal/metrics"
)

// UDPConfig contains configuration for the UDP capture backend
type UDPConfig struct {
	BindAddress    string
	Port           int
	ReadBufferSize int
	PCMFormat      string // "u8" or "s16le"
	RingCapacity   int    // ring size in samples
}

// UDPDevice is a capture Device fed by raw PCM datagrams. Each datagram
// carries PCM bytes in the configured format; decoded samples are written
// into an internal ring shared with the tick-path Reader.
type UDPDevice struct {
	config  UDPConfig
	ring    *MemDevice
	logger  *slog.Logger
	metrics *metrics.Metrics

	conn *net.UDPConn

	// Concurrency management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	packetChan chan []byte

	// Statistics
	packetsReceived  uint64
	packetsProcessed uint64
	decodeErrors     uint64
	packetsDropped   uint64
	mu               sync.RWMutex
}

// UDPStats represents UDP capture statistics
type UDPStats struct {
	PacketsReceived  uint64 `json:"packets_received"`
	PacketsProcessed uint64 `json:"packets_processed"`
	DecodeErrors     uint64 `json:"decode_errors"`
	PacketsDropped   uint64 `json:"packets_dropped"`
	SamplesWritten   uint64 `json:"samples_written"`
}

// NewUDPDevice creates a UDP capture device. The ring is sized by
// RingCapacity samples.
func NewUDPDevice(cfg UDPConfig, logger *slog.Logger) (*UDPDevice, error) {
	if !ValidPCMFormat(cfg.PCMFormat) {
		return nil, fmt.Errorf("unsupported PCM format %q", cfg.PCMFormat)
	}

	ring, err := NewMemDevice(cfg.RingCapacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture ring: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &UDPDevice{
		config:     cfg,
		ring:       ring,
		logger:     logger,
		packetChan: make(chan []byte, 256),
	}, nil
}

// SetMetrics attaches Prometheus metrics to the device. Must be called
// before Open.
func (d *UDPDevice) SetMetrics(m *metrics.Metrics) {
	d.metrics = m
}

// Open binds the UDP socket and starts the receive and writer loops.
// deviceID overrides the configured bind address when non-empty, using the
// "host:port" form.
func (d *UDPDevice) Open(deviceID string, channels, sampleRate int) error {
	if channels != 1 {
		return fmt.Errorf("udp capture supports mono only, got %d channels", channels)
	}

	bind := fmt.Sprintf("%s:%d", d.config.BindAddress, d.config.Port)
	if deviceID != "" {
		bind = deviceID
	}

	addr, err := net.ResolveUDPAddr("udp", bind)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}

	if err := d.ring.Open(deviceID, channels, sampleRate); err != nil {
		conn.Close()
		return err
	}

	d.conn = conn
	d.ctx, d.cancel = context.WithCancel(context.Background())
	// The previous session's channel was closed on shutdown.
	d.packetChan = make(chan []byte, 256)

	if d.config.ReadBufferSize > 0 {
		if err := d.conn.SetReadBuffer(d.config.ReadBufferSize); err != nil {
			d.logger.Warn("Failed to set UDP read buffer size",
				slog.Int("buffer_size", d.config.ReadBufferSize),
				slog.String("error", err.Error()),
			)
		}
	}

	d.logger.Info("UDP capture device started",
		slog.String("address", addr.String()),
		slog.String("pcm_format", d.config.PCMFormat),
		slog.Int("ring_capacity", d.ring.Capacity()),
	)

	d.wg.Add(1)
	go d.receiveLoop()

	// A single writer keeps ring writes in arrival order.
	d.wg.Add(1)
	go d.writeLoop()

	return nil
}

// Close stops the loops and releases the socket
func (d *UDPDevice) Close() error {
	if d.cancel == nil {
		return ErrNotOpen
	}

	d.cancel()
	d.cancel = nil
	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			d.logger.Warn("Error closing UDP connection", slog.String("error", err.Error()))
		}
	}

	d.wg.Wait()
	d.ring.Close()

	stats := d.GetStats()
	d.logger.Info("UDP capture device stopped",
		slog.Uint64("packets_received", stats.PacketsReceived),
		slog.Uint64("packets_processed", stats.PacketsProcessed),
		slog.Uint64("decode_errors", stats.DecodeErrors),
		slog.Uint64("packets_dropped", stats.PacketsDropped),
	)

	return nil
}

// WritePosition returns the ring write cursor, negative until warmed up
func (d *UDPDevice) WritePosition() int {
	return d.ring.WritePosition()
}

// Read copies a contiguous span from the ring; it never wraps
func (d *UDPDevice) Read(dst []float64, from int) int {
	return d.ring.Read(dst, from)
}

// Capacity returns the total ring capacity in samples
func (d *UDPDevice) Capacity() int {
	return d.ring.Capacity()
}

// receiveLoop reads datagrams and queues them for the writer
func (d *UDPDevice) receiveLoop() {
	defer d.wg.Done()
	defer close(d.packetChan)

	buffer := make([]byte, 65535)

	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		// Deadline so shutdown is noticed promptly.
		if err := d.conn.SetReadDeadline(time.Now().Add(1 * time.Second)); err != nil {
			d.logger.Error("Failed to set read deadline", slog.String("error", err.Error()))
			continue
		}

		n, remoteAddr, err := d.conn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}

			select {
			case <-d.ctx.Done():
				return
			default:
				d.logger.Error("Failed to read UDP packet", slog.String("error", err.Error()))
				continue
			}
		}

		d.mu.Lock()
		d.packetsReceived++
		d.mu.Unlock()

		if d.metrics != nil {
			d.metrics.RecordPacketReceived()
		}

		data := make([]byte, n)
		copy(data, buffer[:n])

		select {
		case d.packetChan <- data:
		default:
			d.mu.Lock()
			d.packetsDropped++
			d.mu.Unlock()

			if d.metrics != nil {
				d.metrics.RecordPacketDropped()
			}

			d.logger.Warn("Capture queue full, dropping packet",
				slog.String("remote_addr", remoteAddr.String()),
				slog.Int("packet_size", n),
			)
		}
	}
}

// writeLoop decodes queued PCM packets into the ring
func (d *UDPDevice) writeLoop() {
	defer d.wg.Done()

	for data := range d.packetChan {
		samples, err := DecodePCM(d.config.PCMFormat, data)
		if err != nil {
			d.mu.Lock()
			d.decodeErrors++
			d.mu.Unlock()

			if d.metrics != nil {
				d.metrics.RecordDecodeError()
			}

			d.logger.Warn("Failed to decode PCM packet",
				slog.Int("packet_size", len(data)),
				slog.String("error", err.Error()),
			)
			continue
		}

		d.ring.WriteSamples(samples)

		d.mu.Lock()
		d.packetsProcessed++
		d.mu.Unlock()
	}
}

// GetStats returns current UDP capture statistics
func (d *UDPDevice) GetStats() UDPStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return UDPStats{
		PacketsReceived:  d.packetsReceived,
		PacketsProcessed: d.packetsProcessed,
		DecodeErrors:     d.decodeErrors,
		PacketsDropped:   d.packetsDropped,
		SamplesWritten:   d.ring.TotalWritten(),
	}
}

// LocalAddr returns the bound UDP address, or nil when closed
func (d *UDPDevice) LocalAddr() net.Addr {
	if d.conn == nil {
		return nil
	}
	return d.conn.LocalAddr()
}
