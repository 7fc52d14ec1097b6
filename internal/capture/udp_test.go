package capture

import (
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hirossan4049/tbsk-receiver/internal/metrics"
)

func newTestUDPDevice(t *testing.T) *UDPDevice {
	t.Helper()

	dev, err := NewUDPDevice(UDPConfig{
		BindAddress:  "127.0.0.1",
		Port:         9999,
		PCMFormat:    FormatS16LE,
		RingCapacity: 4096,
	}, nil)
	if err != nil {
		t.Fatalf("Failed to create UDP device: %v", err)
	}
	return dev
}

func TestUDPDeviceRejectsStereo(t *testing.T) {
	dev := newTestUDPDevice(t)
	if err := dev.Open("127.0.0.1:0", 2, 16000); err == nil {
		dev.Close()
		t.Fatal("Expected error for 2 channels")
	}
}

func TestUDPDeviceMetrics(t *testing.T) {
	dev := newTestUDPDevice(t)
	m := metrics.NewMetrics()
	dev.SetMetrics(m)

	// Port 0 picks an ephemeral port so the test never collides.
	if err := dev.Open("127.0.0.1:0", 1, 16000); err != nil {
		t.Fatalf("Failed to open UDP device: %v", err)
	}
	defer dev.Close()

	conn, err := net.Dial("udp", dev.LocalAddr().String())
	if err != nil {
		t.Fatalf("Failed to dial UDP device: %v", err)
	}
	defer conn.Close()

	// Two s16le samples, then an odd-length packet that fails PCM decode.
	if _, err := conn.Write([]byte{0x00, 0x10, 0x00, 0x20}); err != nil {
		t.Fatalf("Failed to send PCM packet: %v", err)
	}
	if _, err := conn.Write([]byte{0x7f}); err != nil {
		t.Fatalf("Failed to send truncated packet: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		stats := dev.GetStats()
		if stats.PacketsReceived >= 2 && stats.DecodeErrors >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for packets, stats: %+v", stats)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := testutil.ToFloat64(m.PacketsReceived); got != 2 {
		t.Errorf("Expected packets_received counter 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.DecodeErrors); got != 1 {
		t.Errorf("Expected pcm_decode_errors counter 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.PacketsDropped); got != 0 {
		t.Errorf("Expected packets_dropped counter 0, got %v", got)
	}
}
