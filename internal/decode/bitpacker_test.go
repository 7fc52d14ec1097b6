package decode

import (
	"testing"
)

// bitsOf expands a byte slice into MSB-first bits.
func bitsOf(data []byte) []byte {
	bits := make([]byte, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bits = append(bits, (b>>uint(i))&1)
		}
	}
	return bits
}

func TestPackBitsRoundTrip(t *testing.T) {
	const payload = "12345432;12345432"

	bits := bitsOf([]byte(payload))
	text, hex, ok := DecodeBits(bits)

	if !ok {
		t.Fatal("Expected a message from a non-empty bit sequence")
	}
	if hex {
		t.Error("Expected UTF-8 text, got hex fallback")
	}
	if text != payload {
		t.Errorf("Round trip mismatch: got %q, want %q", text, payload)
	}
}

func TestPackBitsPadding(t *testing.T) {
	// 13 bits pack into 2 bytes; the 3 trailing pad bits keep the last
	// byte's low 3 bits zero.
	bits := []byte{1, 0, 1, 0, 1, 0, 1, 0, 1, 1, 1, 1, 1}

	packed := PackBits(bits)
	if len(packed) != 2 {
		t.Fatalf("Expected 2 packed bytes, got %d", len(packed))
	}

	if packed[0] != 0xAA {
		t.Errorf("Expected first byte 0xAA, got 0x%02X", packed[0])
	}
	if packed[1]&0x07 != 0 {
		t.Errorf("Expected last byte's low 3 bits zero, got 0x%02X", packed[1])
	}
	if packed[1] != 0xF8 {
		t.Errorf("Expected second byte 0xF8, got 0x%02X", packed[1])
	}
}

func TestPackBitsAligned(t *testing.T) {
	packed := PackBits(bitsOf([]byte{0x41, 0x42}))
	if len(packed) != 2 || packed[0] != 0x41 || packed[1] != 0x42 {
		t.Errorf("Expected [0x41 0x42], got %v", packed)
	}
}

func TestPackBitsEmpty(t *testing.T) {
	if packed := PackBits(nil); packed != nil {
		t.Errorf("Expected nil for empty bit sequence, got %v", packed)
	}
}

func TestDecodeBitsHexFallback(t *testing.T) {
	bits := bitsOf([]byte{0xFF, 0xFE})

	text, hex, ok := DecodeBits(bits)
	if !ok {
		t.Fatal("Expected a message")
	}
	if !hex {
		t.Error("Expected hex fallback for invalid UTF-8")
	}
	if text != "[HEX] FF FE" {
		t.Errorf("Expected %q, got %q", "[HEX] FF FE", text)
	}
}

func TestDecodeBitsTrimsTrailingNUL(t *testing.T) {
	bits := bitsOf([]byte{'h', 'i', 0x00, 0x00})

	text, hex, ok := DecodeBits(bits)
	if !ok || hex {
		t.Fatalf("Expected plain text message, got hex=%v ok=%v", hex, ok)
	}
	if text != "hi" {
		t.Errorf("Expected %q, got %q", "hi", text)
	}
}

func TestDecodeBitsEmpty(t *testing.T) {
	if _, _, ok := DecodeBits(nil); ok {
		t.Error("Expected no message for empty bit sequence")
	}
}

func TestDecodeBitsMultiByteUTF8(t *testing.T) {
	const payload = "こんにちは"

	text, hex, ok := DecodeBits(bitsOf([]byte(payload)))
	if !ok || hex {
		t.Fatalf("Expected plain text message, got hex=%v ok=%v", hex, ok)
	}
	if text != payload {
		t.Errorf("Expected %q, got %q", payload, text)
	}
}
