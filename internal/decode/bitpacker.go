package decode

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

// HexPrefix marks a message whose bytes were not valid UTF-8.
const HexPrefix = "[HEX] "

// PackBits packs a sequence of bits (0/1 values) into bytes, most
// significant bit first. A sequence that is not a multiple of 8 bits long is
// padded with trailing zero bits to the next byte boundary.
func PackBits(bits []byte) []byte {
	if len(bits) == 0 {
		return nil
	}

	packed := make([]byte, (len(bits)+7)/8)
	for i, bit := range bits {
		if bit != 0 {
			packed[i/8] |= 1 << (7 - uint(i%8))
		}
	}

	return packed
}

// DecodeBits converts a recovered bit sequence into its message string.
// Trailing NUL bytes are trimmed before UTF-8 validation; bytes that do not
// form valid UTF-8 are rendered as "[HEX] " followed by space-separated
// two-digit uppercase hex. The hex rendering is the designed behavior for
// unrecognized payloads, not an error. The second return value reports
// whether the hex fallback was used; the third is false when no bits were
// supplied and no message should be emitted.
func DecodeBits(bits []byte) (text string, hex bool, ok bool) {
	if len(bits) == 0 {
		return "", false, false
	}

	packed := PackBits(bits)
	trimmed := bytes.TrimRight(packed, "\x00")

	if utf8.Valid(trimmed) {
		return string(trimmed), false, true
	}

	return formatHex(trimmed), true, true
}

// formatHex renders bytes as "[HEX] AA BB ..."
func formatHex(data []byte) string {
	var b strings.Builder
	b.WriteString(HexPrefix)
	for i, by := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", by)
	}
	return b.String()
}
