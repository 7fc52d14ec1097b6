package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"
)

type DecodedMessage struct {
	ID          string        `json:"id"`
	Text        string        `json:"text"`
	Hex         bool          `json:"hex"`
	DecodedAt   time.Time     `json:"decoded_at"`
	DecodeTime  time.Duration `json:"decode_time"`
	SampleCount int           `json:"sample_count"`
	BitCount    int           `json:"bit_count"`
}

type DemodResponse struct {
	Bits []int `json:"bits"`
}

func messagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var msg DecodedMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "Error parsing message", http.StatusBadRequest)
		return
	}

	log.Printf("📨 MESSAGE RECEIVED:")
	log.Printf("  ID: %s", msg.ID)
	log.Printf("  Text: %q", msg.Text)
	log.Printf("  Hex fallback: %v", msg.Hex)
	log.Printf("  Samples: %d", msg.SampleCount)
	log.Printf("  Bits: %d", msg.BitCount)
	log.Printf("  Decode time: %v", msg.DecodeTime)
	log.Println("---")

	w.WriteHeader(http.StatusOK)
}

// demodulateHandler fakes the external demodulation service: it accepts the
// s16le window and always answers with the bits for "HELLO".
func demodulateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pcm, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Error reading audio", http.StatusBadRequest)
		return
	}

	log.Printf("🎤 DEMODULATION REQUEST: %d PCM bytes, sample rate %s",
		len(pcm), r.Header.Get("X-Sample-Rate"))

	// Simulate processing time
	time.Sleep(100 * time.Millisecond)

	var bits []int
	for _, b := range []byte("HELLO") {
		for i := 7; i >= 0; i-- {
			bits = append(bits, int((b>>uint(i))&1))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DemodResponse{Bits: bits})

	log.Printf("✅ DEMODULATION RESPONSE SENT: %d bits", len(bits))
}

func main() {
	http.HandleFunc("/messages", messagesHandler)
	http.HandleFunc("/demodulate", demodulateHandler)

	port := ":9000"
	log.Printf("🚀 Test Sink Server starting on port %s", port)
	log.Printf("📡 Webhook endpoint: http://localhost%s/messages", port)
	log.Printf("📡 Demodulator endpoint: http://localhost%s/demodulate", port)
	log.Println("💡 Point sink.webhook.endpoint and decode.demodulator.endpoint at these URLs")

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
