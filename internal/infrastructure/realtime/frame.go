package realtime

import (
	"encoding/json"
	"time"
)

// InboundFrame is what clients send: {"event": "...", "data": {...}, "ackId": "..."}.
type InboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	AckID string          `json:"ackId,omitempty"`
}

type OutboundFrame struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
	AckID     string      `json:"ackId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func encodeFrame(event string, payload interface{}, ackID string) ([]byte, error) {
	return json.Marshal(OutboundFrame{
		Event:     event,
		Data:      payload,
		AckID:     ackID,
		Timestamp: time.Now().UTC(),
	})
}

type errorPayload struct {
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}
