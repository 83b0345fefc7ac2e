package webhook

import (
	"encoding/json"
	"time"
)

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Envelope is the logical notification raised by a producer. Timestamp is
// the capture time and is never changed after construction.
type Envelope struct {
	Type      EventType
	Timestamp time.Time
	Data      map[string]any
}

// EventPayload is the JSON body sent to receivers.
type EventPayload struct {
	Event     string         `json:"event" example:"media.ready" doc:"Event type"`
	Timestamp string         `json:"timestamp" example:"2024-01-15T10:30:00.000Z" doc:"Capture time, ISO-8601"`
	Data      map[string]any `json:"data" doc:"Event-specific payload data"`
}

// Encoded is an envelope together with the exact bytes that are signed,
// transmitted and audited.
type Encoded struct {
	Envelope
	Body []byte
}

func NewEnvelope(t EventType, data map[string]any) Envelope {
	return Envelope{
		Type:      t,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// FormattedTimestamp is the value used both in the body and in X-Webhook-Timestamp.
func (e Envelope) FormattedTimestamp() string {
	return e.Timestamp.UTC().Format(TimestampLayout)
}

// Encode serializes the envelope once. Callers must reuse the returned bytes
// rather than re-encoding, since receivers verify the signature over them.
func (e Envelope) Encode() (Encoded, error) {
	data := e.Data
	if data == nil {
		data = map[string]any{}
	}
	body, err := json.Marshal(EventPayload{
		Event:     e.Type.String(),
		Timestamp: e.FormattedTimestamp(),
		Data:      data,
	})
	if err != nil {
		return Encoded{}, err
	}
	return Encoded{Envelope: e, Body: body}, nil
}
