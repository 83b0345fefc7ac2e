package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	ErrUnknownEvent = errors.New("unknown event type")
	ErrInvalidURL   = errors.New("url must be an absolute http(s) url")
	ErrNoEvents     = errors.New("at least one event is required")
	ErrNameRequired = errors.New("name is required")
	ErrNotFound     = errors.New("webhook not found")
)

// EventType is the closed set of media lifecycle events a webhook can subscribe to.
type EventType int

const (
	MediaUploaded EventType = iota + 1
	MediaProcessing
	MediaReady
	MediaFailed
	MediaDeleted
)

var eventNames = map[EventType]string{
	MediaUploaded:   "media.uploaded",
	MediaProcessing: "media.processing",
	MediaReady:      "media.ready",
	MediaFailed:     "media.failed",
	MediaDeleted:    "media.deleted",
}

// AllEventTypes returns every known event type in declaration order.
func AllEventTypes() []EventType {
	return []EventType{MediaUploaded, MediaProcessing, MediaReady, MediaFailed, MediaDeleted}
}

func (e EventType) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("EventType(%d)", int(e))
}

func (e EventType) Valid() bool {
	_, ok := eventNames[e]
	return ok
}

// ParseEventType maps a wire name such as "media.ready" to its EventType.
func ParseEventType(s string) (EventType, error) {
	s = strings.TrimSpace(s)
	for t, name := range eventNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEvent, s)
}

func (e EventType) MarshalJSON() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEvent, int(e))
	}
	return json.Marshal(e.String())
}

func (e *EventType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := ParseEventType(s)
	if err != nil {
		return err
	}
	*e = t
	return nil
}

// Registration is a tenant's subscription, stored in DB.
type Registration struct {
	ID              string
	TenantID        string
	Name            string
	URL             string
	Secret          string
	Events          []EventType
	Active          bool
	FailureCount    int
	LastTriggeredAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks the fields the registration API is allowed to set.
func (r Registration) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrNameRequired
	}
	u, err := url.Parse(r.URL)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidURL, r.URL)
	}
	if len(r.Events) == 0 {
		return ErrNoEvents
	}
	for _, e := range r.Events {
		if !e.Valid() {
			return fmt.Errorf("%w: %d", ErrUnknownEvent, int(e))
		}
	}
	return nil
}

func (r Registration) Subscribes(e EventType) bool {
	for _, x := range r.Events {
		if x == e {
			return true
		}
	}
	return false
}

// RegistrationDTO is sent/received over the API. Secret is only populated
// in the responses to creation and rotation.
type RegistrationDTO struct {
	ID              string      `json:"id" example:"6f1c2d8e-8d5a-4c1e-9f0e-0b8f9c1d2e3f" doc:"Webhook ID"`
	Name            string      `json:"name" example:"CDN purge hook" doc:"Display name"`
	URL             string      `json:"url" example:"https://example.com/webhook" doc:"Webhook endpoint URL"`
	Events          []EventType `json:"events" swaggertype:"array,string" example:"media.ready,media.failed" doc:"Events to subscribe to"`
	Active          bool        `json:"active" example:"true" doc:"Whether webhook receives deliveries"`
	FailureCount    int         `json:"failureCount" example:"0" doc:"Consecutive failed deliveries"`
	LastTriggeredAt *time.Time  `json:"lastTriggeredAt,omitempty" doc:"Last delivery sequence completion"`
	Secret          string      `json:"secret,omitempty" example:"whsec_AbC123..." doc:"Signing secret, only shown once"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

func (r Registration) ToDTO() RegistrationDTO {
	return RegistrationDTO{
		ID:              r.ID,
		Name:            r.Name,
		URL:             r.URL,
		Events:          r.Events,
		Active:          r.Active,
		FailureCount:    r.FailureCount,
		LastTriggeredAt: r.LastTriggeredAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// DeliveryRecord is one physical HTTP attempt. Records are append-only.
type DeliveryRecord struct {
	ID           string
	WebhookID    string
	Event        EventType
	Payload      string
	StatusCode   *int
	ResponseBody string
	DurationMs   int64
	Success      bool
	Attempt      int
	Error        string
	CreatedAt    time.Time
}

// DeliveryRecordDTO backs the delivery-history view.
type DeliveryRecordDTO struct {
	ID           string          `json:"id"`
	WebhookID    string          `json:"webhookId"`
	Event        EventType       `json:"event" swaggertype:"string" example:"media.ready"`
	Payload      json.RawMessage `json:"payload" swaggertype:"object"`
	StatusCode   *int            `json:"statusCode,omitempty" example:"200"`
	ResponseBody string          `json:"responseBody,omitempty"`
	DurationMs   int64           `json:"durationMs" example:"87"`
	Success      bool            `json:"success" example:"true"`
	Attempt      int             `json:"attempt" example:"1"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func (d DeliveryRecord) ToDTO() DeliveryRecordDTO {
	payload := json.RawMessage(d.Payload)
	if !json.Valid(payload) {
		payload, _ = json.Marshal(d.Payload)
	}
	return DeliveryRecordDTO{
		ID:           d.ID,
		WebhookID:    d.WebhookID,
		Event:        d.Event,
		Payload:      payload,
		StatusCode:   d.StatusCode,
		ResponseBody: d.ResponseBody,
		DurationMs:   d.DurationMs,
		Success:      d.Success,
		Attempt:      d.Attempt,
		Error:        d.Error,
		CreatedAt:    d.CreatedAt,
	}
}
