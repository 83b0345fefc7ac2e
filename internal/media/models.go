package media

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("media object not found")
	ErrInvalidTransition = errors.New("invalid media state transition")
	ErrFilenameRequired  = errors.New("filename is required")
)

// State is where an object is in the upload/transcode lifecycle.
type State string

const (
	StateUploaded   State = "uploaded"
	StateProcessing State = "processing"
	StateReady      State = "ready"
	StateFailed     State = "failed"
	StateDeleted    State = "deleted"
)

// transitions lists the allowed next states. Deletion is handled separately
// since it is allowed from every live state.
var transitions = map[State][]State{
	StateUploaded:   {StateProcessing},
	StateProcessing: {StateReady, StateFailed},
	StateFailed:     {StateProcessing},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to State) bool {
	if to == StateDeleted {
		return from != StateDeleted
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Object is the internal domain model.
type Object struct {
	ID            string
	TenantID      string
	Filename      string
	ContentType   string
	SizeBytes     int64
	State         State
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ObjectDTO is what we expose over HTTP.
type ObjectDTO struct {
	ID            string    `json:"id" example:"0d6c1c3e-5b7a-4a55-9d8e-3f1f0c7a9b21" doc:"Media object ID"`
	Filename      string    `json:"filename" example:"intro.mp4" doc:"Original filename"`
	ContentType   string    `json:"contentType,omitempty" example:"video/mp4" doc:"MIME type"`
	SizeBytes     int64     `json:"sizeBytes" example:"52428800" doc:"File size in bytes"`
	State         State     `json:"state" swaggertype:"string" example:"processing" doc:"Lifecycle state"`
	FailureReason string    `json:"failureReason,omitempty" example:"unsupported codec" doc:"Set when state is failed"`
	CreatedAt     time.Time `json:"createdAt" example:"2024-01-15T10:30:00Z"`
	UpdatedAt     time.Time `json:"updatedAt" example:"2024-01-15T10:31:12Z"`
}

func (o Object) ToDTO() ObjectDTO {
	return ObjectDTO{
		ID:            o.ID,
		Filename:      o.Filename,
		ContentType:   o.ContentType,
		SizeBytes:     o.SizeBytes,
		State:         o.State,
		FailureReason: o.FailureReason,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// EventData is the "data" object carried by every media.* event.
func (o Object) EventData() map[string]any {
	data := map[string]any{
		"id":          o.ID,
		"filename":    o.Filename,
		"contentType": o.ContentType,
		"sizeBytes":   o.SizeBytes,
		"state":       string(o.State),
	}
	if o.FailureReason != "" {
		data["failureReason"] = o.FailureReason
	}
	return data
}
