package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"media-webhooks-api/internal/webhook"
)

// Repository persists media metadata.
type Repository interface {
	Insert(ctx context.Context, o Object) error
	Get(ctx context.Context, tenantID, id string) (Object, error)
	// UpdateState moves an object from one state to another. It returns
	// ErrInvalidTransition if the stored state is no longer from.
	UpdateState(ctx context.Context, tenantID, id string, from, to State, reason string) (Object, error)
}

// Notifier is the fire-and-forget event sink; *webhook.Dispatcher satisfies it.
type Notifier interface {
	Trigger(tenantID string, event webhook.EventType, data map[string]any)
}

// Service holds the lifecycle rules. Every successful change raises the
// matching webhook event after it has been persisted.
type Service struct {
	Repo     Repository
	Notifier Notifier
}

// Register records a freshly uploaded object and raises media.uploaded.
func (s *Service) Register(ctx context.Context, tenantID, filename, contentType string, size int64) (Object, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return Object{}, ErrFilenameRequired
	}
	if size < 0 {
		return Object{}, fmt.Errorf("size must not be negative: %d", size)
	}

	now := time.Now().UTC()
	o := Object{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   size,
		State:       StateUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Insert(ctx, o); err != nil {
		log.Error().
			Err(err).
			Str("tenant_id", tenantID).
			Str("filename", filename).
			Msg("Failed to insert media object")
		return Object{}, err
	}

	log.Info().
		Str("tenant_id", tenantID).
		Str("media_id", o.ID).
		Str("filename", filename).
		Int64("size_bytes", size).
		Msg("Media object registered")

	s.Notifier.Trigger(tenantID, webhook.MediaUploaded, o.EventData())
	return o, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (Object, error) {
	return s.Repo.Get(ctx, tenantID, id)
}

func (s *Service) MarkProcessing(ctx context.Context, tenantID, id string) (Object, error) {
	return s.transition(ctx, tenantID, id, StateProcessing, "", webhook.MediaProcessing)
}

func (s *Service) MarkReady(ctx context.Context, tenantID, id string) (Object, error) {
	return s.transition(ctx, tenantID, id, StateReady, "", webhook.MediaReady)
}

func (s *Service) MarkFailed(ctx context.Context, tenantID, id, reason string) (Object, error) {
	if strings.TrimSpace(reason) == "" {
		reason = "unknown error"
	}
	return s.transition(ctx, tenantID, id, StateFailed, reason, webhook.MediaFailed)
}

func (s *Service) Delete(ctx context.Context, tenantID, id string) (Object, error) {
	return s.transition(ctx, tenantID, id, StateDeleted, "", webhook.MediaDeleted)
}

func (s *Service) transition(ctx context.Context, tenantID, id string, to State, reason string, event webhook.EventType) (Object, error) {
	cur, err := s.Repo.Get(ctx, tenantID, id)
	if err != nil {
		return Object{}, err
	}
	if !CanTransition(cur.State, to) {
		log.Warn().
			Str("tenant_id", tenantID).
			Str("media_id", id).
			Str("from", string(cur.State)).
			Str("to", string(to)).
			Msg("Rejected media state transition")
		return Object{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.State, to)
	}

	updated, err := s.Repo.UpdateState(ctx, tenantID, id, cur.State, to, reason)
	if err != nil {
		return Object{}, err
	}

	log.Info().
		Str("tenant_id", tenantID).
		Str("media_id", id).
		Str("from", string(cur.State)).
		Str("to", string(to)).
		Msg("Media state changed")

	s.Notifier.Trigger(tenantID, event, updated.EventData())
	return updated, nil
}
