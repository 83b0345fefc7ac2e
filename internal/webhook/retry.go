package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultBackoff is the wait after attempt 1 and attempt 2. The sequence is
// fixed, not exponential, and has no jitter.
var DefaultBackoff = []time.Duration{1 * time.Second, 5 * time.Second}

// Attempter is the single-attempt contract the scheduler drives.
type Attempter interface {
	Execute(ctx context.Context, ar AttemptRequest) AttemptOutcome
}

// FinalOutcome is the terminal state of one registration's delivery sequence.
type FinalOutcome struct {
	Success  bool
	Attempts int
	Last     AttemptOutcome
}

// Scheduler wraps an Attempter in a bounded retry loop.
type Scheduler struct {
	exec    Attempter
	audit   AuditStore
	backoff []time.Duration
	metrics *Metrics
}

func NewScheduler(exec Attempter, audit AuditStore, backoff []time.Duration, metrics *Metrics) *Scheduler {
	if len(backoff) == 0 {
		backoff = DefaultBackoff
	}
	return &Scheduler{
		exec:    exec,
		audit:   audit,
		backoff: backoff,
		metrics: metrics,
	}
}

// MaxAttempts is one more than the number of backoff intervals.
func (s *Scheduler) MaxAttempts() int {
	return len(s.backoff) + 1
}

// DeliverWithRetry runs Pending(1..n) until Success or Exhausted. Every
// attempt is persisted before the retry decision. It never returns an error;
// on exhaustion the last failed outcome is returned.
func (s *Scheduler) DeliverWithRetry(ctx context.Context, reg Registration, env Encoded) FinalOutcome {
	maxAttempts := s.MaxAttempts()
	timestamp := env.FormattedTimestamp()

	var final FinalOutcome
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out := s.exec.Execute(ctx, AttemptRequest{
			URL:       reg.URL,
			Payload:   env.Body,
			Signature: Sign(env.Body, reg.Secret),
			Event:     env.Type,
			Timestamp: timestamp,
		})
		final = FinalOutcome{Success: out.Success, Attempts: attempt, Last: out}

		s.record(ctx, reg, env, attempt, out)
		s.metrics.attempt(env.Type, out)

		if out.Success {
			log.Info().
				Str("webhook_id", reg.ID).
				Str("event", env.Type.String()).
				Int("status", *out.StatusCode).
				Int("attempt", attempt).
				Dur("duration_ms", out.Duration).
				Msg("Webhook delivered successfully")
			return final
		}

		ev := log.Warn().
			Str("webhook_id", reg.ID).
			Str("url", RedactURL(reg.URL)).
			Str("event", env.Type.String()).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts)
		if out.StatusCode != nil {
			ev = ev.Int("status", *out.StatusCode)
		}
		if out.Err != nil {
			ev = ev.Err(out.Err)
		}
		ev.Msg("Webhook delivery attempt failed")

		if attempt == maxAttempts {
			break
		}
		wait := s.backoff[attempt-1]
		log.Debug().
			Str("webhook_id", reg.ID).
			Dur("backoff_ms", wait).
			Msg("Waiting before webhook retry")
		if !sleep(ctx, wait) {
			log.Warn().
				Str("webhook_id", reg.ID).
				Str("event", env.Type.String()).
				Int("attempt", attempt).
				Msg("Webhook retry sequence cancelled")
			return final
		}
	}

	s.metrics.exhausted(env.Type)
	log.Error().
		Str("webhook_id", reg.ID).
		Str("url", RedactURL(reg.URL)).
		Str("event", env.Type.String()).
		Int("attempts", final.Attempts).
		Msg("Webhook delivery failed after all retries")
	return final
}

func (s *Scheduler) record(ctx context.Context, reg Registration, env Encoded, attempt int, out AttemptOutcome) {
	rec := DeliveryRecord{
		ID:           uuid.NewString(),
		WebhookID:    reg.ID,
		Event:        env.Type,
		Payload:      string(env.Body),
		StatusCode:   out.StatusCode,
		ResponseBody: Truncate(out.Body, MaxResponseChars),
		DurationMs:   out.Duration.Milliseconds(),
		Success:      out.Success,
		Attempt:      attempt,
		CreatedAt:    time.Now().UTC(),
	}
	if out.Err != nil {
		rec.Error = out.Err.Error()
	}
	// The record must outlive a cancelled sequence.
	if err := s.audit.InsertDeliveryRecord(context.WithoutCancel(ctx), rec); err != nil {
		log.Error().
			Err(err).
			Str("webhook_id", reg.ID).
			Int("attempt", attempt).
			Msg("Failed to persist delivery record")
	}
}

// sleep waits for d or until ctx is done; it reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
