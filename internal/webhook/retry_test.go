package webhook_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-webhooks-api/internal/webhook"
)

var testBackoff = []time.Duration{30 * time.Millisecond, 60 * time.Millisecond}

func encodedEnvelope(t *testing.T, e webhook.EventType) webhook.Encoded {
	t.Helper()
	enc, err := webhook.NewEnvelope(e, map[string]any{"id": "media-1"}).Encode()
	require.NoError(t, err)
	return enc
}

func TestDeliverWithRetryExhausts(t *testing.T) {
	store := newMemStore()
	exec := &scriptedAttempter{outcomes: []webhook.AttemptOutcome{statusOutcome(500)}}
	s := webhook.NewScheduler(exec, store, testBackoff, nil)
	reg := testRegistration("wh1", "t1", "https://example.com", webhook.MediaReady)
	env := encodedEnvelope(t, webhook.MediaReady)

	start := time.Now()
	final := s.DeliverWithRetry(context.Background(), reg, env)
	elapsed := time.Since(start)

	assert.False(t, final.Success)
	assert.Equal(t, 3, final.Attempts)
	require.NotNil(t, final.Last.StatusCode)
	assert.Equal(t, 500, *final.Last.StatusCode)
	assert.Equal(t, 3, exec.calls())
	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond, "both backoff waits must elapse")

	records := store.recordsFor("wh1")
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, i+1, rec.Attempt)
		assert.False(t, rec.Success)
		assert.Equal(t, webhook.MediaReady, rec.Event)
		assert.Equal(t, string(env.Body), rec.Payload)
		require.NotNil(t, rec.StatusCode)
		assert.Equal(t, 500, *rec.StatusCode)
		assert.NotEmpty(t, rec.ID)
	}
}

func TestDeliverWithRetryFirstAttemptSuccess(t *testing.T) {
	store := newMemStore()
	exec := &scriptedAttempter{outcomes: []webhook.AttemptOutcome{statusOutcome(200)}}
	s := webhook.NewScheduler(exec, store, []time.Duration{time.Second, time.Second}, nil)

	start := time.Now()
	final := s.DeliverWithRetry(context.Background(),
		testRegistration("wh1", "t1", "https://example.com", webhook.MediaUploaded),
		encodedEnvelope(t, webhook.MediaUploaded))

	assert.True(t, final.Success)
	assert.Equal(t, 1, final.Attempts)
	assert.Equal(t, 1, exec.calls())
	assert.Less(t, time.Since(start), 500*time.Millisecond, "no backoff after success")

	records := store.recordsFor("wh1")
	require.Len(t, records, 1)
	assert.True(t, records[0].Success)
	assert.Equal(t, 1, records[0].Attempt)
}

func TestDeliverWithRetryRecoversOnSecondAttempt(t *testing.T) {
	store := newMemStore()
	exec := &scriptedAttempter{outcomes: []webhook.AttemptOutcome{
		{Err: errors.New("connection refused")},
		statusOutcome(204),
	}}
	s := webhook.NewScheduler(exec, store, testBackoff, nil)

	final := s.DeliverWithRetry(context.Background(),
		testRegistration("wh1", "t1", "https://example.com", webhook.MediaFailed),
		encodedEnvelope(t, webhook.MediaFailed))

	assert.True(t, final.Success)
	assert.Equal(t, 2, final.Attempts)

	records := store.recordsFor("wh1")
	require.Len(t, records, 2)
	assert.Nil(t, records[0].StatusCode)
	assert.Equal(t, "connection refused", records[0].Error)
	assert.False(t, records[0].Success)
	assert.True(t, records[1].Success)
	assert.Equal(t, 2, records[1].Attempt)
}

func TestDeliverWithRetrySignsEveryAttemptIdentically(t *testing.T) {
	store := newMemStore()
	exec := &scriptedAttempter{outcomes: []webhook.AttemptOutcome{statusOutcome(502)}}
	s := webhook.NewScheduler(exec, store, []time.Duration{0, 0}, nil)
	reg := testRegistration("wh1", "t1", "https://example.com/hook", webhook.MediaReady)
	env := encodedEnvelope(t, webhook.MediaReady)

	s.DeliverWithRetry(context.Background(), reg, env)

	require.Len(t, exec.requests, 3)
	want := webhook.Sign(env.Body, reg.Secret)
	for _, ar := range exec.requests {
		assert.Equal(t, reg.URL, ar.URL)
		assert.Equal(t, env.Body, ar.Payload)
		assert.Equal(t, want, ar.Signature)
		assert.Equal(t, env.FormattedTimestamp(), ar.Timestamp)
		assert.Equal(t, webhook.MediaReady, ar.Event)
	}
}

func TestDeliverWithRetryCancelledDuringBackoff(t *testing.T) {
	store := newMemStore()
	exec := &scriptedAttempter{outcomes: []webhook.AttemptOutcome{statusOutcome(500)}}
	s := webhook.NewScheduler(exec, store, []time.Duration{5 * time.Second, 5 * time.Second}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-store.inserted
		cancel()
	}()

	start := time.Now()
	final := s.DeliverWithRetry(ctx,
		testRegistration("wh1", "t1", "https://example.com", webhook.MediaReady),
		encodedEnvelope(t, webhook.MediaReady))

	assert.False(t, final.Success)
	assert.Equal(t, 1, final.Attempts)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, store.recordsFor("wh1"), 1)
}

type failingAudit struct{ calls int }

func (f *failingAudit) InsertDeliveryRecord(context.Context, webhook.DeliveryRecord) error {
	f.calls++
	return errors.New("disk full")
}

func TestDeliverWithRetryIgnoresAuditFailures(t *testing.T) {
	audit := &failingAudit{}
	exec := &scriptedAttempter{outcomes: []webhook.AttemptOutcome{statusOutcome(500), statusOutcome(200)}}
	s := webhook.NewScheduler(exec, audit, []time.Duration{0, 0}, nil)

	final := s.DeliverWithRetry(context.Background(),
		testRegistration("wh1", "t1", "https://example.com", webhook.MediaReady),
		encodedEnvelope(t, webhook.MediaReady))

	assert.True(t, final.Success)
	assert.Equal(t, 2, audit.calls)
}

func TestSchedulerDefaults(t *testing.T) {
	s := webhook.NewScheduler(&scriptedAttempter{}, newMemStore(), nil, nil)
	assert.Equal(t, 3, s.MaxAttempts())
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second}, webhook.DefaultBackoff)

	empty := webhook.NewScheduler(&scriptedAttempter{}, newMemStore(), []time.Duration{}, nil)
	assert.Equal(t, 3, empty.MaxAttempts(), "an empty schedule still makes three attempts")
}

func TestSchedulerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := webhook.NewMetrics(reg)
	exec := &scriptedAttempter{outcomes: []webhook.AttemptOutcome{
		{Err: errors.New("timeout")},
		statusOutcome(500),
		statusOutcome(503),
	}}
	s := webhook.NewScheduler(exec, newMemStore(), []time.Duration{0, 0}, m)

	s.DeliverWithRetry(context.Background(),
		testRegistration("wh1", "t1", "https://example.com", webhook.MediaDeleted),
		encodedEnvelope(t, webhook.MediaDeleted))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("media.deleted", "transport_error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("media.deleted", "failure")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("media.deleted", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExhaustedTotal.WithLabelValues("media.deleted")))
}
