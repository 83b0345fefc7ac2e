package media_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-webhooks-api/internal/db"
	"media-webhooks-api/internal/media"
	"media-webhooks-api/internal/webhook"
)

type triggered struct {
	tenant string
	event  webhook.EventType
	data   map[string]any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []triggered
}

func (n *recordingNotifier) Trigger(tenantID string, event webhook.EventType, data map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, triggered{tenant: tenantID, event: event, data: data})
}

func (n *recordingNotifier) names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		out = append(out, e.event.String())
	}
	return out
}

func openDB(t *testing.T) *media.SQLRepo {
	t.Helper()
	database, err := db.Open(db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database, db.DriverSQLite, ":memory:"))
	return &media.SQLRepo{DB: database, Driver: db.DriverSQLite}
}

func TestLifecycleRaisesEvents(t *testing.T) {
	n := &recordingNotifier{}
	svc := &media.Service{Repo: openDB(t), Notifier: n}
	ctx := context.Background()

	o, err := svc.Register(ctx, "t1", "intro.mp4", "video/mp4", 1024)
	require.NoError(t, err)
	assert.Equal(t, media.StateUploaded, o.State)

	_, err = svc.MarkProcessing(ctx, "t1", o.ID)
	require.NoError(t, err)
	failed, err := svc.MarkFailed(ctx, "t1", o.ID, "unsupported codec")
	require.NoError(t, err)
	assert.Equal(t, "unsupported codec", failed.FailureReason)

	retry, err := svc.MarkProcessing(ctx, "t1", o.ID)
	require.NoError(t, err)
	assert.Empty(t, retry.FailureReason, "re-processing clears the failure")

	ready, err := svc.MarkReady(ctx, "t1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, media.StateReady, ready.State)

	_, err = svc.Delete(ctx, "t1", o.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"media.uploaded", "media.processing", "media.failed", "media.processing", "media.ready", "media.deleted",
	}, n.names())
	for _, e := range n.events {
		assert.Equal(t, "t1", e.tenant)
		assert.Equal(t, o.ID, e.data["id"])
	}
	assert.Equal(t, "unsupported codec", n.events[2].data["failureReason"])
}

func TestIllegalTransitionsDoNotNotify(t *testing.T) {
	n := &recordingNotifier{}
	svc := &media.Service{Repo: openDB(t), Notifier: n}
	ctx := context.Background()

	o, err := svc.Register(ctx, "t1", "clip.mov", "video/quicktime", 10)
	require.NoError(t, err)

	_, err = svc.MarkReady(ctx, "t1", o.ID)
	assert.ErrorIs(t, err, media.ErrInvalidTransition)
	_, err = svc.MarkFailed(ctx, "t1", o.ID, "x")
	assert.ErrorIs(t, err, media.ErrInvalidTransition)

	_, err = svc.Delete(ctx, "t1", o.ID)
	require.NoError(t, err)
	_, err = svc.Delete(ctx, "t1", o.ID)
	assert.ErrorIs(t, err, media.ErrInvalidTransition)
	_, err = svc.MarkProcessing(ctx, "t1", o.ID)
	assert.ErrorIs(t, err, media.ErrInvalidTransition)

	assert.Equal(t, []string{"media.uploaded", "media.deleted"}, n.names())
}

func TestTenantIsolation(t *testing.T) {
	n := &recordingNotifier{}
	svc := &media.Service{Repo: openDB(t), Notifier: n}
	ctx := context.Background()

	o, err := svc.Register(ctx, "t1", "a.mp4", "", 1)
	require.NoError(t, err)

	_, err = svc.Get(ctx, "t2", o.ID)
	assert.ErrorIs(t, err, media.ErrNotFound)
	_, err = svc.MarkProcessing(ctx, "t2", o.ID)
	assert.ErrorIs(t, err, media.ErrNotFound)
}

func TestRegisterValidation(t *testing.T) {
	n := &recordingNotifier{}
	svc := &media.Service{Repo: openDB(t), Notifier: n}

	_, err := svc.Register(context.Background(), "t1", "  ", "", 1)
	assert.ErrorIs(t, err, media.ErrFilenameRequired)
	_, err = svc.Register(context.Background(), "t1", "a.mp4", "", -1)
	assert.Error(t, err)
	assert.Empty(t, n.names())
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to media.State
		ok       bool
	}{
		{media.StateUploaded, media.StateProcessing, true},
		{media.StateUploaded, media.StateReady, false},
		{media.StateProcessing, media.StateReady, true},
		{media.StateProcessing, media.StateFailed, true},
		{media.StateFailed, media.StateProcessing, true},
		{media.StateReady, media.StateProcessing, false},
		{media.StateReady, media.StateDeleted, true},
		{media.StateDeleted, media.StateDeleted, false},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.ok, media.CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

// TestReadyEventEndToEnd drives a media.ready transition through the real
// dispatcher, SQL stores and a signed HTTP delivery.
func TestReadyEventEndToEnd(t *testing.T) {
	database, err := db.Open(db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database, db.DriverSQLite, ":memory:"))

	var (
		mu       sync.Mutex
		received []webhook.EventPayload
	)
	const secret = "whsec_0123456789abcdefghijABCDEFGHIJ"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !webhook.Verify(body, secret, r.Header.Get(webhook.HeaderSignature)) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var p webhook.EventPayload
		_ = json.Unmarshal(body, &p)
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	ctx := context.Background()
	hooks := &webhook.SQLRepo{DB: database, Driver: db.DriverSQLite}
	reg, err := hooks.Create(ctx, webhook.Registration{
		TenantID: "t1",
		Name:     "cdn",
		URL:      srv.URL,
		Secret:   secret,
		Events:   []webhook.EventType{webhook.MediaReady},
		Active:   true,
	})
	require.NoError(t, err)
	// Seed a previous failure streak that a success must clear.
	require.NoError(t, hooks.UpdateHealth(ctx, reg.ID, false))

	exec := webhook.NewExecutor(2*time.Second, "")
	dispatcher := webhook.NewDispatcher(
		webhook.NewResolver(hooks),
		webhook.NewScheduler(exec, hooks, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond}, nil),
		hooks,
		nil,
	)
	svc := &media.Service{Repo: &media.SQLRepo{DB: database, Driver: db.DriverSQLite}, Notifier: dispatcher}

	o, err := svc.Register(ctx, "t1", "intro.mp4", "video/mp4", 2048)
	require.NoError(t, err)
	_, err = svc.MarkProcessing(ctx, "t1", o.ID)
	require.NoError(t, err)
	_, err = svc.MarkReady(ctx, "t1", o.ID)
	require.NoError(t, err)
	dispatcher.Wait()

	mu.Lock()
	require.Len(t, received, 1, "only media.ready is subscribed")
	assert.Equal(t, "media.ready", received[0].Event)
	assert.Equal(t, o.ID, received[0].Data["id"])
	mu.Unlock()

	got, err := hooks.Get(ctx, "t1", reg.ID)
	require.NoError(t, err)
	assert.Zero(t, got.FailureCount)
	require.NotNil(t, got.LastTriggeredAt)

	deliveries, err := hooks.ListDeliveries(ctx, "t1", reg.ID, 10)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.True(t, deliveries[0].Success)
	require.NotNil(t, deliveries[0].StatusCode)
	assert.Equal(t, http.StatusNoContent, *deliveries[0].StatusCode)
}
