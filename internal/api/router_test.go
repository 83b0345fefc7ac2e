package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"media-webhooks-api/internal/api"
	"media-webhooks-api/internal/api/handlers"
	"media-webhooks-api/internal/auth"
	"media-webhooks-api/internal/logging"
)

func newTestRouter(metrics http.Handler) http.Handler {
	a := auth.Auth{APIKey: "k"}
	return api.NewRouter(api.Routes{
		Health:      handlers.HealthHandler{},
		Media:       &handlers.MediaHandler{Auth: a},
		Webhooks:    &handlers.WebhookHandler{Auth: a},
		Metrics:     metrics,
		MetricsPath: "/metrics",
	})
}

func TestRouterHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouterMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})

	rec := httptest.NewRecorder()
	newTestRouter(metrics).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())

	rec = httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterProtectedRoutesNeedCredentials(t *testing.T) {
	router := newTestRouter(nil)
	for _, path := range []string{"/api/webhooks", "/api/media/abc"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRouterUnknownPath(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	handler := api.CORSMiddleware(newTestRouter(nil))

	req := httptest.NewRequest(http.MethodOptions, "/api/webhooks", nil)
	req.Header.Set("Origin", "https://console.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), auth.HeaderTenantID)
	assert.Equal(t, logging.HeaderRequestID, rec.Header().Get("Access-Control-Expose-Headers"))
}

func TestCORSPassesThrough(t *testing.T) {
	handler := api.CORSMiddleware(newTestRouter(nil))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
