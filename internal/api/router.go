package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"media-webhooks-api/internal/api/handlers"
)

// Routes holds the handlers NewRouter mounts. Metrics is optional.
type Routes struct {
	Health      http.Handler
	Media       *handlers.MediaHandler
	Webhooks    *handlers.WebhookHandler
	Metrics     http.Handler
	MetricsPath string
}

// NewRouter wires HTTP routes to handlers.
func NewRouter(rt Routes) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/health", rt.Health)
	mux.Handle("/api/media", rt.Media)
	mux.Handle("/api/media/", rt.Media)
	mux.Handle("/api/webhooks", rt.Webhooks)
	mux.Handle("/api/webhooks/", rt.Webhooks)

	if rt.Metrics != nil && rt.MetricsPath != "" {
		mux.Handle(rt.MetricsPath, rt.Metrics)
	}

	// Swagger UI at /swagger/index.html
	mux.HandleFunc("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}
