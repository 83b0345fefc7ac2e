package api

import (
	"net/http"
	"strings"

	"media-webhooks-api/internal/auth"
	"media-webhooks-api/internal/logging"
)

var corsAllowHeaders = strings.Join([]string{
	"Content-Type",
	"Authorization",
	auth.HeaderAPIKey,
	auth.HeaderTenantID,
	logging.HeaderRequestID,
}, ", ")

// CORSMiddleware allows browser clients from any origin. Credentials are
// headers, never cookies, so a wildcard origin is safe here.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Expose-Headers", logging.HeaderRequestID)
		h.Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
