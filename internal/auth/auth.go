package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	HeaderAPIKey   = "X-API-Key"
	HeaderTenantID = "X-Tenant-ID"
)

type tenantKey struct{}

// WithTenant returns a copy of ctx scoped to tenantID.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// TenantFromContext returns the tenant set by RequireTenant.
func TenantFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tenantKey{}).(string)
	return t, ok && t != ""
}

// Auth accepts either an OIDC bearer token carrying a tenant claim or the
// operator API key together with an explicit X-Tenant-ID header.
type Auth struct {
	APIKey       string
	OIDCEnabled  bool
	OIDCVerifier *OIDCVerifier
}

func (a Auth) RequireTenant(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// If OIDC is enabled, try JWT first, then fall back to API key
		if a.OIDCEnabled && a.OIDCVerifier != nil {
			if tenant, ok := a.verifyJWT(r); ok {
				log.Debug().
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Str("auth_type", "jwt").
					Str("tenant_id", tenant).
					Msg("Tenant authentication successful via JWT")
				next(w, r.WithContext(WithTenant(r.Context(), tenant)))
				return
			}
		}

		if a.APIKey != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(HeaderAPIKey)), []byte(a.APIKey)) == 1 {
			tenant := strings.TrimSpace(r.Header.Get(HeaderTenantID))
			if tenant == "" {
				http.Error(w, "missing "+HeaderTenantID+" header", http.StatusBadRequest)
				return
			}
			log.Debug().
				Str("path", r.URL.Path).
				Str("method", r.Method).
				Str("auth_type", "api_key").
				Str("tenant_id", tenant).
				Msg("Tenant authentication successful via API key")
			next(w, r.WithContext(WithTenant(r.Context(), tenant)))
			return
		}

		log.Warn().
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Str("remote_addr", r.RemoteAddr).
			Msg("Tenant authentication failed")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}

// verifyJWT validates the bearer token, checks the admin role if one is
// configured and returns the tenant claim.
func (a Auth) verifyJWT(r *http.Request) (string, bool) {
	token := ExtractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return "", false
	}

	idToken, err := a.OIDCVerifier.VerifyToken(r.Context(), token)
	if err != nil {
		log.Warn().
			Err(err).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Msg("JWT verification failed")
		return "", false
	}

	hasRole, err := a.OIDCVerifier.HasRole(idToken, a.OIDCVerifier.adminRole)
	if err != nil {
		log.Error().
			Err(err).
			Str("required_role", a.OIDCVerifier.adminRole).
			Msg("Failed to check role in JWT")
		return "", false
	}
	if !hasRole {
		log.Warn().
			Str("required_role", a.OIDCVerifier.adminRole).
			Str("subject", idToken.Subject).
			Str("path", r.URL.Path).
			Msg("User missing required role")
		return "", false
	}

	tenant, err := a.OIDCVerifier.TenantFromToken(idToken)
	if err != nil {
		log.Warn().
			Err(err).
			Str("subject", idToken.Subject).
			Msg("JWT has no usable tenant claim")
		return "", false
	}
	return tenant, true
}

// ExtractBearerToken is a helper to extract Bearer token from Authorization header
func ExtractBearerToken(authHeader string) string {
	parts := strings.Fields(authHeader)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}
