package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"media-webhooks-api/internal/auth"
	"media-webhooks-api/internal/util"
	"media-webhooks-api/internal/webhook"
)

const (
	defaultDeliveryLimit = 50
	maxDeliveryLimit     = 500
	maxBodyBytes         = 1 << 20
)

// WebhookRequest is the body accepted by create and update.
type WebhookRequest struct {
	Name   string              `json:"name" example:"CDN purge hook"`
	URL    string              `json:"url" example:"https://example.com/webhook"`
	Events []webhook.EventType `json:"events" swaggertype:"array,string" example:"media.ready,media.failed"`
	Active *bool               `json:"active,omitempty" example:"true"`
}

// WebhookHandler manages tenant-scoped webhook registrations.
type WebhookHandler struct {
	Auth auth.Auth
	Repo webhook.Repository
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSuffix(r.URL.Path, "/") == "/api/webhooks" {
		switch r.Method {
		case http.MethodGet:
			h.Auth.RequireTenant(h.list)(w, r)
		case http.MethodPost:
			h.Auth.RequireTenant(h.create)(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	// /api/webhooks/{id}[/secret|/deliveries]
	parts := filterEmpty(strings.Split(strings.TrimPrefix(r.URL.Path, "/api/webhooks/"), "/"))
	if len(parts) == 0 || len(parts) > 2 {
		http.Error(w, "invalid webhook route", http.StatusNotFound)
		return
	}
	id := parts[0]

	if len(parts) == 2 {
		switch {
		case parts[1] == "secret" && r.Method == http.MethodPost:
			h.Auth.RequireTenant(func(w http.ResponseWriter, r *http.Request) {
				h.rotateSecret(w, r, id)
			})(w, r)
		case parts[1] == "deliveries" && r.Method == http.MethodGet:
			h.Auth.RequireTenant(func(w http.ResponseWriter, r *http.Request) {
				h.deliveries(w, r, id)
			})(w, r)
		case parts[1] == "secret" || parts[1] == "deliveries":
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		default:
			http.Error(w, "invalid webhook route", http.StatusNotFound)
		}
		return
	}

	h.Auth.RequireTenant(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodPut:
			h.update(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})(w, r)
}

// list godoc
// @Summary      List webhooks
// @Description  Get all webhooks registered by the calling tenant
// @Tags         webhooks
// @Produce      json
// @Success      200  {array}   webhook.RegistrationDTO
// @Failure      401  {string}  string  "Unauthorized"
// @Failure      500  {string}  string  "Database error"
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /webhooks [get]
func (h *WebhookHandler) list(w http.ResponseWriter, r *http.Request) {
	tenant, _ := auth.TenantFromContext(r.Context())
	hooks, err := h.Repo.List(r.Context(), tenant)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenant).Msg("Failed to list webhooks")
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	out := make([]webhook.RegistrationDTO, 0, len(hooks))
	for _, x := range hooks {
		out = append(out, x.ToDTO())
	}
	util.WriteJSON(w, out)
}

// create godoc
// @Summary      Create webhook
// @Description  Register a new webhook endpoint. The signing secret is returned only in this response.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        webhook  body      WebhookRequest           true  "Webhook configuration"
// @Success      201      {object}  webhook.RegistrationDTO  "Created webhook including its secret"
// @Failure      400      {string}  string                   "Invalid JSON or validation error"
// @Failure      401      {string}  string                   "Unauthorized"
// @Failure      500      {string}  string                   "Database error"
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /webhooks [post]
func (h *WebhookHandler) create(w http.ResponseWriter, r *http.Request) {
	tenant, _ := auth.TenantFromContext(r.Context())

	var req WebhookRequest
	if err := util.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}

	secret, err := webhook.GenerateSecret()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate webhook secret")
		http.Error(w, "secret generation failed", http.StatusInternalServerError)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	reg, err := h.Repo.Create(r.Context(), webhook.Registration{
		TenantID: tenant,
		Name:     req.Name,
		URL:      req.URL,
		Secret:   secret,
		Events:   req.Events,
		Active:   active,
	})
	if err != nil {
		writeWebhookError(w, err)
		return
	}

	log.Info().
		Str("tenant_id", tenant).
		Str("webhook_id", reg.ID).
		Str("url", webhook.RedactURL(reg.URL)).
		Msg("Webhook registered")

	dto := reg.ToDTO()
	dto.Secret = reg.Secret
	util.WriteJSONStatus(w, http.StatusCreated, dto)
}

// get godoc
// @Summary      Get webhook
// @Description  Get one webhook including its failure counter
// @Tags         webhooks
// @Produce      json
// @Param        id   path      string  true  "Webhook ID"
// @Success      200  {object}  webhook.RegistrationDTO
// @Failure      404  {string}  string  "Webhook not found"
// @Failure      401  {string}  string  "Unauthorized"
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /webhooks/{id} [get]
func (h *WebhookHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	tenant, _ := auth.TenantFromContext(r.Context())
	reg, err := h.Repo.Get(r.Context(), tenant, id)
	if err != nil {
		writeWebhookError(w, err)
		return
	}
	util.WriteJSON(w, reg.ToDTO())
}

// update godoc
// @Summary      Update webhook
// @Description  Replace name, URL, events and active flag of a webhook
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Webhook ID"
// @Param        webhook  body      WebhookRequest           true  "Updated webhook configuration"
// @Success      200      {object}  webhook.RegistrationDTO
// @Failure      400      {string}  string                   "Invalid JSON or validation error"
// @Failure      404      {string}  string                   "Webhook not found"
// @Failure      401      {string}  string                   "Unauthorized"
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /webhooks/{id} [put]
func (h *WebhookHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	tenant, _ := auth.TenantFromContext(r.Context())

	var req WebhookRequest
	if err := util.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}

	cur, err := h.Repo.Get(r.Context(), tenant, id)
	if err != nil {
		writeWebhookError(w, err)
		return
	}
	cur.Name = req.Name
	cur.URL = req.URL
	cur.Events = req.Events
	if req.Active != nil {
		cur.Active = *req.Active
	}
	if err := h.Repo.Update(r.Context(), cur); err != nil {
		writeWebhookError(w, err)
		return
	}

	updated, err := h.Repo.Get(r.Context(), tenant, id)
	if err != nil {
		writeWebhookError(w, err)
		return
	}
	util.WriteJSON(w, updated.ToDTO())
}

// delete godoc
// @Summary      Delete webhook
// @Description  Remove a webhook. Deliveries already in flight still finish.
// @Tags         webhooks
// @Produce      json
// @Param        id   path      string           true  "Webhook ID"
// @Success      200  {object}  map[string]bool  "Deletion confirmation"
// @Failure      404  {string}  string           "Webhook not found"
// @Failure      401  {string}  string           "Unauthorized"
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /webhooks/{id} [delete]
func (h *WebhookHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	tenant, _ := auth.TenantFromContext(r.Context())
	if err := h.Repo.Delete(r.Context(), tenant, id); err != nil {
		writeWebhookError(w, err)
		return
	}
	util.WriteJSON(w, map[string]any{"deleted": true})
}

// rotateSecret godoc
// @Summary      Regenerate signing secret
// @Description  Replace the webhook's secret. Deliveries already in flight keep signing with the old one.
// @Tags         webhooks
// @Produce      json
// @Param        id   path      string                   true  "Webhook ID"
// @Success      200  {object}  webhook.RegistrationDTO  "Webhook including its new secret"
// @Failure      404  {string}  string                   "Webhook not found"
// @Failure      401  {string}  string                   "Unauthorized"
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /webhooks/{id}/secret [post]
func (h *WebhookHandler) rotateSecret(w http.ResponseWriter, r *http.Request, id string) {
	tenant, _ := auth.TenantFromContext(r.Context())

	secret, err := webhook.GenerateSecret()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate webhook secret")
		http.Error(w, "secret generation failed", http.StatusInternalServerError)
		return
	}
	if err := h.Repo.RotateSecret(r.Context(), tenant, id, secret); err != nil {
		writeWebhookError(w, err)
		return
	}
	reg, err := h.Repo.Get(r.Context(), tenant, id)
	if err != nil {
		writeWebhookError(w, err)
		return
	}

	log.Info().
		Str("tenant_id", tenant).
		Str("webhook_id", id).
		Msg("Webhook secret rotated")

	dto := reg.ToDTO()
	dto.Secret = reg.Secret
	util.WriteJSON(w, dto)
}

// deliveries godoc
// @Summary      Delivery history
// @Description  Per-attempt delivery records for a webhook, newest first
// @Tags         webhooks
// @Produce      json
// @Param        id     path      string  true   "Webhook ID"
// @Param        limit  query     int     false  "Maximum records (default 50, max 500)"
// @Success      200    {array}   webhook.DeliveryRecordDTO
// @Failure      400    {string}  string  "Invalid limit"
// @Failure      404    {string}  string  "Webhook not found"
// @Failure      401    {string}  string  "Unauthorized"
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /webhooks/{id}/deliveries [get]
func (h *WebhookHandler) deliveries(w http.ResponseWriter, r *http.Request, id string) {
	tenant, _ := auth.TenantFromContext(r.Context())

	limit := defaultDeliveryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxDeliveryLimit)
	}

	// 404 for unknown or foreign webhooks rather than an empty list.
	if _, err := h.Repo.Get(r.Context(), tenant, id); err != nil {
		writeWebhookError(w, err)
		return
	}

	recs, err := h.Repo.ListDeliveries(r.Context(), tenant, id, limit)
	if err != nil {
		log.Error().Err(err).Str("webhook_id", id).Msg("Failed to list deliveries")
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	out := make([]webhook.DeliveryRecordDTO, 0, len(recs))
	for _, d := range recs {
		out = append(out, d.ToDTO())
	}
	util.WriteJSON(w, out)
}

func writeWebhookError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, webhook.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, webhook.ErrInvalidURL),
		errors.Is(err, webhook.ErrNoEvents),
		errors.Is(err, webhook.ErrUnknownEvent),
		errors.Is(err, webhook.ErrNameRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Error().Err(err).Msg("Webhook repository error")
		http.Error(w, "db error", http.StatusInternalServerError)
	}
}

func filterEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
