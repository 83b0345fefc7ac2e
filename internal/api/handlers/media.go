package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"media-webhooks-api/internal/auth"
	"media-webhooks-api/internal/media"
	"media-webhooks-api/internal/util"
)

// MediaRequest registers an uploaded object.
type MediaRequest struct {
	Filename    string `json:"filename" example:"intro.mp4"`
	ContentType string `json:"contentType,omitempty" example:"video/mp4"`
	SizeBytes   int64  `json:"sizeBytes" example:"52428800"`
}

// FailureRequest is the optional body of the failed transition.
type FailureRequest struct {
	Reason string `json:"reason" example:"unsupported codec"`
}

// MediaHandler translates HTTP to media lifecycle calls.
type MediaHandler struct {
	Auth    auth.Auth
	Service *media.Service
}

func (h *MediaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSuffix(r.URL.Path, "/") == "/api/media" {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.Auth.RequireTenant(h.register)(w, r)
		return
	}

	parts := filterEmpty(strings.Split(strings.TrimPrefix(r.URL.Path, "/api/media/"), "/"))
	switch {
	case len(parts) == 1:
		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			h.Auth.RequireTenant(func(w http.ResponseWriter, r *http.Request) {
				h.get(w, r, id)
			})(w, r)
		case http.MethodDelete:
			h.Auth.RequireTenant(func(w http.ResponseWriter, r *http.Request) {
				h.delete(w, r, id)
			})(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2:
		id, action := parts[0], parts[1]
		switch action {
		case "processing", "ready", "failed":
		default:
			http.Error(w, "invalid media route", http.StatusNotFound)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.Auth.RequireTenant(func(w http.ResponseWriter, r *http.Request) {
			h.transition(w, r, id, action)
		})(w, r)
	default:
		http.Error(w, "invalid media route", http.StatusNotFound)
	}
}

// register godoc
// @Summary      Register media
// @Description  Record an uploaded media object and emit media.uploaded
// @Tags         media
// @Accept       json
// @Produce      json
// @Param        media  body      MediaRequest     true  "Uploaded object"
// @Success      201    {object}  media.ObjectDTO
// @Failure      400    {string}  string  "Invalid JSON or missing filename"
// @Failure      401    {string}  string  "Unauthorized"
// @Failure      500    {string}  string  "Database error"
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /media [post]
func (h *MediaHandler) register(w http.ResponseWriter, r *http.Request) {
	tenant, _ := auth.TenantFromContext(r.Context())

	var req MediaRequest
	if err := util.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.SizeBytes < 0 {
		http.Error(w, "sizeBytes must not be negative", http.StatusBadRequest)
		return
	}

	o, err := h.Service.Register(r.Context(), tenant, req.Filename, req.ContentType, req.SizeBytes)
	if err != nil {
		writeMediaError(w, err)
		return
	}
	util.WriteJSONStatus(w, http.StatusCreated, o.ToDTO())
}

// get godoc
// @Summary      Get media
// @Description  Get a media object's current lifecycle state
// @Tags         media
// @Produce      json
// @Param        id   path      string  true  "Media ID"
// @Success      200  {object}  media.ObjectDTO
// @Failure      404  {string}  string  "Media not found"
// @Failure      401  {string}  string  "Unauthorized"
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /media/{id} [get]
func (h *MediaHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	tenant, _ := auth.TenantFromContext(r.Context())
	o, err := h.Service.Get(r.Context(), tenant, id)
	if err != nil {
		writeMediaError(w, err)
		return
	}
	util.WriteJSON(w, o.ToDTO())
}

// transition godoc
// @Summary      Change media state
// @Description  Move a media object to processing, ready or failed and emit the matching event
// @Tags         media
// @Accept       json
// @Produce      json
// @Param        id      path      string          true   "Media ID"
// @Param        action  path      string          true   "Target state"  Enums(processing, ready, failed)
// @Param        body    body      FailureRequest  false  "Failure reason (failed only)"
// @Success      200     {object}  media.ObjectDTO
// @Failure      404     {string}  string  "Media not found"
// @Failure      409     {string}  string  "Transition not allowed from current state"
// @Failure      401     {string}  string  "Unauthorized"
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /media/{id}/{action} [post]
func (h *MediaHandler) transition(w http.ResponseWriter, r *http.Request, id, action string) {
	tenant, _ := auth.TenantFromContext(r.Context())
	ctx := r.Context()

	var (
		o   media.Object
		err error
	)
	switch action {
	case "processing":
		o, err = h.Service.MarkProcessing(ctx, tenant, id)
	case "ready":
		o, err = h.Service.MarkReady(ctx, tenant, id)
	case "failed":
		var req FailureRequest
		if derr := util.DecodeJSON(w, r, maxBodyBytes, &req); derr != nil && !errors.Is(derr, io.EOF) {
			http.Error(w, "bad json: "+derr.Error(), http.StatusBadRequest)
			return
		}
		o, err = h.Service.MarkFailed(ctx, tenant, id, req.Reason)
	}
	if err != nil {
		writeMediaError(w, err)
		return
	}
	util.WriteJSON(w, o.ToDTO())
}

// delete godoc
// @Summary      Delete media
// @Description  Mark a media object deleted and emit media.deleted
// @Tags         media
// @Produce      json
// @Param        id   path      string  true  "Media ID"
// @Success      200  {object}  media.ObjectDTO
// @Failure      404  {string}  string  "Media not found"
// @Failure      409  {string}  string  "Already deleted"
// @Failure      401  {string}  string  "Unauthorized"
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /media/{id} [delete]
func (h *MediaHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	tenant, _ := auth.TenantFromContext(r.Context())
	o, err := h.Service.Delete(r.Context(), tenant, id)
	if err != nil {
		writeMediaError(w, err)
		return
	}
	util.WriteJSON(w, o.ToDTO())
}

func writeMediaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, media.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, media.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, media.ErrFilenameRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
	default:
		log.Error().Err(err).Msg("Media service error")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
