// Package handlers provides HTTP handlers for the policy store.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/falconadvisor/falcon/internal/modules/policy"
	"github.com/falconadvisor/falcon/internal/web"
)

// Handler handles policy HTTP requests
type Handler struct {
	store *policy.Store
	log   zerolog.Logger
}

// NewHandler creates a new policy handler
func NewHandler(store *policy.Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "policy").Logger(),
	}
}

// HandleGetPolicy handles GET /api/policy
func (h *Handler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Current()
	if err != nil {
		web.Error(h.log, w, err)
		return
	}

	web.JSON(h.log, w, http.StatusOK, map[string]any{
		"version":   snap.Version,
		"checksum":  snap.Checksum,
		"loaded_at": snap.LoadedAt,
		"rules":     snap.Rules(),
	})
}

// HandleReload handles POST /api/policy/reload. A failed reload keeps
// the active snapshot and reports the parse error.
func (h *Handler) HandleReload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Reload()
	if err != nil {
		web.Error(h.log, w, err)
		return
	}

	web.JSON(h.log, w, http.StatusOK, map[string]any{
		"version":  snap.Version,
		"checksum": snap.Checksum,
		"rules":    snap.Len(),
	})
}

// RegisterRoutes registers all policy routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/policy", h.HandleGetPolicy)
	r.Post("/policy/reload", h.HandleReload)
}
