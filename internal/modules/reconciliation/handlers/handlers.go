// Package handlers provides HTTP handlers for reconciliation passes.
package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/falconadvisor/falcon/internal/modules/reconciliation"
	"github.com/falconadvisor/falcon/internal/web"
)

// Handler handles reconciliation HTTP requests
type Handler struct {
	engine *reconciliation.Engine
	log    zerolog.Logger
}

// NewHandler creates a new reconciliation handler
func NewHandler(engine *reconciliation.Engine, log zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		log:    log.With().Str("handler", "reconciliation").Logger(),
	}
}

// HandleReconcile handles POST /api/reconcile/{portfolioID}
func (h *Handler) HandleReconcile(w http.ResponseWriter, r *http.Request, portfolioID string) {
	summary, err := h.engine.Reconcile(r.Context(), portfolioID)
	if err != nil {
		web.Error(h.log, w, err)
		return
	}

	web.JSON(h.log, w, http.StatusOK, summary)
}

// HandleReconcileAll handles POST /api/reconcile
func (h *Handler) HandleReconcileAll(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ReconcileAll(r.Context()); err != nil {
		web.Error(h.log, w, err)
		return
	}

	web.JSON(h.log, w, http.StatusOK, map[string]any{"status": "completed"})
}
