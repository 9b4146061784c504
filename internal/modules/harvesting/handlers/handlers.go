// Package handlers provides HTTP handlers for tax-loss harvesting analysis.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/falconadvisor/falcon/internal/modules/harvesting"
	"github.com/falconadvisor/falcon/internal/web"
)

// Handler handles harvesting HTTP requests
type Handler struct {
	analyzer *harvesting.Analyzer
	log      zerolog.Logger
}

// NewHandler creates a new harvesting handler
func NewHandler(analyzer *harvesting.Analyzer, log zerolog.Logger) *Handler {
	return &Handler{
		analyzer: analyzer,
		log:      log.With().Str("handler", "harvesting").Logger(),
	}
}

// HandleAnalyze handles GET /api/harvest/{portfolioID}
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request, portfolioID string) {
	summary, err := h.analyzer.Analyze(r.Context(), portfolioID)
	if err != nil {
		web.Error(h.log, w, err)
		return
	}

	web.JSON(h.log, w, http.StatusOK, summary)
}

// RegisterRoutes registers all harvesting routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/harvest/{portfolioID}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleAnalyze(w, r, chi.URLParam(r, "portfolioID"))
	})
}
