// Package handlers provides HTTP handlers for portfolio holdings.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/falconadvisor/falcon/internal/modules/portfolio"
	"github.com/falconadvisor/falcon/internal/web"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	holdings *portfolio.Repository
	log      zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(holdings *portfolio.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		holdings: holdings,
		log:      log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleListPortfolios handles GET /api/portfolios
func (h *Handler) HandleListPortfolios(w http.ResponseWriter, r *http.Request) {
	ids, err := h.holdings.ListPortfolios()
	if err != nil {
		web.Error(h.log, w, err)
		return
	}

	web.JSON(h.log, w, http.StatusOK, map[string]any{
		"portfolios": ids,
		"count":      len(ids),
	})
}

// HandleGetHoldings handles GET /api/portfolios/{portfolioID}/holdings
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request, portfolioID string) {
	holdings, err := h.holdings.GetAll(portfolioID)
	if err != nil {
		web.Error(h.log, w, err)
		return
	}

	total, err := h.holdings.TotalValue(portfolioID)
	if err != nil {
		web.Error(h.log, w, err)
		return
	}

	web.JSON(h.log, w, http.StatusOK, map[string]any{
		"holdings":    holdings,
		"count":       len(holdings),
		"total_value": total,
	})
}

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolios", h.HandleListPortfolios)
	r.Get("/portfolios/{portfolioID}/holdings", func(w http.ResponseWriter, r *http.Request) {
		h.HandleGetHoldings(w, r, chi.URLParam(r, "portfolioID"))
	})
}
