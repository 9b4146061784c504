package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all reconciliation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/reconcile", h.HandleReconcileAll)
	r.Post("/reconcile/{portfolioID}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleReconcile(w, r, chi.URLParam(r, "portfolioID"))
	})
}
