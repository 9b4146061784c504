package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/transactions/{transactionID}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleGetTransaction(w, r, chi.URLParam(r, "transactionID"))
	})
	r.Post("/transactions/{transactionID}/cancel", func(w http.ResponseWriter, r *http.Request) {
		h.HandleCancel(w, r, chi.URLParam(r, "transactionID"))
	})
	r.Get("/orders/{ref}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleGetByOrderRef(w, r, chi.URLParam(r, "ref"))
	})
	r.Get("/portfolios/{portfolioID}/pending", func(w http.ResponseWriter, r *http.Request) {
		h.HandleGetPending(w, r, chi.URLParam(r, "portfolioID"))
	})
}
