package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all compliance routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/review", h.HandleReview)
	r.Get("/reviews/{reviewID}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleGetReview(w, r, chi.URLParam(r, "reviewID"))
	})
	r.Get("/transactions/{transactionID}/reviews", func(w http.ResponseWriter, r *http.Request) {
		h.HandleListByTransaction(w, r, chi.URLParam(r, "transactionID"))
	})
}
