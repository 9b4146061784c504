// Package handlers provides HTTP handlers for ledger operations.
package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/falconadvisor/falcon/internal/modules/ledger"
	"github.com/falconadvisor/falcon/internal/web"
)

// Handler handles ledger HTTP requests
type Handler struct {
	service *ledger.Service
	repo    *ledger.Repository
	log     zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(service *ledger.Service, repo *ledger.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		repo:    repo,
		log:     log.With().Str("handler", "ledger").Logger(),
	}
}

// HandleGetTransaction handles GET /api/transactions/{transactionID}
func (h *Handler) HandleGetTransaction(w http.ResponseWriter, r *http.Request, id string) {
	txn, err := h.repo.GetByID(id)
	if err != nil {
		web.Error(h.log, w, err)
		return
	}
	if txn == nil {
		web.NotFound(h.log, w, "transaction")
		return
	}

	web.JSON(h.log, w, http.StatusOK, txn)
}

// HandleGetByOrderRef handles GET /api/orders/{ref}
func (h *Handler) HandleGetByOrderRef(w http.ResponseWriter, r *http.Request, ref string) {
	txn, err := h.repo.GetByBrokerRef(ref)
	if err != nil {
		web.Error(h.log, w, err)
		return
	}
	if txn == nil {
		web.NotFound(h.log, w, "order")
		return
	}

	web.JSON(h.log, w, http.StatusOK, txn)
}

// HandleGetPending handles GET /api/portfolios/{portfolioID}/pending
func (h *Handler) HandleGetPending(w http.ResponseWriter, r *http.Request, portfolioID string) {
	pending, err := h.repo.GetPending(portfolioID)
	if err != nil {
		web.Error(h.log, w, err)
		return
	}

	web.JSON(h.log, w, http.StatusOK, map[string]any{
		"transactions": pending,
		"count":        len(pending),
	})
}

// HandleCancel handles POST /api/transactions/{transactionID}/cancel
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := h.repo.GetByID(id)
	if err != nil {
		web.Error(h.log, w, err)
		return
	}
	if existing == nil {
		web.NotFound(h.log, w, "transaction")
		return
	}

	txn, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		web.Error(h.log, w, err)
		return
	}

	web.JSON(h.log, w, http.StatusOK, txn)
}
