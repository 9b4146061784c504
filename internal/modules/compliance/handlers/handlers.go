// Package handlers provides HTTP handlers for compliance reviews.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/falconadvisor/falcon/internal/domain"
	"github.com/falconadvisor/falcon/internal/modules/compliance"
	"github.com/falconadvisor/falcon/internal/web"
)

// Handler handles compliance HTTP requests
type Handler struct {
	service *compliance.Service
	checks  *compliance.Repository
	log     zerolog.Logger
}

// NewHandler creates a new compliance handler
func NewHandler(service *compliance.Service, checks *compliance.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		checks:  checks,
		log:     log.With().Str("handler", "compliance").Logger(),
	}
}

// reviewRequest is the POST /api/review payload. The wire field is
// "price": callers send their estimate, the intent records it as such.
type reviewRequest struct {
	Symbol              string  `json:"symbol"`
	Side                string  `json:"side"`
	Quantity            float64 `json:"quantity"`
	Price               float64 `json:"price"`
	PortfolioID         string  `json:"portfolio_id"`
	UserID              string  `json:"user_id"`
	AccountType         string  `json:"account_type"`
	ClientType          string  `json:"client_type"`
	AdvisoryText        string  `json:"advisory_text"`
	RecommendationRisk  string  `json:"recommendation_risk"`
	ClientRiskTolerance string  `json:"client_risk_tolerance"`
}

func (req reviewRequest) intent() domain.TradeIntent {
	return domain.TradeIntent{
		Symbol:              req.Symbol,
		Side:                domain.Side(req.Side),
		Quantity:            req.Quantity,
		EstimatedPrice:      req.Price,
		PortfolioID:         req.PortfolioID,
		UserID:              req.UserID,
		AccountType:         domain.AccountType(req.AccountType),
		ClientType:          domain.ClientType(req.ClientType),
		AdvisoryText:        req.AdvisoryText,
		RecommendationRisk:  req.RecommendationRisk,
		ClientRiskTolerance: req.ClientRiskTolerance,
		CreatedAt:           time.Now().UTC(),
	}
}

// HandleReview handles POST /api/review
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Error(h.log, w, domain.NewValidationError("body", "invalid JSON payload"))
		return
	}

	result, err := h.service.Review(r.Context(), req.intent())
	if err != nil {
		web.Error(h.log, w, err)
		return
	}

	web.JSON(h.log, w, http.StatusOK, result)
}

// HandleGetReview handles GET /api/reviews/{reviewID}
func (h *Handler) HandleGetReview(w http.ResponseWriter, r *http.Request, reviewID string) {
	result, err := h.checks.GetByReviewID(reviewID)
	if err != nil {
		web.Error(h.log, w, err)
		return
	}
	if result == nil {
		web.NotFound(h.log, w, "review")
		return
	}

	web.JSON(h.log, w, http.StatusOK, result)
}

// HandleListByTransaction handles GET /api/transactions/{transactionID}/reviews
func (h *Handler) HandleListByTransaction(w http.ResponseWriter, r *http.Request, transactionID string) {
	results, err := h.checks.ListByTransaction(transactionID)
	if err != nil {
		web.Error(h.log, w, err)
		return
	}

	web.JSON(h.log, w, http.StatusOK, map[string]any{
		"reviews": results,
		"count":   len(results),
	})
}
