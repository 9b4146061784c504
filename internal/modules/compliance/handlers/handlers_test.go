package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falconadvisor/falcon/internal/domain"
	"github.com/falconadvisor/falcon/internal/modules/compliance"
	"github.com/falconadvisor/falcon/internal/modules/ledger"
	"github.com/falconadvisor/falcon/internal/modules/policy"
	"github.com/falconadvisor/falcon/internal/modules/portfolio"
	"github.com/falconadvisor/falcon/internal/reliability"
	ftesting "github.com/falconadvisor/falcon/internal/testing"
)

type stubBroker struct{}

func (stubBroker) SubmitOrder(ctx context.Context, txn *domain.Transaction) (*domain.BrokerOrderResult, error) {
	return &domain.BrokerOrderResult{OrderRef: "ord-1", Status: domain.BrokerOrderAccepted}, nil
}

func (stubBroker) GetOrderStatus(ctx context.Context, ref string) (*domain.BrokerOrder, error) {
	return nil, nil
}

func (stubBroker) GetPositions(ctx context.Context, account string) ([]domain.BrokerPosition, error) {
	return nil, nil
}

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()

	ledgerDB, cleanLedger := ftesting.NewTestDB(t, "ledger")
	t.Cleanup(cleanLedger)
	portfolioDB, cleanPortfolio := ftesting.NewTestDB(t, "portfolio")
	t.Cleanup(cleanPortfolio)

	store := policy.NewStore("", zerolog.Nop())
	_, err := store.Load()
	require.NoError(t, err)

	holdings := portfolio.NewRepository(portfolioDB.Conn(), zerolog.Nop())
	require.NoError(t, holdings.Upsert(domain.Holding{
		PortfolioID: "port-1", Symbol: "SPY", Quantity: 200, AverageCost: 480, CurrentPrice: 500,
	}))

	txns := ledger.NewRepository(ledgerDB.Conn(), zerolog.Nop())
	checks := compliance.NewRepository(ledgerDB.Conn(), zerolog.Nop())
	evaluator := compliance.NewEvaluator(txns, holdings, zerolog.Nop())
	service := compliance.NewService(store, evaluator, txns, checks, stubBroker{}, nil, 70,
		reliability.RetryConfig{Attempts: 1, BaseWait: time.Millisecond}, zerolog.Nop())

	handler := NewHandler(service, checks, zerolog.Nop())
	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return router
}

func postReview(t *testing.T, router *chi.Mux, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/review", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleReview_Approved(t *testing.T) {
	router := setupRouter(t)

	w := postReview(t, router, `{
		"portfolio_id": "port-1",
		"user_id": "user-1",
		"symbol": "AAPL",
		"side": "buy",
		"quantity": 10,
		"price": 100,
		"account_type": "taxable",
		"client_type": "individual",
		"advisory_text": "Adding a small technology position."
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data compliance.CheckResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, compliance.DecisionApproved, resp.Data.Decision)
	assert.NotEmpty(t, resp.Data.ReviewID)
	assert.NotEmpty(t, resp.Data.TransactionID)
}

func TestHandleReview_InvalidJSON(t *testing.T) {
	router := setupRouter(t)

	w := postReview(t, router, `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleReview_ValidationFailure(t *testing.T) {
	router := setupRouter(t)

	w := postReview(t, router, `{
		"portfolio_id": "port-1",
		"user_id": "user-1",
		"symbol": "AAPL",
		"side": "buy",
		"quantity": -5,
		"price": 100,
		"account_type": "taxable",
		"client_type": "individual"
	}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "quantity", body["field"])
}

func TestHandleGetReview(t *testing.T) {
	router := setupRouter(t)

	w := postReview(t, router, `{
		"portfolio_id": "port-1",
		"user_id": "user-1",
		"symbol": "AAPL",
		"side": "buy",
		"quantity": 10,
		"price": 100,
		"account_type": "taxable",
		"client_type": "individual",
		"advisory_text": "Adding a small technology position."
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	var created struct {
		Data compliance.CheckResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

	req := httptest.NewRequest("GET", "/api/reviews/"+created.Data.ReviewID, nil)
	got := httptest.NewRecorder()
	router.ServeHTTP(got, req)
	require.Equal(t, http.StatusOK, got.Code)

	var fetched struct {
		Data compliance.CheckResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(got.Body).Decode(&fetched))
	assert.Equal(t, created.Data.ReviewID, fetched.Data.ReviewID)
	assert.Equal(t, created.Data.Decision, fetched.Data.Decision)
}

func TestHandleGetReview_NotFound(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest("GET", "/api/reviews/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
