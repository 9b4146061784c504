package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ftesting "github.com/falconadvisor/falcon/internal/testing"
)

type pingHandler struct{ hits *int }

func (p pingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		*p.hits++
		w.WriteHeader(http.StatusNoContent)
	})
}

func newTestServer(t *testing.T, handlers ...RouteRegistrar) *Server {
	t.Helper()

	ledgerDB, cleanLedger := ftesting.NewTestDB(t, "ledger")
	t.Cleanup(cleanLedger)
	portfolioDB, cleanPortfolio := ftesting.NewTestDB(t, "portfolio")
	t.Cleanup(cleanPortfolio)

	return New(Config{
		Port:        0,
		Log:         zerolog.Nop(),
		LedgerDB:    ledgerDB,
		PortfolioDB: portfolioDB,
		DevMode:     true,
		Handlers:    handlers,
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/health", "/api/health"} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, path)

		var body struct {
			Healthy   bool              `json:"healthy"`
			Databases map[string]string `json:"databases"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.True(t, body.Healthy)
		assert.Equal(t, "ok", body.Databases["ledger"])
		assert.Equal(t, "ok", body.Databases["portfolio"])
	}
}

func TestModuleRoutesMountUnderAPI(t *testing.T) {
	hits := 0
	srv := newTestServer(t, pingHandler{hits: &hits})

	req := httptest.NewRequest("GET", "/api/ping", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, hits)
}

func TestUnknownRouteIs404(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/nope", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
