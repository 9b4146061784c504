package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falconadvisor/falcon/internal/domain"
	ftesting "github.com/falconadvisor/falcon/internal/testing"
)

func newTestRepo(t *testing.T) (*Repository, func()) {
	t.Helper()
	db, cleanup := ftesting.NewTestDB(t, "ledger")
	return NewRepository(db.Conn(), zerolog.Nop()), cleanup
}

func createTxn(t *testing.T, repo *Repository, portfolioID, symbol string, side domain.Side) *domain.Transaction {
	t.Helper()
	txn := &domain.Transaction{
		PortfolioID: portfolioID,
		UserID:      "user-1",
		Symbol:      symbol,
		Side:        side,
		Quantity:    10,
		Price:       100,
	}
	require.NoError(t, repo.Create(txn))
	return txn
}

func TestCreateAndGet(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	txn := createTxn(t, repo, "port-1", "aapl", domain.SideBuy)
	assert.NotEmpty(t, txn.ID)

	got, err := repo.GetByID(txn.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "AAPL", got.Symbol, "symbols are normalized to upper case")
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Empty(t, got.BrokerOrderRef)
}

func TestGetByIDNotFound(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	got, err := repo.GetByID("missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTransitionRequiresNote(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	txn := createTxn(t, repo, "port-1", "AAPL", domain.SideBuy)
	err := repo.Transition(txn.ID, domain.StatusRejected, "  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a note")

	// Status untouched.
	got, err := repo.GetByID(txn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestTransitionAppendsNote(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	txn := createTxn(t, repo, "port-1", "AAPL", domain.SideBuy)
	require.NoError(t, repo.Transition(txn.ID, domain.StatusRejected, "rule CONC-001 failed"))

	got, err := repo.GetByID(txn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, got.Status)
	assert.Contains(t, got.Notes, "rule CONC-001 failed")
}

func TestTerminalStatesRejectAllTransitions(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	terminal := []domain.TransactionStatus{
		domain.StatusExecuted, domain.StatusRejected,
		domain.StatusFailed, domain.StatusCancelled,
	}

	for _, first := range terminal {
		t.Run(string(first), func(t *testing.T) {
			txn := createTxn(t, repo, "port-1", "AAPL", domain.SideBuy)
			require.NoError(t, repo.Transition(txn.ID, first, "initial transition"))

			for _, second := range terminal {
				err := repo.Transition(txn.ID, second, "should conflict")
				require.Error(t, err)

				var ce *domain.ConflictError
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, first, ce.From)

				got, err := repo.GetByID(txn.ID)
				require.NoError(t, err)
				assert.Equal(t, first, got.Status, "conflict must never mutate status")
			}
		})
	}
}

func TestMarkExecutedRecordsFillPrice(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	txn := createTxn(t, repo, "port-1", "AAPL", domain.SideBuy)
	require.NoError(t, repo.MarkExecuted(txn.ID, "broker fill at 101.50", 101.50))

	got, err := repo.GetByID(txn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExecuted, got.Status)
	assert.InDelta(t, 101.50, got.Price, 1e-9)

	// A duplicate fill confirmation is a conflict, not a second execution.
	err = repo.MarkExecuted(txn.ID, "duplicate fill", 999)
	var ce *domain.ConflictError
	require.ErrorAs(t, err, &ce)

	got, err = repo.GetByID(txn.ID)
	require.NoError(t, err)
	assert.InDelta(t, 101.50, got.Price, 1e-9)
}

func TestSetBrokerRefAndLookup(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	txn := createTxn(t, repo, "port-1", "AAPL", domain.SideBuy)
	require.NoError(t, repo.SetBrokerRef(txn.ID, "ord-123"))

	got, err := repo.GetByBrokerRef("ord-123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, txn.ID, got.ID)
}

func TestHistoryBySymbolWindow(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	inside := createTxn(t, repo, "port-1", "AAPL", domain.SideBuy)
	createTxn(t, repo, "port-1", "MSFT", domain.SideBuy)

	rejected := createTxn(t, repo, "port-1", "AAPL", domain.SideSell)
	require.NoError(t, repo.Transition(rejected.ID, domain.StatusRejected, "rejected by compliance"))

	now := time.Now().UTC()
	history, err := repo.HistoryBySymbol("port-1", "AAPL", now.AddDate(0, 0, -30), now.AddDate(0, 0, 30))
	require.NoError(t, err)

	// Only pending and executed rows are window-relevant.
	require.Len(t, history, 1)
	assert.Equal(t, inside.ID, history[0].ID)

	// Outside the window nothing matches.
	history, err = repo.HistoryBySymbol("port-1", "AAPL", now.AddDate(0, 0, 1), now.AddDate(0, 0, 30))
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestDayTradeCount(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()

	// Two buys and one sell of AAPL today: one round trip.
	for _, side := range []domain.Side{domain.SideBuy, domain.SideBuy, domain.SideSell} {
		txn := createTxn(t, repo, "port-1", "AAPL", side)
		require.NoError(t, repo.Transition(txn.ID, domain.StatusExecuted, "filled"))
	}
	// A lone pending buy does not count.
	createTxn(t, repo, "port-1", "TSLA", domain.SideBuy)

	count, err := repo.DayTradeCount("port-1", time.Now().UTC().AddDate(0, 0, -5))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCancelService(t *testing.T) {
	repo, cleanup := newTestRepo(t)
	defer cleanup()
	svc := NewService(repo, zerolog.Nop())

	txn := createTxn(t, repo, "port-1", "AAPL", domain.SideBuy)

	cancelled, err := svc.Cancel(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Contains(t, cancelled.Notes, "user cancelled")

	// Cancelling after a fill fails loudly.
	filled := createTxn(t, repo, "port-1", "MSFT", domain.SideBuy)
	require.NoError(t, repo.MarkExecuted(filled.ID, "broker fill", 300))

	_, err = svc.Cancel(context.Background(), filled.ID)
	var ce *domain.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.StatusExecuted, ce.From)

	_, err = svc.Cancel(context.Background(), "missing")
	assert.Error(t, err)
}
