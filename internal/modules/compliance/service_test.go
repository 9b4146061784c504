package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falconadvisor/falcon/internal/domain"
	"github.com/falconadvisor/falcon/internal/modules/ledger"
	"github.com/falconadvisor/falcon/internal/modules/policy"
	"github.com/falconadvisor/falcon/internal/modules/portfolio"
	"github.com/falconadvisor/falcon/internal/reliability"
	ftesting "github.com/falconadvisor/falcon/internal/testing"
)

type mockBroker struct {
	submitErr error
	orderRef  string
	submitted []string
}

func (m *mockBroker) SubmitOrder(ctx context.Context, txn *domain.Transaction) (*domain.BrokerOrderResult, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	m.submitted = append(m.submitted, txn.ID)
	return &domain.BrokerOrderResult{OrderRef: m.orderRef, Status: domain.BrokerOrderAccepted}, nil
}

func (m *mockBroker) GetOrderStatus(ctx context.Context, ref string) (*domain.BrokerOrder, error) {
	return nil, errors.New("not implemented")
}

func (m *mockBroker) GetPositions(ctx context.Context, account string) ([]domain.BrokerPosition, error) {
	return nil, errors.New("not implemented")
}

type serviceFixture struct {
	svc      *Service
	txns     *ledger.Repository
	checks   *Repository
	holdings *portfolio.Repository
	broker   *mockBroker
	cleanup  func()
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	ledgerDB, cleanLedger := ftesting.NewTestDB(t, "ledger")
	portfolioDB, cleanPortfolio := ftesting.NewTestDB(t, "portfolio")

	txns := ledger.NewRepository(ledgerDB.Conn(), zerolog.Nop())
	holdings := portfolio.NewRepository(portfolioDB.Conn(), zerolog.Nop())
	checks := NewRepository(ledgerDB.Conn(), zerolog.Nop())
	broker := &mockBroker{orderRef: "ord-1"}

	store := policy.NewStore("", zerolog.Nop())
	_, err := store.Load()
	require.NoError(t, err)

	evaluator := NewEvaluator(txns, holdings, zerolog.Nop())
	svc := NewService(store, evaluator, txns, checks, broker, nil, 70,
		reliability.RetryConfig{Attempts: 2, BaseWait: time.Millisecond}, zerolog.Nop())

	// A $100,000 portfolio in a symbol outside the sector table keeps the
	// sector rule quiet for unrelated trades.
	require.NoError(t, holdings.Upsert(domain.Holding{
		PortfolioID: "port-1", Symbol: "SPY", Quantity: 200, AverageCost: 480, CurrentPrice: 500,
	}))

	return &serviceFixture{
		svc:      svc,
		txns:     txns,
		checks:   checks,
		holdings: holdings,
		broker:   broker,
		cleanup: func() {
			cleanLedger()
			cleanPortfolio()
		},
	}
}

func benignIntent() domain.TradeIntent {
	return domain.TradeIntent{
		Symbol:         "AAPL",
		Side:           domain.SideBuy,
		Quantity:       10,
		EstimatedPrice: 100,
		PortfolioID:    "port-1",
		UserID:         "user-1",
		AccountType:    domain.AccountTaxable,
		ClientType:     domain.ClientIndividual,
		AdvisoryText:   "small diversified addition",
	}
}

func TestReviewApprovedSubmitsToBroker(t *testing.T) {
	f := newServiceFixture(t)
	defer f.cleanup()

	result, err := f.svc.Review(context.Background(), benignIntent())
	require.NoError(t, err)

	assert.Equal(t, DecisionApproved, result.Decision)
	assert.NotEmpty(t, result.ReviewID)
	assert.Equal(t, "builtin-v1", result.PolicyVersion)
	assert.NotEmpty(t, result.PolicyChecksum)
	assert.Len(t, f.broker.submitted, 1)

	// The transaction stays pending with the broker ref stamped; only
	// reconciliation confirms the fill.
	txn, err := f.txns.GetByID(result.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, txn.Status)
	assert.Equal(t, "ord-1", txn.BrokerOrderRef)

	// The audit record is durable and readable back.
	saved, err := f.checks.GetByReviewID(result.ReviewID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, result.Decision, saved.Decision)
	assert.Equal(t, len(result.Outcomes), len(saved.Outcomes))
	assert.Equal(t, domain.StatusPending, result.TransactionStatus)
	assert.Equal(t, domain.StatusPending, saved.TransactionStatus)
}

func TestReviewRejectedOnCriticalFail(t *testing.T) {
	f := newServiceFixture(t)
	defer f.cleanup()

	intent := benignIntent()
	intent.RecommendationRisk = "aggressive"
	intent.ClientRiskTolerance = "conservative"

	result, err := f.svc.Review(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, DecisionRejected, result.Decision)
	assert.Equal(t, domain.StatusRejected, result.TransactionStatus)
	assert.Empty(t, f.broker.submitted, "rejected trades never reach the broker")

	txn, err := f.txns.GetByID(result.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, txn.Status)
	assert.Contains(t, txn.Notes, "SUIT-001")
}

func TestReviewRejectsMalformedIntentBeforeAnyRule(t *testing.T) {
	f := newServiceFixture(t)
	defer f.cleanup()

	intent := benignIntent()
	intent.Quantity = -1

	_, err := f.svc.Review(context.Background(), intent)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, f.broker.submitted)

	// No transaction was recorded for the malformed intent.
	pending, err := f.txns.GetPending("port-1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReviewMarksFailedOnPermanentBrokerError(t *testing.T) {
	f := newServiceFixture(t)
	defer f.cleanup()
	f.broker.submitErr = domain.NewBrokerPermanentError("submit_order", "422", errors.New("invalid order"))

	result, err := f.svc.Review(context.Background(), benignIntent())
	require.NoError(t, err, "a broker failure is a transaction outcome, not a review error")
	assert.Equal(t, DecisionApproved, result.Decision)
	assert.Equal(t, domain.StatusFailed, result.TransactionStatus,
		"the response tells the caller the approved order did not go out")

	txn, err := f.txns.GetByID(result.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, txn.Status)
	assert.Contains(t, txn.Notes, "broker submission failed")
}

func TestReviewMarksFailedOnExhaustedRetries(t *testing.T) {
	f := newServiceFixture(t)
	defer f.cleanup()
	f.broker.submitErr = domain.NewBrokerTransientError("submit_order", "503", errors.New("unavailable"))

	result, err := f.svc.Review(context.Background(), benignIntent())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, result.TransactionStatus)

	txn, err := f.txns.GetByID(result.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, txn.Status)
}

func TestEveryReviewAppendsOneCheckRecord(t *testing.T) {
	f := newServiceFixture(t)
	defer f.cleanup()

	approved, err := f.svc.Review(context.Background(), benignIntent())
	require.NoError(t, err)

	rejected := benignIntent()
	rejected.RecommendationRisk = "aggressive"
	rejected.ClientRiskTolerance = "conservative"
	rejectedResult, err := f.svc.Review(context.Background(), rejected)
	require.NoError(t, err)

	for _, id := range []string{approved.ReviewID, rejectedResult.ReviewID} {
		saved, err := f.checks.GetByReviewID(id)
		require.NoError(t, err)
		require.NotNil(t, saved, "pass and fail reviews both persist")
	}
}
