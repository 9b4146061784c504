package compliance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/falconadvisor/falcon/internal/domain"
	"github.com/falconadvisor/falcon/internal/modules/policy"
	"github.com/falconadvisor/falcon/internal/reliability"
)

// TransactionLedger is the ledger write surface the review path needs.
type TransactionLedger interface {
	Create(txn *domain.Transaction) error
	Transition(id string, to domain.TransactionStatus, note string) error
	SetBrokerRef(id, ref string) error
}

// PolicySource yields the active policy snapshot.
type PolicySource interface {
	Current() (*policy.Snapshot, error)
}

// Explainer phrases a review as client-readable prose. Optional; its
// output never affects the decision.
type Explainer interface {
	Explain(ctx context.Context, result *CheckResult) (string, error)
}

// Service orchestrates a compliance review end to end.
type Service struct {
	policies  PolicySource
	evaluator *Evaluator
	ledger    TransactionLedger
	checks    *Repository
	broker    domain.BrokerClient
	explainer Explainer // may be nil
	threshold float64
	retry     reliability.RetryConfig
	log       zerolog.Logger
}

// NewService creates a compliance review service
func NewService(
	policies PolicySource,
	evaluator *Evaluator,
	ledger TransactionLedger,
	checks *Repository,
	broker domain.BrokerClient,
	explainer Explainer,
	threshold float64,
	retry reliability.RetryConfig,
	log zerolog.Logger,
) *Service {
	return &Service{
		policies:  policies,
		evaluator: evaluator,
		ledger:    ledger,
		checks:    checks,
		broker:    broker,
		explainer: explainer,
		threshold: threshold,
		retry:     retry,
		log:       log.With().Str("service", "compliance").Logger(),
	}
}

// Review validates the intent, records a pending transaction, evaluates
// the active policy, persists the immutable check result, and either
// rejects the transaction or submits it to the broker.
func (s *Service) Review(ctx context.Context, intent domain.TradeIntent) (*CheckResult, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = time.Now().UTC()
	}

	snap, err := s.policies.Current()
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		PortfolioID: intent.PortfolioID,
		UserID:      intent.UserID,
		Symbol:      intent.Symbol,
		Side:        intent.Side,
		Quantity:    intent.Quantity,
		Price:       intent.EstimatedPrice,
	}
	if err := s.ledger.Create(txn); err != nil {
		return nil, err
	}

	outcomes, err := s.evaluator.Evaluate(snap, intent)
	if err != nil {
		return nil, err
	}

	score := Score(outcomes)
	decision := Decide(outcomes, score, s.threshold)

	result := &CheckResult{
		ReviewID:       NewReviewID(),
		TransactionID:  txn.ID,
		PortfolioID:    intent.PortfolioID,
		Symbol:         txn.Symbol,
		Decision:       decision,
		Score:          score,
		Outcomes:       outcomes,
		PolicyVersion:  snap.Version,
		PolicyChecksum: snap.Checksum,
		CheckedAt:      time.Now().UTC(),
	}

	// The audit record is written before any transition or broker call, so
	// an aborted review never leaves an unexplained transaction.
	if err := s.checks.Save(result); err != nil {
		return nil, err
	}

	if decision == DecisionRejected {
		note := fmt.Sprintf("compliance rejected, score %.0f, failed rules: %s",
			score, strings.Join(result.FailedRuleIDs(), ", "))
		if err := s.ledger.Transition(txn.ID, domain.StatusRejected, note); err != nil {
			return nil, err
		}
		result.TransactionStatus = domain.StatusRejected
	} else {
		status, err := s.submit(ctx, txn)
		if err != nil {
			s.log.Warn().Err(err).Str("transaction_id", txn.ID).Msg("Broker submission failed")
		}
		result.TransactionStatus = status
	}

	s.explain(ctx, result)

	s.log.Info().
		Str("review_id", result.ReviewID).
		Str("transaction_id", txn.ID).
		Str("decision", string(decision)).
		Float64("score", score).
		Msg("Compliance review completed")

	return result, nil
}

// submit sends the approved order to the broker with bounded retries
// and reports the transaction status it left behind. Permanent failures
// and exhausted retries mark the transaction failed so it never stays
// pending indefinitely.
func (s *Service) submit(ctx context.Context, txn *domain.Transaction) (domain.TransactionStatus, error) {
	var orderResult *domain.BrokerOrderResult
	err := reliability.Retry(ctx, s.retry, s.log, "submit_order", func() error {
		var submitErr error
		orderResult, submitErr = s.broker.SubmitOrder(ctx, txn)
		return submitErr
	})
	if err != nil {
		note := fmt.Sprintf("broker submission failed: %v", err)
		if terr := s.ledger.Transition(txn.ID, domain.StatusFailed, note); terr != nil {
			return domain.StatusPending, terr
		}
		return domain.StatusFailed, err
	}

	if err := s.ledger.SetBrokerRef(txn.ID, orderResult.OrderRef); err != nil {
		return domain.StatusPending, err
	}
	return domain.StatusPending, nil
}

// explain attaches optional LLM prose to the result. Failures are logged
// and ignored: the decision is already made.
func (s *Service) explain(ctx context.Context, result *CheckResult) {
	if s.explainer == nil {
		return
	}
	prose, err := s.explainer.Explain(ctx, result)
	if err != nil {
		s.log.Warn().Err(err).Str("review_id", result.ReviewID).Msg("Explanation generation failed")
		return
	}
	result.Explanation = prose
}
