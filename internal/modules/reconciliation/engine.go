// Package reconciliation folds brokerage order and position state into the
// local ledger and holdings, idempotently.
package reconciliation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/falconadvisor/falcon/internal/domain"
	"github.com/falconadvisor/falcon/internal/reliability"
)

// TransactionLedger is the ledger surface a sync pass needs.
type TransactionLedger interface {
	GetPending(portfolioID string) ([]domain.Transaction, error)
	Transition(id string, to domain.TransactionStatus, note string) error
	MarkExecuted(id, note string, fillPrice float64) error
	ListPortfolios() ([]string, error)
}

// HoldingsStore is the holdings surface a sync pass needs.
type HoldingsStore interface {
	Get(portfolioID, symbol string) (*domain.Holding, error)
	Upsert(h domain.Holding) error
	ZeroAbsent(portfolioID string, present []string) (int, error)
}

// PassSummary reports what one reconciliation pass did.
type PassSummary struct {
	PortfolioID      string        `json:"portfolio_id"`
	OrdersChecked    int           `json:"orders_checked"`
	Transitions      int           `json:"transitions"`
	Conflicts        int           `json:"conflicts"`
	HoldingsUpserted int           `json:"holdings_upserted"`
	HoldingsZeroed   int           `json:"holdings_zeroed"`
	Duration         time.Duration `json:"duration"`
}

// Engine runs idempotent reconciliation passes. Passes for the same
// portfolio are serialized; different portfolios run in parallel.
type Engine struct {
	broker   domain.BrokerClient
	txns     TransactionLedger
	holdings HoldingsStore
	retry    reliability.RetryConfig
	log      zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates a reconciliation engine
func NewEngine(
	broker domain.BrokerClient,
	txns TransactionLedger,
	holdings HoldingsStore,
	retry reliability.RetryConfig,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		broker:   broker,
		txns:     txns,
		holdings: holdings,
		retry:    retry,
		log:      log.With().Str("service", "reconciliation").Logger(),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (e *Engine) portfolioLock(portfolioID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[portfolioID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[portfolioID] = lock
	}
	return lock
}

// Reconcile runs one sync pass for a portfolio: order statuses onto
// pending transactions, then broker positions onto holdings.
func (e *Engine) Reconcile(ctx context.Context, portfolioID string) (*PassSummary, error) {
	lock := e.portfolioLock(portfolioID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	summary := &PassSummary{PortfolioID: portfolioID}
	log := e.log.With().Str("portfolio_id", portfolioID).Logger()

	if err := e.syncOrders(ctx, portfolioID, summary, log); err != nil {
		return summary, err
	}
	if err := e.syncPositions(ctx, portfolioID, summary, log); err != nil {
		return summary, err
	}

	summary.Duration = time.Since(start)
	log.Info().
		Int("orders_checked", summary.OrdersChecked).
		Int("transitions", summary.Transitions).
		Int("conflicts", summary.Conflicts).
		Int("holdings_upserted", summary.HoldingsUpserted).
		Int("holdings_zeroed", summary.HoldingsZeroed).
		Dur("duration_ms", summary.Duration).
		Msg("Reconciliation pass completed")

	return summary, nil
}

func (e *Engine) syncOrders(ctx context.Context, portfolioID string, summary *PassSummary, log zerolog.Logger) error {
	pending, err := e.txns.GetPending(portfolioID)
	if err != nil {
		return err
	}

	for _, txn := range pending {
		if txn.BrokerOrderRef == "" {
			continue
		}
		summary.OrdersChecked++

		var order *domain.BrokerOrder
		err := reliability.Retry(ctx, e.retry, log, "get_order_status", func() error {
			var fetchErr error
			order, fetchErr = e.broker.GetOrderStatus(ctx, txn.BrokerOrderRef)
			return fetchErr
		})
		if err != nil {
			if domain.IsBrokerTransient(err) {
				// Reported here, retried on the next scheduled pass.
				log.Warn().Err(err).Str("transaction_id", txn.ID).Msg("Order status unavailable, will retry next pass")
				continue
			}
			// A permanently unqueryable order means the broker lost it.
			note := fmt.Sprintf("broker error for order %s: %v", txn.BrokerOrderRef, err)
			e.applyTransition(summary, log, txn.ID, func() error {
				return e.txns.Transition(txn.ID, domain.StatusFailed, note)
			})
			continue
		}

		switch order.Status {
		case domain.BrokerOrderFilled:
			note := fmt.Sprintf("broker confirmed fill of %g at %.2f (order %s)",
				order.FilledQty, order.FilledPrice, txn.BrokerOrderRef)
			e.applyTransition(summary, log, txn.ID, func() error {
				return e.txns.MarkExecuted(txn.ID, note, order.FilledPrice)
			})
		case domain.BrokerOrderCancelled, domain.BrokerOrderExpired:
			note := fmt.Sprintf("broker reported order %s as %s", txn.BrokerOrderRef, order.Status)
			e.applyTransition(summary, log, txn.ID, func() error {
				return e.txns.Transition(txn.ID, domain.StatusCancelled, note)
			})
		case domain.BrokerOrderRejected:
			note := fmt.Sprintf("broker rejected order %s", txn.BrokerOrderRef)
			e.applyTransition(summary, log, txn.ID, func() error {
				return e.txns.Transition(txn.ID, domain.StatusRejected, note)
			})
		default:
			// Still open at the broker, nothing to fold in yet.
		}
	}

	return nil
}

// applyTransition applies one ledger transition, treating a conflict as
// the idempotency signal it is: an earlier pass already folded this
// update in, so it is logged and skipped, never fatal to the pass.
func (e *Engine) applyTransition(summary *PassSummary, log zerolog.Logger, txnID string, fn func() error) {
	err := fn()
	if err == nil {
		summary.Transitions++
		return
	}
	if domain.IsConflict(err) {
		summary.Conflicts++
		log.Debug().Err(err).Str("transaction_id", txnID).Msg("Transition already applied, skipping")
		return
	}
	log.Error().Err(err).Str("transaction_id", txnID).Msg("Ledger transition failed")
}

// syncPositions folds the broker account's positions into the one
// portfolio that mirrors it. A portfolio whose account the configured
// credentials cannot answer for keeps its local holdings untouched.
func (e *Engine) syncPositions(ctx context.Context, portfolioID string, summary *PassSummary, log zerolog.Logger) error {
	var positions []domain.BrokerPosition
	err := reliability.Retry(ctx, e.retry, log, "get_positions", func() error {
		var fetchErr error
		positions, fetchErr = e.broker.GetPositions(ctx, portfolioID)
		return fetchErr
	})
	if err != nil {
		if domain.IsBrokerPermanent(err) {
			log.Debug().Err(err).Msg("Positions not available for this portfolio's account, skipping position sync")
			return nil
		}
		return fmt.Errorf("failed to fetch broker positions: %w", err)
	}

	present := make([]string, 0, len(positions))
	for _, pos := range positions {
		present = append(present, pos.Symbol)

		// Broker quantities are authoritative; the locally tracked average
		// cost basis survives the sync because loss math depends on it.
		avgCost := pos.AverageCost
		existing, err := e.holdings.Get(portfolioID, pos.Symbol)
		if err != nil {
			return err
		}
		if existing != nil && existing.AverageCost > 0 {
			avgCost = existing.AverageCost
		}

		if err := e.holdings.Upsert(domain.Holding{
			PortfolioID:  portfolioID,
			Symbol:       pos.Symbol,
			Quantity:     pos.Quantity,
			AverageCost:  avgCost,
			CurrentPrice: pos.CurrentPrice,
		}); err != nil {
			return err
		}
		summary.HoldingsUpserted++
	}

	zeroed, err := e.holdings.ZeroAbsent(portfolioID, present)
	if err != nil {
		return err
	}
	summary.HoldingsZeroed = zeroed

	return nil
}

// ReconcileAll runs a pass for every portfolio known to the ledger. One
// failing portfolio never stops the others.
func (e *Engine) ReconcileAll(ctx context.Context) error {
	portfolios, err := e.txns.ListPortfolios()
	if err != nil {
		return err
	}

	var firstErr error
	for _, id := range portfolios {
		if _, err := e.Reconcile(ctx, id); err != nil {
			e.log.Error().Err(err).Str("portfolio_id", id).Msg("Reconciliation pass failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
