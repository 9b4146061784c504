// Package harvesting scans taxable portfolios for tax-loss harvesting
// opportunities. It only reads: no orders are placed and no ledger state
// is touched.
package harvesting

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/falconadvisor/falcon/internal/clock"
	"github.com/falconadvisor/falcon/internal/domain"
	"github.com/falconadvisor/falcon/internal/modules/compliance"
)

// HoldingsReader is the portfolio surface the analyzer needs.
type HoldingsReader interface {
	GetAll(portfolioID string) ([]domain.Holding, error)
}

// TradeHistory answers which trades touched a symbol recently.
type TradeHistory interface {
	HistoryBySymbol(portfolioID, symbol string, from, to time.Time) ([]domain.Transaction, error)
}

// Thresholds controls when a losing position is worth harvesting.
type Thresholds struct {
	MinLoss        float64 // minimum absolute dollar loss
	MinLossPct     float64 // minimum loss as a fraction of cost basis
	TaxRate        float64 // marginal rate used for the savings estimate
	WashWindowDays int
}

// Opportunity is one harvestable losing position.
type Opportunity struct {
	Symbol             string     `json:"symbol"`
	Quantity           float64    `json:"quantity"`
	AverageCost        float64    `json:"average_cost"`
	CurrentPrice       float64    `json:"current_price"`
	UnrealizedLoss     float64    `json:"unrealized_loss"`
	LossPct            float64    `json:"loss_pct"`
	EstimatedSavings   float64    `json:"estimated_savings"`
	WashSaleRisk       bool       `json:"wash_sale_risk"`
	WashSaleWindowEnds *time.Time `json:"wash_sale_window_ends,omitempty"`
	Substitutes        []string   `json:"substitutes,omitempty"`
}

// Summary aggregates one analysis pass.
type Summary struct {
	PortfolioID   string        `json:"portfolio_id"`
	Opportunities []Opportunity `json:"opportunities"`
	TotalLoss     float64       `json:"total_loss"`
	TotalSavings  float64       `json:"total_savings"`
	WashRisks     int           `json:"wash_risks"`
}

// Analyzer finds losing positions whose sale would realize a deductible
// loss, flags the ones a recent purchase would disallow, and suggests
// non-identical substitutes for the rest.
type Analyzer struct {
	holdings   HoldingsReader
	history    TradeHistory
	thresholds Thresholds
	log        zerolog.Logger
}

func NewAnalyzer(holdings HoldingsReader, history TradeHistory, thresholds Thresholds, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		holdings:   holdings,
		history:    history,
		thresholds: thresholds,
		log:        log.With().Str("service", "harvesting").Logger(),
	}
}

// Analyze scans every holding in the portfolio and returns the
// opportunities ordered by estimated savings, largest first. Positions
// inside a wash-sale window are included with zero savings so the
// caller can see when the window reopens.
func (a *Analyzer) Analyze(ctx context.Context, portfolioID string) (*Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	holdings, err := a.holdings.GetAll(portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings for %s: %w", portfolioID, err)
	}

	now := clock.Now()
	summary := &Summary{PortfolioID: portfolioID}

	for _, h := range holdings {
		if h.Quantity <= 0 || h.AverageCost <= 0 {
			continue
		}

		loss := (h.CurrentPrice - h.AverageCost) * h.Quantity
		if loss >= 0 {
			continue
		}
		lossPct := math.Abs(loss) / h.CostBasis()
		if math.Abs(loss) < a.thresholds.MinLoss || lossPct < a.thresholds.MinLossPct {
			continue
		}

		opp := Opportunity{
			Symbol:         h.Symbol,
			Quantity:       h.Quantity,
			AverageCost:    h.AverageCost,
			CurrentPrice:   h.CurrentPrice,
			UnrealizedLoss: loss,
			LossPct:        lossPct,
		}

		windowEnds, err := a.washWindowEnds(portfolioID, h.Symbol, now)
		if err != nil {
			return nil, err
		}
		if windowEnds != nil {
			// Selling now would disallow the loss, so the estimate is zero
			// until the window reopens.
			opp.WashSaleRisk = true
			opp.WashSaleWindowEnds = windowEnds
			summary.WashRisks++
		} else {
			opp.EstimatedSavings = math.Abs(loss) * a.thresholds.TaxRate
			opp.Substitutes = SubstitutesFor(h.Symbol, compliance.SectorOf(h.Symbol))
		}

		summary.Opportunities = append(summary.Opportunities, opp)
		summary.TotalLoss += loss
		summary.TotalSavings += opp.EstimatedSavings
	}

	sort.SliceStable(summary.Opportunities, func(i, j int) bool {
		a, b := summary.Opportunities[i], summary.Opportunities[j]
		if a.EstimatedSavings != b.EstimatedSavings {
			return a.EstimatedSavings > b.EstimatedSavings
		}
		return a.UnrealizedLoss < b.UnrealizedLoss
	})

	a.log.Info().
		Str("portfolio_id", portfolioID).
		Int("opportunities", len(summary.Opportunities)).
		Int("wash_risks", summary.WashRisks).
		Float64("total_savings", summary.TotalSavings).
		Msg("Harvest analysis completed")

	return summary, nil
}

// washWindowEnds returns when the wash-sale window for a symbol reopens,
// or nil if no purchase in the trailing window blocks the sale.
func (a *Analyzer) washWindowEnds(portfolioID, symbol string, now time.Time) (*time.Time, error) {
	from := now.AddDate(0, 0, -a.thresholds.WashWindowDays)
	history, err := a.history.HistoryBySymbol(portfolioID, symbol, from, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade history for %s: %w", symbol, err)
	}

	var lastBuy time.Time
	for _, txn := range history {
		if txn.Side != domain.SideBuy {
			continue
		}
		if !clock.WithinTrailing(now, txn.CreatedAt, a.thresholds.WashWindowDays) {
			continue
		}
		if txn.CreatedAt.After(lastBuy) {
			lastBuy = txn.CreatedAt
		}
	}
	if lastBuy.IsZero() {
		return nil, nil
	}

	ends := lastBuy.AddDate(0, 0, a.thresholds.WashWindowDays)
	return &ends, nil
}
