package compliance

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/falconadvisor/falcon/internal/clock"
	"github.com/falconadvisor/falcon/internal/domain"
	"github.com/falconadvisor/falcon/internal/modules/policy"
)

// LedgerHistory is the ledger read surface the evaluator needs.
type LedgerHistory interface {
	HistoryBySymbol(portfolioID, symbol string, from, to time.Time) ([]domain.Transaction, error)
	DayTradeCount(portfolioID string, since time.Time) (int, error)
}

// HoldingsReader is the portfolio read surface the evaluator needs.
type HoldingsReader interface {
	Get(portfolioID, symbol string) (*domain.Holding, error)
	GetAll(portfolioID string) ([]domain.Holding, error)
	TotalValue(portfolioID string) (float64, error)
}

// Evaluator applies each applicable policy rule to a trade intent. Rules
// evaluate independently: no rule reads another's outcome.
type Evaluator struct {
	ledger   LedgerHistory
	holdings HoldingsReader
	log      zerolog.Logger
}

// NewEvaluator creates a rule evaluator
func NewEvaluator(ledger LedgerHistory, holdings HoldingsReader, log zerolog.Logger) *Evaluator {
	return &Evaluator{
		ledger:   ledger,
		holdings: holdings,
		log:      log.With().Str("service", "evaluator").Logger(),
	}
}

// context carries the portfolio facts shared by the rules of one review.
// Read-only after construction.
type evalContext struct {
	intent         domain.TradeIntent
	now            time.Time
	tradeValue     float64
	portfolioValue float64
	position       *domain.Holding
}

// Evaluate runs every rule in the snapshot applicable to the intent's
// client type and returns one outcome per rule, in rule id order.
func (e *Evaluator) Evaluate(snap *policy.Snapshot, intent domain.TradeIntent) ([]RuleOutcome, error) {
	total, err := e.holdings.TotalValue(intent.PortfolioID)
	if err != nil {
		return nil, err
	}
	position, err := e.holdings.Get(intent.PortfolioID, intent.Symbol)
	if err != nil {
		return nil, err
	}

	ectx := evalContext{
		intent:         intent,
		now:            clock.Now().UTC(),
		tradeValue:     intent.Value(),
		portfolioValue: total,
		position:       position,
	}

	var outcomes []RuleOutcome
	for _, rule := range snap.ForClient(intent.ClientType) {
		outcome, err := e.evaluateRule(rule, ectx)
		if err != nil {
			return nil, fmt.Errorf("rule %s evaluation failed: %w", rule.ID, err)
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

func (e *Evaluator) evaluateRule(rule policy.Rule, ectx evalContext) (RuleOutcome, error) {
	out := RuleOutcome{
		RuleID:   rule.ID,
		Kind:     rule.Kind,
		Severity: rule.Severity,
		Outcome:  OutcomePass,
	}

	switch rule.Kind {
	case policy.KindConcentration:
		e.evalConcentration(rule, ectx, &out)
	case policy.KindSectorConcentration:
		if err := e.evalSectorConcentration(rule, ectx, &out); err != nil {
			return out, err
		}
	case policy.KindWashSale:
		if err := e.evalWashSale(rule, ectx, &out); err != nil {
			return out, err
		}
	case policy.KindPatternDayTrader:
		if err := e.evalPatternDayTrader(rule, ectx, &out); err != nil {
			return out, err
		}
	case policy.KindPennyStock:
		e.evalPennyStock(rule, ectx, &out)
	case policy.KindSuitability:
		e.evalSuitability(rule, ectx, &out)
	case policy.KindQuantSuitability:
		out.Outcome = OutcomeWarning
		out.Detail = fmt.Sprintf("confirm aggregated transaction suitability for %s over time", ectx.intent.Symbol)
	case policy.KindReasonableBasis:
		if strings.TrimSpace(ectx.intent.AdvisoryText) == "" {
			out.Outcome = OutcomeWarning
			out.Detail = fmt.Sprintf("no advisory text supports the %s recommendation for %s",
				ectx.intent.Side, ectx.intent.Symbol)
		}
	case policy.KindManipulation:
		e.evalManipulation(rule, ectx, &out)
	case policy.KindDisclosure:
		e.evalDisclosure(rule, ectx, &out)
	}

	return out, nil
}

// positionFraction is the post-trade position as a fraction of the
// portfolio's total value. Sells reduce exposure and never concentrate.
func positionFraction(ectx evalContext) float64 {
	if ectx.intent.Side != domain.SideBuy || ectx.portfolioValue <= 0 {
		return 0
	}
	existing := 0.0
	if ectx.position != nil {
		existing = ectx.position.MarketValue()
	}
	return (ectx.tradeValue + existing) / ectx.portfolioValue
}

func (e *Evaluator) evalConcentration(rule policy.Rule, ectx evalContext, out *RuleOutcome) {
	limit := rule.Param("max_position", 0.25)
	fraction := positionFraction(ectx)
	if fraction <= limit {
		return
	}

	out.Outcome = OutcomeFail
	out.Detail = fmt.Sprintf("position would be %.3f%% of portfolio value, limit %.3f%%",
		fraction*100, limit*100)
	out.Concentration = &ConcentrationDetail{Fraction: fraction, Limit: limit}
}

func (e *Evaluator) evalSectorConcentration(rule policy.Rule, ectx evalContext, out *RuleOutcome) error {
	sector := SectorOf(ectx.intent.Symbol)
	if sector == "" || ectx.intent.Side != domain.SideBuy || ectx.portfolioValue <= 0 {
		return nil
	}

	holdings, err := e.holdings.GetAll(ectx.intent.PortfolioID)
	if err != nil {
		return err
	}

	sectorValue := ectx.tradeValue
	for _, h := range holdings {
		if SectorOf(h.Symbol) == sector {
			sectorValue += h.MarketValue()
		}
	}

	limit := rule.Param("max_sector", 0.40)
	fraction := sectorValue / ectx.portfolioValue
	if fraction <= limit {
		return nil
	}

	out.Outcome = OutcomeFail
	out.Detail = fmt.Sprintf("sector %q would be %.3f%% of portfolio, limit %.3f%%",
		sector, fraction*100, limit*100)
	out.Sector = &SectorDetail{Sector: sector, Fraction: fraction, Limit: limit}
	return nil
}

// Both legs of a wash sale are checked: a loss-sale with a buy inside
// the window, and a repurchase inside the window of an executed
// loss-sale. Only taxable accounts are in scope.
func (e *Evaluator) evalWashSale(rule policy.Rule, ectx evalContext, out *RuleOutcome) error {
	if ectx.intent.AccountType != domain.AccountTaxable {
		return nil
	}
	switch ectx.intent.Side {
	case domain.SideSell:
		return e.washSaleOnSell(rule, ectx, out)
	case domain.SideBuy:
		return e.washSaleOnBuy(rule, ectx, out)
	}
	return nil
}

func (e *Evaluator) washSaleOnSell(rule policy.Rule, ectx evalContext, out *RuleOutcome) error {
	if ectx.position == nil || ectx.intent.EstimatedPrice >= ectx.position.AverageCost {
		return nil
	}

	windowDays := int(rule.Param("window_days", 30))
	from := ectx.now.Add(-time.Duration(windowDays) * 24 * time.Hour)
	to := ectx.now.Add(time.Duration(windowDays) * 24 * time.Hour)

	history, err := e.ledger.HistoryBySymbol(ectx.intent.PortfolioID, ectx.intent.Symbol, from, to)
	if err != nil {
		return err
	}

	var lastBuy *domain.Transaction
	var buyQty float64
	for i := range history {
		txn := history[i]
		if txn.Side != domain.SideBuy {
			continue
		}
		if !clock.WithinWindow(ectx.now, txn.CreatedAt, windowDays) {
			continue
		}
		buyQty += txn.Quantity
		if lastBuy == nil || txn.CreatedAt.After(lastBuy.CreatedAt) {
			lastBuy = &history[i]
		}
	}
	if lastBuy == nil {
		return nil
	}

	lossPerShare := ectx.position.AverageCost - ectx.intent.EstimatedPrice
	matched := ectx.intent.Quantity
	if buyQty < matched {
		matched = buyQty
	}
	disallowed := lossPerShare * matched

	out.Outcome = OutcomeFail
	out.Detail = fmt.Sprintf(
		"sell of %s at a $%.2f/share loss with a buy on %s inside the %d-day window; $%.2f of the loss may be disallowed",
		ectx.intent.Symbol, lossPerShare, lastBuy.CreatedAt.Format("2006-01-02"), windowDays, disallowed)
	out.WashSale = &WashSaleDetail{
		WindowStart:    from,
		WindowEnd:      to,
		LastBuy:        lastBuy.CreatedAt,
		DisallowedLoss: disallowed,
	}
	return nil
}

func (e *Evaluator) washSaleOnBuy(rule policy.Rule, ectx evalContext, out *RuleOutcome) error {
	windowDays := int(rule.Param("window_days", 30))
	from := ectx.now.Add(-time.Duration(windowDays) * 24 * time.Hour)

	history, err := e.ledger.HistoryBySymbol(ectx.intent.PortfolioID, ectx.intent.Symbol, from, ectx.now)
	if err != nil {
		return err
	}

	var disallowed float64
	var lastSale *domain.Transaction
	for i := range history {
		txn := history[i]
		if txn.Side != domain.SideSell || txn.Status != domain.StatusExecuted {
			continue
		}
		lossPerShare := e.realizedLossPerShare(ectx, txn)
		if lossPerShare <= 0 {
			continue
		}
		matched := ectx.intent.Quantity
		if txn.Quantity < matched {
			matched = txn.Quantity
		}
		disallowed += lossPerShare * matched
		if lastSale == nil || txn.CreatedAt.After(lastSale.CreatedAt) {
			lastSale = &history[i]
		}
	}
	if lastSale == nil {
		return nil
	}

	out.Outcome = OutcomeFail
	out.Detail = fmt.Sprintf(
		"repurchase of %s after a loss-sale on %s inside the %d-day window; $%.2f of the realized loss would be disallowed",
		ectx.intent.Symbol, lastSale.CreatedAt.Format("2006-01-02"), windowDays, disallowed)
	out.WashSale = &WashSaleDetail{
		WindowStart:    from,
		WindowEnd:      lastSale.CreatedAt.Add(time.Duration(windowDays) * 24 * time.Hour),
		LastSale:       lastSale.CreatedAt,
		DisallowedLoss: disallowed,
	}
	return nil
}

// realizedLossPerShare estimates the per-share loss of an executed sell
// against the surviving cost basis. A fully closed position leaves no
// basis, so the sale is treated as a 10% loss.
func (e *Evaluator) realizedLossPerShare(ectx evalContext, sell domain.Transaction) float64 {
	price := sell.Price
	if price <= 0 {
		price = ectx.intent.EstimatedPrice
	}
	if ectx.position != nil && ectx.position.AverageCost > 0 {
		return ectx.position.AverageCost - price
	}
	return price * 0.1
}

func (e *Evaluator) evalPatternDayTrader(rule policy.Rule, ectx evalContext, out *RuleOutcome) error {
	if ectx.intent.ClientType != domain.ClientIndividual {
		return nil
	}

	minEquity := rule.Param("min_equity", 25000)
	if ectx.portfolioValue >= minEquity {
		return nil
	}

	maxTrips := int(rule.Param("max_day_trades", 3))
	lookback := int(rule.Param("lookback_days", 5))
	since := clock.BusinessDaysAgo(ectx.now, lookback)

	trips, err := e.ledger.DayTradeCount(ectx.intent.PortfolioID, since)
	if err != nil {
		return err
	}
	if trips <= maxTrips {
		return nil
	}

	out.Outcome = OutcomeFail
	out.Detail = fmt.Sprintf(
		"account equity $%.2f is below the $%.2f minimum with %d round trips in the trailing %d business days (limit %d)",
		ectx.portfolioValue, minEquity, trips, lookback, maxTrips)
	out.DayTrading = &DayTradingDetail{
		Equity:        ectx.portfolioValue,
		MinEquity:     minEquity,
		RoundTrips:    trips,
		MaxRoundTrips: maxTrips,
		LookbackDays:  lookback,
	}
	return nil
}

func (e *Evaluator) evalPennyStock(rule policy.Rule, ectx evalContext, out *RuleOutcome) {
	threshold := rule.Param("min_price", 5.0)
	if ectx.intent.EstimatedPrice >= threshold {
		return
	}

	out.Outcome = OutcomeFail
	out.Detail = fmt.Sprintf("security price $%.2f is below the $%.2f penny-stock threshold",
		ectx.intent.EstimatedPrice, threshold)
	out.PennyStock = &PennyStockDetail{Price: ectx.intent.EstimatedPrice, Threshold: threshold}
}

var riskRank = map[string]int{"conservative": 1, "moderate": 2, "aggressive": 3}

func riskOf(level string) int {
	if r, ok := riskRank[strings.ToLower(strings.TrimSpace(level))]; ok {
		return r
	}
	return riskRank["moderate"]
}

func (e *Evaluator) evalSuitability(rule policy.Rule, ectx evalContext, out *RuleOutcome) {
	rec := riskOf(ectx.intent.RecommendationRisk)
	cli := riskOf(ectx.intent.ClientRiskTolerance)
	if rec <= cli+1 {
		return
	}

	out.Outcome = OutcomeFail
	out.Detail = fmt.Sprintf("recommendation risk %q exceeds client tolerance %q",
		strings.ToLower(ectx.intent.RecommendationRisk), strings.ToLower(ectx.intent.ClientRiskTolerance))
	out.Suitability = &SuitabilityDetail{
		RecommendationRisk: strings.ToLower(ectx.intent.RecommendationRisk),
		ClientTolerance:    strings.ToLower(ectx.intent.ClientRiskTolerance),
	}
}

func (e *Evaluator) evalManipulation(rule policy.Rule, ectx evalContext, out *RuleOutcome) {
	if ectx.portfolioValue <= 0 || ectx.tradeValue <= ectx.portfolioValue*0.5 {
		return
	}

	out.Outcome = OutcomeWarning
	out.Detail = fmt.Sprintf("trade value $%.2f exceeds half of portfolio value $%.2f, review for manipulation concerns",
		ectx.tradeValue, ectx.portfolioValue)
	out.Manipulation = &ManipulationDetail{TradeValue: ectx.tradeValue, PortfolioValue: ectx.portfolioValue}
}

func (e *Evaluator) evalDisclosure(rule policy.Rule, ectx evalContext, out *RuleOutcome) {
	minFraction := rule.Param("min_fraction", 0.25)
	fraction := positionFraction(ectx)
	if fraction <= minFraction {
		return
	}
	phrase := rule.Phrase
	if phrase == "" {
		phrase = "concentrated position"
	}
	if strings.Contains(strings.ToLower(ectx.intent.AdvisoryText), phrase) {
		return
	}

	out.Outcome = OutcomeFail
	out.Detail = fmt.Sprintf("position at %.3f%% of portfolio requires the %q disclosure in the advisory text",
		fraction*100, phrase)
	out.Disclosure = &DisclosureDetail{RequiredPhrase: phrase, Fraction: fraction, MinFraction: minFraction}
}
