// Package compliance implements the rule evaluator, scorer and review
// service that decide whether a proposed trade may proceed.
package compliance

import (
	"time"

	"github.com/falconadvisor/falcon/internal/domain"
	"github.com/falconadvisor/falcon/internal/modules/policy"
)

// Outcome is the per-rule evaluation result.
type Outcome string

const (
	OutcomePass    Outcome = "pass"
	OutcomeWarning Outcome = "warning"
	OutcomeFail    Outcome = "fail"
)

// Decision is the aggregate review verdict.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// RuleOutcome is one rule's result within a review. At most one of the
// typed detail fields is set, matching the rule kind; Detail always
// carries the human-readable message with the concrete numbers.
type RuleOutcome struct {
	RuleID   string          `json:"rule_id"`
	Kind     policy.Kind     `json:"kind"`
	Severity policy.Severity `json:"severity"`
	Outcome  Outcome         `json:"outcome"`
	Detail   string          `json:"detail,omitempty"`

	Concentration *ConcentrationDetail `json:"concentration,omitempty"`
	Sector        *SectorDetail        `json:"sector,omitempty"`
	WashSale      *WashSaleDetail      `json:"wash_sale,omitempty"`
	DayTrading    *DayTradingDetail    `json:"day_trading,omitempty"`
	PennyStock    *PennyStockDetail    `json:"penny_stock,omitempty"`
	Suitability   *SuitabilityDetail   `json:"suitability,omitempty"`
	Disclosure    *DisclosureDetail    `json:"disclosure,omitempty"`
	Manipulation  *ManipulationDetail  `json:"manipulation,omitempty"`
}

// ConcentrationDetail carries the realized position fraction and its limit.
type ConcentrationDetail struct {
	Fraction float64 `json:"fraction"`
	Limit    float64 `json:"limit"`
}

// SectorDetail carries a sector allocation breach.
type SectorDetail struct {
	Sector   string  `json:"sector"`
	Fraction float64 `json:"fraction"`
	Limit    float64 `json:"limit"`
}

// WashSaleDetail carries the repurchase window and the loss at risk of
// disallowance. LastBuy is set when a sell is flagged against prior
// buys, LastSale when a repurchase is flagged against an executed
// loss-sale.
type WashSaleDetail struct {
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	LastBuy        time.Time `json:"last_buy"`
	LastSale       time.Time `json:"last_sale"`
	DisallowedLoss float64   `json:"disallowed_loss"`
}

// DayTradingDetail carries the PDT counters.
type DayTradingDetail struct {
	Equity        float64 `json:"equity"`
	MinEquity     float64 `json:"min_equity"`
	RoundTrips    int     `json:"round_trips"`
	MaxRoundTrips int     `json:"max_round_trips"`
	LookbackDays  int     `json:"lookback_days"`
}

// PennyStockDetail carries the price threshold breach.
type PennyStockDetail struct {
	Price     float64 `json:"price"`
	Threshold float64 `json:"threshold"`
}

// SuitabilityDetail carries the risk mismatch.
type SuitabilityDetail struct {
	RecommendationRisk string `json:"recommendation_risk"`
	ClientTolerance    string `json:"client_tolerance"`
}

// DisclosureDetail names the missing phrase and the fraction requiring it.
type DisclosureDetail struct {
	RequiredPhrase string  `json:"required_phrase"`
	Fraction       float64 `json:"fraction"`
	MinFraction    float64 `json:"min_fraction"`
}

// ManipulationDetail carries the trade-to-portfolio ratio that triggered
// the warning.
type ManipulationDetail struct {
	TradeValue     float64 `json:"trade_value"`
	PortfolioValue float64 `json:"portfolio_value"`
}

// IsViolation reports whether the outcome is a warning or fail.
func (o RuleOutcome) IsViolation() bool {
	return o.Outcome == OutcomeWarning || o.Outcome == OutcomeFail
}

// CheckResult is one immutable compliance review record, tied to the
// policy version it was evaluated against. TransactionStatus is not
// part of the stored record: it reports where the transaction stood
// when the result was assembled, so an approved review whose broker
// submission failed reads approved/failed rather than just approved.
type CheckResult struct {
	ReviewID          string                   `json:"review_id"`
	TransactionID     string                   `json:"transaction_id"`
	PortfolioID       string                   `json:"portfolio_id"`
	Symbol            string                   `json:"symbol"`
	Decision          Decision                 `json:"decision"`
	Score             float64                  `json:"score"`
	Outcomes          []RuleOutcome            `json:"outcomes"`
	PolicyVersion     string                   `json:"policy_version"`
	PolicyChecksum    string                   `json:"policy_checksum"`
	CheckedAt         time.Time                `json:"checked_at"`
	TransactionStatus domain.TransactionStatus `json:"transaction_status,omitempty"`
	Explanation       string                   `json:"explanation,omitempty"`
}

// Violations returns the outcomes that are warnings or fails.
func (r CheckResult) Violations() []RuleOutcome {
	var out []RuleOutcome
	for _, o := range r.Outcomes {
		if o.IsViolation() {
			out = append(out, o)
		}
	}
	return out
}

// FailedRuleIDs returns the ids of rules with a fail outcome.
func (r CheckResult) FailedRuleIDs() []string {
	var ids []string
	for _, o := range r.Outcomes {
		if o.Outcome == OutcomeFail {
			ids = append(ids, o.RuleID)
		}
	}
	return ids
}
