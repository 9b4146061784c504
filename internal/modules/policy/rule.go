// Package policy implements the versioned compliance rule store.
// Rule sets are declarative documents, validated on load, published as
// immutable snapshots behind an atomic pointer.
package policy

import (
	"fmt"

	"github.com/falconadvisor/falcon/internal/domain"
)

// Kind identifies the evaluation logic a rule binds to. Unknown kinds are
// rejected at load time.
type Kind string

const (
	KindConcentration       Kind = "concentration"
	KindSectorConcentration Kind = "sector_concentration"
	KindWashSale            Kind = "wash_sale"
	KindPatternDayTrader    Kind = "pattern_day_trader"
	KindPennyStock          Kind = "penny_stock"
	KindSuitability         Kind = "suitability"
	KindQuantSuitability    Kind = "quantitative_suitability"
	KindReasonableBasis     Kind = "reasonable_basis"
	KindManipulation        Kind = "manipulation"
	KindDisclosure          Kind = "disclosure"
)

var knownKinds = map[Kind]bool{
	KindConcentration:       true,
	KindSectorConcentration: true,
	KindWashSale:            true,
	KindPatternDayTrader:    true,
	KindPennyStock:          true,
	KindSuitability:         true,
	KindQuantSuitability:    true,
	KindReasonableBasis:     true,
	KindManipulation:        true,
	KindDisclosure:          true,
}

// Severity grades a rule's violations. Ordered advisory < warning < major
// < critical.
type Severity string

const (
	SeverityAdvisory Severity = "advisory"
	SeverityWarning  Severity = "warning"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

var knownSeverities = map[Severity]bool{
	SeverityAdvisory: true,
	SeverityWarning:  true,
	SeverityMajor:    true,
	SeverityCritical: true,
}

// requiredParams lists the numeric parameters each kind must carry.
var requiredParams = map[Kind][]string{
	KindConcentration:       {"max_position"},
	KindSectorConcentration: {"max_sector"},
	KindWashSale:            {"window_days"},
	KindPatternDayTrader:    {"min_equity", "max_day_trades", "lookback_days"},
	KindPennyStock:          {"min_price"},
	KindDisclosure:          {"min_fraction"},
}

// Rule is one compliance rule within a policy version.
type Rule struct {
	ID          string             `yaml:"rule_id" json:"rule_id"`
	Kind        Kind               `yaml:"kind" json:"kind"`
	Source      string             `yaml:"source" json:"source"`
	Name        string             `yaml:"name" json:"name"`
	Description string             `yaml:"description,omitempty" json:"description,omitempty"`
	Severity    Severity           `yaml:"severity" json:"severity"`
	AppliesTo   []string           `yaml:"applies_to" json:"applies_to"`
	Params      map[string]float64 `yaml:"params,omitempty" json:"params,omitempty"`
	Phrase      string             `yaml:"phrase,omitempty" json:"phrase,omitempty"`
}

// Param returns a numeric parameter, falling back to def when absent.
func (r Rule) Param(name string, def float64) float64 {
	if v, ok := r.Params[name]; ok {
		return v
	}
	return def
}

// AppliesToClient reports whether the rule covers the given client type.
// Rules addressed to the advisor itself apply to every review.
func (r Rule) AppliesToClient(ct domain.ClientType) bool {
	for _, a := range r.AppliesTo {
		if a == "advisor" || a == string(ct) {
			return true
		}
	}
	return false
}

func (r Rule) validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule has empty id")
	}
	if !knownKinds[r.Kind] {
		return fmt.Errorf("rule %s: unknown kind %q", r.ID, r.Kind)
	}
	if !knownSeverities[r.Severity] {
		return fmt.Errorf("rule %s: invalid severity %q", r.ID, r.Severity)
	}
	if len(r.AppliesTo) == 0 {
		return fmt.Errorf("rule %s: applies_to must not be empty", r.ID)
	}
	for _, p := range requiredParams[r.Kind] {
		if _, ok := r.Params[p]; !ok {
			return fmt.Errorf("rule %s: kind %s requires param %q", r.ID, r.Kind, p)
		}
	}
	return nil
}
