package policy

// DefaultRules returns the built-in rule set, used when no policy document
// is configured. Thresholds follow the regulations each rule cites.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "CONC-001",
			Kind:        KindConcentration,
			Source:      "SEC",
			Name:        "Position Concentration Limit",
			Description: "Individual position should not exceed threshold of portfolio value",
			Severity:    SeverityWarning,
			AppliesTo:   []string{"individual", "institutional"},
			Params:      map[string]float64{"max_position": 0.25},
		},
		{
			ID:          "CONC-002",
			Kind:        KindSectorConcentration,
			Source:      "SEC",
			Name:        "Sector Concentration Limit",
			Description: "Single sector allocation should not exceed threshold of portfolio",
			Severity:    SeverityWarning,
			AppliesTo:   []string{"individual", "institutional"},
			Params:      map[string]float64{"max_sector": 0.40},
		},
		{
			ID:          "DISC-001",
			Kind:        KindDisclosure,
			Source:      "FINRA",
			Name:        "Concentrated Position Disclosure",
			Description: "Advisory text must disclose risks for concentrated positions",
			Severity:    SeverityMajor,
			AppliesTo:   []string{"advisor"},
			Params:      map[string]float64{"min_fraction": 0.25},
			Phrase:      "concentrated position",
		},
		{
			ID:          "SUIT-001",
			Kind:        KindSuitability,
			Source:      "FINRA",
			Name:        "Suitability Rule 2111",
			Description: "Recommendations must be suitable for client based on profile",
			Severity:    SeverityCritical,
			AppliesTo:   []string{"advisor"},
		},
		{
			ID:          "SUIT-002",
			Kind:        KindQuantSuitability,
			Source:      "FINRA",
			Name:        "Quantitative Suitability",
			Description: "Series of transactions must be suitable in aggregate",
			Severity:    SeverityCritical,
			AppliesTo:   []string{"advisor"},
		},
		{
			ID:          "SUIT-003",
			Kind:        KindReasonableBasis,
			Source:      "FINRA",
			Name:        "Reasonable Basis",
			Description: "Advisors must have reasonable basis for recommendations",
			Severity:    SeverityWarning,
			AppliesTo:   []string{"advisor"},
		},
		{
			ID:          "TAX-001",
			Kind:        KindWashSale,
			Source:      "IRS",
			Name:        "Wash Sale Rule Section 1091",
			Description: "Cannot claim loss if repurchasing substantially identical security within 30 days",
			Severity:    SeverityWarning,
			AppliesTo:   []string{"individual", "institutional"},
			Params:      map[string]float64{"window_days": 30},
		},
		{
			ID:          "TRAD-001",
			Kind:        KindPatternDayTrader,
			Source:      "FINRA",
			Name:        "Pattern Day Trader Rule",
			Description: "Accounts under $25K limited to 3 day trades per 5-day period",
			Severity:    SeverityWarning,
			AppliesTo:   []string{"individual"},
			Params: map[string]float64{
				"min_equity":     25000,
				"max_day_trades": 3,
				"lookback_days":  5,
			},
		},
		{
			ID:          "TRAD-002",
			Kind:        KindManipulation,
			Source:      "SEC",
			Name:        "Market Manipulation Prevention",
			Description: "Cannot engage in manipulative or deceptive trading practices",
			Severity:    SeverityCritical,
			AppliesTo:   []string{"individual", "advisor"},
		},
		{
			ID:          "PENNY-001",
			Kind:        KindPennyStock,
			Source:      "SEC",
			Name:        "Penny Stock Disclosure",
			Description: "Trades in penny stocks require heightened suitability and disclosure",
			Severity:    SeverityAdvisory,
			AppliesTo:   []string{"individual", "advisor"},
			Params:      map[string]float64{"min_price": 5.0},
		},
	}
}
