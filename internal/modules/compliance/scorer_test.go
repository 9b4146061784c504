package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/falconadvisor/falcon/internal/modules/policy"
)

func fail(sev policy.Severity) RuleOutcome {
	return RuleOutcome{RuleID: "X", Outcome: OutcomeFail, Severity: sev}
}

func warning() RuleOutcome {
	return RuleOutcome{RuleID: "W", Outcome: OutcomeWarning, Severity: policy.SeverityWarning}
}

func pass() RuleOutcome {
	return RuleOutcome{RuleID: "P", Outcome: OutcomePass}
}

func TestScoreDeductions(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []RuleOutcome
		expected float64
	}{
		{"clean review", []RuleOutcome{pass(), pass()}, 100},
		{"single warning", []RuleOutcome{warning()}, 95},
		{"advisory fail", []RuleOutcome{fail(policy.SeverityAdvisory)}, 90},
		{"warning fail", []RuleOutcome{fail(policy.SeverityWarning)}, 80},
		{"major fail", []RuleOutcome{fail(policy.SeverityMajor)}, 70},
		{"critical fail", []RuleOutcome{fail(policy.SeverityCritical)}, 60},
		{"mixed", []RuleOutcome{warning(), warning(), fail(policy.SeverityMajor)}, 60},
		{
			"floors at zero",
			[]RuleOutcome{
				fail(policy.SeverityCritical), fail(policy.SeverityCritical),
				fail(policy.SeverityCritical),
			},
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Score(tt.outcomes), 1e-9)
		})
	}
}

func TestDecisionPolicy(t *testing.T) {
	// Any critical fail rejects regardless of score.
	outcomes := []RuleOutcome{fail(policy.SeverityCritical)}
	assert.Equal(t, DecisionRejected, Decide(outcomes, 100, 70))

	// Score below threshold rejects.
	outcomes = []RuleOutcome{fail(policy.SeverityMajor), fail(policy.SeverityWarning)}
	assert.Equal(t, DecisionRejected, Decide(outcomes, Score(outcomes), 70))

	// Score exactly at threshold approves.
	outcomes = []RuleOutcome{fail(policy.SeverityMajor)}
	assert.Equal(t, DecisionApproved, Decide(outcomes, Score(outcomes), 70))

	// Warnings alone never block.
	outcomes = []RuleOutcome{warning(), warning(), warning()}
	assert.Equal(t, DecisionApproved, Decide(outcomes, Score(outcomes), 70))
}
