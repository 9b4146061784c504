package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/falconadvisor/falcon/internal/modules/compliance"
	"github.com/falconadvisor/falcon/internal/modules/policy"
)

func TestReviewPromptCleanReview(t *testing.T) {
	result := &compliance.CheckResult{
		Symbol:   "AAPL",
		Decision: compliance.DecisionApproved,
		Score:    100,
	}

	prompt := reviewPrompt(result)
	assert.Contains(t, prompt, "Trade: AAPL")
	assert.Contains(t, prompt, "Decision: approved")
	assert.Contains(t, prompt, "Score: 100 out of 100")
	assert.Contains(t, prompt, "all checks passed")
}

func TestReviewPromptListsViolations(t *testing.T) {
	result := &compliance.CheckResult{
		Symbol:   "TSLA",
		Decision: compliance.DecisionRejected,
		Score:    60,
		Outcomes: []compliance.RuleOutcome{
			{RuleID: "CONC-001", Severity: policy.SeverityWarning, Outcome: compliance.OutcomeFail,
				Detail: "position would be 32.000% of portfolio, limit is 25.000%"},
			{RuleID: "PENNY-001", Severity: policy.SeverityAdvisory, Outcome: compliance.OutcomePass},
		},
	}

	prompt := reviewPrompt(result)
	assert.Contains(t, prompt, "Decision: rejected")
	assert.Contains(t, prompt, "32.000%")
	assert.NotContains(t, prompt, "PENNY", "passing rules stay out of the prompt")
}
