package compliance

import "github.com/falconadvisor/falcon/internal/modules/policy"

// warningDeduction applies per warning outcome regardless of rule severity.
const warningDeduction = 5

// failDeductions scale with rule severity.
var failDeductions = map[policy.Severity]float64{
	policy.SeverityAdvisory: 10,
	policy.SeverityWarning:  20,
	policy.SeverityMajor:    30,
	policy.SeverityCritical: 40,
}

// Score aggregates rule outcomes into a 0-100 compliance score.
func Score(outcomes []RuleOutcome) float64 {
	score := 100.0
	for _, o := range outcomes {
		switch o.Outcome {
		case OutcomeWarning:
			score -= warningDeduction
		case OutcomeFail:
			if d, ok := failDeductions[o.Severity]; ok {
				score -= d
			} else {
				score -= 15
			}
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Decide applies the decision policy: any critical fail, or a score below
// the approval threshold, rejects the trade. Warnings alone never block.
func Decide(outcomes []RuleOutcome, score, threshold float64) Decision {
	for _, o := range outcomes {
		if o.Outcome == OutcomeFail && o.Severity == policy.SeverityCritical {
			return DecisionRejected
		}
	}
	if score < threshold {
		return DecisionRejected
	}
	return DecisionApproved
}
