// Package guardrail implements the crisis pre-filter and the content
// post-filter that wrap every conversation turn. The detection is a
// deliberately simple, auditable keyword/regex heuristic; the weights and
// cutoffs are pinned and the emergency referral text always carries the
// configured hotline numbers verbatim.
package guardrail

// RiskLevel classifies the crisis risk of a user input.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// AtLeast reports whether l is at or above the given level.
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return riskRank[l] >= riskRank[other]
}

func (l RiskLevel) String() string { return string(l) }

// Verdict is the outcome of an input check.
// ShouldTerminate is true exactly when RiskLevel is critical, and
// EmergencyResponse is set exactly when RiskLevel is high or critical.
type Verdict struct {
	IsSafe            bool      `json:"is_safe"`
	RiskLevel         RiskLevel `json:"risk_level"`
	TriggeredRules    []string  `json:"triggered_rules"`
	ShouldTerminate   bool      `json:"should_terminate"`
	EmergencyResponse string    `json:"emergency_response,omitempty"`
}

// ContentVerdict is the outcome of an output check.
// IsValid is true exactly when ViolatedRules is empty.
type ContentVerdict struct {
	IsValid       bool     `json:"is_valid"`
	ViolatedRules []string `json:"violated_rules"`
}
