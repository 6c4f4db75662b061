package guardrail

import "github.com/zyfalo/sereno/internal/config"

// fallbackResponse replaces any generated reply that fails the output check.
// Configuration-independent on purpose.
const fallbackResponse = "Disculpa, no puedo responder eso de manera apropiada. " +
	"¿Hay algo más en lo que pueda ayudarte con orientación psicoeducativa?"

// Coordinator composes the risk evaluator and the content filter into the
// pre-filter/post-filter pair applied to every conversation turn. It holds no
// mutable state; a single instance is safe for concurrent use.
type Coordinator struct {
	evaluator *RiskEvaluator
	filter    *ContentFilter
	enabled   bool
}

// NewCoordinator builds the guardrail pair from configuration.
func NewCoordinator(cfg config.GuardrailsConfig) *Coordinator {
	return &Coordinator{
		evaluator: NewRiskEvaluator(cfg),
		filter:    NewContentFilter(),
		enabled:   cfg.EnableCrisisDetection,
	}
}

// CheckInput evaluates user text for crisis risk. When crisis detection is
// disabled by configuration, it returns a fixed safe verdict without looking
// at the text.
func (c *Coordinator) CheckInput(text string) Verdict {
	if !c.enabled {
		return Verdict{
			IsSafe:         true,
			RiskLevel:      RiskLow,
			TriggeredRules: []string{},
		}
	}
	return c.evaluator.Evaluate(text)
}

// CheckOutput validates a generated reply against the content policy.
func (c *Coordinator) CheckOutput(reply string) ContentVerdict {
	return c.filter.Validate(reply)
}

// FallbackResponse returns the fixed apology/redirect used whenever a
// generated reply fails CheckOutput.
func (c *Coordinator) FallbackResponse() string {
	return fallbackResponse
}
