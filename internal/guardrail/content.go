package guardrail

import (
	"fmt"
	"regexp"

	"github.com/zyfalo/sereno/internal/logger"
)

// forbiddenPatterns must never appear in a generated reply: the assistant
// does not diagnose conditions or prescribe treatment. Rule ids are
// positional ("forbidden_pattern_N"), so order matters.
var forbiddenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)diagnóstico\s+de`),
	regexp.MustCompile(`(?i)tienes\s+(depresión|ansiedad|trastorno)`),
	regexp.MustCompile(`(?i)prescribo`),
	regexp.MustCompile(`(?i)toma\s+(medicamento|medicina)`),
	regexp.MustCompile(`(?i)dosis\s+de`),
}

// ContentFilter scans candidate replies for disallowed clinical claims.
type ContentFilter struct{}

// NewContentFilter returns a filter with the fixed forbidden-pattern set.
func NewContentFilter() *ContentFilter {
	return &ContentFilter{}
}

// Validate checks a candidate reply against every forbidden pattern.
// All matching patterns are recorded; there is no early exit.
func (f *ContentFilter) Validate(reply string) ContentVerdict {
	violated := []string{}
	for i, pattern := range forbiddenPatterns {
		if pattern.MatchString(reply) {
			violated = append(violated, fmt.Sprintf("forbidden_pattern_%d", i))
		}
	}

	verdict := ContentVerdict{
		IsValid:       len(violated) == 0,
		ViolatedRules: violated,
	}
	if !verdict.IsValid {
		logger.L.Warn("reply violated content rules", "rules", violated)
	}
	return verdict
}
