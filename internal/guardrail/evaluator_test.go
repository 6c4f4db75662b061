package guardrail

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zyfalo/sereno/internal/config"
)

func testGuardrailsConfig() config.GuardrailsConfig {
	return config.GuardrailsConfig{
		EnableCrisisDetection: true,
		RiskThreshold:         0.75,
		CrisisKeywords:        config.DefaultCrisisKeywords,
		SuicideHotline:        "988",
		CrisisText:            "741741",
		Emergency:             "911",
	}
}

func TestEvaluate_ExplicitCrisisIsCritical(t *testing.T) {
	e := NewRiskEvaluator(testGuardrailsConfig())

	verdict := e.Evaluate("Voy a acabar con mi vida")

	require.Equal(t, RiskCritical, verdict.RiskLevel)
	require.True(t, verdict.ShouldTerminate)
	require.False(t, verdict.IsSafe)
	require.Contains(t, verdict.TriggeredRules, "keyword: acabar con mi vida")
	require.Contains(t, verdict.TriggeredRules, "pattern: crisis_5")
	require.Contains(t, verdict.EmergencyResponse, "988")
	require.Contains(t, verdict.EmergencyResponse, "741741")
	require.Contains(t, verdict.EmergencyResponse, "911")
}

func TestEvaluate_NormalConversationIsLowRisk(t *testing.T) {
	e := NewRiskEvaluator(testGuardrailsConfig())

	verdict := e.Evaluate("Hola, estoy estresado con los exámenes")

	require.Equal(t, RiskLow, verdict.RiskLevel)
	require.True(t, verdict.IsSafe)
	require.False(t, verdict.ShouldTerminate)
	require.Empty(t, verdict.TriggeredRules)
	require.Empty(t, verdict.EmergencyResponse)
}

func TestEvaluate_TwoPatternsWithoutKeywordsIsCritical(t *testing.T) {
	e := NewRiskEvaluator(testGuardrailsConfig())

	// Matches crisis_3 and crisis_4, and no keyword from the default list.
	verdict := e.Evaluate("No quiero seguir viviendo, quiero lastimarme")

	require.Equal(t, RiskCritical, verdict.RiskLevel)
	require.Contains(t, verdict.TriggeredRules, "pattern: crisis_3")
	require.Contains(t, verdict.TriggeredRules, "pattern: crisis_4")
	for _, rule := range verdict.TriggeredRules {
		require.NotContains(t, rule, "keyword:")
	}
}

func TestEvaluate_SinglePatternIsHighWithReferral(t *testing.T) {
	e := NewRiskEvaluator(testGuardrailsConfig())

	verdict := e.Evaluate("quiero lastimarme")

	require.Equal(t, RiskHigh, verdict.RiskLevel)
	require.False(t, verdict.IsSafe)
	require.False(t, verdict.ShouldTerminate)
	require.Contains(t, verdict.EmergencyResponse, "988")
}

func TestEvaluate_SingleKeywordIsMedium(t *testing.T) {
	e := NewRiskEvaluator(testGuardrailsConfig())

	verdict := e.Evaluate("A veces pienso en el suicidio")

	require.Equal(t, RiskMedium, verdict.RiskLevel)
	require.True(t, verdict.IsSafe)
	require.False(t, verdict.ShouldTerminate)
	require.Equal(t, []string{"keyword: suicidio"}, verdict.TriggeredRules)
	require.Empty(t, verdict.EmergencyResponse)
}

func TestEvaluate_KeywordMatchesAccumulate(t *testing.T) {
	e := NewRiskEvaluator(testGuardrailsConfig())

	// Three distinct keywords and no pattern: 3 x 0.3 = 0.9, critical.
	verdict := e.Evaluate("Hablo de suicidio, de autolesión y de la muerte")

	require.Equal(t, RiskCritical, verdict.RiskLevel)
	require.Len(t, verdict.TriggeredRules, 3)
	for _, rule := range verdict.TriggeredRules {
		require.Contains(t, rule, "keyword: ")
	}
}

func TestEvaluate_CaseInsensitiveMatching(t *testing.T) {
	e := NewRiskEvaluator(testGuardrailsConfig())

	upper := e.Evaluate("NO QUIERO VIVIR")
	lower := e.Evaluate("no quiero vivir")

	require.Equal(t, lower.RiskLevel, upper.RiskLevel)
	require.Equal(t, lower.TriggeredRules, upper.TriggeredRules)
}

func TestEvaluate_EmptyTextIsLow(t *testing.T) {
	e := NewRiskEvaluator(testGuardrailsConfig())

	verdict := e.Evaluate("")

	require.Equal(t, RiskLow, verdict.RiskLevel)
	require.True(t, verdict.IsSafe)
	require.Empty(t, verdict.TriggeredRules)
}

func TestEvaluate_Idempotent(t *testing.T) {
	e := NewRiskEvaluator(testGuardrailsConfig())
	text := "Voy a acabar con mi vida"

	first := e.Evaluate(text)
	second := e.Evaluate(text)

	require.Equal(t, first, second)
}

func TestRiskLevel_AtLeast(t *testing.T) {
	require.True(t, RiskCritical.AtLeast(RiskHigh))
	require.True(t, RiskHigh.AtLeast(RiskHigh))
	require.False(t, RiskMedium.AtLeast(RiskHigh))
	require.True(t, RiskMedium.AtLeast(RiskLow))
}
