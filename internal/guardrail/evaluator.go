package guardrail

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zyfalo/sereno/internal/config"
	"github.com/zyfalo/sereno/internal/logger"
)

// crisisPatterns target verb-phrase constructions expressing intent to die,
// self-harm, or end one's life. Rule ids are positional ("pattern: crisis_N"),
// so order matters.
var crisisPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)quiero\s+(morir|morirme|suicidar|suicidarme)`),
	regexp.MustCompile(`(?i)voy\s+a\s+(matar|suicidar)`),
	regexp.MustCompile(`(?i)plan\s+para\s+(morir|suicidarme|matarme)`),
	regexp.MustCompile(`(?i)no\s+quiero\s+(vivir|seguir\s+viviendo)`),
	regexp.MustCompile(`(?i)(cortar|hacer\s+daño|lastimar)me`),
	regexp.MustCompile(`(?i)acabar\s+con\s+(mi\s+vida|todo)`),
}

const (
	keywordWeight = 0.3
	patternWeight = 0.5
)

// RiskEvaluator scores a single text for crisis risk.
// Evaluation is a pure function of the text and configuration.
type RiskEvaluator struct {
	keywords       []string
	suicideHotline string
	crisisText     string
	emergency      string

	// riskThreshold is accepted from configuration but the level banding
	// below uses the fixed 0.2/0.5/0.8 cutoffs, matching the long-standing
	// observed behavior. Do not wire it in without revisiting the pinned
	// test expectations.
	riskThreshold float64
}

// NewRiskEvaluator builds an evaluator from the guardrails configuration.
func NewRiskEvaluator(cfg config.GuardrailsConfig) *RiskEvaluator {
	keywords := cfg.CrisisKeywords
	if len(keywords) == 0 {
		keywords = config.DefaultCrisisKeywords
	}
	return &RiskEvaluator{
		keywords:       keywords,
		suicideHotline: cfg.SuicideHotline,
		crisisText:     cfg.CrisisText,
		emergency:      cfg.Emergency,
		riskThreshold:  cfg.RiskThreshold,
	}
}

// Evaluate scores text against the keyword and pattern rule sets and maps the
// accumulated score to a risk level. Matches are not deduplicated: every
// keyword and every pattern is checked independently and all matches count.
// Empty or unparseable text yields a low, safe verdict.
func (e *RiskEvaluator) Evaluate(text string) Verdict {
	triggered := []string{}
	score := 0.0

	lower := strings.ToLower(text)
	for _, kw := range e.keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			triggered = append(triggered, "keyword: "+kw)
			score += keywordWeight
		}
	}

	for i, pattern := range crisisPatterns {
		if pattern.MatchString(text) {
			triggered = append(triggered, fmt.Sprintf("pattern: crisis_%d", i))
			score += patternWeight
		}
	}

	var level RiskLevel
	switch {
	case score >= 0.8:
		level = RiskCritical
	case score >= 0.5:
		level = RiskHigh
	case score >= 0.2:
		level = RiskMedium
	default:
		level = RiskLow
	}

	verdict := Verdict{
		IsSafe:          level == RiskLow || level == RiskMedium,
		RiskLevel:       level,
		TriggeredRules:  triggered,
		ShouldTerminate: level == RiskCritical,
	}
	if level.AtLeast(RiskHigh) {
		verdict.EmergencyResponse = e.buildEmergencyResponse()
	}

	logger.L.Info("crisis detection",
		"risk_level", level,
		"score", fmt.Sprintf("%.2f", score),
		"rules", len(triggered),
	)

	return verdict
}

// buildEmergencyResponse interpolates the configured contact numbers into the
// referral template. The template wording is stable: downstream checks look
// for the hotline numbers by substring.
func (e *RiskEvaluator) buildEmergencyResponse() string {
	return fmt.Sprintf(`🚨 **Detecto que estás pasando por un momento muy difícil**

Tu seguridad es lo más importante. Por favor, contacta **inmediatamente** con ayuda profesional:

📞 **Línea Nacional de Prevención del Suicidio:** %s
💬 **Línea de Crisis por texto:** Envía "HOLA" al %s
🏥 **Emergencias:** %s

**Estos servicios están disponibles 24/7 y hay profesionales esperando para ayudarte ahora mismo.**

No estás solo/a. La ayuda profesional está disponible y puede marcar la diferencia.

---

*Este asistente no puede proporcionar ayuda en crisis. Por favor, contacta los servicios listados arriba.*
`, e.suicideHotline, e.crisisText, e.emergency)
}
