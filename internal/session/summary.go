package session

import (
	"fmt"
	"strings"
)

// emotionFamilies maps a summary label to the word list that marks it.
// Exactly these three families are scanned; matching is lowercase substring.
var emotionFamilies = []struct {
	label string
	words []string
}{
	{"ansiedad", []string{"ansiedad", "ansioso", "nervioso"}},
	{"tristeza", []string{"triste", "depresión", "deprimido"}},
	{"estrés", []string{"estrés", "estresado", "agobiado"}},
}

// summarize compacts old turns into a short synthetic paragraph: which
// emotion families appeared in user turns, plus the count of user turns
// folded away. This stands in for a model-generated summary.
func summarize(turns []Turn) string {
	seen := make(map[string]bool)
	var emotions []string
	userTurns := 0

	for _, t := range turns {
		if t.Role != RoleUser {
			continue
		}
		userTurns++
		lower := strings.ToLower(t.Content)
		for _, fam := range emotionFamilies {
			if seen[fam.label] {
				continue
			}
			for _, w := range fam.words {
				if strings.Contains(lower, w) {
					seen[fam.label] = true
					emotions = append(emotions, fam.label)
					break
				}
			}
		}
	}

	var b strings.Builder
	b.WriteString("RESUMEN DE CONVERSACIÓN PREVIA:\n")
	if len(emotions) > 0 {
		b.WriteString(fmt.Sprintf("- Emociones discutidas: %s\n", strings.Join(emotions, ", ")))
	}
	b.WriteString(fmt.Sprintf("- Número de intercambios previos: %d\n", userTurns))
	b.WriteString("- El usuario ha compartido información personal y emocional que debe ser recordada.\n")
	return b.String()
}
