package session

import (
	"fmt"
	"strings"
)

// Prompt formatting defaults. The summary threshold is distinct from the
// configured summary_trigger consumed by NeedsSummary.
const (
	DefaultMaxContext       = 20
	DefaultSummaryThreshold = 40
)

// Chat-markup delimiters understood by the generation backend.
const (
	turnStart = "<|im_start|>"
	turnEnd   = "<|im_end|>"
)

// FormatForModel builds the single prompt string submitted to the generation
// backend. Non-system turns beyond summaryThreshold are compacted: the oldest
// summaryThreshold-maxContext turns become a synthetic summary appended to
// the system prompt, and only the trailing maxContext turns are rendered in
// full. Under the threshold, the system turn and the trailing maxContext
// turns are rendered as-is. Both branches end with an open assistant block so
// the backend produces the continuation.
//
// Only user and assistant turns are rendered in the recent loop; any other
// role among non-system turns is skipped there. That skip is a formatting
// filter only; roles are validated at append time.
func (st *Store) FormatForModel(id string, maxContext, summaryThreshold int) (string, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return "", ErrSessionNotFound
	}
	if maxContext <= 0 {
		maxContext = DefaultMaxContext
	}
	if summaryThreshold <= 0 {
		summaryThreshold = DefaultSummaryThreshold
	}

	var systemTurn *Turn
	if len(s.Turns) > 0 && s.Turns[0].Role == RoleSystem {
		systemTurn = &s.Turns[0]
	}
	var conversation []Turn
	for _, t := range s.Turns {
		if t.Role != RoleSystem {
			conversation = append(conversation, t)
		}
	}

	var b strings.Builder

	if len(conversation) > summaryThreshold {
		boundary := summaryThreshold - maxContext
		if boundary < 0 {
			boundary = 0
		}
		start := len(conversation) - maxContext
		if start < 0 {
			start = 0
		}
		toSummarize := conversation[:boundary]
		recent := conversation[start:]

		if systemTurn != nil {
			fmt.Fprintf(&b, "%ssystem\n%s\n\n%s%s\n", turnStart, systemTurn.Content, summarize(toSummarize), turnEnd)
		}
		writeTurns(&b, recent)
	} else {
		recent := conversation
		if len(conversation) > maxContext {
			recent = conversation[len(conversation)-maxContext:]
		}

		if systemTurn != nil {
			fmt.Fprintf(&b, "%ssystem\n%s\n%s\n", turnStart, systemTurn.Content, turnEnd)
		}
		writeTurns(&b, recent)
	}

	b.WriteString(turnStart + "assistant\n")
	return b.String(), nil
}

func writeTurns(b *strings.Builder, turns []Turn) {
	for _, t := range turns {
		switch t.Role {
		case RoleUser, RoleAssistant:
			fmt.Fprintf(b, "%s%s\n%s%s\n", turnStart, t.Role, t.Content, turnEnd)
		}
	}
}
