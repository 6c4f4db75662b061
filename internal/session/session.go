package session

import "time"

// Session is an ordered log of turns plus activity tracking. The first turn,
// when present, is the system prompt inserted exactly once at creation.
// Sessions are owned by the Store; there is no stored "expired" flag.
// Expiry is computed on demand and acted on by the store's sweep.
type Session struct {
	ID             string    `json:"id"`
	Turns          []Turn    `json:"turns"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// append adds a turn and bumps LastActivityAt. Callers go through the Store,
// which holds the lock.
func (s *Session) append(role Role, content string, metadata map[string]any) {
	s.Turns = append(s.Turns, Turn{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
		Metadata:  metadata,
	})
	s.LastActivityAt = time.Now()
}

// IsExpired reports whether the session has been idle longer than timeout.
func (s *Session) IsExpired(timeout time.Duration) bool {
	return time.Since(s.LastActivityAt) > timeout
}

// ContextWindow returns the most recent maxTurns turns in chronological
// order, or all turns if fewer exist.
func (s *Session) ContextWindow(maxTurns int) []Turn {
	if maxTurns <= 0 || maxTurns >= len(s.Turns) {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-maxTurns:]
}

// NeedsSummary reports whether the turn count has reached the trigger.
func (s *Session) NeedsSummary(trigger int) bool {
	return len(s.Turns) >= trigger
}

// clone returns a deep-enough copy for read-only callers: the turn slice is
// copied so later appends don't show through.
func (s *Session) clone() *Session {
	turns := make([]Turn, len(s.Turns))
	copy(turns, s.Turns)
	return &Session{
		ID:             s.ID,
		Turns:          turns,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
	}
}
