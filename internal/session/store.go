package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zyfalo/sereno/internal/logger"
)

// ErrSessionNotFound is returned when mutating or formatting a session id
// that does not exist. Lookup-only paths degrade to empty results instead.
var ErrSessionNotFound = errors.New("session not found")

// systemPrompt is the fixed policy text inserted as the first turn of every
// session: empathetic check-in, the coping techniques the assistant may
// teach, the no-diagnosis/no-prescription limits, and the crisis-deferral
// instruction.
const systemPrompt = `Eres un asistente de psicoeducación empático y profesional.

DIRECTRICES:
1. Siempre comienza con un breve check-in empático
2. Detecta señales emocionales en lo que la persona dice
3. Ofrece orientaciones prácticas y breves (respiración 4-7-8, grounding 5-4-3-2-1, higiene del sueño, metas SMART)
4. NO diagnostiques ni prescribas
5. Mantén respuestas claras, respetuosas y motivantes
6. Si detectas riesgo de crisis (autolesión, suicidio), activa protocolo de derivación

TÉCNICAS QUE PUEDES ENSEÑAR:
- Respiración 4-7-8: Inhala 4 seg, retén 7 seg, exhala 8 seg
- Grounding 5-4-3-2-1: 5 cosas que ves, 4 que tocas, 3 que oyes, 2 que hueles, 1 que saboreas
- Higiene del sueño: Rutinas, horarios, ambiente
- Metas SMART: Específicas, Medibles, Alcanzables, Relevantes, Temporales
- Regulación emocional básica

LÍMITES:
- No eres terapeuta ni psicólogo
- No puedes diagnosticar condiciones
- No puedes prescribir tratamientos
- Ante crisis, deriva inmediatamente a profesionales`

// HistoryEntry is one formatted turn returned by History.
type HistoryEntry struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Store is the process-wide in-memory session collection. A single coarse
// mutex guards the map and every session in it; expected load is one local
// user with a handful of concurrent sessions.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create constructs a new session seeded with the system prompt and returns
// its id.
func (st *Store) Create() string {
	st.mu.Lock()
	defer st.mu.Unlock()

	id := uuid.NewString()
	now := time.Now()
	s := &Session{
		ID:             id,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	s.append(RoleSystem, systemPrompt, nil)
	st.sessions[id] = s

	logger.L.Info("session created", "session_id", id)
	return id
}

// Get returns a read-only copy of the session, if it exists.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	return s.clone(), true
}

// Append adds a turn to an existing session.
func (st *Store) Append(id string, role Role, content string, metadata map[string]any) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.append(role, content, metadata)
	return nil
}

// History returns the session's turns formatted with RFC 3339 timestamps.
// A missing session yields an empty slice, not an error. When maxTurns > 0
// only the trailing window of that size is returned.
func (st *Store) History(id string, maxTurns int) []HistoryEntry {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return []HistoryEntry{}
	}

	turns := s.Turns
	if maxTurns > 0 {
		turns = s.ContextWindow(maxTurns)
	}

	entries := make([]HistoryEntry, 0, len(turns))
	for _, t := range turns {
		entries = append(entries, HistoryEntry{
			Role:      t.Role,
			Content:   t.Content,
			Timestamp: t.CreatedAt.Format(time.RFC3339),
		})
	}
	return entries
}

// SweepExpired removes every session idle longer than timeout and returns
// the removed count. Called opportunistically after each turn; there is no
// background timer.
func (st *Store) SweepExpired(timeout time.Duration) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		if s.IsExpired(timeout) {
			delete(st.sessions, id)
			removed++
			logger.L.Info("expired session removed", "session_id", id)
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Clear drops all sessions. Used at shutdown.
func (st *Store) Clear() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions = make(map[string]*Session)
}

// touch is a test hook: it rewrites a session's LastActivityAt so expiry
// paths can be exercised without sleeping.
func (st *Store) touch(id string, at time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		s.LastActivityAt = at
	}
}
