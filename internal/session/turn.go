// Package session manages in-memory conversation sessions: the ordered turn
// log, expiry, and the prompt formatting (including summarization) handed to
// the text-generation backend. All state is process-lifetime only.
package session

import (
	"fmt"
	"time"
)

// Role is the speaker of a turn. Only the three chat roles are valid;
// ParseRole rejects anything else at construction time.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSystem, RoleUser, RoleAssistant:
		return Role(s), nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

// Turn is one conversational unit. Turns are immutable once appended.
type Turn struct {
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
