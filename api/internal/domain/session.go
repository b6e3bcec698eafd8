package domain

import "time"

// Turn is one exchange in a conversational session's history.
type Turn struct {
	Role    string `json:"role"` // "seller" or "ai"
	Content string `json:"content"`
}

// SessionStatus is the conversation engine's state-machine position.
type SessionStatus string

const (
	SessionNew          SessionStatus = "NEW"
	SessionGreeting     SessionStatus = "GREETING"
	SessionAwaitingTurn SessionStatus = "AWAITING_TURN"
	SessionGenerating   SessionStatus = "GENERATING"
	SessionClosed       SessionStatus = "CLOSED"
)

// SessionState is the Session Store's per-session record. The api module
// only ever reads it (to reject chat turns on a closed session); the
// worker's conversation engine owns every write.
type SessionState struct {
	SessionID    string        `json:"session_id"`
	UserID       string        `json:"user_id"`
	Persona      string        `json:"persona"`
	Scenario     string        `json:"scenario"`
	Status       SessionStatus `json:"status"`
	History      []Turn        `json:"history"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
}

// IsClosed reports whether the session can no longer accept chat turns.
func (s *SessionState) IsClosed() bool {
	return s == nil || s.Status == SessionClosed
}
