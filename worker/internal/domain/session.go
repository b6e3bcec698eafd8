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

// Persona is the simulated customer's profile, matching the original's
// persona dict fields.
type Persona struct {
	Type        string `json:"type"`
	Gender      string `json:"gender"`
	AgeGroup    string `json:"age_group"`
	Personality string `json:"personality"`
	Tech        string `json:"tech"`
	Goal        string `json:"goal"`
	Usage       string `json:"usage"`
}

// SessionState is the Session Store's per-session record, owned
// end-to-end by the conversation engine.
type SessionState struct {
	SessionID     string        `json:"session_id"`
	UserID        string        `json:"user_id"`
	ThreadID      string        `json:"thread_id,omitempty"`
	Persona       Persona       `json:"persona"`
	Scenario      string        `json:"scenario"`
	Status        SessionStatus `json:"status"`
	History       []Turn        `json:"history"`
	SummaryMemory string        `json:"summary_memory,omitempty"`

	// GeneratingJobID is the job_id currently holding the AWAITING_TURN →
	// GENERATING transition, so a redelivery of that same job can tell
	// itself apart from a genuinely concurrent second turn.
	GeneratingJobID string `json:"generating_job_id,omitempty"`

	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Version      int64     `json:"version"`
}

// IsClosed reports whether the session can no longer accept chat turns.
func (s *SessionState) IsClosed() bool {
	return s == nil || s.Status == SessionClosed
}
