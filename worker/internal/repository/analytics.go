package repository

import (
	"context"
	"time"
)

// SessionLog is one simulation session's analytics record, grounded on
// original_source/worker/AI_Simulation_Training/log_manager.py's
// session_logs table.
type SessionLog struct {
	SessionID   string
	UserID      string
	PersonaType string
	Scenario    string
	StartTime   time.Time
}

// SessionOutcome closes out a SessionLog with its final score/feedback,
// mirroring log_manager.py's end-of-session update.
type SessionOutcome struct {
	EndTime          time.Time
	MessageCount     int
	PerformanceScore int
	Feedback         string
	SessionDuration  int // seconds
}

// Analytics persists the simulation-training usage/performance history
// log_manager.py tracked in SQLite, re-grounded onto Postgres.
type Analytics interface {
	// EnsureUser upserts a user row, incrementing total_sessions.
	EnsureUser(ctx context.Context, userID, username string) error

	// StartSession records a new session_logs row.
	StartSession(ctx context.Context, log SessionLog) error

	// RecordMessage appends one message_logs row and bumps the session's
	// message_count / the user's total_messages.
	RecordMessage(ctx context.Context, sessionID, userID, role, content string) error

	// EndSession closes out a session with its scored outcome and updates
	// the user's best_score when improved.
	EndSession(ctx context.Context, sessionID, userID string, outcome SessionOutcome) error
}
