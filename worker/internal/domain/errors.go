package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session_id has no known state.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed is returned when a chat turn targets a CLOSED session.
	ErrSessionClosed = errors.New("session is closed")

	// ErrVersionConflict is returned when a CAS update targets a stale version.
	ErrVersionConflict = errors.New("session version conflict")

	// ErrSessionBusy is returned when a sim.chat task targets a session
	// another in-flight task is already generating a reply for.
	ErrSessionBusy = errors.New("session is busy")

	// ErrVectorstoreNotFound is returned when a referenced vectorstore id does not exist.
	ErrVectorstoreNotFound = errors.New("vectorstore not found")

	// ErrUnknownFunction is returned when a task's function has no registered handler.
	ErrUnknownFunction = errors.New("no handler registered for function")
)
