package domain

import "errors"

var (
	// ErrInvalidFunction is returned when the requested function is not one of
	// the known worker functions.
	ErrInvalidFunction = errors.New("unknown or unsupported function")

	// ErrInvalidSubFunction is returned when sub_function is not in the
	// per-function whitelist.
	ErrInvalidSubFunction = errors.New("unsupported sub_function for this function")

	// ErrEmptyUserID is returned when user_id is missing from a request.
	ErrEmptyUserID = errors.New("user_id is required")

	// ErrInvalidVectorstoreID is returned when vectorstore_id fails syntactic validation.
	ErrInvalidVectorstoreID = errors.New("vectorstore_id is not a valid identifier")

	// ErrSessionNotFound is returned when a session_id has no known state.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed is returned when a chat turn targets a CLOSED session.
	ErrSessionClosed = errors.New("session is closed")

	// ErrBrokerUnavailable is returned when publishing exhausts its retries.
	ErrBrokerUnavailable = errors.New("task broker unavailable")

	// ErrPublishFailed is returned when a task could not be enqueued.
	ErrPublishFailed = errors.New("failed to publish task to broker")

	// ErrGreetingTimeout is returned when the worker does not produce a
	// greeting chunk before the synchronous session-start call times out.
	ErrGreetingTimeout = errors.New("timed out waiting for session greeting")

	// ErrEmptyFile is returned when an uploaded file has no content.
	ErrEmptyFile = errors.New("uploaded file is empty")

	// ErrVectorstoreNotFound is returned when a referenced vectorstore id does not exist.
	ErrVectorstoreNotFound = errors.New("vectorstore not found")

	// ErrMissingField is returned when a required request field is empty.
	ErrMissingField = errors.New("required field is missing")
)
