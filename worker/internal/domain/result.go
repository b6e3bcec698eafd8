package domain

import "time"

// ResultEvent names the kind of result carried by a Result envelope.
type ResultEvent string

const (
	EventSucceeded  ResultEvent = "succeeded"
	EventFailed     ResultEvent = "failed"
	EventMessage    ResultEvent = "message"
	EventGreeting   ResultEvent = "greeting"
	EventMessageEnd ResultEvent = "message_end"
	EventError      ResultEvent = "error"
	EventEnd        ResultEvent = "end"
	EventBusy       ResultEvent = "busy"
)

// Result is the envelope published to the results exchange.
type Result struct {
	JobID      string         `json:"job_id"`
	SessionID  string         `json:"session_id,omitempty"`
	RoutingKey string         `json:"routing_key"`
	Event      ResultEvent    `json:"event"`
	Chunk      string         `json:"chunk,omitempty"`
	Error      string         `json:"error,omitempty"`
	Final      bool           `json:"final"`
	Ts         time.Time      `json:"ts"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// NewResult stamps Ts and RoutingKey="task.result" for a task-scoped result.
func NewResult(jobID string, event ResultEvent, chunk string) Result {
	return Result{JobID: jobID, RoutingKey: "task.result", Event: event, Chunk: chunk, Ts: time.Now()}
}
