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
	EventLag        ResultEvent = "lag"
	EventEnd        ResultEvent = "end"
)

// Result is the envelope published to the results exchange and forwarded
// by the Result Router to the Stream Hub.
type Result struct {
	JobID      string          `json:"job_id"`
	SessionID  string          `json:"session_id,omitempty"`
	RoutingKey string          `json:"routing_key"`
	Event      ResultEvent     `json:"event"`
	Chunk      string          `json:"chunk,omitempty"`
	Error      string          `json:"error,omitempty"`
	Final      bool            `json:"final"`
	Seq        uint64          `json:"seq"`
	Ts         time.Time       `json:"ts"`
	Extensions map[string]any  `json:"extensions,omitempty"`
}
