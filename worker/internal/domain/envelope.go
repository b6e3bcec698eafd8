package domain

// TaskEnvelope wraps a decoded Task with the Ack/Nack closures bound to
// its AMQP delivery tag, named per the platform's rename of the sandbox
// worker's JobMessage to the task-broker domain.
type TaskEnvelope struct {
	Task *Task
	Ack  func() error
	Nack func(requeue bool) error
}
