package broker

import amqp "github.com/rabbitmq/amqp091-go"

// Exchange and queue names, bit-exact with the dispatcher's copy
// (api/internal/broker/topology.go) per the platform's convention of
// each process declaring its own copy of the shared wire topology.
const (
	TasksExchange         = "ai.tasks"
	ResultsExchange       = "ai.results"
	DLQExchange           = "ai.dlq"
	ChatMessagesExchange  = "chat.messages"
	ChatResponsesExchange = "chat.responses"

	QueueAssist      = "q.assist"
	QueueGalaxy      = "q.galaxy"
	QueueCoach       = "q.coach"
	QueueTranslate   = "q.translate"
	QueueSimControl  = "q.sim.control"
	QueueChatMessages = "q.chat.messages"
	QueueDLQ         = "q.dlq"
)

var functionQueues = map[string]string{
	QueueAssist:     "assist.*",
	QueueGalaxy:     "galaxy.*",
	QueueCoach:      "coach.*",
	QueueTranslate:  "translate.*",
	QueueSimControl: "sim.*",
}

// DeclareTopology declares every exchange, queue and binding the platform
// depends on. Idempotent.
func DeclareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(TasksExchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(ResultsExchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(DLQExchange, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(ChatMessagesExchange, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(ChatResponsesExchange, "fanout", true, false, false, false, nil); err != nil {
		return err
	}

	dlqArgs := amqp.Table{"x-dead-letter-exchange": DLQExchange}

	for queue, pattern := range functionQueues {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, dlqArgs); err != nil {
			return err
		}
		if err := ch.QueueBind(queue, pattern, TasksExchange, false, nil); err != nil {
			return err
		}
	}

	if _, err := ch.QueueDeclare(QueueChatMessages, true, false, false, false, dlqArgs); err != nil {
		return err
	}
	if err := ch.QueueBind(QueueChatMessages, "request", ChatMessagesExchange, false, nil); err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(QueueDLQ, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(QueueDLQ, "", DLQExchange, false, nil); err != nil {
		return err
	}

	return nil
}

// QueueForFunction returns the durable task queue name bound to function f,
// or "" if f has no dedicated queue.
func QueueForFunction(f string) string {
	switch f {
	case "assist":
		return QueueAssist
	case "galaxy":
		return QueueGalaxy
	case "coach":
		return QueueCoach
	case "translate":
		return QueueTranslate
	case "sim":
		return QueueSimControl
	default:
		return ""
	}
}
