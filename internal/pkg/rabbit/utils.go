package rabbit

import "github.com/streadway/amqp"

// Declare declares durable queue
func Declare(ch *amqp.Channel, qName string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		qName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}

// DeclareExchange declares fanout exchange for events
func DeclareExchange(ch *amqp.Channel, name string) error {
	return ch.ExchangeDeclare(
		name,
		"fanout",
		false, // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
}

// NewChannel starts consuming queue messages
func NewChannel(ch *amqp.Channel, qName string) (<-chan amqp.Delivery, error) {
	return ch.Consume(
		qName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
}

// NewEventChannel binds a fresh exclusive queue to the exchange and consumes it
func NewEventChannel(ch *amqp.Channel, exchange string) (<-chan amqp.Delivery, error) {
	err := DeclareExchange(ch, exchange)
	if err != nil {
		return nil, err
	}
	q, err := ch.QueueDeclare(
		"",    // name - server generated
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, err
	}
	err = ch.QueueBind(q.Name, "", exchange, false, nil)
	if err != nil {
		return nil, err
	}
	return ch.Consume(
		q.Name,
		"",   // consumer
		true, // auto-ack
		false,
		false,
		false,
		nil,
	)
}
