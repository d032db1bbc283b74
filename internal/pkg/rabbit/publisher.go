package rabbit

import (
	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
)

// Publisher publish events to rabbit mq broker
type Publisher struct {
	ChannelProvider *ChannelProvider
}

// NewPublisher initializes rabbit publisher
func NewPublisher(provider *ChannelProvider) *Publisher {
	return &Publisher{ChannelProvider: provider}
}

// Publish publish the event to fanout exchange
func (sender *Publisher) Publish(key string, topic string) error {
	cmdapp.Log.Infof("Publishing event %s(%s)", topic, key)

	err := sender.ChannelProvider.RunOnChannelWithRetry(func(ch *amqp.Channel) error {
		err := DeclareExchange(ch, topic)
		if err != nil {
			return err
		}
		return ch.Publish(
			topic, // exchange
			"",
			false, // mandatory
			false,
			amqp.Publishing{
				ContentType: "text/plain",
				Body:        []byte(key),
			})
	})
	if err != nil {
		return errors.Wrap(err, "Can't publish event")
	}
	return nil
}
