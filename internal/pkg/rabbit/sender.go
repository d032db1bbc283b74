package rabbit

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
	"github.com/welltold/storygo/internal/pkg/messages"
)

// Sender performs messages sending using rabbit mq broker
type Sender struct {
	ChannelProvider *ChannelProvider
}

// NewSender initializes rabbit sender
func NewSender(provider *ChannelProvider) *Sender {
	return &Sender{ChannelProvider: provider}
}

// Send sends the message to the queue
func (sender *Sender) Send(message *messages.StoryMessage, queue string, replyQueue string) error {
	cmdapp.Log.Infof("Sending message %s(%s)", queue, message.ID)
	return sender.send(message, queue, replyQueue)
}

// SendInform sends the inform message to the queue
func (sender *Sender) SendInform(message *messages.InformMessage, queue string) error {
	cmdapp.Log.Infof("Sending inform message %s(%s, %s)", queue, message.ID, message.Type)
	return sender.send(message, queue, "")
}

func (sender *Sender) send(message interface{}, queue string, replyQueue string) error {
	msgBytes, err := getBytes(message)
	if err != nil {
		return errors.Wrap(err, "Can't marshal message")
	}

	err = sender.ChannelProvider.RunOnChannelWithRetry(func(ch *amqp.Channel) error {
		return ch.Publish(
			"", // exchange
			sender.ChannelProvider.QueueName(queue),
			false, // mandatory
			false,
			amqp.Publishing{
				DeliveryMode: amqp.Persistent,
				ContentType:  "application/json",
				Body:         msgBytes,
				ReplyTo:      replyQueue,
			})
	})
	if err != nil {
		defer sender.ChannelProvider.Close() // lets init sender again
		return errors.Wrap(err, "Can't send message")
	}
	return nil
}

func getBytes(message interface{}) ([]byte, error) {
	switch mt := message.(type) {
	case []byte:
		return mt, nil
	case string:
		return []byte(mt), nil
	}
	return json.Marshal(message)
}
