package messages

// Sender sends a messages to message broker
type Sender interface {
	Send(message *StoryMessage, queue string, replyQueue string) error
}

// InformSender sends an inform message to message broker
type InformSender interface {
	SendInform(message *InformMessage, queue string) error
}
