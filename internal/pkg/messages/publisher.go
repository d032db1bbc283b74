package messages

// Publisher publish events to message broker
type Publisher interface {
	Publish(key string, topic string) error
}
