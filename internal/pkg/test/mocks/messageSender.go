package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/welltold/storygo/internal/pkg/messages"
)

//MessageSender is a mock
type MessageSender struct {
	mock.Mock
}

//Send is a mocked Send function
func (m *MessageSender) Send(message *messages.StoryMessage, queue string, replyQueue string) error {
	args := m.Mock.Called(message, queue, replyQueue)
	return args.Error(0)
}
