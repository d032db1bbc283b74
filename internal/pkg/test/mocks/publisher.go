package mocks

import "github.com/stretchr/testify/mock"

//Publisher is a mock
type Publisher struct {
	mock.Mock
}

//Publish is a mocked Publish function
func (m *Publisher) Publish(key string, topic string) error {
	args := m.Mock.Called(key, topic)
	return args.Error(0)

}
