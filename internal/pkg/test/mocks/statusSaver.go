package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/welltold/storygo/internal/pkg/status"
)

//StatusSaver is a mock
type StatusSaver struct {
	mock.Mock
}

//Save is a mocked Save function
func (m *StatusSaver) Save(userID, id string, st status.Status) error {
	args := m.Mock.Called(userID, id, st)
	return args.Error(0)
}

//SaveError is a mocked SaveError function
func (m *StatusSaver) SaveError(userID, id, errorStr string) error {
	args := m.Mock.Called(userID, id, errorStr)
	return args.Error(0)
}

//SaveF is a mocked SaveF function
func (m *StatusSaver) SaveF(userID, id string, set map[string]interface{}) error {
	args := m.Mock.Called(userID, id, set)
	return args.Error(0)
}
