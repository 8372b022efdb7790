package database

import (
	"github.com/stretchr/testify/mock"
)

type MockCrmRepository struct {
	mock.Mock
}

func (m *MockCrmRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockCrmRepository) IsConversationBanned(conversationId string) (bool, error) {
	args := m.Called(conversationId)
	return args.Bool(0), args.Error(1)
}
func (m *MockCrmRepository) SetConversationBanned(conversationId int, banned bool) error {
	args := m.Called(conversationId, banned)
	return args.Error(0)
}
func (m *MockCrmRepository) GetEmployeeById(id int) (Employee, error) {
	args := m.Called(id)
	return args.Get(0).(Employee), args.Error(1)
}
func (m *MockCrmRepository) GetEmployeeByEmail(email string) (Employee, error) {
	args := m.Called(email)
	return args.Get(0).(Employee), args.Error(1)
}
func (m *MockCrmRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockCrmRepository) GetMessages(conversationId, limit int) ([]Message, error) {
	args := m.Called(conversationId, limit)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockCrmRepository) CreateNotification(params CreateNotificationParams) (Notification, error) {
	args := m.Called(params)
	return args.Get(0).(Notification), args.Error(1)
}
func (m *MockCrmRepository) GetConversationParticipants(conversationId int) ([]Participant, error) {
	args := m.Called(conversationId)
	return args.Get(0).([]Participant), args.Error(1)
}
