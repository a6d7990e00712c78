package database

import (
	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) ListAccountsExcept(accountId int) ([]User, error) {
	args := m.Called(accountId)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) GetConversation(accountId, contactId int) ([]Message, error) {
	args := m.Called(accountId, contactId)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockChatRepository) MarkConversationSeen(receiverId, senderId int) (int, error) {
	args := m.Called(receiverId, senderId)
	return args.Int(0), args.Error(1)
}
func (m *MockChatRepository) MarkMessageSeen(messageId, receiverId int) error {
	args := m.Called(messageId, receiverId)
	return args.Error(0)
}
func (m *MockChatRepository) CountUnseenBySender(receiverId int) (map[int]int, error) {
	args := m.Called(receiverId)
	if counts, ok := args.Get(0).(map[int]int); ok {
		return counts, args.Error(1)
	}
	return nil, args.Error(1)
}
