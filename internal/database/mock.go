package database

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockChatRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetUserById(ctx context.Context, id bson.ObjectID) (User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetUsersByIds(ctx context.Context, ids []bson.ObjectID) ([]User, error) {
	args := m.Called(ctx, ids)
	if users, ok := args.Get(0).([]User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockChatRepository) ListUsers(ctx context.Context) ([]User, error) {
	args := m.Called(ctx)
	if users, ok := args.Get(0).([]User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockChatRepository) SearchUsers(ctx context.Context, query string, exclude bson.ObjectID) ([]User, error) {
	args := m.Called(ctx, query, exclude)
	if users, ok := args.Get(0).([]User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockChatRepository) CreateChat(ctx context.Context, params CreateChatParams) (Chat, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockChatRepository) GetChatById(ctx context.Context, id bson.ObjectID) (Chat, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockChatRepository) FindDirectChat(ctx context.Context, userA, userB bson.ObjectID) (Chat, error) {
	args := m.Called(ctx, userA, userB)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockChatRepository) ListChatsForUser(ctx context.Context, userId bson.ObjectID) ([]Chat, error) {
	args := m.Called(ctx, userId)
	if chats, ok := args.Get(0).([]Chat); ok {
		return chats, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockChatRepository) UpdateChatName(ctx context.Context, chatId bson.ObjectID, name string) (Chat, error) {
	args := m.Called(ctx, chatId, name)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockChatRepository) AddChatMember(ctx context.Context, chatId, userId bson.ObjectID) (Chat, error) {
	args := m.Called(ctx, chatId, userId)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockChatRepository) RemoveChatMember(ctx context.Context, chatId, userId bson.ObjectID) (Chat, error) {
	args := m.Called(ctx, chatId, userId)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockChatRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) SetLatestMessage(ctx context.Context, chatId, messageId bson.ObjectID) error {
	args := m.Called(ctx, chatId, messageId)
	return args.Error(0)
}
func (m *MockChatRepository) GetMessagesByIds(ctx context.Context, ids []bson.ObjectID) ([]Message, error) {
	args := m.Called(ctx, ids)
	if msgs, ok := args.Get(0).([]Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockChatRepository) ListMessagesForChat(ctx context.Context, chatId bson.ObjectID) ([]Message, error) {
	args := m.Called(ctx, chatId)
	if msgs, ok := args.Get(0).([]Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}
