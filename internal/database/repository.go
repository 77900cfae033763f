package database

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	// ErrNotFound is returned when an id or filter does not resolve to a document.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("username already taken")
)

type ChatRepository interface {
	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	GetUserById(ctx context.Context, id bson.ObjectID) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUsersByIds(ctx context.Context, ids []bson.ObjectID) ([]User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SearchUsers(ctx context.Context, query string, exclude bson.ObjectID) ([]User, error)
	CreateChat(ctx context.Context, params CreateChatParams) (Chat, error)
	GetChatById(ctx context.Context, id bson.ObjectID) (Chat, error)
	FindDirectChat(ctx context.Context, userA, userB bson.ObjectID) (Chat, error)
	ListChatsForUser(ctx context.Context, userId bson.ObjectID) ([]Chat, error)
	UpdateChatName(ctx context.Context, chatId bson.ObjectID, name string) (Chat, error)
	AddChatMember(ctx context.Context, chatId, userId bson.ObjectID) (Chat, error)
	RemoveChatMember(ctx context.Context, chatId, userId bson.ObjectID) (Chat, error)
	CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error)
	SetLatestMessage(ctx context.Context, chatId, messageId bson.ObjectID) error
	GetMessagesByIds(ctx context.Context, ids []bson.ObjectID) ([]Message, error)
	ListMessagesForChat(ctx context.Context, chatId bson.ObjectID) ([]Message, error)
}
