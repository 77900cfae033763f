package database

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type User struct {
	Id             bson.ObjectID `bson:"_id,omitempty"`
	Username       string        `bson:"username"`
	Email          string        `bson:"email"`
	PasswordHash   string        `bson:"password"`
	ProfilePicture string        `bson:"profile_picture,omitempty"`
	CreatedAt      time.Time     `bson:"created_at"`
	UpdatedAt      time.Time     `bson:"updated_at"`
}

type Chat struct {
	Id              bson.ObjectID   `bson:"_id,omitempty"`
	ChatName        string          `bson:"chat_name,omitempty"`
	IsGroupChat     bool            `bson:"is_group_chat"`
	UserIds         []bson.ObjectID `bson:"users"`
	GroupAdminId    bson.ObjectID   `bson:"group_admin,omitempty"`
	LatestMessageId bson.ObjectID   `bson:"latest_message,omitempty"`
	CreatedAt       time.Time       `bson:"created_at"`
	UpdatedAt       time.Time       `bson:"updated_at"`
}

type Message struct {
	Id        bson.ObjectID `bson:"_id,omitempty"`
	SenderId  bson.ObjectID `bson:"sender"`
	ChatId    bson.ObjectID `bson:"chat"`
	Content   string        `bson:"content"`
	CreatedAt time.Time     `bson:"created_at"`
}

type CreateUserParams struct {
	Username       string
	Email          string
	PasswordHash   string
	ProfilePicture string
}

type CreateChatParams struct {
	ChatName    string
	IsGroupChat bool
	UserIds     []bson.ObjectID
	GroupAdmin  bson.ObjectID
}

type CreateMessageParams struct {
	SenderId bson.ObjectID
	ChatId   bson.ObjectID
	Content  string
}
