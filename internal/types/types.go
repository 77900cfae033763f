package types

import (
	"time"
)

type User struct {
	Id             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email,omitempty"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt,omitempty"`
}

type Chat struct {
	Id            string    `json:"id"`
	ChatName      string    `json:"chatName,omitempty"`
	IsGroupChat   bool      `json:"isGroupChat"`
	Users         []User    `json:"users"`
	GroupAdmin    *User     `json:"groupAdmin,omitempty"`
	LatestMessage *Message  `json:"latestMessage,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

type Message struct {
	Id        string    `json:"id"`
	Sender    User      `json:"sender"`
	Chat      *Chat     `json:"chat,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
