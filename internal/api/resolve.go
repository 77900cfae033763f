package api

import (
	"errors"
	"net/http"

	"github.com/chatfastnow/go-chatserver/internal/database"
	"github.com/chatfastnow/go-chatserver/internal/types"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// resolveChats expands chat documents into display-safe projections: member
// and admin references become user projections (password excluded) and the
// latest-message pointer becomes the message itself with its sender resolved.
// References are fetched in two batched queries regardless of chat count.
func (s *ChatApp) resolveChats(r *http.Request, dbChats []database.Chat) ([]types.Chat, error) {
	userIdSet := make(map[bson.ObjectID]struct{})
	var msgIds []bson.ObjectID
	for _, c := range dbChats {
		for _, id := range c.UserIds {
			userIdSet[id] = struct{}{}
		}
		if !c.LatestMessageId.IsZero() {
			msgIds = append(msgIds, c.LatestMessageId)
		}
	}

	msgs, err := s.db.GetMessagesByIds(r.Context(), msgIds)
	if err != nil {
		return nil, err
	}

	msgById := make(map[bson.ObjectID]database.Message, len(msgs))
	for _, m := range msgs {
		msgById[m.Id] = m
		// the sender of a chat's latest message may no longer be a member
		userIdSet[m.SenderId] = struct{}{}
	}

	userIds := make([]bson.ObjectID, 0, len(userIdSet))
	for id := range userIdSet {
		userIds = append(userIds, id)
	}

	dbUsers, err := s.db.GetUsersByIds(r.Context(), userIds)
	if err != nil {
		return nil, err
	}

	userById := make(map[bson.ObjectID]types.User, len(dbUsers))
	for _, u := range dbUsers {
		userById[u.Id] = toUser(u)
	}

	chats := make([]types.Chat, 0, len(dbChats))
	for _, c := range dbChats {
		chat := types.Chat{
			Id:          c.Id.Hex(),
			ChatName:    c.ChatName,
			IsGroupChat: c.IsGroupChat,
			Users:       make([]types.User, 0, len(c.UserIds)),
			CreatedAt:   c.CreatedAt,
			UpdatedAt:   c.UpdatedAt,
		}

		for _, id := range c.UserIds {
			if u, ok := userById[id]; ok {
				chat.Users = append(chat.Users, u)
			}
		}

		if !c.GroupAdminId.IsZero() {
			if admin, ok := userById[c.GroupAdminId]; ok {
				chat.GroupAdmin = &admin
			}
		}

		if m, ok := msgById[c.LatestMessageId]; ok {
			chat.LatestMessage = &types.Message{
				Id:        m.Id.Hex(),
				Sender:    userById[m.SenderId],
				Content:   m.Content,
				CreatedAt: m.CreatedAt,
			}
		}

		chats = append(chats, chat)
	}

	return chats, nil
}

func (s *ChatApp) resolveChat(r *http.Request, dbChat database.Chat) (types.Chat, error) {
	chats, err := s.resolveChats(r, []database.Chat{dbChat})
	if err != nil {
		return types.Chat{}, err
	}
	if len(chats) != 1 {
		return types.Chat{}, errors.New("chat did not resolve")
	}

	return chats[0], nil
}
