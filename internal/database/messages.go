package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (r *MongoChatRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	msg := Message{
		SenderId:  params.SenderId,
		ChatId:    params.ChatId,
		Content:   params.Content,
		CreatedAt: time.Now().UTC(),
	}

	result, err := r.messages().InsertOne(ctx, msg)
	if err != nil {
		return Message{}, err
	}

	msg.Id = result.InsertedID.(bson.ObjectID)
	return msg, nil
}

// SetLatestMessage updates the chat's latest-message pointer and bumps
// updated_at so the chat sorts first in ListChatsForUser. Last write wins on
// concurrent sends to the same chat.
func (r *MongoChatRepository) SetLatestMessage(ctx context.Context, chatId, messageId bson.ObjectID) error {
	update := bson.M{"$set": bson.M{
		"latest_message": messageId,
		"updated_at":     time.Now().UTC(),
	}}

	result, err := r.chats().UpdateOne(ctx, bson.M{"_id": chatId}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *MongoChatRepository) GetMessagesByIds(ctx context.Context, ids []bson.ObjectID) ([]Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := r.messages().Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *MongoChatRepository) ListMessagesForChat(ctx context.Context, chatId bson.ObjectID) ([]Message, error) {
	opts := options.Find().SetSort(bson.M{"created_at": 1})
	cursor, err := r.messages().Find(ctx, bson.M{"chat": chatId}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}
