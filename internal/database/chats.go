package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (r *MongoChatRepository) CreateChat(ctx context.Context, params CreateChatParams) (Chat, error) {
	now := time.Now().UTC()
	chat := Chat{
		ChatName:     params.ChatName,
		IsGroupChat:  params.IsGroupChat,
		UserIds:      params.UserIds,
		GroupAdminId: params.GroupAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	result, err := r.chats().InsertOne(ctx, chat)
	if err != nil {
		return Chat{}, err
	}

	chat.Id = result.InsertedID.(bson.ObjectID)
	return chat, nil
}

func (r *MongoChatRepository) GetChatById(ctx context.Context, id bson.ObjectID) (Chat, error) {
	var chat Chat
	err := r.chats().FindOne(ctx, bson.M{"_id": id}).Decode(&chat)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return Chat{}, ErrNotFound
		}
		return Chat{}, err
	}

	return chat, nil
}

// FindDirectChat looks up the non-group chat whose member set is exactly
// {userA, userB}. Membership match is order-independent.
func (r *MongoChatRepository) FindDirectChat(ctx context.Context, userA, userB bson.ObjectID) (Chat, error) {
	filter := bson.M{
		"is_group_chat": false,
		"users":         bson.M{"$all": bson.A{userA, userB}, "$size": 2},
	}

	var chat Chat
	err := r.chats().FindOne(ctx, filter).Decode(&chat)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return Chat{}, ErrNotFound
		}
		return Chat{}, err
	}

	return chat, nil
}

func (r *MongoChatRepository) ListChatsForUser(ctx context.Context, userId bson.ObjectID) ([]Chat, error) {
	opts := options.Find().SetSort(bson.M{"updated_at": -1})
	cursor, err := r.chats().Find(ctx, bson.M{"users": userId}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var chats []Chat
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, err
	}

	return chats, nil
}

func (r *MongoChatRepository) UpdateChatName(ctx context.Context, chatId bson.ObjectID, name string) (Chat, error) {
	update := bson.M{"$set": bson.M{"chat_name": name, "updated_at": time.Now().UTC()}}
	return r.findChatAndUpdate(ctx, chatId, update)
}

func (r *MongoChatRepository) AddChatMember(ctx context.Context, chatId, userId bson.ObjectID) (Chat, error) {
	update := bson.M{
		"$addToSet": bson.M{"users": userId},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	return r.findChatAndUpdate(ctx, chatId, update)
}

func (r *MongoChatRepository) RemoveChatMember(ctx context.Context, chatId, userId bson.ObjectID) (Chat, error) {
	update := bson.M{
		"$pull": bson.M{"users": userId},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	return r.findChatAndUpdate(ctx, chatId, update)
}

func (r *MongoChatRepository) findChatAndUpdate(ctx context.Context, chatId bson.ObjectID, update bson.M) (Chat, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var chat Chat
	err := r.chats().FindOneAndUpdate(ctx, bson.M{"_id": chatId}, update, opts).Decode(&chat)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return Chat{}, ErrNotFound
		}
		return Chat{}, err
	}

	return chat, nil
}
