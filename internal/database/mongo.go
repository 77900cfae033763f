package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	usersCollection    = "users"
	chatsCollection    = "chats"
	messagesCollection = "messages"

	connectTimeout = 10 * time.Second
)

type MongoChatRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoChatRepository(ctx context.Context, uri, dbName string) (*MongoChatRepository, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(connectTimeout)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &MongoChatRepository{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

func (r *MongoChatRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

func (r *MongoChatRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoChatRepository) users() *mongo.Collection {
	return r.db.Collection(usersCollection)
}

func (r *MongoChatRepository) chats() *mongo.Collection {
	return r.db.Collection(chatsCollection)
}

func (r *MongoChatRepository) messages() *mongo.Collection {
	return r.db.Collection(messagesCollection)
}

// EnsureIndexes creates the indexes the repository queries rely on. The
// unique username index backs ErrDuplicateUsername on CreateUser.
func (r *MongoChatRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users index: %w", err)
	}

	_, err = r.chats().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "users", Value: 1}, {Key: "updated_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("chats index: %w", err)
	}

	_, err = r.messages().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chat", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("messages index: %w", err)
	}

	return nil
}
