package database

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (r *MongoChatRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	now := time.Now().UTC()
	user := User{
		Username:       params.Username,
		Email:          params.Email,
		PasswordHash:   params.PasswordHash,
		ProfilePicture: params.ProfilePicture,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	result, err := r.users().InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return User{}, ErrDuplicateUsername
		}
		return User{}, err
	}

	user.Id = result.InsertedID.(bson.ObjectID)
	return user, nil
}

func (r *MongoChatRepository) GetUserById(ctx context.Context, id bson.ObjectID) (User, error) {
	var user User
	err := r.users().FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return User{}, ErrNotFound
		}
		return User{}, err
	}

	return user, nil
}

func (r *MongoChatRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var user User
	err := r.users().FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return User{}, ErrNotFound
		}
		return User{}, err
	}

	return user, nil
}

func (r *MongoChatRepository) GetUsersByIds(ctx context.Context, ids []bson.ObjectID) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := r.users().Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}

	return users, nil
}

func (r *MongoChatRepository) ListUsers(ctx context.Context) ([]User, error) {
	opts := options.Find().SetSort(bson.M{"username": 1})
	cursor, err := r.users().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}

	return users, nil
}

// SearchUsers matches the query as a case-insensitive substring of either
// username or email, excluding the given user.
func (r *MongoChatRepository) SearchUsers(ctx context.Context, query string, exclude bson.ObjectID) ([]User, error) {
	pattern := regexp.QuoteMeta(query)
	filter := bson.M{
		"_id": bson.M{"$ne": exclude},
		"$or": bson.A{
			bson.M{"username": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"email": bson.M{"$regex": pattern, "$options": "i"}},
		},
	}

	cursor, err := r.users().Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}

	return users, nil
}
