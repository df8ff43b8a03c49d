package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"chat-backend/internal/db"
	"chat-backend/internal/models"
)

// UserRepository resolves display names for chat participants.
type UserRepository interface {
	UsernamesByIDs(ctx context.Context, userIDs []string) (map[string]string, error)
}

// UserRepo is the mongo implementation of UserRepository.
type UserRepo struct {
	collection *mongo.Collection
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(database *mongo.Database) *UserRepo {
	return &UserRepo{collection: database.Collection(db.UsersCollection)}
}

// UsernamesByIDs batch-resolves usernames in a single query. Unknown or
// malformed ids are simply absent from the result.
func (r *UserRepo) UsernamesByIDs(ctx context.Context, userIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}

	oids := make([]primitive.ObjectID, 0, len(userIDs))
	for _, id := range userIDs {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return names, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		names[u.ID.Hex()] = u.Username
	}
	return names, nil
}
