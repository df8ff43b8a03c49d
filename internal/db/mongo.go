package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chat-backend/internal/config"
)

// Collection names shared by the repositories.
const (
	ChatsCollection    = "chats"
	MessagesCollection = "messages"
	UsersCollection    = "users"
)

// ConnectMongo opens the document store connection and ensures indexes.
func ConnectMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	database := client.Database(cfg.Database)
	if err := ensureIndexes(ctx, database); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return database, nil
}

func ensureIndexes(ctx context.Context, database *mongo.Database) error {
	// Personal chats are unique per unordered participant pair; pair_key is
	// only present on personal documents, hence the partial filter.
	chatIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "pair_key", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "pair_key", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
		{
			Keys: bson.D{{Key: "participants", Value: 1}, {Key: "last_updated", Value: -1}},
		},
	}
	if _, err := database.Collection(ChatsCollection).Indexes().CreateMany(ctx, chatIndexes); err != nil {
		return err
	}

	messageIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "timestamp", Value: -1}}},
	}
	if _, err := database.Collection(MessagesCollection).Indexes().CreateMany(ctx, messageIndexes); err != nil {
		return err
	}
	return nil
}
