package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chat-backend/internal/db"
	"chat-backend/internal/models"
)

var (
	ErrMessageNotFound  = errors.New("message not found")
	ErrInvalidMessageID = errors.New("invalid message id")
)

// MessageRepository abstracts message persistence.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.Message) (string, error)
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	UpdateStatus(ctx context.Context, messageID string, status models.MessageStatus) (bool, error)
	ListMessagesPage(ctx context.Context, chatID string, before *time.Time, limit int) ([]models.Message, error)
}

// MessageRepo is the mongo implementation of MessageRepository.
type MessageRepo struct {
	collection *mongo.Collection
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(database *mongo.Database) *MessageRepo {
	return &MessageRepo{collection: database.Collection(db.MessagesCollection)}
}

// CreateMessage inserts a message document and returns its id.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.Message) (string, error) {
	res, err := r.collection.InsertOne(ctx, msg)
	if err != nil {
		return "", err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.New("unexpected inserted id type")
	}
	return oid.Hex(), nil
}

// GetMessage fetches a message by id.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	oid, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return models.Message{}, ErrInvalidMessageID
	}

	var msg models.Message
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// UpdateStatus sets the delivery status and reports whether a document changed.
func (r *MessageRepo) UpdateStatus(ctx context.Context, messageID string, status models.MessageStatus) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return false, ErrInvalidMessageID
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"message_status": status}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// ListMessagesPage returns a chat's messages newest-first, strictly older than
// before when set. Callers pass limit = size+1 to probe for a further page.
func (r *MessageRepo) ListMessagesPage(ctx context.Context, chatID string, before *time.Time, limit int) ([]models.Message, error) {
	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return nil, ErrInvalidChatID
	}

	filter := bson.M{"chat_id": oid}
	if before != nil {
		filter["timestamp"] = bson.M{"$lt": *before}
	}

	opts := mongoFindOptions(bson.D{{Key: "timestamp", Value: -1}}, limit)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []models.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func mongoFindOptions(sort bson.D, limit int) *options.FindOptions {
	return options.Find().SetSort(sort).SetLimit(int64(limit))
}
