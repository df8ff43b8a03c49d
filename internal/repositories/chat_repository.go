package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"chat-backend/internal/db"
	"chat-backend/internal/models"
)

var (
	ErrChatNotFound  = errors.New("chat not found")
	ErrInvalidChatID = errors.New("invalid chat id")
)

// ChatRepository abstracts chat room persistence.
type ChatRepository interface {
	GetChat(ctx context.Context, chatID string) (models.ChatRoom, error)
	CreateChat(ctx context.Context, room models.ChatRoom) (string, error)
	FindPersonalChatBetween(ctx context.Context, userA, userB string) (models.ChatRoom, bool, error)
	ListChatRoomsPage(ctx context.Context, userID string, before *time.Time, limit int) ([]models.ChatRoom, error)
	TouchLastUpdated(ctx context.Context, chatID string, ts time.Time) error
}

// ChatRepo is the mongo implementation of ChatRepository.
type ChatRepo struct {
	collection *mongo.Collection
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(database *mongo.Database) *ChatRepo {
	return &ChatRepo{collection: database.Collection(db.ChatsCollection)}
}

// GetChat fetches a room by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID string) (models.ChatRoom, error) {
	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return models.ChatRoom{}, ErrInvalidChatID
	}

	var room models.ChatRoom
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ChatRoom{}, ErrChatNotFound
	}
	return room, err
}

// CreateChat inserts a new room and returns its id. A duplicate-key conflict
// on the personal pair index resolves to the already existing room.
func (r *ChatRepo) CreateChat(ctx context.Context, room models.ChatRoom) (string, error) {
	res, err := r.collection.InsertOne(ctx, room)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) && room.PairKey != "" {
			var existing models.ChatRoom
			if findErr := r.collection.FindOne(ctx, bson.M{"pair_key": room.PairKey}).Decode(&existing); findErr == nil {
				return existing.ID.Hex(), nil
			}
		}
		return "", err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.New("unexpected inserted id type")
	}
	return oid.Hex(), nil
}

// FindPersonalChatBetween looks up the personal room for an unordered pair.
func (r *ChatRepo) FindPersonalChatBetween(ctx context.Context, userA, userB string) (models.ChatRoom, bool, error) {
	var room models.ChatRoom
	err := r.collection.FindOne(ctx, bson.M{"pair_key": models.PersonalPairKey(userA, userB)}).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ChatRoom{}, false, nil
	}
	if err != nil {
		return models.ChatRoom{}, false, err
	}
	return room, true, nil
}

// ListChatRoomsPage returns the user's rooms newest-first by last_updated,
// strictly older than before when set. Callers pass limit = size+1 to probe
// for a further page.
func (r *ChatRepo) ListChatRoomsPage(ctx context.Context, userID string, before *time.Time, limit int) ([]models.ChatRoom, error) {
	filter := bson.M{"participants": bson.M{"$in": []string{userID}}}
	if before != nil {
		filter["last_updated"] = bson.M{"$lt": *before}
	}

	opts := mongoFindOptions(bson.D{{Key: "last_updated", Value: -1}}, limit)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rooms []models.ChatRoom
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// TouchLastUpdated bumps a room's activity timestamp.
func (r *ChatRepo) TouchLastUpdated(ctx context.Context, chatID string, ts time.Time) error {
	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return ErrInvalidChatID
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"last_updated": ts}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrChatNotFound
	}
	return nil
}
