package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chat-backend/internal/cache"
	"chat-backend/internal/models"
	"chat-backend/internal/observability"
	"chat-backend/internal/repositories"
)

var ErrInvalidParticipants = errors.New("invalid participant set")

// ChatService orchestrates chat room creation and the cache-aside room
// listing. The cache is only a read source when its completeness marker is
// present; every cache failure degrades to the store, never to the caller.
type ChatService struct {
	chatRepo  repositories.ChatRepository
	userRepo  repositories.UserRepository
	chatCache cache.ChatCache
	deliverer Deliverer
	logger    zerolog.Logger
}

// NewChatService constructs a ChatService.
func NewChatService(chatRepo repositories.ChatRepository, userRepo repositories.UserRepository, chatCache cache.ChatCache, deliverer Deliverer, logger zerolog.Logger) *ChatService {
	return &ChatService{
		chatRepo:  chatRepo,
		userRepo:  userRepo,
		chatCache: chatCache,
		deliverer: deliverer,
		logger:    logger,
	}
}

// CreatePersonalChat finds or creates the 1:1 room for an unordered pair.
// Creating twice for the same pair returns the same room.
func (s *ChatService) CreatePersonalChat(ctx context.Context, userID string, participants []string) (models.ChatRoom, error) {
	if len(participants) != 2 || participants[0] == participants[1] {
		return models.ChatRoom{}, ErrInvalidParticipants
	}
	if participants[0] != userID && participants[1] != userID {
		return models.ChatRoom{}, ErrInvalidParticipants
	}

	other := participants[0]
	if other == userID {
		other = participants[1]
	}

	room, found, err := s.chatRepo.FindPersonalChatBetween(ctx, userID, other)
	if err != nil {
		return models.ChatRoom{}, err
	}
	if !found {
		now := time.Now().UTC()
		room = models.ChatRoom{
			ChatType:     models.ChatTypePersonal,
			Participants: participants,
			PairKey:      models.PersonalPairKey(userID, other),
			CreatedAt:    now,
			LastUpdated:  now,
		}
		chatID, err := s.chatRepo.CreateChat(ctx, room)
		if err != nil {
			return models.ChatRoom{}, err
		}
		if oid, err := primitive.ObjectIDFromHex(chatID); err == nil {
			room.ID = oid
		}
	}

	s.cacheRoom(ctx, userID, room)
	s.broadcastNewRoom(room)
	return room, nil
}

// CreateGroupChat creates a group room with the creator as member and admin.
func (s *ChatService) CreateGroupChat(ctx context.Context, userID, name string, participants, admins []string) (models.ChatRoom, error) {
	members := normalizeParticipants(participants, userID)
	if len(members) < 2 {
		return models.ChatRoom{}, ErrInvalidParticipants
	}
	if !contains(admins, userID) {
		admins = append(admins, userID)
	}

	now := time.Now().UTC()
	room := models.ChatRoom{
		ChatType:     models.ChatTypeGroup,
		Participants: members,
		Name:         name,
		Admins:       admins,
		CreatedAt:    now,
		LastUpdated:  now,
	}
	chatID, err := s.chatRepo.CreateChat(ctx, room)
	if err != nil {
		return models.ChatRoom{}, err
	}
	if oid, err := primitive.ObjectIDFromHex(chatID); err == nil {
		room.ID = oid
	}

	s.cacheRoom(ctx, userID, room)
	s.broadcastNewRoom(room)
	return room, nil
}

// GetChatMembers returns the participant ids of a room.
func (s *ChatService) GetChatMembers(ctx context.Context, chatID string) ([]string, error) {
	room, err := s.chatRepo.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return room.Participants, nil
}

// ListChatRooms pages the viewer's rooms newest-first by last activity. The
// cache serves the page only when marked complete and fully intact; any other
// condition reads the store and backfills.
func (s *ChatService) ListChatRooms(ctx context.Context, userID, cursor string, size int) (models.ChatRoomPage, error) {
	if size <= 0 {
		size = DefaultPageSize
	}
	before := parseChatCursor(cursor)

	complete, err := s.chatCache.IsComplete(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("chat cache completeness check failed")
		observability.IncCacheOutcome("chat_rooms", "error_fallback")
		return s.listChatRoomsFromStore(ctx, userID, before, size)
	}
	if complete {
		page, err := s.chatCache.ReadRoomsPage(ctx, userID, before, size)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("chat cache read failed")
			observability.IncCacheOutcome("chat_rooms", "error_fallback")
		case !page.Valid:
			observability.IncCacheOutcome("chat_rooms", "invalid")
		case len(page.Entries) > 0:
			observability.IncCacheOutcome("chat_rooms", "hit")
			return s.roomsPageFromCache(ctx, userID, page)
		default:
			// A first-page backfill only writes one page of rooms, so a later
			// cursor can land past everything the index holds. Empty is not
			// proof of end-of-data; let the store decide.
			observability.IncCacheOutcome("chat_rooms", "empty")
		}
	} else {
		observability.IncCacheOutcome("chat_rooms", "incomplete")
	}

	return s.listChatRoomsFromStore(ctx, userID, before, size)
}

func (s *ChatService) roomsPageFromCache(ctx context.Context, userID string, page cache.CachedRoomPage) (models.ChatRoomPage, error) {
	counterparts := make([]string, 0, len(page.Entries))
	for _, entry := range page.Entries {
		if entry.Type == models.ChatTypePersonal && len(entry.Participants) == 2 && contains(entry.Participants, userID) {
			counterparts = append(counterparts, counterpartIn(entry.Participants, userID))
		}
	}
	usernames, err := s.userRepo.UsernamesByIDs(ctx, counterparts)
	if err != nil {
		return models.ChatRoomPage{}, err
	}

	result := models.ChatRoomPage{Items: make([]models.ChatRoomView, 0, len(page.Entries))}
	for _, entry := range page.Entries {
		result.Items = append(result.Items, models.ChatRoomView{
			ChatID:      entry.ChatID,
			ChatName:    resolveDisplayName(entry.Type, entry.Participants, userID, entry.Name, usernames),
			LastUpdated: entry.LastUpdated,
		})
	}
	if page.NextCursor != nil {
		result.NextCursor = formatChatCursor(*page.NextCursor)
	}
	return result, nil
}

func (s *ChatService) listChatRoomsFromStore(ctx context.Context, userID string, before *time.Time, size int) (models.ChatRoomPage, error) {
	rooms, err := s.chatRepo.ListChatRoomsPage(ctx, userID, before, size+1)
	if err != nil {
		return models.ChatRoomPage{}, err
	}

	pageRooms := rooms
	if len(pageRooms) > size {
		pageRooms = pageRooms[:size]
	}

	counterparts := make([]string, 0, len(pageRooms))
	for _, room := range pageRooms {
		if counterpart := room.CounterpartOf(userID); counterpart != "" {
			counterparts = append(counterparts, counterpart)
		}
	}
	usernames, err := s.userRepo.UsernamesByIDs(ctx, counterparts)
	if err != nil {
		return models.ChatRoomPage{}, err
	}

	result := models.ChatRoomPage{Items: make([]models.ChatRoomView, 0, len(pageRooms))}
	for _, room := range pageRooms {
		result.Items = append(result.Items, models.ChatRoomView{
			ChatID:      room.ID.Hex(),
			ChatName:    resolveDisplayName(room.ChatType, room.Participants, userID, room.Name, usernames),
			LastUpdated: room.LastUpdated,
		})
	}

	backfilled := true
	for _, room := range pageRooms {
		if err := s.chatCache.CacheChatRoom(ctx, userID, room); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("chat cache backfill failed")
			backfilled = false
			break
		}
	}
	// Mark complete only after a clean, unfiltered first page: a partial or
	// filtered backfill must not make the cache a trusted read source.
	if backfilled && before == nil {
		if err := s.chatCache.MarkComplete(ctx, userID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("chat cache completeness mark failed")
		}
	}

	if len(rooms) > size {
		result.NextCursor = formatChatCursor(rooms[size-1].LastUpdated)
	}
	return result, nil
}

func (s *ChatService) cacheRoom(ctx context.Context, userID string, room models.ChatRoom) {
	if err := s.chatCache.CacheChatRoom(ctx, userID, room); err != nil {
		s.logger.Warn().Err(err).Str("chat_id", room.ID.Hex()).Msg("chat cache write failed")
	}
}

func (s *ChatService) broadcastNewRoom(room models.ChatRoom) {
	event := models.Event{
		Type:   models.EventNewChatRoom,
		ChatID: room.ID.Hex(),
		ChatRoom: &models.ChatRoomView{
			ChatID:      room.ID.Hex(),
			ChatName:    room.Name,
			LastUpdated: room.LastUpdated,
		},
	}
	if err := s.deliverer.BroadcastToParticipants(room.Participants, event, nil); err != nil {
		s.logger.Warn().Err(err).Str("chat_id", room.ID.Hex()).Msg("new chat room broadcast failed")
	}
}

// resolveDisplayName picks a room's name for one viewer: group rooms keep the
// stored name, personal rooms show the counterpart's username, falling back to
// the stored name when the profile lookup misses.
func resolveDisplayName(chatType models.ChatType, participants []string, viewerID, fallbackName string, usernames map[string]string) string {
	if chatType != models.ChatTypePersonal {
		return fallbackName
	}
	if len(participants) != 2 || !contains(participants, viewerID) {
		return fallbackName
	}
	if name := usernames[counterpartIn(participants, viewerID)]; name != "" {
		return name
	}
	return fallbackName
}

func normalizeParticipants(participants []string, creatorID string) []string {
	raw := append([]string{}, participants...)
	if !contains(raw, creatorID) {
		raw = append(raw, creatorID)
	}
	seen := make(map[string]struct{}, len(raw))
	members := make([]string, 0, len(raw))
	for _, id := range raw {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	return members
}

func counterpartIn(pair []string, viewerID string) string {
	if pair[0] == viewerID {
		return pair[1]
	}
	return pair[0]
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
