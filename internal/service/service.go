package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pawhaven/chat-service/internal/domain"
)

// Store is the durable room/message/notification surface the chat service
// runs against. Implemented by repository.Store; tests use an in-memory
// fake.
type Store interface {
	EnsureRoom(ctx context.Context, ownerID, shelterID, petID, applicationID string) (*domain.Room, error)
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	ListRoomsForUser(ctx context.Context, userID string) ([]*domain.Room, error)
	SetRoomStatus(ctx context.Context, roomID string, status domain.RoomStatus) error
	SetWallpaper(ctx context.Context, roomID, wallpaper string) error
	SetTyping(ctx context.Context, roomID string, t domain.TypingState) error
	ResetUnread(ctx context.Context, roomID string, side domain.Side) error

	AppendMessage(ctx context.Context, m *domain.Message) error
	AppendSystemMessage(ctx context.Context, m *domain.Message) error
	GetMessage(ctx context.Context, messageID string) (*domain.Message, error)
	ListMessagesForUser(ctx context.Context, roomID, userID string, page, limit int64) ([]*domain.Message, error)
	FindUndelivered(ctx context.Context, roomID, userID string) ([]*domain.Message, error)
	FindUnread(ctx context.Context, roomID, userID string) ([]*domain.Message, error)
	MarkDelivered(ctx context.Context, messageIDs []string, userID string, at time.Time) error
	MarkRead(ctx context.Context, messageIDs []string, userID string, at time.Time) error
	SoftDeleteForUser(ctx context.Context, messageID, userID string) error
	Tombstone(ctx context.Context, messageID string) error
	SetReaction(ctx context.Context, messageID, userID, emoji string) ([]domain.Reaction, error)

	InsertNotification(ctx context.Context, n *domain.Notification) error
}

// Broadcaster delivers events to connection groups. Implemented by the
// hub; injected so no handler ever reaches for process-global state.
type Broadcaster interface {
	ToUser(userID, event string, payload any)
	ToRoom(roomID, event string, payload any)
	UserInRoom(userID, roomID string) bool
}

// Uploader is the external object-storage collaborator. A failed upload
// aborts the whole send.
type Uploader interface {
	UploadImage(ctx context.Context, userID, filename, contentType string, data []byte) (imageURL, thumbURL string, err error)
	UploadWallpaper(ctx context.Context, roomID, filename, contentType string, data []byte) (string, error)
}

// ProfileLookup resolves display profiles from the user service.
type ProfileLookup interface {
	Lookup(ctx context.Context, userID string) (*domain.Profile, error)
}

// Publisher mirrors events to the external fan-out adapter; best-effort.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

// PresenceMirror reflects presence/typing into the cache for REST-only
// readers; best-effort.
type PresenceMirror interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
	SetTyping(ctx context.Context, roomID, userID string, isTyping bool) error
}

// MessageNotifier decides whether a send also becomes a persisted
// notification.
type MessageNotifier interface {
	NotifyNewMessage(ctx context.Context, room *domain.Room, m *domain.Message)
}

// ChatService coordinates the room/message stores, the receipt engine,
// the broadcaster and the notification fan-out.
type ChatService struct {
	store    Store
	hub      Broadcaster
	uploader Uploader
	profiles ProfileLookup
	presence PresenceMirror
	notifier MessageNotifier
	pub      Publisher
	log      *zap.SugaredLogger
}

func NewChatService(store Store, hub Broadcaster, uploader Uploader, profiles ProfileLookup, presence PresenceMirror, notifier MessageNotifier, pub Publisher, log *zap.SugaredLogger) *ChatService {
	return &ChatService{
		store:    store,
		hub:      hub,
		uploader: uploader,
		profiles: profiles,
		presence: presence,
		notifier: notifier,
		pub:      pub,
		log:      log,
	}
}

// publish mirrors an event to the external adapter; failures only log.
func (s *ChatService) publish(ctx context.Context, key string, payload any) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, key, payload); err != nil {
		s.log.Debugw("event mirror publish failed", "key", key, "err", err)
	}
}
