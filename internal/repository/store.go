package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pawhaven/chat-service/internal/domain"
)

// Store bundles the three repositories and owns the one cross-collection
// transaction in the system: message append + room counter update.
type Store struct {
	client        *mongo.Client
	Rooms         *RoomRepo
	Messages      *MessageRepo
	Notifications *NotificationRepo
}

func NewStore(client *mongo.Client, db *mongo.Database, roomsColl, messagesColl, notificationsColl string) *Store {
	return &Store{
		client:        client,
		Rooms:         NewRoomRepo(db.Collection(roomsColl)),
		Messages:      NewMessageRepo(db.Collection(messagesColl)),
		Notifications: NewNotificationRepo(db.Collection(notificationsColl)),
	}
}

func (s *Store) EnsureRoom(ctx context.Context, ownerID, shelterID, petID, applicationID string) (*domain.Room, error) {
	return s.Rooms.EnsureRoom(ctx, ownerID, shelterID, petID, applicationID)
}

func (s *Store) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	return s.Rooms.Get(ctx, roomID)
}

func (s *Store) ListRoomsForUser(ctx context.Context, userID string) ([]*domain.Room, error) {
	return s.Rooms.ListForUser(ctx, userID)
}

func (s *Store) SetRoomStatus(ctx context.Context, roomID string, status domain.RoomStatus) error {
	return s.Rooms.SetStatus(ctx, roomID, status)
}

func (s *Store) SetWallpaper(ctx context.Context, roomID, wallpaper string) error {
	return s.Rooms.SetWallpaper(ctx, roomID, wallpaper)
}

func (s *Store) SetTyping(ctx context.Context, roomID string, t domain.TypingState) error {
	return s.Rooms.SetTyping(ctx, roomID, t)
}

func (s *Store) ResetUnread(ctx context.Context, roomID string, side domain.Side) error {
	return s.Rooms.ResetUnread(ctx, roomID, side)
}

// AppendMessage inserts the message and updates the owning room's status,
// unread counter and last-message preview as one atomic unit. A message
// must never be visible without its room reflecting it, and vice versa.
func (s *Store) AppendMessage(ctx context.Context, m *domain.Message) error {
	preview := domain.LastMessage{
		Content:   m.Preview(),
		SenderID:  m.SenderID,
		Timestamp: m.CreatedAt,
	}
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		if err := s.Messages.insert(sc, m); err != nil {
			return nil, err
		}
		if err := s.Rooms.applyIncomingMessage(sc, m.RoomID, m.SenderSide, preview); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// AppendSystemMessage records a moderation entry in the timeline without
// the unread-counter path: system messages never count as unseen.
func (s *Store) AppendSystemMessage(ctx context.Context, m *domain.Message) error {
	preview := domain.LastMessage{
		Content:   m.Preview(),
		SenderID:  m.SenderID,
		Timestamp: m.CreatedAt,
	}
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		if err := s.Messages.insert(sc, m); err != nil {
			return nil, err
		}
		if err := s.Rooms.applySystemMessage(sc, m.RoomID, preview); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (s *Store) GetMessage(ctx context.Context, messageID string) (*domain.Message, error) {
	return s.Messages.Get(ctx, messageID)
}

func (s *Store) ListMessagesForUser(ctx context.Context, roomID, userID string, page, limit int64) ([]*domain.Message, error) {
	return s.Messages.ListForUser(ctx, roomID, userID, page, limit)
}

func (s *Store) FindUndelivered(ctx context.Context, roomID, userID string) ([]*domain.Message, error) {
	return s.Messages.FindUndelivered(ctx, roomID, userID)
}

func (s *Store) FindUnread(ctx context.Context, roomID, userID string) ([]*domain.Message, error) {
	return s.Messages.FindUnread(ctx, roomID, userID)
}

func (s *Store) MarkDelivered(ctx context.Context, messageIDs []string, userID string, at time.Time) error {
	return s.Messages.MarkDelivered(ctx, messageIDs, userID, at)
}

func (s *Store) MarkRead(ctx context.Context, messageIDs []string, userID string, at time.Time) error {
	return s.Messages.MarkRead(ctx, messageIDs, userID, at)
}

func (s *Store) SoftDeleteForUser(ctx context.Context, messageID, userID string) error {
	return s.Messages.SoftDeleteForUser(ctx, messageID, userID)
}

func (s *Store) Tombstone(ctx context.Context, messageID string) error {
	return s.Messages.Tombstone(ctx, messageID)
}

func (s *Store) SetReaction(ctx context.Context, messageID, userID, emoji string) ([]domain.Reaction, error) {
	return s.Messages.SetReaction(ctx, messageID, userID, emoji)
}

func (s *Store) InsertNotification(ctx context.Context, n *domain.Notification) error {
	return s.Notifications.Insert(ctx, n)
}
