package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawhaven/chat-service/internal/domain"
	"github.com/pawhaven/chat-service/internal/metrics"
)

// NotificationStore is the slice of the store the notifier needs.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n *domain.Notification) error
}

// RoomPresence answers whether a user currently views a room.
type RoomPresence interface {
	UserInRoom(userID, roomID string) bool
}

// Notifier decides, per send, whether the recipient also gets a persisted
// notification: suppressed only when one of their connections currently
// holds the room group. The check is advisory (a join racing the check
// yields a harmless extra notification); the stronger requirement is that
// an absent recipient is never silently skipped.
type Notifier struct {
	store    NotificationStore
	hub      RoomPresence
	push     Broadcaster
	profiles ProfileLookup
	log      *zap.SugaredLogger
}

func NewNotifier(store NotificationStore, hub RoomPresence, push Broadcaster, profiles ProfileLookup, log *zap.SugaredLogger) *Notifier {
	return &Notifier{store: store, hub: hub, push: push, profiles: profiles, log: log}
}

func (n *Notifier) NotifyNewMessage(ctx context.Context, room *domain.Room, m *domain.Message) {
	recipient := room.Counterpart(m.SenderID)
	if n.hub.UserInRoom(recipient, room.ID) {
		return
	}

	title := "New message"
	if n.profiles != nil {
		if p, err := n.profiles.Lookup(ctx, m.SenderID); err == nil && p.Name != "" {
			title = "New message from " + p.Name
		}
	}
	now := time.Now().UTC()
	rec := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    recipient,
		Type:      domain.NotificationNewMessage,
		Title:     title,
		Body:      m.Preview(),
		RoomID:    room.ID,
		MessageID: m.ID,
		CreatedAt: now,
	}
	// persistence failure never rolls back the message, and the push
	// still goes out so the alert is not silently dropped
	if err := n.store.InsertNotification(ctx, rec); err != nil {
		n.log.Warnw("notification persist failed", "user", recipient, "message", m.ID, "err", err)
	} else {
		metrics.NotificationsPersisted.Inc()
	}
	n.push.ToUser(recipient, domain.EventNotificationNew, domain.NotificationPayload{
		Notification: rec,
		Timestamp:    now,
	})
}
