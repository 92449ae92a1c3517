package domain

import "time"

type NotificationType string

const NotificationNewMessage NotificationType = "chat_message"

// Notification is the persisted "new message" alert for a user who had no
// live connection viewing the room at send time.
type Notification struct {
	ID        string           `bson:"_id,omitempty" json:"id"`
	UserID    string           `bson:"user_id" json:"userId"`
	Type      NotificationType `bson:"type" json:"type"`
	Title     string           `bson:"title" json:"title"`
	Body      string           `bson:"body" json:"body"`
	RoomID    string           `bson:"room_id" json:"roomId"`
	MessageID string           `bson:"message_id" json:"messageId"`
	Read      bool             `bson:"read" json:"read"`
	CreatedAt time.Time        `bson:"created_at" json:"createdAt"`
}
