package domain

import "time"

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageSystem MessageType = "system"
)

// TombstoneContent replaces the body of a message deleted for everyone.
// The record itself stays in the log.
const TombstoneContent = "This message was deleted"

// Receipt records one user receiving or reading a message. A user appears
// at most once per receipt set and is never removed.
type Receipt struct {
	UserID string    `bson:"user_id" json:"userId"`
	At     time.Time `bson:"at" json:"at"`
}

// Reaction is one user's emoji on a message; at most one per user,
// toggling overwrites.
type Reaction struct {
	UserID string `bson:"user_id" json:"userId"`
	Emoji  string `bson:"emoji" json:"emoji"`
}

type Message struct {
	ID         string      `bson:"_id,omitempty" json:"id"`
	RoomID     string      `bson:"room_id" json:"roomId"`
	SenderID   string      `bson:"sender_id" json:"senderId"`
	SenderSide Side        `bson:"sender_side" json:"senderSide"`
	Type       MessageType `bson:"msg_type" json:"type"`
	Content    string      `bson:"content" json:"content"`
	Images     []string    `bson:"images,omitempty" json:"images,omitempty"`
	Thumbnails []string    `bson:"thumbnails,omitempty" json:"thumbnails,omitempty"`
	ReplyTo    string      `bson:"reply_to,omitempty" json:"replyTo,omitempty"`

	Reactions   []Reaction `bson:"reactions" json:"reactions"`
	DeliveredTo []Receipt  `bson:"delivered_to" json:"deliveredTo"`
	ReadBy      []Receipt  `bson:"read_by" json:"readBy"`

	DeletedFor         []string `bson:"deleted_for,omitempty" json:"-"`
	DeletedForEveryone bool     `bson:"deleted_for_everyone" json:"deletedForEveryone"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`

	// ReplyToMessage is populated one level deep at read time, never stored.
	ReplyToMessage *Message `bson:"-" json:"replyToMessage,omitempty"`
}

func (m *Message) DeliveredToUser(userID string) bool {
	for _, r := range m.DeliveredTo {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

func (m *Message) ReadByUser(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

func (m *Message) DeletedForUser(userID string) bool {
	for _, id := range m.DeletedFor {
		if id == userID {
			return true
		}
	}
	return false
}

// ReactionBy returns the user's current reaction emoji, if any.
func (m *Message) ReactionBy(userID string) (string, bool) {
	for _, r := range m.Reactions {
		if r.UserID == userID {
			return r.Emoji, true
		}
	}
	return "", false
}

// Preview is the room-list snippet for this message.
func (m *Message) Preview() string {
	if m.DeletedForEveryone {
		return TombstoneContent
	}
	if m.Type == MessageImage && m.Content == "" {
		return "\U0001F4F7 Photo"
	}
	const max = 120
	if len(m.Content) > max {
		return m.Content[:max]
	}
	return m.Content
}
