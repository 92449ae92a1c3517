package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Socket event names. Client events are dispatched by the gateway; server
// events are pushed to user and room groups.
const (
	// client -> server
	EventJoin     = "chat:join"
	EventLeave    = "chat:leave"
	EventTyping   = "chat:typing"
	EventMarkRead = "chat:mark:read"

	// server -> client
	EventMessageNew       = "chat:message:new"
	EventMessageDelivered = "chat:message:delivered"
	EventMessageRead      = "chat:message:read"
	EventMessageDeleted   = "chat:message:deleted"
	EventMessageReaction  = "chat:message:reaction"
	EventUserTyping       = "chat:user:typing"
	EventUserOnline       = "user:online"
	EventUserOffline      = "user:offline"
	EventRoomUpdate       = "chat:room:update"
	EventRoomBlocked      = "chat:room:blocked"
	EventRoomClosed       = "chat:room:closed"
	EventWallpaperChanged = "chat:wallpaper:changed"
	EventNotificationNew  = "notification:new"
	EventError            = "chat:error"
)

// Envelope is the wire frame for every socket event in both directions.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client event payloads. Each inbound event name maps to exactly one of
// these; anything else is rejected at the boundary before dispatch.

type JoinPayload struct {
	RoomID string `json:"roomId"`
}

type LeavePayload struct {
	RoomID string `json:"roomId"`
}

type TypingPayload struct {
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

type MarkReadPayload struct {
	RoomID string `json:"roomId"`
}

// ClientEvent is the decoded, validated form of an inbound frame. Payload
// is one of the *Payload structs above, selected by Event.
type ClientEvent struct {
	Event   string
	Payload any
}

func DecodeClientEvent(data []byte) (*ClientEvent, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed event frame: %w", err)
	}
	var payload any
	switch env.Event {
	case EventJoin:
		payload = &JoinPayload{}
	case EventLeave:
		payload = &LeavePayload{}
	case EventTyping:
		payload = &TypingPayload{}
	case EventMarkRead:
		payload = &MarkReadPayload{}
	default:
		return nil, fmt.Errorf("unknown event %q", env.Event)
	}
	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return nil, fmt.Errorf("invalid payload for %s: %w", env.Event, err)
	}
	roomID := ""
	switch p := payload.(type) {
	case *JoinPayload:
		roomID = p.RoomID
	case *LeavePayload:
		roomID = p.RoomID
	case *TypingPayload:
		roomID = p.RoomID
	case *MarkReadPayload:
		roomID = p.RoomID
	}
	if roomID == "" {
		return nil, fmt.Errorf("%s: roomId required", env.Event)
	}
	return &ClientEvent{Event: env.Event, Payload: payload}, nil
}

// Server event payloads.

type MessageNewPayload struct {
	RoomID  string   `json:"roomId"`
	Message *Message `json:"message"`
}

type DeliveredPayload struct {
	MessageID string    `json:"messageId"`
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

type ReadPayload struct {
	MessageID string    `json:"messageId"`
	RoomID    string    `json:"roomId"`
	ReadBy    string    `json:"readBy"`
	Timestamp time.Time `json:"timestamp"`
}

type MessageDeletedPayload struct {
	MessageID          string `json:"messageId"`
	RoomID             string `json:"roomId"`
	DeletedForEveryone bool   `json:"deletedForEveryone"`
}

type ReactionPayload struct {
	MessageID string     `json:"messageId"`
	RoomID    string     `json:"roomId"`
	Reactions []Reaction `json:"reactions"`
}

type UserTypingPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

type PresencePayload struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
}

type RoomEventPayload struct {
	RoomID string `json:"roomId"`
	Status string `json:"status,omitempty"`
	By     string `json:"by,omitempty"`
}

type WallpaperPayload struct {
	RoomID    string `json:"roomId"`
	Wallpaper string `json:"wallpaper"`
}

type NotificationPayload struct {
	Notification *Notification `json:"notification"`
	Timestamp    time.Time     `json:"timestamp"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
