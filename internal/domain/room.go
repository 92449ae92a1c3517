package domain

import "time"

type RoomStatus string

const (
	RoomOpen    RoomStatus = "open"    // created, no message sent yet
	RoomOngoing RoomStatus = "ongoing" // at least one message sent
	RoomClosed  RoomStatus = "closed"  // either party ended it
	RoomBlocked RoomStatus = "blocked" // shelter moderation action
)

// Side identifies which half of a room a user occupies. A user id alone is
// not enough: the same account could in principle appear as owner in one
// room and shelter staff in another.
type Side string

const (
	SideOwner   Side = "owner"
	SideShelter Side = "shelter"
)

func (s Side) Other() Side {
	if s == SideOwner {
		return SideShelter
	}
	return SideOwner
}

func ValidSide(s string) bool {
	return Side(s) == SideOwner || Side(s) == SideShelter
}

// WallpaperDefault is the sentinel stored when no custom wallpaper is set.
// It is never resolved server-side.
const WallpaperDefault = "default"

type UnreadCount struct {
	Owner   int `bson:"owner" json:"owner"`
	Shelter int `bson:"shelter" json:"shelter"`
}

func (u UnreadCount) For(side Side) int {
	if side == SideOwner {
		return u.Owner
	}
	return u.Shelter
}

// LastMessage is a denormalized preview for room-list rendering. It is
// overwritten on every send and carries no history.
type LastMessage struct {
	Content   string    `bson:"content" json:"content"`
	SenderID  string    `bson:"sender_id" json:"senderId"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// TypingState is a single last-writer-wins slot, not a queue. The server
// never expires it; clearing is the client's concern.
type TypingState struct {
	UserID       string    `bson:"user_id" json:"userId"`
	IsTyping     bool      `bson:"is_typing" json:"isTyping"`
	LastTypingAt time.Time `bson:"last_typing_at" json:"lastTypingAt"`
}

// Room is a persistent chat channel between exactly one owner and one
// shelter, scoped to one pet and one adoption application. The participant
// pair is fixed for the room's lifetime.
type Room struct {
	ID            string       `bson:"_id,omitempty" json:"id"`
	OwnerID       string       `bson:"owner_id" json:"ownerId"`
	ShelterID     string       `bson:"shelter_id" json:"shelterId"`
	PetID         string       `bson:"pet_id" json:"petId"`
	ApplicationID string       `bson:"application_id" json:"applicationId"`
	Status        RoomStatus   `bson:"status" json:"status"`
	Unread        UnreadCount  `bson:"unread_count" json:"unreadCount"`
	LastMessage   *LastMessage `bson:"last_message,omitempty" json:"lastMessage,omitempty"`
	Wallpaper     string       `bson:"wallpaper" json:"wallpaper"`
	Typing        *TypingState `bson:"participant_typing,omitempty" json:"participantTyping,omitempty"`
	CreatedAt     time.Time    `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time    `bson:"updated_at" json:"updatedAt"`
}

// SideOf returns which side of the room the user occupies, and whether the
// user is a participant at all.
func (r *Room) SideOf(userID string) (Side, bool) {
	switch userID {
	case r.OwnerID:
		return SideOwner, true
	case r.ShelterID:
		return SideShelter, true
	}
	return "", false
}

// Counterpart returns the other participant's user id.
func (r *Room) Counterpart(userID string) string {
	if userID == r.OwnerID {
		return r.ShelterID
	}
	return r.OwnerID
}

// SendsAllowed reports whether new messages may be appended. Closed and
// blocked are terminal for sending but not for reading history.
func (r *Room) SendsAllowed() bool {
	return r.Status != RoomClosed && r.Status != RoomBlocked
}

// RoomView is a room annotated for list rendering: the requester's own
// unread counter and the counterpart's profile snapshot.
type RoomView struct {
	Room        *Room    `json:"room"`
	UnreadCount int      `json:"unreadCount"`
	Counterpart *Profile `json:"counterpart,omitempty"`
}

// Profile is the slice of an account the chat layer needs for display.
// Profile storage itself is an external collaborator.
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}
