package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pawhaven/chat-service/internal/apperr"
	"github.com/pawhaven/chat-service/internal/domain"
	"github.com/pawhaven/chat-service/internal/metrics"
)

// RoomForParticipant loads a room and verifies the requester is one of its
// two participants.
func (s *ChatService) RoomForParticipant(ctx context.Context, roomID, userID string) (*domain.Room, domain.Side, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, "", err
	}
	side, ok := room.SideOf(userID)
	if !ok {
		return nil, "", apperr.ErrAccessDenied
	}
	return room, side, nil
}

// EnsureRoom finds or creates the room for an adoption application. The
// requester must be one of the two participants it names.
func (s *ChatService) EnsureRoom(ctx context.Context, requesterID, ownerID, shelterID, petID, applicationID string) (*domain.Room, error) {
	if ownerID == "" || shelterID == "" || petID == "" {
		return nil, fmt.Errorf("%w: ownerId, shelterId and petId required", apperr.ErrBadRequest)
	}
	if requesterID != ownerID && requesterID != shelterID {
		return nil, apperr.ErrAccessDenied
	}
	return s.store.EnsureRoom(ctx, ownerID, shelterID, petID, applicationID)
}

// ListRooms returns the user's rooms, most recently active first, each
// annotated with the side-specific unread count and the counterpart's
// profile. A failed profile lookup degrades to an unannotated entry.
func (s *ChatService) ListRooms(ctx context.Context, userID string) ([]*domain.RoomView, error) {
	rooms, err := s.store.ListRoomsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]*domain.RoomView, 0, len(rooms))
	for _, room := range rooms {
		side, ok := room.SideOf(userID)
		if !ok {
			continue
		}
		view := &domain.RoomView{Room: room, UnreadCount: room.Unread.For(side)}
		if s.profiles != nil {
			p, err := s.profiles.Lookup(ctx, room.Counterpart(userID))
			if err != nil {
				s.log.Warnw("counterpart profile lookup failed", "room", room.ID, "err", err)
			} else {
				view.Counterpart = p
			}
		}
		views = append(views, view)
	}
	return views, nil
}

type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type SendMessageInput struct {
	RoomID   string
	SenderID string
	Content  string
	ReplyTo  string
	Image    *ImageUpload
}

// SendMessage appends a message to a room. The image upload happens first
// so a storage failure leaves no message row; the append itself is atomic
// with the room's counter and preview update.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*domain.Message, error) {
	room, side, err := s.RoomForParticipant(ctx, in.RoomID, in.SenderID)
	if err != nil {
		return nil, err
	}
	if !room.SendsAllowed() {
		return nil, apperr.ErrRoomClosed
	}
	if in.Content == "" && in.Image == nil {
		return nil, fmt.Errorf("%w: content or image required", apperr.ErrBadRequest)
	}

	var replied *domain.Message
	if in.ReplyTo != "" {
		replied, err = s.store.GetMessage(ctx, in.ReplyTo)
		if err != nil || replied.RoomID != room.ID {
			return nil, apperr.ErrInvalidReply
		}
	}

	msgType := domain.MessageText
	var images, thumbs []string
	if in.Image != nil {
		msgType = domain.MessageImage
		imageURL, thumbURL, err := s.uploader.UploadImage(ctx, in.SenderID, in.Image.Filename, in.Image.ContentType, in.Image.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrUploadFailed, err)
		}
		images = []string{imageURL}
		if thumbURL != "" {
			thumbs = []string{thumbURL}
		}
	}

	m := &domain.Message{
		ID:          uuid.NewString(),
		RoomID:      room.ID,
		SenderID:    in.SenderID,
		SenderSide:  side,
		Type:        msgType,
		Content:     in.Content,
		Images:      images,
		Thumbnails:  thumbs,
		ReplyTo:     in.ReplyTo,
		Reactions:   []domain.Reaction{},
		DeliveredTo: []domain.Receipt{},
		ReadBy:      []domain.Receipt{},
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.AppendMessage(ctx, m); err != nil {
		return nil, err
	}
	metrics.MessagesSent.Inc()
	m.ReplyToMessage = replied

	counterpart := room.Counterpart(in.SenderID)
	s.hub.ToUser(counterpart, domain.EventMessageNew, domain.MessageNewPayload{RoomID: room.ID, Message: m})
	if s.notifier != nil {
		s.notifier.NotifyNewMessage(ctx, room, m)
	}
	s.publish(ctx, "message.new", domain.MessageNewPayload{RoomID: room.ID, Message: m})
	return m, nil
}

// History returns one page of the room's messages for the user. Fetching
// history is the primary read-receipt trigger for clients without a live
// room subscription, so the receipt engine runs before the page is read.
func (s *ChatService) History(ctx context.Context, roomID, userID string, page, limit int64) ([]*domain.Message, error) {
	room, side, err := s.RoomForParticipant(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.settleReceipts(ctx, room, userID, side); err != nil {
		s.log.Warnw("receipt settlement on history fetch failed", "room", roomID, "err", err)
	}
	return s.store.ListMessagesForUser(ctx, roomID, userID, page, limit)
}

// MarkRoomRead is the explicit receipt trigger (socket chat:mark:read and
// its REST mirror).
func (s *ChatService) MarkRoomRead(ctx context.Context, roomID, userID string) error {
	room, side, err := s.RoomForParticipant(ctx, roomID, userID)
	if err != nil {
		return err
	}
	return s.settleReceipts(ctx, room, userID, side)
}

// DeleteMessage soft-deletes for the requester, or tombstones for everyone
// when the requester is the original sender.
func (s *ChatService) DeleteMessage(ctx context.Context, messageID, requesterID string, forEveryone bool) error {
	m, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	room, _, err := s.RoomForParticipant(ctx, m.RoomID, requesterID)
	if err != nil {
		return err
	}
	if !forEveryone {
		return s.store.SoftDeleteForUser(ctx, messageID, requesterID)
	}
	if m.SenderID != requesterID {
		return apperr.ErrForbidden
	}
	if err := s.store.Tombstone(ctx, messageID); err != nil {
		return err
	}
	payload := domain.MessageDeletedPayload{MessageID: messageID, RoomID: room.ID, DeletedForEveryone: true}
	s.hub.ToRoom(room.ID, domain.EventMessageDeleted, payload)
	s.hub.ToUser(room.Counterpart(requesterID), domain.EventMessageDeleted, payload)
	s.publish(ctx, "message.deleted", payload)
	return nil
}

// ToggleReaction applies one user's emoji: same emoji toggles off, a
// different one replaces, none adds. Tombstoned messages reject reactions.
func (s *ChatService) ToggleReaction(ctx context.Context, messageID, userID, emoji string) ([]domain.Reaction, error) {
	if emoji == "" {
		return nil, fmt.Errorf("%w: emoji required", apperr.ErrBadRequest)
	}
	m, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	room, _, err := s.RoomForParticipant(ctx, m.RoomID, userID)
	if err != nil {
		return nil, err
	}
	if m.DeletedForEveryone {
		return nil, apperr.ErrForbidden
	}
	if cur, ok := m.ReactionBy(userID); ok && cur == emoji {
		emoji = "" // toggle off
	}
	reactions, err := s.store.SetReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return nil, err
	}
	payload := domain.ReactionPayload{MessageID: messageID, RoomID: room.ID, Reactions: reactions}
	s.hub.ToRoom(room.ID, domain.EventMessageReaction, payload)
	s.hub.ToUser(room.Counterpart(userID), domain.EventMessageReaction, payload)
	return reactions, nil
}

// BlockRoom and CloseRoom are shelter-only terminal transitions. History
// stays readable; sends are gated from the moment the status lands.

func (s *ChatService) BlockRoom(ctx context.Context, roomID, requesterID string) error {
	return s.terminate(ctx, roomID, requesterID, domain.RoomBlocked, domain.EventRoomBlocked,
		"The shelter blocked this conversation.")
}

func (s *ChatService) CloseRoom(ctx context.Context, roomID, requesterID string) error {
	return s.terminate(ctx, roomID, requesterID, domain.RoomClosed, domain.EventRoomClosed,
		"The shelter closed this conversation.")
}

func (s *ChatService) terminate(ctx context.Context, roomID, requesterID string, status domain.RoomStatus, event, note string) error {
	room, side, err := s.RoomForParticipant(ctx, roomID, requesterID)
	if err != nil {
		return err
	}
	if side != domain.SideShelter {
		return apperr.ErrForbidden
	}
	if !room.SendsAllowed() {
		return apperr.ErrRoomClosed
	}
	if err := s.store.SetRoomStatus(ctx, roomID, status); err != nil {
		return err
	}
	sys := &domain.Message{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		SenderID:    requesterID,
		SenderSide:  side,
		Type:        domain.MessageSystem,
		Content:     note,
		Reactions:   []domain.Reaction{},
		DeliveredTo: []domain.Receipt{},
		ReadBy:      []domain.Receipt{},
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.AppendSystemMessage(ctx, sys); err != nil {
		s.log.Warnw("system message append failed", "room", roomID, "err", err)
	}
	payload := domain.RoomEventPayload{RoomID: roomID, Status: string(status), By: requesterID}
	s.hub.ToRoom(roomID, event, payload)
	s.hub.ToUser(room.Counterpart(requesterID), event, payload)
	s.publish(ctx, "room."+string(status), payload)
	return nil
}

// SetWallpaper stores a display-only wallpaper; either party may set it.
func (s *ChatService) SetWallpaper(ctx context.Context, roomID, userID, wallpaper string) error {
	room, _, err := s.RoomForParticipant(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if wallpaper == "" {
		wallpaper = domain.WallpaperDefault
	}
	if err := s.store.SetWallpaper(ctx, roomID, wallpaper); err != nil {
		return err
	}
	s.hub.ToRoom(room.ID, domain.EventWallpaperChanged, domain.WallpaperPayload{RoomID: room.ID, Wallpaper: wallpaper})
	return nil
}

// UploadWallpaper pushes the image to object storage, then applies it.
func (s *ChatService) UploadWallpaper(ctx context.Context, roomID, userID string, img ImageUpload) (string, error) {
	if _, _, err := s.RoomForParticipant(ctx, roomID, userID); err != nil {
		return "", err
	}
	url, err := s.uploader.UploadWallpaper(ctx, roomID, img.Filename, img.ContentType, img.Data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrUploadFailed, err)
	}
	if err := s.SetWallpaper(ctx, roomID, userID, url); err != nil {
		return "", err
	}
	return url, nil
}

// SetTyping overwrites the room's typing slot and relays the indicator to
// the counterpart only. The server never expires typing state.
func (s *ChatService) SetTyping(ctx context.Context, roomID, userID string, isTyping bool) error {
	room, _, err := s.RoomForParticipant(ctx, roomID, userID)
	if err != nil {
		return err
	}
	t := domain.TypingState{UserID: userID, IsTyping: isTyping, LastTypingAt: time.Now().UTC()}
	if err := s.store.SetTyping(ctx, roomID, t); err != nil {
		return err
	}
	if s.presence != nil {
		if err := s.presence.SetTyping(ctx, roomID, userID, isTyping); err != nil {
			s.log.Debugw("typing mirror failed", "room", roomID, "err", err)
		}
	}
	s.hub.ToUser(room.Counterpart(userID), domain.EventUserTyping,
		domain.UserTypingPayload{RoomID: roomID, UserID: userID, IsTyping: isTyping})
	return nil
}

// OnRoomJoined runs after a connection enters the room group: the receipt
// engine settles outstanding delivered/read state and the counterpart
// learns the user is viewing the room.
func (s *ChatService) OnRoomJoined(ctx context.Context, room *domain.Room, userID string, side domain.Side) {
	if err := s.settleReceipts(ctx, room, userID, side); err != nil {
		s.log.Warnw("receipt settlement on join failed", "room", room.ID, "err", err)
	}
	s.hub.ToUser(room.Counterpart(userID), domain.EventUserOnline,
		domain.PresencePayload{UserID: userID, RoomID: room.ID})
}

// OnRoomLeft notifies the counterpart the user stopped viewing the room.
func (s *ChatService) OnRoomLeft(ctx context.Context, room *domain.Room, userID string) {
	s.hub.ToUser(room.Counterpart(userID), domain.EventUserOffline,
		domain.PresencePayload{UserID: userID, RoomID: room.ID})
}

// OnDisconnected fans user:offline out to the counterpart of every room
// the user participates in. O(rooms-for-user) on every disconnect.
func (s *ChatService) OnDisconnected(ctx context.Context, userID string) {
	rooms, err := s.store.ListRoomsForUser(ctx, userID)
	if err != nil {
		s.log.Warnw("room scan on disconnect failed", "user", userID, "err", err)
		return
	}
	for _, room := range rooms {
		s.hub.ToUser(room.Counterpart(userID), domain.EventUserOffline,
			domain.PresencePayload{UserID: userID, RoomID: room.ID})
	}
	if s.presence != nil {
		_ = s.presence.SetOffline(ctx, userID)
	}
}

// OnConnected mirrors presence for a fresh connection.
func (s *ChatService) OnConnected(ctx context.Context, userID string) {
	if s.presence != nil {
		_ = s.presence.SetOnline(ctx, userID)
	}
}
