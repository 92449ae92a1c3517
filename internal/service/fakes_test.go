package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pawhaven/chat-service/internal/apperr"
	"github.com/pawhaven/chat-service/internal/domain"
)

func nopLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }

// fakeStore is an in-memory Store honoring the same contracts as the
// mongo-backed one: atomic append+counter, receipt filters that exclude
// the sender and already-present users, reaction replacement.
type fakeStore struct {
	mu        sync.Mutex
	rooms     map[string]*domain.Room
	msgs      map[string]*domain.Message
	order     []string
	notifs    []*domain.Notification
	seq       int
	failNotif error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms: make(map[string]*domain.Room),
		msgs:  make(map[string]*domain.Message),
	}
}

func (f *fakeStore) addRoom(owner, shelter string) *domain.Room {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	room := &domain.Room{
		ID:        fmt.Sprintf("room-%d", f.seq),
		OwnerID:   owner,
		ShelterID: shelter,
		PetID:     fmt.Sprintf("pet-%d", f.seq),
		Status:    domain.RoomOpen,
		Wallpaper: domain.WallpaperDefault,
		CreatedAt: time.Now().UTC(),
	}
	f.rooms[room.ID] = room
	return room
}

func (f *fakeStore) EnsureRoom(_ context.Context, owner, shelter, pet, application string) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.OwnerID == owner && r.ShelterID == shelter && r.PetID == pet {
			return r, nil
		}
	}
	f.seq++
	room := &domain.Room{
		ID:            fmt.Sprintf("room-%d", f.seq),
		OwnerID:       owner,
		ShelterID:     shelter,
		PetID:         pet,
		ApplicationID: application,
		Status:        domain.RoomOpen,
		Wallpaper:     domain.WallpaperDefault,
		CreatedAt:     time.Now().UTC(),
	}
	f.rooms[room.ID] = room
	return room, nil
}

func (f *fakeStore) GetRoom(_ context.Context, roomID string) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[roomID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) ListRoomsForUser(_ context.Context, userID string) ([]*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Room
	for _, r := range f.rooms {
		if r.OwnerID == userID || r.ShelterID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := time.Time{}, time.Time{}
		if out[i].LastMessage != nil {
			ti = out[i].LastMessage.Timestamp
		}
		if out[j].LastMessage != nil {
			tj = out[j].LastMessage.Timestamp
		}
		return ti.After(tj)
	})
	return out, nil
}

func (f *fakeStore) SetRoomStatus(_ context.Context, roomID string, status domain.RoomStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[roomID]
	if !ok {
		return apperr.ErrNotFound
	}
	r.Status = status
	return nil
}

func (f *fakeStore) SetWallpaper(_ context.Context, roomID, wallpaper string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[roomID]
	if !ok {
		return apperr.ErrNotFound
	}
	r.Wallpaper = wallpaper
	return nil
}

func (f *fakeStore) SetTyping(_ context.Context, roomID string, t domain.TypingState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[roomID]
	if !ok {
		return apperr.ErrNotFound
	}
	r.Typing = &t
	return nil
}

func (f *fakeStore) ResetUnread(_ context.Context, roomID string, side domain.Side) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[roomID]
	if !ok {
		return apperr.ErrNotFound
	}
	if side == domain.SideOwner {
		r.Unread.Owner = 0
	} else {
		r.Unread.Shelter = 0
	}
	return nil
}

func (f *fakeStore) AppendMessage(_ context.Context, m *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[m.RoomID]
	if !ok {
		return apperr.ErrNotFound
	}
	if !r.SendsAllowed() {
		return apperr.ErrRoomClosed
	}
	cp := *m
	f.msgs[m.ID] = &cp
	f.order = append(f.order, m.ID)
	r.Status = domain.RoomOngoing
	r.LastMessage = &domain.LastMessage{Content: m.Preview(), SenderID: m.SenderID, Timestamp: m.CreatedAt}
	if m.SenderSide == domain.SideOwner {
		r.Unread.Shelter++
	} else {
		r.Unread.Owner++
	}
	return nil
}

func (f *fakeStore) AppendSystemMessage(_ context.Context, m *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[m.RoomID]
	if !ok {
		return apperr.ErrNotFound
	}
	cp := *m
	f.msgs[m.ID] = &cp
	f.order = append(f.order, m.ID)
	r.LastMessage = &domain.LastMessage{Content: m.Preview(), SenderID: m.SenderID, Timestamp: m.CreatedAt}
	return nil
}

func (f *fakeStore) GetMessage(_ context.Context, messageID string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[messageID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeStore) ListMessagesForUser(_ context.Context, roomID, userID string, page, limit int64) ([]*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Message
	for _, id := range f.order {
		m := f.msgs[id]
		if m.RoomID != roomID || m.DeletedForUser(userID) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) FindUndelivered(_ context.Context, roomID, userID string) ([]*domain.Message, error) {
	return f.findUnmarked(roomID, userID, false)
}

func (f *fakeStore) FindUnread(_ context.Context, roomID, userID string) ([]*domain.Message, error) {
	return f.findUnmarked(roomID, userID, true)
}

func (f *fakeStore) findUnmarked(roomID, userID string, read bool) ([]*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Message
	for _, id := range f.order {
		m := f.msgs[id]
		if m.RoomID != roomID || m.SenderID == userID {
			continue
		}
		if read && m.ReadByUser(userID) {
			continue
		}
		if !read && m.DeliveredToUser(userID) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) MarkDelivered(_ context.Context, ids []string, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		m, ok := f.msgs[id]
		if !ok || m.SenderID == userID || m.DeliveredToUser(userID) {
			continue
		}
		m.DeliveredTo = append(m.DeliveredTo, domain.Receipt{UserID: userID, At: at})
	}
	return nil
}

func (f *fakeStore) MarkRead(_ context.Context, ids []string, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		m, ok := f.msgs[id]
		if !ok || m.SenderID == userID || m.ReadByUser(userID) {
			continue
		}
		m.ReadBy = append(m.ReadBy, domain.Receipt{UserID: userID, At: at})
	}
	return nil
}

func (f *fakeStore) SoftDeleteForUser(_ context.Context, messageID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[messageID]
	if !ok {
		return apperr.ErrNotFound
	}
	if !m.DeletedForUser(userID) {
		m.DeletedFor = append(m.DeletedFor, userID)
	}
	return nil
}

func (f *fakeStore) Tombstone(_ context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[messageID]
	if !ok {
		return apperr.ErrNotFound
	}
	m.DeletedForEveryone = true
	m.Content = domain.TombstoneContent
	m.Images = nil
	m.Thumbnails = nil
	return nil
}

func (f *fakeStore) SetReaction(_ context.Context, messageID, userID, emoji string) ([]domain.Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[messageID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	kept := m.Reactions[:0]
	for _, r := range m.Reactions {
		if r.UserID != userID {
			kept = append(kept, r)
		}
	}
	m.Reactions = kept
	if emoji != "" {
		m.Reactions = append(m.Reactions, domain.Reaction{UserID: userID, Emoji: emoji})
	}
	out := make([]domain.Reaction, len(m.Reactions))
	copy(out, m.Reactions)
	return out, nil
}

func (f *fakeStore) InsertNotification(_ context.Context, n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNotif != nil {
		return f.failNotif
	}
	cp := *n
	f.notifs = append(f.notifs, &cp)
	return nil
}

// fakeHub records every broadcast for assertion.
type sentEvent struct {
	Target  string // "user:<id>" or "room:<id>"
	Event   string
	Payload any
}

type fakeHub struct {
	mu      sync.Mutex
	sent    []sentEvent
	viewing map[string]string // userID -> roomID currently held
}

func newFakeHub() *fakeHub {
	return &fakeHub{viewing: make(map[string]string)}
}

func (h *fakeHub) ToUser(userID, event string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sentEvent{Target: "user:" + userID, Event: event, Payload: payload})
}

func (h *fakeHub) ToRoom(roomID, event string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sentEvent{Target: "room:" + roomID, Event: event, Payload: payload})
}

func (h *fakeHub) UserInRoom(userID, roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.viewing[userID] == roomID
}

func (h *fakeHub) events(target, event string) []sentEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []sentEvent
	for _, e := range h.sent {
		if e.Target == target && e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// fakeUploader succeeds with deterministic URLs unless told to fail.
type fakeUploader struct {
	fail    error
	uploads int
}

func (u *fakeUploader) UploadImage(_ context.Context, userID, filename, _ string, _ []byte) (string, string, error) {
	if u.fail != nil {
		return "", "", u.fail
	}
	u.uploads++
	return "https://cdn.test/" + userID + "/" + filename, "https://cdn.test/" + userID + "/" + filename + "_thumb.jpg", nil
}

func (u *fakeUploader) UploadWallpaper(_ context.Context, roomID, filename, _ string, _ []byte) (string, error) {
	if u.fail != nil {
		return "", u.fail
	}
	u.uploads++
	return "https://cdn.test/wallpapers/" + roomID + "/" + filename, nil
}
