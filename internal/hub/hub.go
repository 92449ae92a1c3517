package hub

import "sync"

// Hub is the in-process broadcast broker. Every client belongs to its
// user group for its whole lifetime; room groups are joined only while
// the chat UI for that room is open. The hub is handed to services as an
// explicit capability, never reached through process globals.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[*Client]struct{}
	rooms map[string]map[*Client]struct{}
}

func New() *Hub {
	return &Hub{
		users: make(map[string]map[*Client]struct{}),
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Register adds the client to its user group.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[c.UserID] == nil {
		h.users[c.UserID] = make(map[*Client]struct{})
	}
	h.users[c.UserID][c] = struct{}{}
}

// Unregister removes the client from its user group and every room group.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.users[c.UserID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, c.UserID)
		}
	}
	for roomID, set := range h.rooms {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) JoinRoom(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][c] = struct{}{}
}

func (h *Hub) LeaveRoom(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.rooms[roomID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// ToUser fans an event out to every live connection of one user.
func (h *Hub) ToUser(userID, event string, payload any) {
	b, err := encodeEvent(event, payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.users[userID] {
		c.enqueue(b)
	}
}

// ToRoom fans an event out to every connection currently joined to the
// room group.
func (h *Hub) ToRoom(roomID, event string, payload any) {
	b, err := encodeEvent(event, payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		c.enqueue(b)
	}
}

// UserInRoom reports whether any of the user's connections currently hold
// the room group. This is the notification-suppression check; it is
// advisory, not transactional.
func (h *Hub) UserInRoom(userID, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// UserOnline reports whether the user has any live connection.
func (h *Hub) UserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}
