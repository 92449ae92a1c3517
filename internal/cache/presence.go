package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceStore mirrors ephemeral presence and typing state into Redis so
// REST-only pollers (and operators) can read it. The hub remains the
// authority for routing decisions; everything here is best-effort.
//
// Keys:
//   <prefix>:presence:<userID> -> {"status","last_seen"}
//   <prefix>:typing:<roomID>   -> {"userId","isTyping","at"}
type PresenceStore struct {
	client *redis.Client
	prefix string
}

func NewPresenceStore(client *redis.Client, prefix string) *PresenceStore {
	if prefix == "" {
		prefix = "chat"
	}
	return &PresenceStore{client: client, prefix: prefix}
}

func (s *PresenceStore) presenceKey(userID string) string {
	return s.prefix + ":presence:" + userID
}

func (s *PresenceStore) typingKey(roomID string) string {
	return s.prefix + ":typing:" + roomID
}

func (s *PresenceStore) SetOnline(ctx context.Context, userID string) error {
	b, _ := json.Marshal(map[string]any{"status": "online", "last_seen": time.Now().Unix()})
	return s.client.Set(ctx, s.presenceKey(userID), b, 24*time.Hour).Err()
}

func (s *PresenceStore) SetOffline(ctx context.Context, userID string) error {
	b, _ := json.Marshal(map[string]any{"status": "offline", "last_seen": time.Now().Unix()})
	return s.client.Set(ctx, s.presenceKey(userID), b, 0).Err()
}

func (s *PresenceStore) GetPresence(ctx context.Context, userID string) (map[string]any, error) {
	b, err := s.client.Get(ctx, s.presenceKey(userID)).Bytes()
	if err == redis.Nil {
		return map[string]any{"status": "offline"}, nil
	}
	if err != nil {
		return nil, err
	}
	var out map[string]any
	_ = json.Unmarshal(b, &out)
	return out, nil
}

// SetTyping mirrors the room's typing slot. The short TTL only guards
// against crashed writers leaving a stale "typing" for pollers; live
// clients clear their own indicators.
func (s *PresenceStore) SetTyping(ctx context.Context, roomID, userID string, isTyping bool) error {
	if !isTyping {
		return s.client.Del(ctx, s.typingKey(roomID)).Err()
	}
	b, _ := json.Marshal(map[string]any{"userId": userID, "isTyping": true, "at": time.Now().Unix()})
	return s.client.Set(ctx, s.typingKey(roomID), b, 30*time.Second).Err()
}
