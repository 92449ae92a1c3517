package service

import (
	"context"
	"time"

	"github.com/pawhaven/chat-service/internal/domain"
	"github.com/pawhaven/chat-service/internal/metrics"
)

// The receipt engine is pull-triggered: only the reader knows when content
// entered their viewport, so delivered/read state settles when the reader
// joins a room, fetches history, or sends an explicit mark. Each pass is a
// bulk store write followed by one event per (sender, message) pair; every
// step is an idempotent no-op on repeat, so a crash mid-batch is resumed
// by the next trigger.

// settleReceipts runs the delivered pass, then the read pass, then resets
// the reader's unread counter. Delivered runs first so a read entry can
// never exist without its delivered entry.
func (s *ChatService) settleReceipts(ctx context.Context, room *domain.Room, userID string, side domain.Side) error {
	if err := s.settleDelivered(ctx, room, userID); err != nil {
		return err
	}
	if err := s.settleRead(ctx, room, userID); err != nil {
		return err
	}
	return s.store.ResetUnread(ctx, room.ID, side)
}

func (s *ChatService) settleDelivered(ctx context.Context, room *domain.Room, userID string) error {
	pending, err := s.store.FindUndelivered(ctx, room.ID, userID)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	now := time.Now().UTC()
	if err := s.store.MarkDelivered(ctx, messageIDs(pending), userID, now); err != nil {
		return err
	}
	metrics.ReceiptsWritten.WithLabelValues("delivered").Add(float64(len(pending)))
	// broadcast-after-commit: a crash here only delays the receipt
	for _, m := range pending {
		s.hub.ToUser(m.SenderID, domain.EventMessageDelivered, domain.DeliveredPayload{
			MessageID: m.ID,
			RoomID:    room.ID,
			UserID:    userID,
			Timestamp: now,
		})
	}
	return nil
}

func (s *ChatService) settleRead(ctx context.Context, room *domain.Room, userID string) error {
	pending, err := s.store.FindUnread(ctx, room.ID, userID)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	now := time.Now().UTC()
	if err := s.store.MarkRead(ctx, messageIDs(pending), userID, now); err != nil {
		return err
	}
	metrics.ReceiptsWritten.WithLabelValues("read").Add(float64(len(pending)))
	for _, m := range pending {
		s.hub.ToUser(m.SenderID, domain.EventMessageRead, domain.ReadPayload{
			MessageID: m.ID,
			RoomID:    room.ID,
			ReadBy:    userID,
			Timestamp: now,
		})
	}
	return nil
}

// MarkMessageDelivered is the per-message REST fallback for clients
// without a live connection. Marking the sender's own message is a no-op.
func (s *ChatService) MarkMessageDelivered(ctx context.Context, messageID, userID string) error {
	m, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	room, _, err := s.RoomForParticipant(ctx, m.RoomID, userID)
	if err != nil {
		return err
	}
	if m.SenderID == userID || m.DeliveredToUser(userID) {
		return nil
	}
	now := time.Now().UTC()
	if err := s.store.MarkDelivered(ctx, []string{m.ID}, userID, now); err != nil {
		return err
	}
	metrics.ReceiptsWritten.WithLabelValues("delivered").Inc()
	s.hub.ToUser(m.SenderID, domain.EventMessageDelivered, domain.DeliveredPayload{
		MessageID: m.ID, RoomID: room.ID, UserID: userID, Timestamp: now,
	})
	return nil
}

// MarkMessageRead is the per-message REST fallback. Read implies
// delivered: a missing delivered entry is backfilled first.
func (s *ChatService) MarkMessageRead(ctx context.Context, messageID, userID string) error {
	m, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	room, _, err := s.RoomForParticipant(ctx, m.RoomID, userID)
	if err != nil {
		return err
	}
	if m.SenderID == userID {
		return nil
	}
	now := time.Now().UTC()
	if !m.DeliveredToUser(userID) {
		if err := s.store.MarkDelivered(ctx, []string{m.ID}, userID, now); err != nil {
			return err
		}
		metrics.ReceiptsWritten.WithLabelValues("delivered").Inc()
		s.hub.ToUser(m.SenderID, domain.EventMessageDelivered, domain.DeliveredPayload{
			MessageID: m.ID, RoomID: room.ID, UserID: userID, Timestamp: now,
		})
	}
	if m.ReadByUser(userID) {
		return nil
	}
	if err := s.store.MarkRead(ctx, []string{m.ID}, userID, now); err != nil {
		return err
	}
	metrics.ReceiptsWritten.WithLabelValues("read").Inc()
	s.hub.ToUser(m.SenderID, domain.EventMessageRead, domain.ReadPayload{
		MessageID: m.ID, RoomID: room.ID, ReadBy: userID, Timestamp: now,
	})
	return nil
}

func messageIDs(msgs []*domain.Message) []string {
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}
