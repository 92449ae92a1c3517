package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pawhaven/chat-service/internal/apperr"
	"github.com/pawhaven/chat-service/internal/domain"
)

// MessageRepo is the append-only message log.
type MessageRepo struct {
	coll *mongo.Collection
}

func NewMessageRepo(coll *mongo.Collection) *MessageRepo {
	byRoom := mongo.IndexModel{
		Keys: bson.D{
			{Key: "room_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("room_created_idx"),
	}
	bySender := mongo.IndexModel{
		Keys:    bson.D{{Key: "sender_id", Value: 1}},
		Options: options.Index().SetName("sender_idx"),
	}
	_, _ = coll.Indexes().CreateMany(context.Background(), []mongo.IndexModel{byRoom, bySender})
	return &MessageRepo{coll: coll}
}

func (r *MessageRepo) insert(ctx context.Context, m *domain.Message) error {
	_, err := r.coll.InsertOne(ctx, m)
	return err
}

func (r *MessageRepo) Get(ctx context.Context, messageID string) (*domain.Message, error) {
	var m domain.Message
	if err := r.coll.FindOne(ctx, bson.M{"_id": messageID}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListForUser returns one page of a room's messages for the given user.
// Messages the user soft-deleted are excluded; tombstoned messages are
// returned as stored (content already replaced at write time). Paged
// newest-first, returned oldest-first for display.
func (r *MessageRepo) ListForUser(ctx context.Context, roomID, userID string, page, limit int64) ([]*domain.Message, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	filter := bson.M{
		"room_id":     roomID,
		"deleted_for": bson.M{"$ne": userID},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*domain.Message
	for cur.Next(ctx) {
		var m domain.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	reverse(out)
	if err := r.attachReplies(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachReplies populates ReplyToMessage one level deep, never recursive.
func (r *MessageRepo) attachReplies(ctx context.Context, msgs []*domain.Message) error {
	ids := make([]string, 0)
	for _, m := range msgs {
		if m.ReplyTo != "" {
			ids = append(ids, m.ReplyTo)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	byID := make(map[string]*domain.Message, len(ids))
	for cur.Next(ctx) {
		var m domain.Message
		if err := cur.Decode(&m); err != nil {
			return err
		}
		byID[m.ID] = &m
	}
	for _, m := range msgs {
		if m.ReplyTo != "" {
			m.ReplyToMessage = byID[m.ReplyTo]
		}
	}
	return cur.Err()
}

// FindUndelivered returns the room's messages not yet delivered to the
// user, excluding the user's own.
func (r *MessageRepo) FindUndelivered(ctx context.Context, roomID, userID string) ([]*domain.Message, error) {
	return r.findUnmarked(ctx, roomID, userID, "delivered_to")
}

// FindUnread returns the room's messages not yet read by the user,
// excluding the user's own.
func (r *MessageRepo) FindUnread(ctx context.Context, roomID, userID string) ([]*domain.Message, error) {
	return r.findUnmarked(ctx, roomID, userID, "read_by")
}

func (r *MessageRepo) findUnmarked(ctx context.Context, roomID, userID, field string) ([]*domain.Message, error) {
	filter := bson.M{
		"room_id":          roomID,
		"sender_id":        bson.M{"$ne": userID},
		field + ".user_id": bson.M{"$ne": userID},
	}
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*domain.Message
	for cur.Next(ctx) {
		var m domain.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, cur.Err()
}

// MarkDelivered appends the user to delivered_to on every listed message.
// The filter repeats the absence check, so repeat invocations and the
// sender's own messages are no-ops.
func (r *MessageRepo) MarkDelivered(ctx context.Context, messageIDs []string, userID string, at time.Time) error {
	return r.mark(ctx, messageIDs, userID, "delivered_to", at)
}

// MarkRead appends the user to read_by; same idempotency rules.
func (r *MessageRepo) MarkRead(ctx context.Context, messageIDs []string, userID string, at time.Time) error {
	return r.mark(ctx, messageIDs, userID, "read_by", at)
}

func (r *MessageRepo) mark(ctx context.Context, messageIDs []string, userID, field string, at time.Time) error {
	if len(messageIDs) == 0 {
		return nil
	}
	filter := bson.M{
		"_id":              bson.M{"$in": messageIDs},
		"sender_id":        bson.M{"$ne": userID},
		field + ".user_id": bson.M{"$ne": userID},
	}
	update := bson.M{"$push": bson.M{field: domain.Receipt{UserID: userID, At: at}}}
	_, err := r.coll.UpdateMany(ctx, filter, update)
	return err
}

// SoftDeleteForUser hides the message from one participant only.
func (r *MessageRepo) SoftDeleteForUser(ctx context.Context, messageID, userID string) error {
	res, err := r.coll.UpdateByID(ctx, messageID, bson.M{"$addToSet": bson.M{"deleted_for": userID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Tombstone deletes for everyone: the content is replaced in place and the
// record stays in the log.
func (r *MessageRepo) Tombstone(ctx context.Context, messageID string) error {
	res, err := r.coll.UpdateByID(ctx, messageID, bson.M{
		"$set": bson.M{
			"deleted_for_everyone": true,
			"content":              domain.TombstoneContent,
		},
		"$unset": bson.M{"images": "", "thumbnails": ""},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// SetReaction replaces the user's reaction in a single pipeline update:
// the user's previous entry is filtered out and, unless emoji is empty,
// the new one appended. Concurrent toggles from the same user serialize at
// the document, last writer wins.
func (r *MessageRepo) SetReaction(ctx context.Context, messageID, userID, emoji string) ([]domain.Reaction, error) {
	filtered := bson.M{"$filter": bson.M{
		"input": bson.M{"$ifNull": bson.A{"$reactions", bson.A{}}},
		"as":    "r",
		"cond":  bson.M{"$ne": bson.A{"$$r.user_id", userID}},
	}}
	var value any = filtered
	if emoji != "" {
		value = bson.M{"$concatArrays": bson.A{
			filtered,
			bson.A{bson.M{"user_id": userID, "emoji": emoji}},
		}}
	}
	pipeline := mongo.Pipeline{bson.D{{Key: "$set", Value: bson.D{{Key: "reactions", Value: value}}}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Message
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": messageID}, pipeline, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return updated.Reactions, nil
}

func reverse(msgs []*domain.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
