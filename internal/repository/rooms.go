package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pawhaven/chat-service/internal/apperr"
	"github.com/pawhaven/chat-service/internal/domain"
)

// RoomRepo is the durable room store. One room exists per
// (owner, shelter, pet) triple, enforced by a unique index.
type RoomRepo struct {
	coll *mongo.Collection
}

func NewRoomRepo(coll *mongo.Collection) *RoomRepo {
	uniq := mongo.IndexModel{
		Keys: bson.D{
			{Key: "owner_id", Value: 1},
			{Key: "shelter_id", Value: 1},
			{Key: "pet_id", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("owner_shelter_pet_uniq"),
	}
	activity := mongo.IndexModel{
		Keys:    bson.D{{Key: "last_message.timestamp", Value: -1}},
		Options: options.Index().SetName("last_activity_idx"),
	}
	_, _ = coll.Indexes().CreateMany(context.Background(), []mongo.IndexModel{uniq, activity})
	return &RoomRepo{coll: coll}
}

// EnsureRoom finds or creates the room for the tuple. Concurrent creates
// collapse onto the existing room via the unique index and upsert.
func (r *RoomRepo) EnsureRoom(ctx context.Context, ownerID, shelterID, petID, applicationID string) (*domain.Room, error) {
	now := time.Now().UTC()
	filter := bson.M{"owner_id": ownerID, "shelter_id": shelterID, "pet_id": petID}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":            uuid.NewString(),
		"owner_id":       ownerID,
		"shelter_id":     shelterID,
		"pet_id":         petID,
		"application_id": applicationID,
		"status":         domain.RoomOpen,
		"unread_count":   domain.UnreadCount{},
		"wallpaper":      domain.WallpaperDefault,
		"created_at":     now,
		"updated_at":     now,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var room domain.Room
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *RoomRepo) Get(ctx context.Context, roomID string) (*domain.Room, error) {
	var room domain.Room
	if err := r.coll.FindOne(ctx, bson.M{"_id": roomID}).Decode(&room); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &room, nil
}

// ListForUser returns all rooms the user participates in, most recently
// active first. Rooms with no message yet sort last (missing timestamp
// sorts below any value in descending order).
func (r *RoomRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Room, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"owner_id": userID},
		bson.M{"shelter_id": userID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "last_message.timestamp", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*domain.Room
	for cur.Next(ctx) {
		var room domain.Room
		if err := cur.Decode(&room); err != nil {
			return nil, err
		}
		out = append(out, &room)
	}
	return out, cur.Err()
}

func (r *RoomRepo) SetStatus(ctx context.Context, roomID string, status domain.RoomStatus) error {
	res, err := r.coll.UpdateByID(ctx, roomID, bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *RoomRepo) SetWallpaper(ctx context.Context, roomID, wallpaper string) error {
	res, err := r.coll.UpdateByID(ctx, roomID, bson.M{"$set": bson.M{
		"wallpaper":  wallpaper,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// SetTyping overwrites the room's single typing slot, last writer wins.
func (r *RoomRepo) SetTyping(ctx context.Context, roomID string, t domain.TypingState) error {
	_, err := r.coll.UpdateByID(ctx, roomID, bson.M{"$set": bson.M{"participant_typing": t}})
	return err
}

// ResetUnread zeroes one side's unread counter, typically after that
// side's read trigger ran.
func (r *RoomRepo) ResetUnread(ctx context.Context, roomID string, side domain.Side) error {
	_, err := r.coll.UpdateByID(ctx, roomID, bson.M{"$set": bson.M{
		"unread_count." + string(side): 0,
	}})
	return err
}

// applyIncomingMessage runs inside the send transaction: flips the room to
// ongoing, bumps the counterpart's unread counter atomically and
// overwrites the last-message preview. The status filter re-checks the
// send gate under the transaction so a concurrent block aborts the send.
func (r *RoomRepo) applyIncomingMessage(ctx context.Context, roomID string, senderSide domain.Side, preview domain.LastMessage) error {
	filter := bson.M{
		"_id":    roomID,
		"status": bson.M{"$nin": bson.A{domain.RoomClosed, domain.RoomBlocked}},
	}
	update := bson.M{
		"$set": bson.M{
			"status":       domain.RoomOngoing,
			"last_message": preview,
			"updated_at":   time.Now().UTC(),
		},
		"$inc": bson.M{"unread_count." + string(senderSide.Other()): 1},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrRoomClosed
	}
	return nil
}

// applySystemMessage updates the preview for a system entry without
// touching status or unread counters.
func (r *RoomRepo) applySystemMessage(ctx context.Context, roomID string, preview domain.LastMessage) error {
	_, err := r.coll.UpdateByID(ctx, roomID, bson.M{"$set": bson.M{
		"last_message": preview,
		"updated_at":   time.Now().UTC(),
	}})
	return err
}
