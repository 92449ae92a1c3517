package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pawhaven/chat-service/internal/domain"
)

// NotificationRepo persists "new message" alerts. Listing and read-marking
// are the notification service's surface, not ours; we only insert.
type NotificationRepo struct {
	coll *mongo.Collection
}

func NewNotificationRepo(coll *mongo.Collection) *NotificationRepo {
	idx := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("user_created_idx"),
	}
	_, _ = coll.Indexes().CreateOne(context.Background(), idx)
	return &NotificationRepo{coll: coll}
}

func (r *NotificationRepo) Insert(ctx context.Context, n *domain.Notification) error {
	_, err := r.coll.InsertOne(ctx, n)
	return err
}
