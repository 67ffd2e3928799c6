package mongostore

import (
	"context"

	"github.com/and161185/chirper/internal/model"
	"github.com/gofrs/uuid/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepo implements NotificationRepository on the notifications collection.
type NotificationRepo struct{ coll *mongo.Collection }

// Create inserts a notification.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	_, err := r.coll.InsertOne(ctx, toNotificationDoc(n))
	return err
}

// ListForRecipient returns the recipient's notifications, newest first.
func (r *NotificationRepo) ListForRecipient(ctx context.Context, to uuid.UUID) ([]model.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"to": to.String()}, opts)
	if err != nil {
		return nil, err
	}
	var docs []notificationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.Notification, 0, len(docs))
	for _, d := range docs {
		n, err := d.model()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// MarkAllRead flags the recipient's unread notifications.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, to uuid.UUID) error {
	_, err := r.coll.UpdateMany(ctx, bson.M{"to": to.String(), "read": false}, bson.M{"$set": bson.M{"read": true}})
	return err
}

// DeleteAllForRecipient removes the recipient's notifications.
func (r *NotificationRepo) DeleteAllForRecipient(ctx context.Context, to uuid.UUID) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"to": to.String()})
	return err
}
