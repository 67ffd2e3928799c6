package limiter

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the subset of *mongo.Collection the limiter needs.
type Collection interface {
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
	FindOneAndUpdate(ctx context.Context, filter any, update any, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter any, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// Mongo is a MongoDB-backed limiter with the same window semantics as PG.
type Mongo struct {
	coll   Collection
	policy Policy
	now    func() time.Time
}

// NewMongo constructs a MongoDB-backed limiter over the auth_limiter collection.
func NewMongo(coll Collection, p Policy) *Mongo {
	return &Mongo{coll: coll, policy: p, now: time.Now}
}

type limiterDoc struct {
	ID           string    `bson:"_id"`
	FailCount    int       `bson:"fail_count"`
	BlockedUntil time.Time `bson:"blocked_until"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func docID(login string, ipHash []byte) string { return login + "|" + hex.EncodeToString(ipHash) }

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *Mongo) Allow(ctx context.Context, login string, ipHash []byte) (bool, time.Duration, error) {
	var d limiterDoc
	err := l.coll.FindOne(ctx, bson.M{"_id": docID(login, ipHash)}).Decode(&d)
	switch {
	case err == nil:
		now := l.now()
		if d.BlockedUntil.After(now) {
			return false, d.BlockedUntil.Sub(now), nil
		}
		return true, 0, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Success resets counters for (login, ip).
func (l *Mongo) Success(ctx context.Context, login string, ipHash []byte) error {
	update := bson.M{"$set": bson.M{
		"fail_count":    0,
		"blocked_until": time.Unix(0, 0).UTC(),
		"updated_at":    l.now(),
	}}
	_, err := l.coll.UpdateOne(ctx, bson.M{"_id": docID(login, ipHash)}, update, options.Update().SetUpsert(true))
	return err
}

// Failure increments the counter, restarting it when the previous failure is older than the window.
func (l *Mongo) Failure(ctx context.Context, login string, ipHash []byte) (bool, time.Duration, error) {
	now := l.now()
	id := docID(login, ipHash)

	// pipeline update: date subtraction yields milliseconds
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "fail_count", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$gt", Value: bson.A{
					bson.D{{Key: "$subtract", Value: bson.A{now, bson.D{{Key: "$ifNull", Value: bson.A{"$updated_at", now}}}}}},
					l.policy.Window.Milliseconds(),
				}}},
				1,
				bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$fail_count", 0}}}, 1}}},
			}}}},
			{Key: "blocked_until", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$blocked_until", time.Unix(0, 0).UTC()}}}},
			{Key: "updated_at", Value: now},
		}}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var d limiterDoc
	if err := l.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&d); err != nil {
		return false, 0, err
	}
	if d.FailCount >= l.policy.MaxFails {
		blockUntil := now.Add(l.policy.BlockFor)
		if _, err := l.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"blocked_until": blockUntil}}); err != nil {
			return false, 0, err
		}
		return true, l.policy.BlockFor, nil
	}
	return false, 0, nil
}
