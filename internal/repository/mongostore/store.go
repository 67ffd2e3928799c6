// Package mongostore contains MongoDB implementations of repository interfaces.
//
// Relationship sets live on both documents (Account.following / Account.followers,
// Post.likes / Account.likedPosts). Every write uses $addToSet / $pull so repeating it
// is harmless, and the actor's side is written first and treated as authoritative.
// When transactions are enabled both writes commit together; otherwise Reconcile
// repairs whatever a crash between the two writes left behind.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	AccountsCollection      = "accounts"
	PostsCollection         = "posts"
	NotificationsCollection = "notifications"
	LimiterCollection       = "auth_limiter"
)

// Store owns the client and hands out repositories bound to one database.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
}

// Connect dials MongoDB and verifies the connection.
func Connect(ctx context.Context, uri, database string, transactions bool) (*Store, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Store{client: client, db: client.Database(database), transactions: transactions}, nil
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := func(field string) mongo.IndexModel {
		return mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true).SetName(field + "_1"),
		}
	}
	if _, err := s.db.Collection(AccountsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		unique("username"),
		unique("email"),
		{Keys: bson.D{{Key: "resetPasswordToken", Value: 1}}, Options: options.Index().SetSparse(true)},
	}); err != nil {
		return fmt.Errorf("accounts indexes: %w", err)
	}
	if _, err := s.db.Collection(PostsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("posts indexes: %w", err)
	}
	if _, err := s.db.Collection(NotificationsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "to", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("notifications indexes: %w", err)
	}
	return nil
}

// Ping checks that the primary answers.
func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, readpref.Primary()) }

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// Collection exposes a raw collection (used by the login limiter).
func (s *Store) Collection(name string) *mongo.Collection { return s.db.Collection(name) }

// Accounts returns the account repository.
func (s *Store) Accounts() *AccountRepo {
	return &AccountRepo{store: s, coll: s.db.Collection(AccountsCollection)}
}

// Posts returns the post repository.
func (s *Store) Posts() *PostRepo {
	return &PostRepo{store: s, coll: s.db.Collection(PostsCollection), accounts: s.db.Collection(AccountsCollection)}
}

// Notifications returns the notification repository.
func (s *Store) Notifications() *NotificationRepo {
	return &NotificationRepo{coll: s.db.Collection(NotificationsCollection)}
}

// withTx runs fn inside a transaction when enabled, otherwise directly.
func (s *Store) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}
