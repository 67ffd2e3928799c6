package mongostore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/and161185/chirper/internal/errs"
	"github.com/and161185/chirper/internal/model"
	"github.com/gofrs/uuid/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AccountRepo implements AccountRepository on the accounts collection.
type AccountRepo struct {
	store *Store
	coll  *mongo.Collection
}

// Create inserts a new account document.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	d := toAccountDoc(a)
	d.UpdatedAt = d.CreatedAt
	_, err := r.coll.InsertOne(ctx, d)
	if mongo.IsDuplicateKeyError(err) {
		return duplicateOf(err)
	}
	return err
}

func (r *AccountRepo) findOne(ctx context.Context, filter bson.M) (*model.Account, error) {
	var d accountDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return d.model()
}

// GetByID loads an account by ID.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

// GetByUsername loads an account by username.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

// GetByEmail loads an account by email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetByResetDigest loads the account holding an unexpired reset digest.
func (r *AccountRepo) GetByResetDigest(ctx context.Context, digest string, now time.Time) (*model.Account, error) {
	if digest == "" {
		return nil, errs.ErrNotFound
	}
	return r.findOne(ctx, bson.M{
		"resetPasswordToken":       digest,
		"resetPasswordTokenExpiry": bson.M{"$gt": now},
	})
}

// UpdateProfile writes identity, profile and password fields.
func (r *AccountRepo) UpdateProfile(ctx context.Context, a *model.Account) error {
	update := bson.M{"$set": bson.M{
		"fullName":   a.FullName,
		"username":   a.Username,
		"email":      a.Email,
		"password":   a.PwdHash,
		"bio":        a.Bio,
		"link":       a.Link,
		"profileImg": a.ProfileImg,
		"coverImg":   a.CoverImg,
		"updatedAt":  time.Now().UTC(),
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": a.ID.String()}, update)
	if mongo.IsDuplicateKeyError(err) {
		return duplicateOf(err)
	}
	return matchedOne(res, err)
}

// SetRefreshDigest overwrites the stored refresh digest; empty removes it.
func (r *AccountRepo) SetRefreshDigest(ctx context.Context, id uuid.UUID, digest string) error {
	update := bson.M{"$set": bson.M{"refreshToken": digest}}
	if digest == "" {
		update = bson.M{"$unset": bson.M{"refreshToken": ""}}
	}
	return matchedOne(r.coll.UpdateOne(ctx, bson.M{"_id": id.String()}, update))
}

// SetResetDigest stores a pending reset digest and its expiry.
func (r *AccountRepo) SetResetDigest(ctx context.Context, id uuid.UUID, digest string, expiresAt time.Time) error {
	update := bson.M{"$set": bson.M{"resetPasswordToken": digest, "resetPasswordTokenExpiry": expiresAt}}
	return matchedOne(r.coll.UpdateOne(ctx, bson.M{"_id": id.String()}, update))
}

// CompleteReset replaces the password and clears the reset fields.
func (r *AccountRepo) CompleteReset(ctx context.Context, id uuid.UUID, pwdHash []byte) error {
	update := bson.M{
		"$set":   bson.M{"password": pwdHash, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{"resetPasswordToken": "", "resetPasswordTokenExpiry": ""},
	}
	return matchedOne(r.coll.UpdateOne(ctx, bson.M{"_id": id.String()}, update))
}

// Follow adds target to actor.following, then actor to target.followers.
func (r *AccountRepo) Follow(ctx context.Context, actor, target uuid.UUID) error {
	return r.store.withTx(ctx, func(ctx context.Context) error {
		if err := matchedOne(r.coll.UpdateOne(ctx,
			bson.M{"_id": actor.String()},
			bson.M{"$addToSet": bson.M{"following": target.String()}})); err != nil {
			return err
		}
		return matchedOne(r.coll.UpdateOne(ctx,
			bson.M{"_id": target.String()},
			bson.M{"$addToSet": bson.M{"followers": actor.String()}}))
	})
}

// Unfollow pulls target from actor.following, then actor from target.followers.
func (r *AccountRepo) Unfollow(ctx context.Context, actor, target uuid.UUID) error {
	return r.store.withTx(ctx, func(ctx context.Context) error {
		if _, err := r.coll.UpdateOne(ctx,
			bson.M{"_id": actor.String()},
			bson.M{"$pull": bson.M{"following": target.String()}}); err != nil {
			return err
		}
		_, err := r.coll.UpdateOne(ctx,
			bson.M{"_id": target.String()},
			bson.M{"$pull": bson.M{"followers": actor.String()}})
		return err
	})
}

// Sample draws random accounts that are neither actor nor followed by actor.
func (r *AccountRepo) Sample(ctx context.Context, actor uuid.UUID, n int) ([]model.AccountSummary, error) {
	a, err := r.GetByID(ctx, actor)
	if err != nil {
		return nil, err
	}
	exclude := append(ids(a.Following), actor.String())
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": bson.M{"$nin": exclude}}}},
		{{Key: "$sample", Value: bson.M{"size": n}}},
		{{Key: "$project", Value: summaryProjection}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var docs []summaryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.AccountSummary, 0, len(docs))
	for _, d := range docs {
		s, err := d.model()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

var summaryProjection = bson.M{"_id": 1, "fullName": 1, "username": 1, "profileImg": 1}

// Summaries resolves public projections for ids.
func (r *AccountRepo) Summaries(ctx context.Context, in []uuid.UUID) (map[uuid.UUID]model.AccountSummary, error) {
	out := make(map[uuid.UUID]model.AccountSummary, len(in))
	if len(in) == 0 {
		return out, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids(in)}}, options.Find().SetProjection(summaryProjection))
	if err != nil {
		return nil, err
	}
	var docs []summaryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		s, err := d.model()
		if err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, nil
}

// Ping checks that the primary answers.
func (r *AccountRepo) Ping(ctx context.Context) error { return r.store.Ping(ctx) }

func matchedOne(res *mongo.UpdateResult, err error) error {
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// duplicateOf maps a duplicate-key error to the account field that clashed.
func duplicateOf(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "index: username_1"):
		return &errs.Duplicate{Field: "username"}
	case strings.Contains(msg, "index: email_1"):
		return &errs.Duplicate{Field: "email"}
	default:
		return errs.ErrAlreadyExists
	}
}
