package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/and161185/chirper/internal/errs"
	"github.com/and161185/chirper/internal/model"
	"github.com/gofrs/uuid/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostRepo implements PostRepository on the posts collection.
type PostRepo struct {
	store    *Store
	coll     *mongo.Collection
	accounts *mongo.Collection
}

// Create inserts a post document.
func (r *PostRepo) Create(ctx context.Context, p *model.Post) error {
	d := toPostDoc(p)
	d.UpdatedAt = d.CreatedAt
	_, err := r.coll.InsertOne(ctx, d)
	return err
}

// GetByID loads a post.
func (r *PostRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	var d postDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	p, err := d.model()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes the post and pulls it from every liker's likedPosts.
func (r *PostRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.store.withTx(ctx, func(ctx context.Context) error {
		res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return errs.ErrNotFound
		}
		_, err = r.accounts.UpdateMany(ctx,
			bson.M{"likedPosts": id.String()},
			bson.M{"$pull": bson.M{"likedPosts": id.String()}})
		return err
	})
}

// AddComment pushes a comment onto the post.
func (r *PostRepo) AddComment(ctx context.Context, postID uuid.UUID, c model.Comment) error {
	update := bson.M{
		"$push": bson.M{"comments": toCommentDoc(c)},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	return matchedOne(r.coll.UpdateOne(ctx, bson.M{"_id": postID.String()}, update))
}

// Like adds the post to the account's likedPosts, then the account to post.likes.
func (r *PostRepo) Like(ctx context.Context, postID, account uuid.UUID) error {
	return r.store.withTx(ctx, func(ctx context.Context) error {
		if err := matchedOne(r.accounts.UpdateOne(ctx,
			bson.M{"_id": account.String()},
			bson.M{"$addToSet": bson.M{"likedPosts": postID.String()}})); err != nil {
			return err
		}
		return matchedOne(r.coll.UpdateOne(ctx,
			bson.M{"_id": postID.String()},
			bson.M{"$addToSet": bson.M{"likes": account.String()}}))
	})
}

// Unlike pulls the post from the account's likedPosts, then the account from post.likes.
func (r *PostRepo) Unlike(ctx context.Context, postID, account uuid.UUID) error {
	return r.store.withTx(ctx, func(ctx context.Context) error {
		if _, err := r.accounts.UpdateOne(ctx,
			bson.M{"_id": account.String()},
			bson.M{"$pull": bson.M{"likedPosts": postID.String()}}); err != nil {
			return err
		}
		_, err := r.coll.UpdateOne(ctx,
			bson.M{"_id": postID.String()},
			bson.M{"$pull": bson.M{"likes": account.String()}})
		return err
	})
}

// List returns posts matching the filter, newest first.
func (r *PostRepo) List(ctx context.Context, f model.PostFilter) ([]model.Post, error) {
	filter, err := postFilter(f)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return []model.Post{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.Post, 0, len(docs))
	for _, d := range docs {
		p, err := d.model()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// postFilter translates a feed filter; a nil filter means the result is empty.
func postFilter(f model.PostFilter) (bson.M, error) {
	switch f.Kind {
	case model.FeedAll:
		return bson.M{}, nil
	case model.FeedAuthors:
		if len(f.IDs) == 0 {
			return nil, nil
		}
		return bson.M{"user": bson.M{"$in": ids(f.IDs)}}, nil
	case model.FeedPosts:
		if len(f.IDs) == 0 {
			return nil, nil
		}
		return bson.M{"_id": bson.M{"$in": ids(f.IDs)}}, nil
	default:
		return nil, fmt.Errorf("list posts: unknown feed kind %d", f.Kind)
	}
}
