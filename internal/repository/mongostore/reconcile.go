package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReconcileReport counts the repairs applied by Reconcile.
type ReconcileReport struct {
	FollowersAdded   int
	FollowersRemoved int
	FollowingRemoved int
	LikesAdded       int
	LikesRemoved     int
	LikedRemoved     int
}

// Total is the number of repairs in the report.
func (r ReconcileReport) Total() int {
	return r.FollowersAdded + r.FollowersRemoved + r.FollowingRemoved + r.LikesAdded + r.LikesRemoved + r.LikedRemoved
}

type graphDoc struct {
	ID         string   `bson:"_id"`
	Followers  []string `bson:"followers"`
	Following  []string `bson:"following"`
	LikedPosts []string `bson:"likedPosts"`
}

type likesDoc struct {
	ID    string   `bson:"_id"`
	Likes []string `bson:"likes"`
}

// repair is one idempotent array update on a single document.
type repair struct {
	coll  string
	id    string
	op    string // "$addToSet" or "$pull"
	field string
	value string
}

// plan computes the repairs that make both sides of every relation agree.
// Actor-side sets (following, likedPosts) are authoritative; entries pointing at
// missing documents are dropped.
func plan(accounts []graphDoc, posts []likesDoc) ([]repair, ReconcileReport) {
	var (
		out []repair
		rep ReconcileReport
	)
	acc := make(map[string]graphDoc, len(accounts))
	for _, a := range accounts {
		acc[a.ID] = a
	}
	likes := make(map[string]map[string]bool, len(posts))
	for _, p := range posts {
		likes[p.ID] = set(p.Likes)
	}
	following := make(map[string]map[string]bool, len(accounts))
	liked := make(map[string]map[string]bool, len(accounts))
	for _, a := range accounts {
		following[a.ID] = set(a.Following)
		liked[a.ID] = set(a.LikedPosts)
	}

	for _, a := range accounts {
		for _, f := range a.Following {
			target, ok := acc[f]
			if !ok {
				out = append(out, repair{AccountsCollection, a.ID, "$pull", "following", f})
				rep.FollowingRemoved++
				continue
			}
			if !set(target.Followers)[a.ID] {
				out = append(out, repair{AccountsCollection, f, "$addToSet", "followers", a.ID})
				rep.FollowersAdded++
			}
		}
		for _, x := range a.Followers {
			if !following[x][a.ID] {
				out = append(out, repair{AccountsCollection, a.ID, "$pull", "followers", x})
				rep.FollowersRemoved++
			}
		}
		for _, p := range a.LikedPosts {
			l, ok := likes[p]
			if !ok {
				out = append(out, repair{AccountsCollection, a.ID, "$pull", "likedPosts", p})
				rep.LikedRemoved++
				continue
			}
			if !l[a.ID] {
				out = append(out, repair{PostsCollection, p, "$addToSet", "likes", a.ID})
				rep.LikesAdded++
			}
		}
	}
	for _, p := range posts {
		for _, u := range p.Likes {
			if !liked[u][p.ID] {
				out = append(out, repair{PostsCollection, p.ID, "$pull", "likes", u})
				rep.LikesRemoved++
			}
		}
	}
	return out, rep
}

func set(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

// Reconcile scans accounts and posts and repairs asymmetric follow and like relations.
// With dryRun the report is computed but nothing is written.
func (s *Store) Reconcile(ctx context.Context, dryRun bool) (ReconcileReport, error) {
	accCur, err := s.db.Collection(AccountsCollection).Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"followers": 1, "following": 1, "likedPosts": 1}))
	if err != nil {
		return ReconcileReport{}, err
	}
	var accounts []graphDoc
	if err := accCur.All(ctx, &accounts); err != nil {
		return ReconcileReport{}, err
	}

	postCur, err := s.db.Collection(PostsCollection).Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"likes": 1}))
	if err != nil {
		return ReconcileReport{}, err
	}
	var posts []likesDoc
	if err := postCur.All(ctx, &posts); err != nil {
		return ReconcileReport{}, err
	}

	repairs, rep := plan(accounts, posts)
	if dryRun {
		return rep, nil
	}
	for _, r := range repairs {
		_, err := s.db.Collection(r.coll).UpdateOne(ctx,
			bson.M{"_id": r.id},
			bson.M{r.op: bson.M{r.field: r.value}})
		if err != nil {
			return rep, fmt.Errorf("repair %s %s.%s: %w", r.id, r.coll, r.field, err)
		}
	}
	return rep, nil
}
