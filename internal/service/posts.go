package service

import (
	"context"
	"errors"
	"time"

	"github.com/and161185/chirper/internal/errs"
	"github.com/and161185/chirper/internal/imagestore"
	"github.com/and161185/chirper/internal/model"
	"github.com/and161185/chirper/internal/repository"
	"github.com/gofrs/uuid/v5"
)

const (
	MsgImageRequired     = "Please upload an image."
	MsgImageUploadFailed = "Failed to upload image."
	MsgPostNotFound      = "Post not found."
	MsgNotPostAuthor     = "You are not authorized to delete this post."
	MsgPostDeleteFailed  = "Failed to delete post."
)

// PostService covers posts, comments, likes and feeds.
type PostService interface {
	// Create uploads the staged image and stores a new post.
	Create(ctx context.Context, author uuid.UUID, text, stagedImg string) (*model.PostView, error)
	// Delete removes the stored image and then the post. Only the author may delete.
	Delete(ctx context.Context, actor, postID uuid.UUID) error
	// Comment appends a comment and returns the updated post.
	Comment(ctx context.Context, actor, postID uuid.UUID, text string) (*model.PostView, error)
	// ToggleLike likes or unlikes the post and returns the new state with the resulting like set.
	ToggleLike(ctx context.Context, actor, postID uuid.UUID) (liked bool, likes []uuid.UUID, err error)
	// All lists every post.
	All(ctx context.Context) ([]model.PostView, error)
	// Following lists posts authored by accounts the actor follows.
	Following(ctx context.Context, actor uuid.UUID) ([]model.PostView, error)
	// ByUsername lists posts authored by the named account.
	ByUsername(ctx context.Context, username string) ([]model.PostView, error)
	// LikedBy lists posts the account has liked.
	LikedBy(ctx context.Context, account uuid.UUID) ([]model.PostView, error)
}

type PostServiceImpl struct {
	posts    repository.PostRepository
	accounts repository.AccountRepository
	images   imagestore.Store
	notifier *Notifier
	now      func() time.Time
}

var _ PostService = (*PostServiceImpl)(nil)

// NewPostService constructs PostService.
func NewPostService(
	posts repository.PostRepository,
	accounts repository.AccountRepository,
	images imagestore.Store,
	notifier *Notifier,
) *PostServiceImpl {
	return &PostServiceImpl{posts: posts, accounts: accounts, images: images, notifier: notifier, now: time.Now}
}

// Create requires an image. The staged file is removed by the caller on every path.
func (s *PostServiceImpl) Create(ctx context.Context, author uuid.UUID, text, stagedImg string) (*model.PostView, error) {
	if stagedImg == "" {
		return nil, errs.E(errs.ErrInvalid, MsgImageRequired)
	}
	ref, err := s.images.Upload(ctx, stagedImg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrUpstream, MsgImageUploadFailed, err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p := &model.Post{ID: id, AuthorID: author, Text: text, Img: ref, CreatedAt: now, UpdatedAt: now}
	if err := s.posts.Create(ctx, p); err != nil {
		return nil, err
	}

	views, err := s.views(ctx, []model.Post{*p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Delete fails as a whole when the image cannot be removed; the post then stays.
func (s *PostServiceImpl) Delete(ctx context.Context, actor, postID uuid.UUID) error {
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return postNotFound(err)
	}
	if p.AuthorID != actor {
		return errs.E(errs.ErrForbidden, MsgNotPostAuthor)
	}
	if p.Img != "" {
		if err := s.images.Delete(ctx, p.Img); err != nil {
			return errs.Wrap(errs.ErrUpstream, MsgPostDeleteFailed, err)
		}
	}
	return postNotFound(s.posts.Delete(ctx, postID))
}

func (s *PostServiceImpl) Comment(ctx context.Context, actor, postID uuid.UUID, text string) (*model.PostView, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	c := model.Comment{ID: id, AuthorID: actor, Text: text, CreatedAt: s.now().UTC()}
	if err := s.posts.AddComment(ctx, postID, c); err != nil {
		return nil, postNotFound(err)
	}

	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, postNotFound(err)
	}
	views, err := s.views(ctx, []model.Post{*p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ToggleLike decides from the post's like set. Liking someone else's post notifies its author.
func (s *PostServiceImpl) ToggleLike(ctx context.Context, actor, postID uuid.UUID) (bool, []uuid.UUID, error) {
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return false, nil, postNotFound(err)
	}

	if p.LikedBy(actor) {
		if err := s.posts.Unlike(ctx, postID, actor); err != nil {
			return false, nil, postNotFound(err)
		}
		likes := make([]uuid.UUID, 0, len(p.Likes))
		for _, id := range p.Likes {
			if id != actor {
				likes = append(likes, id)
			}
		}
		return false, likes, nil
	}

	if err := s.posts.Like(ctx, postID, actor); err != nil {
		return false, nil, postNotFound(err)
	}
	likes := append(append(make([]uuid.UUID, 0, len(p.Likes)+1), p.Likes...), actor)
	if err := s.notifier.Notify(ctx, model.NotificationLike, actor, p.AuthorID); err != nil {
		return true, likes, err
	}
	return true, likes, nil
}

func (s *PostServiceImpl) All(ctx context.Context) ([]model.PostView, error) {
	return s.list(ctx, model.PostFilter{Kind: model.FeedAll})
}

func (s *PostServiceImpl) Following(ctx context.Context, actor uuid.UUID) ([]model.PostView, error) {
	a, err := s.accounts.GetByID(ctx, actor)
	if err != nil {
		return nil, userNotFound(err)
	}
	return s.list(ctx, model.PostFilter{Kind: model.FeedAuthors, IDs: a.Following})
}

func (s *PostServiceImpl) ByUsername(ctx context.Context, username string) ([]model.PostView, error) {
	a, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, userNotFound(err)
	}
	return s.list(ctx, model.PostFilter{Kind: model.FeedAuthors, IDs: []uuid.UUID{a.ID}})
}

func (s *PostServiceImpl) LikedBy(ctx context.Context, account uuid.UUID) ([]model.PostView, error) {
	a, err := s.accounts.GetByID(ctx, account)
	if err != nil {
		return nil, userNotFound(err)
	}
	return s.list(ctx, model.PostFilter{Kind: model.FeedPosts, IDs: a.LikedPosts})
}

func (s *PostServiceImpl) list(ctx context.Context, f model.PostFilter) ([]model.PostView, error) {
	if f.Kind != model.FeedAll && len(f.IDs) == 0 {
		return []model.PostView{}, nil
	}
	posts, err := s.posts.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, posts)
}

// views resolves post and comment authors with a single summaries lookup.
func (s *PostServiceImpl) views(ctx context.Context, posts []model.Post) ([]model.PostView, error) {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	add := func(id uuid.UUID) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, p := range posts {
		add(p.AuthorID)
		for _, c := range p.Comments {
			add(c.AuthorID)
		}
	}

	who := map[uuid.UUID]model.AccountSummary{}
	if len(ids) > 0 {
		var err error
		if who, err = s.accounts.Summaries(ctx, ids); err != nil {
			return nil, err
		}
	}
	resolve := func(id uuid.UUID) model.AccountSummary {
		if v, ok := who[id]; ok {
			return v
		}
		return model.AccountSummary{ID: id}
	}

	out := make([]model.PostView, 0, len(posts))
	for _, p := range posts {
		comments := make([]model.CommentView, 0, len(p.Comments))
		for _, c := range p.Comments {
			comments = append(comments, model.CommentView{
				ID:        c.ID,
				User:      resolve(c.AuthorID),
				Text:      c.Text,
				CreatedAt: c.CreatedAt,
			})
		}
		likes := p.Likes
		if likes == nil {
			likes = []uuid.UUID{}
		}
		out = append(out, model.PostView{
			ID:        p.ID,
			User:      resolve(p.AuthorID),
			Text:      p.Text,
			Img:       p.Img,
			Likes:     likes,
			Comments:  comments,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		})
	}
	return out, nil
}

func postNotFound(err error) error {
	if err != nil && errors.Is(err, errs.ErrNotFound) {
		return errs.Wrap(errs.ErrNotFound, MsgPostNotFound, err)
	}
	return err
}
