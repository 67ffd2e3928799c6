package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/and161185/chirper/internal/errs"
	"github.com/and161185/chirper/internal/limiter"
	"github.com/and161185/chirper/internal/mailer"
	"github.com/and161185/chirper/internal/model"
	"github.com/and161185/chirper/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// fakeStore keeps accounts, posts and notifications in memory and maintains both
// sides of follows and likes the way the real repositories do.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*model.Account
	posts    map[uuid.UUID]*model.Post
	notes    []*model.Notification

	createErr  error
	getErr     error
	followErr  error
	sampleSize int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: map[uuid.UUID]*model.Account{},
		posts:    map[uuid.UUID]*model.Post{},
	}
}

type fakeAccounts struct{ *fakeStore }
type fakePosts struct{ *fakeStore }
type fakeNotifications struct{ *fakeStore }

var (
	_ repository.AccountRepository      = fakeAccounts{}
	_ repository.PostRepository         = fakePosts{}
	_ repository.NotificationRepository = fakeNotifications{}
)

func cloneAccount(a *model.Account) *model.Account {
	c := *a
	c.Followers = append([]uuid.UUID(nil), a.Followers...)
	c.Following = append([]uuid.UUID(nil), a.Following...)
	c.LikedPosts = append([]uuid.UUID(nil), a.LikedPosts...)
	c.PwdHash = append([]byte(nil), a.PwdHash...)
	return &c
}

func clonePost(p *model.Post) *model.Post {
	c := *p
	c.Likes = append([]uuid.UUID(nil), p.Likes...)
	c.Comments = append([]model.Comment(nil), p.Comments...)
	return &c
}

func addID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}

func dropID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (f fakeAccounts) Create(_ context.Context, a *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, v := range f.accounts {
		if v.Username == a.Username {
			return &errs.Duplicate{Field: "username"}
		}
		if v.Email == a.Email {
			return &errs.Duplicate{Field: "email"}
		}
	}
	f.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (f fakeAccounts) find(match func(*model.Account) bool) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, a := range f.accounts {
		if match(a) {
			return cloneAccount(a), nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f fakeAccounts) GetByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	return f.find(func(a *model.Account) bool { return a.ID == id })
}

func (f fakeAccounts) GetByUsername(_ context.Context, username string) (*model.Account, error) {
	return f.find(func(a *model.Account) bool { return a.Username == username })
}

func (f fakeAccounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	return f.find(func(a *model.Account) bool { return a.Email == email })
}

func (f fakeAccounts) GetByResetDigest(_ context.Context, digest string, now time.Time) (*model.Account, error) {
	return f.find(func(a *model.Account) bool {
		return digest != "" && a.ResetHash == digest && a.ResetExpiresAt != nil && a.ResetExpiresAt.After(now)
	})
}

func (f fakeAccounts) update(id uuid.UUID, fn func(a *model.Account)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return errs.ErrNotFound
	}
	fn(a)
	return nil
}

func (f fakeAccounts) UpdateProfile(_ context.Context, a *model.Account) error {
	f.mu.Lock()
	for _, v := range f.accounts {
		if v.ID == a.ID {
			continue
		}
		if v.Username == a.Username {
			f.mu.Unlock()
			return &errs.Duplicate{Field: "username"}
		}
		if v.Email == a.Email {
			f.mu.Unlock()
			return &errs.Duplicate{Field: "email"}
		}
	}
	f.mu.Unlock()
	return f.update(a.ID, func(cur *model.Account) {
		cur.FullName, cur.Username, cur.Email = a.FullName, a.Username, a.Email
		cur.Bio, cur.Link = a.Bio, a.Link
		cur.ProfileImg, cur.CoverImg = a.ProfileImg, a.CoverImg
		cur.PwdHash = append([]byte(nil), a.PwdHash...)
		cur.UpdatedAt = a.UpdatedAt
	})
}

func (f fakeAccounts) SetRefreshDigest(_ context.Context, id uuid.UUID, digest string) error {
	return f.update(id, func(a *model.Account) { a.RefreshHash = digest })
}

func (f fakeAccounts) SetResetDigest(_ context.Context, id uuid.UUID, digest string, exp time.Time) error {
	return f.update(id, func(a *model.Account) {
		a.ResetHash = digest
		a.ResetExpiresAt = &exp
	})
}

func (f fakeAccounts) CompleteReset(_ context.Context, id uuid.UUID, pwdHash []byte) error {
	return f.update(id, func(a *model.Account) {
		a.PwdHash = pwdHash
		a.ResetHash = ""
		a.ResetExpiresAt = nil
	})
}

func (f fakeAccounts) Follow(_ context.Context, actor, target uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.followErr != nil {
		return f.followErr
	}
	a, b := f.accounts[actor], f.accounts[target]
	if a == nil || b == nil {
		return errs.ErrNotFound
	}
	a.Following = addID(a.Following, target)
	b.Followers = addID(b.Followers, actor)
	return nil
}

func (f fakeAccounts) Unfollow(_ context.Context, actor, target uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a := f.accounts[actor]; a != nil {
		a.Following = dropID(a.Following, target)
	}
	if b := f.accounts[target]; b != nil {
		b.Followers = dropID(b.Followers, actor)
	}
	return nil
}

func (f fakeAccounts) Sample(_ context.Context, actor uuid.UUID, n int) ([]model.AccountSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sampleSize = n
	me := f.accounts[actor]
	var out []model.AccountSummary
	for _, a := range f.accounts {
		if a.ID == actor || (me != nil && me.IsFollowing(a.ID)) {
			continue
		}
		out = append(out, a.Summary())
		if len(out) == n {
			break
		}
	}
	return out, nil
}

func (f fakeAccounts) Summaries(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.AccountSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]model.AccountSummary, len(ids))
	for _, id := range ids {
		if a, ok := f.accounts[id]; ok {
			out[id] = a.Summary()
		}
	}
	return out, nil
}

func (f fakeAccounts) Ping(context.Context) error { return nil }

func (f fakePosts) Create(_ context.Context, p *model.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[p.ID] = clonePost(p)
	return nil
}

func (f fakePosts) GetByID(_ context.Context, id uuid.UUID) (*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return clonePost(p), nil
}

func (f fakePosts) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.posts, id)
	for _, a := range f.accounts {
		a.LikedPosts = dropID(a.LikedPosts, id)
	}
	return nil
}

func (f fakePosts) AddComment(_ context.Context, postID uuid.UUID, c model.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return errs.ErrNotFound
	}
	p.Comments = append(p.Comments, c)
	return nil
}

func (f fakePosts) Like(_ context.Context, postID, account uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, a := f.posts[postID], f.accounts[account]
	if p == nil || a == nil {
		return errs.ErrNotFound
	}
	p.Likes = addID(p.Likes, account)
	a.LikedPosts = addID(a.LikedPosts, postID)
	return nil
}

func (f fakePosts) Unlike(_ context.Context, postID, account uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.posts[postID]; p != nil {
		p.Likes = dropID(p.Likes, account)
	}
	if a := f.accounts[account]; a != nil {
		a.LikedPosts = dropID(a.LikedPosts, postID)
	}
	return nil
}

func (f fakePosts) List(_ context.Context, flt model.PostFilter) ([]model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in := func(ids []uuid.UUID, id uuid.UUID) bool {
		for _, v := range ids {
			if v == id {
				return true
			}
		}
		return false
	}
	var out []model.Post
	for _, p := range f.posts {
		switch flt.Kind {
		case model.FeedAuthors:
			if !in(flt.IDs, p.AuthorID) {
				continue
			}
		case model.FeedPosts:
			if !in(flt.IDs, p.ID) {
				continue
			}
		}
		out = append(out, *clonePost(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f fakeNotifications) Create(_ context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *n
	f.notes = append(f.notes, &c)
	return nil
}

func (f fakeNotifications) ListForRecipient(_ context.Context, to uuid.UUID) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Notification
	for i := len(f.notes) - 1; i >= 0; i-- {
		if f.notes[i].To == to {
			out = append(out, *f.notes[i])
		}
	}
	return out, nil
}

func (f fakeNotifications) MarkAllRead(_ context.Context, to uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notes {
		if n.To == to {
			n.Read = true
		}
	}
	return nil
}

func (f fakeNotifications) DeleteAllForRecipient(_ context.Context, to uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.notes[:0]
	for _, n := range f.notes {
		if n.To != to {
			kept = append(kept, n)
		}
	}
	f.notes = kept
	return nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

type fakeMailer struct {
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeImages struct {
	uploaded  []string
	deleted   []string
	uploadErr error
	deleteErr error
	n         int
	// failAfter, when set, fails every upload once that many have succeeded.
	failAfter int
}

func (f *fakeImages) Upload(_ context.Context, path string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if f.failAfter > 0 && len(f.uploaded) >= f.failAfter {
		return "", errBoom
	}
	f.n++
	f.uploaded = append(f.uploaded, path)
	return "https://img.example/chirper/" + uuid.Must(uuid.NewV4()).String() + ".png", nil
}

func (f *fakeImages) Delete(_ context.Context, ref string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, ref)
	return nil
}

type fakePublisher struct {
	got []model.Notification
	err error
}

func (p *fakePublisher) NotificationCreated(_ context.Context, n *model.Notification) error {
	if p.err != nil {
		return p.err
	}
	p.got = append(p.got, *n)
	return nil
}

var errBoom = errors.New("boom")
