package httpapi

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/and161185/chirper/internal/errs"
	"github.com/and161185/chirper/internal/model"
	"github.com/and161185/chirper/internal/service"
	"github.com/goccy/go-json"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

const (
	aliceAccess  = "access-alice"
	aliceRefresh = "refresh-alice"
)

var (
	alice = &model.Account{
		ID:       uuid.Must(uuid.NewV4()),
		FullName: "Alice Liddell",
		Username: "alice",
		Email:    "alice@example.com",
		PwdHash:  []byte("$2a$04$not-for-clients"),
	}
	bob = &model.Account{
		ID:       uuid.Must(uuid.NewV4()),
		FullName: "Bob Builder",
		Username: "bob",
		Email:    "bob@example.com",
	}
)

func aliceTokens() model.Tokens {
	now := time.Now()
	return model.Tokens{
		AccessToken:      aliceAccess,
		RefreshToken:     aliceRefresh,
		AccessExpiresAt:  now.Add(15 * time.Minute),
		RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
	}
}

type fakeAuth struct {
	mu        sync.Mutex
	signupErr error
	loginErr  error
	resetErr  error
	signups   []service.SignupInput
	loginIP   string
	loggedOut []uuid.UUID
	resetTo   string
	resetPwd  string
}

var _ service.AuthService = (*fakeAuth)(nil)

func (f *fakeAuth) Signup(_ context.Context, in service.SignupInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signupErr != nil {
		return f.signupErr
	}
	f.signups = append(f.signups, in)
	return nil
}

func (f *fakeAuth) AuthenticateLocal(_ context.Context, email, password string) (*model.Account, error) {
	if email == alice.Email && password == "secret1" {
		return alice, nil
	}
	return nil, errs.E(errs.ErrUnauthorized, service.MsgBadCredentials)
}

func (f *fakeAuth) AuthenticateToken(_ context.Context, access string) (*model.Account, error) {
	if access == aliceAccess {
		return alice, nil
	}
	return nil, errs.E(errs.ErrForbidden, service.MsgForbiddenToken)
}

func (f *fakeAuth) Login(ctx context.Context, email, password, ip string) (*model.Account, model.Tokens, error) {
	f.mu.Lock()
	f.loginIP = ip
	f.mu.Unlock()
	if f.loginErr != nil {
		return nil, model.Tokens{}, f.loginErr
	}
	acc, err := f.AuthenticateLocal(ctx, email, password)
	if err != nil {
		return nil, model.Tokens{}, err
	}
	return acc, aliceTokens(), nil
}

func (f *fakeAuth) Logout(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedOut = append(f.loggedOut, id)
	return nil
}

func (f *fakeAuth) Refresh(_ context.Context, refresh string) (model.Tokens, error) {
	if refresh != aliceRefresh {
		return model.Tokens{}, errs.E(errs.ErrUnauthorized, service.MsgUnauthorized)
	}
	t := aliceTokens()
	t.AccessToken, t.RefreshToken = "access-rotated", "refresh-rotated"
	return t, nil
}

func (f *fakeAuth) RequestPasswordReset(_ context.Context, email string) error {
	if f.resetErr != nil {
		return f.resetErr
	}
	if email != alice.Email {
		return errs.E(errs.ErrNotFound, service.MsgUserNotExist)
	}
	return nil
}

func (f *fakeAuth) ResetPassword(_ context.Context, token, newPassword string) error {
	if token != "good-token" {
		return errs.E(errs.ErrInvalid, service.MsgResetTokenBad)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetTo, f.resetPwd = token, newPassword
	return nil
}

type fakeSocial struct {
	mu        sync.Mutex
	following map[uuid.UUID]bool
	changes   *model.ProfileChanges
	// staged file existence observed while UpdateProfile ran
	profileStaged bool
}

var _ service.SocialService = (*fakeSocial)(nil)

func (f *fakeSocial) Profile(_ context.Context, username string) (*model.Account, error) {
	switch username {
	case alice.Username:
		return alice, nil
	case bob.Username:
		return bob, nil
	}
	return nil, errs.E(errs.ErrNotFound, service.MsgUserNotFound)
}

func (f *fakeSocial) ToggleFollow(_ context.Context, actor, target uuid.UUID) (bool, error) {
	if actor == target {
		return false, errs.E(errs.ErrConflict, service.MsgSelfFollow)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.following == nil {
		f.following = map[uuid.UUID]bool{}
	}
	f.following[target] = !f.following[target]
	return f.following[target], nil
}

func (f *fakeSocial) Suggested(context.Context, uuid.UUID) ([]model.AccountSummary, error) {
	return []model.AccountSummary{bob.Summary()}, nil
}

func (f *fakeSocial) UpdateProfile(_ context.Context, _ uuid.UUID, ch model.ProfileChanges) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = &ch
	if ch.ProfileImgPath != "" {
		_, err := os.Stat(ch.ProfileImgPath)
		f.profileStaged = err == nil
	}
	out := *alice
	if ch.FullName != "" {
		out.FullName = ch.FullName
	}
	return &out, nil
}

type fakePosts struct {
	mu       sync.Mutex
	allErr   error
	panicAll bool
	liked    map[uuid.UUID]bool
	created  []string
	// staged image existence observed while Create ran
	imgStaged bool
	deleted   []uuid.UUID
}

var _ service.PostService = (*fakePosts)(nil)

func (f *fakePosts) Create(_ context.Context, author uuid.UUID, text, img string) (*model.PostView, error) {
	if img == "" {
		return nil, errs.E(errs.ErrInvalid, service.MsgImageRequired)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := os.Stat(img)
	f.imgStaged = err == nil
	f.created = append(f.created, img)
	return &model.PostView{ID: uuid.Must(uuid.NewV4()), User: alice.Summary(), Text: text, Img: "http://media/x.png"}, nil
}

func (f *fakePosts) Delete(_ context.Context, actor, id uuid.UUID) error {
	if actor != alice.ID {
		return errs.E(errs.ErrForbidden, service.MsgNotPostAuthor)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakePosts) Comment(_ context.Context, actor, id uuid.UUID, text string) (*model.PostView, error) {
	return &model.PostView{
		ID:       id,
		Comments: []model.CommentView{{ID: uuid.Must(uuid.NewV4()), User: alice.Summary(), Text: text}},
	}, nil
}

func (f *fakePosts) ToggleLike(_ context.Context, actor, id uuid.UUID) (bool, []uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.liked == nil {
		f.liked = map[uuid.UUID]bool{}
	}
	f.liked[id] = !f.liked[id]
	if f.liked[id] {
		return true, []uuid.UUID{actor}, nil
	}
	return false, nil, nil
}

func (f *fakePosts) All(context.Context) ([]model.PostView, error) {
	if f.panicAll {
		panic("feed exploded")
	}
	return nil, f.allErr
}

func (f *fakePosts) Following(context.Context, uuid.UUID) ([]model.PostView, error) {
	return []model.PostView{{ID: uuid.Must(uuid.NewV4()), Text: "from bob"}}, nil
}

func (f *fakePosts) ByUsername(_ context.Context, username string) ([]model.PostView, error) {
	if username != alice.Username {
		return nil, errs.E(errs.ErrNotFound, service.MsgUserNotFound)
	}
	return []model.PostView{}, nil
}

func (f *fakePosts) LikedBy(context.Context, uuid.UUID) ([]model.PostView, error) {
	return []model.PostView{}, nil
}

type fakeNotes struct {
	mu      sync.Mutex
	cleared []uuid.UUID
}

var _ service.NotificationService = (*fakeNotes)(nil)

func (f *fakeNotes) List(_ context.Context, recipient uuid.UUID) ([]model.NotificationView, error) {
	return []model.NotificationView{{
		ID:   uuid.Must(uuid.NewV4()),
		From: bob.Summary(),
		To:   recipient,
		Type: model.NotificationFollow,
	}}, nil
}

func (f *fakeNotes) DeleteAll(_ context.Context, recipient uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, recipient)
	return nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fixture struct {
	auth   *fakeAuth
	social *fakeSocial
	posts  *fakePosts
	notes  *fakeNotes
	srv    *Server
	h      http.Handler
	tmp    string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	if opts.Upload.TempDir == "" {
		opts.Upload.TempDir = t.TempDir()
	}
	f := &fixture{
		auth:   &fakeAuth{},
		social: &fakeSocial{},
		posts:  &fakePosts{},
		notes:  &fakeNotes{},
		tmp:    opts.Upload.TempDir,
	}
	f.srv = New(f.auth, f.social, f.posts, f.notes, opts, nil, nil)
	f.h = f.srv.Router()
	return f
}

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Stack   string          `json:"stack"`
}

// call runs one request; a non-empty token is sent as the access cookie.
func (f *fixture) call(t *testing.T, method, path, token, contentType string, body io.Reader) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: accessCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)

	var out response
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func (f *fixture) callJSON(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, response) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return f.call(t, method, path, token, "application/json", bytes.NewReader(b))
}

type filePart struct {
	field, name, mime string
	data              []byte
}

func multipartBody(t *testing.T, values map[string]string, files ...filePart) (string, io.Reader) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, fp := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+fp.field+`"; filename="`+fp.name+`"`)
		h.Set("Content-Type", fp.mime)
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(fp.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return mw.FormDataContentType(), &buf
}

func dirEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}
