package service

import (
	"context"
	"errors"
	"time"

	pkgcrypto "github.com/and161185/chirper/internal/crypto"
	"github.com/and161185/chirper/internal/errs"
	"github.com/and161185/chirper/internal/imagestore"
	"github.com/and161185/chirper/internal/model"
	"github.com/and161185/chirper/internal/repository"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

const (
	MsgUserNotFound        = "User not found."
	MsgSelfFollow          = "You cannot follow/unfollow yourself."
	MsgPasswordPair        = "Please provide both current password and new password."
	MsgWrongPassword       = "Current password is incorrect."
	MsgProfileUploadFailed = "Failed to upload profile image."
	MsgCoverUploadFailed   = "Failed to upload cover image."
)

const (
	suggestSample = 10
	suggestLimit  = 4
)

// SocialService covers profiles and the follow graph.
type SocialService interface {
	// Profile loads an account by username.
	Profile(ctx context.Context, username string) (*model.Account, error)
	// ToggleFollow follows or unfollows target and reports the new state.
	ToggleFollow(ctx context.Context, actor, target uuid.UUID) (following bool, err error)
	// Suggested returns a few random accounts the actor does not follow yet.
	Suggested(ctx context.Context, actor uuid.UUID) ([]model.AccountSummary, error)
	// UpdateProfile applies profile changes, optionally replacing images and password.
	UpdateProfile(ctx context.Context, actor uuid.UUID, ch model.ProfileChanges) (*model.Account, error)
}

type SocialServiceImpl struct {
	accounts repository.AccountRepository
	images   imagestore.Store
	hasher   pkgcrypto.Hasher
	notifier *Notifier
	log      *zap.Logger
	now      func() time.Time
}

var _ SocialService = (*SocialServiceImpl)(nil)

// NewSocialService constructs SocialService.
func NewSocialService(
	accounts repository.AccountRepository,
	images imagestore.Store,
	hasher pkgcrypto.Hasher,
	notifier *Notifier,
	log *zap.Logger,
) *SocialServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &SocialServiceImpl{
		accounts: accounts,
		images:   images,
		hasher:   hasher,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

func (s *SocialServiceImpl) Profile(ctx context.Context, username string) (*model.Account, error) {
	a, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, userNotFound(err)
	}
	return a, nil
}

// ToggleFollow decides from the actor's stored following set. The follow notification
// is written only on follow.
func (s *SocialServiceImpl) ToggleFollow(ctx context.Context, actor, target uuid.UUID) (bool, error) {
	if actor == target {
		return false, errs.E(errs.ErrConflict, MsgSelfFollow)
	}
	if _, err := s.accounts.GetByID(ctx, target); err != nil {
		return false, userNotFound(err)
	}
	me, err := s.accounts.GetByID(ctx, actor)
	if err != nil {
		return false, userNotFound(err)
	}

	if me.IsFollowing(target) {
		if err := s.accounts.Unfollow(ctx, actor, target); err != nil {
			return false, userNotFound(err)
		}
		return false, nil
	}

	if err := s.accounts.Follow(ctx, actor, target); err != nil {
		return false, userNotFound(err)
	}
	if err := s.notifier.Notify(ctx, model.NotificationFollow, actor, target); err != nil {
		return true, err
	}
	return true, nil
}

// Suggested samples more candidates than it returns so repeated calls vary.
func (s *SocialServiceImpl) Suggested(ctx context.Context, actor uuid.UUID) ([]model.AccountSummary, error) {
	list, err := s.accounts.Sample(ctx, actor, suggestSample)
	if err != nil {
		return nil, err
	}
	if len(list) > suggestLimit {
		list = list[:suggestLimit]
	}
	if list == nil {
		list = []model.AccountSummary{}
	}
	return list, nil
}

// UpdateProfile keeps old values for empty fields. Staged image files belong to the caller.
func (s *SocialServiceImpl) UpdateProfile(ctx context.Context, actor uuid.UUID, ch model.ProfileChanges) (*model.Account, error) {
	a, err := s.accounts.GetByID(ctx, actor)
	if err != nil {
		return nil, userNotFound(err)
	}

	if (ch.CurrentPassword == "") != (ch.NewPassword == "") {
		return nil, errs.E(errs.ErrInvalid, MsgPasswordPair)
	}
	if ch.CurrentPassword != "" {
		if !s.hasher.VerifyPassword(ch.CurrentPassword, a.PwdHash) {
			return nil, errs.E(errs.ErrInvalid, MsgWrongPassword)
		}
		hash, err := s.hasher.HashPassword(ch.NewPassword)
		if err != nil {
			return nil, err
		}
		a.PwdHash = hash
	}

	// New images are uploaded first; old ones go only once the account row points away from them.
	var fresh, stale []string
	if ch.ProfileImgPath != "" {
		ref, err := s.images.Upload(ctx, ch.ProfileImgPath)
		if err != nil {
			return nil, errs.Wrap(errs.ErrUpstream, MsgProfileUploadFailed, err)
		}
		fresh = append(fresh, ref)
		stale = append(stale, a.ProfileImg)
		a.ProfileImg = ref
	}
	if ch.CoverImgPath != "" {
		ref, err := s.images.Upload(ctx, ch.CoverImgPath)
		if err != nil {
			s.dropImages(ctx, fresh)
			return nil, errs.Wrap(errs.ErrUpstream, MsgCoverUploadFailed, err)
		}
		fresh = append(fresh, ref)
		stale = append(stale, a.CoverImg)
		a.CoverImg = ref
	}

	a.FullName = keep(ch.FullName, a.FullName)
	a.Username = keep(ch.Username, a.Username)
	a.Email = keep(ch.Email, a.Email)
	a.Bio = keep(ch.Bio, a.Bio)
	a.Link = keep(ch.Link, a.Link)
	a.UpdatedAt = s.now().UTC()

	if err := s.accounts.UpdateProfile(ctx, a); err != nil {
		s.dropImages(ctx, fresh)
		return nil, conflictOf(userNotFound(err))
	}
	s.dropImages(ctx, stale)
	return a, nil
}

// dropImages deletes stored images. Failures only leave orphans, so they are logged.
func (s *SocialServiceImpl) dropImages(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := s.images.Delete(ctx, ref); err != nil {
			s.log.Warn("image not deleted", zap.String("ref", ref), zap.Error(err))
		}
	}
}

func keep(v, old string) string {
	if v == "" {
		return old
	}
	return v
}

func userNotFound(err error) error {
	if errors.Is(err, errs.ErrNotFound) {
		return errs.Wrap(errs.ErrNotFound, MsgUserNotFound, err)
	}
	return err
}
