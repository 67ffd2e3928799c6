// Package service contains the application services: authentication and sessions,
// the social graph and profiles, posts and notifications.
package service

import (
	"context"
	"errors"
	"time"

	pkgcrypto "github.com/and161185/chirper/internal/crypto"
	"github.com/and161185/chirper/internal/errs"
	"github.com/and161185/chirper/internal/limiter"
	"github.com/and161185/chirper/internal/mailer"
	"github.com/and161185/chirper/internal/metrics"
	"github.com/and161185/chirper/internal/model"
	"github.com/and161185/chirper/internal/repository"
	"github.com/and161185/chirper/internal/token"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// Client-facing messages of the auth workflow.
const (
	MsgUsernameTaken    = "Username already exists."
	MsgEmailTaken       = "Email already exists."
	MsgBadCredentials   = "Invalid email or password."
	MsgTooManyAttempts  = "Too many login attempts. Try again later."
	MsgUnauthorized     = "Unauthorized request."
	MsgForbiddenToken   = "Access Forbidden. Token may be expired or invalid."
	MsgUserNotExist     = "User does not exist."
	MsgResetMailFailed  = "Failed to send the reset password email."
	MsgResetTokenBad    = "Invalid or expired reset password token."
	MsgTokenIssueFailed = "Failed to generate access and refresh tokens."
)

// DefaultResetTTL bounds how long a reset link stays usable.
const DefaultResetTTL = 30 * time.Minute

// SignupInput carries validated signup fields.
type SignupInput struct {
	FullName string
	Username string
	Email    string
	Password string
}

// AuthService defines the authentication and session lifecycle.
type AuthService interface {
	// Signup creates an account with a hashed password.
	Signup(ctx context.Context, in SignupInput) error
	// AuthenticateLocal checks email and password.
	AuthenticateLocal(ctx context.Context, email, password string) (*model.Account, error)
	// AuthenticateToken resolves the account behind an access token.
	AuthenticateToken(ctx context.Context, access string) (*model.Account, error)
	// Login applies lockout by (email, ip), authenticates and issues a token pair.
	Login(ctx context.Context, email, password, ip string) (*model.Account, model.Tokens, error)
	// Logout clears the stored refresh token.
	Logout(ctx context.Context, accountID uuid.UUID) error
	// Refresh rotates the token pair for the holder of the current refresh token.
	Refresh(ctx context.Context, refresh string) (model.Tokens, error)
	// RequestPasswordReset stores a reset digest and mails the plaintext link.
	RequestPasswordReset(ctx context.Context, email string) error
	// ResetPassword sets a new password for the holder of a live reset token.
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
}

// AuthOptions tunes AuthServiceImpl.
type AuthOptions struct {
	ClientOrigin string
	ResetTTL     time.Duration
	Metrics      *metrics.Metrics
	Log          *zap.Logger
}

type AuthServiceImpl struct {
	accounts repository.AccountRepository
	issuer   *token.Issuer
	hasher   pkgcrypto.Hasher
	lim      limiter.Limiter
	mail     mailer.Sender

	clientOrigin string
	resetTTL     time.Duration
	m            *metrics.Metrics
	log          *zap.Logger
	now          func() time.Time
}

var _ AuthService = (*AuthServiceImpl)(nil)

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(
	accounts repository.AccountRepository,
	issuer *token.Issuer,
	hasher pkgcrypto.Hasher,
	lim limiter.Limiter,
	mail mailer.Sender,
	opts AuthOptions,
) *AuthServiceImpl {
	if lim == nil {
		lim = limiter.Nop{}
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = DefaultResetTTL
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &AuthServiceImpl{
		accounts:     accounts,
		issuer:       issuer,
		hasher:       hasher,
		lim:          lim,
		mail:         mail,
		clientOrigin: opts.ClientOrigin,
		resetTTL:     opts.ResetTTL,
		m:            opts.Metrics,
		log:          opts.Log,
		now:          time.Now,
	}
}

// Signup rejects taken usernames and emails. A lost race with a concurrent signup
// surfaces from the store's unique constraint with the same messages.
func (s *AuthServiceImpl) Signup(ctx context.Context, in SignupInput) error {
	if _, err := s.accounts.GetByUsername(ctx, in.Username); err == nil {
		return errs.E(errs.ErrConflict, MsgUsernameTaken)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	if _, err := s.accounts.GetByEmail(ctx, in.Email); err == nil {
		return errs.E(errs.ErrConflict, MsgEmailTaken)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return err
	}

	hash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		return err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	now := s.now().UTC()
	a := &model.Account{
		ID:        id,
		FullName:  in.FullName,
		Username:  in.Username,
		Email:     in.Email,
		PwdHash:   hash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return conflictOf(err)
	}
	s.m.Auth("signup")
	return nil
}

// AuthenticateLocal never tells a missing account apart from a wrong password.
func (s *AuthServiceImpl) AuthenticateLocal(ctx context.Context, email, password string) (*model.Account, error) {
	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.E(errs.ErrUnauthorized, MsgBadCredentials)
		}
		return nil, err
	}
	if !s.hasher.VerifyPassword(password, a.PwdHash) {
		return nil, errs.E(errs.ErrUnauthorized, MsgBadCredentials)
	}
	return a, nil
}

// AuthenticateToken rejects with ErrForbidden on a bad token or a vanished account.
func (s *AuthServiceImpl) AuthenticateToken(ctx context.Context, access string) (*model.Account, error) {
	if access == "" {
		return nil, errs.E(errs.ErrForbidden, MsgForbiddenToken)
	}
	id, err := s.issuer.VerifyAccess(access)
	if err != nil {
		return nil, errs.Wrap(errs.ErrForbidden, MsgForbiddenToken, err)
	}
	a, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.E(errs.ErrForbidden, MsgForbiddenToken)
		}
		return nil, err
	}
	return a, nil
}

// Login authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) Login(ctx context.Context, email, password, ip string) (*model.Account, model.Tokens, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return nil, model.Tokens{}, err
	}
	if !allowed {
		s.m.Auth("login_locked")
		return nil, model.Tokens{}, errs.E(errs.ErrRateLimited, MsgTooManyAttempts)
	}

	a, err := s.AuthenticateLocal(ctx, email, password)
	if err != nil {
		if !errors.Is(err, errs.ErrUnauthorized) {
			return nil, model.Tokens{}, err
		}
		s.m.Auth("login_failure")
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return nil, model.Tokens{}, errs.E(errs.ErrRateLimited, MsgTooManyAttempts)
		} else if ferr != nil {
			s.log.Warn("limiter failure not recorded", zap.Error(ferr))
		}
		return nil, model.Tokens{}, err
	}

	// best-effort reset of the failure counter
	if err := s.lim.Success(ctx, email, ipHash); err != nil {
		s.log.Warn("limiter reset failed", zap.Error(err))
	}

	tokens, err := s.issuePair(ctx, a.ID)
	if err != nil {
		return nil, model.Tokens{}, err
	}
	s.m.Auth("login_success")
	return a, tokens, nil
}

// Logout leaves the access token valid until it expires; only the refresh path is closed.
func (s *AuthServiceImpl) Logout(ctx context.Context, accountID uuid.UUID) error {
	if err := s.accounts.SetRefreshDigest(ctx, accountID, ""); err != nil {
		return err
	}
	s.m.Auth("logout")
	return nil
}

// Refresh requires the presented token to be the one stored last; a superseded token
// fails even with a valid signature.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refresh string) (model.Tokens, error) {
	if refresh == "" {
		return model.Tokens{}, errs.E(errs.ErrUnauthorized, MsgUnauthorized)
	}
	id, err := s.issuer.VerifyRefresh(refresh)
	if err != nil {
		return model.Tokens{}, errs.Wrap(errs.ErrUnauthorized, MsgUnauthorized, err)
	}
	a, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Tokens{}, errs.E(errs.ErrUnauthorized, MsgUnauthorized)
		}
		return model.Tokens{}, err
	}
	if a.RefreshHash == "" || !pkgcrypto.DigestEqual(refresh, a.RefreshHash) {
		s.m.Auth("refresh_superseded")
		return model.Tokens{}, errs.E(errs.ErrUnauthorized, MsgUnauthorized)
	}
	tokens, err := s.issuePair(ctx, a.ID)
	if err != nil {
		return model.Tokens{}, err
	}
	s.m.Auth("refresh")
	return tokens, nil
}

// RequestPasswordReset keeps the stored digest even when mail delivery fails.
func (s *AuthServiceImpl) RequestPasswordReset(ctx context.Context, email string) error {
	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.E(errs.ErrNotFound, MsgUserNotExist)
		}
		return err
	}

	plain, digest, err := pkgcrypto.NewResetToken()
	if err != nil {
		return err
	}
	if err := s.accounts.SetResetDigest(ctx, a.ID, digest, s.now().Add(s.resetTTL)); err != nil {
		return err
	}

	link := mailer.ResetPasswordLink(s.clientOrigin, plain)
	if err := s.mail.Send(ctx, mailer.ResetPasswordMessage(a.Email, a.FullName, link)); err != nil {
		return errs.Wrap(errs.ErrUpstream, MsgResetMailFailed, err)
	}
	s.m.Auth("reset_request")
	return nil
}

// ResetPassword never touches the password unless the digest matches and has not expired.
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" {
		return errs.E(errs.ErrInvalid, MsgResetTokenBad)
	}
	a, err := s.accounts.GetByResetDigest(ctx, pkgcrypto.Digest(resetToken), s.now())
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.E(errs.ErrInvalid, MsgResetTokenBad)
		}
		return err
	}
	hash, err := s.hasher.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.accounts.CompleteReset(ctx, a.ID, hash); err != nil {
		return err
	}
	s.m.Auth("reset_complete")
	return nil
}

// issuePair signs both tokens and stores the refresh digest, superseding any earlier one.
func (s *AuthServiceImpl) issuePair(ctx context.Context, id uuid.UUID) (model.Tokens, error) {
	access, accessExp, err := s.issuer.Access(id)
	if err != nil {
		return model.Tokens{}, errs.Wrap(errs.ErrInternal, MsgTokenIssueFailed, err)
	}
	refresh, refreshExp, err := s.issuer.Refresh(id)
	if err != nil {
		return model.Tokens{}, errs.Wrap(errs.ErrInternal, MsgTokenIssueFailed, err)
	}
	if err := s.accounts.SetRefreshDigest(ctx, id, pkgcrypto.Digest(refresh)); err != nil {
		return model.Tokens{}, errs.Wrap(errs.ErrInternal, MsgTokenIssueFailed, err)
	}
	return model.Tokens{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// conflictOf maps a storage-level duplicate onto the signup/profile conflict messages.
func conflictOf(err error) error {
	var dup *errs.Duplicate
	if errors.As(err, &dup) {
		switch dup.Field {
		case "email":
			return errs.Wrap(errs.ErrConflict, MsgEmailTaken, err)
		default:
			return errs.Wrap(errs.ErrConflict, MsgUsernameTaken, err)
		}
	}
	return err
}
