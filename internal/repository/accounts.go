// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/and161185/chirper/internal/model"
	"github.com/gofrs/uuid/v5"
)

// AccountRepository provides access to accounts and the follow graph.
type AccountRepository interface {
	// Create inserts a new account; a taken username or email yields errs.ErrAlreadyExists.
	Create(ctx context.Context, a *model.Account) error
	// GetByID loads an account by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	// GetByUsername loads an account by username.
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	// GetByEmail loads an account by email.
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	// GetByResetDigest loads the account whose pending reset digest matches and has not expired at now.
	GetByResetDigest(ctx context.Context, digest string, now time.Time) (*model.Account, error)
	// UpdateProfile persists identity, profile and password fields of a.
	UpdateProfile(ctx context.Context, a *model.Account) error
	// SetRefreshDigest replaces the single active refresh token digest; empty clears it.
	SetRefreshDigest(ctx context.Context, id uuid.UUID, digest string) error
	// SetResetDigest stores a pending reset digest with its expiry, replacing any earlier one.
	SetResetDigest(ctx context.Context, id uuid.UUID, digest string, expiresAt time.Time) error
	// CompleteReset stores a new password hash and clears both reset fields.
	CompleteReset(ctx context.Context, id uuid.UUID, pwdHash []byte) error
	// Follow records actor -> target on both sides. Repeating it is a no-op.
	Follow(ctx context.Context, actor, target uuid.UUID) error
	// Unfollow removes actor -> target on both sides. Repeating it is a no-op.
	Unfollow(ctx context.Context, actor, target uuid.UUID) error
	// Sample returns up to n random accounts that are neither actor nor followed by actor.
	Sample(ctx context.Context, actor uuid.UUID, n int) ([]model.AccountSummary, error)
	// Summaries resolves public projections for the given IDs; unknown IDs are absent from the map.
	Summaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.AccountSummary, error)
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
