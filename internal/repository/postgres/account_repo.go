package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/and161185/chirper/internal/errs"
	"github.com/and161185/chirper/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// AccountRepo implements AccountRepository using PostgreSQL.
// Relationship sets are derived from the follows and post_likes tables, so both sides of
// a follow or like are always the same row.
type AccountRepo struct{ db *DB }

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

const accountColumns = `
a.id, a.full_name, a.username, a.email, a.pwd_hash, a.bio, a.link, a.profile_img, a.cover_img,
a.refresh_digest, a.reset_digest, a.reset_expires_at, a.created_at, a.updated_at,
ARRAY(SELECT f.follower_id::text FROM follows f WHERE f.followee_id = a.id ORDER BY f.created_at) AS followers,
ARRAY(SELECT f.followee_id::text FROM follows f WHERE f.follower_id = a.id ORDER BY f.created_at) AS following,
ARRAY(SELECT l.post_id::text FROM post_likes l WHERE l.account_id = a.id ORDER BY l.created_at) AS liked_posts`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var (
		a                             model.Account
		followers, following, likedBy []string
	)
	err := row.Scan(
		&a.ID, &a.FullName, &a.Username, &a.Email, &a.PwdHash, &a.Bio, &a.Link, &a.ProfileImg, &a.CoverImg,
		&a.RefreshHash, &a.ResetHash, &a.ResetExpiresAt, &a.CreatedAt, &a.UpdatedAt,
		&followers, &following, &likedBy,
	)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if a.Followers, err = parseIDs(followers); err != nil {
		return nil, fmt.Errorf("followers: %w", err)
	}
	if a.Following, err = parseIDs(following); err != nil {
		return nil, fmt.Errorf("following: %w", err)
	}
	if a.LikedPosts, err = parseIDs(likedBy); err != nil {
		return nil, fmt.Errorf("liked posts: %w", err)
	}
	return &a, nil
}

// Create inserts a new account row.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	const q = `
INSERT INTO accounts (id, full_name, username, email, pwd_hash, bio, link, profile_img, cover_img, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`
	_, err := r.db.Pool.Exec(ctx, q, a.ID, a.FullName, a.Username, a.Email, a.PwdHash,
		a.Bio, a.Link, a.ProfileImg, a.CoverImg, a.CreatedAt)
	if isUniqueViolation(err) {
		return duplicateOf(err)
	}
	return err
}

// GetByID selects an account by ID.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.id=$1`
	return scanAccount(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByUsername selects an account by username.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.username=$1`
	return scanAccount(r.db.Pool.QueryRow(ctx, q, username))
}

// GetByEmail selects an account by email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.email=$1`
	return scanAccount(r.db.Pool.QueryRow(ctx, q, email))
}

// GetByResetDigest selects the account holding an unexpired reset digest.
func (r *AccountRepo) GetByResetDigest(ctx context.Context, digest string, now time.Time) (*model.Account, error) {
	if digest == "" {
		return nil, errs.ErrNotFound
	}
	q := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.reset_digest=$1 AND a.reset_expires_at > $2`
	return scanAccount(r.db.Pool.QueryRow(ctx, q, digest, now))
}

// UpdateProfile writes identity, profile and password columns.
func (r *AccountRepo) UpdateProfile(ctx context.Context, a *model.Account) error {
	const q = `
UPDATE accounts
SET full_name=$2, username=$3, email=$4, pwd_hash=$5, bio=$6, link=$7, profile_img=$8, cover_img=$9, updated_at=now()
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, a.ID, a.FullName, a.Username, a.Email, a.PwdHash,
		a.Bio, a.Link, a.ProfileImg, a.CoverImg)
	if isUniqueViolation(err) {
		return duplicateOf(err)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetRefreshDigest overwrites the stored refresh digest.
func (r *AccountRepo) SetRefreshDigest(ctx context.Context, id uuid.UUID, digest string) error {
	const q = `UPDATE accounts SET refresh_digest=$2 WHERE id=$1`
	return r.execOne(ctx, q, id, digest)
}

// SetResetDigest stores a pending reset digest and its expiry.
func (r *AccountRepo) SetResetDigest(ctx context.Context, id uuid.UUID, digest string, expiresAt time.Time) error {
	const q = `UPDATE accounts SET reset_digest=$2, reset_expires_at=$3 WHERE id=$1`
	return r.execOne(ctx, q, id, digest, expiresAt)
}

// CompleteReset replaces the password and clears the reset fields.
func (r *AccountRepo) CompleteReset(ctx context.Context, id uuid.UUID, pwdHash []byte) error {
	const q = `
UPDATE accounts
SET pwd_hash=$2, reset_digest='', reset_expires_at=NULL, updated_at=now()
WHERE id=$1`
	return r.execOne(ctx, q, id, pwdHash)
}

// Follow inserts the follows row; the primary key makes repeats a no-op.
func (r *AccountRepo) Follow(ctx context.Context, actor, target uuid.UUID) error {
	const q = `
INSERT INTO follows (follower_id, followee_id) VALUES ($1, $2)
ON CONFLICT (follower_id, followee_id) DO NOTHING`
	_, err := r.db.Pool.Exec(ctx, q, actor, target)
	if isForeignKeyViolation(err) {
		return errs.ErrNotFound
	}
	return err
}

// Unfollow deletes the follows row.
func (r *AccountRepo) Unfollow(ctx context.Context, actor, target uuid.UUID) error {
	const q = `DELETE FROM follows WHERE follower_id=$1 AND followee_id=$2`
	_, err := r.db.Pool.Exec(ctx, q, actor, target)
	return err
}

// Sample picks random accounts the actor does not follow yet.
func (r *AccountRepo) Sample(ctx context.Context, actor uuid.UUID, n int) ([]model.AccountSummary, error) {
	const q = `
SELECT a.id, a.full_name, a.username, a.profile_img
FROM accounts a
WHERE a.id <> $1
  AND NOT EXISTS (SELECT 1 FROM follows f WHERE f.follower_id = $1 AND f.followee_id = a.id)
ORDER BY random()
LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, actor, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.AccountSummary, 0, n)
	for rows.Next() {
		var s model.AccountSummary
		if err := rows.Scan(&s.ID, &s.FullName, &s.Username, &s.ProfileImg); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Summaries resolves public projections for ids in one round trip.
func (r *AccountRepo) Summaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.AccountSummary, error) {
	out := make(map[uuid.UUID]model.AccountSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	const q = `SELECT id, full_name, username, profile_img FROM accounts WHERE id = ANY($1::uuid[])`
	rows, err := r.db.Pool.Query(ctx, q, idStrings(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s model.AccountSummary
		if err := rows.Scan(&s.ID, &s.FullName, &s.Username, &s.ProfileImg); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}

// Ping checks database reachability.
func (r *AccountRepo) Ping(ctx context.Context) error { return r.db.Ping(ctx) }

func (r *AccountRepo) execOne(ctx context.Context, q string, args ...any) error {
	tag, err := r.db.Pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
