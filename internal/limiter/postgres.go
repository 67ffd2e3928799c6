package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of a pgx pool the limiter needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PG keeps one auth_limiter row per (login, ip hash).
type PG struct {
	db     Querier
	policy Policy
	now    func() time.Time
}

var _ Limiter = (*PG)(nil)

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(q Querier, p Policy) *PG {
	return &PG{db: q, policy: p, now: time.Now}
}

const (
	sqlBlockedUntil = `SELECT blocked_until FROM auth_limiter WHERE login=$1 AND ip_hash=$2`

	sqlResetFails = `
INSERT INTO auth_limiter (login, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 0, 'epoch', $3)
ON CONFLICT (login, ip_hash)
DO UPDATE SET fail_count = 0, blocked_until = 'epoch', updated_at = $3`

	// A row older than the window restarts at one failure. The block is set in
	// the same statement once the count reaches the threshold ($4).
	sqlRecordFail = `
INSERT INTO auth_limiter AS l (login, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 1, CASE WHEN $4 <= 1 THEN $6::timestamptz ELSE 'epoch' END, $5)
ON CONFLICT (login, ip_hash) DO UPDATE
SET fail_count = CASE WHEN $5 - l.updated_at > $3::interval THEN 1 ELSE l.fail_count + 1 END,
    blocked_until = CASE
        WHEN (CASE WHEN $5 - l.updated_at > $3::interval THEN 1 ELSE l.fail_count + 1 END) >= $4 THEN $6::timestamptz
        ELSE l.blocked_until END,
    updated_at = $5
RETURNING fail_count, blocked_until`
)

// Allow reports whether a login attempt may proceed, and if not, for how long it stays blocked.
func (l *PG) Allow(ctx context.Context, login string, ipHash []byte) (bool, time.Duration, error) {
	var until time.Time
	err := l.db.QueryRow(ctx, sqlBlockedUntil, login, ipHash).Scan(&until)
	if errors.Is(err, pgx.ErrNoRows) {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	if now := l.now(); until.After(now) {
		return false, until.Sub(now), nil
	}
	return true, 0, nil
}

// Success clears the failure count and any block.
func (l *PG) Success(ctx context.Context, login string, ipHash []byte) error {
	_, err := l.db.Exec(ctx, sqlResetFails, login, ipHash, l.now())
	return err
}

// Failure counts a failed attempt and reports whether the pair is now blocked.
func (l *PG) Failure(ctx context.Context, login string, ipHash []byte) (bool, time.Duration, error) {
	now := l.now()
	var (
		fails int
		until time.Time
	)
	err := l.db.QueryRow(ctx, sqlRecordFail,
		login, ipHash, l.policy.Window, l.policy.MaxFails, now, now.Add(l.policy.BlockFor),
	).Scan(&fails, &until)
	if err != nil {
		return false, 0, err
	}
	if until.After(now) {
		return true, until.Sub(now), nil
	}
	return false, 0, nil
}
