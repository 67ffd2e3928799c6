package postgres

import (
	"context"

	"github.com/and161185/chirper/internal/errs"
	"github.com/and161185/chirper/internal/model"
	"github.com/gofrs/uuid/v5"
)

// NotificationRepo implements NotificationRepository using PostgreSQL.
type NotificationRepo struct{ db *DB }

// NewNotificationRepo constructs a notification repository.
func NewNotificationRepo(db *DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts a notification row.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	const q = `
INSERT INTO notifications (id, from_id, to_id, type, read, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Pool.Exec(ctx, q, n.ID, n.From, n.To, string(n.Type), n.Read, n.CreatedAt)
	if isForeignKeyViolation(err) {
		return errs.ErrNotFound
	}
	return err
}

// ListForRecipient returns the recipient's notifications, newest first.
func (r *NotificationRepo) ListForRecipient(ctx context.Context, to uuid.UUID) ([]model.Notification, error) {
	const q = `
SELECT id, from_id, to_id, type, read, created_at
FROM notifications
WHERE to_id=$1
ORDER BY created_at DESC, id`
	rows, err := r.db.Pool.Query(ctx, q, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Notification{}
	for rows.Next() {
		var (
			n   model.Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.From, &n.To, &typ, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Type = model.NotificationType(typ)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkAllRead flags the recipient's unread notifications.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, to uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE notifications SET read=true WHERE to_id=$1 AND NOT read`, to)
	return err
}

// DeleteAllForRecipient removes the recipient's notifications.
func (r *NotificationRepo) DeleteAllForRecipient(ctx context.Context, to uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM notifications WHERE to_id=$1`, to)
	return err
}
