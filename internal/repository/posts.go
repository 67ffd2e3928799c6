package repository

import (
	"context"

	"github.com/and161185/chirper/internal/model"
	"github.com/gofrs/uuid/v5"
)

// PostRepository provides access to posts, their comments and the like relation.
type PostRepository interface {
	// Create inserts a new post.
	Create(ctx context.Context, p *model.Post) error
	// GetByID loads a post with likes and comments.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Post, error)
	// Delete removes a post together with its likes and comments.
	Delete(ctx context.Context, id uuid.UUID) error
	// AddComment appends a comment to the post.
	AddComment(ctx context.Context, postID uuid.UUID, c model.Comment) error
	// Like records account -> post on both sides. Repeating it is a no-op.
	Like(ctx context.Context, postID, account uuid.UUID) error
	// Unlike removes account -> post on both sides. Repeating it is a no-op.
	Unlike(ctx context.Context, postID, account uuid.UUID) error
	// List returns posts matching the filter, newest first.
	List(ctx context.Context, f model.PostFilter) ([]model.Post, error)
}

// NotificationRepository provides the recipient-owned notification log.
type NotificationRepository interface {
	// Create appends a notification.
	Create(ctx context.Context, n *model.Notification) error
	// ListForRecipient returns the recipient's notifications, newest first.
	ListForRecipient(ctx context.Context, to uuid.UUID) ([]model.Notification, error)
	// MarkAllRead flags every unread notification of the recipient as read.
	MarkAllRead(ctx context.Context, to uuid.UUID) error
	// DeleteAllForRecipient removes every notification of the recipient.
	DeleteAllForRecipient(ctx context.Context, to uuid.UUID) error
}
