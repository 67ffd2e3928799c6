package postgres

import (
	"context"
	"fmt"

	"github.com/and161185/chirper/internal/errs"
	"github.com/and161185/chirper/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// PostRepo implements PostRepository using PostgreSQL.
type PostRepo struct{ db *DB }

// NewPostRepo constructs a post repository.
func NewPostRepo(db *DB) *PostRepo { return &PostRepo{db: db} }

const postColumns = `
p.id, p.author_id, p.text, p.img, p.created_at, p.updated_at,
ARRAY(SELECT l.account_id::text FROM post_likes l WHERE l.post_id = p.id ORDER BY l.created_at) AS likes`

func scanPost(row pgx.Row) (model.Post, error) {
	var (
		p     model.Post
		likes []string
	)
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Text, &p.Img, &p.CreatedAt, &p.UpdatedAt, &likes); err != nil {
		return model.Post{}, err
	}
	ids, err := parseIDs(likes)
	if err != nil {
		return model.Post{}, fmt.Errorf("likes: %w", err)
	}
	p.Likes = ids
	return p, nil
}

// Create inserts a post row.
func (r *PostRepo) Create(ctx context.Context, p *model.Post) error {
	const q = `
INSERT INTO posts (id, author_id, text, img, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)`
	_, err := r.db.Pool.Exec(ctx, q, p.ID, p.AuthorID, p.Text, p.Img, p.CreatedAt)
	if isForeignKeyViolation(err) {
		return errs.ErrNotFound
	}
	return err
}

// GetByID loads a post with its likes and comments.
func (r *PostRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	q := `SELECT ` + postColumns + ` FROM posts p WHERE p.id=$1`
	p, err := scanPost(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFoundOr(err)
	}
	byPost, err := r.comments(ctx, []uuid.UUID{p.ID})
	if err != nil {
		return nil, err
	}
	p.Comments = byPost[p.ID]
	return &p, nil
}

// Delete removes the post; likes and comments cascade.
func (r *PostRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM posts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// AddComment appends a comment and bumps the post's modification time in one transaction.
func (r *PostRepo) AddComment(ctx context.Context, postID uuid.UUID, c model.Comment) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	tag, err := tx.Exec(ctx, `UPDATE posts SET updated_at=now() WHERE id=$1`, postID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}

	const ins = `INSERT INTO comments (id, post_id, author_id, text, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err = tx.Exec(ctx, ins, c.ID, postID, c.AuthorID, c.Text, c.CreatedAt); err != nil {
		if isForeignKeyViolation(err) {
			return errs.ErrNotFound
		}
		return err
	}
	return nil
}

// Like inserts the post_likes row; the primary key makes repeats a no-op.
func (r *PostRepo) Like(ctx context.Context, postID, account uuid.UUID) error {
	const q = `
INSERT INTO post_likes (post_id, account_id) VALUES ($1, $2)
ON CONFLICT (post_id, account_id) DO NOTHING`
	_, err := r.db.Pool.Exec(ctx, q, postID, account)
	if isForeignKeyViolation(err) {
		return errs.ErrNotFound
	}
	return err
}

// Unlike deletes the post_likes row.
func (r *PostRepo) Unlike(ctx context.Context, postID, account uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM post_likes WHERE post_id=$1 AND account_id=$2`, postID, account)
	return err
}

// List returns posts for the filter, newest first, with comments attached.
func (r *PostRepo) List(ctx context.Context, f model.PostFilter) ([]model.Post, error) {
	q := `SELECT ` + postColumns + ` FROM posts p`
	var args []any
	switch f.Kind {
	case model.FeedAll:
	case model.FeedAuthors:
		if len(f.IDs) == 0 {
			return []model.Post{}, nil
		}
		q += ` WHERE p.author_id = ANY($1::uuid[])`
		args = append(args, idStrings(f.IDs))
	case model.FeedPosts:
		if len(f.IDs) == 0 {
			return []model.Post{}, nil
		}
		q += ` WHERE p.id = ANY($1::uuid[])`
		args = append(args, idStrings(f.IDs))
	default:
		return nil, fmt.Errorf("list posts: unknown feed kind %d", f.Kind)
	}
	q += ` ORDER BY p.created_at DESC, p.id`

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return posts, nil
	}

	ids := make([]uuid.UUID, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	byPost, err := r.comments(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].Comments = byPost[posts[i].ID]
	}
	return posts, nil
}

// comments loads the comments of several posts, oldest first per post.
func (r *PostRepo) comments(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID][]model.Comment, error) {
	const q = `
SELECT id, post_id, author_id, text, created_at
FROM comments
WHERE post_id = ANY($1::uuid[])
ORDER BY created_at, id`
	rows, err := r.db.Pool.Query(ctx, q, idStrings(postIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]model.Comment, len(postIDs))
	for rows.Next() {
		var (
			c      model.Comment
			postID uuid.UUID
		)
		if err := rows.Scan(&c.ID, &postID, &c.AuthorID, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		out[postID] = append(out[postID], c)
	}
	return out, rows.Err()
}
