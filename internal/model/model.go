// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects an issued access/refresh pair with their expiries.
type Tokens struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Account is a registered identity. Secret fields never leave the service layer.
type Account struct {
	ID         uuid.UUID
	FullName   string
	Username   string // unique
	Email      string // unique
	PwdHash    []byte // bcrypt
	Bio        string
	Link       string
	ProfileImg string
	CoverImg   string

	Followers  []uuid.UUID
	Following  []uuid.UUID
	LikedPosts []uuid.UUID

	RefreshHash    string     // sha256 hex of the single active refresh token, empty when logged out
	ResetHash      string     // sha256 hex of the pending reset token
	ResetExpiresAt *time.Time // nil when no reset is pending

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsFollowing reports whether a follows other.
func (a *Account) IsFollowing(other uuid.UUID) bool { return contains(a.Following, other) }

// HasLiked reports whether a has liked the post.
func (a *Account) HasLiked(post uuid.UUID) bool { return contains(a.LikedPosts, post) }

// View returns the sanitized projection of a.
func (a *Account) View() AccountView {
	return AccountView{
		ID:         a.ID,
		FullName:   a.FullName,
		Username:   a.Username,
		Email:      a.Email,
		Bio:        a.Bio,
		Link:       a.Link,
		ProfileImg: a.ProfileImg,
		CoverImg:   a.CoverImg,
		Followers:  nonNil(a.Followers),
		Following:  nonNil(a.Following),
		LikedPosts: nonNil(a.LikedPosts),
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// Summary returns the public projection of a.
func (a *Account) Summary() AccountSummary {
	return AccountSummary{ID: a.ID, FullName: a.FullName, Username: a.Username, ProfileImg: a.ProfileImg}
}

// AccountView is an account with secret and token fields stripped.
type AccountView struct {
	ID         uuid.UUID   `json:"_id"`
	FullName   string      `json:"fullName"`
	Username   string      `json:"username"`
	Email      string      `json:"email"`
	Bio        string      `json:"bio"`
	Link       string      `json:"link"`
	ProfileImg string      `json:"profileImg"`
	CoverImg   string      `json:"coverImg"`
	Followers  []uuid.UUID `json:"followers"`
	Following  []uuid.UUID `json:"following"`
	LikedPosts []uuid.UUID `json:"likedPosts"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// AccountSummary is the small public projection embedded in posts, comments and notifications.
type AccountSummary struct {
	ID         uuid.UUID `json:"_id"`
	FullName   string    `json:"fullName,omitempty"`
	Username   string    `json:"username"`
	ProfileImg string    `json:"profileImg"`
}

// ProfileChanges lists the fields an account may change about itself. Empty strings keep the old value.
type ProfileChanges struct {
	FullName        string
	Username        string
	Email           string
	Bio             string
	Link            string
	CurrentPassword string
	NewPassword     string
	ProfileImgPath  string // staged upload, optional
	CoverImgPath    string // staged upload, optional
}

// Comment is an append-only remark on a post.
type Comment struct {
	ID        uuid.UUID
	AuthorID  uuid.UUID
	Text      string
	CreatedAt time.Time
}

// Post is an authored entry with an image and a like set.
type Post struct {
	ID        uuid.UUID
	AuthorID  uuid.UUID
	Text      string
	Img       string
	Likes     []uuid.UUID
	Comments  []Comment
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LikedBy reports whether the account is in the post's like set.
func (p *Post) LikedBy(account uuid.UUID) bool { return contains(p.Likes, account) }

// PostView is a post with author fields resolved for clients.
type PostView struct {
	ID        uuid.UUID      `json:"_id"`
	User      AccountSummary `json:"user"`
	Text      string         `json:"text"`
	Img       string         `json:"img"`
	Likes     []uuid.UUID    `json:"likes"`
	Comments  []CommentView  `json:"comments"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// CommentView is a comment with its author resolved.
type CommentView struct {
	ID        uuid.UUID      `json:"_id"`
	User      AccountSummary `json:"user"`
	Text      string         `json:"text"`
	CreatedAt time.Time      `json:"createdAt"`
}

// FeedKind selects which posts a listing returns.
type FeedKind int

const (
	// FeedAll returns every post.
	FeedAll FeedKind = iota
	// FeedAuthors returns posts authored by any of PostFilter.IDs.
	FeedAuthors
	// FeedPosts returns the posts whose ids are in PostFilter.IDs.
	FeedPosts
)

// PostFilter narrows a post listing. Results are always newest first.
type PostFilter struct {
	Kind FeedKind
	IDs  []uuid.UUID
}

// NotificationType enumerates the events that fan out to a recipient.
type NotificationType string

const (
	NotificationLike   NotificationType = "like"
	NotificationFollow NotificationType = "follow"
)

// Notification is a recipient-owned record of a like or follow.
type Notification struct {
	ID        uuid.UUID
	From      uuid.UUID
	To        uuid.UUID
	Type      NotificationType
	Read      bool
	CreatedAt time.Time
}

// NotificationView is a notification with the sender resolved.
type NotificationView struct {
	ID        uuid.UUID        `json:"_id"`
	From      AccountSummary   `json:"from"`
	To        uuid.UUID        `json:"to"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
