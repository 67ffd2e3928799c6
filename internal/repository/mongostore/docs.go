package mongostore

import (
	"fmt"
	"time"

	"github.com/and161185/chirper/internal/model"
	"github.com/gofrs/uuid/v5"
)

// Documents use string UUIDs as _id so IDs are identical across both storage backends.

type accountDoc struct {
	ID          string     `bson:"_id"`
	FullName    string     `bson:"fullName"`
	Username    string     `bson:"username"`
	Email       string     `bson:"email"`
	Password    []byte     `bson:"password"`
	Bio         string     `bson:"bio"`
	Link        string     `bson:"link"`
	ProfileImg  string     `bson:"profileImg"`
	CoverImg    string     `bson:"coverImg"`
	Followers   []string   `bson:"followers"`
	Following   []string   `bson:"following"`
	LikedPosts  []string   `bson:"likedPosts"`
	Refresh     string     `bson:"refreshToken,omitempty"`
	Reset       string     `bson:"resetPasswordToken,omitempty"`
	ResetExpiry *time.Time `bson:"resetPasswordTokenExpiry,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt"`
}

type summaryDoc struct {
	ID         string `bson:"_id"`
	FullName   string `bson:"fullName"`
	Username   string `bson:"username"`
	ProfileImg string `bson:"profileImg"`
}

type commentDoc struct {
	ID        string    `bson:"_id"`
	User      string    `bson:"user"`
	Text      string    `bson:"text"`
	CreatedAt time.Time `bson:"createdAt"`
}

type postDoc struct {
	ID        string       `bson:"_id"`
	User      string       `bson:"user"`
	Text      string       `bson:"text"`
	Img       string       `bson:"img"`
	Likes     []string     `bson:"likes"`
	Comments  []commentDoc `bson:"comments"`
	CreatedAt time.Time    `bson:"createdAt"`
	UpdatedAt time.Time    `bson:"updatedAt"`
}

type notificationDoc struct {
	ID        string    `bson:"_id"`
	From      string    `bson:"from"`
	To        string    `bson:"to"`
	Type      string    `bson:"type"`
	Read      bool      `bson:"read"`
	CreatedAt time.Time `bson:"createdAt"`
}

func ids(in []uuid.UUID) []string {
	out := make([]string, len(in))
	for i, id := range in {
		out[i] = id.String()
	}
	return out
}

func parseIDs(in []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(in))
	for _, s := range in {
		id, err := uuid.FromString(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func toAccountDoc(a *model.Account) accountDoc {
	return accountDoc{
		ID:          a.ID.String(),
		FullName:    a.FullName,
		Username:    a.Username,
		Email:       a.Email,
		Password:    a.PwdHash,
		Bio:         a.Bio,
		Link:        a.Link,
		ProfileImg:  a.ProfileImg,
		CoverImg:    a.CoverImg,
		Followers:   ids(a.Followers),
		Following:   ids(a.Following),
		LikedPosts:  ids(a.LikedPosts),
		Refresh:     a.RefreshHash,
		Reset:       a.ResetHash,
		ResetExpiry: a.ResetExpiresAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (d accountDoc) model() (*model.Account, error) {
	id, err := uuid.FromString(d.ID)
	if err != nil {
		return nil, fmt.Errorf("account id: %w", err)
	}
	a := &model.Account{
		ID:             id,
		FullName:       d.FullName,
		Username:       d.Username,
		Email:          d.Email,
		PwdHash:        d.Password,
		Bio:            d.Bio,
		Link:           d.Link,
		ProfileImg:     d.ProfileImg,
		CoverImg:       d.CoverImg,
		RefreshHash:    d.Refresh,
		ResetHash:      d.Reset,
		ResetExpiresAt: d.ResetExpiry,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if a.Followers, err = parseIDs(d.Followers); err != nil {
		return nil, fmt.Errorf("followers: %w", err)
	}
	if a.Following, err = parseIDs(d.Following); err != nil {
		return nil, fmt.Errorf("following: %w", err)
	}
	if a.LikedPosts, err = parseIDs(d.LikedPosts); err != nil {
		return nil, fmt.Errorf("liked posts: %w", err)
	}
	return a, nil
}

func (d summaryDoc) model() (model.AccountSummary, error) {
	id, err := uuid.FromString(d.ID)
	if err != nil {
		return model.AccountSummary{}, err
	}
	return model.AccountSummary{ID: id, FullName: d.FullName, Username: d.Username, ProfileImg: d.ProfileImg}, nil
}

func toPostDoc(p *model.Post) postDoc {
	d := postDoc{
		ID:        p.ID.String(),
		User:      p.AuthorID.String(),
		Text:      p.Text,
		Img:       p.Img,
		Likes:     ids(p.Likes),
		Comments:  make([]commentDoc, 0, len(p.Comments)),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	for _, c := range p.Comments {
		d.Comments = append(d.Comments, toCommentDoc(c))
	}
	return d
}

func toCommentDoc(c model.Comment) commentDoc {
	return commentDoc{ID: c.ID.String(), User: c.AuthorID.String(), Text: c.Text, CreatedAt: c.CreatedAt}
}

func (d postDoc) model() (model.Post, error) {
	id, err := uuid.FromString(d.ID)
	if err != nil {
		return model.Post{}, fmt.Errorf("post id: %w", err)
	}
	author, err := uuid.FromString(d.User)
	if err != nil {
		return model.Post{}, fmt.Errorf("post author: %w", err)
	}
	likes, err := parseIDs(d.Likes)
	if err != nil {
		return model.Post{}, fmt.Errorf("likes: %w", err)
	}
	p := model.Post{
		ID:        id,
		AuthorID:  author,
		Text:      d.Text,
		Img:       d.Img,
		Likes:     likes,
		Comments:  make([]model.Comment, 0, len(d.Comments)),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, c := range d.Comments {
		cid, err := uuid.FromString(c.ID)
		if err != nil {
			return model.Post{}, fmt.Errorf("comment id: %w", err)
		}
		cu, err := uuid.FromString(c.User)
		if err != nil {
			return model.Post{}, fmt.Errorf("comment author: %w", err)
		}
		p.Comments = append(p.Comments, model.Comment{ID: cid, AuthorID: cu, Text: c.Text, CreatedAt: c.CreatedAt})
	}
	return p, nil
}

func toNotificationDoc(n *model.Notification) notificationDoc {
	return notificationDoc{
		ID:        n.ID.String(),
		From:      n.From.String(),
		To:        n.To.String(),
		Type:      string(n.Type),
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

func (d notificationDoc) model() (model.Notification, error) {
	id, err := uuid.FromString(d.ID)
	if err != nil {
		return model.Notification{}, err
	}
	from, err := uuid.FromString(d.From)
	if err != nil {
		return model.Notification{}, err
	}
	to, err := uuid.FromString(d.To)
	if err != nil {
		return model.Notification{}, err
	}
	return model.Notification{
		ID:        id,
		From:      from,
		To:        to,
		Type:      model.NotificationType(d.Type),
		Read:      d.Read,
		CreatedAt: d.CreatedAt,
	}, nil
}
