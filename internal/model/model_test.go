package model

import (
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

func TestAccount_ViewStripsSecrets(t *testing.T) {
	t.Parallel()

	other := uuid.Must(uuid.NewV4())
	a := &Account{
		ID:          uuid.Must(uuid.NewV4()),
		Username:    "alice",
		Email:       "a@example.com",
		PwdHash:     []byte("$2a$12$hash"),
		RefreshHash: "deadbeef",
		ResetHash:   "cafe",
		Following:   []uuid.UUID{other},
	}

	v := a.View()
	require.Equal(t, a.ID, v.ID)
	require.Equal(t, []uuid.UUID{other}, v.Following)
	require.NotNil(t, v.Followers)
	require.NotNil(t, v.LikedPosts)

	require.True(t, a.IsFollowing(other))
	require.False(t, a.IsFollowing(a.ID))
}

func TestPost_LikedBy(t *testing.T) {
	t.Parallel()

	u := uuid.Must(uuid.NewV4())
	p := &Post{Likes: []uuid.UUID{u}}
	require.True(t, p.LikedBy(u))
	require.False(t, p.LikedBy(uuid.Must(uuid.NewV4())))
}
