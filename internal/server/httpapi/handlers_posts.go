package httpapi

import (
	"net/http"

	"github.com/and161185/chirper/internal/model"
	"github.com/and161185/chirper/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
)

const fieldPostImg = "img"

type postTextRequest struct {
	Text string `json:"text" label:"Text" validate:"required,min=4,max=255"`
}

func (s *Server) allPosts(w http.ResponseWriter, r *http.Request) {
	list, err := s.posts.All(r.Context())
	s.feed(w, r, "All posts retrieved successfully.", list, err)
}

func (s *Server) followingPosts(w http.ResponseWriter, r *http.Request) {
	me, _ := accountFrom(r.Context())
	list, err := s.posts.Following(r.Context(), me.ID)
	s.feed(w, r, "Following posts retrieved successfully.", list, err)
}

func (s *Server) userPosts(w http.ResponseWriter, r *http.Request) {
	list, err := s.posts.ByUsername(r.Context(), chi.URLParam(r, "username"))
	s.feed(w, r, "User posts retrieved successfully.", list, err)
}

func (s *Server) likedPosts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, service.MsgUserNotFound)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.posts.LikedBy(r.Context(), id)
	s.feed(w, r, "Liked posts retrieved successfully.", list, err)
}

func (s *Server) feed(w http.ResponseWriter, r *http.Request, msg string, list []model.PostView, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []model.PostView{}
	}
	ok(w, http.StatusOK, msg, list)
}

// createPost stages the image, creates the post and always removes the staged file.
func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	me, _ := accountFrom(r.Context())

	st, err := s.stage(w, r, fieldPostImg)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer st.Cleanup()

	req := postTextRequest{Text: st.Values["text"]}
	if err := check(&req); err != nil {
		s.writeError(w, r, err)
		return
	}

	post, err := s.posts.Create(r.Context(), me.ID, req.Text, st.Files[fieldPostImg])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "Post created successfully.", post)
}

func (s *Server) likePost(w http.ResponseWriter, r *http.Request) {
	me, _ := accountFrom(r.Context())
	id, err := pathID(r, service.MsgPostNotFound)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	liked, likes, err := s.posts.ToggleLike(r.Context(), me.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if likes == nil {
		likes = []uuid.UUID{}
	}
	msg := "Post unliked successfully."
	if liked {
		msg = "Post liked successfully."
	}
	ok(w, http.StatusOK, msg, likes)
}

func (s *Server) commentPost(w http.ResponseWriter, r *http.Request) {
	me, _ := accountFrom(r.Context())
	id, err := pathID(r, service.MsgPostNotFound)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req postTextRequest
	if err := decode(w, r, s.opts.BodyLimit, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	post, err := s.posts.Comment(r.Context(), me.ID, id, req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Comment added successfully.", post)
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	me, _ := accountFrom(r.Context())
	id, err := pathID(r, service.MsgPostNotFound)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.posts.Delete(r.Context(), me.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Post deleted successfully.", nil)
}
