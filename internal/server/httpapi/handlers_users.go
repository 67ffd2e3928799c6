package httpapi

import (
	"mime"
	"net/http"

	"github.com/and161185/chirper/internal/errs"
	"github.com/and161185/chirper/internal/model"
	"github.com/and161185/chirper/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
)

const (
	fieldProfileImg = "profileImg"
	fieldCoverImg   = "coverImg"
)

type updateProfileRequest struct {
	FullName        string `json:"fullName" label:"Full Name" validate:"omitempty,min=4,max=255"`
	Username        string `json:"username" label:"Username" validate:"omitempty,min=4,max=255"`
	Email           string `json:"email" label:"Email" validate:"omitempty,email,max=255"`
	Bio             string `json:"bio" label:"Bio" validate:"omitempty,min=4,max=255"`
	Link            string `json:"link" label:"Link" validate:"omitempty,min=4,max=255"`
	CurrentPassword string `json:"currentPassword" label:"Current Password" validate:"omitempty,min=6,max=255"`
	NewPassword     string `json:"newPassword" label:"New Password" validate:"omitempty,min=6,max=255"`
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	acc, err := s.social.Profile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "User profile retrieved successfully.", acc.View())
}

func (s *Server) suggested(w http.ResponseWriter, r *http.Request) {
	me, _ := accountFrom(r.Context())
	list, err := s.social.Suggested(r.Context(), me.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Suggested users retrieved successfully.", list)
}

func (s *Server) follow(w http.ResponseWriter, r *http.Request) {
	me, _ := accountFrom(r.Context())
	target, err := pathID(r, service.MsgUserNotFound)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	following, err := s.social.ToggleFollow(r.Context(), me.ID, target)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if following {
		ok(w, http.StatusCreated, "User followed successfully.", nil)
		return
	}
	ok(w, http.StatusOK, "User unfollowed successfully.", nil)
}

// updateProfile accepts multipart (with optional images) or plain JSON.
func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	me, _ := accountFrom(r.Context())

	var (
		req updateProfileRequest
		ch  model.ProfileChanges
	)
	if isMultipart(r) {
		st, err := s.stage(w, r, fieldProfileImg, fieldCoverImg)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		defer st.Cleanup()

		req = updateProfileRequest{
			FullName:        st.Values["fullName"],
			Username:        st.Values["username"],
			Email:           st.Values["email"],
			Bio:             st.Values["bio"],
			Link:            st.Values["link"],
			CurrentPassword: st.Values["currentPassword"],
			NewPassword:     st.Values["newPassword"],
		}
		if err := check(&req); err != nil {
			s.writeError(w, r, err)
			return
		}
		ch.ProfileImgPath = st.Files[fieldProfileImg]
		ch.CoverImgPath = st.Files[fieldCoverImg]
	} else if err := decode(w, r, s.opts.BodyLimit, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ch.FullName = req.FullName
	ch.Username = req.Username
	ch.Email = req.Email
	ch.Bio = req.Bio
	ch.Link = req.Link
	ch.CurrentPassword = req.CurrentPassword
	ch.NewPassword = req.NewPassword

	acc, err := s.social.UpdateProfile(r.Context(), me.ID, ch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Profile updated successfully.", acc.View())
}

// pathID parses the {id} parameter; a malformed id reads as not found.
func pathID(r *http.Request, notFound string) (uuid.UUID, error) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, errs.E(errs.ErrNotFound, notFound)
	}
	return id, nil
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}
