package httpapi

import (
	"net/http"

	"github.com/and161185/chirper/internal/errs"
	"github.com/and161185/chirper/internal/service"
	"github.com/go-chi/chi/v5"
)

type signupRequest struct {
	FullName string `json:"fullName" label:"Full Name" validate:"required,min=4,max=255"`
	Username string `json:"username" label:"Username" validate:"required,min=4,max=255"`
	Email    string `json:"email" label:"Email" validate:"required,email,max=255"`
	Password string `json:"password" label:"Password" validate:"required,min=6,max=255"`
}

type loginRequest struct {
	Email    string `json:"email" label:"Email" validate:"required,email"`
	Password string `json:"password" label:"Password" validate:"required,min=6,max=255"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type resetRequest struct {
	Email string `json:"email" label:"Email" validate:"required,email"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword" label:"New Password" validate:"required,min=6,max=255"`
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decode(w, r, s.opts.BodyLimit, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	err := s.auth.Signup(r.Context(), service.SignupInput{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "User registered successfully.", nil)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, s.opts.BodyLimit, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	acc, tokens, err := s.auth.Login(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setSessionCookies(w, tokens)
	ok(w, http.StatusOK, "User logged in successfully.", acc.View())
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	acc, _ := accountFrom(r.Context())
	if err := s.auth.Logout(r.Context(), acc.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	clearSessionCookies(w)
	ok(w, http.StatusOK, "User logged out successfully.", nil)
}

// refresh takes the refresh cookie, or a JSON body for clients without cookies.
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	token := cookieValue(r, refreshCookie)
	if token == "" && r.ContentLength != 0 {
		var req refreshRequest
		if err := decode(w, r, s.opts.BodyLimit, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		s.writeError(w, r, errs.E(errs.ErrUnauthorized, service.MsgUnauthorized))
		return
	}

	tokens, err := s.auth.Refresh(r.Context(), token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setSessionCookies(w, tokens)
	ok(w, http.StatusOK, "Access token refreshed.", nil)
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) {
	acc, _ := accountFrom(r.Context())
	ok(w, http.StatusOK, "User fetched successfully.", acc.View())
}

func (s *Server) resetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decode(w, r, s.opts.BodyLimit, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Reset password email sent.", nil)
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decode(w, r, s.opts.BodyLimit, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.auth.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Password reset successfully.", nil)
}
