package httpapi

import (
	"net/http"

	"github.com/and161185/chirper/internal/model"
)

func (s *Server) notifications(w http.ResponseWriter, r *http.Request) {
	me, _ := accountFrom(r.Context())
	list, err := s.notes.List(r.Context(), me.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []model.NotificationView{}
	}
	ok(w, http.StatusOK, "Notifications retrieved successfully.", list)
}

func (s *Server) deleteNotifications(w http.ResponseWriter, r *http.Request) {
	me, _ := accountFrom(r.Context())
	if err := s.notes.DeleteAll(r.Context(), me.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Notifications deleted successfully.", nil)
}
