package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/and161185/chirper/internal/logging"
	"go.uber.org/zap"
)

type healthReport struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// health pings the store with a short deadline; 503 when it is unreachable.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	rep := healthReport{Status: "ok", Store: "up"}
	if s.opts.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Store.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).Warn("store ping failed", zap.Error(err))
			rep = healthReport{Status: "degraded", Store: "down"}
		}
	}
	s.m.SetStoreUp(rep.Store == "up")

	if rep.Store != "up" {
		writeJSON(w, http.StatusServiceUnavailable, envelope{Success: false, Message: "Store unavailable.", Data: rep})
		return
	}
	ok(w, http.StatusOK, "OK", rep)
}
