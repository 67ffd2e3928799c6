package httpapi

import (
	"errors"
	"net/http"

	"github.com/and161185/chirper/internal/errs"
	"github.com/and161185/chirper/internal/logging"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const msgInternal = "Internal server error."

// envelope is the uniform response body.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ok writes a success envelope; data may be nil.
func ok(w http.ResponseWriter, status int, msg string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: msg, Data: data})
}

// fail writes a client error with an explicit status.
func fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Message: msg})
}

// statusOf maps an error kind onto an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalid),
		errors.Is(err, errs.ErrConflict),
		errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err. Unclassified failures get a generic message; outside
// production 5xx responses carry the error chain as stack.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	body := envelope{Success: false, Message: errs.Message(err, msgInternal)}

	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed", zap.Error(err))
		if !s.opts.Production {
			body.Stack = err.Error()
		}
	}
	writeJSON(w, status, body)
}
