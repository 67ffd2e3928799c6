package httpapi

import (
	"errors"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/and161185/chirper/internal/errs"
	"github.com/and161185/chirper/internal/logging"
	"github.com/and161185/chirper/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// requestLogger attaches a request-scoped logger and logs one line per request:
// method, route, status, duration. Bodies and tokens are never logged.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		l := s.log.With(zap.String("request_id", middleware.GetReqID(r.Context())))
		r = r.WithContext(logging.WithLogger(r.Context(), l))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		s.m.InFlight(1)
		defer func() {
			s.m.InFlight(-1)
			route := routePattern(r)
			d := time.Since(start)
			s.m.ObserveHTTP(r.Method, route, ww.Status(), d)

			lvl := zap.DebugLevel
			if ww.Status() >= http.StatusInternalServerError {
				lvl = zap.WarnLevel
			} else if route != "/metrics" {
				lvl = zap.InfoLevel
			}
			l.Check(lvl, "http").Write(
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", ww.Status()),
				zap.Duration("dur", d),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

// routePattern prefers the matched chi pattern so metrics labels stay bounded.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// recoverer turns a panic into a 500 envelope and logs the stack.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logging.FromContext(r.Context()).Error("panic recovered",
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				body := envelope{Success: false, Message: msgInternal}
				if !s.opts.Production {
					body.Stack = string(debug.Stack())
				}
				writeJSON(w, http.StatusInternalServerError, body)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// session resolves the access token (cookie first, then Bearer header) to an account.
func (s *Server) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := cookieValue(r, accessCookie)
		if token == "" {
			token = bearer(r.Header.Get("Authorization"))
		}

		acc, err := s.auth.AuthenticateToken(r.Context(), token)
		if err != nil {
			if !errors.Is(err, errs.ErrForbidden) && !errors.Is(err, errs.ErrUnauthorized) {
				s.writeError(w, r, err)
				return
			}
			fail(w, http.StatusForbidden, errs.Message(err, service.MsgForbiddenToken))
			return
		}

		ctx := withAccount(r.Context(), acc)
		l := logging.FromContext(ctx).With(zap.String("account_id", acc.ID.String()))
		next.ServeHTTP(w, r.WithContext(logging.WithLogger(ctx, l)))
	})
}

func bearer(h string) string {
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// clientIP returns the host part of RemoteAddr, which RealIP has already rewritten.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
