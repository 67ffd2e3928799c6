// Package httpapi exposes the REST surface under /api/v1.
package httpapi

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/and161185/chirper/internal/metrics"
	"github.com/and161185/chirper/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

const msgRouteNotFound = "Route not found."

// Pinger reports store reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the router.
type Options struct {
	Production  bool
	CORSOrigins []string
	// BodyLimit caps JSON bodies and the non-file part of multipart bodies.
	BodyLimit int64
	// AuthRateLimit is requests per minute per client IP on /auth; 0 disables it.
	AuthRateLimit int
	// APIRateLimit is requests per minute per client IP on the whole API; 0 disables it.
	APIRateLimit int
	Upload       UploadOptions
	// MediaDir, when set, is served under /media/.
	MediaDir string
	// StaticDir holds the SPA bundle, served in production only.
	StaticDir string
	Store     Pinger
}

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	auth   service.AuthService
	social service.SocialService
	posts  service.PostService
	notes  service.NotificationService

	opts Options
	m    *metrics.Metrics
	log  *zap.Logger
}

// New builds a Server. m may be nil.
func New(
	auth service.AuthService,
	social service.SocialService,
	posts service.PostService,
	notes service.NotificationService,
	opts Options,
	m *metrics.Metrics,
	log *zap.Logger,
) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = 16 << 10
	}
	if opts.Upload.MaxBytes <= 0 {
		opts.Upload.MaxBytes = 5 << 20
	}
	if opts.Upload.TempDir == "" {
		opts.Upload.TempDir = os.TempDir()
	}
	if len(opts.Upload.AllowedMimes) == 0 {
		opts.Upload.AllowedMimes = []string{"image/jpeg", "image/jpg", "image/png"}
	}
	return &Server{auth: auth, social: social, posts: posts, notes: notes, opts: opts, m: m, log: log}
}

// Router wires middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Method(http.MethodGet, "/metrics", s.m.Handler())
	if s.opts.MediaDir != "" {
		r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(s.opts.MediaDir))))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if s.opts.APIRateLimit > 0 {
			r.Use(s.rateLimit(s.opts.APIRateLimit))
		}
		r.Get("/health", s.health)

		r.Route("/auth", func(r chi.Router) {
			if s.opts.AuthRateLimit > 0 {
				r.Use(s.rateLimit(s.opts.AuthRateLimit))
			}
			r.Post("/signup", s.signup)
			r.Post("/login", s.login)
			r.Post("/refresh-token", s.refresh)
			r.Post("/reset-password-request", s.resetRequest)
			r.Post("/reset-password/{token}", s.resetPassword)
			r.Group(func(r chi.Router) {
				r.Use(s.session)
				r.Post("/logout", s.logout)
				r.Get("/current-user", s.currentUser)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.session)

			r.Route("/users", func(r chi.Router) {
				r.Get("/profile/{username}", s.profile)
				r.Get("/suggested", s.suggested)
				r.Post("/follow/{id}", s.follow)
				r.Post("/update", s.updateProfile)
			})

			r.Route("/posts", func(r chi.Router) {
				r.Get("/all", s.allPosts)
				r.Get("/following", s.followingPosts)
				r.Get("/likes/{id}", s.likedPosts)
				r.Get("/user/{username}", s.userPosts)
				r.Post("/", s.createPost)
				r.Post("/like/{id}", s.likePost)
				r.Post("/comment/{id}", s.commentPost)
				r.Delete("/{id}", s.deletePost)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", s.notifications)
				r.Delete("/", s.deleteNotifications)
			})
		})

		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			fail(w, http.StatusNotFound, msgRouteNotFound)
		})
	})

	r.NotFound(s.fallback())
	return r
}

// rateLimit limits by client IP and answers in the JSON envelope.
func (s *Server) rateLimit(perMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			fail(w, http.StatusTooManyRequests, "Too many requests. Try again later.")
		}),
	)
}

// fallback serves the SPA in production and a JSON 404 otherwise.
func (s *Server) fallback() http.HandlerFunc {
	if !s.opts.Production || s.opts.StaticDir == "" {
		return func(w http.ResponseWriter, _ *http.Request) {
			fail(w, http.StatusNotFound, msgRouteNotFound)
		}
	}
	dir := s.opts.StaticDir
	files := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || strings.HasPrefix(r.URL.Path, "/api/") {
			fail(w, http.StatusNotFound, msgRouteNotFound)
			return
		}
		p := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	}
}
