// Package api exposes the wishlist service as a JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/chcemmat/internal/actor"
	"github.com/Kerhoff/chcemmat/internal/auth"
	"github.com/Kerhoff/chcemmat/internal/metrics"
	"github.com/Kerhoff/chcemmat/internal/service"
)

// maxJSONBody caps request bodies of JSON endpoints
const maxJSONBody = 1 << 20

// ImageUploader stores an uploaded image and returns its public URL
type ImageUploader interface {
	UploadImage(ctx context.Context, folder string, r io.Reader, size int64, contentType string) (string, error)
}

// Options configures the HTTP layer
type Options struct {
	RequestTimeout time.Duration
	CORSOrigins    []string
	// Images is optional. Without it the upload endpoint answers 503.
	Images  ImageUploader
	Metrics *metrics.Metrics
}

// Server provides the HTTP API.
type Server struct {
	svc     *service.Service
	images  ImageUploader
	metrics *metrics.Metrics
	logger  *logrus.Logger
	opts    Options
	router  chi.Router
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, opts Options, logger *logrus.Logger) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	s := &Server{
		svc:     svc,
		images:  opts.Images,
		metrics: opts.Metrics,
		logger:  logger,
		opts:    opts,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	r := s.router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Accept-Language"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))
	r.Use(s.authenticate)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// Identity
		r.Post("/auth/signup", s.handleSignUp)
		r.Post("/auth/signin", s.handleSignIn)
		r.Post("/auth/signout", s.handleSignOut)
		r.Put("/auth/password", s.handleUpdatePassword)
		r.Get("/me", s.handleMe)

		// Shared wishlists and contact form are public
		r.Get("/shared/{slug}", s.handlePublicWishlist)
		r.Post("/contact", s.handleContact)

		// Items and reservations are guarded by row-level policies
		r.Get("/wishlists/{id}/items", s.handleListItems)
		r.Post("/wishlists/{id}/items", s.handleCreateItem)
		r.Put("/items/{id}", s.handleUpdateItem)
		r.Delete("/items/{id}", s.handleDeleteItem)
		r.Post("/items/{id}/reserve", s.handleReserve)
		r.Delete("/reservations/{id}", s.handleCancelReservation)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.Put("/profile", s.handleUpdateProfile)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/wishlists", s.handleListWishlists)
			r.Post("/wishlists", s.handleCreateWishlist)
			r.Put("/wishlists/{id}", s.handleUpdateWishlist)
			r.Delete("/wishlists/{id}", s.handleDeleteWishlist)
			r.Post("/images", s.handleUploadImage)
			r.Get("/items/{id}/reservation", s.handleGetReservation)
		})
	})
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

type sessionKey struct{}

// authenticate resolves the bearer token into the request actor. Requests
// without a valid session continue as the anonymous actor.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		if session := s.svc.Identity.CurrentSession(ctx, token); session != nil {
			ctx = actor.WithActor(ctx, actor.User(session.User.ID))
			ctx = context.WithValue(ctx, sessionKey{}, session)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireUser rejects anonymous requests
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessionFrom(r.Context()) == nil {
			s.respondErr(w, r, errUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			elapsed := time.Since(start)
			route := routePattern(r)
			s.metrics.ObserveHTTP(r.Method, route, ww.Status(), elapsed)

			entry := s.logger.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"route":      route,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"elapsed":    elapsed.String(),
				"remote":     r.RemoteAddr,
			})
			if ww.Status() >= http.StatusInternalServerError {
				entry.Warn("Request failed")
				return
			}
			entry.Debug("Request served")
		}()

		next.ServeHTTP(ww, r)
	})
}

// routePattern returns the matched chi pattern so metrics do not get one
// label per id.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func sessionFrom(ctx context.Context) *auth.Session {
	session, _ := ctx.Value(sessionKey{}).(*auth.Session)
	return session
}

// userID returns the id of the signed-in user. Only valid behind requireUser.
func userID(r *http.Request) string {
	return sessionFrom(r.Context()).User.ID
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil || r.Body == http.NoBody {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// decode is decodeJSON that answers 400 itself
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	ok, msg := s.decodeJSON(w, r, dst)
	if !ok {
		s.respondErr(w, r, badRequest(msg))
	}
	return ok
}
