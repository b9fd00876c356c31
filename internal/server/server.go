package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ryotakamura/notefed/internal/auth"
	"github.com/ryotakamura/notefed/internal/config"
	"github.com/ryotakamura/notefed/internal/db"
	"github.com/ryotakamura/notefed/internal/follow"
	"github.com/ryotakamura/notefed/internal/note"
	"github.com/ryotakamura/notefed/internal/remote"
	"github.com/ryotakamura/notefed/internal/storage"
)

type Server struct {
	db      *db.DB
	jwt     *auth.JWTManager
	notes   *note.Service
	follows *follow.Service
	files   *storage.Store
	cfg     *config.Config
	router  *chi.Mux
	log     zerolog.Logger
}

type contextKey string

const accountContextKey contextKey = "account"

func New(database *db.DB, jwtManager *auth.JWTManager, notes *note.Service,
	follows *follow.Service, files *storage.Store, cfg *config.Config, log zerolog.Logger) *Server {
	s := &Server{
		db:      database,
		jwt:     jwtManager,
		notes:   notes,
		follows: follows,
		files:   files,
		cfg:     cfg,
		router:  chi.NewRouter(),
		log:     log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.router.Use(s.requestLogger)

	authLimiter := NewAuthRateLimiter()
	apiLimiter := NewAPIRateLimiter()

	s.router.Get("/health", s.healthHandler)
	s.router.Get("/files/*", s.serveFileHandler)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(apiLimiter.Middleware)

		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/login", s.loginHandler)
			r.Post("/register", s.registerHandler)
		})

		r.Get("/public/site-info", s.siteInfoHandler)

		r.Route("/follows", func(r chi.Router) {
			// Peer-facing endpoints, no auth.
			r.Post("/follow-from", s.followFromHandler)
			r.Post("/unfollow-from", s.unfollowFromHandler)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Post("/follow", s.followHandler)
				r.Post("/unfollow", s.unfollowHandler)
				r.Get("/list", s.followListHandler)
				r.Get("/follower-list", s.followerListHandler)
				r.Get("/is-following", s.isFollowingHandler)
			})
		})

		r.Route("/notes", func(r chi.Router) {
			r.Post("/public-list", s.publicListHandler)
			r.Post("/public-detail", s.publicDetailHandler)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Post("/list", s.listNotesHandler)
				r.Post("/list-by-ids", s.listByIDsHandler)
				r.Post("/detail", s.noteDetailHandler)
				r.Get("/daily-review-list", s.dailyReviewListHandler)
				r.Post("/review", s.reviewNoteHandler)
				r.Post("/upsert", s.upsertNoteHandler)
				r.Post("/update-many", s.updateManyHandler)
				r.Post("/trash-many", s.trashManyHandler)
				r.Post("/delete-many", s.deleteManyHandler)
				r.Post("/add-reference", s.addReferenceHandler)
				r.Post("/reference-list", s.referenceListHandler)
			})
		})

		r.Route("/files", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/upload", s.uploadFileHandler)
		})
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			jsonError(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			jsonError(w, "invalid authorization header", http.StatusUnauthorized)
			return
		}

		claims, err := s.jwt.Validate(parts[1])
		if err != nil {
			jsonError(w, "invalid token", http.StatusUnauthorized)
			return
		}

		account, err := s.db.GetAccountByID(claims.AccountID)
		if err != nil || account == nil || !account.Active {
			jsonError(w, "account not found or inactive", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), accountContextKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accountFromContext(r *http.Request) *db.Account {
	account, _ := r.Context().Value(accountContextKey).(*db.Account)
	return account
}

func jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, map[string]string{"error": message}, status)
}

// serviceError maps service failures onto the HTTP error taxonomy.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, note.ErrNotFound), errors.Is(err, follow.ErrNotFollowing):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, follow.ErrAlreadyFollowing):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, follow.ErrInvalidSiteURL):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, remote.ErrUpstream):
		jsonError(w, err.Error(), http.StatusBadGateway)
	default:
		s.log.Error().Err(err).Msg("internal error")
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}
