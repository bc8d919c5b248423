package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"movielist/internal/app"
	"movielist/internal/cache"
	"movielist/internal/ratelimit"
	"movielist/internal/store"
	"movielist/internal/tmdb"
	"movielist/internal/util"
	"movielist/pkg/domain"
)

// listViewPath is the logical path of the cached movie-list view and the
// default revalidation target for writes.
const listViewPath = "/api/movies"

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                      *app.App
	Views                    *cache.ViewCache
	RedisAddr                string
	RedisPassword            string
	SearchRateLimitPerMinute int
	TrustedProxyCIDRs        []string
}

// Server exposes the catalog HTTP endpoints. It is the terminal error
// handler: every taxonomy error maps to a status code here.
type Server struct {
	app           *app.App
	views         *cache.ViewCache
	mux           *http.ServeMux
	searchLimiter *ratelimit.FixedWindowLimiter
	trusted       *util.TrustedProxies
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	searchLimit := cfg.SearchRateLimitPerMinute
	if searchLimit <= 0 {
		searchLimit = 30
	}
	searchLimiter, err := ratelimit.NewRedisFixedWindowLimiter(
		cfg.RedisAddr, cfg.RedisPassword, "movielist:ratelimit:search", searchLimit, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("init search limiter: %w", err)
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	s := &Server{
		app:           cfg.App,
		views:         cfg.Views,
		mux:           http.NewServeMux(),
		searchLimiter: searchLimiter,
		trusted:       trusted,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog("movielist", s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/auth/logout", s.handleLogout)

	// search & catalog (auth required)
	s.mux.Handle("/api/search", s.authenticated(s.handleSearch))
	s.mux.Handle("/api/movies", s.authenticated(s.handleMovies))
	s.mux.Handle("/api/movies/", s.authenticated(s.handleMovieByID))
	s.mux.Handle("/api/tags", s.authenticated(s.handleTags))
	s.mux.Handle("/api/users/me/movies", s.authenticated(s.handleMyMovies))

	// admin
	s.mux.Handle("/api/admin/posters/mirror", s.adminOnly(s.handleMirrorPosters))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) adminOnly(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if user.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) authorize(r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return domain.User{}, false
	}
	return s.app.UserFromToken(token)
}

// auth handlers
type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req authRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.SignUp(req.Email, req.Password)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req authRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.app.Logout(token); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// search
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if !s.allowSearch(w, r) {
		return
	}
	query := r.URL.Query()
	page, err := s.app.SearchMovies(r.Context(), app.SearchParams{
		Query:        query.Get("query"),
		Language:     query.Get("language"),
		Page:         query.Get("page"),
		IncludeAdult: query.Get("include_adult"),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// catalog
type addMovieRequest struct {
	domain.AddMovieInput
	RevalidatePath string `json:"revalidatePath"`
}

func (s *Server) handleMovies(w http.ResponseWriter, r *http.Request, _ domain.User) {
	switch r.Method {
	case http.MethodGet:
		s.writeMovieList(w, r)
	case http.MethodPost:
		var req addMovieRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		path := req.RevalidatePath
		if path == "" {
			path = listViewPath
		}
		movie, err := s.app.AddMovie(r.Context(), req.AddMovieInput, path)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, movie)
	default:
		methodNotAllowed(w)
	}
}

// writeMovieList serves the cached list view. One scope per request keeps the
// store round-trip count at one even when the cache misses and several
// readers rebuild concurrently.
func (s *Server) writeMovieList(w http.ResponseWriter, r *http.Request) {
	scope := s.app.NewScope()
	payload, err := s.views.GetOrFill(r.Context(), listViewPath, func(context.Context) ([]byte, error) {
		movies, err := scope.Movies()
		if err != nil {
			return nil, err
		}
		return json.Marshal(movies)
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *Server) handleMovieByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/movies/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if len(parts) == 1 {
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		cmd := domain.DeleteMovieCommand{MovieID: id}
		if err := s.app.DeleteMovie(r.Context(), cmd, listViewPath); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	switch parts[1] {
	case "tags":
		s.handleMovieTags(w, r, id)
	case "favorite":
		s.handleFavorite(w, r, user, id)
	case "poster":
		s.handlePoster(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

type tagRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleMovieTags(w http.ResponseWriter, r *http.Request, movieID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req tagRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	tag, err := s.app.TagMovie(movieID, req.Name)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

func (s *Server) handleFavorite(w http.ResponseWriter, r *http.Request, user domain.User, movieID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.app.FavoriteMovie(user, movieID); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePoster(w http.ResponseWriter, r *http.Request, movieID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	url, err := s.app.PosterURL(r.Context(), movieID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	tags, err := s.app.ListTags()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": tags, "count": len(tags)})
}

func (s *Server) handleMyMovies(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	movies, err := s.app.ListFavorites(user)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": movies, "count": len(movies)})
}

func (s *Server) handleMirrorPosters(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	mirrored, err := s.app.MirrorMissingPosters(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"mirrored": mirrored})
}

// helpers
func (s *Server) allowSearch(w http.ResponseWriter, r *http.Request) bool {
	key := util.ClientIP(r, s.trusted)
	if s.searchLimiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "too many search requests")
	return false
}

func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *tmdb.APIError
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, app.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email already exists")
	case errors.Is(err, store.ErrMovieExists):
		writeError(w, http.StatusConflict, "movie already exists")
	case errors.Is(err, store.ErrMovieNotFound):
		writeError(w, http.StatusNotFound, "movie not found")
	case errors.Is(err, store.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, app.ErrMirrorDisabled), errors.Is(err, app.ErrPosterNotMirrored):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway, "search provider error: "+apiErr.Message)
	default:
		slog.Error("request failed", "path", r.URL.Path, "method", r.Method,
			"request_id", util.RequestIDFromRequest(r), "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
