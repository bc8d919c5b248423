package app

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"movielist/internal/auth"
	"movielist/internal/cache"
	"movielist/internal/storage"
	"movielist/internal/store"
	"movielist/internal/util"
	"movielist/pkg/domain"
	"movielist/pkg/poster"
)

// Searcher issues a provider search. Satisfied by *tmdb.Client.
type Searcher interface {
	Search(ctx context.Context, params map[string]string) (domain.SearchPage, error)
}

// Views is the cache-invalidation boundary the workflows talk to.
// Satisfied by *cache.ViewCache.
type Views interface {
	Invalidate(ctx context.Context, path string) error
}

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration
	JWTSecret     string
	PosterQuality string

	Store    store.Store
	Sessions store.SessionStore
	Search   Searcher
	Views    Views
	Mirror   storage.ObjectStore
}

// App wires the repository, the search client, and the view cache together.
// All orchestration between them lives here; handlers stay thin.
type App struct {
	store         store.Store
	sessions      store.SessionStore
	search        Searcher
	views         Views
	mirror        storage.ObjectStore
	posterQuality string
	posterClient  *http.Client
}

// New constructs the application. Dependencies left nil in cfg are built from
// the connection settings, so tests can inject fakes and main can pass config.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.PosterQuality == "" {
		cfg.PosterQuality = poster.DefaultQuality
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		switch {
		case cfg.JWTSecret != "":
			sessionStore = store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL)
		case cfg.RedisAddr != "":
			sessionStore = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
		default:
			return nil, fmt.Errorf("session store required (jwtSecret or redisAddr)")
		}
	}

	views := cfg.Views
	if views == nil {
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("view cache required (redisAddr)")
		}
		views = cache.NewViewCache(cfg.RedisAddr, cfg.RedisPassword, 0)
	}

	if cfg.Search == nil {
		return nil, fmt.Errorf("search client required")
	}

	return &App{
		store:         dataStore,
		sessions:      sessionStore,
		search:        cfg.Search,
		views:         views,
		mirror:        cfg.Mirror,
		posterQuality: cfg.PosterQuality,
		posterClient:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// SearchParams are the supported provider search parameters.
type SearchParams struct {
	Query        string
	Language     string
	Page         string
	IncludeAdult string
}

// SearchMovies queries the provider and returns the page with poster paths
// rewritten to absolute URLs. Provider failures are logged and propagated
// unchanged; there is no retry.
func (a *App) SearchMovies(ctx context.Context, params SearchParams) (domain.SearchPage, error) {
	query := strings.TrimSpace(params.Query)
	if query == "" {
		return domain.SearchPage{}, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	raw := map[string]string{"query": query}
	if params.Language != "" {
		raw["language"] = params.Language
	}
	if params.Page != "" {
		raw["page"] = params.Page
	}
	if params.IncludeAdult != "" {
		raw["include_adult"] = params.IncludeAdult
	}

	page, err := a.search.Search(ctx, raw)
	if err != nil {
		util.LoggerFromContext(ctx).Error("provider search failed", "query", query, "err", err)
		return domain.SearchPage{}, err
	}
	for i := range page.Results {
		page.Results[i] = poster.Normalize(page.Results[i], a.posterQuality)
	}
	return page, nil
}

// AddMovie persists a movie and then invalidates the view for the given
// logical path. The store write strictly precedes the invalidation signal;
// an unreachable cache is logged and tolerated since the row is already
// durable.
func (a *App) AddMovie(ctx context.Context, input domain.AddMovieInput, revalidatePath string) (domain.Movie, error) {
	if err := validateAddMovie(input); err != nil {
		return domain.Movie{}, err
	}
	movie := domain.Movie{
		ID:          strings.TrimSpace(input.ID),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		PosterPath:  input.PosterPath,
		ReleaseDate: input.ReleaseDate,
		Meta:        input.Meta,
	}
	if err := a.store.AddMovie(movie); err != nil {
		return domain.Movie{}, err
	}
	if err := a.views.Invalidate(ctx, revalidatePath); err != nil {
		util.LoggerFromContext(ctx).Warn("view invalidation failed",
			"path", revalidatePath, "movie_id", movie.ID, "err", err)
	}
	a.mirrorPosterAsync(movie)

	added, ok, err := a.store.GetMovie(movie.ID)
	if err != nil || !ok {
		return movie, nil
	}
	return added, nil
}

// DeleteMovie removes a movie and invalidates the same view. Deleting an
// absent identifier surfaces store.ErrMovieNotFound.
func (a *App) DeleteMovie(ctx context.Context, cmd domain.DeleteMovieCommand, revalidatePath string) error {
	id := strings.TrimSpace(cmd.MovieID)
	if id == "" {
		return fmt.Errorf("%w: movieId is required", ErrInvalidInput)
	}
	if err := a.store.DeleteMovie(id); err != nil {
		return err
	}
	if err := a.views.Invalidate(ctx, revalidatePath); err != nil {
		util.LoggerFromContext(ctx).Warn("view invalidation failed",
			"path", revalidatePath, "movie_id", id, "err", err)
	}
	return nil
}

func validateAddMovie(input domain.AddMovieInput) error {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	// IDs originate as the provider's numeric id coerced to string.
	if n, err := strconv.ParseInt(id, 10, 64); err != nil || n < 0 {
		return fmt.Errorf("%w: id must be a non-negative integer string", ErrInvalidInput)
	}
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	return nil
}

// TagMovie attaches a tag to a movie, creating the tag on first use.
func (a *App) TagMovie(movieID, tagName string) (domain.Tag, error) {
	tagName = strings.ToLower(strings.TrimSpace(tagName))
	if tagName == "" {
		return domain.Tag{}, fmt.Errorf("%w: tag name is required", ErrInvalidInput)
	}
	return a.store.TagMovie(movieID, tagName)
}

// ListTags returns all known tags.
func (a *App) ListTags() ([]domain.Tag, error) {
	return a.store.ListTags()
}

// FavoriteMovie adds a movie to the user's personal list.
func (a *App) FavoriteMovie(user domain.User, movieID string) error {
	return a.store.FavoriteMovie(user.ID, movieID)
}

// ListFavorites returns the user's personal list.
func (a *App) ListFavorites(user domain.User) ([]domain.Movie, error) {
	return a.store.ListFavorites(user.ID)
}

// SignUp registers a new user. The first registered user becomes admin.
func (a *App) SignUp(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return domain.User{}, "", fmt.Errorf("%w: email and password required", ErrInvalidInput)
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, "", ErrEmailTaken
	}
	role := domain.RoleUser
	count, err := a.store.UserCount()
	if err != nil {
		return domain.User{}, "", fmt.Errorf("count users: %w", err)
	}
	if count == 0 {
		role = domain.RoleAdmin
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// UserFromToken resolves a user from a session token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

// Logout removes a session token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}
