package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"movielist/pkg/domain"
)

// MemoryStore keeps the catalog in-process. Used in tests; it also counts
// movie list round-trips so memoization contracts can be asserted.
type MemoryStore struct {
	mu        sync.RWMutex
	movies    map[string]domain.Movie
	order     []string
	tags      map[string]domain.Tag // key: tag name
	movieTags map[string][]string   // movie ID -> tag names
	favorites map[string][]string   // user ID -> movie IDs
	users     map[string]domain.User
	email     map[string]string // email -> user ID

	listCalls int
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		movies:    make(map[string]domain.Movie),
		tags:      make(map[string]domain.Tag),
		movieTags: make(map[string][]string),
		favorites: make(map[string][]string),
		users:     make(map[string]domain.User),
		email:     make(map[string]string),
	}
}

// ListMovies returns movies in insertion order with their tags attached.
func (m *MemoryStore) ListMovies() ([]domain.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	res := make([]domain.Movie, 0, len(m.order))
	for _, id := range m.order {
		if movie, ok := m.movies[id]; ok {
			res = append(res, m.withTags(movie))
		}
	}
	return res, nil
}

// ListMovieCalls reports how many store round-trips ListMovies performed.
func (m *MemoryStore) ListMovieCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCalls
}

// GetMovie retrieves a movie by ID.
func (m *MemoryStore) GetMovie(id string) (domain.Movie, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	movie, ok := m.movies[id]
	if !ok {
		return domain.Movie{}, false, nil
	}
	return m.withTags(movie), true, nil
}

// AddMovie stores a movie, rejecting duplicate identifiers.
func (m *MemoryStore) AddMovie(movie domain.Movie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.movies[movie.ID]; exists {
		return ErrMovieExists
	}
	now := time.Now().UTC()
	movie.CreatedAt = now
	movie.UpdatedAt = now
	m.movies[movie.ID] = movie
	m.order = append(m.order, movie.ID)
	return nil
}

// DeleteMovie removes a movie and its associations.
func (m *MemoryStore) DeleteMovie(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.movies[id]; !ok {
		return ErrMovieNotFound
	}
	delete(m.movies, id)
	delete(m.movieTags, id)
	filtered := m.order[:0]
	for _, item := range m.order {
		if item != id {
			filtered = append(filtered, item)
		}
	}
	m.order = filtered
	for userID, ids := range m.favorites {
		kept := ids[:0]
		for _, item := range ids {
			if item != id {
				kept = append(kept, item)
			}
		}
		m.favorites[userID] = kept
	}
	return nil
}

// ListTags returns all tags sorted by name.
func (m *MemoryStore) ListTags() ([]domain.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Tag, 0, len(m.tags))
	for _, t := range m.tags {
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

// TagMovie attaches a tag to a movie, creating the tag on first use.
func (m *MemoryStore) TagMovie(movieID, tagName string) (domain.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.movies[movieID]; !ok {
		return domain.Tag{}, ErrMovieNotFound
	}
	tag, ok := m.tags[tagName]
	if !ok {
		now := time.Now().UTC()
		tag = domain.Tag{ID: uuid.NewString(), Name: tagName, CreatedAt: now, UpdatedAt: now}
		m.tags[tagName] = tag
	}
	for _, name := range m.movieTags[movieID] {
		if name == tagName {
			return tag, nil
		}
	}
	m.movieTags[movieID] = append(m.movieTags[movieID], tagName)
	return tag, nil
}

// SaveUser registers or updates a user.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// UserCount returns number of users.
func (m *MemoryStore) UserCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

// FavoriteMovie links a movie to a user's list.
func (m *MemoryStore) FavoriteMovie(userID, movieID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return ErrUserNotFound
	}
	if _, ok := m.movies[movieID]; !ok {
		return ErrMovieNotFound
	}
	for _, id := range m.favorites[userID] {
		if id == movieID {
			return nil
		}
	}
	m.favorites[userID] = append(m.favorites[userID], movieID)
	return nil
}

// ListFavorites returns the movies linked to the user.
func (m *MemoryStore) ListFavorites(userID string) ([]domain.Movie, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.users[userID]; !ok {
		return nil, ErrUserNotFound
	}
	ids := m.favorites[userID]
	res := make([]domain.Movie, 0, len(ids))
	for _, id := range ids {
		if movie, ok := m.movies[id]; ok {
			res = append(res, m.withTags(movie))
		}
	}
	return res, nil
}

// withTags expects the lock to be held.
func (m *MemoryStore) withTags(movie domain.Movie) domain.Movie {
	names := m.movieTags[movie.ID]
	movie.Tags = make([]domain.Tag, 0, len(names))
	for _, name := range names {
		if tag, ok := m.tags[name]; ok {
			movie.Tags = append(movie.Tags, tag)
		}
	}
	return movie
}
