package store

import (
	"errors"

	"movielist/pkg/domain"
)

var (
	// ErrMovieExists signals a duplicate movie identifier on add.
	ErrMovieExists = errors.New("movie already exists")
	// ErrMovieNotFound signals an absent movie row. Deleting a missing
	// identifier is an error, not a no-op.
	ErrMovieNotFound = errors.New("movie not found")
	// ErrUserNotFound signals an absent user row.
	ErrUserNotFound = errors.New("user not found")
)

// Store defines persistence operations for movies, tags, and users.
// It is the only sanctioned path to the relational store.
type Store interface {
	// movies
	ListMovies() ([]domain.Movie, error)
	GetMovie(id string) (domain.Movie, bool, error)
	AddMovie(domain.Movie) error
	DeleteMovie(id string) error

	// tags
	ListTags() ([]domain.Tag, error)
	TagMovie(movieID, tagName string) (domain.Tag, error)

	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	UserCount() (int, error)

	// favorites
	FavoriteMovie(userID, movieID string) error
	ListFavorites(userID string) ([]domain.Movie, error)
}

// SessionStore persists session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
