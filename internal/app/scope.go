package app

import (
	"sync"

	"movielist/pkg/domain"
)

// Scope memoizes the movie list for the lifetime of one request. A scope is
// created when a request arrives and discarded when it completes; it is never
// shared across requests, so one request's snapshot cannot leak into another.
type Scope struct {
	app    *App
	once   sync.Once
	movies []domain.Movie
	err    error
}

// NewScope creates a fresh request scope.
func (a *App) NewScope() *Scope {
	return &Scope{app: a}
}

// Movies returns the persisted movie list, hitting the store at most once per
// scope no matter how often it is called.
func (s *Scope) Movies() ([]domain.Movie, error) {
	s.once.Do(func() {
		s.movies, s.err = s.app.store.ListMovies()
	})
	return s.movies, s.err
}
