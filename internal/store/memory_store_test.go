package store

import (
	"errors"
	"testing"

	"movielist/pkg/domain"
)

func TestAddThenListRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	err := s.AddMovie(domain.Movie{
		ID:          "42",
		Title:       "Inception",
		Description: "",
		PosterPath:  "/abc.jpg",
	})
	if err != nil {
		t.Fatalf("add movie: %v", err)
	}

	movies, err := s.ListMovies()
	if err != nil {
		t.Fatalf("list movies: %v", err)
	}
	if len(movies) != 1 {
		t.Fatalf("got %d movies, want 1", len(movies))
	}
	if movies[0].ID != "42" || movies[0].Title != "Inception" {
		t.Fatalf("unexpected movie: %+v", movies[0])
	}
}

func TestDuplicateAddFailsAndKeepsOneRow(t *testing.T) {
	s := NewMemoryStore()
	movie := domain.Movie{ID: "42", Title: "Inception"}
	if err := s.AddMovie(movie); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := s.AddMovie(movie); !errors.Is(err, ErrMovieExists) {
		t.Fatalf("second add: got %v, want ErrMovieExists", err)
	}
	movies, err := s.ListMovies()
	if err != nil {
		t.Fatalf("list movies: %v", err)
	}
	if len(movies) != 1 {
		t.Fatalf("got %d rows with id 42, want exactly 1", len(movies))
	}
}

func TestDeleteMissingMovieIsAnError(t *testing.T) {
	s := NewMemoryStore()
	if err := s.DeleteMovie("nope"); !errors.Is(err, ErrMovieNotFound) {
		t.Fatalf("delete missing: got %v, want ErrMovieNotFound", err)
	}
}

func TestDeleteRemovesMovieAndAssociations(t *testing.T) {
	s := NewMemoryStore()
	if err := s.AddMovie(domain.Movie{ID: "42", Title: "Inception"}); err != nil {
		t.Fatalf("add movie: %v", err)
	}
	if _, err := s.TagMovie("42", "heist"); err != nil {
		t.Fatalf("tag movie: %v", err)
	}
	if err := s.SaveUser(domain.User{ID: "u1", Email: "u@example.com"}); err != nil {
		t.Fatalf("save user: %v", err)
	}
	if err := s.FavoriteMovie("u1", "42"); err != nil {
		t.Fatalf("favorite: %v", err)
	}

	if err := s.DeleteMovie("42"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	movies, _ := s.ListMovies()
	if len(movies) != 0 {
		t.Fatalf("movies remain after delete: %+v", movies)
	}
	favorites, err := s.ListFavorites("u1")
	if err != nil {
		t.Fatalf("list favorites: %v", err)
	}
	if len(favorites) != 0 {
		t.Fatalf("favorites remain after delete: %+v", favorites)
	}
}

func TestTagsEagerlyLoadedOnList(t *testing.T) {
	s := NewMemoryStore()
	if err := s.AddMovie(domain.Movie{ID: "42", Title: "Inception"}); err != nil {
		t.Fatalf("add movie: %v", err)
	}
	tag, err := s.TagMovie("42", "heist")
	if err != nil {
		t.Fatalf("tag movie: %v", err)
	}
	if tag.ID == "" || tag.Name != "heist" {
		t.Fatalf("unexpected tag: %+v", tag)
	}
	// Same name reuses the tag.
	again, err := s.TagMovie("42", "heist")
	if err != nil {
		t.Fatalf("re-tag movie: %v", err)
	}
	if again.ID != tag.ID {
		t.Fatalf("tag recreated: %q vs %q", again.ID, tag.ID)
	}

	movies, _ := s.ListMovies()
	if len(movies) != 1 || len(movies[0].Tags) != 1 || movies[0].Tags[0].Name != "heist" {
		t.Fatalf("tags not eagerly loaded: %+v", movies)
	}
}

func TestTagMissingMovie(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.TagMovie("nope", "heist"); !errors.Is(err, ErrMovieNotFound) {
		t.Fatalf("tag missing movie: got %v, want ErrMovieNotFound", err)
	}
}

func TestFavoritesRequireExistingUserAndMovie(t *testing.T) {
	s := NewMemoryStore()
	if err := s.SaveUser(domain.User{ID: "u1", Email: "u@example.com"}); err != nil {
		t.Fatalf("save user: %v", err)
	}
	if err := s.FavoriteMovie("u1", "42"); !errors.Is(err, ErrMovieNotFound) {
		t.Fatalf("favorite missing movie: got %v", err)
	}
	if err := s.FavoriteMovie("ghost", "42"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("favorite by missing user: got %v", err)
	}
}
