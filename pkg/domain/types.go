package domain

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// Movie is a catalog entry. The ID is assigned by the caller at add time
// (the provider's numeric id coerced to string), never by the store.
type Movie struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	PosterPath  string        `json:"posterPath,omitempty"`
	ReleaseDate string        `json:"releaseDate,omitempty"`
	Meta        *ProviderMeta `json:"meta,omitempty"`
	Tags        []Tag         `json:"tags"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// ProviderMeta carries display-only metrics copied from the search provider.
type ProviderMeta struct {
	GenreIDs    []int   `json:"genreIds,omitempty"`
	Popularity  float64 `json:"popularity,omitempty"`
	VoteAverage float64 `json:"voteAverage,omitempty"`
	VoteCount   int64   `json:"voteCount,omitempty"`
}

type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SearchResult is one item from the external provider. Its numeric ID lives in
// the provider's namespace and never doubles as a persisted Movie ID without
// an explicit string coercion at the add boundary.
type SearchResult struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date"`
	OriginalLanguage string  `json:"original_language"`
	GenreIDs         []int   `json:"genre_ids"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int64   `json:"vote_count"`
	Adult            bool    `json:"adult"`
}

// SearchPage is the provider's paginated result envelope.
type SearchPage struct {
	Page         int            `json:"page"`
	Results      []SearchResult `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

// AddMovieInput is the validated add payload accepted at the API boundary.
type AddMovieInput struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	PosterPath  string        `json:"posterPath"`
	ReleaseDate string        `json:"releaseDate"`
	Meta        *ProviderMeta `json:"meta"`
}

// DeleteMovieCommand identifies the movie to remove.
type DeleteMovieCommand struct {
	MovieID string `json:"movieId"`
}
