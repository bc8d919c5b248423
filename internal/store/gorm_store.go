package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"movielist/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations. Error translation is
// enabled so duplicate-key violations map to gorm.ErrDuplicatedKey.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&MovieModel{}, &TagModel{}, &UserModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// ListMovies returns all movies with tags eagerly loaded, ordered by created_at.
func (s *GormStore) ListMovies() ([]domain.Movie, error) {
	var models []MovieModel
	if err := s.db.Preload("Tags").Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Movie, 0, len(models))
	for _, m := range models {
		res = append(res, movieFromModel(m))
	}
	return res, nil
}

// GetMovie retrieves a movie with its tags.
func (s *GormStore) GetMovie(id string) (domain.Movie, bool, error) {
	var model MovieModel
	if err := s.db.Preload("Tags").First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Movie{}, false, nil
		}
		return domain.Movie{}, false, err
	}
	return movieFromModel(model), true, nil
}

// AddMovie inserts a movie row with the caller-assigned identifier.
func (s *GormStore) AddMovie(m domain.Movie) error {
	model := movieToModel(m)
	if err := s.db.Omit(clause.Associations).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrMovieExists
		}
		return err
	}
	return nil
}

// DeleteMovie removes the movie and its join rows.
func (s *GormStore) DeleteMovie(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM movie_tags WHERE movie_model_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM user_movies WHERE movie_model_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&MovieModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMovieNotFound
		}
		return nil
	})
}

// ListTags returns all tags ordered by name.
func (s *GormStore) ListTags() ([]domain.Tag, error) {
	var models []TagModel
	if err := s.db.Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Tag, 0, len(models))
	for _, m := range models {
		res = append(res, tagFromModel(m))
	}
	return res, nil
}

// TagMovie attaches a tag to a movie, creating the tag on first use.
func (s *GormStore) TagMovie(movieID, tagName string) (domain.Tag, error) {
	var movie MovieModel
	if err := s.db.First(&movie, "id = ?", movieID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Tag{}, ErrMovieNotFound
		}
		return domain.Tag{}, err
	}
	now := time.Now().UTC()
	tag := TagModel{ID: uuid.NewString(), Name: tagName, CreatedAt: now, UpdatedAt: now}
	if err := s.db.Where(TagModel{Name: tagName}).FirstOrCreate(&tag).Error; err != nil {
		return domain.Tag{}, err
	}
	if err := s.db.Model(&movie).Association("Tags").Append(&tag); err != nil {
		return domain.Tag{}, err
	}
	return tagFromModel(tag), nil
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "password_hash", "role", "updated_at"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// UserCount returns number of users.
func (s *GormStore) UserCount() (int, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// FavoriteMovie links a movie to a user's list.
func (s *GormStore) FavoriteMovie(userID, movieID string) error {
	var user UserModel
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	var movie MovieModel
	if err := s.db.First(&movie, "id = ?", movieID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMovieNotFound
		}
		return err
	}
	return s.db.Model(&user).Association("Movies").Append(&movie)
}

// ListFavorites returns the movies linked to the user, tags included.
func (s *GormStore) ListFavorites(userID string) ([]domain.Movie, error) {
	var user UserModel
	if err := s.db.Preload("Movies.Tags").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	res := make([]domain.Movie, 0, len(user.Movies))
	for _, m := range user.Movies {
		res = append(res, movieFromModel(m))
	}
	return res, nil
}

func movieToModel(m domain.Movie) MovieModel {
	now := time.Now().UTC()
	model := MovieModel{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		PosterPath:  m.PosterPath,
		ReleaseDate: m.ReleaseDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if m.Meta != nil {
		if raw, err := json.Marshal(m.Meta); err == nil {
			model.Meta = raw
		}
	}
	return model
}

func movieFromModel(m MovieModel) domain.Movie {
	movie := domain.Movie{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		PosterPath:  m.PosterPath,
		ReleaseDate: m.ReleaseDate,
		Tags:        make([]domain.Tag, 0, len(m.Tags)),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	for _, t := range m.Tags {
		movie.Tags = append(movie.Tags, tagFromModel(t))
	}
	if len(m.Meta) > 0 {
		var meta domain.ProviderMeta
		if err := json.Unmarshal(m.Meta, &meta); err == nil {
			movie.Meta = &meta
		}
	}
	return movie
}

func tagFromModel(m TagModel) domain.Tag {
	return domain.Tag{
		ID:        m.ID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
