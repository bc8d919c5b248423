package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type MovieModel struct {
	ID          string `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Description string
	PosterPath  string
	ReleaseDate string
	Meta        datatypes.JSON `gorm:"type:jsonb"`
	Tags        []TagModel     `gorm:"many2many:movie_tags"`
	CreatedAt   time.Time      `gorm:"not null"`
	UpdatedAt   time.Time      `gorm:"not null"`
}

type TagModel struct {
	ID        string    `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type UserModel struct {
	ID           string       `gorm:"primaryKey"`
	Email        string       `gorm:"uniqueIndex;not null"`
	PasswordHash string       `gorm:"not null"`
	Role         string       `gorm:"not null"`
	Movies       []MovieModel `gorm:"many2many:user_movies"`
	Tags         []TagModel   `gorm:"many2many:user_tags"`
	CreatedAt    time.Time    `gorm:"not null"`
	UpdatedAt    time.Time    `gorm:"not null"`
}
