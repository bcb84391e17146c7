package models

import (
	"time"
)

// Director ist ein Filmregisseur im Katalog.
type Director struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `json:"name" gorm:"not null;index"`
	HebrewName  string `json:"hebrew_name,omitempty"`
	Description string `json:"description,omitempty" gorm:"type:text"`
}

// Film ist ein in Vorlesungen besprochener Film.
type Film struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title       string `json:"title" gorm:"not null;index"`
	HebrewName  string `json:"hebrew_name,omitempty"`
	Description string `json:"description,omitempty" gorm:"type:text"`
}

// Writer ist ein Schriftsteller im Katalog.
type Writer struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `json:"name" gorm:"not null;index"`
	HebrewName  string `json:"hebrew_name,omitempty"`
	Description string `json:"description,omitempty" gorm:"type:text"`
}

// Book ist ein literarisches Werk.
type Book struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title       string `json:"title" gorm:"not null;index"`
	HebrewName  string `json:"hebrew_name,omitempty"`
	Description string `json:"description,omitempty" gorm:"type:text"`
}

// Painter ist ein Maler im Katalog.
type Painter struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `json:"name" gorm:"not null;index"`
	HebrewName  string `json:"hebrew_name,omitempty"`
	Description string `json:"description,omitempty" gorm:"type:text"`
}

// Painting ist ein Gemälde.
type Painting struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title       string `json:"title" gorm:"not null;index"`
	HebrewName  string `json:"hebrew_name,omitempty"`
	Description string `json:"description,omitempty" gorm:"type:text"`
}

// Philosopher ist ein Philosoph im Katalog.
type Philosopher struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `json:"name" gorm:"not null;index"`
	HebrewName  string `json:"hebrew_name,omitempty"`
	Description string `json:"description,omitempty" gorm:"type:text"`
}
