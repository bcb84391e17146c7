package models

import (
	"time"
)

// Course repräsentiert eine Vorlesungsreihe. Kurse sind nicht mit
// Katalog-Entities verknüpfbar und haben daher keine Junction-Tabelle.
type Course struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `json:"name" gorm:"not null"`
	HebrewName  string `json:"hebrew_name,omitempty"`
	Description string `json:"description,omitempty" gorm:"type:text"`

	// Verzeichnis im R2-Bucket, unter dem die Audio-Dateien des Kurses liegen
	R2Dir string `json:"r2_dir" gorm:"uniqueIndex;not null"`
}

// Lecture ist eine einzelne Vorlesung innerhalb eines Kurses.
type Lecture struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CourseID      uint `json:"course_id" gorm:"not null;uniqueIndex:idx_course_lecture"`
	LectureNumber int  `json:"lecture_number" gorm:"not null;uniqueIndex:idx_course_lecture"`

	Title       string `json:"title"`
	HebrewTitle string `json:"hebrew_title,omitempty"`
	Description string `json:"description,omitempty" gorm:"type:text"`
	Transcript  string `json:"transcript,omitempty" gorm:"type:text"`
}
