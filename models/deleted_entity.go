package models

import (
	"time"

	"gorm.io/datatypes"
)

// JunctionSnapshot ist der Schnappschuss einer Junction-Zeile im Backup.
type JunctionSnapshot struct {
	LectureID        uint   `json:"lecture_id"`
	RelationshipType string `json:"relationship_type"`
}

// DeletedEntity ist das Soft-Delete-Backup einer Katalog-Entity.
// Lebenszyklus: einmal geschrieben beim Löschen, einmal gelesen beim
// Restore, danach entfernt. Ein Staging-Bereich, kein Archiv.
type DeletedEntity struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	OriginalID  uint   `json:"original_id" gorm:"not null"`
	EntityType  string `json:"entity_type" gorm:"not null;index"`
	Name        string `json:"name" gorm:"not null"`
	HebrewName  string `json:"hebrew_name,omitempty"`
	Description string `json:"description,omitempty" gorm:"type:text"`

	// Schnappschuss aller Junction-Zeilen zum Löschzeitpunkt
	JunctionData datatypes.JSON `json:"junction_data,omitempty" gorm:"type:jsonb"`

	HasImage       bool   `json:"has_image"`
	StagedImageKey string `json:"staged_image_key,omitempty"`
}

func (DeletedEntity) TableName() string {
	return "deleted_entities"
}
