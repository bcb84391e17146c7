package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"lecture-admin/models"
)

// EntityRecord ist die API-Sicht auf eine Katalog-Entity, typgenerisch
// über alle sieben Tabellen.
type EntityRecord struct {
	ID          uint   `json:"id"`
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
	HebrewName  string `json:"hebrew_name,omitempty"`
	Description string `json:"description,omitempty"`
}

// EntityService bündelt das generische CRUD über die Typ-Registry.
type EntityService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewEntityService erstellt eine neue Instanz des EntityService.
func NewEntityService(db *gorm.DB, logger *zap.Logger) *EntityService {
	return &EntityService{DB: db, Logger: logger}
}

// List liefert alle Entities eines Typs.
func (s *EntityService) List(ctx context.Context, entityType string) ([]EntityRecord, error) {
	t, ok := models.TypeByName(entityType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrValidation, entityType)
	}
	rows, err := fetchAllEntities(ctx, s.DB, t)
	if err != nil {
		return nil, err
	}
	records := make([]EntityRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, EntityRecord{
			ID:          row.ID,
			Type:        t.Name,
			DisplayName: row.DisplayName,
			HebrewName:  row.HebrewName,
			Description: row.Description,
		})
	}
	return records, nil
}

// Get liefert eine einzelne Entity.
func (s *EntityService) Get(ctx context.Context, entityType string, id uint) (*EntityRecord, error) {
	t, ok := models.TypeByName(entityType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrValidation, entityType)
	}
	row, err := fetchEntity(ctx, s.DB, t, id)
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, fmt.Errorf("%w: %s %d", ErrNotFound, t.Name, id)
	}
	return &EntityRecord{
		ID:          row.ID,
		Type:        t.Name,
		DisplayName: row.DisplayName,
		HebrewName:  row.HebrewName,
		Description: row.Description,
	}, nil
}

// Create legt eine neue Entity an (manuell oder aus dem
// KI-Extraktions-Confirm-Flow).
func (s *EntityService) Create(ctx context.Context, entityType, name, hebrewName, description string) (*EntityRecord, error) {
	t, ok := models.TypeByName(entityType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrValidation, entityType)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	id, err := insertEntity(ctx, s.DB, t, catalogEntity{
		DisplayName: name,
		HebrewName:  hebrewName,
		Description: description,
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("Entity angelegt", zap.String("type", t.Name), zap.Uint("id", id), zap.String("name", name))
	return &EntityRecord{ID: id, Type: t.Name, DisplayName: name, HebrewName: hebrewName, Description: description}, nil
}

// Patch aktualisiert einzelne Felder. Erlaubt sind der Anzeigename
// ("name" bzw. "title"), hebrew_name und description.
func (s *EntityService) Patch(ctx context.Context, entityType string, id uint, fields map[string]interface{}) (*EntityRecord, error) {
	t, ok := models.TypeByName(entityType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrValidation, entityType)
	}

	updates := map[string]interface{}{}
	for key, val := range fields {
		switch key {
		case "name", "title", "display_name":
			updates[t.NameColumn] = val
		case "hebrew_name":
			updates["hebrew_name"] = val
		case "description":
			updates["description"] = val
		}
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: no updatable fields provided", ErrValidation)
	}

	tx := s.DB.WithContext(ctx).Table(t.Table).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s %d", ErrNotFound, t.Name, id)
	}
	return s.Get(ctx, entityType, id)
}
