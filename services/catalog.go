package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"lecture-admin/models"
)

// catalogEntity ist die typgenerische Sicht auf eine Entity-Zeile.
// Die Engines arbeiten über die Registry mit Tabellennamen statt mit den
// konkreten Modell-Structs, damit Merge und Restore für alle sieben Typen
// derselbe Code sind.
type catalogEntity struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"display_name"`
	HebrewName  string `json:"hebrew_name"`
	Description string `json:"description"`
}

// junctionRow ist die typgenerische Sicht auf eine Junction-Zeile.
type junctionRow struct {
	ID               uint   `json:"id"`
	LectureID        uint   `json:"lecture_id"`
	EntityID         uint   `json:"entity_id"`
	RelationshipType string `json:"relationship_type"`
}

// fetchEntity lädt eine Entity-Zeile; zero ID bedeutet nicht gefunden.
func fetchEntity(ctx context.Context, db *gorm.DB, t models.EntityType, id uint) (catalogEntity, error) {
	var e catalogEntity
	err := db.WithContext(ctx).Table(t.Table).
		Select(fmt.Sprintf("id, %s as display_name, hebrew_name, description", t.NameColumn)).
		Where("id = ?", id).
		Scan(&e).Error
	return e, err
}

// fetchAllEntities lädt alle Zeilen eines Entity-Typs.
func fetchAllEntities(ctx context.Context, db *gorm.DB, t models.EntityType) ([]catalogEntity, error) {
	var rows []catalogEntity
	err := db.WithContext(ctx).Table(t.Table).
		Select(fmt.Sprintf("id, %s as display_name, hebrew_name, description", t.NameColumn)).
		Order("id asc").
		Scan(&rows).Error
	return rows, err
}

// fetchJunctions lädt alle Junction-Zeilen, die auf eine Entity verweisen.
func fetchJunctions(ctx context.Context, db *gorm.DB, t models.EntityType, entityID uint) ([]junctionRow, error) {
	var rows []junctionRow
	err := db.WithContext(ctx).Table(t.JunctionTable).
		Select(fmt.Sprintf("id, lecture_id, %s as entity_id, relationship_type", t.FKColumn)).
		Where(fmt.Sprintf("%s = ?", t.FKColumn), entityID).
		Order("id asc").
		Scan(&rows).Error
	return rows, err
}

// linkedLectureIDs liefert die Menge der Vorlesungen, mit denen eine Entity
// bereits verknüpft ist.
func linkedLectureIDs(ctx context.Context, db *gorm.DB, t models.EntityType, entityID uint) (map[uint]bool, error) {
	var ids []uint
	err := db.WithContext(ctx).Table(t.JunctionTable).
		Where(fmt.Sprintf("%s = ?", t.FKColumn), entityID).
		Pluck("lecture_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// connectionCount zählt die Junction-Zeilen einer Entity.
func connectionCount(ctx context.Context, db *gorm.DB, t models.EntityType, entityID uint) (int, error) {
	var n int64
	err := db.WithContext(ctx).Table(t.JunctionTable).
		Where(fmt.Sprintf("%s = ?", t.FKColumn), entityID).
		Count(&n).Error
	return int(n), err
}

// insertEntity legt eine neue Entity-Zeile an und gibt die vom Store
// vergebene ID zurück. Der Switch ist der eine Ort, an dem die Registry
// auf die konkreten Modell-Structs trifft.
func insertEntity(ctx context.Context, db *gorm.DB, t models.EntityType, e catalogEntity) (uint, error) {
	tx := db.WithContext(ctx)
	switch t.Name {
	case "director":
		rec := models.Director{Name: e.DisplayName, HebrewName: e.HebrewName, Description: e.Description}
		err := tx.Create(&rec).Error
		return rec.ID, err
	case "film":
		rec := models.Film{Title: e.DisplayName, HebrewName: e.HebrewName, Description: e.Description}
		err := tx.Create(&rec).Error
		return rec.ID, err
	case "writer":
		rec := models.Writer{Name: e.DisplayName, HebrewName: e.HebrewName, Description: e.Description}
		err := tx.Create(&rec).Error
		return rec.ID, err
	case "book":
		rec := models.Book{Title: e.DisplayName, HebrewName: e.HebrewName, Description: e.Description}
		err := tx.Create(&rec).Error
		return rec.ID, err
	case "painter":
		rec := models.Painter{Name: e.DisplayName, HebrewName: e.HebrewName, Description: e.Description}
		err := tx.Create(&rec).Error
		return rec.ID, err
	case "painting":
		rec := models.Painting{Title: e.DisplayName, HebrewName: e.HebrewName, Description: e.Description}
		err := tx.Create(&rec).Error
		return rec.ID, err
	case "philosopher":
		rec := models.Philosopher{Name: e.DisplayName, HebrewName: e.HebrewName, Description: e.Description}
		err := tx.Create(&rec).Error
		return rec.ID, err
	}
	return 0, fmt.Errorf("%w: unknown entity type %q", ErrValidation, t.Name)
}

// insertJunction legt eine Junction-Zeile an.
func insertJunction(ctx context.Context, db *gorm.DB, t models.EntityType, lectureID, entityID uint, relationshipType string) error {
	return db.WithContext(ctx).Exec(
		fmt.Sprintf("INSERT INTO %s (lecture_id, %s, relationship_type) VALUES (?, ?, ?)",
			t.JunctionTable, t.FKColumn),
		lectureID, entityID, relationshipType,
	).Error
}
