package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"lecture-admin/models"
	"lecture-admin/storage"
)

// Präfix im Bucket, unter dem Bilder gelöschter Entities geparkt werden.
const deletedImagePrefix = "deleted/"

// RestoreService verantwortet Soft-Delete und Wiederherstellung von
// Katalog-Entities über die deleted_entities-Staging-Tabelle.
type RestoreService struct {
	DB     *gorm.DB
	Blobs  storage.Blobs
	Logger *zap.Logger
}

// NewRestoreService erstellt eine neue Instanz des RestoreService.
func NewRestoreService(db *gorm.DB, blobs storage.Blobs, logger *zap.Logger) *RestoreService {
	return &RestoreService{DB: db, Blobs: blobs, Logger: logger}
}

// SoftDelete sichert eine Entity samt Junction-Schnappschuss in
// deleted_entities und entfernt sie danach aus dem Katalog. Das Bild wird
// best-effort unter das deleted/-Präfix verschoben.
func (r *RestoreService) SoftDelete(ctx context.Context, entityType string, id uint) (*models.DeletedEntity, error) {
	t, ok := models.TypeByName(entityType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrValidation, entityType)
	}

	entity, err := fetchEntity(ctx, r.DB, t, id)
	if err != nil {
		return nil, err
	}
	if entity.ID == 0 {
		return nil, fmt.Errorf("%w: %s %d", ErrNotFound, t.Name, id)
	}

	junctions, err := fetchJunctions(ctx, r.DB, t, id)
	if err != nil {
		return nil, err
	}
	snapshots := make([]models.JunctionSnapshot, 0, len(junctions))
	for _, j := range junctions {
		snapshots = append(snapshots, models.JunctionSnapshot{
			LectureID:        j.LectureID,
			RelationshipType: j.RelationshipType,
		})
	}
	junctionData, err := json.Marshal(snapshots)
	if err != nil {
		return nil, err
	}

	// Bild ins deleted/-Präfix verschieben, bevor die Entity verschwindet
	hasImage := false
	stagedKey := ""
	liveKey := t.ImageKey(id)
	if exists, err := r.Blobs.Exists(ctx, liveKey); err != nil {
		r.Logger.Warn("Bild-Check vor Soft-Delete fehlgeschlagen", zap.String("key", liveKey), zap.Error(err))
	} else if exists {
		stagedKey = deletedImagePrefix + uuid.NewString() + ".jpg"
		if err := r.Blobs.Copy(ctx, liveKey, stagedKey); err != nil {
			r.Logger.Warn("Bild-Staging fehlgeschlagen, Bild geht beim Löschen verloren",
				zap.String("key", liveKey), zap.Error(err))
			stagedKey = ""
		} else {
			hasImage = true
			if err := r.Blobs.Delete(ctx, liveKey); err != nil {
				r.Logger.Warn("Löschen des Live-Bilds fehlgeschlagen", zap.String("key", liveKey), zap.Error(err))
			}
		}
	}

	backup := models.DeletedEntity{
		OriginalID:     id,
		EntityType:     t.Name,
		Name:           entity.DisplayName,
		HebrewName:     entity.HebrewName,
		Description:    entity.Description,
		JunctionData:   junctionData,
		HasImage:       hasImage,
		StagedImageKey: stagedKey,
	}

	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&backup).Error; err != nil {
			return err
		}
		if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", t.JunctionTable, t.FKColumn), id).Error; err != nil {
			return err
		}
		return tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.Table), id).Error
	})
	if err != nil {
		return nil, err
	}

	r.Logger.Info("Entity soft-gelöscht", zap.String("type", t.Name), zap.Uint("id", id),
		zap.Uint("backup_id", backup.ID), zap.Int("junctions", len(snapshots)))
	return &backup, nil
}

// Restore stellt eine Entity aus dem Backup wieder her. Der Store vergibt
// eine neue ID; die Junction-Zeilen werden aus dem Schnappschuss repliziert,
// dedupliziert nach Vorlesung (erste gewinnt). Schlägt das Relinken fehl,
// wird die frisch eingefügte Entity kompensierend gelöscht. Bei Erfolg
// verschwindet der Backup-Datensatz.
func (r *RestoreService) Restore(ctx context.Context, backupID uint) (uint, error) {
	var backup models.DeletedEntity
	if err := r.DB.WithContext(ctx).First(&backup, backupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: backup %d", ErrNotFound, backupID)
		}
		return 0, err
	}

	t, ok := models.TypeByName(backup.EntityType)
	if !ok {
		return 0, fmt.Errorf("%w: backup %d has unknown entity type %q", ErrValidation, backupID, backup.EntityType)
	}

	var snapshots []models.JunctionSnapshot
	if len(backup.JunctionData) > 0 {
		if err := json.Unmarshal(backup.JunctionData, &snapshots); err != nil {
			return 0, fmt.Errorf("backup %d has corrupt junction data: %w", backupID, err)
		}
	}

	newID, err := insertEntity(ctx, r.DB, t, catalogEntity{
		DisplayName: backup.Name,
		HebrewName:  backup.HebrewName,
		Description: backup.Description,
	})
	if err != nil {
		return 0, err
	}

	// Nach Vorlesung deduplizieren, damit keine doppelten Links auferstehen
	seen := make(map[uint]bool, len(snapshots))
	for _, snap := range snapshots {
		if seen[snap.LectureID] {
			continue
		}
		seen[snap.LectureID] = true
		if err := insertJunction(ctx, r.DB, t, snap.LectureID, newID, snap.RelationshipType); err != nil {
			// Kompensation: Insert und Relink sind nicht atomar, also die
			// frisch eingefügte Entity wieder entfernen
			if delErr := r.DB.WithContext(ctx).Exec(
				fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.Table), newID).Error; delErr != nil {
				r.Logger.Error("Rollback nach Junction-Fehler fehlgeschlagen",
					zap.Uint("new_id", newID), zap.Error(delErr))
			}
			return 0, fmt.Errorf("relink lecture %d failed: %w", snap.LectureID, err)
		}
	}

	r.restoreImage(ctx, t, newID, &backup)

	if err := r.DB.WithContext(ctx).Delete(&backup).Error; err != nil {
		return 0, err
	}

	r.Logger.Info("Entity wiederhergestellt", zap.String("type", t.Name),
		zap.Uint("original_id", backup.OriginalID), zap.Uint("new_id", newID))
	return newID, nil
}

// restoreImage holt das geparkte Bild zurück auf den Live-Key. Fehler
// werden nur geloggt.
func (r *RestoreService) restoreImage(ctx context.Context, t models.EntityType, newID uint, backup *models.DeletedEntity) {
	if !backup.HasImage || backup.StagedImageKey == "" {
		return
	}
	exists, err := r.Blobs.Exists(ctx, backup.StagedImageKey)
	if err != nil || !exists {
		r.Logger.Warn("Geparktes Bild nicht auffindbar",
			zap.String("key", backup.StagedImageKey), zap.Error(err))
		return
	}
	liveKey := t.ImageKey(newID)
	if err := r.Blobs.Copy(ctx, backup.StagedImageKey, liveKey); err != nil {
		r.Logger.Warn("Bild-Restore fehlgeschlagen", zap.String("dest", liveKey), zap.Error(err))
		return
	}
	if err := r.Blobs.Delete(ctx, backup.StagedImageKey); err != nil {
		r.Logger.Warn("Löschen des geparkten Bilds fehlgeschlagen",
			zap.String("key", backup.StagedImageKey), zap.Error(err))
	}
}

// ListDeleted liefert alle Backups, neueste zuerst.
func (r *RestoreService) ListDeleted(ctx context.Context) ([]models.DeletedEntity, error) {
	var backups []models.DeletedEntity
	if err := r.DB.WithContext(ctx).Order("created_at desc, id desc").Find(&backups).Error; err != nil {
		return nil, err
	}
	return backups, nil
}
