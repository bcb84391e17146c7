package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"lecture-admin/models"
	"lecture-admin/storage"
)

// MergeService führt zwei Katalog-Entities zu einer zusammen: Junction-Zeilen
// wandern zum Keeper, der Verlierer wird gelöscht, Bilder werden best-effort
// abgeglichen. Cross-Type-Merges (z. B. Writer in Philosopher) sind erlaubt.
type MergeService struct {
	DB     *gorm.DB
	Blobs  storage.Blobs
	Logger *zap.Logger
}

// NewMergeService erstellt eine neue Instanz des MergeService.
func NewMergeService(db *gorm.DB, blobs storage.Blobs, logger *zap.Logger) *MergeService {
	return &MergeService{DB: db, Blobs: blobs, Logger: logger}
}

// Merge überführt deleteID in keepID. Ein bereits gelöschter Verlierer gilt
// als Erfolg, damit der Replay aus dem Merge-Verlauf idempotent bleibt.
// Junction-Migration und Entity-Löschung laufen in einer Transaktion;
// der Bild-Abgleich danach ist best-effort und schlägt nie nach oben durch.
func (m *MergeService) Merge(ctx context.Context, keepID uint, keepType string, deleteID uint, deleteType string) error {
	kt, ok := models.TypeByName(keepType)
	if !ok {
		return fmt.Errorf("%w: unknown entity type %q", ErrValidation, keepType)
	}
	dt, ok := models.TypeByName(deleteType)
	if !ok {
		return fmt.Errorf("%w: unknown entity type %q", ErrValidation, deleteType)
	}
	if kt.Name == dt.Name && keepID == deleteID {
		return fmt.Errorf("%w: cannot merge an entity into itself", ErrValidation)
	}

	keeper, err := fetchEntity(ctx, m.DB, kt, keepID)
	if err != nil {
		return err
	}
	if keeper.ID == 0 {
		return fmt.Errorf("%w: %s %d", ErrNotFound, kt.Name, keepID)
	}

	loser, err := fetchEntity(ctx, m.DB, dt, deleteID)
	if err != nil {
		return err
	}
	if loser.ID == 0 {
		// Replay-Fall: der Verlierer wurde bereits wegfusioniert
		m.Logger.Info("Verlierer existiert nicht mehr, Merge gilt als erledigt",
			zap.String("type", dt.Name), zap.Uint("id", deleteID))
		return nil
	}

	err = m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := fetchJunctions(ctx, tx, dt, deleteID)
		if err != nil {
			return err
		}
		covered, err := linkedLectureIDs(ctx, tx, kt, keepID)
		if err != nil {
			return err
		}

		for _, row := range rows {
			if covered[row.LectureID] {
				// Keeper hat die Vorlesung schon, Zeile entfällt, sonst
				// würde das (lecture_id, entity_id)-Unique verletzt
				if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", dt.JunctionTable), row.ID).Error; err != nil {
					return err
				}
				continue
			}
			if kt.Name == dt.Name {
				// Relink in-place, relationship_type bleibt erhalten
				if err := tx.Exec(fmt.Sprintf("UPDATE %s SET %s = ? WHERE id = ?", dt.JunctionTable, dt.FKColumn),
					keepID, row.ID).Error; err != nil {
					return err
				}
			} else {
				// Cross-Type: Zeile wandert in die Junction-Tabelle des Keep-Typs
				if err := insertJunction(ctx, tx, kt, row.LectureID, keepID, row.RelationshipType); err != nil {
					return err
				}
				if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", dt.JunctionTable), row.ID).Error; err != nil {
					return err
				}
			}
			covered[row.LectureID] = true
		}

		return tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", dt.Table), deleteID).Error
	})
	if err != nil {
		return err
	}

	m.reconcileImages(ctx, kt, keepID, dt, deleteID)

	m.Logger.Info("Entities zusammengeführt",
		zap.String("keep", fmt.Sprintf("%s/%d", kt.Name, keepID)),
		zap.String("deleted", fmt.Sprintf("%s/%d", dt.Name, deleteID)))
	return nil
}

// reconcileImages übernimmt das Bild des Verlierers, falls der Keeper keins
// hat, und löscht den Verlierer-Key. Fehler werden nur geloggt, der Merge
// ist zu diesem Zeitpunkt bereits committed.
func (m *MergeService) reconcileImages(ctx context.Context, kt models.EntityType, keepID uint, dt models.EntityType, deleteID uint) {
	loserKey := dt.ImageKey(deleteID)
	keepKey := kt.ImageKey(keepID)

	loserHas, err := m.Blobs.Exists(ctx, loserKey)
	if err != nil {
		m.Logger.Warn("Bild-Check für Verlierer fehlgeschlagen", zap.String("key", loserKey), zap.Error(err))
		return
	}
	if !loserHas {
		return
	}

	keepHas, err := m.Blobs.Exists(ctx, keepKey)
	if err != nil {
		m.Logger.Warn("Bild-Check für Keeper fehlgeschlagen", zap.String("key", keepKey), zap.Error(err))
		keepHas = true // im Zweifel nicht überschreiben
	}
	if !keepHas {
		if err := m.Blobs.Copy(ctx, loserKey, keepKey); err != nil {
			m.Logger.Warn("Bild-Übernahme fehlgeschlagen",
				zap.String("src", loserKey), zap.String("dest", keepKey), zap.Error(err))
		}
	}
	if err := m.Blobs.Delete(ctx, loserKey); err != nil {
		m.Logger.Warn("Löschen des Verlierer-Bilds fehlgeschlagen", zap.String("key", loserKey), zap.Error(err))
	}
}
