package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lecture-admin/models"
)

// HistoryService ist das append-only Entscheidungs-Log der
// Duplikat-Auflösung. Pro Signatur gilt last-write-wins.
type HistoryService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewHistoryService erstellt eine neue Instanz des HistoryService.
func NewHistoryService(db *gorm.DB, logger *zap.Logger) *HistoryService {
	return &HistoryService{DB: db, Logger: logger}
}

// GroupSignature bildet die inhaltsbasierte Signatur einer Duplikat-Gruppe:
// kleingeschriebener Name plus sortierte Typliste. Dadurch werden frühere
// Entscheidungen auch nach geänderten Entity-IDs wiedererkannt.
func GroupSignature(name string, types []string) string {
	seen := make(map[string]bool, len(types))
	uniq := make([]string, 0, len(types))
	for _, t := range types {
		if !seen[t] {
			seen[t] = true
			uniq = append(uniq, t)
		}
	}
	sort.Strings(uniq)
	return strings.ToLower(strings.TrimSpace(name)) + "|" + strings.Join(uniq, ",")
}

// Record speichert eine Entscheidung. Eine bestehende Entscheidung für
// dieselbe Signatur wird überschrieben.
func (h *HistoryService) Record(ctx context.Context, groupSig, action, keepType string) error {
	if groupSig == "" {
		return fmt.Errorf("%w: group_sig required", ErrValidation)
	}
	if action != models.HistoryActionApproved && action != models.HistoryActionDeclined {
		return fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}
	if action == models.HistoryActionApproved {
		if _, ok := models.TypeByName(keepType); !ok {
			return fmt.Errorf("%w: approved entries need a valid keep_type", ErrValidation)
		}
	}

	entry := models.MergeHistory{
		GroupSig: groupSig,
		Action:   action,
		KeepType: keepType,
	}
	err := h.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_sig"}},
		DoUpdates: clause.AssignmentColumns([]string{"action", "keep_type", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return err
	}
	h.Logger.Info("Merge-Entscheidung gespeichert",
		zap.String("group_sig", groupSig), zap.String("action", action))
	return nil
}

// List liefert alle Entscheidungen für den Filter-Pass des Detektors.
func (h *HistoryService) List(ctx context.Context) ([]models.MergeHistory, error) {
	var entries []models.MergeHistory
	if err := h.DB.WithContext(ctx).Order("updated_at desc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Reset löscht alle Entscheidungen, damit frühere Gruppen wieder zur
// manuellen Prüfung auftauchen.
func (h *HistoryService) Reset(ctx context.Context) error {
	if err := h.DB.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.MergeHistory{}).Error; err != nil {
		return err
	}
	h.Logger.Info("Merge-Verlauf zurückgesetzt")
	return nil
}
