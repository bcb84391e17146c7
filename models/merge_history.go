package models

import (
	"time"
)

// Aktionen im Merge-Verlauf.
const (
	HistoryActionApproved = "approved"
	HistoryActionDeclined = "declined"
)

// MergeHistory ist das Entscheidungs-Log der Duplikat-Auflösung.
// Die Signatur ist inhaltsbasiert (Name + Typen), damit frühere
// Entscheidungen auch nach geänderten Entity-IDs wiedererkannt werden.
type MergeHistory struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	GroupSig string `json:"group_sig" gorm:"uniqueIndex;not null"`
	Action   string `json:"action" gorm:"not null"`
	KeepType string `json:"keep_type,omitempty"`
}

func (MergeHistory) TableName() string {
	return "merge_history"
}
