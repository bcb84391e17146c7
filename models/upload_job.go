package models

import (
	"time"
)

// Status-Werte eines Upload-Jobs.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// UploadJob ist ein Transkriptions-Auftrag für eine Vorlesung. Der externe
// Worker-Daemon pollt den Claim-Endpoint und meldet das Ergebnis zurück.
// Pro (course_id, lecture_number) existiert höchstens ein nicht-fehlgeschlagener
// Job; fehlgeschlagene Jobs werden in-place neu eingereiht statt dupliziert.
type UploadJob struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CourseID      uint   `json:"course_id" gorm:"not null;index:idx_job_course_lecture"`
	LectureNumber int    `json:"lecture_number" gorm:"not null;index:idx_job_course_lecture"`
	R2Dir         string `json:"r2_dir"`

	Status      string     `json:"status" gorm:"not null;default:pending;index"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Output      string     `json:"output,omitempty" gorm:"type:text"`
	RetryCount  int        `json:"retry_count"`
}

func (UploadJob) TableName() string {
	return "upload_jobs"
}
