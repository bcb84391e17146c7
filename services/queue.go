package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"lecture-admin/models"
)

// Sentinel-Ausgabe für abgebrochene laufende Jobs. Der externe Worker kann
// nicht direkt signalisiert werden; das erzwungene failed verhindert nur,
// dass der Job erneut eingeplant wird.
const cancelledOutput = "cancelled by operator"

// JobQueue verwaltet die Transkriptions-Warteschlange. Es läuft systemweit
// höchstens ein Job gleichzeitig; der Claim erfolgt über ein bedingtes
// Update statt über Locks.
type JobQueue struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewJobQueue erstellt eine neue Instanz der JobQueue.
func NewJobQueue(db *gorm.DB, logger *zap.Logger) *JobQueue {
	return &JobQueue{DB: db, Logger: logger}
}

// Enqueue reiht eine Vorlesung zur Transkription ein. Existiert bereits ein
// nicht-fehlgeschlagener Job für das (Kurs, Vorlesungsnummer)-Paar, gibt es
// einen Konflikt. Ein fehlgeschlagener Job wird in-place zurückgesetzt,
// damit Job-ID und Historie über Retries stabil bleiben.
func (q *JobQueue) Enqueue(ctx context.Context, courseID uint, lectureNumber int) (*models.UploadJob, error) {
	if courseID == 0 || lectureNumber <= 0 {
		return nil, fmt.Errorf("%w: course_id and lecture_number required", ErrValidation)
	}

	var course models.Course
	if err := q.DB.WithContext(ctx).First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: course %d", ErrNotFound, courseID)
		}
		return nil, err
	}

	var existing models.UploadJob
	err := q.DB.WithContext(ctx).
		Where("course_id = ? AND lecture_number = ?", courseID, lectureNumber).
		First(&existing).Error
	switch {
	case err == nil:
		if existing.Status != models.JobStatusFailed {
			return nil, fmt.Errorf("%w: job %d already %s for course %d lecture %d",
				ErrConflict, existing.ID, existing.Status, courseID, lectureNumber)
		}
		// Re-Queue in-place: Status zurück auf pending, Zähler und Zeitstempel leeren
		updates := map[string]interface{}{
			"status":       models.JobStatusPending,
			"retry_count":  0,
			"output":       "",
			"started_at":   nil,
			"completed_at": nil,
		}
		if err := q.DB.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
			return nil, err
		}
		existing.Status = models.JobStatusPending
		existing.RetryCount = 0
		existing.Output = ""
		existing.StartedAt = nil
		existing.CompletedAt = nil
		q.Logger.Info("Fehlgeschlagener Job neu eingereiht",
			zap.Uint("job_id", existing.ID), zap.Uint("course_id", courseID))
		return &existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		// kein bestehender Job, neu anlegen
	default:
		return nil, err
	}

	job := models.UploadJob{
		CourseID:      courseID,
		LectureNumber: lectureNumber,
		R2Dir:         course.R2Dir,
		Status:        models.JobStatusPending,
	}
	if err := q.DB.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, err
	}
	q.Logger.Info("Job eingereiht", zap.Uint("job_id", job.ID),
		zap.Uint("course_id", courseID), zap.Int("lecture_number", lectureNumber))
	return &job, nil
}

// ClaimNext gibt den ältesten pending Job an den Worker aus, sofern
// systemweit kein Job läuft. Der Übergang pending→running ist ein
// bedingtes Update; verliert dieser Aufruf das Rennen, kommt nil zurück
// und der Poller versucht es später erneut.
func (q *JobQueue) ClaimNext(ctx context.Context) (*models.UploadJob, error) {
	var runningCount int64
	if err := q.DB.WithContext(ctx).Model(&models.UploadJob{}).
		Where("status = ?", models.JobStatusRunning).
		Count(&runningCount).Error; err != nil {
		return nil, err
	}
	if runningCount > 0 {
		return nil, nil
	}

	var job models.UploadJob
	err := q.DB.WithContext(ctx).
		Where("status = ?", models.JobStatusPending).
		Order("created_at asc, id asc").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	now := time.Now()
	tx := q.DB.WithContext(ctx).Model(&models.UploadJob{}).
		Where("id = ? AND status = ?", job.ID, models.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     models.JobStatusRunning,
			"started_at": now,
		})
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		// Rennen gegen einen parallelen Claim verloren
		q.Logger.Debug("Claim verloren, Job bereits vergeben", zap.Uint("job_id", job.ID))
		return nil, nil
	}

	job.Status = models.JobStatusRunning
	job.StartedAt = &now
	q.Logger.Info("Job an Worker vergeben", zap.Uint("job_id", job.ID),
		zap.String("r2_dir", job.R2Dir))
	return &job, nil
}

// Cancel bricht einen Job ab. Ein pending Job wird spurlos gelöscht; bei
// einem running Job wird failed mit Sentinel-Ausgabe erzwungen. Jeder
// andere Status ist ein Konflikt.
func (q *JobQueue) Cancel(ctx context.Context, jobID uint) (string, error) {
	var job models.UploadJob
	if err := q.DB.WithContext(ctx).First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: job %d", ErrNotFound, jobID)
		}
		return "", err
	}

	switch job.Status {
	case models.JobStatusPending:
		if err := q.DB.WithContext(ctx).Delete(&job).Error; err != nil {
			return "", err
		}
		q.Logger.Info("Pending Job gelöscht", zap.Uint("job_id", jobID))
		return "deleted", nil
	case models.JobStatusRunning:
		now := time.Now()
		updates := map[string]interface{}{
			"status":       models.JobStatusFailed,
			"output":       cancelledOutput,
			"completed_at": now,
		}
		if err := q.DB.WithContext(ctx).Model(&job).Updates(updates).Error; err != nil {
			return "", err
		}
		q.Logger.Warn("Laufender Job abgebrochen, Worker-Prozess läuft evtl. weiter",
			zap.Uint("job_id", jobID))
		return "cancelled", nil
	default:
		return "", fmt.Errorf("%w: job %d is %s", ErrConflict, jobID, job.Status)
	}
}

// Complete nimmt die Ergebnis-Meldung des Workers entgegen. Nur ein
// running Job kann abgeschlossen werden (bedingtes Update), alles andere
// ist ein Konflikt.
func (q *JobQueue) Complete(ctx context.Context, jobID uint, succeeded bool, output string) error {
	status := models.JobStatusSucceeded
	if !succeeded {
		status = models.JobStatusFailed
	}

	updates := map[string]interface{}{
		"status":       status,
		"output":       output,
		"completed_at": time.Now(),
	}
	if !succeeded {
		updates["retry_count"] = gorm.Expr("retry_count + 1")
	}

	tx := q.DB.WithContext(ctx).Model(&models.UploadJob{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusRunning).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("%w: job %d is not running", ErrConflict, jobID)
	}
	q.Logger.Info("Job abgeschlossen", zap.Uint("job_id", jobID), zap.String("status", status))
	return nil
}

// List liefert alle Jobs, neueste zuerst. Ein Job, der succeeded meldet,
// wird nur als succeeded ausgewiesen, wenn die zugehörige Vorlesung
// tatsächlich im Katalog existiert, sonst als failed (abgestürzte
// Teil-Abschlüsse, bei denen Job-Tabelle und Katalog auseinanderlaufen).
func (q *JobQueue) List(ctx context.Context) ([]models.UploadJob, error) {
	var jobs []models.UploadJob
	if err := q.DB.WithContext(ctx).Order("created_at desc, id desc").Find(&jobs).Error; err != nil {
		return nil, err
	}

	for i := range jobs {
		if jobs[i].Status != models.JobStatusSucceeded {
			continue
		}
		var count int64
		if err := q.DB.WithContext(ctx).Model(&models.Lecture{}).
			Where("course_id = ? AND lecture_number = ?", jobs[i].CourseID, jobs[i].LectureNumber).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			q.Logger.Warn("Succeeded Job ohne Vorlesung im Katalog, melde failed",
				zap.Uint("job_id", jobs[i].ID))
			jobs[i].Status = models.JobStatusFailed
		}
	}
	return jobs, nil
}
