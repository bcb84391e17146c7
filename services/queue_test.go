package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lecture-admin/models"
)

func setupQueueTest(t *testing.T) (*JobQueue, *gorm.DB, *models.Course) {
	t.Helper()
	db := newTestDB(t)
	course := createCourse(t, db, "Russian Cinema", "russian-cinema/")
	return NewJobQueue(db, testLogger()), db, course
}

func TestEnqueueCreatesPendingJob(t *testing.T) {
	queue, _, course := setupQueueTest(t)
	ctx := context.Background()

	job, err := queue.Enqueue(ctx, course.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, course.R2Dir, job.R2Dir)
	assert.Nil(t, job.StartedAt)
}

func TestEnqueueUnknownCourse(t *testing.T) {
	queue, _, _ := setupQueueTest(t)

	_, err := queue.Enqueue(context.Background(), 999, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnqueueConflictOnActiveJob(t *testing.T) {
	queue, _, course := setupQueueTest(t)
	ctx := context.Background()

	_, err := queue.Enqueue(ctx, course.ID, 1)
	require.NoError(t, err)

	// pending blockiert
	_, err = queue.Enqueue(ctx, course.ID, 1)
	assert.ErrorIs(t, err, ErrConflict)

	// running blockiert
	claimed, err := queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	_, err = queue.Enqueue(ctx, course.ID, 1)
	assert.ErrorIs(t, err, ErrConflict)

	// succeeded blockiert
	require.NoError(t, queue.Complete(ctx, claimed.ID, true, "done"))
	_, err = queue.Enqueue(ctx, course.ID, 1)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRequeueFailedReusesJobID(t *testing.T) {
	queue, _, course := setupQueueTest(t)
	ctx := context.Background()

	job, err := queue.Enqueue(ctx, course.ID, 1)
	require.NoError(t, err)

	claimed, err := queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NoError(t, queue.Complete(ctx, claimed.ID, false, "worker crashed"))

	requeued, err := queue.Enqueue(ctx, course.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, job.ID, requeued.ID, "re-queue must reuse the job row")
	assert.Equal(t, models.JobStatusPending, requeued.Status)
	assert.Equal(t, 0, requeued.RetryCount)

	var fromDB models.UploadJob
	require.NoError(t, queue.DB.First(&fromDB, job.ID).Error)
	assert.Equal(t, models.JobStatusPending, fromDB.Status)
	assert.Empty(t, fromDB.Output)
	assert.Nil(t, fromDB.StartedAt)
	assert.Nil(t, fromDB.CompletedAt)
}

func TestClaimSingleFlight(t *testing.T) {
	queue, db, course := setupQueueTest(t)
	ctx := context.Background()

	_, err := queue.Enqueue(ctx, course.ID, 1)
	require.NoError(t, err)
	_, err = queue.Enqueue(ctx, course.ID, 2)
	require.NoError(t, err)

	first, err := queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, models.JobStatusRunning, first.Status)
	assert.NotNil(t, first.StartedAt)

	// solange ein Job läuft, gibt es keinen zweiten Claim
	second, err := queue.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, second)

	var running int64
	require.NoError(t, db.Model(&models.UploadJob{}).
		Where("status = ?", models.JobStatusRunning).Count(&running).Error)
	assert.EqualValues(t, 1, running)
}

func TestClaimFIFO(t *testing.T) {
	queue, _, course := setupQueueTest(t)
	ctx := context.Background()

	for n := 1; n <= 3; n++ {
		_, err := queue.Enqueue(ctx, course.ID, n)
		require.NoError(t, err)
	}

	var order []int
	for i := 0; i < 3; i++ {
		job, err := queue.ClaimNext(ctx)
		require.NoError(t, err)
		require.NotNil(t, job)
		order = append(order, job.LectureNumber)
		require.NoError(t, queue.Complete(ctx, job.ID, true, ""))
	}
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestClaimEmptyQueue(t *testing.T) {
	queue, _, _ := setupQueueTest(t)

	job, err := queue.ClaimNext(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestCancelPendingDeletesJob(t *testing.T) {
	queue, db, course := setupQueueTest(t)
	ctx := context.Background()

	job, err := queue.Enqueue(ctx, course.ID, 1)
	require.NoError(t, err)

	outcome, err := queue.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "deleted", outcome)

	var count int64
	require.NoError(t, db.Model(&models.UploadJob{}).Where("id = ?", job.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count, "cancelled pending job must leave no trace")
}

func TestCancelRunningForcesFailed(t *testing.T) {
	queue, db, course := setupQueueTest(t)
	ctx := context.Background()

	_, err := queue.Enqueue(ctx, course.ID, 1)
	require.NoError(t, err)
	claimed, err := queue.ClaimNext(ctx)
	require.NoError(t, err)

	outcome, err := queue.Cancel(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", outcome)

	var fromDB models.UploadJob
	require.NoError(t, db.First(&fromDB, claimed.ID).Error)
	assert.Equal(t, models.JobStatusFailed, fromDB.Status)
	assert.Equal(t, cancelledOutput, fromDB.Output)
}

func TestCancelTerminalStateConflict(t *testing.T) {
	queue, _, course := setupQueueTest(t)
	ctx := context.Background()

	_, err := queue.Enqueue(ctx, course.ID, 1)
	require.NoError(t, err)
	claimed, err := queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NoError(t, queue.Complete(ctx, claimed.ID, true, "done"))

	_, err = queue.Cancel(ctx, claimed.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCancelUnknownJob(t *testing.T) {
	queue, _, _ := setupQueueTest(t)

	_, err := queue.Cancel(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteRequiresRunning(t *testing.T) {
	queue, _, course := setupQueueTest(t)
	ctx := context.Background()

	job, err := queue.Enqueue(ctx, course.ID, 1)
	require.NoError(t, err)

	err = queue.Complete(ctx, job.ID, true, "done")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCompleteFailureIncrementsRetryCount(t *testing.T) {
	queue, db, course := setupQueueTest(t)
	ctx := context.Background()

	_, err := queue.Enqueue(ctx, course.ID, 1)
	require.NoError(t, err)
	claimed, err := queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NoError(t, queue.Complete(ctx, claimed.ID, false, "transcoder error"))

	var fromDB models.UploadJob
	require.NoError(t, db.First(&fromDB, claimed.ID).Error)
	assert.Equal(t, models.JobStatusFailed, fromDB.Status)
	assert.Equal(t, 1, fromDB.RetryCount)
	assert.NotNil(t, fromDB.CompletedAt)
}

func TestListReconcilesOrphanedSuccess(t *testing.T) {
	queue, _, course := setupQueueTest(t)
	ctx := context.Background()

	// Job 1: succeeded und die Vorlesung existiert
	_, err := queue.Enqueue(ctx, course.ID, 1)
	require.NoError(t, err)
	claimed, err := queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NoError(t, queue.Complete(ctx, claimed.ID, true, "ok"))
	createLecture(t, queue.DB, course.ID, 1, "Solaris")

	// Job 2: meldet succeeded, aber im Katalog fehlt die Vorlesung
	_, err = queue.Enqueue(ctx, course.ID, 2)
	require.NoError(t, err)
	claimed2, err := queue.ClaimNext(ctx)
	require.NoError(t, err)
	require.NoError(t, queue.Complete(ctx, claimed2.ID, true, "ok"))

	jobs, err := queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	byLecture := map[int]string{}
	for _, j := range jobs {
		byLecture[j.LectureNumber] = j.Status
	}
	assert.Equal(t, models.JobStatusSucceeded, byLecture[1])
	assert.Equal(t, models.JobStatusFailed, byLecture[2], "succeeded without catalog row must report failed")
}
