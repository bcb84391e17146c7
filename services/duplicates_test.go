package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lecture-admin/models"
)

func setupDetectorTest(t *testing.T) (*DuplicateDetector, *gorm.DB, *memBlobs) {
	t.Helper()
	db := newTestDB(t)
	blobs := newMemBlobs()
	logger := testLogger()
	history := NewHistoryService(db, logger)
	merger := NewMergeService(db, blobs, logger)
	return NewDuplicateDetector(db, blobs, logger, history, merger, 0.85), db, blobs
}

func TestDetectExactAcrossTypes(t *testing.T) {
	det, db, _ := setupDetectorTest(t)
	ctx := context.Background()

	// Gleicher Normalname über zwei Typen hinweg, Groß/Klein egal
	require.NoError(t, db.Create(&models.Writer{Name: "Albert Camus"}).Error)
	require.NoError(t, db.Create(&models.Philosopher{Name: "albert camus "}).Error)
	require.NoError(t, db.Create(&models.Director{Name: "Tarkovsky"}).Error)

	result, err := det.Detect(ctx)
	require.NoError(t, err)

	require.Len(t, result.Exact, 1)
	group := result.Exact[0]
	assert.Equal(t, MatchTypeExact, group.MatchType)
	assert.Equal(t, GroupSignature("albert camus", []string{"philosopher", "writer"}), group.GroupSig)
	require.Len(t, group.Entities, 2)
	// Mitglieder nach Typ sortiert
	assert.Equal(t, "philosopher", group.Entities[0].Type)
	assert.Equal(t, "writer", group.Entities[1].Type)
	assert.Empty(t, result.Similar)
	assert.Empty(t, result.AutoMerged)
}

func TestDetectSingletonsIgnored(t *testing.T) {
	det, db, _ := setupDetectorTest(t)

	require.NoError(t, db.Create(&models.Director{Name: "Tarkovsky"}).Error)
	require.NoError(t, db.Create(&models.Director{Name: "Bergman"}).Error)

	result, err := det.Detect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Exact)
	assert.Empty(t, result.Similar)
}

func TestDetectSimilarSpellings(t *testing.T) {
	det, db, _ := setupDetectorTest(t)

	// Levenshtein-Abstand 1 bei Länge 9: Score ca. 0.889, über dem Schwellwert
	require.NoError(t, db.Create(&models.Director{Name: "Tarkovsky"}).Error)
	require.NoError(t, db.Create(&models.Director{Name: "Tarkovski"}).Error)

	result, err := det.Detect(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Exact)
	require.Len(t, result.Similar, 1)
	group := result.Similar[0]
	assert.Equal(t, MatchTypeSimilar, group.MatchType)
	assert.InDelta(t, 0.889, group.Similarity, 0.001)
	// Signatur kommt vom lexikographisch kleinsten Normalnamen
	assert.Equal(t, GroupSignature("tarkovski", []string{"director", "director"}), group.GroupSig)
	require.Len(t, group.Entities, 2)
}

func TestDetectTransitiveClosure(t *testing.T) {
	det, db, _ := setupDetectorTest(t)

	// A ähnelt B, B ähnelt C: alle drei landen in einer Gruppe, auch wenn
	// A und C einander allein nicht erreichen würden
	require.NoError(t, db.Create(&models.Director{Name: "Tarkovsky"}).Error)
	require.NoError(t, db.Create(&models.Director{Name: "Tarkovski"}).Error)
	require.NoError(t, db.Create(&models.Director{Name: "Tarkowski"}).Error)

	result, err := det.Detect(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Similar, 1)
	assert.Len(t, result.Similar[0].Entities, 3)
}

func TestDetectAnnotatesMembers(t *testing.T) {
	det, db, blobs := setupDetectorTest(t)
	ctx := context.Background()

	course := createCourse(t, db, "Russian Cinema", "russian-cinema/")
	lecture := createLecture(t, db, course.ID, 1, "Stalker")

	d1 := createDirector(t, db, "Tarkovsky")
	d2 := createDirector(t, db, "Tarkovsky")
	linkDirector(t, db, lecture.ID, d1.ID, models.RelationshipDiscussed)

	kt, _ := models.TypeByName("director")
	blobs.objects[kt.ImageKey(d2.ID)] = []byte("portrait")

	result, err := det.Detect(ctx)
	require.NoError(t, err)

	require.Len(t, result.Exact, 1)
	entities := result.Exact[0].Entities
	require.Len(t, entities, 2)
	assert.Equal(t, 1, entities[0].ConnectionCount)
	assert.False(t, entities[0].HasImage)
	assert.Equal(t, 0, entities[1].ConnectionCount)
	assert.True(t, entities[1].HasImage)
}

func TestDetectDeclinedGroupHidden(t *testing.T) {
	det, db, _ := setupDetectorTest(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Director{Name: "Tarkovsky"}).Error)
	require.NoError(t, db.Create(&models.Director{Name: "Tarkovsky"}).Error)

	sig := GroupSignature("tarkovsky", []string{"director", "director"})
	require.NoError(t, det.History.Record(ctx, sig, models.HistoryActionDeclined, ""))

	result, err := det.Detect(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.Exact)
	assert.Empty(t, result.AutoMerged)

	// beide Entities bleiben unangetastet
	var count int64
	require.NoError(t, db.Model(&models.Director{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestDetectApprovedGroupAutoMerged(t *testing.T) {
	det, db, _ := setupDetectorTest(t)
	ctx := context.Background()

	course := createCourse(t, db, "Russian Cinema", "russian-cinema/")
	l1 := createLecture(t, db, course.ID, 1, "Stalker")
	l2 := createLecture(t, db, course.ID, 2, "Mirror")

	d1 := createDirector(t, db, "Tarkovsky")
	d2 := createDirector(t, db, "Tarkovsky")
	linkDirector(t, db, l1.ID, d1.ID, models.RelationshipDiscussed)
	linkDirector(t, db, l2.ID, d2.ID, models.RelationshipDiscussed)
	linkDirector(t, db, l1.ID, d2.ID, models.RelationshipMentioned)

	sig := GroupSignature("tarkovsky", []string{"director", "director"})
	require.NoError(t, det.History.Record(ctx, sig, models.HistoryActionApproved, "director"))

	result, err := det.Detect(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.Exact)
	assert.Equal(t, []string{sig}, result.AutoMerged)

	// d2 hat die meisten Verknüpfungen und gewinnt als Keeper
	var count int64
	require.NoError(t, db.Model(&models.Director{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	var keeper models.Director
	require.NoError(t, db.First(&keeper).Error)
	assert.Equal(t, d2.ID, keeper.ID)

	var ids []uint
	require.NoError(t, db.Model(&models.LectureDirector{}).
		Where("director_id = ?", keeper.ID).Order("lecture_id asc").Pluck("lecture_id", &ids).Error)
	assert.Equal(t, []uint{l1.ID, l2.ID}, ids)

	// zweiter Lauf: Gruppe existiert nicht mehr, nichts wird erneut gemergt
	again, err := det.Detect(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Exact)
	assert.Empty(t, again.AutoMerged)
}

func TestDetectApprovedKeepTypePicksCorrectKeeper(t *testing.T) {
	det, db, _ := setupDetectorTest(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Writer{Name: "Albert Camus"}).Error)
	require.NoError(t, db.Create(&models.Philosopher{Name: "Albert Camus"}).Error)

	sig := GroupSignature("albert camus", []string{"philosopher", "writer"})
	require.NoError(t, det.History.Record(ctx, sig, models.HistoryActionApproved, "philosopher"))

	result, err := det.Detect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{sig}, result.AutoMerged)

	var writers, philosophers int64
	require.NoError(t, db.Model(&models.Writer{}).Count(&writers).Error)
	require.NoError(t, db.Model(&models.Philosopher{}).Count(&philosophers).Error)
	assert.EqualValues(t, 0, writers)
	assert.EqualValues(t, 1, philosophers)
}

func TestDetectBlobFailureDoesNotAbort(t *testing.T) {
	det, db, blobs := setupDetectorTest(t)
	blobs.failAll = true

	require.NoError(t, db.Create(&models.Director{Name: "Tarkovsky"}).Error)
	require.NoError(t, db.Create(&models.Director{Name: "Tarkovsky"}).Error)

	result, err := det.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Exact, 1)
	assert.False(t, result.Exact[0].Entities[0].HasImage)
}
