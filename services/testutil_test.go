package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lecture-admin/models"
)

// newTestDB öffnet eine frische SQLite-Datenbank mit migriertem Schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// memBlobs ist ein In-Memory-Ersatz für den R2-Bucket.
type memBlobs struct {
	objects map[string][]byte
	failAll bool
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}}
}

func (m *memBlobs) Exists(ctx context.Context, key string) (bool, error) {
	if m.failAll {
		return false, errors.New("blob store down")
	}
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memBlobs) Copy(ctx context.Context, srcKey, destKey string) error {
	if m.failAll {
		return errors.New("blob store down")
	}
	data, ok := m.objects[srcKey]
	if !ok {
		return errors.New("source key not found: " + srcKey)
	}
	m.objects[destKey] = data
	return nil
}

func (m *memBlobs) Delete(ctx context.Context, key string) error {
	if m.failAll {
		return errors.New("blob store down")
	}
	delete(m.objects, key)
	return nil
}

func (m *memBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	if m.failAll {
		return nil, errors.New("blob store down")
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("key not found: " + key)
	}
	return data, nil
}

func (m *memBlobs) Upload(ctx context.Context, key string, data []byte) error {
	if m.failAll {
		return errors.New("blob store down")
	}
	m.objects[key] = data
	return nil
}

func (m *memBlobs) ListKeysByPrefix(ctx context.Context, prefix string) ([]string, error) {
	if m.failAll {
		return nil, errors.New("blob store down")
	}
	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (m *memBlobs) ListPrefixesByDelimiter(ctx context.Context, prefix string) ([]string, error) {
	if m.failAll {
		return nil, errors.New("blob store down")
	}
	seen := map[string]bool{}
	var prefixes []string
	for key := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if idx := strings.Index(rest, "/"); idx >= 0 {
			p := prefix + rest[:idx+1]
			if !seen[p] {
				seen[p] = true
				prefixes = append(prefixes, p)
			}
		}
	}
	return prefixes, nil
}

// createCourse legt einen Kurs mit eindeutigem r2_dir an.
func createCourse(t *testing.T, db *gorm.DB, name, r2Dir string) *models.Course {
	t.Helper()
	course := models.Course{Name: name, R2Dir: r2Dir}
	require.NoError(t, db.Create(&course).Error)
	return &course
}

// createLecture legt eine Vorlesung an.
func createLecture(t *testing.T, db *gorm.DB, courseID uint, number int, title string) *models.Lecture {
	t.Helper()
	lecture := models.Lecture{CourseID: courseID, LectureNumber: number, Title: title}
	require.NoError(t, db.Create(&lecture).Error)
	return &lecture
}

// createDirector legt einen Regisseur an.
func createDirector(t *testing.T, db *gorm.DB, name string) *models.Director {
	t.Helper()
	director := models.Director{Name: name}
	require.NoError(t, db.Create(&director).Error)
	return &director
}

// linkDirector verknüpft Regisseur und Vorlesung.
func linkDirector(t *testing.T, db *gorm.DB, lectureID, directorID uint, rel string) {
	t.Helper()
	require.NoError(t, db.Create(&models.LectureDirector{
		LectureID:        lectureID,
		DirectorID:       directorID,
		RelationshipType: rel,
	}).Error)
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
