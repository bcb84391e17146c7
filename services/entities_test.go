package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lecture-admin/models"
)

func TestEntityCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	svc := NewEntityService(db, testLogger())
	ctx := context.Background()

	rec, err := svc.Create(ctx, "film", "Stalker", "", "Science-Fiction von Tarkovsky")
	require.NoError(t, err)
	require.NotZero(t, rec.ID)
	assert.Equal(t, "film", rec.Type)

	// Filme tragen ihren Anzeigenamen in der title-Spalte
	var film models.Film
	require.NoError(t, db.First(&film, rec.ID).Error)
	assert.Equal(t, "Stalker", film.Title)

	got, err := svc.Get(ctx, "film", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stalker", got.DisplayName)
	assert.Equal(t, "Science-Fiction von Tarkovsky", got.Description)
}

func TestEntityCreateValidation(t *testing.T) {
	svc := NewEntityService(newTestDB(t), testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, "lecture", "x", "", "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, "director", "   ", "", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEntityList(t *testing.T) {
	db := newTestDB(t)
	svc := NewEntityService(db, testLogger())
	ctx := context.Background()

	createDirector(t, db, "Bergman")
	createDirector(t, db, "Tarkovsky")

	records, err := svc.List(ctx, "director")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Bergman", records[0].DisplayName)
}

func TestEntityGetNotFound(t *testing.T) {
	svc := NewEntityService(newTestDB(t), testLogger())
	_, err := svc.Get(context.Background(), "director", 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntityPatch(t *testing.T) {
	db := newTestDB(t)
	svc := NewEntityService(db, testLogger())
	ctx := context.Background()

	d := createDirector(t, db, "Tarkovski")

	rec, err := svc.Patch(ctx, "director", d.ID, map[string]interface{}{
		"name":        "Tarkovsky",
		"hebrew_name": "טרקובסקי",
		"ignored":     "x",
	})
	require.NoError(t, err)
	assert.Equal(t, "Tarkovsky", rec.DisplayName)
	assert.Equal(t, "טרקובסקי", rec.HebrewName)
}

func TestEntityPatchNoFields(t *testing.T) {
	db := newTestDB(t)
	svc := NewEntityService(db, testLogger())
	d := createDirector(t, db, "Tarkovsky")

	_, err := svc.Patch(context.Background(), "director", d.ID, map[string]interface{}{"bogus": 1})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEntityPatchNotFound(t *testing.T) {
	svc := NewEntityService(newTestDB(t), testLogger())
	_, err := svc.Patch(context.Background(), "director", 99, map[string]interface{}{"name": "X"})
	assert.ErrorIs(t, err, ErrNotFound)
}
