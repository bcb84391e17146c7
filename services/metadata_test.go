package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompleter gibt eine feste Antwort oder einen festen Fehler zurück und
// merkt sich den letzten Prompt.
type fakeCompleter struct {
	output     string
	err        error
	lastPrompt string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.output, f.err
}

func (f *fakeCompleter) Name() string { return "fake" }

func TestGenerateDescription(t *testing.T) {
	fake := &fakeCompleter{output: "  Andrei Tarkovsky was a Soviet filmmaker.  "}
	svc := NewMetadataService(fake, testLogger())

	out, err := svc.GenerateDescription(context.Background(), "director", "Tarkovsky")
	require.NoError(t, err)
	assert.Equal(t, "Andrei Tarkovsky was a Soviet filmmaker.", out)
	assert.Contains(t, fake.lastPrompt, "Tarkovsky")
	assert.Contains(t, fake.lastPrompt, "director")
}

func TestGenerateDescriptionValidation(t *testing.T) {
	svc := NewMetadataService(&fakeCompleter{output: "x"}, testLogger())

	_, err := svc.GenerateDescription(context.Background(), "course", "Tarkovsky")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.GenerateDescription(context.Background(), "director", "   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGenerateDescriptionEmptyOutput(t *testing.T) {
	svc := NewMetadataService(&fakeCompleter{output: "   "}, testLogger())

	_, err := svc.GenerateDescription(context.Background(), "director", "Tarkovsky")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty output")
}

func TestGenerateDescriptionUpstreamError(t *testing.T) {
	boom := errors.New("quota exceeded")
	svc := NewMetadataService(&fakeCompleter{err: boom}, testLogger())

	_, err := svc.GenerateDescription(context.Background(), "director", "Tarkovsky")
	assert.ErrorIs(t, err, boom)
}

func TestExtractEntities(t *testing.T) {
	// Modelle ignorieren die Zaun-Anweisung gern, der Parser muss damit leben
	fake := &fakeCompleter{output: "```json\n{\"entities\": [" +
		"{\"name\": \"Tarkovsky\", \"type\": \"director\", \"hebrew_name\": \"טרקובסקי\"}," +
		"{\"name\": \"Stalker\", \"type\": \"film\"}," +
		"{\"name\": \"Moscow\", \"type\": \"city\"}," +
		"{\"name\": \"   \", \"type\": \"director\"}" +
		"]}\n```"}
	svc := NewMetadataService(fake, testLogger())

	entities, err := svc.ExtractEntities(context.Background(), "Heute sprechen wir über Tarkovskys Stalker.")
	require.NoError(t, err)

	// unbekannter Typ und leerer Name fliegen raus
	require.Len(t, entities, 2)
	assert.Equal(t, ExtractedEntity{Name: "Tarkovsky", Type: "director", HebrewName: "טרקובסקי"}, entities[0])
	assert.Equal(t, ExtractedEntity{Name: "Stalker", Type: "film"}, entities[1])
	assert.Contains(t, fake.lastPrompt, "<TRANSCRIPT>")
}

func TestExtractEntitiesValidation(t *testing.T) {
	svc := NewMetadataService(&fakeCompleter{output: "{}"}, testLogger())
	_, err := svc.ExtractEntities(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExtractEntitiesGarbageOutput(t *testing.T) {
	svc := NewMetadataService(&fakeCompleter{output: "I could not find any entities."}, testLogger())
	_, err := svc.ExtractEntities(context.Background(), "transcript")
	require.Error(t, err)
}
