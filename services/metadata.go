package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"lecture-admin/ai"
	"lecture-admin/models"
)

// MetadataService erzeugt Entity-Metadaten über den Completion-Provider.
// Upstream-Fehler gehen mit der rohen Fehlermeldung an den Aufrufer durch,
// es gibt keinen sinnvollen Default-Text als Ersatz.
type MetadataService struct {
	AI     ai.Completer
	Logger *zap.Logger
}

// NewMetadataService erstellt eine neue Instanz des MetadataService.
func NewMetadataService(completer ai.Completer, logger *zap.Logger) *MetadataService {
	return &MetadataService{AI: completer, Logger: logger}
}

// ExtractedEntity ist eine vom Modell in einem Transkript erkannte Entity.
type ExtractedEntity struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	HebrewName string `json:"hebrew_name,omitempty"`
}

// GenerateDescription erzeugt eine kurze Katalog-Beschreibung für eine Entity.
func (m *MetadataService) GenerateDescription(ctx context.Context, entityType, name string) (string, error) {
	t, ok := models.TypeByName(entityType)
	if !ok {
		return "", fmt.Errorf("%w: unknown entity type %q", ErrValidation, entityType)
	}
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: name required", ErrValidation)
	}

	prompt := fmt.Sprintf(
		"Write a concise, factual catalog description (2-3 sentences, no markdown) for the %s %q. "+
			"If you are not confident who or what this is, say so briefly instead of inventing facts.",
		t.Name, name)

	out, err := m.AI.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("completion provider %s returned empty output", m.AI.Name())
	}
	m.Logger.Info("Beschreibung generiert", zap.String("type", t.Name), zap.String("name", name))
	return out, nil
}

// ExtractEntities lässt das Modell Katalog-Entities aus einem Transkript
// ziehen. Die Ausgabe wird defensiv geparst (Code-Zaun, Zuschnitt auf das
// äußerste JSON) und auf bekannte Typen gefiltert.
func (m *MetadataService) ExtractEntities(ctx context.Context, text string) ([]ExtractedEntity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text required", ErrValidation)
	}

	typeNames := make([]string, 0)
	for _, t := range models.AllEntityTypes() {
		typeNames = append(typeNames, t.Name)
	}

	prompt := fmt.Sprintf(`Extract the cultural entities mentioned in the lecture transcript below.
Allowed types: %s.
Return ONLY a JSON object of the form {"entities": [{"name": "...", "type": "...", "hebrew_name": "..."}]}.
Omit hebrew_name when unknown. Do not wrap the JSON in a code fence.

<TRANSCRIPT>
%s
</TRANSCRIPT>`, strings.Join(typeNames, ", "), text)

	out, err := m.AI.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Entities []ExtractedEntity `json:"entities"`
	}
	if err := ai.ParseJSON(out, &parsed); err != nil {
		return nil, err
	}

	entities := make([]ExtractedEntity, 0, len(parsed.Entities))
	for _, e := range parsed.Entities {
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			continue
		}
		if _, ok := models.TypeByName(e.Type); !ok {
			m.Logger.Warn("Extraktion mit unbekanntem Typ verworfen",
				zap.String("name", e.Name), zap.String("type", e.Type))
			continue
		}
		entities = append(entities, e)
	}
	m.Logger.Info("Entities extrahiert", zap.Int("count", len(entities)))
	return entities, nil
}
