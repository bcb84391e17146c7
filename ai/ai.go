package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Completer ist das Interface, das jeder Completion-Provider (z.B. Gemini,
// OpenAI) implementieren muss. Determinismus wird nicht garantiert.
// Aufrufer müssen mit leerer oder fehlerhafter Ausgabe rechnen.
type Completer interface {
	// Complete führt einen Prompt aus und gibt den rohen Text zurück.
	Complete(ctx context.Context, prompt string) (string, error)

	// Name gibt den eindeutigen Namen des Providers zurück (z.B. "gemini").
	Name() string
}

// StripCodeFence entfernt einen ```json ... ```-Zaun um die Modell-Ausgabe.
// Modelle liefern JSON gern eingezäunt, auch wenn der Prompt das verbietet.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Sprach-Tag in der ersten Zeile ("json") überspringen
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}[]") {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// ParseJSON macht die Modell-Ausgabe defensiv als JSON auf: Code-Zaun
// entfernen, auf das äußerste Objekt bzw. Array zuschneiden, dann parsen.
func ParseJSON(raw string, v interface{}) error {
	s := StripCodeFence(raw)

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return fmt.Errorf("no JSON payload in completion output: %q", truncate(raw, 120))
	}
	var end int
	if s[start] == '{' {
		end = strings.LastIndex(s, "}")
	} else {
		end = strings.LastIndex(s, "]")
	}
	if end <= start {
		return fmt.Errorf("unterminated JSON payload in completion output: %q", truncate(raw, 120))
	}

	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("unmarshal completion output: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
