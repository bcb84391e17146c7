package services

import (
	"strings"
)

// normalizeName faltet Groß-/Kleinschreibung und schneidet Whitespace ab.
// Zwei Entities mit gleichem Ergebnis gelten als exakte Duplikate.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// nameSimilarity liefert einen Score in [0,1] aus dem Maximum von
// Levenshtein-Ratio und Token-Überlappung. Die Kombination fängt sowohl
// Tippfehler ("Tarkovsky"/"Tarkovski") als auch umgestellte Namensteile
// ("Andrei Tarkovsky"/"Tarkovsky, Andrei") ein.
func nameSimilarity(a, b string) float64 {
	lev := levenshteinRatio(a, b)
	tok := tokenOverlap(a, b)
	if tok > lev {
		return tok
	}
	return lev
}

// levenshteinRatio normalisiert die Editierdistanz auf die längere
// Eingabe: 1.0 bedeutet identisch, 0.0 komplett verschieden.
func levenshteinRatio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra := []rune(a)
	rb := []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(ra, rb))/float64(longest)
}

// levenshtein berechnet die Editierdistanz mit zwei rotierenden Zeilen.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // Löschung
				curr[j-1]+1,    // Einfügung
				prev[j-1]+cost, // Ersetzung
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// tokenOverlap ist der Jaccard-Index über die Whitespace-Tokens beider
// Namen.
func tokenOverlap(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}
	intersection := 0
	for tok := range ta {
		if tb[tok] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		tok = strings.Trim(tok, ".,;:()\"'")
		if tok != "" {
			set[tok] = true
		}
	}
	return set
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
