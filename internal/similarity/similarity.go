// Package similarity scores pairs of posts or opportunities for textual
// and categorical closeness. The scorer is pure and deterministic:
// reproducible clustering depends on it having no external state.
package similarity

import (
	"strings"
	"unicode"

	"github.com/demandradar/engine/internal/core/domain"
)

// Component weights. Categorical components only apply when both records
// carry the label; weights are renormalized over the applicable set so
// Score(a, a) stays exactly 1 for records without categories.
const (
	textWeight         = 0.85
	businessTypeWeight = 0.10
	verticalWeight     = 0.05
)

// Score returns the similarity of two records in [0, 1].
// It is symmetric and reflexive. A pair of records that both lack any
// text scores 0, not 1, so blank records never merge spuriously.
func Score(a, b domain.Comparable) float64 {
	tokensA := Tokenize(a.GetTitle() + " " + a.GetText())
	tokensB := Tokenize(b.GetTitle() + " " + b.GetText())

	if len(tokensA) == 0 && len(tokensB) == 0 {
		return 0
	}

	score := textWeight * jaccard(tokensA, tokensB)
	weight := textWeight

	if a.GetBusinessType() != "" && b.GetBusinessType() != "" {
		weight += businessTypeWeight
		if a.GetBusinessType() == b.GetBusinessType() {
			score += businessTypeWeight
		}
	}

	if a.GetVertical() != "" && b.GetVertical() != "" {
		weight += verticalWeight
		if a.GetVertical() == b.GetVertical() {
			score += verticalWeight
		}
	}

	return score / weight
}

// Tokenize splits text into a lowercase token set, dropping punctuation
// and single-character tokens.
func Tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make(map[string]struct{}, len(fields))

	for _, f := range fields {
		if len(f) < 2 {
			continue
		}

		tokens[f] = struct{}{}
	}

	return tokens
}

// jaccard computes |A ∩ B| / |A ∪ B| over token sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0

	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}
