package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demandradar/engine/internal/core/domain"
)

func opp(title, desc string, bt domain.BusinessType, v domain.Vertical) domain.Opportunity {
	return domain.Opportunity{
		Title:        title,
		Description:  desc,
		BusinessType: bt,
		Vertical:     v,
	}
}

func TestScore_Reflexive(t *testing.T) {
	records := []domain.Comparable{
		opp("AI meeting notes", "Automatic summaries for standups", domain.BusinessSaaS, domain.VerticalProductivity),
		opp("Dog walking marketplace", "Match walkers with owners", domain.BusinessMarketplace, domain.VerticalOther),
		domain.Post{Title: "Anyone else hate invoicing?", Body: "I spend hours every week on invoices"},
	}

	for _, r := range records {
		assert.InDelta(t, 1.0, Score(r, r), 1e-9)
	}
}

func TestScore_Symmetric(t *testing.T) {
	a := opp("AI meeting notes", "Automatic summaries for standups", domain.BusinessSaaS, domain.VerticalProductivity)
	b := opp("Meeting notes with AI", "Summaries generated automatically", domain.BusinessSaaS, domain.VerticalDevTools)

	require.Equal(t, Score(a, b), Score(b, a))
}

func TestScore_EmptyPairIsZero(t *testing.T) {
	a := opp("", "", domain.BusinessSaaS, domain.VerticalProductivity)
	b := opp("", "", domain.BusinessSaaS, domain.VerticalProductivity)

	// Matching categories must not rescue a pair of blank records.
	assert.Zero(t, Score(a, b))
}

func TestScore_Bounds(t *testing.T) {
	pairs := [][2]domain.Comparable{
		{
			opp("AI meeting notes", "summaries", domain.BusinessSaaS, domain.VerticalProductivity),
			opp("Crypto tax helper", "capital gains reports", domain.BusinessTool, domain.VerticalFinance),
		},
		{
			opp("AI meeting notes", "summaries", domain.BusinessSaaS, domain.VerticalProductivity),
			opp("", "", domain.BusinessSaaS, domain.VerticalProductivity),
		},
	}

	for _, p := range pairs {
		s := Score(p[0], p[1])
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestScore_CategoricalAgreementRaisesScore(t *testing.T) {
	base := opp("AI meeting notes", "Automatic summaries for standups", domain.BusinessSaaS, domain.VerticalProductivity)
	same := opp("Meeting summaries", "Automatic notes for standups", domain.BusinessSaaS, domain.VerticalProductivity)
	other := opp("Meeting summaries", "Automatic notes for standups", domain.BusinessMarketplace, domain.VerticalFinance)

	assert.Greater(t, Score(base, same), Score(base, other))
}

func TestScore_PostsCompareOnTextOnly(t *testing.T) {
	a := domain.Post{Title: "Need a tool for meeting notes", Body: "taking notes manually is painful"}
	b := domain.Post{Title: "Need a tool for meeting notes", Body: "taking notes manually is painful"}

	assert.InDelta(t, 1.0, Score(a, b), 1e-9)
}

func TestScore_CaseAndPunctuationInsensitive(t *testing.T) {
	a := opp("AI Meeting Notes!", "Automatic summaries, for standups.", domain.BusinessSaaS, domain.VerticalProductivity)
	b := opp("ai meeting notes", "automatic summaries for standups", domain.BusinessSaaS, domain.VerticalProductivity)

	assert.InDelta(t, 1.0, Score(a, b), 1e-9)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "punctuation stripped", in: "notes, notes; NOTES!", want: []string{"notes"}},
		{name: "single chars dropped", in: "a b meeting", want: []string{"meeting"}},
		{name: "digits kept", in: "top 10 ideas", want: []string{"10", "ideas", "top"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			assert.Len(t, got, len(tt.want))

			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
		})
	}
}
