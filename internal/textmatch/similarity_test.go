package textmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarityRange(t *testing.T) {
	pairs := [][2]string{
		{"click button", "click button"},
		{"click button", "tap button"},
		{"", ""},
		{"", "anything"},
		{"abc", "xyz"},
		{"User clicks the 'Submit' button", "user click 'submit' button"},
	}

	for _, p := range pairs {
		s := Similarity(p[0], p[1])
		assert.GreaterOrEqual(t, s, 0.0, "sim(%q,%q)", p[0], p[1])
		assert.LessOrEqual(t, s, 1.0, "sim(%q,%q)", p[0], p[1])
	}
}

func TestSimilarityIdentity(t *testing.T) {
	for _, s := range []string{"", "a", "click the 'OK' button", "ünïcodé"} {
		assert.Equal(t, 1.0, Similarity(s, s))
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"click button", "tap button"},
		{"wait for page", "wait for the page to load"},
		{"", "x"},
	}
	for _, p := range pairs {
		assert.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]))
	}
}

func TestSimilarityCaseInsensitive(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Click Button", "click button"))
}

func TestSimilarityKnownValues(t *testing.T) {
	// levenshtein("kitten","sitting") = 3, max len 7
	assert.InDelta(t, 1.0-3.0/7.0, Similarity("kitten", "sitting"), 1e-9)
	// completely disjoint strings of equal length
	assert.InDelta(t, 0.0, Similarity("abc", "xyz"), 1e-9)
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "lev(%q,%q)", tt.a, tt.b)
	}
}

func TestShortlist(t *testing.T) {
	corpus := []string{
		"click 'Submit' button",
		"fill 'value' into field",
		"navigate to page",
		"expect 'text' visible",
	}

	short := Shortlist("click 'Save' button", corpus, 2)
	assert.Len(t, short, 2)
	assert.Equal(t, "click 'Submit' button", short[0].Text)
	assert.Greater(t, short[0].Similarity, short[1].Similarity)
}

func TestShortlistFallsBackToFullScan(t *testing.T) {
	corpus := []string{"zzz", "yyy"}
	// No subsequence match possible, but the full scan still returns scored
	// candidates.
	short := Shortlist("abc", corpus, 10)
	assert.Len(t, short, 2)
}

func TestBestFindsTransposedCandidate(t *testing.T) {
	// "bacd" is the closest candidate by edit distance but the query is not a
	// subsequence of it; a subsequence prefilter alone would drop it in favor
	// of the padded entry.
	best, ok := Best("abcd", []string{"axxbxxcxxd", "bacd"})
	require.True(t, ok)
	assert.Equal(t, "bacd", best.Text)
	assert.Equal(t, 0.5, best.Similarity)
}

func TestBest(t *testing.T) {
	_, ok := Best("anything", nil)
	assert.False(t, ok)

	best, ok := Best("click button", []string{"click button", "other"})
	assert.True(t, ok)
	assert.Equal(t, "click button", best.Text)
	assert.Equal(t, 1.0, best.Similarity)
}
