package textmatch

import (
	"github.com/sahilm/fuzzy"
)

// Candidate pairs a corpus string with its Levenshtein similarity to a query.
type Candidate struct {
	Index      int // position in the source slice
	Text       string
	Similarity float64
}

// fullScanMax is the haystack size below which every entry is scored exactly.
// Subsequence prefiltering can exclude a candidate whose Levenshtein
// similarity would have won (transpositions defeat subsequence matching), so
// it is only worth that risk on haystacks too large to scan outright.
const fullScanMax = 512

// Shortlist narrows haystack to the candidates worth returning, scored with
// Similarity and sorted best first. Haystacks up to fullScanMax are scored
// exhaustively, so no candidate exact scoring would accept is ever lost. Only
// beyond that does a cheap fuzzy subsequence pass prefilter the entries,
// falling back to the full scan when it finds nothing.
func Shortlist(query string, haystack []string, limit int) []Candidate {
	if len(haystack) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	var matches fuzzy.Matches
	if len(haystack) > fullScanMax {
		matches = fuzzy.Find(query, haystack)
	}

	var candidates []Candidate
	if len(matches) == 0 {
		candidates = make([]Candidate, 0, len(haystack))
		for i, s := range haystack {
			candidates = append(candidates, Candidate{Index: i, Text: s, Similarity: Similarity(query, s)})
		}
	} else {
		candidates = make([]Candidate, 0, len(matches))
		for _, m := range matches {
			candidates = append(candidates, Candidate{Index: m.Index, Text: m.Str, Similarity: Similarity(query, m.Str)})
		}
	}

	sortBySimilarity(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// Best returns the single highest-similarity candidate, or false when the
// haystack is empty.
func Best(query string, haystack []string) (Candidate, bool) {
	short := Shortlist(query, haystack, len(haystack))
	if len(short) == 0 {
		return Candidate{}, false
	}
	return short[0], true
}

func sortBySimilarity(cs []Candidate) {
	// Insertion sort: shortlists are tiny and ties must stay stable so that
	// earlier corpus entries win deterministic tie-breaks.
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && cs[j].Similarity > cs[j-1].Similarity; j-- {
			cs[j], cs[j-1] = cs[j-1], cs[j]
		}
	}
}
