package modelmatch

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Scores returned by Score, in cascade order.
const (
	ScoreExact             = 100
	ScoreNormalized        = 90
	ScoreNormalizedRaw     = 85
	ScoreCandidateExtends  = 80
	ScoreQueryExtends      = 75
	ScoreSameBase          = 70
	ScoreCandidateContains = 60
	ScoreQueryContains     = 50
	ScoreNone              = 0
)

// Acceptance thresholds for the different places models are matched.
const (
	// CacheThreshold is the lowest score a fuzzy cache hit may have.
	CacheThreshold = 70
	// SearchThreshold is the lowest score a website search result may have,
	// search relevance already filtered the candidates.
	SearchThreshold = 50
	// VerifyThreshold is the lowest score the model stated on a detail page
	// may have against the queried model.
	VerifyThreshold = 70
)

// Score returns how confidently candidate names the same product as query,
// from 0 to 100. The first matching rule wins, scores are never blended.
// Score is not symmetric: a candidate extending the query scores higher than
// a query extending the candidate.
func Score(query, candidate string) int {
	if query == "" || candidate == "" {
		return ScoreNone
	}

	q := Key(query)
	c := Key(candidate)
	if q == c {
		return ScoreExact
	}

	qn := Normalize(q)
	cn := Normalize(c)
	switch {
	case qn == cn:
		return ScoreNormalized
	case qn == c:
		return ScoreNormalizedRaw
	case strings.HasPrefix(cn, qn):
		return ScoreCandidateExtends
	case strings.HasPrefix(qn, cn):
		return ScoreQueryExtends
	}

	qb := Base(qn)
	cb := Base(cn)
	if qb != "" && cb != "" && qb == cb {
		return ScoreSameBase
	}

	switch {
	case strings.Contains(cn, qn):
		return ScoreCandidateContains
	case strings.Contains(qn, cn):
		return ScoreQueryContains
	}
	return ScoreNone
}

// Best returns the index and score of the candidate that best matches query.
// Candidates with the same score are told apart by their Jaro-Winkler
// similarity to the query and then by their position, which keeps the result
// deterministic no matter what order the candidates come from.
//
// index is -1 when there are no candidates.
func Best(query string, candidates []string) (index, score int) {
	index = -1
	var bestSimilarity float64
	q := Key(query)

	for i, candidate := range candidates {
		s := Score(query, candidate)
		if index >= 0 && s < score {
			continue
		}

		similarity := matchr.JaroWinkler(q, Key(candidate), false)
		if index < 0 || s > score || similarity > bestSimilarity {
			index = i
			score = s
			bestSimilarity = similarity
		}
	}
	return index, score
}
