// Package mapper translates remote response shapes into the domain model and
// computes search relevance. Everything in here is a pure function over its
// inputs (the score jitter aside); no I/O.
package mapper

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/weehan299/poetica/app/database"
	"github.com/weehan299/poetica/app/remote"
)

type Match string

const (
	MatchExactTitle    Match = "exact-title"
	MatchPartialTitle  Match = "partial-title"
	MatchExactAuthor   Match = "exact-author"
	MatchPartialAuthor Match = "partial-author"
	MatchContent       Match = "content"
)

// SearchHit is one scored search result. Hits are ephemeral: built per
// query, never persisted.
type SearchHit struct {
	Poem  database.Poem `json:"poem"`
	Match Match         `json:"match"`
	Score float64       `json:"score"`
}

// Base scores per match tier. An exact title match always outranks a title
// prefix, which outranks an author match, which outranks a content hit.
const (
	scoreExactTitle   = 100.0
	scorePartialTitle = 80.0
	scoreAuthor       = 60.0
	scoreContent      = 40.0
)

// ToPoem converts a remote record into a domain poem with REMOTE provenance.
func ToPoem(p remote.Poem) database.Poem {
	return database.Poem{
		ID:         p.ID,
		Title:      p.Title,
		Author:     p.Author,
		Content:    p.Content,
		FirstLine:  database.FirstLine(p.Content),
		SourceType: database.SourceRemote,
	}
}

// ToSearchHit classifies and scores a remote search record against the
// query. The score carries a bounded random jitter (< 1.0) so that near-tied
// results don't come back in a perfectly stable order; it never changes
// tier ordering.
func ToSearchHit(p remote.Poem, query string) SearchHit {
	match := classify(p.Title, p.Author, query)
	score := baseScore(match) + lengthQuality(p.Content) + rand.Float64()

	return SearchHit{
		Poem:  ToPoem(p),
		Match: match,
		Score: score,
	}
}

// ScoreLocal is the local-search analog of ToSearchHit: same tiers and
// length adjustment, no jitter, so fallback results are reproducible.
func ScoreLocal(p database.Poem, query string) SearchHit {
	match := classify(p.Title, p.Author, query)

	return SearchHit{
		Poem:  p,
		Match: match,
		Score: baseScore(match) + lengthQuality(p.Content),
	}
}

func classify(title string, author string, query string) Match {
	q := strings.ToLower(strings.TrimSpace(query))
	t := strings.ToLower(title)
	a := strings.ToLower(author)

	switch {
	case t == q:
		return MatchExactTitle
	case strings.HasPrefix(t, q) || strings.Contains(t, q):
		return MatchPartialTitle
	case a == q:
		return MatchExactAuthor
	case strings.Contains(a, q):
		return MatchPartialAuthor
	default:
		return MatchContent
	}
}

func baseScore(match Match) float64 {
	switch match {
	case MatchExactTitle:
		return scoreExactTitle
	case MatchPartialTitle:
		return scorePartialTitle
	case MatchExactAuthor, MatchPartialAuthor:
		// Both author kinds share one weight tier; the kind distinction is
		// carried on the hit for the presentation layer.
		return scoreAuthor
	default:
		return scoreContent
	}
}

// lengthQuality nudges the score by content length: a very short body is
// probably a truncated preview, and a very long one is usually a worse fit
// for the reading view.
func lengthQuality(content string) float64 {
	length := len(content)

	switch {
	case length < 100:
		return -10
	case length > 5000:
		return -5
	case length >= 250 && length <= 2000:
		return 5
	default:
		return 0
	}
}

// ScoreAuthor scores an author result: exact name match 150, prefix 120,
// substring 100, plus a popularity bonus in bands by poem count.
func ScoreAuthor(name string, query string, poemCount int) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	n := strings.ToLower(name)

	var score float64
	switch {
	case n == q:
		score = 150
	case strings.HasPrefix(n, q):
		score = 120
	default:
		score = 100
	}

	switch {
	case poemCount >= 100:
		score += 20
	case poemCount >= 50:
		score += 15
	case poemCount >= 20:
		score += 10
	case poemCount >= 10:
		score += 5
	}

	return score
}

// SortHits orders hits by descending score. The sort is stable so equal
// scores keep their incoming order.
func SortHits(hits []SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
}
