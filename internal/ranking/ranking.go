// Package ranking scores feed candidates for one user.
//
// A score blends four components in [0,1]:
//
//	0.4 interest + 0.3 source affinity + 0.2 popularity + 0.1 recency
//
// Popularity is normalized per source type within one call so that
// sources with large vote counts do not crowd out the rest, and types
// without meaningful counts get a neutral 0.5.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const (
	interestWeight   = 0.4
	affinityWeight   = 0.3
	popularityWeight = 0.2
	recencyWeight    = 0.1

	neutral = 0.5
)

// Candidate is an item being ranked.
type Candidate struct {
	FeedItemID  uint
	Title       string
	Link        string
	SourceName  string
	SourceType  string
	Description string
	Summary     *string
	ArticleURL  *string
	CommentsURL *string
	Points      int
	Views       int
	Published   *time.Time
	CreatedAt   time.Time
	Score       float64
}

type InterestSource interface {
	Weights(ctx context.Context, userID uint) (map[string]float64, error)
}

type AffinitySource interface {
	Affinities(ctx context.Context, userID uint) (map[string]float64, error)
}

// Engine computes rank scores. HasCounts reports whether a source type's
// points and views are meaningful; nil treats every type as count-less.
// A positive HalfLife turns on exponential recency decay.
type Engine struct {
	Interests  InterestSource
	Affinities AffinitySource
	HasCounts  func(sourceType string) bool
	HalfLife   time.Duration
	Now        func() time.Time
}

// ComputeScores returns the candidates with Score set, sorted by
// descending score. Ties keep their input order.
func (e *Engine) ComputeScores(ctx context.Context, userID uint, items []Candidate) ([]Candidate, error) {
	if len(items) == 0 {
		return nil, nil
	}
	interests, err := e.Interests.Weights(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load interests: %w", err)
	}
	affinities, err := e.Affinities.Affinities(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load source affinities: %w", err)
	}

	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}
	maxPop := e.popularityContext(items)

	out := make([]Candidate, len(items))
	for i, c := range items {
		c.Score = interestWeight*interestScore(c, interests) +
			affinityWeight*affinityScore(c, affinities) +
			popularityWeight*e.popularityScore(c, maxPop) +
			recencyWeight*e.recencyScore(c, now)
		out[i] = c
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func interestScore(c Candidate, interests map[string]float64) float64 {
	if len(interests) == 0 {
		return 0
	}
	summary := ""
	if c.Summary != nil {
		summary = *c.Summary
	}
	text := strings.ToLower(c.Title + " " + summary + " " + c.Description)
	var (
		total   float64
		matched int
	)
	for topic, w := range interests {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			continue
		}
		if strings.Contains(text, strings.ToLower(topic)) {
			total += w
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	return math.Min(total/float64(matched), 1)
}

func affinityScore(c Candidate, affinities map[string]float64) float64 {
	a, ok := affinities[c.SourceName]
	if !ok {
		return neutral
	}
	return (a + 1) / 2
}

func rawPopularity(points, views int) float64 {
	return math.Log1p(float64(max(points, 0))) + 0.5*math.Log1p(float64(max(views, 0)))
}

func (e *Engine) hasCounts(sourceType string) bool {
	return e.HasCounts != nil && e.HasCounts(sourceType)
}

// popularityContext returns the normalizing maximum per source type,
// never below 1.
func (e *Engine) popularityContext(items []Candidate) map[string]float64 {
	out := make(map[string]float64)
	for _, c := range items {
		if !e.hasCounts(c.SourceType) {
			continue
		}
		if _, ok := out[c.SourceType]; !ok {
			out[c.SourceType] = 1
		}
		out[c.SourceType] = math.Max(out[c.SourceType], rawPopularity(c.Points, c.Views))
	}
	return out
}

func (e *Engine) popularityScore(c Candidate, maxPop map[string]float64) float64 {
	if !e.hasCounts(c.SourceType) {
		return neutral
	}
	return rawPopularity(c.Points, c.Views) / maxPop[c.SourceType]
}

func (e *Engine) recencyScore(c Candidate, now time.Time) float64 {
	if e.HalfLife <= 0 {
		return neutral
	}
	var at time.Time
	switch {
	case c.Published != nil:
		at = *c.Published
	case !c.CreatedAt.IsZero():
		at = c.CreatedAt
	default:
		return neutral
	}
	age := now.Sub(at)
	if age < 0 {
		age = 0
	}
	return math.Pow(0.5, float64(age)/float64(e.HalfLife))
}

var knownTypes = []string{"hackernews", "reddit", "telegram", "youtube", "github", "twitter", "v2ex"}

// InferSourceType guesses a source type from a generated source name such
// as "reddit-r-golang". Unknown names are "rss".
func InferSourceType(sourceName string) string {
	lower := strings.ToLower(sourceName)
	for _, t := range knownTypes {
		if strings.HasPrefix(lower, t) {
			return t
		}
	}
	return "rss"
}
