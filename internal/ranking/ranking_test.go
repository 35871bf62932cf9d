package ranking

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticInterests map[string]float64

func (s staticInterests) Weights(context.Context, uint) (map[string]float64, error) { return s, nil }

type staticAffinities map[string]float64

func (s staticAffinities) Affinities(context.Context, uint) (map[string]float64, error) { return s, nil }

type failing struct{}

func (failing) Weights(context.Context, uint) (map[string]float64, error) {
	return nil, errors.New("db down")
}

func countsFor(types ...string) func(string) bool {
	return func(t string) bool {
		for _, x := range types {
			if x == t {
				return true
			}
		}
		return false
	}
}

func engine(interests staticInterests, aff staticAffinities) *Engine {
	return &Engine{
		Interests:  interests,
		Affinities: aff,
		HasCounts:  countsFor("hackernews", "reddit", "youtube", "github", "v2ex"),
	}
}

func scoreOf(t *testing.T, out []Candidate, id uint) float64 {
	t.Helper()
	for _, c := range out {
		if c.FeedItemID == id {
			return c.Score
		}
	}
	t.Fatalf("candidate %d missing", id)
	return 0
}

func TestComputeScoresNeutralBaseline(t *testing.T) {
	out, err := engine(nil, nil).ComputeScores(context.Background(), 1, []Candidate{
		{FeedItemID: 1, Title: "plain", SourceName: "blog", SourceType: "rss"},
	})
	require.NoError(t, err)
	// 0.4*0 + 0.3*0.5 + 0.2*0.5 + 0.1*0.5
	assert.InDelta(t, 0.3, out[0].Score, 1e-9)
}

func TestInterestMatchRanksFirst(t *testing.T) {
	summary := "A deep dive into the borrow checker"
	in := []Candidate{
		{FeedItemID: 1, Title: "Cooking pasta", SourceName: "blog", SourceType: "rss"},
		{FeedItemID: 2, Title: "Why Rust is fast", SourceName: "blog", SourceType: "rss"},
		{FeedItemID: 3, Title: "Memory safety", Summary: &summary, SourceName: "blog", SourceType: "rss"},
	}
	out, err := engine(staticInterests{"rust": 1.0, "borrow checker": 0.5}, nil).ComputeScores(context.Background(), 1, in)
	require.NoError(t, err)

	assert.Equal(t, uint(2), out[0].FeedItemID)
	assert.Equal(t, uint(3), out[1].FeedItemID)
	assert.Equal(t, uint(1), out[2].FeedItemID)
	assert.InDelta(t, 0.4*1.0+0.15+0.1+0.05, out[0].Score, 1e-9)
	assert.InDelta(t, 0.4*0.5+0.15+0.1+0.05, out[1].Score, 1e-9)
}

func TestInterestAveragesAndCaps(t *testing.T) {
	c := Candidate{Title: "Go and Rust and Zig"}
	assert.InDelta(t, 0.75, interestScore(c, map[string]float64{"go": 1.0, "rust": 0.5, "python": 2.0}), 1e-9)
	assert.InDelta(t, 1.0, interestScore(c, map[string]float64{"go": 2.0, "zig": 1.5}), 1e-9)
	assert.Zero(t, interestScore(c, map[string]float64{"haskell": 1}))
	assert.Zero(t, interestScore(c, nil))
}

func TestNonFiniteInterestWeightsAreIgnored(t *testing.T) {
	in := []Candidate{
		{FeedItemID: 1, Title: "Cooking pasta", SourceName: "blog", SourceType: "rss"},
		{FeedItemID: 2, Title: "Rust async", SourceName: "blog", SourceType: "rss"},
	}
	out, err := engine(staticInterests{"rust": math.NaN(), "async": math.Inf(1)}, nil).ComputeScores(context.Background(), 1, in)
	require.NoError(t, err)
	for _, c := range out {
		assert.False(t, math.IsNaN(c.Score))
		assert.InDelta(t, 0.3, c.Score, 1e-9)
	}
	assert.InDelta(t, 0.5, interestScore(in[1], map[string]float64{"rust": math.NaN(), "async": 0.5}), 1e-9)
}

func TestAffinity(t *testing.T) {
	aff := map[string]float64{"liked": 1, "hated": -1, "mixed": 0.5}
	assert.Equal(t, 1.0, affinityScore(Candidate{SourceName: "liked"}, aff))
	assert.Equal(t, 0.0, affinityScore(Candidate{SourceName: "hated"}, aff))
	assert.Equal(t, 0.75, affinityScore(Candidate{SourceName: "mixed"}, aff))
	assert.Equal(t, 0.5, affinityScore(Candidate{SourceName: "unknown"}, aff))
}

func TestPopularityIsNormalizedPerType(t *testing.T) {
	e := engine(nil, nil)
	in := []Candidate{
		{FeedItemID: 1, SourceName: "hackernews-frontpage", SourceType: "hackernews", Points: 1000},
		{FeedItemID: 2, SourceName: "hackernews-frontpage", SourceType: "hackernews", Points: 10},
		{FeedItemID: 3, SourceName: "reddit-r-go", SourceType: "reddit", Points: 5},
		{FeedItemID: 4, SourceName: "blog", SourceType: "rss", Points: 99999},
		{FeedItemID: 5, SourceName: "reddit-r-go", SourceType: "reddit"},
	}
	out, err := e.ComputeScores(context.Background(), 1, in)
	require.NoError(t, err)

	base := 0.15 + 0.05
	assert.InDelta(t, base+0.2*1.0, scoreOf(t, out, 1), 1e-9)
	assert.InDelta(t, base+0.2*math.Log1p(10)/math.Log1p(1000), scoreOf(t, out, 2), 1e-9)
	// The top item of a small type scores as high as the top of a large one.
	assert.InDelta(t, base+0.2*1.0, scoreOf(t, out, 3), 1e-9)
	// Counts are ignored for types without them.
	assert.InDelta(t, base+0.2*0.5, scoreOf(t, out, 4), 1e-9)
	assert.InDelta(t, base, scoreOf(t, out, 5), 1e-9)
}

func TestPopularityZeroMaxNormalizesAgainstOne(t *testing.T) {
	out, err := engine(nil, nil).ComputeScores(context.Background(), 1, []Candidate{
		{FeedItemID: 1, SourceType: "youtube"},
		{FeedItemID: 2, SourceType: "youtube"},
	})
	require.NoError(t, err)
	for _, c := range out {
		assert.InDelta(t, 0.2, c.Score, 1e-9)
	}
}

func TestViewsCountHalf(t *testing.T) {
	assert.InDelta(t, 0.5*math.Log1p(100), rawPopularity(0, 100), 1e-12)
	assert.InDelta(t, math.Log1p(3)+0.5*math.Log1p(7), rawPopularity(3, 7), 1e-12)
	assert.Zero(t, rawPopularity(-4, -1))
}

func TestMorePointsNeverScoresLower(t *testing.T) {
	e := engine(nil, nil)
	var in []Candidate
	for i := 0; i < 20; i++ {
		in = append(in, Candidate{FeedItemID: uint(i + 1), SourceType: "reddit", Points: i * 7})
	}
	out, err := e.ComputeScores(context.Background(), 1, in)
	require.NoError(t, err)
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].Score, out[i].Score)
	}
	assert.Equal(t, uint(20), out[0].FeedItemID)
}

func TestStableOnTies(t *testing.T) {
	in := []Candidate{
		{FeedItemID: 7, SourceType: "rss"},
		{FeedItemID: 3, SourceType: "rss"},
		{FeedItemID: 9, SourceType: "rss"},
	}
	out, err := engine(nil, nil).ComputeScores(context.Background(), 1, in)
	require.NoError(t, err)
	assert.Equal(t, []uint{7, 3, 9}, []uint{out[0].FeedItemID, out[1].FeedItemID, out[2].FeedItemID})
}

func TestRecencyDecay(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := &Engine{HalfLife: 24 * time.Hour, Now: func() time.Time { return now }}
	dayOld := now.Add(-24 * time.Hour)

	assert.InDelta(t, 1.0, e.recencyScore(Candidate{Published: &now}, now), 1e-9)
	assert.InDelta(t, 0.5, e.recencyScore(Candidate{Published: &dayOld}, now), 1e-9)
	assert.InDelta(t, 0.25, e.recencyScore(Candidate{CreatedAt: now.Add(-48 * time.Hour)}, now), 1e-9)
	assert.InDelta(t, 0.5, e.recencyScore(Candidate{}, now), 1e-9)

	future := now.Add(time.Hour)
	assert.InDelta(t, 1.0, e.recencyScore(Candidate{Published: &future}, now), 1e-9)

	off := &Engine{}
	assert.Equal(t, 0.5, off.recencyScore(Candidate{Published: &dayOld}, now))
}

func TestComputeScoresDoesNotMutateInput(t *testing.T) {
	in := []Candidate{{FeedItemID: 1, SourceType: "rss"}, {FeedItemID: 2, SourceType: "rss", Title: "go"}}
	_, err := engine(staticInterests{"go": 1}, nil).ComputeScores(context.Background(), 1, in)
	require.NoError(t, err)
	assert.Zero(t, in[0].Score)
	assert.Equal(t, uint(1), in[0].FeedItemID)
}

func TestComputeScoresSurfacesStorageErrors(t *testing.T) {
	e := &Engine{Interests: failing{}, Affinities: staticAffinities{}}
	_, err := e.ComputeScores(context.Background(), 1, []Candidate{{FeedItemID: 1}})
	assert.Error(t, err)

	out, err := e.ComputeScores(context.Background(), 1, nil)
	assert.NoError(t, err)
	assert.Empty(t, out)
}

func TestInferSourceType(t *testing.T) {
	cases := map[string]string{
		"reddit-r-LocalLLaMA": "reddit",
		"hackernews-best":     "hackernews",
		"YouTube-UCabc":       "youtube",
		"github-golang-go":    "github",
		"telegram-durov":      "telegram",
		"twitter-golang":      "twitter",
		"v2ex-python":         "v2ex",
		"my-blog-feed":        "rss",
		"":                    "rss",
	}
	for in, want := range cases {
		assert.Equal(t, want, InferSourceType(in), in)
	}
}

func TestRustInterestBeatsJavaScript(t *testing.T) {
	in := []Candidate{
		{FeedItemID: 1, Title: "JavaScript tips", SourceName: "hackernews-frontpage", SourceType: "hackernews", Points: 50},
		{FeedItemID: 2, Title: "Rust async internals", SourceName: "hackernews-frontpage", SourceType: "hackernews", Points: 50},
	}
	out, err := engine(staticInterests{"rust": 2.0}, nil).ComputeScores(context.Background(), 1, in)
	require.NoError(t, err)
	assert.Equal(t, uint(2), out[0].FeedItemID)
	assert.InDelta(t, 0.4, out[0].Score-out[1].Score, 1e-9)
}
