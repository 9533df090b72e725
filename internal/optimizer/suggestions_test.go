package optimizer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/chunkopt/internal/profile"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sequentialStamp() stamp {
	n := 0
	return func(string) (string, time.Time) {
		n++
		return fmt.Sprintf("opt-%d", n), fixedTime
	}
}

func kinds(opts []Optimization) []Kind {
	out := make([]Kind, len(opts))
	for i, o := range opts {
		out[i] = o.Kind
	}
	return out
}

func TestSuggest_Templates(t *testing.T) {
	p := profile.Resolve(profile.Default)
	m := Metrics{ChunkID: "c1", Quality: 0.5, Redundancy: 0.1, Size: 0.2, Similarity: 0.3}

	out := suggest(m, p, DefaultOptions(), sequentialStamp())
	require.Len(t, out, 4)
	assert.Equal(t, []Kind{KindQuality, KindRedundancy, KindSize, KindSimilarity}, kinds(out))

	q := out[0]
	assert.Equal(t, "opt-1", q.ID)
	assert.Equal(t, "c1", q.ChunkID)
	assert.Equal(t, profile.PriorityMedium, q.Priority)
	assert.Equal(t, StatusPending, q.Status)
	assert.Equal(t, fixedTime, q.CreatedAt)
	assert.Equal(t, "Chunk quality needs improvement", q.Title)
	assert.Equal(t, "Quality score is 0.50, which is below the recommended threshold of 0.6", q.Description)
	assert.Equal(t, "Review and rewrite the chunk to improve clarity, coherence, and completeness", q.SuggestedAction)

	r := out[1]
	assert.Equal(t, profile.PriorityHigh, r.Priority)
	assert.Equal(t, "Redundant content detected", r.Title)
	assert.Equal(t, "Redundancy score is 0.10, indicating significant repetitive content", r.Description)
	assert.Equal(t, "Remove or consolidate redundant information to improve efficiency", r.SuggestedAction)

	s := out[2]
	assert.Equal(t, profile.PriorityHigh, s.Priority)
	assert.Equal(t, "Chunk size is suboptimal", s.Title)
	assert.Equal(t, "Size score is 0.20, indicating chunk may be too short or too long", s.Description)
	assert.Equal(t, "Adjust chunk size to optimal range (300-1000 characters)", s.SuggestedAction)

	sim := out[3]
	assert.Equal(t, profile.PriorityHigh, sim.Priority)
	assert.Equal(t, "Highly similar content detected", sim.Title)
	assert.Equal(t, "Similarity score is 0.30, indicating potential duplicate content", sim.Description)
	assert.Equal(t, "Review and merge with similar chunks to avoid redundancy", sim.SuggestedAction)
}

func TestSuggest_InfoWhenNothingActionable(t *testing.T) {
	p := profile.Resolve(profile.Default)
	m := Metrics{ChunkID: "c1", Quality: 0.9, Redundancy: 0.7, Size: 1, Similarity: 0.95}

	out := suggest(m, p, DefaultOptions(), sequentialStamp())
	require.Len(t, out, 1)

	info := out[0]
	assert.Equal(t, KindInfo, info.Kind)
	assert.Equal(t, StatusApplied, info.Status)
	assert.Equal(t, profile.PriorityLow, info.Priority)
	assert.Equal(t, "No optimization needed", info.Title)
	assert.Equal(t, "This chunk meets all quality standards", info.Description)
	assert.Equal(t, "No action required", info.SuggestedAction)
}

func TestSuggest_DisabledChecks(t *testing.T) {
	p := profile.Resolve(profile.Default)
	m := Metrics{ChunkID: "c1"}

	out := suggest(m, p, Options{CheckSize: true}, sequentialStamp())
	assert.Equal(t, []Kind{KindSize}, kinds(out))

	out = suggest(m, p, Options{}, sequentialStamp())
	assert.Equal(t, []Kind{KindInfo}, kinds(out))
}

func TestSuggest_RedundancyNeverMedium(t *testing.T) {
	p := profile.Resolve(profile.Default) // redundancy threshold 0.5, high 0.6

	for _, score := range []float64{0, 0.3, 0.49, 0.5, 0.55, 0.59} {
		out := suggest(Metrics{ChunkID: "c", Redundancy: score}, p, Options{CheckRedundancy: true}, sequentialStamp())
		require.Len(t, out, 1)
		assert.Equal(t, profile.PriorityHigh, out[0].Priority, "score %v", score)
	}

	out := suggest(Metrics{ChunkID: "c", Redundancy: 0.6}, p, Options{CheckRedundancy: true}, sequentialStamp())
	assert.Equal(t, KindInfo, out[0].Kind)
}

func TestSuggest_SimilarityThresholdOverride(t *testing.T) {
	p := profile.Resolve(profile.Default) // similarity threshold 0.85, high 0.935
	m := Metrics{ChunkID: "c", Similarity: 0.9}

	out := suggest(m, p, Options{CheckSimilarity: true}, sequentialStamp())
	assert.Equal(t, []Kind{KindSimilarity}, kinds(out))
	assert.Equal(t, profile.PriorityHigh, out[0].Priority)

	out = suggest(m, p, Options{CheckSimilarity: true, SimilarityThreshold: 0.5}, sequentialStamp())
	assert.Equal(t, []Kind{KindInfo}, kinds(out))
}

func TestSuggest_ThresholdFormattingPerProfile(t *testing.T) {
	p := profile.Resolve(profile.Medical)
	out := suggest(Metrics{ChunkID: "c", Quality: 0.1}, p, Options{CheckQuality: true, CheckSize: true}, sequentialStamp())

	require.Len(t, out, 2)
	assert.Equal(t, "Quality score is 0.10, which is below the recommended threshold of 0.8", out[0].Description)
	assert.Equal(t, "Adjust chunk size to optimal range (800-2500 characters)", out[1].SuggestedAction)
}

func TestCountHigh(t *testing.T) {
	opts := []Optimization{
		{Priority: profile.PriorityHigh},
		{Priority: profile.PriorityMedium},
		{Priority: profile.PriorityHigh},
		{Priority: profile.PriorityLow},
	}
	assert.Equal(t, 2, countHigh(opts))
	assert.Zero(t, countHigh(nil))
}
