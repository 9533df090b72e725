package optimizer

import (
	"time"

	"github.com/fyrsmithlabs/chunkopt/internal/profile"
)

// Kind identifies which check produced an Optimization.
type Kind string

const (
	KindQuality    Kind = "quality"
	KindRedundancy Kind = "redundancy"
	KindSize       Kind = "size"
	KindSimilarity Kind = "similarity"
	KindInfo       Kind = "info"
)

// Status is the lifecycle state of an Optimization.
type Status string

const (
	StatusPending Status = "pending"
	StatusApplied Status = "applied"
	StatusIgnored Status = "ignored"
)

// Chunk is a fragment of text submitted for analysis.
type Chunk struct {
	ID       string         `json:"chunk_id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Metrics are the scores computed for one chunk. All scores lie in [0,1].
type Metrics struct {
	ChunkID    string  `json:"chunk_id"`
	Quality    float64 `json:"quality_score"`
	Redundancy float64 `json:"redundancy_score"`
	Size       float64 `json:"size_score"`
	Similarity float64 `json:"similarity_score"`
	Overall    float64 `json:"overall_score"`
}

// Optimization is a suggestion produced for one chunk.
type Optimization struct {
	ID              string           `json:"id"`
	ChunkID         string           `json:"chunk_id"`
	Kind            Kind             `json:"type"`
	Priority        profile.Priority `json:"priority"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	SuggestedAction string           `json:"suggested_action"`
	CreatedAt       time.Time        `json:"created_at"`
	Status          Status           `json:"status"`
}

// Options selects which checks may emit suggestions.
type Options struct {
	CheckQuality    bool
	CheckRedundancy bool
	CheckSize       bool
	CheckSimilarity bool

	// SimilarityThreshold overrides the profile's similarity threshold when
	// greater than zero.
	SimilarityThreshold float64
}

// DefaultOptions enables every check.
func DefaultOptions() Options {
	return Options{
		CheckQuality:    true,
		CheckRedundancy: true,
		CheckSize:       true,
		CheckSimilarity: true,
	}
}

func optionsOrDefault(opts *Options) Options {
	if opts == nil {
		return DefaultOptions()
	}
	return *opts
}

// ChunkResult is the outcome of analyzing a single chunk.
type ChunkResult struct {
	Metrics       Metrics        `json:"metrics"`
	Optimizations []Optimization `json:"optimizations"`
	// Primary is the first optimization, or the info entry when the chunk
	// needs no changes.
	Primary Optimization `json:"optimization"`
}

// ItemResult is the per-chunk entry of a document or batch result. Exactly one
// of Metrics and Err is set.
type ItemResult struct {
	ChunkID       string
	Metrics       *Metrics
	Optimizations []Optimization
	Err           error
}

// Failed reports whether the item could not be analyzed.
func (r ItemResult) Failed() bool {
	return r.Err != nil
}

// DocumentResult aggregates the analysis of every chunk in a document.
type DocumentResult struct {
	DocumentID    string
	Domain        string
	Items         []ItemResult
	Optimizations []Optimization
	// Total is the number of optimizations produced.
	Total        int
	HighPriority int
	Failed       []string
}

// BatchResult aggregates the analysis of a batch of independent items.
type BatchResult struct {
	BatchID string
	Domain  string
	// Total is the number of submitted items; Processed counts the items
	// that were analyzed successfully.
	Total         int
	Processed     int
	Optimizations []Optimization
	Failed        []string
	Items         []ItemResult
}
