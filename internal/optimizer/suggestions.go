package optimizer

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/chunkopt/internal/profile"
)

// stamp fills in the identity fields of a new optimization.
type stamp func(chunkID string) (id string, at time.Time)

// suggest classifies every enabled check and returns one optimization per
// actionable priority, in quality, redundancy, size, similarity order. When
// nothing is actionable the single info entry is returned.
func suggest(m Metrics, p profile.Profile, opts Options, st stamp) []Optimization {
	var out []Optimization
	add := func(kind Kind, pr profile.Priority, title, desc, action string) {
		if !pr.Actionable() {
			return
		}
		id, at := st(m.ChunkID)
		out = append(out, Optimization{
			ID:              id,
			ChunkID:         m.ChunkID,
			Kind:            kind,
			Priority:        pr,
			Title:           title,
			Description:     desc,
			SuggestedAction: action,
			CreatedAt:       at,
			Status:          StatusPending,
		})
	}

	if opts.CheckQuality {
		add(KindQuality,
			profile.Classify(m.Quality, p.QualityThreshold),
			"Chunk quality needs improvement",
			fmt.Sprintf("Quality score is %.2f, which is below the recommended threshold of %v", m.Quality, p.QualityThreshold),
			"Review and rewrite the chunk to improve clarity, coherence, and completeness")
	}

	if opts.CheckRedundancy {
		thr := p.RedundancyThreshold
		add(KindRedundancy,
			profile.ClassifyWith(m.Redundancy, thr, thr*profile.RedundancyHighFactor),
			"Redundant content detected",
			fmt.Sprintf("Redundancy score is %.2f, indicating significant repetitive content", m.Redundancy),
			"Remove or consolidate redundant information to improve efficiency")
	}

	if opts.CheckSize {
		add(KindSize,
			profile.Classify(m.Size, p.SizeThreshold),
			"Chunk size is suboptimal",
			fmt.Sprintf("Size score is %.2f, indicating chunk may be too short or too long", m.Size),
			fmt.Sprintf("Adjust chunk size to optimal range (%d-%d characters)", p.Bounds.OptimalLow, p.Bounds.OptimalHigh))
	}

	if opts.CheckSimilarity {
		thr := p.SimilarityThreshold
		if opts.SimilarityThreshold > 0 {
			thr = opts.SimilarityThreshold
		}
		add(KindSimilarity,
			profile.ClassifyWith(m.Similarity, thr, thr*profile.SimilarityHighFactor),
			"Highly similar content detected",
			fmt.Sprintf("Similarity score is %.2f, indicating potential duplicate content", m.Similarity),
			"Review and merge with similar chunks to avoid redundancy")
	}

	if len(out) == 0 {
		id, at := st(m.ChunkID)
		out = append(out, Optimization{
			ID:              id,
			ChunkID:         m.ChunkID,
			Kind:            KindInfo,
			Priority:        profile.PriorityLow,
			Title:           "No optimization needed",
			Description:     "This chunk meets all quality standards",
			SuggestedAction: "No action required",
			CreatedAt:       at,
			Status:          StatusApplied,
		})
	}
	return out
}

// countHigh returns the number of HIGH priority optimizations.
func countHigh(opts []Optimization) int {
	n := 0
	for _, o := range opts {
		if o.Priority == profile.PriorityHigh {
			n++
		}
	}
	return n
}
