package optimizer

import (
	v1 "github.com/fyrsmithlabs/chunkopt/pkg/api/v1"

	"github.com/fyrsmithlabs/chunkopt/internal/profile"
)

// OptionsFromAPI converts wire options. Unset checks stay enabled; a nil
// input yields nil, which the engine treats as DefaultOptions.
func OptionsFromAPI(in *v1.AnalysisOptions) *Options {
	if in == nil {
		return nil
	}
	o := DefaultOptions()
	if in.CheckQuality != nil {
		o.CheckQuality = *in.CheckQuality
	}
	if in.CheckRedundancy != nil {
		o.CheckRedundancy = *in.CheckRedundancy
	}
	if in.CheckSize != nil {
		o.CheckSize = *in.CheckSize
	}
	if in.CheckSimilarity != nil {
		o.CheckSimilarity = *in.CheckSimilarity
	}
	if in.SimilarityThreshold != nil {
		o.SimilarityThreshold = *in.SimilarityThreshold
	}
	return &o
}

// ChunksFromAPI converts wire chunks.
func ChunksFromAPI(in []v1.Chunk) []Chunk {
	out := make([]Chunk, len(in))
	for i, c := range in {
		out[i] = Chunk{ID: c.ChunkID, Content: c.Content, Metadata: c.Metadata}
	}
	return out
}

// API returns the wire form of m.
func (m Metrics) API() v1.Metrics {
	return v1.Metrics{
		ChunkID:         m.ChunkID,
		QualityScore:    m.Quality,
		RedundancyScore: m.Redundancy,
		SizeScore:       m.Size,
		SimilarityScore: m.Similarity,
		OverallScore:    m.Overall,
	}
}

// API returns the wire form of o.
func (o Optimization) API() v1.Optimization {
	return v1.Optimization{
		ID:              o.ID,
		ChunkID:         o.ChunkID,
		Type:            string(o.Kind),
		Priority:        string(o.Priority),
		Title:           o.Title,
		Description:     o.Description,
		SuggestedAction: o.SuggestedAction,
		CreatedAt:       o.CreatedAt,
		Status:          string(o.Status),
	}
}

func optimizationsAPI(in []Optimization) []v1.Optimization {
	out := make([]v1.Optimization, len(in))
	for i, o := range in {
		out[i] = o.API()
	}
	return out
}

func itemsAPI(in []ItemResult) []v1.ItemResult {
	out := make([]v1.ItemResult, len(in))
	for i, it := range in {
		item := v1.ItemResult{ChunkID: it.ChunkID}
		if it.Err != nil {
			item.Error = it.Err.Error()
		} else if it.Metrics != nil {
			m := it.Metrics.API()
			item.Metrics = &m
			item.Optimizations = optimizationsAPI(it.Optimizations)
		}
		out[i] = item
	}
	return out
}

// API returns the wire form of r.
func (r *ChunkResult) API() v1.AnalyzeChunkResponse {
	return v1.AnalyzeChunkResponse{
		Optimization:  r.Primary.API(),
		Optimizations: optimizationsAPI(r.Optimizations),
		Metrics:       r.Metrics.API(),
	}
}

// API returns the wire form of r.
func (r *DocumentResult) API() v1.DocumentResponse {
	return v1.DocumentResponse{
		DocumentID:    r.DocumentID,
		Domain:        r.Domain,
		Optimizations: optimizationsAPI(r.Optimizations),
		Total:         r.Total,
		HighPriority:  r.HighPriority,
		Failed:        append([]string{}, r.Failed...),
		Items:         itemsAPI(r.Items),
	}
}

// API returns the wire form of r.
func (r *BatchResult) API() v1.BatchResponse {
	return v1.BatchResponse{
		BatchID:       r.BatchID,
		Domain:        r.Domain,
		Total:         r.Total,
		Processed:     r.Processed,
		Optimizations: optimizationsAPI(r.Optimizations),
		Failed:        append([]string{}, r.Failed...),
		Items:         itemsAPI(r.Items),
	}
}

// ProfileAPI returns the wire form of p.
func ProfileAPI(p profile.Profile) v1.Profile {
	return v1.Profile{
		Name:                p.Name,
		QualityWeight:       p.QualityWeight,
		RedundancyWeight:    p.RedundancyWeight,
		SizeWeight:          p.SizeWeight,
		SimilarityWeight:    p.SimilarityWeight,
		QualityThreshold:    p.QualityThreshold,
		RedundancyThreshold: p.RedundancyThreshold,
		SizeThreshold:       p.SizeThreshold,
		SimilarityThreshold: p.SimilarityThreshold,
		MinLength:           p.Bounds.Min,
		MaxLength:           p.Bounds.Max,
		OptimalLength:       [2]int{p.Bounds.OptimalLow, p.Bounds.OptimalHigh},
	}
}
