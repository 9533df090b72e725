package v1

import "time"

// Limits on request sizes.
const (
	MaxChunksPerRequest = 1000
	MaxIDLength         = 256
)

// AnalysisOptions selects the checks that may produce suggestions. Unset
// checks default to enabled.
type AnalysisOptions struct {
	CheckQuality        *bool    `json:"check_quality,omitempty"`
	CheckRedundancy     *bool    `json:"check_redundancy,omitempty"`
	CheckSize           *bool    `json:"check_size,omitempty"`
	CheckSimilarity     *bool    `json:"check_similarity,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty" validate:"omitempty,gt=0,lte=1"`
}

// Chunk is a chunk inside a document or batch request.
type Chunk struct {
	ChunkID  string         `json:"chunk_id" validate:"required,max=256"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// AnalyzeChunkRequest is the body of POST /api/v1/chunks/analyze.
type AnalyzeChunkRequest struct {
	ChunkID  string           `json:"chunk_id" validate:"required,max=256"`
	Content  string           `json:"content"`
	Metadata map[string]any   `json:"metadata,omitempty"`
	Domain   string           `json:"domain,omitempty" validate:"max=64"`
	Options  *AnalysisOptions `json:"options,omitempty"`
}

// AnalyzeDocumentRequest is the body of POST /api/v1/documents/analyze.
type AnalyzeDocumentRequest struct {
	DocumentID string           `json:"document_id" validate:"required,max=256"`
	Chunks     []Chunk          `json:"chunks" validate:"required,min=1,max=1000,dive"`
	Domain     string           `json:"domain,omitempty" validate:"max=64"`
	Options    *AnalysisOptions `json:"options,omitempty"`
}

// AnalyzeBatchRequest is the body of POST /api/v1/batch/analyze. An empty
// batch id is replaced by a generated one.
type AnalyzeBatchRequest struct {
	BatchID string           `json:"batch_id,omitempty" validate:"max=256"`
	Items   []Chunk          `json:"items" validate:"required,min=1,max=1000,dive"`
	Domain  string           `json:"domain,omitempty" validate:"max=64"`
	Options *AnalysisOptions `json:"options,omitempty"`
}

// SimilarityRequest is the body of POST /api/v1/similarity.
type SimilarityRequest struct {
	A string `json:"a" validate:"required"`
	B string `json:"b" validate:"required"`
}

// Metrics are the scores of one chunk.
type Metrics struct {
	ChunkID         string  `json:"chunk_id"`
	QualityScore    float64 `json:"quality_score"`
	RedundancyScore float64 `json:"redundancy_score"`
	SizeScore       float64 `json:"size_score"`
	SimilarityScore float64 `json:"similarity_score"`
	OverallScore    float64 `json:"overall_score"`
}

// Optimization is a suggestion for one chunk.
type Optimization struct {
	ID              string    `json:"id"`
	ChunkID         string    `json:"chunk_id"`
	Type            string    `json:"type"`
	Priority        string    `json:"priority"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	SuggestedAction string    `json:"suggested_action"`
	CreatedAt       time.Time `json:"created_at"`
	Status          string    `json:"status"`
}

// AnalyzeChunkResponse is returned by POST /api/v1/chunks/analyze.
// Optimization is the first entry of Optimizations.
type AnalyzeChunkResponse struct {
	Optimization  Optimization   `json:"optimization"`
	Optimizations []Optimization `json:"optimizations"`
	Metrics       Metrics        `json:"metrics"`
}

// ItemResult is the outcome for one chunk of a document or batch.
type ItemResult struct {
	ChunkID       string         `json:"chunk_id"`
	Metrics       *Metrics       `json:"metrics,omitempty"`
	Optimizations []Optimization `json:"optimizations,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// DocumentResponse is returned by POST /api/v1/documents/analyze.
type DocumentResponse struct {
	DocumentID    string         `json:"document_id"`
	Domain        string         `json:"domain"`
	Optimizations []Optimization `json:"optimizations"`
	Total         int            `json:"total"`
	HighPriority  int            `json:"high_priority"`
	Failed        []string       `json:"failed"`
	Items         []ItemResult   `json:"items"`
}

// BatchResponse is returned by POST /api/v1/batch/analyze.
type BatchResponse struct {
	BatchID       string         `json:"batch_id"`
	Domain        string         `json:"domain"`
	Total         int            `json:"total"`
	Processed     int            `json:"processed"`
	Optimizations []Optimization `json:"optimizations"`
	Failed        []string       `json:"failed"`
	Items         []ItemResult   `json:"items"`
}

// SimilarityResponse is returned by POST /api/v1/similarity.
type SimilarityResponse struct {
	Similarity float64 `json:"similarity"`
}

// Profile describes a domain profile.
type Profile struct {
	Name                string  `json:"name"`
	QualityWeight       float64 `json:"quality_weight"`
	RedundancyWeight    float64 `json:"redundancy_weight"`
	SizeWeight          float64 `json:"size_weight"`
	SimilarityWeight    float64 `json:"similarity_weight"`
	QualityThreshold    float64 `json:"quality_threshold"`
	RedundancyThreshold float64 `json:"redundancy_threshold"`
	SizeThreshold       float64 `json:"size_threshold"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	MinLength           int     `json:"min_length"`
	MaxLength           int     `json:"max_length"`
	OptimalLength       [2]int  `json:"optimal_length"`
}

// ProfilesResponse is returned by GET /api/v1/profiles.
type ProfilesResponse struct {
	Profiles []Profile `json:"profiles"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// ReadyResponse is returned by GET /ready.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Profiles int               `json:"profiles"`
	Checks   map[string]string `json:"checks,omitempty"`
}
