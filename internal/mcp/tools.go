package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	v1 "github.com/fyrsmithlabs/chunkopt/pkg/api/v1"

	"github.com/fyrsmithlabs/chunkopt/internal/logging"
	"github.com/fyrsmithlabs/chunkopt/internal/optimizer"
)

var errInvalidInput = errors.New("invalid input")

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "chunk_analyze",
		Description: "Score a single RAG chunk for quality, redundancy, size and similarity and suggest optimizations",
	}, s.chunkAnalyze)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "document_analyze",
		Description: "Score every chunk of a document. Chunks that fail are listed without failing the call",
	}, s.documentAnalyze)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "batch_analyze",
		Description: "Score an unrelated set of chunks and report how many were processed",
	}, s.batchAnalyze)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "chunk_compare",
		Description: "Lexical similarity (Jaccard over content words) of two texts, from 0 to 1",
	}, s.chunkCompare)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "profile_list",
		Description: "List the domain profiles with their weights, thresholds and length bounds",
	}, s.profileList)
}

// track records metrics for one invocation. The returned func must be called
// with the final error.
func (s *Server) track(ctx context.Context, tool string) func(error) {
	start := time.Now()
	s.metrics.IncrementActive(ctx, tool)
	return func(err error) {
		s.metrics.DecrementActive(ctx, tool)
		s.metrics.RecordInvocation(ctx, tool, time.Since(start), err)
		if err != nil {
			s.logger.Warn(ctx, "tool failed", zap.String("tool", tool), zap.Error(err))
		}
	}
}

// ===== SHARED TYPES =====

type optionsInput struct {
	CheckQuality        *bool    `json:"check_quality,omitempty" jsonschema:"Report low quality (default true)"`
	CheckRedundancy     *bool    `json:"check_redundancy,omitempty" jsonschema:"Report repeated content (default true)"`
	CheckSize           *bool    `json:"check_size,omitempty" jsonschema:"Report chunks outside the optimal length (default true)"`
	CheckSimilarity     *bool    `json:"check_similarity,omitempty" jsonschema:"Report low topical coherence (default true)"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty" jsonschema:"Override the profile similarity threshold, in (0,1]"`
}

func (o *optionsInput) options() (*optimizer.Options, error) {
	if o == nil {
		return nil, nil
	}
	if t := o.SimilarityThreshold; t != nil && (*t <= 0 || *t > 1) {
		return nil, fmt.Errorf("%w: similarity_threshold must be in (0,1], got %v", errInvalidInput, *t)
	}
	return optimizer.OptionsFromAPI(&v1.AnalysisOptions{
		CheckQuality:        o.CheckQuality,
		CheckRedundancy:     o.CheckRedundancy,
		CheckSize:           o.CheckSize,
		CheckSimilarity:     o.CheckSimilarity,
		SimilarityThreshold: o.SimilarityThreshold,
	}), nil
}

type chunkInput struct {
	ChunkID  string         `json:"chunk_id" jsonschema:"Chunk identifier"`
	Content  string         `json:"content" jsonschema:"Chunk text"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"Arbitrary chunk metadata"`
}

func chunks(in []chunkInput) []optimizer.Chunk {
	out := make([]optimizer.Chunk, len(in))
	for i, c := range in {
		out[i] = optimizer.Chunk{ID: c.ChunkID, Content: c.Content, Metadata: c.Metadata}
	}
	return out
}

func checkChunkCount(n int) error {
	if n == 0 {
		return fmt.Errorf("%w: at least one chunk is required", errInvalidInput)
	}
	if n > v1.MaxChunksPerRequest {
		return fmt.Errorf("%w: at most %d chunks per call, got %d", errInvalidInput, v1.MaxChunksPerRequest, n)
	}
	return nil
}

type optimizationOutput struct {
	ID              string `json:"id" jsonschema:"Suggestion ID"`
	ChunkID         string `json:"chunk_id" jsonschema:"Chunk the suggestion applies to"`
	Type            string `json:"type" jsonschema:"quality, redundancy, size, similarity or info"`
	Priority        string `json:"priority" jsonschema:"LOW, MEDIUM or HIGH"`
	Title           string `json:"title" jsonschema:"Short title"`
	Description     string `json:"description" jsonschema:"What was detected"`
	SuggestedAction string `json:"suggested_action" jsonschema:"What to do about it"`
	CreatedAt       string `json:"created_at" jsonschema:"RFC 3339 timestamp"`
	Status          string `json:"status" jsonschema:"pending or applied"`
}

func optimizationsOutput(in []optimizer.Optimization) []optimizationOutput {
	out := make([]optimizationOutput, len(in))
	for i, o := range in {
		out[i] = optimizationOutput{
			ID:              o.ID,
			ChunkID:         o.ChunkID,
			Type:            string(o.Kind),
			Priority:        string(o.Priority),
			Title:           o.Title,
			Description:     o.Description,
			SuggestedAction: o.SuggestedAction,
			CreatedAt:       o.CreatedAt.UTC().Format(time.RFC3339),
			Status:          string(o.Status),
		}
	}
	return out
}

type itemOutput struct {
	ChunkID       string               `json:"chunk_id" jsonschema:"Chunk identifier"`
	Metrics       *v1.Metrics          `json:"metrics,omitempty" jsonschema:"Scores, absent when the chunk failed"`
	Optimizations []optimizationOutput `json:"optimizations,omitempty" jsonschema:"Suggestions for this chunk"`
	Error         string               `json:"error,omitempty" jsonschema:"Failure reason"`
}

func itemsOutput(in []optimizer.ItemResult) []itemOutput {
	out := make([]itemOutput, len(in))
	for i, it := range in {
		item := itemOutput{ChunkID: it.ChunkID}
		if it.Err != nil {
			item.Error = it.Err.Error()
		} else if it.Metrics != nil {
			m := it.Metrics.API()
			item.Metrics = &m
			item.Optimizations = optimizationsOutput(it.Optimizations)
		}
		out[i] = item
	}
	return out
}

func textResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// ===== CHUNK TOOLS =====

type chunkAnalyzeInput struct {
	ChunkID  string         `json:"chunk_id" jsonschema:"Chunk identifier"`
	Content  string         `json:"content" jsonschema:"Chunk text, may be empty"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"Arbitrary chunk metadata"`
	Domain   string         `json:"domain,omitempty" jsonschema:"Profile name: default, operations, ecommerce, medical or a custom profile"`
	Options  *optionsInput  `json:"options,omitempty" jsonschema:"Checks to run"`
}

type chunkAnalyzeOutput struct {
	Metrics       v1.Metrics           `json:"metrics" jsonschema:"Chunk scores in [0,1]"`
	Optimizations []optimizationOutput `json:"optimizations" jsonschema:"Suggestions, first is the primary one"`
}

func (s *Server) chunkAnalyze(ctx context.Context, _ *mcp.CallToolRequest, args chunkAnalyzeInput) (_ *mcp.CallToolResult, _ chunkAnalyzeOutput, err error) {
	done := s.track(ctx, "chunk_analyze")
	defer func() { done(err) }()

	opts, err := args.Options.options()
	if err != nil {
		return nil, chunkAnalyzeOutput{}, err
	}

	chunk := optimizer.Chunk{ID: args.ChunkID, Content: args.Content, Metadata: args.Metadata}
	res, err := s.engine.AnalyzeChunk(ctx, chunk, args.Domain, opts)
	if err != nil {
		return nil, chunkAnalyzeOutput{}, fmt.Errorf("chunk analysis failed: %w", err)
	}

	out := chunkAnalyzeOutput{
		Metrics:       res.Metrics.API(),
		Optimizations: optimizationsOutput(res.Optimizations),
	}
	return textResult("Chunk %s: overall %.2f, primary suggestion %q (%s)",
		res.Metrics.ChunkID, res.Metrics.Overall, res.Primary.Title, res.Primary.Priority), out, nil
}

type chunkCompareInput struct {
	A string `json:"a" jsonschema:"First text"`
	B string `json:"b" jsonschema:"Second text"`
}

type chunkCompareOutput struct {
	Similarity float64 `json:"similarity" jsonschema:"Jaccard similarity in [0,1]"`
}

func (s *Server) chunkCompare(ctx context.Context, _ *mcp.CallToolRequest, args chunkCompareInput) (_ *mcp.CallToolResult, _ chunkCompareOutput, err error) {
	done := s.track(ctx, "chunk_compare")
	defer func() { done(err) }()

	sim, err := s.engine.Compare(ctx, args.A, args.B)
	if err != nil {
		return nil, chunkCompareOutput{}, fmt.Errorf("compare failed: %w", err)
	}
	return textResult("Similarity: %.3f", sim), chunkCompareOutput{Similarity: sim}, nil
}

// ===== DOCUMENT AND BATCH TOOLS =====

type documentAnalyzeInput struct {
	DocumentID string        `json:"document_id" jsonschema:"Document identifier"`
	Chunks     []chunkInput  `json:"chunks" jsonschema:"Chunks of the document, at most 1000"`
	Domain     string        `json:"domain,omitempty" jsonschema:"Profile name"`
	Options    *optionsInput `json:"options,omitempty" jsonschema:"Checks to run"`
}

type documentAnalyzeOutput struct {
	DocumentID    string               `json:"document_id" jsonschema:"Document identifier"`
	Domain        string               `json:"domain" jsonschema:"Profile used"`
	Total         int                  `json:"total" jsonschema:"Number of suggestions"`
	HighPriority  int                  `json:"high_priority" jsonschema:"Number of HIGH suggestions"`
	Failed        []string             `json:"failed" jsonschema:"Chunk IDs that could not be analyzed"`
	Optimizations []optimizationOutput `json:"optimizations" jsonschema:"All suggestions in chunk order"`
	Items         []itemOutput         `json:"items" jsonschema:"Per-chunk results in input order"`
}

func (s *Server) documentAnalyze(ctx context.Context, _ *mcp.CallToolRequest, args documentAnalyzeInput) (_ *mcp.CallToolResult, _ documentAnalyzeOutput, err error) {
	done := s.track(ctx, "document_analyze")
	defer func() { done(err) }()

	if strings.TrimSpace(args.DocumentID) == "" {
		return nil, documentAnalyzeOutput{}, fmt.Errorf("%w: document_id is required", errInvalidInput)
	}
	if err := checkChunkCount(len(args.Chunks)); err != nil {
		return nil, documentAnalyzeOutput{}, err
	}
	opts, err := args.Options.options()
	if err != nil {
		return nil, documentAnalyzeOutput{}, err
	}
	if logging.ValidID(args.DocumentID) {
		ctx = logging.WithDocumentID(ctx, args.DocumentID)
	}

	res, err := s.engine.AnalyzeDocument(ctx, args.DocumentID, chunks(args.Chunks), args.Domain, opts)
	if err != nil {
		return nil, documentAnalyzeOutput{}, fmt.Errorf("document analysis failed: %w", err)
	}

	out := documentAnalyzeOutput{
		DocumentID:    res.DocumentID,
		Domain:        res.Domain,
		Total:         res.Total,
		HighPriority:  res.HighPriority,
		Failed:        append([]string{}, res.Failed...),
		Optimizations: optimizationsOutput(res.Optimizations),
		Items:         itemsOutput(res.Items),
	}
	return textResult("Document %s: %d suggestions (%d high priority), %d failed chunks",
		res.DocumentID, res.Total, res.HighPriority, len(res.Failed)), out, nil
}

type batchAnalyzeInput struct {
	BatchID string        `json:"batch_id,omitempty" jsonschema:"Batch identifier, generated when empty"`
	Items   []chunkInput  `json:"items" jsonschema:"Chunks to analyze, at most 1000"`
	Domain  string        `json:"domain,omitempty" jsonschema:"Profile name"`
	Options *optionsInput `json:"options,omitempty" jsonschema:"Checks to run"`
}

type batchAnalyzeOutput struct {
	BatchID       string               `json:"batch_id" jsonschema:"Batch identifier"`
	Domain        string               `json:"domain" jsonschema:"Profile used"`
	Total         int                  `json:"total" jsonschema:"Number of items submitted"`
	Processed     int                  `json:"processed" jsonschema:"Number of items analyzed"`
	Failed        []string             `json:"failed" jsonschema:"Chunk IDs that could not be analyzed"`
	Optimizations []optimizationOutput `json:"optimizations" jsonschema:"All suggestions in item order"`
	Items         []itemOutput         `json:"items" jsonschema:"Per-item results in input order"`
}

func (s *Server) batchAnalyze(ctx context.Context, _ *mcp.CallToolRequest, args batchAnalyzeInput) (_ *mcp.CallToolResult, _ batchAnalyzeOutput, err error) {
	done := s.track(ctx, "batch_analyze")
	defer func() { done(err) }()

	if err := checkChunkCount(len(args.Items)); err != nil {
		return nil, batchAnalyzeOutput{}, err
	}
	opts, err := args.Options.options()
	if err != nil {
		return nil, batchAnalyzeOutput{}, err
	}
	if logging.ValidID(args.BatchID) {
		ctx = logging.WithBatchID(ctx, args.BatchID)
	}

	res, err := s.engine.AnalyzeBatch(ctx, args.BatchID, chunks(args.Items), args.Domain, opts)
	if err != nil {
		return nil, batchAnalyzeOutput{}, fmt.Errorf("batch analysis failed: %w", err)
	}

	out := batchAnalyzeOutput{
		BatchID:       res.BatchID,
		Domain:        res.Domain,
		Total:         res.Total,
		Processed:     res.Processed,
		Failed:        append([]string{}, res.Failed...),
		Optimizations: optimizationsOutput(res.Optimizations),
		Items:         itemsOutput(res.Items),
	}
	return textResult("Batch %s: processed %d of %d items, %d suggestions",
		res.BatchID, res.Processed, res.Total, len(res.Optimizations)), out, nil
}

// ===== PROFILE TOOLS =====

type profileListInput struct{}

type profileListOutput struct {
	Profiles []v1.Profile `json:"profiles" jsonschema:"Registered profiles"`
}

func (s *Server) profileList(ctx context.Context, _ *mcp.CallToolRequest, _ profileListInput) (_ *mcp.CallToolResult, _ profileListOutput, err error) {
	done := s.track(ctx, "profile_list")
	defer func() { done(err) }()

	profiles := s.engine.Profiles()
	out := profileListOutput{Profiles: make([]v1.Profile, len(profiles))}
	names := make([]string, len(profiles))
	for i, p := range profiles {
		out.Profiles[i] = optimizer.ProfileAPI(p)
		names[i] = p.Name
	}
	return textResult("Profiles: %s", strings.Join(names, ", ")), out, nil
}
