package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	v1 "github.com/fyrsmithlabs/chunkopt/pkg/api/v1"
)

var (
	chunkID    string
	documentID string
	batchID    string
	domain     string
	threshold  float64
)

// analyzeCmd scores a single chunk from a file or stdin
var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Score one chunk from a file or stdin",
	Long: `Score one chunk and print its metrics and suggested optimizations.

Examples:
  # Analyze a file, using its name as the chunk id
  chunkopt analyze intro.md

  # Analyze from stdin
  cat section.txt | chunkopt analyze --id section-3 -

  # Use the medical profile
  chunkopt analyze --domain medical dosage.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

// documentCmd scores the chunks of one document
var documentCmd = &cobra.Command{
	Use:   "document <file>...",
	Short: "Score every chunk of a document",
	Long: `Score the chunks of a document. Each file is one chunk whose id is
the file name. A .json file holds a list of chunks instead:

  [{"chunk_id": "c1", "content": "..."}, {"chunk_id": "c2", "content": "..."}]

Examples:
  chunkopt document --id handbook chunks/*.txt
  chunkopt document --id handbook --domain operations chunks.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDocument,
}

// batchCmd scores an unrelated set of chunks
var batchCmd = &cobra.Command{
	Use:   "batch <file>...",
	Short: "Score a batch of chunks",
	Long: `Score a batch of chunks. Files are read as for the document command.
A batch id is generated when --id is not given.

Examples:
  chunkopt batch chunks/*.txt
  chunkopt batch --json export.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	analyzeCmd.Flags().StringVar(&chunkID, "id", "", "chunk id (default file name, or \"stdin\")")
	documentCmd.Flags().StringVar(&documentID, "id", "", "document id (required)")
	batchCmd.Flags().StringVar(&batchID, "id", "", "batch id")
	_ = documentCmd.MarkFlagRequired("id")

	for _, c := range []*cobra.Command{analyzeCmd, documentCmd, batchCmd} {
		c.Flags().StringVar(&domain, "domain", "", "domain profile (default \"default\")")
		c.Flags().Float64Var(&threshold, "similarity-threshold", 0, "similarity threshold in (0,1]")
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	var content []byte
	var err error
	id := chunkID

	// Read input from file or stdin
	if len(args) == 0 || args[0] == "-" {
		content, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
		if id == "" {
			id = "stdin"
		}
	} else {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
		if id == "" {
			id = filepath.Base(args[0])
		}
	}

	c, err := newClient()
	if err != nil {
		return err
	}

	resp, err := c.AnalyzeChunk(cmd.Context(), &v1.AnalyzeChunkRequest{
		ChunkID: id,
		Content: string(content),
		Domain:  domain,
		Options: analysisOptions(),
	})
	if err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, resp)
	}
	printMetrics(out, resp.Metrics)
	printOptimizations(out, resp.Optimizations)
	return nil
}

func runDocument(cmd *cobra.Command, args []string) error {
	chunks, err := readChunks(args)
	if err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}

	resp, err := c.AnalyzeDocument(cmd.Context(), &v1.AnalyzeDocumentRequest{
		DocumentID: documentID,
		Chunks:     chunks,
		Domain:     domain,
		Options:    analysisOptions(),
	})
	if err != nil {
		return fmt.Errorf("document analysis failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, resp)
	}
	fmt.Fprintf(out, "Document %s (%s): %d optimizations, %d high priority\n",
		resp.DocumentID, resp.Domain, resp.Total, resp.HighPriority)
	printItems(out, resp.Items)
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	chunks, err := readChunks(args)
	if err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}

	resp, err := c.AnalyzeBatch(cmd.Context(), &v1.AnalyzeBatchRequest{
		BatchID: batchID,
		Items:   chunks,
		Domain:  domain,
		Options: analysisOptions(),
	})
	if err != nil {
		return fmt.Errorf("batch analysis failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, resp)
	}
	fmt.Fprintf(out, "Batch %s (%s): %d/%d processed, %d optimizations\n",
		resp.BatchID, resp.Domain, resp.Processed, resp.Total, len(resp.Optimizations))
	printItems(out, resp.Items)
	return nil
}

// analysisOptions returns nil unless a flag changed a default.
func analysisOptions() *v1.AnalysisOptions {
	if threshold == 0 {
		return nil
	}
	t := threshold
	return &v1.AnalysisOptions{SimilarityThreshold: &t}
}

// readChunks turns files into chunks. A .json file holds a list of chunks;
// any other file is one chunk named after the file.
func readChunks(paths []string) ([]v1.Chunk, error) {
	var chunks []v1.Chunk
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", p, err)
		}

		if strings.EqualFold(filepath.Ext(p), ".json") {
			var list []v1.Chunk
			if err := json.Unmarshal(data, &list); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", p, err)
			}
			chunks = append(chunks, list...)
			continue
		}
		chunks = append(chunks, v1.Chunk{ChunkID: filepath.Base(p), Content: string(data)})
	}
	return chunks, nil
}

func printMetrics(w io.Writer, m v1.Metrics) {
	fmt.Fprintf(w, "Chunk %s\n", m.ChunkID)
	fmt.Fprintf(w, "  overall     %.3f\n", m.OverallScore)
	fmt.Fprintf(w, "  quality     %.3f\n", m.QualityScore)
	fmt.Fprintf(w, "  redundancy  %.3f\n", m.RedundancyScore)
	fmt.Fprintf(w, "  size        %.3f\n", m.SizeScore)
	fmt.Fprintf(w, "  similarity  %.3f\n", m.SimilarityScore)
}

func printOptimizations(w io.Writer, opts []v1.Optimization) {
	if len(opts) == 0 {
		fmt.Fprintln(w, "  no optimizations suggested")
		return
	}
	for _, o := range opts {
		fmt.Fprintf(w, "  [%s] %s: %s\n", o.Priority, o.Title, o.SuggestedAction)
	}
}

func printItems(w io.Writer, items []v1.ItemResult) {
	for _, it := range items {
		if it.Error != "" {
			fmt.Fprintf(w, "Chunk %s\n  failed: %s\n", it.ChunkID, it.Error)
			continue
		}
		if it.Metrics != nil {
			printMetrics(w, *it.Metrics)
		}
		printOptimizations(w, it.Optimizations)
	}
}
