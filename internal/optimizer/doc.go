// Package optimizer turns chunk scores into optimization suggestions.
//
// The Engine resolves a domain profile, runs the analyzers, aggregates the
// sub-scores into an overall score and classifies each sub-score into a
// priority. Actionable priorities become Optimizations; a chunk with none
// gets a single informational entry with status applied.
//
// Documents and batches fan out over a bounded worker pool. Each chunk is
// independent: a chunk that fails validation or panics is recorded as failed
// and the remaining chunks are still analyzed.
//
//	engine, err := optimizer.NewEngine(
//	    optimizer.WithWorkers(8),
//	    optimizer.WithCacheSize(1024),
//	    optimizer.WithLogger(logger),
//	)
//	res, err := engine.AnalyzeDocument(ctx, "doc-1", chunks, "medical", nil)
package optimizer
