package optimizer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/chunkopt/internal/analyzer"
	"github.com/fyrsmithlabs/chunkopt/internal/events"
	"github.com/fyrsmithlabs/chunkopt/internal/logging"
	"github.com/fyrsmithlabs/chunkopt/internal/profile"
	"github.com/fyrsmithlabs/chunkopt/internal/telemetry"
)

const (
	tracerName = "github.com/fyrsmithlabs/chunkopt/internal/optimizer"
	meterName  = "chunkopt.optimizer"
)

// DefaultMaxContentLength is the default limit on chunk content, in code points.
const DefaultMaxContentLength = 100_000

// Engine scores chunks against domain profiles and turns the scores into
// optimization suggestions.
//
// An Engine holds no per-request state. The profile table is immutable and
// every collaborator is safe for concurrent use, so a single Engine serves
// any number of concurrent requests for different domains.
type Engine struct {
	table            *profile.Table
	workers          int
	maxContentLength int
	cacheSize        int
	cache            *metricsCache
	publisher        events.Publisher
	logger           *logging.Logger
	tel              *telemetry.Telemetry

	tracer trace.Tracer
	meter  metric.Meter

	now   func() time.Time
	newID func() string
	score func(content string, p profile.Profile) analyzer.Scores

	chunksTotal        metric.Int64Counter
	failuresTotal      metric.Int64Counter
	optimizationsTotal metric.Int64Counter
	analysisDuration   metric.Float64Histogram
	overallScore       metric.Float64Histogram
}

// Option configures an Engine.
type Option func(*Engine)

// WithTable sets the profile table. The default is profile.DefaultTable().
func WithTable(t *profile.Table) Option {
	return func(e *Engine) {
		if t != nil {
			e.table = t
		}
	}
}

// WithWorkers bounds the number of chunks analyzed concurrently within one
// document or batch. The default is GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithCacheSize enables an LRU of computed metrics with room for n entries.
// Zero or less disables caching.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		e.cacheSize = n
	}
}

// WithMaxContentLength sets the per-chunk content limit in code points.
func WithMaxContentLength(n int) Option {
	return func(e *Engine) {
		e.maxContentLength = n
	}
}

// WithPublisher sets the progress event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.publisher = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTelemetry sets the tracer and meter source. Without it the global
// OpenTelemetry providers are used.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(e *Engine) {
		e.tel = t
	}
}

// WithClock overrides the clock used for optimization timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		table:            profile.DefaultTable(),
		workers:          runtime.GOMAXPROCS(0),
		maxContentLength: DefaultMaxContentLength,
		publisher:        events.Nop{},
		logger:           logging.NewNop(),
		now:              time.Now,
		newID:            uuid.NewString,
		score:            analyzer.Analyze,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = 1
	}

	e.tracer = e.tel.Tracer(tracerName)
	e.meter = e.tel.Meter(meterName)

	cache, err := newMetricsCache(e.cacheSize, NewCacheMetrics())
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics cache: %w", err)
	}
	e.cache = cache

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return e, nil
}

// Profiles returns the profiles the engine can resolve.
func (e *Engine) Profiles() []profile.Profile {
	return e.table.Profiles()
}

// Resolve returns the profile used for domain.
func (e *Engine) Resolve(domain string) profile.Profile {
	return e.table.Resolve(domain)
}

// AnalyzeChunk scores a single chunk. A nil opts enables every check.
//
// Validation failures are returned as errors wrapping ErrEmptyChunkID,
// ErrContentTooLarge or ErrInvalidMetadata.
func (e *Engine) AnalyzeChunk(ctx context.Context, chunk Chunk, domain string, opts *Options) (*ChunkResult, error) {
	p := e.table.Resolve(domain)
	ctx = logging.WithDomain(ctx, p.Name)

	ctx, span := e.tracer.Start(ctx, "optimizer.analyze_chunk",
		trace.WithAttributes(
			attribute.String("chunk.id", chunk.ID),
			attribute.String("profile", p.Name),
			attribute.Int("content.length", len(chunk.Content)),
		),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	item := e.analyze(ctx, chunk, p, optionsOrDefault(opts))
	if item.Err != nil {
		span.RecordError(item.Err)
		span.SetStatus(codes.Error, item.Err.Error())
		return nil, item.Err
	}

	span.SetAttributes(
		attribute.Float64("score.overall", item.Metrics.Overall),
		attribute.Int("optimizations", len(item.Optimizations)),
	)

	return &ChunkResult{
		Metrics:       *item.Metrics,
		Optimizations: item.Optimizations,
		Primary:       item.Optimizations[0],
	}, nil
}

// AnalyzeDocument scores every chunk of a document concurrently. Items keep
// input order. A chunk that fails is listed in Failed and never aborts the
// rest of the document.
//
// If ctx is cancelled, chunks not yet started are marked with ErrCancelled
// and the partial result is returned together with ctx.Err().
func (e *Engine) AnalyzeDocument(ctx context.Context, documentID string, chunks []Chunk, domain string, opts *Options) (*DocumentResult, error) {
	if documentID == "" {
		documentID = e.newID()
	}
	p := e.table.Resolve(domain)
	ctx = logging.WithDomain(ctx, p.Name)
	if logging.ValidID(documentID) {
		ctx = logging.WithDocumentID(ctx, documentID)
	}

	ctx, span := e.tracer.Start(ctx, "optimizer.analyze_document",
		trace.WithAttributes(
			attribute.String("document.id", documentID),
			attribute.String("profile", p.Name),
			attribute.Int("chunks", len(chunks)),
		),
	)
	defer span.End()

	e.logger.Info(ctx, "analyzing document", zap.Int("chunks", len(chunks)))
	e.publish(ctx, events.Event{Kind: events.KindDocument, ID: documentID, Stage: events.StageStarted, Domain: p.Name, Total: len(chunks)})

	items, err := e.run(ctx, events.KindDocument, documentID, chunks, p, optionsOrDefault(opts))

	res := &DocumentResult{
		DocumentID:    documentID,
		Domain:        p.Name,
		Items:         items,
		Optimizations: []Optimization{},
		Failed:        []string{},
	}
	for _, it := range items {
		if it.Err != nil {
			res.Failed = append(res.Failed, it.ChunkID)
			continue
		}
		res.Optimizations = append(res.Optimizations, it.Optimizations...)
	}
	res.Total = len(res.Optimizations)
	res.HighPriority = countHigh(res.Optimizations)

	span.SetAttributes(
		attribute.Int("optimizations", res.Total),
		attribute.Int("optimizations.high", res.HighPriority),
		attribute.Int("failed", len(res.Failed)),
	)
	e.publish(ctx, events.Event{
		Kind:          events.KindDocument,
		ID:            documentID,
		Stage:         events.StageCompleted,
		Domain:        p.Name,
		Total:         len(chunks),
		Processed:     len(chunks) - len(res.Failed),
		Failed:        len(res.Failed),
		Optimizations: res.Total,
		HighPriority:  res.HighPriority,
		Error:         errString(err),
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn(ctx, "document analysis interrupted", zap.Error(err), zap.Int("failed", len(res.Failed)))
		return res, err
	}

	e.logger.Info(ctx, "document analyzed",
		zap.Int("optimizations", res.Total),
		zap.Int("high_priority", res.HighPriority),
		zap.Int("failed", len(res.Failed)))
	return res, nil
}

// AnalyzeBatch scores independent items concurrently and returns one
// BatchResult with an ItemResult per input, in input order. Failing items
// are recorded in Failed; Processed counts successful items only.
//
// Cancellation behaves as for AnalyzeDocument.
func (e *Engine) AnalyzeBatch(ctx context.Context, batchID string, items []Chunk, domain string, opts *Options) (*BatchResult, error) {
	if batchID == "" {
		batchID = e.newID()
	}
	p := e.table.Resolve(domain)
	ctx = logging.WithDomain(ctx, p.Name)
	if logging.ValidID(batchID) {
		ctx = logging.WithBatchID(ctx, batchID)
	}

	ctx, span := e.tracer.Start(ctx, "optimizer.analyze_batch",
		trace.WithAttributes(
			attribute.String("batch.id", batchID),
			attribute.String("profile", p.Name),
			attribute.Int("items", len(items)),
		),
	)
	defer span.End()

	e.logger.Info(ctx, "analyzing batch", zap.Int("items", len(items)))
	e.publish(ctx, events.Event{Kind: events.KindBatch, ID: batchID, Stage: events.StageStarted, Domain: p.Name, Total: len(items)})

	results, err := e.run(ctx, events.KindBatch, batchID, items, p, optionsOrDefault(opts))

	res := &BatchResult{
		BatchID:       batchID,
		Domain:        p.Name,
		Total:         len(items),
		Optimizations: []Optimization{},
		Failed:        []string{},
		Items:         results,
	}
	for _, it := range results {
		if it.Err != nil {
			res.Failed = append(res.Failed, it.ChunkID)
			continue
		}
		res.Processed++
		res.Optimizations = append(res.Optimizations, it.Optimizations...)
	}

	span.SetAttributes(
		attribute.Int("processed", res.Processed),
		attribute.Int("failed", len(res.Failed)),
		attribute.Int("optimizations", len(res.Optimizations)),
	)
	e.publish(ctx, events.Event{
		Kind:          events.KindBatch,
		ID:            batchID,
		Stage:         events.StageCompleted,
		Domain:        p.Name,
		Total:         res.Total,
		Processed:     res.Processed,
		Failed:        len(res.Failed),
		Optimizations: len(res.Optimizations),
		HighPriority:  countHigh(res.Optimizations),
		Error:         errString(err),
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn(ctx, "batch analysis interrupted", zap.Error(err), zap.Int("processed", res.Processed))
		return res, err
	}

	e.logger.Info(ctx, "batch analyzed",
		zap.Int("processed", res.Processed),
		zap.Int("failed", len(res.Failed)),
		zap.Int("optimizations", len(res.Optimizations)))
	return res, nil
}

// Compare returns the lexical (Jaccard) similarity of two texts over their
// non-stopword vocabularies.
func (e *Engine) Compare(ctx context.Context, a, b string) (float64, error) {
	_, span := e.tracer.Start(ctx, "optimizer.compare",
		trace.WithAttributes(
			attribute.Int("a.length", len(a)),
			attribute.Int("b.length", len(b)),
		),
	)
	defer span.End()

	for _, s := range []string{a, b} {
		if err := (Chunk{ID: "compare", Content: s}).Validate(e.maxContentLength); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, err
		}
	}

	sim := profile.Clamp(analyzer.Pairwise(analyzer.Tokenize(a), analyzer.Tokenize(b)))
	span.SetAttributes(attribute.Float64("similarity", sim))
	return sim, nil
}

// run fans chunks out over a bounded worker pool. Results are written by
// index, so input order is kept regardless of completion order.
func (e *Engine) run(ctx context.Context, kind events.Kind, id string, chunks []Chunk, p profile.Profile, opts Options) ([]ItemResult, error) {
	results := make([]ItemResult, len(chunks))
	started := make([]bool, len(chunks))
	var processed, failed atomic.Int64

	// A plain Group: one failing chunk must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(e.workers)

	for i := range chunks {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			started[i] = true
			res := e.analyze(ctx, chunks[i], p, opts)
			results[i] = res

			n := processed.Add(1)
			f := failed.Load()
			if res.Err != nil {
				f = failed.Add(1)
			}
			e.publish(ctx, events.Event{
				Kind:      kind,
				ID:        id,
				Stage:     events.StageItem,
				Domain:    p.Name,
				ChunkID:   res.ChunkID,
				Total:     len(chunks),
				Processed: int(n),
				Failed:    int(f),
				Error:     errString(res.Err),
			})
			return nil
		})
	}
	_ = g.Wait()

	err := ctx.Err()
	if err == nil {
		return results, nil
	}

	cancelled := 0
	for i := range results {
		if !started[i] {
			results[i] = ItemResult{ChunkID: chunks[i].ID, Err: fmt.Errorf("%w: %w", ErrCancelled, err)}
			cancelled++
		}
	}
	if cancelled > 0 {
		e.failuresTotal.Add(ctx, int64(cancelled), metric.WithAttributes(
			attribute.String("profile", p.Name),
			attribute.String("reason", "cancelled"),
		))
	}
	return results, err
}

// analyze validates and scores one chunk. It never panics; a panic inside
// scoring is converted into an ErrAnalysisPanic failure.
func (e *Engine) analyze(ctx context.Context, c Chunk, p profile.Profile, opts Options) (res ItemResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = ItemResult{ChunkID: c.ID, Err: fmt.Errorf("%w: %v", ErrAnalysisPanic, r)}
		}
		e.record(ctx, p, res, time.Since(start))
	}()

	res.ChunkID = c.ID
	if err := c.Validate(e.maxContentLength); err != nil {
		res.Err = err
		return res
	}

	m := e.computeMetrics(c, p)
	res.Metrics = &m
	res.Optimizations = suggest(m, p, opts, e.stamp)
	return res
}

func (e *Engine) computeMetrics(c Chunk, p profile.Profile) Metrics {
	var key cacheKey
	if e.cache != nil {
		key = newCacheKey(c.Content, p)
		if m, ok := e.cache.get(key, c.ID); ok {
			return m
		}
	}

	s := e.score(c.Content, p)
	m := Metrics{
		ChunkID:    c.ID,
		Quality:    profile.Clamp(s.Quality),
		Redundancy: profile.Clamp(s.Redundancy),
		Size:       profile.Clamp(s.Size),
		Similarity: profile.Clamp(s.Similarity),
	}
	m.Overall = profile.Clamp(p.Overall(m.Quality, m.Redundancy, m.Size, m.Similarity))

	if e.cache != nil {
		e.cache.add(key, m)
	}
	return m
}

func (e *Engine) stamp(string) (string, time.Time) {
	return e.newID(), e.now().UTC()
}

func (e *Engine) record(ctx context.Context, p profile.Profile, res ItemResult, elapsed time.Duration) {
	profileAttr := attribute.String("profile", p.Name)

	if res.Err != nil {
		e.failuresTotal.Add(ctx, 1, metric.WithAttributes(profileAttr, attribute.String("reason", failureReason(res.Err))))
		e.logger.Warn(ctx, "chunk analysis failed", zap.String("chunk.id", res.ChunkID), zap.Error(res.Err))
		return
	}

	e.chunksTotal.Add(ctx, 1, metric.WithAttributes(profileAttr))
	e.optimizationsTotal.Add(ctx, int64(len(res.Optimizations)), metric.WithAttributes(profileAttr))
	e.analysisDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(profileAttr))
	e.overallScore.Record(ctx, res.Metrics.Overall, metric.WithAttributes(profileAttr))

	e.logger.Debug(ctx, "chunk analyzed",
		zap.String("chunk.id", res.ChunkID),
		zap.Float64("overall_score", res.Metrics.Overall),
		zap.Int("optimizations", len(res.Optimizations)))
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	ev.Timestamp = e.now().UTC()
	// Completion events still go out after cancellation.
	if err := e.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		e.logger.Warn(ctx, "failed to publish progress event",
			zap.String("stage", string(ev.Stage)),
			zap.Error(err))
	}
}

// initMetrics creates the OpenTelemetry instruments.
func (e *Engine) initMetrics() error {
	var err error

	e.chunksTotal, err = e.meter.Int64Counter(
		"chunkopt.chunks_analyzed_total",
		metric.WithDescription("Total number of chunks analyzed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create chunks counter: %w", err)
	}

	e.failuresTotal, err = e.meter.Int64Counter(
		"chunkopt.chunk_failures_total",
		metric.WithDescription("Total number of chunks that could not be analyzed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create failures counter: %w", err)
	}

	e.optimizationsTotal, err = e.meter.Int64Counter(
		"chunkopt.optimizations_total",
		metric.WithDescription("Total number of optimizations emitted"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create optimizations counter: %w", err)
	}

	e.analysisDuration, err = e.meter.Float64Histogram(
		"chunkopt.analysis_duration_seconds",
		metric.WithDescription("Time spent analyzing a single chunk"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5),
	)
	if err != nil {
		return fmt.Errorf("failed to create duration histogram: %w", err)
	}

	e.overallScore, err = e.meter.Float64Histogram(
		"chunkopt.overall_score",
		metric.WithDescription("Overall scores of analyzed chunks"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(0.0, 0.2, 0.4, 0.6, 0.8, 1.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create overall score histogram: %w", err)
	}

	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrAnalysisPanic):
		return "panic"
	default:
		return "validation"
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
