package optimizer

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/chunkopt/internal/analyzer"
	"github.com/fyrsmithlabs/chunkopt/internal/events"
	"github.com/fyrsmithlabs/chunkopt/internal/logging"
	"github.com/fyrsmithlabs/chunkopt/internal/profile"
	"github.com/fyrsmithlabs/chunkopt/internal/telemetry"
)

const goodChunk = "The quick brown fox jumps over the lazy dog near a quiet river bank."

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingPublisher) stages() map[events.Stage]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[events.Stage]int{}
	for _, ev := range r.events {
		out[ev.Stage]++
	}
	return out
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(opts...)
	require.NoError(t, err)
	return e
}

func sampleChunks(n int) []Chunk {
	words := []string{"retrieval", "augmented", "generation", "relies", "on", "well", "formed", "chunks",
		"however", "the", "index", "grows", "quickly", "therefore", "we", "measure", "quality", "often"}
	chunks := make([]Chunk, n)
	for i := range chunks {
		var b strings.Builder
		for j := 0; j < 20+i*7; j++ {
			b.WriteString(words[(i*3+j*j)%len(words)])
			if j%9 == 8 {
				b.WriteString(". ")
			} else {
				b.WriteString(" ")
			}
		}
		chunks[i] = Chunk{ID: fmt.Sprintf("chunk-%02d", i), Content: b.String()}
	}
	return chunks
}

func TestNewEngine_Defaults(t *testing.T) {
	e := newTestEngine(t)
	assert.GreaterOrEqual(t, e.workers, 1)
	assert.Equal(t, DefaultMaxContentLength, e.maxContentLength)
	assert.Nil(t, e.cache)
	assert.Len(t, e.Profiles(), 4)

	e = newTestEngine(t, WithWorkers(0), WithCacheSize(8))
	assert.Equal(t, 1, e.workers)
	assert.NotNil(t, e.cache)
}

func TestEngine_Resolve(t *testing.T) {
	e := newTestEngine(t)
	def := profile.Resolve(profile.Default)

	assert.Equal(t, def, e.Resolve("UNKNOWN"))
	assert.Equal(t, def, e.Resolve(""))
	assert.Equal(t, profile.Medical, e.Resolve("Medical").Name)
}

func TestAnalyzeChunk_EmptyContent(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.AnalyzeChunk(context.Background(), Chunk{ID: "empty"}, "", nil)
	require.NoError(t, err)

	m := res.Metrics
	assert.Equal(t, "empty", m.ChunkID)
	assert.Zero(t, m.Quality)
	assert.Zero(t, m.Redundancy)
	assert.Zero(t, m.Size)
	assert.Zero(t, m.Similarity)
	assert.InDelta(t, 0.4, m.Overall, 1e-9)

	byKind := map[Kind]Optimization{}
	for _, o := range res.Optimizations {
		byKind[o.Kind] = o
	}
	assert.Equal(t, profile.PriorityHigh, byKind[KindQuality].Priority)
	assert.Equal(t, profile.PriorityHigh, byKind[KindSize].Priority)
	assert.NotContains(t, byKind, KindInfo)
	assert.Equal(t, res.Optimizations[0], res.Primary)
}

func TestAnalyzeChunk_InfoWhenChunkMeetsStandards(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.AnalyzeChunk(context.Background(), Chunk{ID: "good", Content: goodChunk}, "default",
		&Options{CheckQuality: true, CheckSize: true})
	require.NoError(t, err)

	require.Len(t, res.Optimizations, 1)
	assert.Equal(t, KindInfo, res.Primary.Kind)
	assert.Equal(t, StatusApplied, res.Primary.Status)
	assert.GreaterOrEqual(t, res.Metrics.Quality, 0.6)
	assert.GreaterOrEqual(t, res.Metrics.Size, 0.5)
}

func TestAnalyzeChunk_ValidationError(t *testing.T) {
	e := newTestEngine(t, WithMaxContentLength(5))

	_, err := e.AnalyzeChunk(context.Background(), Chunk{ID: "c", Content: "too long"}, "", nil)
	assert.ErrorIs(t, err, ErrContentTooLarge)

	_, err = e.AnalyzeChunk(context.Background(), Chunk{Content: "ok"}, "", nil)
	assert.ErrorIs(t, err, ErrEmptyChunkID)
}

func TestAnalyzeChunk_Cancelled(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.AnalyzeChunk(ctx, Chunk{ID: "c", Content: goodChunk}, "", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeChunk_UniqueOptimizationIDs(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.AnalyzeChunk(context.Background(), Chunk{ID: "c"}, "", nil)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, o := range res.Optimizations {
		assert.False(t, seen[o.ID], "duplicate id %s", o.ID)
		seen[o.ID] = true
		assert.False(t, o.CreatedAt.IsZero())
	}
}

func TestAnalyzeDocument_MatchesSequential(t *testing.T) {
	chunks := sampleChunks(24)
	e := newTestEngine(t, WithWorkers(8))

	doc, err := e.AnalyzeDocument(context.Background(), "doc-1", chunks, "operations", nil)
	require.NoError(t, err)
	require.Len(t, doc.Items, len(chunks))
	assert.Empty(t, doc.Failed)
	assert.Equal(t, "doc-1", doc.DocumentID)
	assert.Equal(t, profile.Operations, doc.Domain)

	var total, high int
	for i, item := range doc.Items {
		require.NoError(t, item.Err)
		assert.Equal(t, chunks[i].ID, item.ChunkID, "order must follow input")

		seq, err := e.AnalyzeChunk(context.Background(), chunks[i], "operations", nil)
		require.NoError(t, err)
		assert.Equal(t, seq.Metrics, *item.Metrics, "chunk %s", chunks[i].ID)

		total += len(item.Optimizations)
		high += countHigh(item.Optimizations)
	}
	assert.Equal(t, total, doc.Total)
	assert.Len(t, doc.Optimizations, total)
	assert.Equal(t, high, doc.HighPriority)
}

func TestAnalyzeDocument_GeneratesID(t *testing.T) {
	e := newTestEngine(t)
	doc, err := e.AnalyzeDocument(context.Background(), "", sampleChunks(1), "", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.DocumentID)
}

func TestAnalyzeDocument_Empty(t *testing.T) {
	e := newTestEngine(t)
	doc, err := e.AnalyzeDocument(context.Background(), "doc", nil, "", nil)
	require.NoError(t, err)
	assert.Empty(t, doc.Items)
	assert.Zero(t, doc.Total)
	assert.NotNil(t, doc.Failed)
}

func TestAnalyzeBatch_FailuresAreIsolated(t *testing.T) {
	e := newTestEngine(t, WithWorkers(4), WithMaxContentLength(2000))

	items := sampleChunks(10)
	items[2].Metadata = map[string]any{"score": math.NaN()}
	items[5].ID = ""
	items[7].Content = strings.Repeat("x", 2001)
	items[8].Metadata = map[string]any{"": "blank key"}

	res, err := e.AnalyzeBatch(context.Background(), "batch-1", items, "", nil)
	require.NoError(t, err)

	assert.Equal(t, "batch-1", res.BatchID)
	assert.Equal(t, 10, res.Total)
	assert.Equal(t, 6, res.Processed)
	assert.LessOrEqual(t, res.Processed, res.Total)
	assert.Equal(t, []string{"chunk-02", "", "chunk-07", "chunk-08"}, res.Failed)
	require.Len(t, res.Items, 10)

	assert.ErrorIs(t, res.Items[2].Err, ErrInvalidMetadata)
	assert.ErrorIs(t, res.Items[5].Err, ErrEmptyChunkID)
	assert.ErrorIs(t, res.Items[7].Err, ErrContentTooLarge)
	assert.ErrorIs(t, res.Items[8].Err, ErrInvalidMetadata)

	for i, item := range res.Items {
		if item.Failed() {
			assert.Nil(t, item.Metrics)
			continue
		}
		assert.Equal(t, items[i].ID, item.ChunkID)
		assert.NotEmpty(t, item.Optimizations)
	}
}

func TestAnalyzeBatch_PanicIsIsolated(t *testing.T) {
	e := newTestEngine(t, WithWorkers(2))
	e.score = func(content string, p profile.Profile) analyzer.Scores {
		if content == "boom" {
			panic("analyzer exploded")
		}
		return analyzer.Analyze(content, p)
	}

	items := []Chunk{{ID: "a", Content: goodChunk}, {ID: "b", Content: "boom"}, {ID: "c", Content: goodChunk}}
	res, err := e.AnalyzeBatch(context.Background(), "b", items, "", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, res.Failed)
	assert.Equal(t, 2, res.Processed)
	assert.ErrorIs(t, res.Items[1].Err, ErrAnalysisPanic)
	assert.Contains(t, res.Items[1].Err.Error(), "analyzer exploded")
}

func TestAnalyzeBatch_CancelledBeforeStart(t *testing.T) {
	pub := &recordingPublisher{}
	e := newTestEngine(t, WithPublisher(pub))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := sampleChunks(5)
	res, err := e.AnalyzeBatch(ctx, "batch-c", items, "", nil)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)

	assert.Zero(t, res.Processed)
	assert.Len(t, res.Failed, 5)
	for _, item := range res.Items {
		assert.ErrorIs(t, item.Err, ErrCancelled)
		assert.ErrorIs(t, item.Err, context.Canceled)
	}

	stages := pub.stages()
	assert.Equal(t, 1, stages[events.StageStarted])
	assert.Equal(t, 1, stages[events.StageCompleted])
	assert.Zero(t, stages[events.StageItem])
}

func TestAnalyzeBatch_CancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := newTestEngine(t, WithWorkers(1))
	var calls atomic.Int32
	e.score = func(content string, p profile.Profile) analyzer.Scores {
		if calls.Add(1) == 1 {
			cancel()
		}
		return analyzer.Analyze(content, p)
	}

	items := sampleChunks(6)
	res, err := e.AnalyzeBatch(ctx, "batch-m", items, "", nil)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, res.Processed)
	assert.NoError(t, res.Items[0].Err)
	assert.Equal(t, []string{"chunk-01", "chunk-02", "chunk-03", "chunk-04", "chunk-05"}, res.Failed)
	for _, item := range res.Items[1:] {
		assert.ErrorIs(t, item.Err, ErrCancelled)
	}
}

func TestAnalyzeDocument_CancelledReturnsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := newTestEngine(t, WithWorkers(1))
	var calls atomic.Int32
	e.score = func(content string, p profile.Profile) analyzer.Scores {
		if calls.Add(1) == 2 {
			cancel()
		}
		return analyzer.Analyze(content, p)
	}

	doc, err := e.AnalyzeDocument(ctx, "doc-c", sampleChunks(4), "", nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"chunk-02", "chunk-03"}, doc.Failed)
	assert.NotEmpty(t, doc.Optimizations)
}

func TestEngine_CacheKeyedByContentNotID(t *testing.T) {
	e := newTestEngine(t, WithCacheSize(16))
	var calls atomic.Int32
	e.score = func(content string, p profile.Profile) analyzer.Scores {
		calls.Add(1)
		return analyzer.Analyze(content, p)
	}
	ctx := context.Background()

	first, err := e.AnalyzeChunk(ctx, Chunk{ID: "a", Content: goodChunk}, "", nil)
	require.NoError(t, err)
	second, err := e.AnalyzeChunk(ctx, Chunk{ID: "b", Content: goodChunk}, "", nil)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load(), "same content should hit the cache")
	assert.Equal(t, "b", second.Metrics.ChunkID)
	assert.Equal(t, first.Metrics.Overall, second.Metrics.Overall)

	_, err = e.AnalyzeChunk(ctx, Chunk{ID: "a", Content: goodChunk + " Extra words."}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "same id with new content must not hit")

	_, err = e.AnalyzeChunk(ctx, Chunk{ID: "a", Content: goodChunk}, "medical", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load(), "profile is part of the key")
	assert.Equal(t, 3, e.cache.size())
}

func TestEngine_CacheIsBounded(t *testing.T) {
	e := newTestEngine(t, WithCacheSize(2))
	for i, c := range sampleChunks(5) {
		_, err := e.AnalyzeChunk(context.Background(), c, "", nil)
		require.NoError(t, err, "chunk %d", i)
	}
	assert.Equal(t, 2, e.cache.size())
}

func TestEngine_Compare(t *testing.T) {
	e := newTestEngine(t, WithMaxContentLength(100))
	ctx := context.Background()

	sim, err := e.Compare(ctx, "retrieval quality matters", "retrieval quality matters")
	require.NoError(t, err)
	assert.Equal(t, 1.0, sim)

	ab, err := e.Compare(ctx, "retrieval quality matters", "quality chunks matter")
	require.NoError(t, err)
	ba, err := e.Compare(ctx, "quality chunks matter", "retrieval quality matters")
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
	assert.Greater(t, ab, 0.0)
	assert.Less(t, ab, 1.0)

	sim, err = e.Compare(ctx, "", "anything")
	require.NoError(t, err)
	assert.Zero(t, sim)

	_, err = e.Compare(ctx, strings.Repeat("a", 101), "b")
	assert.ErrorIs(t, err, ErrContentTooLarge)
}

func TestEngine_PublishesProgress(t *testing.T) {
	pub := &recordingPublisher{}
	e := newTestEngine(t, WithPublisher(pub), WithWorkers(3))

	items := sampleChunks(4)
	items[1].ID = ""
	_, err := e.AnalyzeBatch(context.Background(), "batch-p", items, "ecommerce", nil)
	require.NoError(t, err)

	stages := pub.stages()
	assert.Equal(t, 1, stages[events.StageStarted])
	assert.Equal(t, 4, stages[events.StageItem])
	assert.Equal(t, 1, stages[events.StageCompleted])

	last := pub.events[len(pub.events)-1]
	assert.Equal(t, events.StageCompleted, last.Stage)
	assert.Equal(t, events.KindBatch, last.Kind)
	assert.Equal(t, "batch-p", last.ID)
	assert.Equal(t, profile.Ecommerce, last.Domain)
	assert.Equal(t, 4, last.Total)
	assert.Equal(t, 3, last.Processed)
	assert.Equal(t, 1, last.Failed)
}

func TestEngine_PublishFailureDoesNotFailBatch(t *testing.T) {
	logger := logging.NewTestLogger()
	pub := &recordingPublisher{err: fmt.Errorf("nats down")}
	e := newTestEngine(t, WithPublisher(pub), WithLogger(logger.Logger))

	res, err := e.AnalyzeBatch(context.Background(), "batch-x", sampleChunks(2), "", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	logger.AssertLogged(t, zapcore.WarnLevel, "failed to publish progress event")
}

func TestEngine_Logging(t *testing.T) {
	logger := logging.NewTestLogger()
	e := newTestEngine(t, WithLogger(logger.Logger))

	items := sampleChunks(2)
	items[0].ID = ""
	_, err := e.AnalyzeBatch(context.Background(), "batch-log", items, "medical", nil)
	require.NoError(t, err)

	logger.AssertLogged(t, zapcore.InfoLevel, "analyzing batch")
	logger.AssertLogged(t, zapcore.InfoLevel, "batch analyzed")
	logger.AssertLogged(t, zapcore.WarnLevel, "chunk analysis failed")
	logger.AssertLogged(t, zapcore.DebugLevel, "chunk analyzed")
	logger.AssertField(t, "batch analyzed", "batch.id", "batch-log")
	logger.AssertField(t, "batch analyzed", "domain", "medical")
}

func TestEngine_Telemetry(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	e := newTestEngine(t, WithTelemetry(tt.Telemetry))
	ctx := context.Background()

	_, err := e.AnalyzeChunk(ctx, Chunk{ID: "c1", Content: goodChunk}, "medical", nil)
	require.NoError(t, err)
	_, err = e.AnalyzeDocument(ctx, "doc-t", sampleChunks(3), "", nil)
	require.NoError(t, err)
	_, err = e.AnalyzeChunk(ctx, Chunk{Content: "no id"}, "", nil)
	require.Error(t, err)

	tt.AssertSpanExists(t, "optimizer.analyze_chunk")
	tt.AssertSpanExists(t, "optimizer.analyze_document")
	tt.AssertSpanAttribute(t, "optimizer.analyze_chunk", "profile", "medical")
	tt.AssertSpanAttribute(t, "optimizer.analyze_document", "chunks", int64(3))

	assert.Equal(t, int64(4), tt.CounterValue(ctx, "chunkopt.chunks_analyzed_total"))
	assert.Equal(t, int64(1), tt.CounterValue(ctx, "chunkopt.chunk_failures_total"))
	assert.Positive(t, tt.CounterValue(ctx, "chunkopt.optimizations_total"))
}

func TestEngine_ConcurrentRequestsAcrossDomains(t *testing.T) {
	e := newTestEngine(t, WithWorkers(4), WithCacheSize(64))
	chunks := sampleChunks(6)
	domains := []string{"default", "operations", "ecommerce", "medical"}

	want := map[string][]Metrics{}
	for _, d := range domains {
		doc, err := e.AnalyzeDocument(context.Background(), "seq-"+d, chunks, d, nil)
		require.NoError(t, err)
		for _, it := range doc.Items {
			want[d] = append(want[d], *it.Metrics)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		d := domains[i%len(domains)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := e.AnalyzeDocument(context.Background(), fmt.Sprintf("par-%d", i), chunks, d, nil)
			if !assert.NoError(t, err) {
				return
			}
			for j, it := range doc.Items {
				assert.Equal(t, want[d][j], *it.Metrics)
			}
		}()
	}
	wg.Wait()
}
