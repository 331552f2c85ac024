package memgo

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/memgo/attention"
	"github.com/hupe1980/memgo/cache"
	"github.com/hupe1980/memgo/codec"
	"github.com/hupe1980/memgo/graph"
	"github.com/hupe1980/memgo/memory"
	"github.com/hupe1980/memgo/rules"
	"github.com/hupe1980/memgo/sparse"
)

// matchBytes approximates the resident cost of a cached result entry.
func matchBytes(key string, matches []memory.Match) int64 {
	cost := int64(len(key))
	for _, m := range matches {
		cost += int64(m.Vector.NNZ()) * 16
	}

	return cost
}

// Memgo combines the consolidating memory store, the graph attention
// engine, and the rule integrator behind one facade. All components
// share a single sparse codec, so chunks mean the same thing to each.
type Memgo struct {
	graph      graph.View
	store      *memory.Store
	engine     *attention.Engine
	integrator *rules.Integrator
	codec      codec.Codec
	cache      cache.ResultCache
	metrics    MetricsCollector
	logger     *Logger
}

// New creates a Memgo instance over the given graph. The dimension
// option is required; it fixes the feature space of every component.
// If the configured blob store holds a snapshot, the memory store loads
// it and starts frozen.
func New(ctx context.Context, g graph.View, optFns ...Option) (*Memgo, error) {
	if g == nil {
		return nil, ErrNilGraph
	}

	opts := applyOptions(optFns)
	if opts.logger == nil {
		opts.logger = NoopLogger()
	}
	if opts.metricsCollector == nil {
		opts.metricsCollector = NoopMetricsCollector{}
	}

	c := opts.codec
	if c == nil {
		c = codec.Default
	}

	sc, err := sparse.NewCodec(opts.dimension, func(o *sparse.Options) {
		o.Logger = opts.logger.Logger
	})
	if err != nil {
		return nil, translateError(err)
	}

	store, err := memory.New(ctx, opts.dimension, func(o *memory.Options) {
		o.SimilarityThreshold = opts.similarityThreshold
		o.TreeCount = opts.treeCount
		o.BlobStore = opts.blobStore
		o.SnapshotName = opts.snapshotName
		o.Compression = opts.compression
		o.Codec = sc
		o.Seed = opts.seed
		o.Controller = opts.resourceController
		o.Logger = opts.logger.Logger
	})
	if err != nil {
		return nil, translateError(err)
	}

	engine, err := attention.New(sc, func(o *attention.Options) {
		o.LayerImportance = opts.layerImportance
		o.KeywordImportance = opts.keywordImportance
		o.EdgeImportance = opts.edgeImportance
		o.MinLayerForEdgeContext = opts.minLayerEdgeContext
		o.Logger = opts.logger.Logger
	})
	if err != nil {
		_ = store.Close()
		return nil, translateError(err)
	}

	integrator, err := rules.New(sc, func(o *rules.Options) {
		o.RuleImportance = opts.ruleImportance
		o.Rules = opts.rules
		o.Logger = opts.logger.Logger
	})
	if err != nil {
		_ = store.Close()
		return nil, translateError(err)
	}

	return &Memgo{
		graph:      g,
		store:      store,
		engine:     engine,
		integrator: integrator,
		codec:      c,
		cache:      opts.resultCache,
		metrics:    opts.metricsCollector,
		logger:     opts.logger,
	}, nil
}

// Add stores a chunk, merging it into the closest existing record when
// their similarity reaches the threshold.
func (mg *Memgo) Add(ctx context.Context, chunk map[string]float64) error {
	start := time.Now()
	err := translateError(mg.store.Add(ctx, chunk))
	duration := time.Since(start)
	mg.metrics.RecordAdd(duration, err)
	mg.logger.LogAdd(ctx, len(chunk), err)
	return err
}

// Query returns the stored records similar to the chunk, most similar
// first. On a frozen store, results are served from the result cache
// when one is configured.
func (mg *Memgo) Query(ctx context.Context, chunk map[string]float64) ([]memory.Match, error) {
	start := time.Now()
	matches, cached, err := mg.query(ctx, chunk)
	duration := time.Since(start)
	err = translateError(err)
	mg.metrics.RecordQuery(duration, err)
	mg.logger.LogQuery(ctx, len(matches), cached, err)
	return matches, err
}

// query consults the result cache only on a frozen store: a building
// store still consolidates, so identical chunks may resolve to
// different records over time.
func (mg *Memgo) query(ctx context.Context, chunk map[string]float64) ([]memory.Match, bool, error) {
	if mg.cache == nil || mg.store.State() != memory.StateFrozen {
		matches, err := mg.store.Query(ctx, chunk)
		return matches, false, err
	}

	key, err := mg.cacheKey(chunk)
	if err != nil {
		matches, qerr := mg.store.Query(ctx, chunk)
		return matches, false, qerr
	}

	if v, ok := mg.cache.Get(key); ok {
		if matches, ok := v.([]memory.Match); ok {
			mg.metrics.RecordCacheLookup(true)
			return matches, true, nil
		}
	}

	mg.metrics.RecordCacheLookup(false)

	matches, err := mg.store.Query(ctx, chunk)
	if err != nil {
		return nil, false, err
	}

	mg.cache.Set(key, matches, matchBytes(key, matches))

	return matches, false, nil
}

func (mg *Memgo) cacheKey(chunk map[string]float64) (string, error) {
	b, err := mg.codec.Marshal(chunk)
	if err != nil {
		return "", fmt.Errorf("marshal cache key: %w", err)
	}

	return string(b), nil
}

// Attend scores every graph node against the chunk using reference
// similarity, layer importance, keywords, and edge context.
func (mg *Memgo) Attend(ctx context.Context, chunk map[string]float64) (map[graph.NodeID]float64, error) {
	start := time.Now()
	scores, err := mg.engine.Attend(ctx, chunk, mg.graph)
	duration := time.Since(start)
	err = translateError(err)
	mg.metrics.RecordAttend(len(scores), duration, err)
	mg.logger.LogAttend(ctx, len(scores), err)
	return scores, err
}

// Integrate applies the configured relation rules on top of attention
// scores and aggregates the reference vectors of the selected nodes.
func (mg *Memgo) Integrate(ctx context.Context, chunk map[string]float64, scores map[graph.NodeID]float64) (sparse.Vector, map[graph.NodeID]float64, error) {
	start := time.Now()
	aggregated, adjusted, err := mg.integrator.Integrate(ctx, chunk, scores, mg.graph)
	duration := time.Since(start)
	err = translateError(err)
	mg.metrics.RecordIntegrate(duration, err)
	mg.logger.LogIntegrate(ctx, len(adjusted), err)
	return aggregated, adjusted, err
}

// ProcessResult bundles the outputs of one pipeline pass.
type ProcessResult struct {
	// Matches are the consolidated records similar to the chunk.
	Matches []memory.Match

	// Scores are the raw attention scores per node.
	Scores map[graph.NodeID]float64

	// AdjustedScores are the attention scores after rule integration.
	AdjustedScores map[graph.NodeID]float64

	// Aggregated is the combined reference vector of the selected nodes.
	Aggregated sparse.Vector
}

// Process runs the full pipeline for one chunk: memory query, attention
// scoring, and rule integration.
func (mg *Memgo) Process(ctx context.Context, chunk map[string]float64) (*ProcessResult, error) {
	start := time.Now()
	res, err := mg.process(ctx, chunk)
	duration := time.Since(start)
	err = translateError(err)
	mg.metrics.RecordProcess(duration, err)

	if err != nil {
		mg.logger.LogProcess(ctx, 0, 0, err)
		return nil, err
	}

	mg.logger.LogProcess(ctx, len(res.Matches), len(res.Scores), nil)

	return res, nil
}

func (mg *Memgo) process(ctx context.Context, chunk map[string]float64) (*ProcessResult, error) {
	matches, _, err := mg.query(ctx, chunk)
	if err != nil {
		return nil, fmt.Errorf("query memory: %w", err)
	}

	scores, err := mg.engine.Attend(ctx, chunk, mg.graph)
	if err != nil {
		return nil, fmt.Errorf("attend: %w", err)
	}

	aggregated, adjusted, err := mg.integrator.Integrate(ctx, chunk, scores, mg.graph)
	if err != nil {
		return nil, fmt.Errorf("integrate: %w", err)
	}

	return &ProcessResult{
		Matches:        matches,
		Scores:         scores,
		AdjustedScores: adjusted,
		Aggregated:     aggregated,
	}, nil
}

// Finalize builds the forest index, persists it to the blob store, and
// freezes the memory store. Finalizing an already frozen store is a
// no-op.
func (mg *Memgo) Finalize(ctx context.Context) error {
	start := time.Now()
	err := translateError(mg.store.Finalize(ctx))
	duration := time.Since(start)
	mg.metrics.RecordFinalize(mg.store.Len(), duration, err)
	mg.logger.LogFinalize(ctx, mg.store.Len(), err)
	return err
}

// State returns the memory store's lifecycle state.
func (mg *Memgo) State() memory.State {
	return mg.store.State()
}

// Len returns the number of consolidated records.
func (mg *Memgo) Len() int {
	return mg.store.Len()
}

// Dimension returns the configured feature dimension.
func (mg *Memgo) Dimension() int {
	return mg.store.Dimension()
}

// Close releases resources held by the memory store. A caller-provided
// result cache stays open; close it separately.
func (mg *Memgo) Close() error {
	if mg == nil {
		return nil
	}

	return mg.store.Close()
}
