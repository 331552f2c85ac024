package memgo

import (
	"log/slog"
	"slices"

	"github.com/hupe1980/memgo/attention"
	"github.com/hupe1980/memgo/blobstore"
	"github.com/hupe1980/memgo/cache"
	"github.com/hupe1980/memgo/codec"
	"github.com/hupe1980/memgo/memory"
	"github.com/hupe1980/memgo/persistence"
	"github.com/hupe1980/memgo/resource"
	"github.com/hupe1980/memgo/rules"
)

type options struct {
	dimension           int
	similarityThreshold float64
	treeCount           int
	blobStore           blobstore.BlobStore
	snapshotName        string
	compression         persistence.CompressionType
	layerImportance     []float64
	keywordImportance   float64
	edgeImportance      float64
	minLayerEdgeContext int
	ruleImportance      float64
	rules               []rules.Rule
	logger              *Logger
	metricsCollector    MetricsCollector
	resultCache         cache.ResultCache
	resourceController  *resource.Controller
	codec               codec.Codec
	seed                *int64
}

// Option configures Memgo constructor behavior.
type Option func(*options)

// WithDimension sets the feature dimension shared by the memory store,
// the attention engine, and the rule integrator. Required.
func WithDimension(dimension int) Option {
	return func(o *options) {
		o.dimension = dimension
	}
}

// WithSimilarityThreshold sets the cosine similarity at or above which
// an incoming chunk merges into its best match. Must be in (0, 1].
func WithSimilarityThreshold(threshold float64) Option {
	return func(o *options) {
		o.similarityThreshold = threshold
	}
}

// WithTreeCount sets the number of random-projection trees built on
// finalize. More trees improve recall at the cost of build time.
func WithTreeCount(count int) Option {
	return func(o *options) {
		o.treeCount = count
	}
}

// WithBlobStore sets the blob backend holding the index snapshot.
// Defaults to a local store rooted in the current directory.
func WithBlobStore(bs blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobStore = bs
	}
}

// WithSnapshotName sets the blob name the snapshot is stored under.
func WithSnapshotName(name string) Option {
	return func(o *options) {
		o.snapshotName = name
	}
}

// WithCompression sets the compression applied to the snapshot payload.
func WithCompression(c persistence.CompressionType) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithLayerImportance sets the per-layer score multipliers. A node in
// layer i is scaled by entry i; layers beyond the list fall back to 1.0.
func WithLayerImportance(importance []float64) Option {
	return func(o *options) {
		o.layerImportance = slices.Clone(importance)
	}
}

// WithKeywordImportance sets the score added per query key found in a
// node's description.
func WithKeywordImportance(importance float64) Option {
	return func(o *options) {
		o.keywordImportance = importance
	}
}

// WithEdgeImportance sets the score added per query key found in the
// description of an is_a target.
func WithEdgeImportance(importance float64) Option {
	return func(o *options) {
		o.edgeImportance = importance
	}
}

// WithMinLayerEdgeContext sets the lowest layer whose nodes receive
// edge context scores.
func WithMinLayerEdgeContext(layer int) Option {
	return func(o *options) {
		o.minLayerEdgeContext = layer
	}
}

// WithRuleImportance sets the score delta applied per rule keyword match.
func WithRuleImportance(importance float64) Option {
	return func(o *options) {
		o.ruleImportance = importance
	}
}

// WithRules sets the rule list applied during integration. Passing an
// empty slice disables rule adjustments; leaving rules unset applies
// rules.DefaultRules.
func WithRules(r []rules.Rule) Option {
	return func(o *options) {
		o.rules = slices.Clone(r)
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := memgo.NewJSONLogger(slog.LevelInfo)
//	mg, _ := memgo.New(ctx, g, memgo.WithDimension(100), memgo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &memgo.BasicMetricsCollector{}
//	mg, _ := memgo.New(ctx, g, memgo.WithDimension(100), memgo.WithMetricsCollector(metrics))
//	// ... use mg ...
//	stats := metrics.GetStats()
//	fmt.Printf("Adds: %d, Avg latency: %dns\n", stats.AddCount, stats.AddAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithResultCache caches query results once the store is frozen. Keys
// derive from the canonical codec marshal of the query chunk, so cached
// entries survive exactly as long as the frozen index they describe.
func WithResultCache(rc cache.ResultCache) Option {
	return func(o *options) {
		o.resultCache = rc
	}
}

// WithResourceController bounds record memory, background work, and
// snapshot IO. Nil enforces nothing.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resourceController = rc
	}
}

// WithCodec configures the codec used for cache keys.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithSeed fixes the forest's random source for reproducible builds.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = &seed
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		similarityThreshold: memory.DefaultOptions.SimilarityThreshold,
		treeCount:           memory.DefaultOptions.TreeCount,
		snapshotName:        memory.DefaultOptions.SnapshotName,
		compression:         memory.DefaultOptions.Compression,
		layerImportance:     slices.Clone(attention.DefaultOptions.LayerImportance),
		keywordImportance:   attention.DefaultOptions.KeywordImportance,
		edgeImportance:      attention.DefaultOptions.EdgeImportance,
		minLayerEdgeContext: attention.DefaultOptions.MinLayerForEdgeContext,
		ruleImportance:      rules.DefaultOptions.RuleImportance,
		metricsCollector:    NoopMetricsCollector{},
		logger:              NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
