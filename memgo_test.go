package memgo_test

import (
	"context"
	"testing"

	"github.com/hupe1980/memgo"
	"github.com/hupe1980/memgo/blobstore"
	"github.com/hupe1980/memgo/cache"
	"github.com/hupe1980/memgo/graph"
	"github.com/hupe1980/memgo/memory"
	"github.com/hupe1980/memgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 100

func newTestMemgo(t *testing.T, g graph.View, optFns ...memgo.Option) *memgo.Memgo {
	t.Helper()

	opts := append([]memgo.Option{
		memgo.WithDimension(testDim),
		memgo.WithSimilarityThreshold(0.6),
		memgo.WithBlobStore(blobstore.NewMemoryStore()),
		memgo.WithSeed(42),
	}, optFns...)

	mg, err := memgo.New(context.Background(), g, opts...)
	require.NoError(t, err)

	t.Cleanup(func() { _ = mg.Close() })

	return mg
}

func seedChunks(t *testing.T, mg *memgo.Memgo) {
	t.Helper()

	ctx := context.Background()
	for _, chunk := range testutil.SeedChunks() {
		require.NoError(t, mg.Add(ctx, chunk))
	}
}

func TestNew_RequiresGraph(t *testing.T) {
	_, err := memgo.New(context.Background(), nil, memgo.WithDimension(testDim))
	assert.ErrorIs(t, err, memgo.ErrNilGraph)
}

func TestNew_RequiresDimension(t *testing.T) {
	_, err := memgo.New(context.Background(), graph.NewStore(),
		memgo.WithBlobStore(blobstore.NewMemoryStore()),
	)
	require.Error(t, err)

	var ide *memgo.ErrInvalidDimension
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, 0, ide.Dimension)
}

func TestMemgo_AddAndQuery(t *testing.T) {
	mg := newTestMemgo(t, graph.NewStore())
	seedChunks(t, mg)

	// The lion chunk merges into the cat record at threshold 0.6.
	assert.Equal(t, 3, mg.Len())
	assert.Equal(t, memory.StateBuilding, mg.State())

	matches, err := mg.Query(context.Background(), map[string]float64{"0": 1.0})
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, 2, matches[0].Slot)
	assert.InDelta(t, 0.6139, matches[0].Similarity, 1e-3)
}

func TestMemgo_FinalizeAndReload(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()

	mg := newTestMemgo(t, graph.NewStore(), memgo.WithBlobStore(blobs))
	seedChunks(t, mg)

	require.NoError(t, mg.Finalize(ctx))
	assert.Equal(t, memory.StateFrozen, mg.State())

	// Finalizing again is a no-op.
	require.NoError(t, mg.Finalize(ctx))

	reloaded := newTestMemgo(t, graph.NewStore(), memgo.WithBlobStore(blobs))
	assert.Equal(t, memory.StateFrozen, reloaded.State())
	assert.Equal(t, 3, reloaded.Len())

	matches, err := reloaded.Query(ctx, map[string]float64{"0": 1.0})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 0.6139, matches[0].Similarity, 1e-3)
}

func TestMemgo_Process(t *testing.T) {
	ctx := context.Background()

	mg := newTestMemgo(t, testutil.AnimalGraph(t))
	seedChunks(t, mg)

	res, err := mg.Process(ctx, map[string]float64{"1": 0.9, "3": 0.7})
	require.NoError(t, err)

	// Only the dog record clears the similarity threshold.
	require.Len(t, res.Matches, 1)
	assert.Equal(t, 1, res.Matches[0].Slot)
	assert.InDelta(t, 0.7028, res.Matches[0].Similarity, 1e-3)

	// Every node is scored. Reference weights dominate: dog and lion
	// carry weight 1 and 2 at layer 1, labrador weight 1 at layer 0,
	// animal averages weights 0, 1, 2 at layer 2.
	assert.Len(t, res.Scores, 18)
	assert.InDelta(t, 1.2, res.Scores["dog"], 1e-9)
	assert.InDelta(t, 1.2, res.Scores["lion"], 1e-9)
	assert.InDelta(t, 1.0, res.Scores["labrador"], 1e-9)
	assert.InDelta(t, 2.0/3.0*1.4, res.Scores["animal"], 1e-9)
	assert.InDelta(t, 0.0, res.Scores["cat"], 1e-9)
	assert.InDelta(t, 0.0, res.Scores["mammal"], 1e-9)

	// No description in the fixture contains a query key, so the rules
	// leave the scores untouched.
	assert.Equal(t, res.Scores, res.AdjustedScores)

	// Selected: dog, lion, labrador, animal, cat with total reference
	// weight 7.
	assert.InDelta(t, 6.3, res.Aggregated.Get(1), 1e-9)
	assert.InDelta(t, 4.9, res.Aggregated.Get(3), 1e-9)
}

func TestMemgo_AttendAndIntegrate(t *testing.T) {
	ctx := context.Background()

	mg := newTestMemgo(t, testutil.AnimalGraph(t))

	chunk := map[string]float64{"1": 0.9, "3": 0.7}

	scores, err := mg.Attend(ctx, chunk)
	require.NoError(t, err)
	assert.Len(t, scores, 18)

	aggregated, adjusted, err := mg.Integrate(ctx, chunk, scores)
	require.NoError(t, err)
	assert.Equal(t, scores, adjusted)
	assert.InDelta(t, 6.3, aggregated.Get(1), 1e-9)
}

func TestMemgo_QueryCachedWhenFrozen(t *testing.T) {
	ctx := context.Background()

	rc, err := cache.NewRistretto()
	require.NoError(t, err)
	t.Cleanup(rc.Close)

	metrics := &memgo.BasicMetricsCollector{}

	mg := newTestMemgo(t, graph.NewStore(),
		memgo.WithResultCache(rc),
		memgo.WithMetricsCollector(metrics),
	)
	seedChunks(t, mg)
	require.NoError(t, mg.Finalize(ctx))

	chunk := map[string]float64{"0": 1.0}

	first, err := mg.Query(ctx, chunk)
	require.NoError(t, err)
	assert.Equal(t, int64(1), metrics.CacheMisses.Load())

	// Ristretto applies sets asynchronously.
	rc.Wait()

	second, err := mg.Query(ctx, chunk)
	require.NoError(t, err)
	assert.Equal(t, int64(1), metrics.CacheHits.Load())
	assert.Equal(t, first, second)
}

func TestMemgo_CacheSkippedWhileBuilding(t *testing.T) {
	ctx := context.Background()

	rc, err := cache.NewRistretto()
	require.NoError(t, err)
	t.Cleanup(rc.Close)

	metrics := &memgo.BasicMetricsCollector{}

	mg := newTestMemgo(t, graph.NewStore(),
		memgo.WithResultCache(rc),
		memgo.WithMetricsCollector(metrics),
	)
	seedChunks(t, mg)

	_, err = mg.Query(ctx, map[string]float64{"0": 1.0})
	require.NoError(t, err)

	assert.Zero(t, metrics.CacheHits.Load())
	assert.Zero(t, metrics.CacheMisses.Load())
}

func TestMemgo_MetricsRecorded(t *testing.T) {
	ctx := context.Background()

	metrics := &memgo.BasicMetricsCollector{}

	mg := newTestMemgo(t, testutil.AnimalGraph(t),
		memgo.WithMetricsCollector(metrics),
	)
	seedChunks(t, mg)

	chunk := map[string]float64{"1": 0.9, "3": 0.7}

	_, err := mg.Query(ctx, chunk)
	require.NoError(t, err)

	scores, err := mg.Attend(ctx, chunk)
	require.NoError(t, err)

	_, _, err = mg.Integrate(ctx, chunk, scores)
	require.NoError(t, err)

	_, err = mg.Process(ctx, chunk)
	require.NoError(t, err)

	require.NoError(t, mg.Finalize(ctx))

	stats := metrics.GetStats()
	assert.Equal(t, int64(4), stats.AddCount)
	assert.Zero(t, stats.AddErrors)
	assert.Equal(t, int64(1), stats.QueryCount)
	assert.Equal(t, int64(1), stats.AttendCount)
	assert.Equal(t, int64(18), stats.AttendNodes)
	assert.Equal(t, int64(1), stats.IntegrateCount)
	assert.Equal(t, int64(1), stats.ProcessCount)
	assert.Equal(t, int64(1), stats.FinalizeCount)
}
