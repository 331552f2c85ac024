package memory_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memgo/blobstore"
	"github.com/hupe1980/memgo/memory"
	"github.com/hupe1980/memgo/resource"
	"github.com/hupe1980/memgo/sparse"
)

const testDim = 16

func newTestStore(t *testing.T, blobs blobstore.BlobStore, optFns ...func(o *memory.Options)) *memory.Store {
	t.Helper()

	seed := int64(42)

	s, err := memory.New(context.Background(), testDim, append([]func(o *memory.Options){func(o *memory.Options) {
		o.BlobStore = blobs
		o.Seed = &seed
	}}, optFns...)...)
	require.NoError(t, err)

	return s
}

func TestStore_AddAndQuery(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, blobstore.NewMemoryStore())

	require.NoError(t, s.Add(ctx, map[string]float64{"0": 1.0, "1": 0.5}))
	require.NoError(t, s.Add(ctx, map[string]float64{"5": 2.0, "6": 1.0}))

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, memory.StateBuilding, s.State())
	assert.Equal(t, testDim, s.Dimension())

	matches, err := s.Query(ctx, map[string]float64{"0": 2.0, "1": 1.0})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].Slot)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-9)
}

func TestStore_QueryEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, blobstore.NewMemoryStore())

	matches, err := s.Query(ctx, map[string]float64{"0": 1.0})
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestStore_MergeAccumulates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, blobstore.NewMemoryStore())

	require.NoError(t, s.Add(ctx, map[string]float64{"0": 1.0, "1": 0.5}))

	// Same direction, twice the magnitude: cosine 1.0, so it merges.
	require.NoError(t, s.Add(ctx, map[string]float64{"0": 2.0, "1": 1.0}))

	require.Equal(t, 1, s.Len())

	rec := s.Records()[0]
	assert.InDelta(t, 3.0, rec.Get(0), 1e-9)
	assert.InDelta(t, 1.5, rec.Get(1), 1e-9)
}

func TestStore_DistinctChunksStaySeparate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, blobstore.NewMemoryStore())

	require.NoError(t, s.Add(ctx, map[string]float64{"0": 1.0}))
	require.NoError(t, s.Add(ctx, map[string]float64{"1": 1.0}))
	require.NoError(t, s.Add(ctx, map[string]float64{"2": 1.0}))

	assert.Equal(t, 3, s.Len())
}

func TestStore_QueryFiltersByThreshold(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, blobstore.NewMemoryStore())

	require.NoError(t, s.Add(ctx, map[string]float64{"0": 1.0}))
	require.NoError(t, s.Add(ctx, map[string]float64{"1": 1.0}))

	// Equidistant from both records at cosine ~0.707, above the 0.7
	// default threshold for each.
	matches, err := s.Query(ctx, map[string]float64{"0": 1.0, "1": 1.0})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// Orthogonal to everything: no matches survive the threshold.
	matches, err = s.Query(ctx, map[string]float64{"9": 1.0})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStore_QueryOrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, blobstore.NewMemoryStore(), func(o *memory.Options) {
		o.SimilarityThreshold = 0.5
	})

	// Mutual cosine ~0.29, below the threshold, so they stay separate.
	require.NoError(t, s.Add(ctx, map[string]float64{"0": 1.0}))
	require.NoError(t, s.Add(ctx, map[string]float64{"0": 0.3, "1": 1.0}))

	// The query leans toward the second record (~0.82 vs ~0.78).
	matches, err := s.Query(ctx, map[string]float64{"0": 1.0, "1": 0.8})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, 1, matches[0].Slot)
	assert.Equal(t, 0, matches[1].Slot)
	assert.Greater(t, matches[0].Similarity, matches[1].Similarity)
}

func TestStore_FinalizeFreezes(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	s := newTestStore(t, blobs)

	require.NoError(t, s.Add(ctx, map[string]float64{"0": 1.0, "1": 0.5}))
	require.NoError(t, s.Add(ctx, map[string]float64{"5": 2.0, "6": 1.0}))

	require.NoError(t, s.Finalize(ctx))
	assert.Equal(t, memory.StateFrozen, s.State())

	// The snapshot is on the blob store.
	blob, err := blobs.Open(ctx, "memory.snapshot")
	require.NoError(t, err)
	require.NoError(t, blob.Close())

	// Queries keep working against the built index.
	matches, err := s.Query(ctx, map[string]float64{"0": 1.0, "1": 0.5})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].Slot)
}

func TestStore_FinalizeTwiceIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, blobstore.NewMemoryStore())

	require.NoError(t, s.Add(ctx, map[string]float64{"0": 1.0}))
	require.NoError(t, s.Finalize(ctx))
	require.NoError(t, s.Finalize(ctx))
	assert.Equal(t, memory.StateFrozen, s.State())
}

func TestStore_ReloadFromSnapshot(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()

	s1 := newTestStore(t, blobs)
	require.NoError(t, s1.Add(ctx, map[string]float64{"0": 1.0, "1": 0.5}))
	require.NoError(t, s1.Add(ctx, map[string]float64{"5": 2.0, "6": 1.0}))
	require.NoError(t, s1.Finalize(ctx))

	s2 := newTestStore(t, blobs)
	assert.Equal(t, memory.StateFrozen, s2.State())
	require.Equal(t, 2, s2.Len())

	// Reloaded records are the normalized items read back from the
	// index, so they match the originals up to direction.
	for slot, rec := range s2.Records() {
		sim := sparse.Cosine(s1.Records()[slot], rec)
		assert.InDelta(t, 1.0, sim, 1e-6, "slot %d direction changed", slot)
	}

	matches, err := s2.Query(ctx, map[string]float64{"0": 1.0, "1": 0.5})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].Slot)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
}

func TestStore_CorruptSnapshotDiscarded(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()

	require.NoError(t, blobs.Put(ctx, "memory.snapshot", []byte("not a snapshot")))

	s := newTestStore(t, blobs)
	assert.Equal(t, memory.StateBuilding, s.State())
	assert.Equal(t, 0, s.Len())

	// The unreadable artifact is gone.
	_, err := blobs.Open(ctx, "memory.snapshot")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStore_DimensionMismatchDiscardsSnapshot(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()

	seed := int64(7)
	small, err := memory.New(ctx, 4, func(o *memory.Options) {
		o.BlobStore = blobs
		o.Seed = &seed
	})
	require.NoError(t, err)
	require.NoError(t, small.Add(ctx, map[string]float64{"0": 1.0}))
	require.NoError(t, small.Finalize(ctx))

	// A store of a different dimension treats the snapshot as stale.
	s := newTestStore(t, blobs)
	assert.Equal(t, memory.StateBuilding, s.State())
	assert.Equal(t, 0, s.Len())

	_, err = blobs.Open(ctx, "memory.snapshot")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStore_FrozenAddIsNotIndexed(t *testing.T) {
	ctx := context.Background()

	var logBuf bytes.Buffer

	s := newTestStore(t, blobstore.NewMemoryStore(), func(o *memory.Options) {
		o.Logger = slog.New(slog.NewTextHandler(&logBuf, nil))
	})

	require.NoError(t, s.Add(ctx, map[string]float64{"0": 1.0}))
	require.NoError(t, s.Finalize(ctx))

	require.NoError(t, s.Add(ctx, map[string]float64{"7": 1.0}))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, memory.StateFrozen, s.State())
	assert.Contains(t, logBuf.String(), "not indexed")

	// The record exists but the frozen index cannot surface it.
	matches, err := s.Query(ctx, map[string]float64{"7": 1.0})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStore_FrozenMergeMutatesRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, blobstore.NewMemoryStore())

	require.NoError(t, s.Add(ctx, map[string]float64{"0": 1.0}))
	require.NoError(t, s.Finalize(ctx))

	require.NoError(t, s.Add(ctx, map[string]float64{"0": 3.0}))
	require.Equal(t, 1, s.Len())

	// The logical record accumulated while the frozen index kept its
	// copy.
	rec := s.Records()[0]
	assert.InDelta(t, 4.0, rec.Get(0), 1e-6)
}

func TestStore_OptionValidation(t *testing.T) {
	ctx := context.Background()

	_, err := memory.New(ctx, testDim, func(o *memory.Options) {
		o.SimilarityThreshold = 0
	})
	require.Error(t, err)

	_, err = memory.New(ctx, testDim, func(o *memory.Options) {
		o.SimilarityThreshold = 1.5
	})
	require.Error(t, err)

	_, err = memory.New(ctx, testDim, func(o *memory.Options) {
		o.TreeCount = 0
	})
	require.Error(t, err)

	_, err = memory.New(ctx, 0)
	require.Error(t, err)

	codec, err := sparse.NewCodec(8)
	require.NoError(t, err)

	_, err = memory.New(ctx, testDim, func(o *memory.Options) {
		o.Codec = codec
	})
	require.Error(t, err)
}

func TestStore_MemoryAccounting(t *testing.T) {
	ctx := context.Background()

	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})

	s := newTestStore(t, blobstore.NewMemoryStore(), func(o *memory.Options) {
		o.Controller = rc
	})

	require.NoError(t, s.Add(ctx, map[string]float64{"0": 1.0, "1": 0.5}))
	assert.Positive(t, rc.MemoryUsage())

	require.NoError(t, s.Close())
	assert.Zero(t, rc.MemoryUsage())
}
