package attention_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memgo/attention"
	"github.com/hupe1980/memgo/graph"
	"github.com/hupe1980/memgo/sparse"
)

const testDim = 16

func newTestEngine(t *testing.T, optFns ...func(o *attention.Options)) *attention.Engine {
	t.Helper()

	codec, err := sparse.NewCodec(testDim)
	require.NoError(t, err)

	e, err := attention.New(codec, optFns...)
	require.NoError(t, err)

	return e
}

func addNode(t *testing.T, s *graph.Store, n graph.Node) {
	t.Helper()
	require.NoError(t, s.AddNode(n))
}

func TestEngine_RequiresCodec(t *testing.T) {
	_, err := attention.New(nil)
	require.Error(t, err)
}

func TestEngine_NodeWithoutRefsScoresZero(t *testing.T) {
	e := newTestEngine(t)
	s := graph.NewStore()

	// Description and layer would both contribute, but without
	// references the node scores zero outright.
	addNode(t, s, graph.Node{ID: "ghost", Layer: 3, Attrs: map[string]string{"description": "feature 0 and feature 1"}})

	scores, err := e.Attend(context.Background(), map[string]float64{"0": 0.9, "1": 0.8}, s)
	require.NoError(t, err)
	assert.Zero(t, scores["ghost"])
}

func TestEngine_ReferenceSimilarity(t *testing.T) {
	e := newTestEngine(t)
	s := graph.NewStore()

	// A positive weight keeps the query's direction (cosine 1), a zero
	// weight collapses it (cosine 0).
	addNode(t, s, graph.Node{ID: "full", Layer: 0, RefWeights: []float64{1}})
	addNode(t, s, graph.Node{ID: "zero", Layer: 0, RefWeights: []float64{0}})
	addNode(t, s, graph.Node{ID: "half", Layer: 0, RefWeights: []float64{1, 0}})

	scores, err := e.Attend(context.Background(), map[string]float64{"0": 0.9, "1": 0.8}, s)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, scores["full"], 1e-9)
	assert.InDelta(t, 0.0, scores["zero"], 1e-9)
	assert.InDelta(t, 0.5, scores["half"], 1e-9)
}

func TestEngine_LayerMultiplier(t *testing.T) {
	e := newTestEngine(t)
	s := graph.NewStore()

	addNode(t, s, graph.Node{ID: "l1", Layer: 1, RefWeights: []float64{1}})
	addNode(t, s, graph.Node{ID: "l3", Layer: 3, RefWeights: []float64{1}})
	addNode(t, s, graph.Node{ID: "l9", Layer: 9, RefWeights: []float64{1}})

	scores, err := e.Attend(context.Background(), map[string]float64{"0": 0.9}, s)
	require.NoError(t, err)

	assert.InDelta(t, 1.2, scores["l1"], 1e-9)
	assert.InDelta(t, 1.6, scores["l3"], 1e-9)

	// Beyond the importance list the multiplier falls back to 1.0.
	assert.InDelta(t, 1.0, scores["l9"], 1e-9)
}

func TestEngine_KeywordBoost(t *testing.T) {
	e := newTestEngine(t)
	s := graph.NewStore()

	addNode(t, s, graph.Node{ID: "desc", Layer: 2, RefWeights: []float64{1}, Attrs: map[string]string{"description": "feature 0 and feature 1"}})

	scores, err := e.Attend(context.Background(), map[string]float64{"0": 0.9, "1": 0.8}, s)
	require.NoError(t, err)

	// cosine 1.0 x layer 1.4, plus 0.2 per matching key.
	assert.InDelta(t, 1.4+0.4, scores["desc"], 1e-9)
}

func TestEngine_KeywordBoostRequiresAbstractLayer(t *testing.T) {
	e := newTestEngine(t)
	s := graph.NewStore()

	// Same description one layer down: no keyword contribution.
	addNode(t, s, graph.Node{ID: "concrete", Layer: 1, RefWeights: []float64{1}, Attrs: map[string]string{"description": "feature 0 and feature 1"}})

	scores, err := e.Attend(context.Background(), map[string]float64{"0": 0.9, "1": 0.8}, s)
	require.NoError(t, err)
	assert.InDelta(t, 1.2, scores["concrete"], 1e-9)
}

func TestEngine_EdgeContext(t *testing.T) {
	e := newTestEngine(t)
	s := graph.NewStore()

	addNode(t, s, graph.Node{ID: "parent", Layer: 2, RefWeights: []float64{1}})
	addNode(t, s, graph.Node{ID: "described", Layer: 3, Attrs: map[string]string{"description": "feature 0 here"}})
	addNode(t, s, graph.Node{ID: "plain", Layer: 3})

	_, err := s.AddEdge("parent", "described", "is_a", nil)
	require.NoError(t, err)
	_, err = s.AddEdge("parent", "plain", "is_a", nil)
	require.NoError(t, err)

	scores, err := e.Attend(context.Background(), map[string]float64{"0": 0.9, "1": 0.8}, s)
	require.NoError(t, err)

	// cosine 1.0 x layer 1.4, plus 0.1 for the one key found in the
	// described target; the bare target adds nothing.
	assert.InDelta(t, 1.4+0.1, scores["parent"], 1e-9)
}

func TestEngine_EdgeContextGatedByMinLayer(t *testing.T) {
	s := graph.NewStore()

	addNode(t, s, graph.Node{ID: "parent", Layer: 1, RefWeights: []float64{1}})
	addNode(t, s, graph.Node{ID: "described", Layer: 2, Attrs: map[string]string{"description": "feature 0 here"}})

	_, err := s.AddEdge("parent", "described", "is_a", nil)
	require.NoError(t, err)

	chunk := map[string]float64{"0": 0.9}

	gated := newTestEngine(t)

	scores, err := gated.Attend(context.Background(), chunk, s)
	require.NoError(t, err)
	assert.InDelta(t, 1.2, scores["parent"], 1e-9)

	open := newTestEngine(t, func(o *attention.Options) {
		o.MinLayerForEdgeContext = 0
	})

	scores, err = open.Attend(context.Background(), chunk, s)
	require.NoError(t, err)
	assert.InDelta(t, 1.2+0.1, scores["parent"], 1e-9)
}

func TestEngine_EdgeContextOnlyFollowsIsA(t *testing.T) {
	e := newTestEngine(t)
	s := graph.NewStore()

	addNode(t, s, graph.Node{ID: "parent", Layer: 2, RefWeights: []float64{1}})
	addNode(t, s, graph.Node{ID: "described", Layer: 3, Attrs: map[string]string{"description": "feature 0 here"}})

	_, err := s.AddEdge("parent", "described", "has_attribute", nil)
	require.NoError(t, err)

	scores, err := e.Attend(context.Background(), map[string]float64{"0": 0.9}, s)
	require.NoError(t, err)
	assert.InDelta(t, 1.4, scores["parent"], 1e-9)
}

func TestEngine_RawKeysCountForKeywords(t *testing.T) {
	e := newTestEngine(t)
	s := graph.NewStore()

	addNode(t, s, graph.Node{ID: "pet", Layer: 2, RefWeights: []float64{1}, Attrs: map[string]string{"description": "a furry companion"}})

	// The key is not a valid feature index, so the query vector is all
	// zeros, but the raw key still matches the description.
	scores, err := e.Attend(context.Background(), map[string]float64{"furry": 1.0}, s)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, scores["pet"], 1e-9)
}

func TestEngine_CustomImportances(t *testing.T) {
	e := newTestEngine(t, func(o *attention.Options) {
		o.LayerImportance = []float64{1, 1, 2}
		o.KeywordImportance = 0.5
		o.EdgeImportance = 0.25
	})

	s := graph.NewStore()

	addNode(t, s, graph.Node{ID: "hub", Layer: 2, RefWeights: []float64{1}, Attrs: map[string]string{"description": "feature 0"}})
	addNode(t, s, graph.Node{ID: "leaf", Layer: 0, Attrs: map[string]string{"description": "feature 0"}})

	_, err := s.AddEdge("hub", "leaf", "is_a", nil)
	require.NoError(t, err)

	scores, err := e.Attend(context.Background(), map[string]float64{"0": 0.9}, s)
	require.NoError(t, err)

	// 1.0 x 2 + 0.5 keyword + 0.25 edge context.
	assert.InDelta(t, 2.75, scores["hub"], 1e-9)
}

func TestEngine_DeterministicAcrossRuns(t *testing.T) {
	e := newTestEngine(t, func(o *attention.Options) {
		o.Parallelism = 4
	})

	s := graph.NewStore()

	for i, n := range []graph.Node{
		{ID: "animal", Layer: 2, RefWeights: []float64{0, 1, 2}, Attrs: map[string]string{"description": "a living organism 0"}},
		{ID: "cat", Layer: 1, RefWeights: []float64{0}},
		{ID: "dog", Layer: 1, RefWeights: []float64{1}},
		{ID: "mammal", Layer: 3, RefWeights: []float64{1}, Attrs: map[string]string{"description": "warm-blooded 1"}},
	} {
		addNode(t, s, n)

		if i > 0 {
			_, err := s.AddEdge(n.ID, "animal", "is_a", nil)
			require.NoError(t, err)
		}
	}

	chunk := map[string]float64{"0": 0.9, "1": 0.8, "2": 0.7}

	first, err := e.Attend(context.Background(), chunk, s)
	require.NoError(t, err)

	for range 10 {
		again, err := e.Attend(context.Background(), chunk, s)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEngine_ContextCancellation(t *testing.T) {
	e := newTestEngine(t)
	s := graph.NewStore()

	addNode(t, s, graph.Node{ID: "cat", Layer: 1, RefWeights: []float64{1}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Attend(ctx, map[string]float64{"0": 0.9}, s)
	require.ErrorIs(t, err, context.Canceled)
}
