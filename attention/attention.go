// Package attention scores knowledge graph nodes against a query
// chunk, combining per-reference vector similarity with hierarchy
// position and keyword context.
package attention

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/memgo/graph"
	"github.com/hupe1980/memgo/sparse"
)

// keywordContextLayer is the lowest layer whose nodes receive keyword
// scores.
const keywordContextLayer = 2

// Options contains configuration options for the engine.
type Options struct {
	// LayerImportance multiplies a node's similarity by the entry at
	// index Layer. Layers beyond the list fall back to 1.0.
	LayerImportance []float64

	// KeywordImportance is added per query key whose string form occurs
	// in a node's description.
	KeywordImportance float64

	// EdgeImportance is added per query key found in the description of
	// an is_a target.
	EdgeImportance float64

	// MinLayerForEdgeContext is the lowest layer whose nodes receive
	// edge scores.
	MinLayerForEdgeContext int

	// Parallelism bounds the number of concurrently scored nodes. Zero
	// or negative means GOMAXPROCS.
	Parallelism int

	// Logger receives scoring events. If nil, logging is disabled.
	Logger *slog.Logger
}

// DefaultOptions contains the default options for the engine.
var DefaultOptions = Options{
	LayerImportance:        []float64{1, 1.2, 1.4, 1.6},
	KeywordImportance:      0.2,
	EdgeImportance:         0.1,
	MinLayerForEdgeContext: 2,
	Parallelism:            0,
	Logger:                 nil,
}

// Engine scores graph nodes against query chunks. A score is a pure
// function of the query, a graph snapshot, and the configuration, so
// concurrent scoring stays deterministic.
type Engine struct {
	codec  *sparse.Codec
	opts   Options
	logger *slog.Logger
}

// New creates an engine that encodes chunks with the given codec.
func New(codec *sparse.Codec, optFns ...func(o *Options)) (*Engine, error) {
	if codec == nil {
		return nil, errors.New("codec must not be nil")
	}

	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Parallelism < 1 {
		opts.Parallelism = runtime.GOMAXPROCS(0)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Engine{
		codec:  codec,
		opts:   opts,
		logger: logger,
	}, nil
}

// Attend scores every node of the graph against the chunk. Nodes and
// edges are snapshotted once up front; nodes are then scored
// concurrently, each worker writing to its own slot.
func (e *Engine) Attend(ctx context.Context, chunk map[string]float64, g graph.View) (map[graph.NodeID]float64, error) {
	query := e.codec.EncodeChunk(chunk)
	keys := sortedKeys(chunk)

	nodes := g.Nodes()
	edges := g.Edges()

	byID := make(map[graph.NodeID]graph.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	results := make([]float64, len(nodes))

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(e.opts.Parallelism)

	for i, n := range nodes {
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			results[i] = e.scoreNode(query, keys, n, byID, edges)

			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}

	scores := make(map[graph.NodeID]float64, len(nodes))
	for i, n := range nodes {
		scores[n.ID] = results[i]
	}

	e.logger.Debug("attention pass complete", "nodes", len(nodes), "edges", len(edges), "keys", len(keys))

	return scores, nil
}

// scoreNode applies the scoring formula to one node: averaged
// per-reference similarity scaled by layer importance, plus keyword
// and edge-context contributions for abstract layers.
func (e *Engine) scoreNode(query sparse.Vector, keys []string, n graph.Node, byID map[graph.NodeID]graph.Node, edges []graph.Edge) float64 {
	if len(n.RefWeights) == 0 {
		return 0
	}

	var simSum float64
	for _, w := range n.RefWeights {
		simSum += sparse.Cosine(query, query.Scale(w))
	}

	avgSim := simSum / float64(len(n.RefWeights))

	layerMult := 1.0
	if n.Layer >= 0 && n.Layer < len(e.opts.LayerImportance) {
		layerMult = e.opts.LayerImportance[n.Layer]
	}

	var keywordScore float64

	if n.Layer >= keywordContextLayer {
		if desc, ok := n.Attrs[graph.AttrDescription]; ok {
			for _, key := range keys {
				if strings.Contains(desc, key) {
					keywordScore += e.opts.KeywordImportance
				}
			}
		}
	}

	var edgeScore float64

	if n.Layer >= e.opts.MinLayerForEdgeContext {
		for _, edge := range edges {
			if edge.Source != n.ID || edge.Relation != graph.RelationIsA {
				continue
			}

			target, ok := byID[edge.Target]
			if !ok {
				continue
			}

			desc, ok := target.Attrs[graph.AttrDescription]
			if !ok {
				continue
			}

			for _, key := range keys {
				if strings.Contains(desc, key) {
					edgeScore += e.opts.EdgeImportance
				}
			}
		}
	}

	return avgSim*layerMult + keywordScore + edgeScore
}

// sortedKeys returns the raw chunk keys in sorted order, including
// keys the codec would reject.
func sortedKeys(chunk map[string]float64) []string {
	keys := make([]string, 0, len(chunk))
	for k := range chunk {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
