// Package rules re-ranks attention scores with declarative relation
// rules and aggregates the reference vectors of the strongest nodes.
package rules

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/hupe1980/memgo/graph"
	"github.com/hupe1980/memgo/sparse"
)

// maxSelected caps how many scored nodes participate in aggregation
// and rule application.
const maxSelected = 5

// Rule adjusts the scores of a selected node's edge targets.
type Rule struct {
	// IfRelation is the edge relation that triggers the rule.
	IfRelation string

	// TargetAttrs are the attribute keys inspected on the target node
	// for query keyword matches.
	TargetAttrs []string

	// Boost adds the keyword amount to the target's score when true
	// and subtracts it when false.
	Boost bool
}

// DefaultRules returns the built-in rule list: hierarchy targets gain
// score when their description mentions query keys, attribute targets
// when their location does.
func DefaultRules() []Rule {
	return []Rule{
		{IfRelation: graph.RelationIsA, TargetAttrs: []string{graph.AttrDescription}, Boost: true},
		{IfRelation: graph.RelationHasAttribute, TargetAttrs: []string{graph.AttrLocation}, Boost: true},
	}
}

// Options contains configuration options for the integrator.
type Options struct {
	// RuleImportance is the score delta per keyword match.
	RuleImportance float64

	// Rules is the rule list to apply. Nil means DefaultRules; an
	// empty slice disables rule adjustments.
	Rules []Rule

	// Logger receives integration events. If nil, logging is disabled.
	Logger *slog.Logger
}

// DefaultOptions contains the default options for the integrator.
var DefaultOptions = Options{
	RuleImportance: 0.1,
	Rules:          nil,
	Logger:         nil,
}

// Integrator applies relation rules on top of attention scores. It is
// stateless between calls; Integrate never mutates its inputs.
type Integrator struct {
	codec  *sparse.Codec
	opts   Options
	logger *slog.Logger
}

// New creates an integrator that encodes chunks with the given codec.
func New(codec *sparse.Codec, optFns ...func(o *Options)) (*Integrator, error) {
	if codec == nil {
		return nil, errors.New("codec must not be nil")
	}

	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Rules == nil {
		opts.Rules = DefaultRules()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Integrator{
		codec:  codec,
		opts:   opts,
		logger: logger,
	}, nil
}

// Integrate selects up to five of the strongest scored nodes that
// carry reference weights, sums their reference vectors into one
// aggregated vector, and applies the rules to the scores of their edge
// targets. The returned map is an adjusted copy; the input map is
// never mutated, and no clamping is applied to adjusted scores.
func (in *Integrator) Integrate(ctx context.Context, chunk map[string]float64, scores map[graph.NodeID]float64, g graph.View) (sparse.Vector, map[graph.NodeID]float64, error) {
	if err := ctx.Err(); err != nil {
		return sparse.Vector{}, nil, err
	}

	query := in.codec.EncodeChunk(chunk)
	keys := sortedKeys(chunk)

	nodes := g.Nodes()
	edges := g.Edges()

	byID := make(map[graph.NodeID]graph.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	// Candidates keep graph insertion order; the stable sort then makes
	// ties resolve to that order.
	candidates := make([]graph.Node, 0, len(nodes))

	for _, n := range nodes {
		if _, ok := scores[n.ID]; ok {
			candidates = append(candidates, n)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return scores[candidates[i].ID] > scores[candidates[j].ID]
	})

	selected := make([]graph.Node, 0, maxSelected)

	for _, n := range candidates {
		if len(selected) == maxSelected {
			break
		}

		if len(n.RefWeights) > 0 {
			selected = append(selected, n)
		}
	}

	aggregated := sparse.Zero(in.codec.Dimension())

	for _, n := range selected {
		for _, w := range n.RefWeights {
			aggregated = aggregated.Add(query.Scale(w))
		}
	}

	adjusted := make(map[graph.NodeID]float64, len(scores))
	for id, score := range scores {
		adjusted[id] = score
	}

	for _, n := range selected {
		for _, edge := range edges {
			if edge.Source != n.ID {
				continue
			}

			for _, rule := range in.opts.Rules {
				if rule.IfRelation != edge.Relation {
					continue
				}

				if _, ok := adjusted[edge.Target]; !ok {
					continue
				}

				target, ok := byID[edge.Target]
				if !ok {
					continue
				}

				amount := in.keywordAmount(rule, target, keys)

				if rule.Boost {
					adjusted[edge.Target] += amount
				} else {
					adjusted[edge.Target] -= amount
				}
			}
		}
	}

	in.logger.Debug("rule integration complete", "selected", len(selected), "rules", len(in.opts.Rules))

	return aggregated, adjusted, nil
}

// keywordAmount sums the rule importance once per query key found in
// each of the rule's target attributes.
func (in *Integrator) keywordAmount(rule Rule, target graph.Node, keys []string) float64 {
	var amount float64

	for _, attr := range rule.TargetAttrs {
		val, ok := target.Attrs[attr]
		if !ok {
			continue
		}

		for _, key := range keys {
			if strings.Contains(val, key) {
				amount += in.opts.RuleImportance
			}
		}
	}

	return amount
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
