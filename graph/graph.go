// Package graph provides the layered knowledge graph the scoring
// engines read from: named nodes on integer hierarchy layers carrying
// free-form attributes and scalar memory-reference weights, connected
// by directed relations that permit keyed parallel edges.
package graph

import (
	"errors"
	"maps"
	"slices"
)

const (
	// RelationIsA is the hierarchy relation linking a node to its
	// abstraction. The scoring engines treat it specially.
	RelationIsA = "is_a"

	// RelationHasAttribute links a node to a property concept.
	RelationHasAttribute = "has_attribute"

	// AttrDescription is the attribute scanned for query keywords.
	AttrDescription = "description"

	// AttrLocation is the attribute inspected by the default
	// has_attribute rule.
	AttrLocation = "location"
)

// NodeID identifies a node within a store.
type NodeID string

// Node is a concept in the hierarchy. Layer zero holds the most
// concrete entries and higher layers hold abstractions over them.
// RefWeights are scalar weights tying the node to stored memory
// content; the attention engine scales the query vector by each one.
type Node struct {
	ID         NodeID
	Name       string
	Layer      int
	Attrs      map[string]string
	RefWeights []float64
}

func (n Node) clone() Node {
	n.Attrs = maps.Clone(n.Attrs)
	n.RefWeights = slices.Clone(n.RefWeights)

	return n
}

// Edge is a directed relation between two nodes. Multiple edges
// between the same ordered pair are allowed and told apart by Key.
type Edge struct {
	Source   NodeID
	Target   NodeID
	Key      int
	Relation string
	Attrs    map[string]string
}

func (e Edge) clone() Edge {
	e.Attrs = maps.Clone(e.Attrs)

	return e
}

// View is the read-only capability the scoring engines consume. Nodes
// and Edges return deep copies in insertion order, so callers may hold
// the snapshots across concurrent mutations.
type View interface {
	// Nodes returns copies of all nodes in insertion order.
	Nodes() []Node

	// Edges returns copies of all edges in insertion order.
	Edges() []Edge

	// Node returns a copy of the node with the given ID.
	Node(id NodeID) (Node, bool)
}

var (
	// ErrNodeExists occurs when adding a node whose ID is already taken.
	ErrNodeExists = errors.New("node already exists")

	// ErrNodeNotFound occurs when an operation names a node that is not
	// in the store.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound occurs when an operation names an edge that is not
	// in the store.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrLayerConflict occurs when a merge names a source node that does
	// not sit strictly below the target layer.
	ErrLayerConflict = errors.New("node layer not below merge target layer")
)
