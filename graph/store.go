package graph

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Options contains configuration options for the store.
type Options struct {
	// Logger receives debug records for graph mutations. If nil,
	// logging is disabled.
	Logger *slog.Logger
}

// DefaultOptions contains the default options for the store.
var DefaultOptions = Options{
	Logger: nil,
}

// Compile-time check that Store implements the View interface.
var _ View = (*Store)(nil)

// Store is an in-memory layered knowledge graph. It implements View
// and adds the mutation surface. All methods are safe for concurrent
// use.
type Store struct {
	mu     sync.RWMutex
	logger *slog.Logger

	nodes   map[NodeID]*nodeEntry
	order   []NodeID
	edges   []Edge
	layers  *layerIndex
	byOrd   map[uint32]NodeID
	nextOrd uint32
}

type nodeEntry struct {
	node Node
	ord  uint32
}

// NewStore creates an empty graph store.
func NewStore(optFns ...func(o *Options)) *Store {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Store{
		logger: logger,
		nodes:  make(map[NodeID]*nodeEntry),
		layers: newLayerIndex(),
		byOrd:  make(map[uint32]NodeID),
	}
}

// AddNode inserts a node. The ID must be unused and the layer
// non-negative.
func (s *Store) AddNode(n Node) error {
	if n.Layer < 0 {
		return fmt.Errorf("negative layer %d for node %q", n.Layer, n.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addNodeLocked(n)
}

func (s *Store) addNodeLocked(n Node) error {
	if _, ok := s.nodes[n.ID]; ok {
		return fmt.Errorf("%w: %q", ErrNodeExists, n.ID)
	}

	ord := s.nextOrd
	s.nextOrd++

	s.nodes[n.ID] = &nodeEntry{node: n.clone(), ord: ord}
	s.order = append(s.order, n.ID)
	s.byOrd[ord] = n.ID
	s.layers.add(n.Layer, ord)

	s.logger.Debug("node added", "id", n.ID, "name", n.Name, "layer", n.Layer)

	return nil
}

// AddEdge connects two existing nodes with a directed relation and
// returns the assigned edge key. Parallel edges between the same pair
// receive distinct keys.
func (s *Store) AddEdge(source, target NodeID, relation string, attrs map[string]string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addEdgeLocked(source, target, relation, attrs)
}

func (s *Store) addEdgeLocked(source, target NodeID, relation string, attrs map[string]string) (int, error) {
	if _, ok := s.nodes[source]; !ok {
		return 0, fmt.Errorf("%w: source %q", ErrNodeNotFound, source)
	}

	if _, ok := s.nodes[target]; !ok {
		return 0, fmt.Errorf("%w: target %q", ErrNodeNotFound, target)
	}

	key := s.nextEdgeKeyLocked(source, target)

	s.edges = append(s.edges, Edge{
		Source:   source,
		Target:   target,
		Key:      key,
		Relation: relation,
		Attrs:    maps.Clone(attrs),
	})

	s.logger.Debug("edge added", "source", source, "target", target, "relation", relation, "key", key)

	return key, nil
}

// nextEdgeKeyLocked starts at the parallel-edge count for the pair and
// walks upward past any keys still in use, so keys freed by removals
// can be handed out again.
func (s *Store) nextEdgeKeyLocked(source, target NodeID) int {
	used := make(map[int]bool)

	for _, e := range s.edges {
		if e.Source == source && e.Target == target {
			used[e.Key] = true
		}
	}

	key := len(used)
	for used[key] {
		key++
	}

	return key
}

// UpdateNodeLayer moves a node to a new layer. With remapEdges set,
// every edge that connects the node to a neighbor on a layer below the
// new one is removed, in both directions, since such links no longer
// describe a valid abstraction step.
func (s *Store) UpdateNodeLayer(id NodeID, newLayer int, remapEdges bool) error {
	if newLayer < 0 {
		return fmt.Errorf("negative layer %d for node %q", newLayer, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}

	oldLayer := entry.node.Layer
	entry.node.Layer = newLayer
	s.layers.move(oldLayer, newLayer, entry.ord)

	s.logger.Debug("node layer updated", "id", id, "old_layer", oldLayer, "new_layer", newLayer)

	if !remapEdges {
		return nil
	}

	removed := 0
	kept := s.edges[:0]

	for _, e := range s.edges {
		if e.Source == id {
			if other, ok := s.nodes[e.Target]; ok && other.node.Layer < newLayer {
				removed++
				continue
			}
		} else if e.Target == id {
			if other, ok := s.nodes[e.Source]; ok && other.node.Layer < newLayer {
				removed++
				continue
			}
		}

		kept = append(kept, e)
	}

	s.edges = kept

	if removed > 0 {
		s.logger.Debug("edges remapped", "id", id, "removed", removed)
	}

	return nil
}

// UpdateNodeAttrs replaces a node's attribute map wholesale.
func (s *Store) UpdateNodeAttrs(id NodeID, attrs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}

	entry.node.Attrs = maps.Clone(attrs)

	s.logger.Debug("node attrs updated", "id", id)

	return nil
}

// UpdateEdgeAttrs replaces the attribute map of the edge identified by
// source, target, and key.
func (s *Store) UpdateEdgeAttrs(source, target NodeID, key int, attrs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.edges {
		e := &s.edges[i]
		if e.Source == source && e.Target == target && e.Key == key {
			e.Attrs = maps.Clone(attrs)

			s.logger.Debug("edge attrs updated", "source", source, "target", target, "key", key)

			return nil
		}
	}

	return fmt.Errorf("%w: %s -> %s key %d", ErrEdgeNotFound, source, target, key)
}

// Node returns a copy of the node with the given ID.
func (s *Store) Node(id NodeID) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.nodes[id]
	if !ok {
		return Node{}, false
	}

	return entry.node.clone(), true
}

// Edge returns a copy of the edge identified by source, target, and
// key.
func (s *Store) Edge(source, target NodeID, key int) (Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.edges {
		if e.Source == source && e.Target == target && e.Key == key {
			return e.clone(), true
		}
	}

	return Edge{}, false
}

// Nodes returns copies of all nodes in insertion order.
func (s *Store) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id].node.clone())
	}

	return out
}

// Edges returns copies of all edges in insertion order.
func (s *Store) Edges() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e.clone())
	}

	return out
}

// NodesInLayer returns copies of the nodes on one layer, in insertion
// order.
func (s *Store) NodesInLayer(layer int) []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Node, 0, s.layers.cardinality(layer))
	for ord := range s.layers.ordinals(layer) {
		out = append(out, s.nodes[s.byOrd[ord]].node.clone())
	}

	return out
}

// LayerSize returns the number of nodes on a layer.
func (s *Store) LayerSize(layer int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.layers.cardinality(layer)
}

// Layers returns the non-empty layers in ascending order.
func (s *Store) Layers() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.layers.inUse()
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.order)
}

// EdgeCount returns the number of edges.
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.edges)
}

// MergeNodes replaces the named nodes with a single abstract node on
// targetLayer. Every named node must exist and sit strictly below the
// target layer, and newID must be unused. Reference weights are
// concatenated in the given order, incoming and outgoing edges are
// remapped onto the merged node, and edges that ran between merged
// nodes are dropped along with the originals.
func (s *Store) MergeNodes(ids []NodeID, newID NodeID, name string, targetLayer int, attrs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[newID]; ok {
		return fmt.Errorf("%w: %q", ErrNodeExists, newID)
	}

	idSet := make(map[NodeID]bool, len(ids))

	for _, id := range ids {
		entry, ok := s.nodes[id]
		if !ok {
			return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
		}

		if entry.node.Layer >= targetLayer {
			return fmt.Errorf("%w: %q on layer %d, target layer %d", ErrLayerConflict, id, entry.node.Layer, targetLayer)
		}

		idSet[id] = true
	}

	var refs []float64
	for _, id := range ids {
		refs = append(refs, s.nodes[id].node.RefWeights...)
	}

	if err := s.addNodeLocked(Node{
		ID:         newID,
		Name:       name,
		Layer:      targetLayer,
		Attrs:      attrs,
		RefWeights: refs,
	}); err != nil {
		return err
	}

	// Surviving edges keep their position; remapped ones are re-added
	// at the end so they pick up fresh keys on the merged node.
	var kept, remapped []Edge

	for _, e := range s.edges {
		switch {
		case idSet[e.Source]:
			remapped = append(remapped, Edge{Source: newID, Target: e.Target, Relation: e.Relation, Attrs: e.Attrs})
		case idSet[e.Target]:
			remapped = append(remapped, Edge{Source: e.Source, Target: newID, Relation: e.Relation, Attrs: e.Attrs})
		default:
			kept = append(kept, e)
		}
	}

	s.edges = kept

	for _, e := range remapped {
		if _, err := s.addEdgeLocked(e.Source, e.Target, e.Relation, e.Attrs); err != nil {
			return err
		}
	}

	// Removing the originals last also drops any remapped edge whose
	// far endpoint was itself merged away.
	for _, id := range ids {
		s.removeNodeLocked(id)
	}

	s.logger.Debug("nodes merged", "new_id", newID, "count", len(ids), "layer", targetLayer)

	return nil
}

func (s *Store) removeNodeLocked(id NodeID) {
	entry, ok := s.nodes[id]
	if !ok {
		return
	}

	delete(s.nodes, id)
	delete(s.byOrd, entry.ord)
	s.layers.remove(entry.node.Layer, entry.ord)

	s.order = slices.DeleteFunc(s.order, func(other NodeID) bool {
		return other == id
	})

	s.edges = slices.DeleteFunc(s.edges, func(e Edge) bool {
		return e.Source == id || e.Target == id
	})
}

// Describe renders the current nodes and edges as a human-readable
// listing, mainly for debugging and examples.
func (s *Store) Describe() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder

	fmt.Fprintf(&b, "Nodes (%d):\n", len(s.order))

	for _, id := range s.order {
		n := s.nodes[id].node
		fmt.Fprintf(&b, "  %s (%s) layer=%d refs=%v attrs=%v\n", n.ID, n.Name, n.Layer, n.RefWeights, n.Attrs)
	}

	fmt.Fprintf(&b, "Edges (%d):\n", len(s.edges))

	for _, e := range s.edges {
		fmt.Fprintf(&b, "  %s -> %s [%s] key=%d attrs=%v\n", e.Source, e.Target, e.Relation, e.Key, e.Attrs)
	}

	return b.String()
}
