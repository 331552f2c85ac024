// Package rpforest implements a random projection forest for approximate
// nearest neighbor search over normalized vectors. Each tree recursively
// splits the items by hyperplanes equidistant to two sampled points; a
// query descends all trees best-first and re-ranks the collected
// candidates by exact euclidean distance.
package rpforest

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/hupe1980/memgo/internal/math32"
	"github.com/hupe1980/memgo/queue"
)

const (
	// DefaultLeafSize is the maximum number of items held by a leaf node.
	DefaultLeafSize = 16

	// DefaultTrees is the default number of trees built per forest.
	DefaultTrees = 10
)

var (
	// ErrImmutable is returned when adding items to a built or loaded forest.
	ErrImmutable = errors.New("forest is immutable after build")

	// ErrNotBuilt is returned when saving a forest that has not been built.
	ErrNotBuilt = errors.New("forest has not been built")
)

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch.
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Options contains configuration options for the forest.
type Options struct {
	// LeafSize is the maximum number of items per leaf node.
	LeafSize int

	// Parallelism bounds the number of trees built concurrently.
	// Zero or negative means one goroutine per tree.
	Parallelism int

	// SearchK is the size of the candidate pool inspected per query.
	// Zero or negative means k times the number of trees.
	SearchK int

	// RandomSeed makes tree construction reproducible when set.
	RandomSeed *int64
}

// DefaultOptions contains the default configuration options for the forest.
var DefaultOptions = Options{
	LeafSize:    DefaultLeafSize,
	Parallelism: 0,
	SearchK:     0,
}

// Result represents a single nearest neighbor candidate.
type Result struct {
	// Slot is the item slot the candidate was stored under.
	Slot int

	// Distance is the euclidean distance between the query and the candidate.
	Distance float32
}

// node is a single tree node inside the shared node pool. Internal nodes
// carry a split hyperplane and two children; leaves carry item slots.
// Fields are exported for gob.
type node struct {
	Normal []float32 // nil for leaves
	Offset float32
	Left   int32
	Right  int32
	Items  []int32
}

func (n *node) leaf() bool { return n.Normal == nil }

// Forest is a random projection forest over float32 vectors addressed by
// integer slots. Items may be overwritten until Build is called; after
// that the forest is immutable.
type Forest struct {
	mu    sync.RWMutex
	dim   int
	items [][]float32 // slot-indexed, nil entries are unset
	nodes []node      // shared node pool of all trees
	roots []int32     // root node per tree
	built bool
	opts  Options
}

// New creates a new forest for vectors of the given dimension.
func New(dimension int, optFns ...func(o *Options)) (*Forest, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}

	if opts.LeafSize <= 0 {
		opts.LeafSize = DefaultLeafSize
	}

	return &Forest{
		dim:  dimension,
		opts: opts,
	}, nil
}

// Dimension returns the vector dimensionality of the forest.
func (f *Forest) Dimension() int {
	return f.dim
}

// Len returns the number of item slots, including unset ones.
func (f *Forest) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return len(f.items)
}

// Built reports whether the forest has been built or loaded.
func (f *Forest) Built() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.built
}

// AddItem stores a copy of vec under the given slot, growing the slot
// space as needed. An existing item at the same slot is replaced.
func (f *Forest) AddItem(slot int, vec []float32) error {
	if slot < 0 {
		return fmt.Errorf("negative slot: %d", slot)
	}

	if len(vec) != f.dim {
		return &ErrDimensionMismatch{Expected: f.dim, Actual: len(vec)}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.built {
		return ErrImmutable
	}

	for slot >= len(f.items) {
		f.items = append(f.items, nil)
	}

	f.items[slot] = slices.Clone(vec)

	return nil
}

// Item returns the stored vector for a slot, or nil when the slot is
// unset or out of range. The returned slice must not be modified.
func (f *Forest) Item(slot int) []float32 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if slot < 0 || slot >= len(f.items) {
		return nil
	}

	return f.items[slot]
}

// Search returns up to k item slots closest to q in euclidean distance,
// ordered by ascending distance with ties broken by slot. On a forest
// that has not been built yet it falls back to an exact scan.
func (f *Forest) Search(q []float32, k int) ([]Result, error) {
	if len(q) != f.dim {
		return nil, &ErrDimensionMismatch{Expected: f.dim, Actual: len(q)}
	}

	if k <= 0 {
		return nil, nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.built {
		return f.bruteSearch(q, k), nil
	}

	searchK := f.opts.SearchK
	if searchK <= 0 {
		searchK = k * len(f.roots)
	}

	candidates := f.traverse(q, searchK)

	return f.rank(q, candidates, k), nil
}

// traverse descends all trees best-first and collects leaf items until
// the candidate pool is full.
func (f *Forest) traverse(q []float32, searchK int) []int32 {
	pq := queue.NewMax(len(f.roots) * 2)

	inf := float32(math.Inf(1))
	for _, root := range f.roots {
		pq.PushItem(queue.Item{Ref: root, Priority: inf})
	}

	candidates := make([]int32, 0, searchK)

	for pq.Len() > 0 && len(candidates) < searchK {
		top, ok := pq.PopItem()
		if !ok {
			break
		}

		n := &f.nodes[top.Ref]

		if n.leaf() {
			candidates = append(candidates, n.Items...)
			continue
		}

		margin := math32.Dot(n.Normal, q) + n.Offset

		pq.PushItem(queue.Item{Ref: n.Left, Priority: min(top.Priority, -margin)})
		pq.PushItem(queue.Item{Ref: n.Right, Priority: min(top.Priority, margin)})
	}

	return candidates
}

// rank deduplicates candidates and returns the k closest by exact
// euclidean distance, ties broken by ascending slot.
func (f *Forest) rank(q []float32, candidates []int32, k int) []Result {
	seen := make(map[int32]struct{}, len(candidates))
	results := make([]Result, 0, len(candidates))

	for _, slot := range candidates {
		if _, ok := seen[slot]; ok {
			continue
		}

		seen[slot] = struct{}{}

		vec := f.items[slot]
		if vec == nil {
			continue
		}

		results = append(results, Result{
			Slot:     int(slot),
			Distance: math32.Sqrt(math32.SquaredL2(q, vec)),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}

		return results[i].Slot < results[j].Slot
	})

	if len(results) > k {
		results = results[:k]
	}

	return results
}

// bruteSearch scans every item exactly. It serves queries against a
// forest that has not been built yet.
func (f *Forest) bruteSearch(q []float32, k int) []Result {
	results := make([]Result, 0, len(f.items))

	for slot, vec := range f.items {
		if vec == nil {
			continue
		}

		results = append(results, Result{
			Slot:     slot,
			Distance: math32.Sqrt(math32.SquaredL2(q, vec)),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}

		return results[i].Slot < results[j].Slot
	})

	if len(results) > k {
		results = results[:k]
	}

	return results
}
