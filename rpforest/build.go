package rpforest

import (
	"context"
	"math/rand"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/memgo/internal/math32"
)

// splitAttempts bounds how often a hyperplane is re-sampled before the
// builder falls back to a random partition.
const splitAttempts = 3

// Build constructs numTrees trees over the current items and freezes the
// forest. A value of numTrees <= 0 uses DefaultTrees. Trees are built
// concurrently, bounded by Options.Parallelism.
func (f *Forest) Build(ctx context.Context, numTrees int) error {
	if numTrees <= 0 {
		numTrees = DefaultTrees
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.built {
		return ErrImmutable
	}

	slots := make([]int32, 0, len(f.items))
	for slot, vec := range f.items {
		if vec != nil {
			slots = append(slots, int32(slot))
		}
	}

	seed := time.Now().UnixNano()
	if f.opts.RandomSeed != nil {
		seed = *f.opts.RandomSeed
	}

	local := make([][]node, numTrees)

	g, gctx := errgroup.WithContext(ctx)
	if f.opts.Parallelism > 0 {
		g.SetLimit(f.opts.Parallelism)
	}

	for t := range numTrees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			b := &treeBuilder{
				items:    f.items,
				leafSize: f.opts.LeafSize,
				rng:      rand.New(rand.NewSource(seed + int64(t))),
			}
			b.run(slots)

			local[t] = b.nodes

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	total := 0
	for _, nodes := range local {
		total += len(nodes)
	}

	// Concatenate the per-tree node pools, rebasing child references.
	f.nodes = make([]node, 0, total)
	f.roots = make([]int32, numTrees)

	for t, nodes := range local {
		base := int32(len(f.nodes))
		f.roots[t] = base

		for _, n := range nodes {
			if !n.leaf() {
				n.Left += base
				n.Right += base
			}

			f.nodes = append(f.nodes, n)
		}
	}

	f.built = true

	return nil
}

// treeBuilder accumulates the node pool of a single tree. The root ends
// up at index 0.
type treeBuilder struct {
	items    [][]float32
	leafSize int
	rng      *rand.Rand
	nodes    []node
}

func (b *treeBuilder) run(slots []int32) {
	b.build(slots)
}

// build creates the subtree over the given slots and returns its node index.
func (b *treeBuilder) build(slots []int32) int32 {
	idx := int32(len(b.nodes))
	b.nodes = append(b.nodes, node{})

	if len(slots) <= b.leafSize {
		b.nodes[idx] = node{Items: slices.Clone(slots)}

		return idx
	}

	left, right, normal, offset := b.split(slots)

	leftIdx := b.build(left)
	rightIdx := b.build(right)

	b.nodes[idx] = node{
		Normal: normal,
		Offset: offset,
		Left:   leftIdx,
		Right:  rightIdx,
	}

	return idx
}

// split partitions slots by a sampled hyperplane. When no hyperplane
// separates the items it cuts a shuffled copy in half so construction
// always terminates.
func (b *treeBuilder) split(slots []int32) (left, right []int32, normal []float32, offset float32) {
	for range splitAttempts {
		normal, offset = b.sampleHyperplane(slots)
		if normal == nil {
			continue
		}

		left, right = b.partition(slots, normal, offset)
		if len(left) > 0 && len(right) > 0 {
			return left, right, normal, offset
		}
	}

	shuffled := slices.Clone(slots)
	b.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if normal == nil {
		// All sampled points were identical.
		normal = make([]float32, len(b.items[slots[0]]))
		offset = 0
	}

	mid := len(shuffled) / 2

	return shuffled[:mid], shuffled[mid:], normal, offset
}

// sampleHyperplane picks two distinct items and returns the normalized
// plane equidistant to them, or nil when no usable pair was found.
func (b *treeBuilder) sampleHyperplane(slots []int32) ([]float32, float32) {
	i := slots[b.rng.Intn(len(slots))]

	j := i
	for range 5 {
		j = slots[b.rng.Intn(len(slots))]
		if j != i {
			break
		}
	}

	if j == i {
		return nil, 0
	}

	a, c := b.items[i], b.items[j]

	normal := make([]float32, len(a))
	for d := range normal {
		normal[d] = a[d] - c[d]
	}

	if !math32.NormalizeL2InPlace(normal) {
		return nil, 0
	}

	offset := -0.5 * (math32.Dot(normal, a) + math32.Dot(normal, c))

	return normal, offset
}

func (b *treeBuilder) partition(slots []int32, normal []float32, offset float32) (left, right []int32) {
	for _, s := range slots {
		margin := math32.Dot(normal, b.items[s]) + offset

		switch {
		case margin < 0:
			left = append(left, s)
		case margin > 0:
			right = append(right, s)
		default:
			if b.rng.Intn(2) == 0 {
				left = append(left, s)
			} else {
				right = append(right, s)
			}
		}
	}

	return left, right
}
