package graph

import (
	"iter"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// layerIndex tracks node ordinals per hierarchy layer with roaring
// bitmaps, so layer queries avoid full node scans. Ordinals are
// assigned in insertion order and never reused, which makes ascending
// bitmap iteration equal to node insertion order.
type layerIndex struct {
	layers map[int]*roaring.Bitmap
}

func newLayerIndex() *layerIndex {
	return &layerIndex{
		layers: make(map[int]*roaring.Bitmap),
	}
}

func (ix *layerIndex) add(layer int, ord uint32) {
	bm, ok := ix.layers[layer]
	if !ok {
		bm = roaring.New()
		ix.layers[layer] = bm
	}
	bm.Add(ord)
}

func (ix *layerIndex) remove(layer int, ord uint32) {
	bm, ok := ix.layers[layer]
	if !ok {
		return
	}

	bm.Remove(ord)
	if bm.IsEmpty() {
		delete(ix.layers, layer)
	}
}

func (ix *layerIndex) move(from, to int, ord uint32) {
	ix.remove(from, ord)
	ix.add(to, ord)
}

func (ix *layerIndex) cardinality(layer int) int {
	bm, ok := ix.layers[layer]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// ordinals yields the ordinals of one layer in ascending order.
func (ix *layerIndex) ordinals(layer int) iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		bm, ok := ix.layers[layer]
		if !ok {
			return
		}

		it := bm.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// inUse returns the non-empty layers in ascending order.
func (ix *layerIndex) inUse() []int {
	out := make([]int, 0, len(ix.layers))
	for layer := range ix.layers {
		out = append(out, layer)
	}
	sort.Ints(out)

	return out
}
