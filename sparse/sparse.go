// Package sparse implements fixed-dimension sparse feature vectors and the
// codec that builds them from raw feature chunks.
package sparse

import (
	"math"
	"sort"
)

// Vector is an immutable sparse feature vector of fixed dimension.
// All stored indices are in [0, Dim()). Construct vectors through a Codec
// or derive them with the arithmetic methods; the zero value is the
// zero vector of dimension 0.
type Vector struct {
	dim   int
	elems map[int]float64
}

// Zero returns the zero vector of the given dimension.
func Zero(dim int) Vector {
	return Vector{dim: dim}
}

// Dim returns the vector dimension.
func (v Vector) Dim() int { return v.dim }

// NNZ returns the number of non-zero entries.
func (v Vector) NNZ() int { return len(v.elems) }

// Get returns the weight at index i, or 0 for absent entries.
func (v Vector) Get(i int) float64 { return v.elems[i] }

// indices returns the non-zero indices in ascending order. Arithmetic
// iterates in this order so float sums are reproducible across runs.
func (v Vector) indices() []int {
	idx := make([]int, 0, len(v.elems))
	for i := range v.elems {
		idx = append(idx, i)
	}

	sort.Ints(idx)

	return idx
}

// Dot returns the dot product of v and u.
// Vectors must share the same dimension (caller's responsibility).
func (v Vector) Dot(u Vector) float64 {
	a, b := v, u
	if len(b.elems) < len(a.elems) {
		a, b = b, a
	}

	var sum float64
	for _, i := range a.indices() {
		if w, ok := b.elems[i]; ok {
			sum += a.elems[i] * w
		}
	}

	return sum
}

// Norm returns the L2 norm of v.
func (v Vector) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Cosine returns the cosine similarity of a and b. It is exactly 0.0 when
// either vector has zero magnitude.
func Cosine(a, b Vector) float64 {
	ma := a.Norm()
	mb := b.Norm()

	if ma == 0 || mb == 0 {
		return 0.0
	}

	return a.Dot(b) / (ma * mb)
}

// Normalize returns v scaled to unit length, or v unchanged when its norm
// is zero.
func (v Vector) Normalize() Vector {
	n := v.Norm()
	if n == 0 {
		return v
	}

	return v.Scale(1 / n)
}

// Scale returns v multiplied by w. Entries that multiply to exactly zero
// are dropped, keeping the representation sparse.
func (v Vector) Scale(w float64) Vector {
	elems := make(map[int]float64, len(v.elems))
	for i, x := range v.elems {
		if p := x * w; p != 0 {
			elems[i] = p
		}
	}

	return Vector{dim: v.dim, elems: elems}
}

// Add returns the elementwise sum of v and u. Exact cancellations are
// pruned. Vectors must share the same dimension (caller's responsibility).
func (v Vector) Add(u Vector) Vector {
	elems := make(map[int]float64, len(v.elems)+len(u.elems))
	for i, x := range v.elems {
		elems[i] = x
	}

	for i, x := range u.elems {
		if s := elems[i] + x; s != 0 {
			elems[i] = s
		} else {
			delete(elems, i)
		}
	}

	return Vector{dim: v.dim, elems: elems}
}

// Dense returns the dense float64 form of v, padded to the dimension.
func (v Vector) Dense() []float64 {
	out := make([]float64, v.dim)
	for i, x := range v.elems {
		out[i] = x
	}

	return out
}

// Dense32 returns the dense float32 form of v, padded to the dimension.
// This is the representation handed to the forest index.
func (v Vector) Dense32() []float32 {
	out := make([]float32, v.dim)
	for i, x := range v.elems {
		out[i] = float32(x)
	}

	return out
}

// Elems returns a copy of the non-zero entries.
func (v Vector) Elems() map[int]float64 {
	out := make(map[int]float64, len(v.elems))
	for i, x := range v.elems {
		out[i] = x
	}

	return out
}

// Equal reports whether v and u have the same dimension and entries.
func (v Vector) Equal(u Vector) bool {
	if v.dim != u.dim || len(v.elems) != len(u.elems) {
		return false
	}

	for i, x := range v.elems {
		if u.elems[i] != x {
			return false
		}
	}

	return true
}
