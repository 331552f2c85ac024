package testutil

import (
	"math"
	"math/rand"
	"strconv"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns, as a float64, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Chunk generates a random data chunk with nnz distinct feature indices
// below dim and weights in [0.1, 1). Keys are decimal feature indices,
// matching what the sparse codec expects.
func (r *RNG) Chunk(dim, nnz int) map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if nnz > dim {
		nnz = dim
	}

	chunk := make(map[string]float64, nnz)
	for len(chunk) < nnz {
		key := strconv.Itoa(r.rand.Intn(dim))
		if _, ok := chunk[key]; ok {
			continue
		}

		chunk[key] = 0.1 + 0.9*r.rand.Float64()
	}

	return chunk
}

// Chunks generates num random data chunks, each with nnz active features.
func (r *RNG) Chunks(num, dim, nnz int) []map[string]float64 {
	chunks := make([]map[string]float64, num)
	for i := range chunks {
		chunks[i] = r.Chunk(dim, nnz)
	}

	return chunks
}

// UnitVectors generates L2-normalized random vectors (on the hypersphere).
// Uses a Gaussian distribution so the directions are uniform on the sphere.
func (r *RNG) UnitVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]

		var norm float64
		for j := range vec {
			v := r.rand.NormFloat64()
			vec[j] = float32(v)
			norm += v * v
		}

		if norm == 0 {
			norm = 1
		}

		invNorm := float32(1.0 / math.Sqrt(norm))
		for j := range vec {
			vec[j] *= invNorm
		}

		vectors[i] = vec
	}

	return vectors
}
