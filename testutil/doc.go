// Package testutil provides testing utilities for Memgo.
//
// This package is intended for use in tests and benchmarks only.
// It provides a deterministic random source, sparse chunk generators,
// and canned fixtures shared across packages: the seed and follow-up
// data chunks plus the animal knowledge graph they describe.
//
// # Random Chunk Generation
//
//	rng := testutil.NewRNG(seed)
//	chunk := rng.Chunk(100, 8)     // 8 active features below dimension 100
//	vecs := rng.UnitVectors(50, 16)
//
// # Canned Fixtures
//
//	chunks := testutil.SeedChunks()
//	dim := testutil.ChunkDimension(testutil.SeedChunks(), testutil.FollowupChunks())
//	g := testutil.AnimalGraph(t)
package testutil
