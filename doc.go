// Package memgo provides an embedded neuro-symbolic memory for Go.
//
// Memgo stores sparse feature chunks in a consolidating memory: chunks
// similar to an existing record merge into it, so repeated observations
// accumulate instead of piling up as duplicates. A layered knowledge
// graph sits on top, and queries are answered by combining approximate
// vector search with graph attention scores and declarative relation
// rules.
//
// # Quick Start
//
//	ctx := context.Background()
//
//	g := graph.NewStore()
//	// ... add nodes and edges ...
//
//	mg, _ := memgo.New(ctx, g,
//	    memgo.WithDimension(100),
//	    memgo.WithSimilarityThreshold(0.6),
//	)
//	defer mg.Close()
//
//	for _, chunk := range chunks {
//	    _ = mg.Add(ctx, chunk)
//	}
//	_ = mg.Finalize(ctx) // build and persist the index
//
//	res, _ := mg.Process(ctx, map[string]float64{"1": 0.9, "3": 0.7})
//	for id, score := range res.AdjustedScores {
//	    fmt.Println(id, score)
//	}
//
// # Lifecycle
//
// The memory store has two states. While building, every add is
// immediately searchable through a brute scan. Finalize builds a
// random-projection forest over the records, persists it as a snapshot
// blob, and freezes the store; a frozen store answers queries through
// the forest and serves repeated queries from an optional result cache.
// Reopening with the same blob store resumes from the snapshot.
//
// # Key Features
//
//   - Consolidating sparse memory (cosine threshold merging)
//   - Random-projection forest index with parallel build
//   - Layered knowledge graph with multi-signal attention scoring
//   - Declarative relation rules for score adjustment
//   - Snapshot persistence (LZ4/ZSTD, checksummed) on pluggable blob
//     stores (local, in-memory, S3, S3+DynamoDB, MinIO)
//   - Optional resource accounting (memory, background jobs, IO rate)
package memgo
