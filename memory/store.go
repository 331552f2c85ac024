// Package memory implements the consolidating memory store: sparse
// records that merge on high cosine similarity, indexed by a
// random-projection forest and persisted as a single snapshot blob.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/memgo/blobstore"
	"github.com/hupe1980/memgo/persistence"
	"github.com/hupe1980/memgo/resource"
	"github.com/hupe1980/memgo/rpforest"
	"github.com/hupe1980/memgo/sparse"
)

// State describes the lifecycle of a store.
type State int

const (
	// StateBuilding accepts new records into the index.
	StateBuilding State = iota

	// StateFrozen serves a built index. Records still mutate, the index
	// does not.
	StateFrozen
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateFrozen:
		return "frozen"
	default:
		return "unknown"
	}
}

const (
	// searchK is the candidate count requested from the forest per query.
	searchK = 10

	staleDeleteAttempts = 5
	staleDeleteDelay    = 100 * time.Millisecond

	// bytesPerElem approximates the resident cost of one sparse element
	// (index plus value).
	bytesPerElem = 16
)

var (
	// ErrInvalidThreshold is returned when the similarity threshold is
	// outside (0, 1].
	ErrInvalidThreshold = errors.New("similarity threshold must be in (0, 1]")

	// ErrInvalidTreeCount is returned when the tree count is not positive.
	ErrInvalidTreeCount = errors.New("tree count must be at least 1")
)

// Match is a single query result.
type Match struct {
	// Vector is the stored record, with merged magnitudes intact.
	Vector sparse.Vector

	// Similarity is the exact cosine similarity between the normalized
	// query and the record.
	Similarity float64

	// Slot is the record's index slot.
	Slot int
}

// Options contains configuration options for the store.
type Options struct {
	// SimilarityThreshold is the cosine similarity at or above which an
	// incoming chunk merges into its best match instead of becoming a
	// new record. Queries use the same threshold for acceptance. Must
	// be in (0, 1].
	SimilarityThreshold float64

	// TreeCount is the number of random-projection trees Finalize
	// builds.
	TreeCount int

	// BlobStore holds the snapshot. Defaults to a local store rooted in
	// the current directory.
	BlobStore blobstore.BlobStore

	// SnapshotName is the blob name the snapshot is stored under.
	SnapshotName string

	// Compression applied to the snapshot payload.
	Compression persistence.CompressionType

	// Codec converts raw chunks to vectors. Defaults to a fresh codec
	// of the store's dimension; supply one to share it across
	// components. Its dimension must match the store's.
	Codec *sparse.Codec

	// Seed fixes the forest's random source for reproducible builds.
	Seed *int64

	// Controller optionally bounds record memory, background work, and
	// snapshot IO. Nil enforces nothing.
	Controller *resource.Controller

	// Logger receives store events. If nil, logging is disabled.
	Logger *slog.Logger
}

// DefaultOptions contains the default options for the store.
var DefaultOptions = Options{
	SimilarityThreshold: 0.7,
	TreeCount:           10,
	SnapshotName:        "memory.snapshot",
	Compression:         persistence.CompressionLZ4,
	Logger:              nil,
}

// Store is a consolidating memory store. Chunks whose cosine similarity
// to an existing record reaches the threshold are summed into it, so
// repeated observations accumulate magnitude instead of multiplying
// records. All methods are safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	state State

	dim       int
	threshold float64
	trees     int

	codec   *sparse.Codec
	forest  *rpforest.Forest
	records []sparse.Vector

	blobs        blobstore.BlobStore
	snapshotName string
	compression  persistence.CompressionType

	rc       *resource.Controller
	memBytes int64

	logger *slog.Logger
}

// New creates a store for vectors of the given dimension. If the blob
// store holds a decodable snapshot under the configured name, the store
// loads it and starts frozen; a missing snapshot starts an empty
// building store; a corrupt snapshot is discarded and also starts
// empty. Only transport failures are fatal.
func New(ctx context.Context, dimension int, optFns ...func(o *Options)) (*Store, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.SimilarityThreshold <= 0 || opts.SimilarityThreshold > 1 {
		return nil, fmt.Errorf("%w, got %v", ErrInvalidThreshold, opts.SimilarityThreshold)
	}

	if opts.TreeCount < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidTreeCount, opts.TreeCount)
	}

	codec := opts.Codec
	if codec == nil {
		var err error
		if codec, err = sparse.NewCodec(dimension, func(o *sparse.Options) {
			o.Logger = opts.Logger
		}); err != nil {
			return nil, err
		}
	} else if codec.Dimension() != dimension {
		return nil, fmt.Errorf("codec dimension %d does not match store dimension %d", codec.Dimension(), dimension)
	}

	blobs := opts.BlobStore
	if blobs == nil {
		var err error
		if blobs, err = blobstore.NewLocalStore("."); err != nil {
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Store{
		dim:          dimension,
		threshold:    opts.SimilarityThreshold,
		trees:        opts.TreeCount,
		codec:        codec,
		blobs:        blobs,
		snapshotName: opts.SnapshotName,
		compression:  opts.Compression,
		rc:           opts.Controller,
		logger:       logger,
	}

	if err := s.load(ctx, opts.Seed); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) load(ctx context.Context, seed *int64) error {
	fresh := func() error {
		forest, err := rpforest.New(s.dim, func(o *rpforest.Options) {
			o.RandomSeed = seed
		})
		if err != nil {
			return err
		}

		s.forest = forest
		s.state = StateBuilding

		return nil
	}

	blob, err := s.blobs.Open(ctx, s.snapshotName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			s.logger.Debug("no snapshot found, starting fresh", "name", s.snapshotName)

			return fresh()
		}

		return fmt.Errorf("open snapshot %q: %w", s.snapshotName, err)
	}
	defer blob.Close()

	forest, err := rpforest.Load(resource.NewRateLimitedReader(ctx, blob, s.rc))
	if err == nil && forest.Dimension() != s.dim {
		err = &rpforest.ErrDimensionMismatch{Expected: s.dim, Actual: forest.Dimension()}
	}

	if err != nil {
		s.logger.Warn("snapshot is unreadable, discarding it", "name", s.snapshotName, "error", err)
		s.discardStale(ctx)

		return fresh()
	}

	// The loaded index is the source of truth: logical records are
	// rebuilt from the stored items, so they carry the normalized,
	// float32-rounded values the index searched against.
	s.forest = forest
	s.state = StateFrozen

	for slot := range forest.Len() {
		item := forest.Item(slot)
		if item == nil {
			continue
		}

		rec := s.codec.EncodeDense32(item)

		if err := s.rc.AcquireMemory(ctx, recordBytes(rec)); err != nil {
			return fmt.Errorf("memory reservation: %w", err)
		}
		s.memBytes += recordBytes(rec)

		s.records = append(s.records, rec)
	}

	s.logger.Info("snapshot loaded", "name", s.snapshotName, "records", len(s.records))

	return nil
}

// discardStale deletes an undecodable snapshot so the next start does
// not trip over it again. Failures are retried a few times and then
// abandoned; the store works without the deletion.
func (s *Store) discardStale(ctx context.Context) {
	for attempt := 1; attempt <= staleDeleteAttempts; attempt++ {
		err := s.blobs.Delete(ctx, s.snapshotName)
		if err == nil || errors.Is(err, blobstore.ErrNotFound) {
			s.logger.Info("stale snapshot removed", "name", s.snapshotName)

			return
		}

		s.logger.Warn("stale snapshot delete failed", "name", s.snapshotName, "attempt", attempt, "error", err)

		if attempt == staleDeleteAttempts {
			break
		}

		select {
		case <-ctx.Done():
			s.logger.Warn("stale snapshot delete abandoned", "name", s.snapshotName, "error", ctx.Err())

			return
		case <-time.After(staleDeleteDelay):
		}
	}

	s.logger.Warn("stale snapshot left behind", "name", s.snapshotName, "attempts", staleDeleteAttempts)
}

func recordBytes(v sparse.Vector) int64 {
	return int64(v.NNZ()) * bytesPerElem
}

// Add stores a chunk. If the best cosine match among existing records
// reaches the threshold, the chunk is summed into that record and the
// index entry is refreshed; otherwise it becomes a new record. On a
// frozen store records still mutate but the index does not, and each
// such call logs the gap.
func (s *Store) Add(ctx context.Context, chunk map[string]float64) error {
	vec := s.codec.EncodeChunk(chunk)

	// Reserve the worst case before taking the lock so a throttled
	// reservation cannot stall readers; the unused part is refunded
	// after the merge decision.
	reserve := recordBytes(vec) + int64(s.dim)*4
	if err := s.rc.AcquireMemory(ctx, reserve); err != nil {
		return fmt.Errorf("memory reservation: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	used, err := s.addLocked(vec)
	if err != nil {
		s.rc.ReleaseMemory(reserve)

		return err
	}

	if refund := reserve - used; refund > 0 {
		s.rc.ReleaseMemory(refund)
	}

	s.memBytes += used

	return nil
}

// addLocked performs the merge-or-append step and returns the byte
// growth it caused. Growth can be negative when a merge cancels
// elements out.
func (s *Store) addLocked(vec sparse.Vector) (int64, error) {
	bestSlot := -1
	bestSim := 0.0

	for i, rec := range s.records {
		if sim := sparse.Cosine(vec, rec); sim > bestSim {
			bestSim = sim
			bestSlot = i
		}
	}

	if bestSlot >= 0 && bestSim >= s.threshold {
		merged := s.records[bestSlot].Add(vec)
		grown := recordBytes(merged) - recordBytes(s.records[bestSlot])
		s.records[bestSlot] = merged

		if s.state == StateBuilding {
			if err := s.forest.AddItem(bestSlot, merged.Normalize().Dense32()); err != nil {
				return 0, err
			}
		} else {
			s.logger.Warn("merge into frozen store leaves the index stale", "slot", bestSlot, "similarity", bestSim)
		}

		s.logger.Debug("chunk merged", "slot", bestSlot, "similarity", bestSim)

		return grown, nil
	}

	slot := len(s.records)
	used := recordBytes(vec)

	if s.state == StateBuilding {
		if err := s.forest.AddItem(slot, vec.Normalize().Dense32()); err != nil {
			return 0, err
		}

		used += int64(s.dim) * 4
	} else {
		s.logger.Warn("add to frozen store is not indexed", "slot", slot)
	}

	s.records = append(s.records, vec)

	s.logger.Debug("chunk stored", "slot", slot, "nnz", vec.NNZ())

	return used, nil
}

// Query returns the records whose exact cosine similarity to the chunk
// reaches the threshold, most similar first. The forest narrows the
// candidates; similarities are recomputed exactly on the sparse
// records. An empty store returns an empty slice.
func (s *Store) Query(ctx context.Context, chunk map[string]float64) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := s.codec.EncodeChunk(chunk).Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return []Match{}, nil
	}

	results, err := s.forest.Search(query.Dense32(), searchK)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(results))

	for _, res := range results {
		if res.Slot >= len(s.records) {
			continue
		}

		rec := s.records[res.Slot]

		if sim := sparse.Cosine(query, rec); sim >= s.threshold {
			matches = append(matches, Match{Vector: rec, Similarity: sim, Slot: res.Slot})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	return matches, nil
}

// Finalize builds the forest and persists it, freezing the store. It
// is valid once, from StateBuilding; on a frozen store it warns and
// returns nil. The transition is terminal.
func (s *Store) Finalize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateFrozen {
		s.logger.Warn("store is already frozen, finalize skipped")

		return nil
	}

	if err := s.rc.AcquireJob(ctx); err != nil {
		return fmt.Errorf("job slot: %w", err)
	}
	defer s.rc.ReleaseJob()

	if err := s.forest.Build(ctx, s.trees); err != nil {
		return fmt.Errorf("build forest: %w", err)
	}

	if err := s.writeSnapshot(ctx); err != nil {
		return fmt.Errorf("write snapshot %q: %w", s.snapshotName, err)
	}

	s.state = StateFrozen

	s.logger.Info("memory store finalized", "records", len(s.records), "trees", s.trees)

	return nil
}

// writeSnapshot streams the built forest into the blob store. A partial
// blob left by a failure here is caught by the decode check on the next
// load and discarded there.
func (s *Store) writeSnapshot(ctx context.Context) error {
	wb, err := s.blobs.Create(ctx, s.snapshotName)
	if err != nil {
		return err
	}

	w := resource.NewRateLimitedWriter(ctx, wb, s.rc)

	saveErr := s.forest.Save(w, s.compression)
	closeErr := wb.Close()

	if saveErr != nil {
		return saveErr
	}

	return closeErr
}

// Close releases the store's resource reservations. The store stays
// readable afterward.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rc.ReleaseMemory(s.memBytes)
	s.memBytes = 0

	return nil
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// State returns the lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// Dimension returns the vector dimension.
func (s *Store) Dimension() int {
	return s.dim
}

// Records returns a copy of the record list in slot order.
func (s *Store) Records() []sparse.Vector {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.records)
}
