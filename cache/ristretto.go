package cache

import (
	"github.com/dgraph-io/ristretto"
)

// Options contains configuration options for the ristretto cache.
type Options struct {
	// NumCounters is the number of keys whose access frequency is
	// tracked for admission decisions, ideally about ten times the
	// expected number of live entries.
	NumCounters int64

	// MaxCost bounds the summed cost of cached entries in bytes.
	MaxCost int64

	// BufferItems is the size of the internal set buffers.
	BufferItems int64
}

// DefaultOptions contains the default options for the ristretto cache.
var DefaultOptions = Options{
	NumCounters: 1e5,
	MaxCost:     64 << 20,
	BufferItems: 64,
}

// Compile-time check that RistrettoCache implements the ResultCache interface.
var _ ResultCache = (*RistrettoCache)(nil)

// RistrettoCache is a ResultCache backed by a TinyLFU-admitted,
// cost-bounded ristretto cache.
type RistrettoCache struct {
	c *ristretto.Cache
}

// NewRistretto creates a ristretto-backed result cache.
func NewRistretto(optFns ...func(o *Options)) (*RistrettoCache, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: opts.NumCounters,
		MaxCost:     opts.MaxCost,
		BufferItems: opts.BufferItems,
	})
	if err != nil {
		return nil, err
	}

	return &RistrettoCache{c: c}, nil
}

func (r *RistrettoCache) Get(key string) (any, bool) {
	return r.c.Get(key)
}

func (r *RistrettoCache) Set(key string, value any, cost int64) bool {
	return r.c.Set(key, value, cost)
}

func (r *RistrettoCache) Del(key string) {
	r.c.Del(key)
}

func (r *RistrettoCache) Wait() {
	r.c.Wait()
}

func (r *RistrettoCache) Close() {
	r.c.Close()
}
