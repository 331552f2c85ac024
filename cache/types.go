// Package cache provides the query-result cache used in front of
// frozen memory stores.
package cache

// ResultCache caches computed results under canonical string keys.
// Implementations must be safe for concurrent use.
type ResultCache interface {
	// Get returns a cached value. ok=false if missing.
	Get(key string) (value any, ok bool)

	// Set caches a value with an approximate cost in bytes. It reports
	// whether the entry was accepted; admission may still drop it
	// asynchronously.
	Set(key string, value any, cost int64) bool

	// Del removes a key.
	Del(key string)

	// Wait blocks until buffered writes are applied.
	Wait()

	// Close releases the cache's resources.
	Close()
}
