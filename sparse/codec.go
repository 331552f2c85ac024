package sparse

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// ErrInvalidDimension indicates a non-positive configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// Options contains configuration options for the codec.
type Options struct {
	// Logger receives warnings about dropped feature keys.
	// Nil disables logging.
	Logger *slog.Logger

	// WarnInterval throttles dropped-key warnings: the first few are always
	// emitted, afterwards at most one per interval.
	WarnInterval time.Duration
}

// DefaultOptions contains the default configuration options for the codec.
var DefaultOptions = Options{
	Logger:       nil,
	WarnInterval: time.Minute,
}

// Codec converts between raw feature chunks and Vectors. Chunk keys are
// decimal feature indices; entries that do not parse as integers, or whose
// index falls outside the dimension, are dropped with a warning and never
// fail an operation.
type Codec struct {
	dim    int
	logger *slog.Logger
	warn   rate.Sometimes
}

// NewCodec creates a codec for vectors of the given dimension.
func NewCodec(dimension int, optFns ...func(o *Options)) (*Codec, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if dimension <= 0 {
		return nil, &ErrInvalidDimension{Dimension: dimension}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Codec{
		dim:    dimension,
		logger: logger,
		warn:   rate.Sometimes{First: 3, Interval: opts.WarnInterval},
	}, nil
}

// Dimension returns the configured vector dimension.
func (c *Codec) Dimension() int { return c.dim }

// EncodeChunk converts a raw feature chunk to a Vector. Keys must be
// decimal feature indices below the dimension; offending entries are
// skipped. Zero-valued entries are not stored.
func (c *Codec) EncodeChunk(chunk map[string]float64) Vector {
	elems := make(map[int]float64, len(chunk))

	for key, value := range chunk {
		i, err := strconv.Atoi(key)
		if err != nil {
			c.warn.Do(func() {
				c.logger.Warn("skipping non-integer feature key", "key", key)
			})

			continue
		}

		if i < 0 || i >= c.dim {
			c.warn.Do(func() {
				c.logger.Warn("skipping out-of-range feature index", "index", i, "dimension", c.dim)
			})

			continue
		}

		if value != 0 {
			elems[i] = value
		}
	}

	return Vector{dim: c.dim, elems: elems}
}

// EncodeDense converts a dense array to a Vector, keeping non-zero entries.
// A tail beyond the dimension is skipped with a warning.
func (c *Codec) EncodeDense(values []float64) Vector {
	elems := make(map[int]float64)

	for i, value := range values {
		if i >= c.dim {
			c.warn.Do(func() {
				c.logger.Warn("skipping out-of-range feature index", "index", i, "dimension", c.dim)
			})

			break
		}

		if value != 0 {
			elems[i] = value
		}
	}

	return Vector{dim: c.dim, elems: elems}
}

// EncodeDense32 is EncodeDense for float32 arrays, widening the values.
// It serves the read-back path from the forest index.
func (c *Codec) EncodeDense32(values []float32) Vector {
	elems := make(map[int]float64)

	for i, value := range values {
		if i >= c.dim {
			c.warn.Do(func() {
				c.logger.Warn("skipping out-of-range feature index", "index", i, "dimension", c.dim)
			})

			break
		}

		if value != 0 {
			elems[i] = float64(value)
		}
	}

	return Vector{dim: c.dim, elems: elems}
}

// Decode converts v back to a string-keyed chunk holding its non-zero
// entries. It is the inverse of EncodeChunk on the valid support.
func (c *Codec) Decode(v Vector) map[string]float64 {
	out := make(map[string]float64, v.NNZ())
	for i, x := range v.elems {
		out[strconv.Itoa(i)] = x
	}

	return out
}
