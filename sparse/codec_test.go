package sparse_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/hupe1980/memgo/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// logCodec returns a codec whose warnings are captured in the buffer.
func logCodec(t *testing.T, dim int) (*sparse.Codec, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer

	c, err := sparse.NewCodec(dim, func(o *sparse.Options) {
		o.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	})
	require.NoError(t, err)

	return c, &buf
}

func TestNewCodec(t *testing.T) {
	t.Run("valid dimension", func(t *testing.T) {
		c, err := sparse.NewCodec(100)
		require.NoError(t, err)
		assert.Equal(t, 100, c.Dimension())
	})

	t.Run("invalid dimension", func(t *testing.T) {
		for _, dim := range []int{0, -5} {
			_, err := sparse.NewCodec(dim)
			require.Error(t, err)

			var ie *sparse.ErrInvalidDimension
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, dim, ie.Dimension)
		}
	})
}

func TestEncodeChunk(t *testing.T) {
	t.Run("valid keys", func(t *testing.T) {
		c := mustCodec(t, 100)

		v := c.EncodeChunk(map[string]float64{"1": 0.5, "2": 0.8, "99": 0.2})

		assert.Equal(t, 100, v.Dim())
		assert.Equal(t, 3, v.NNZ())
		assert.Equal(t, 0.5, v.Get(1))
		assert.Equal(t, 0.8, v.Get(2))
		assert.Equal(t, 0.2, v.Get(99))
	})

	t.Run("non-integer keys are skipped", func(t *testing.T) {
		c, buf := logCodec(t, 100)

		v := c.EncodeChunk(map[string]float64{
			"1":            0.5,
			"invalid":      0.8,
			"99":           0.2,
			"also_invalid": 0.1,
		})

		assert.Equal(t, 2, v.NNZ())
		assert.Equal(t, 0.5, v.Get(1))
		assert.Equal(t, 0.2, v.Get(99))

		out := buf.String()
		assert.Contains(t, out, "skipping non-integer feature key")
		assert.Contains(t, out, "key=invalid")
		assert.Contains(t, out, "key=also_invalid")
	})

	t.Run("out-of-range indices are skipped", func(t *testing.T) {
		c, buf := logCodec(t, 100)

		v := c.EncodeChunk(map[string]float64{"100": 1.0, "-1": 2.0, "99": 0.3})

		assert.Equal(t, 1, v.NNZ())
		assert.Equal(t, 0.3, v.Get(99))
		assert.Contains(t, buf.String(), "skipping out-of-range feature index")
	})

	t.Run("zero values are not stored", func(t *testing.T) {
		c := mustCodec(t, 100)

		v := c.EncodeChunk(map[string]float64{"5": 0.0, "6": 0.4})

		assert.Equal(t, 1, v.NNZ())
		assert.Equal(t, 0.0, v.Get(5))
	})
}

func TestEncodeDense(t *testing.T) {
	t.Run("keeps non-zero entries", func(t *testing.T) {
		c := mustCodec(t, 5)

		v := c.EncodeDense([]float64{0, 1, 0, 2, 0})

		assert.Equal(t, 5, v.Dim())
		assert.Equal(t, 2, v.NNZ())
		assert.Equal(t, 1.0, v.Get(1))
		assert.Equal(t, 2.0, v.Get(3))
	})

	t.Run("tail beyond dimension is skipped", func(t *testing.T) {
		c, buf := logCodec(t, 3)

		v := c.EncodeDense([]float64{1, 2, 3, 4, 5})

		assert.Equal(t, 3, v.NNZ())
		assert.Equal(t, []float64{1, 2, 3}, v.Dense())
		assert.Contains(t, buf.String(), "skipping out-of-range feature index")
	})
}

func TestEncodeDense32(t *testing.T) {
	c := mustCodec(t, 4)

	v := c.EncodeDense32([]float32{0.5, 0, 0.25, 0})

	assert.Equal(t, 2, v.NNZ())
	assert.Equal(t, 0.5, v.Get(0))
	assert.Equal(t, 0.25, v.Get(2))
}

func TestDecodeRoundTrip(t *testing.T) {
	c := mustCodec(t, 100)

	chunk := map[string]float64{"1": 0.5, "2": 0.8, "99": 0.2}

	assert.Equal(t, chunk, c.Decode(c.EncodeChunk(chunk)))
}

func TestDecodeEmpty(t *testing.T) {
	c := mustCodec(t, 10)

	assert.Empty(t, c.Decode(sparse.Zero(10)))
}
