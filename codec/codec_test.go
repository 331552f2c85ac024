package codec

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecs_RoundTripChunk(t *testing.T) {
	chunk := map[string]float64{"0": 0.9, "1": 0.8, "7": 0.3}

	for _, c := range []Codec{JSON{}, GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(chunk)
			require.NoError(t, err)

			var got map[string]float64
			require.NoError(t, c.Unmarshal(data, &got))
			assert.Equal(t, chunk, got)
		})
	}
}

func TestCodecs_DeterministicChunkEncoding(t *testing.T) {
	// Cache keys derive from marshalled chunks, so repeated encodings
	// of the same map must be byte-identical.
	chunk := map[string]float64{"9": 1, "10": 2, "2": 3, "0": 4}

	for _, c := range []Codec{JSON{}, GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			first, err := c.Marshal(chunk)
			require.NoError(t, err)

			for range 20 {
				again, err := c.Marshal(chunk)
				require.NoError(t, err)
				assert.Equal(t, first, again)
			}
		})
	}
}

func TestByName(t *testing.T) {
	c, ok := ByName("json")
	require.True(t, ok)
	assert.Equal(t, "json", c.Name())

	c, ok = ByName("go-json")
	require.True(t, ok)
	assert.Equal(t, "go-json", c.Name())

	_, ok = ByName("msgpack")
	assert.False(t, ok)
}

func TestMustMarshalUsesDefault(t *testing.T) {
	data := MustMarshal(nil, map[string]float64{"0": 1})
	assert.NotEmpty(t, data)
}

func BenchmarkCodecMarshalChunk(b *testing.B) {
	chunk := make(map[string]float64, 64)
	for i := range 64 {
		chunk[strconv.Itoa(i)] = float64(i) * 0.1
	}

	for _, c := range []Codec{JSON{}, GoJSON{}} {
		b.Run(c.Name(), func(b *testing.B) {
			b.ReportAllocs()

			var sink []byte

			for b.Loop() {
				out, err := c.Marshal(chunk)
				if err != nil {
					b.Fatal(err)
				}
				sink = out
			}

			_ = sink
		})
	}
}
