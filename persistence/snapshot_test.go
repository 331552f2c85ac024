package persistence_test

import (
	"bytes"
	"testing"

	"github.com/hupe1980/memgo/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("memgo snapshot payload "), 64)

	tests := []struct {
		name        string
		compression persistence.CompressionType
	}{
		{name: "none", compression: persistence.CompressionNone},
		{name: "lz4", compression: persistence.CompressionLZ4},
		{name: "zstd", compression: persistence.CompressionZSTD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			h := persistence.FileHeader{
				Compression: tt.compression,
				Dimension:   100,
				ItemCount:   7,
			}
			require.NoError(t, persistence.WriteSnapshot(&buf, h, payload))

			got, data, err := persistence.ReadSnapshot(&buf)
			require.NoError(t, err)

			assert.Equal(t, uint32(persistence.MagicNumber), got.Magic)
			assert.Equal(t, uint16(persistence.Version), got.Version)
			assert.Equal(t, tt.compression, got.Compression)
			assert.Equal(t, uint32(100), got.Dimension)
			assert.Equal(t, uint32(7), got.ItemCount)
			assert.Equal(t, payload, data)
		})
	}
}

func TestSnapshotEmptyPayload(t *testing.T) {
	var buf bytes.Buffer

	h := persistence.FileHeader{Compression: persistence.CompressionZSTD}
	require.NoError(t, persistence.WriteSnapshot(&buf, h, nil))

	got, data, err := persistence.ReadSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got.PayloadSize)
	assert.Empty(t, data)
}

func TestReadSnapshotInvalidMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, persistence.WriteSnapshot(&buf, persistence.FileHeader{}, []byte("x")))

	raw := buf.Bytes()
	raw[0] ^= 0xFF

	_, _, err := persistence.ReadSnapshot(bytes.NewReader(raw))
	require.ErrorIs(t, err, persistence.ErrInvalidMagic)
}

func TestReadSnapshotCorruptPayload(t *testing.T) {
	var buf bytes.Buffer
	payload := bytes.Repeat([]byte("abcd"), 32)
	require.NoError(t, persistence.WriteSnapshot(&buf, persistence.FileHeader{}, payload))

	raw := buf.Bytes()
	raw[persistence.HeaderSize+3] ^= 0xFF

	_, _, err := persistence.ReadSnapshot(bytes.NewReader(raw))
	require.Error(t, err)
	assert.True(t, persistence.IsChecksumMismatch(err))

	var mismatch *persistence.ChecksumMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.NotEqual(t, mismatch.Expected, mismatch.Actual)
}

func TestReadSnapshotTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, persistence.WriteSnapshot(&buf, persistence.FileHeader{}, []byte("payload")))

	raw := buf.Bytes()

	_, _, err := persistence.ReadSnapshot(bytes.NewReader(raw[:len(raw)-6]))
	require.Error(t, err)
}
