package persistence

import (
	"errors"
	"fmt"
)

const (
	// MagicNumber identifies memgo snapshot files (ASCII: "MGSN").
	MagicNumber = 0x4D47534E
	// Version is the current snapshot format version.
	Version = 1
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
)

// FileHeader is the fixed 24-byte header at the start of every snapshot.
// All fields are little-endian on the wire.
type FileHeader struct {
	Magic       uint32          // 0x4D47534E ("MGSN")
	Version     uint16          // Snapshot format version
	Compression CompressionType // Payload compression algorithm
	Padding     [1]byte
	Dimension   uint32 // Vector dimensionality
	ItemCount   uint32 // Number of stored items
	PayloadSize uint64 // On-disk payload size in bytes
}

// HeaderSize is the encoded size of FileHeader in bytes.
const HeaderSize = 24

// Validate checks the magic number and version of a decoded header.
func (h *FileHeader) Validate() error {
	if h.Magic != MagicNumber {
		return fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, h.Magic)
	}

	if h.Version != Version {
		return fmt.Errorf("%w: got %d", ErrInvalidVersion, h.Version)
	}

	return nil
}
