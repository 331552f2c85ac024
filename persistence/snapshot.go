package persistence

import (
	"encoding/binary"
	"io"
)

// WriteSnapshot writes a complete snapshot to w: the header, the payload
// compressed per h.Compression, and a CRC32 footer covering both. Magic,
// Version and PayloadSize are filled in; the caller provides Compression,
// Dimension and ItemCount.
func WriteSnapshot(w io.Writer, h FileHeader, payload []byte) error {
	framed, err := Compress(payload, h.Compression)
	if err != nil {
		return err
	}

	h.Magic = MagicNumber
	h.Version = Version
	h.PayloadSize = uint64(len(framed))

	cw := NewChecksumWriter(w)

	if err := binary.Write(cw, binary.LittleEndian, &h); err != nil {
		return err
	}

	if _, err := cw.Write(framed); err != nil {
		return err
	}

	// The footer itself is not part of the checksum.
	return binary.Write(w, binary.LittleEndian, cw.Sum())
}

// ReadSnapshot reads a snapshot written by WriteSnapshot, verifies the
// checksum and returns the header and the decompressed payload.
func ReadSnapshot(r io.Reader) (FileHeader, []byte, error) {
	cr := NewChecksumReader(r)

	var h FileHeader
	if err := binary.Read(cr, binary.LittleEndian, &h); err != nil {
		return FileHeader{}, nil, err
	}

	if err := h.Validate(); err != nil {
		return FileHeader{}, nil, err
	}

	framed := make([]byte, h.PayloadSize)
	if _, err := io.ReadFull(cr, framed); err != nil {
		return FileHeader{}, nil, err
	}

	var expected uint32
	if err := binary.Read(r, binary.LittleEndian, &expected); err != nil {
		return FileHeader{}, nil, err
	}

	if err := cr.Verify(expected); err != nil {
		return FileHeader{}, nil, err
	}

	payload, err := Decompress(framed, h.Compression)
	if err != nil {
		return FileHeader{}, nil, err
	}

	return h, payload, nil
}
