package rpforest

import (
	"io"

	"github.com/hupe1980/memgo/persistence"
)

// Save writes the built forest to w in the snapshot container format.
// Saving an unbuilt forest returns ErrNotBuilt.
func (f *Forest) Save(w io.Writer, compression persistence.CompressionType) error {
	if !f.Built() {
		return ErrNotBuilt
	}

	payload, err := f.GobEncode()
	if err != nil {
		return err
	}

	h := persistence.FileHeader{
		Compression: compression,
		Dimension:   uint32(f.Dimension()),
		ItemCount:   uint32(f.Len()),
	}

	return persistence.WriteSnapshot(w, h, payload)
}

// Load reads a forest saved by Save. Loaded forests are immutable; the
// given options only affect search behavior.
func Load(r io.Reader, optFns ...func(o *Options)) (*Forest, error) {
	h, payload, err := persistence.ReadSnapshot(r)
	if err != nil {
		return nil, err
	}

	f, err := New(int(h.Dimension), optFns...)
	if err != nil {
		return nil, err
	}

	if err := f.GobDecode(payload); err != nil {
		return nil, err
	}

	return f, nil
}
