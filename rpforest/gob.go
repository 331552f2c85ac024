package rpforest

import (
	"bytes"
	"encoding/gob"
)

// GobEncode method for Forest.
func (f *Forest) GobEncode() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)

	if err := encoder.Encode(f.dim); err != nil {
		return nil, err
	}

	if err := encoder.Encode(f.items); err != nil {
		return nil, err
	}

	if err := encoder.Encode(f.nodes); err != nil {
		return nil, err
	}

	if err := encoder.Encode(f.roots); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// GobDecode method for Forest.
func (f *Forest) GobDecode(data []byte) error {
	decoder := gob.NewDecoder(bytes.NewBuffer(data))

	if err := decoder.Decode(&f.dim); err != nil {
		return err
	}

	if err := decoder.Decode(&f.items); err != nil {
		return err
	}

	if err := decoder.Decode(&f.nodes); err != nil {
		return err
	}

	if err := decoder.Decode(&f.roots); err != nil {
		return err
	}

	// Forests are only encoded after Build, so the decoded one is immutable.
	f.built = true

	return nil
}
