package weights

import (
	"os"

	"github.com/pkg/errors"
)

// mappedFile is a read-only view of a weight file. Decoders copy everything
// they keep, so the view is released as soon as decoding finishes.
type mappedFile struct {
	data    []byte
	release func() error
}

// openMapped maps path into memory where the platform supports it and reads
// it whole otherwise.
func openMapped(path string) (*mappedFile, error) {
	//nolint:gosec // G304: weight paths come from the caller by design
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open weight file")
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat weight file")
	}
	if stat.Size() == 0 {
		return &mappedFile{release: func() error { return nil }}, nil
	}

	data, release, err := mmapFile(f, stat.Size())
	if err != nil {
		return nil, errors.Wrap(err, "mmap failed")
	}
	return &mappedFile{data: data, release: release}, nil
}

// Close releases the mapping.
func (m *mappedFile) Close() error {
	if m.release == nil {
		return nil
	}
	err := m.release()
	m.data, m.release = nil, nil
	return err
}
