package netspec

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML network document. Unknown keys are rejected so that a
// misspelled field (e.g. "bottoms") fails loudly instead of being ignored.
func Parse(data []byte) (*NetSpec, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a YAML network document from r.
func Decode(r io.Reader) (*NetSpec, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	// An omitted phase means TEST.
	spec := NetSpec{State: RunState{Phase: Test}}
	if err := dec.Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty network document")
		}
		return nil, errors.Wrap(err, "failed to decode network document")
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// LoadFile reads and decodes a YAML network document from path.
func LoadFile(path string) (*NetSpec, error) {
	//nolint:gosec // G304: network documents are user supplied by design
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open network document")
	}
	defer f.Close()

	spec, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return spec, nil
}

// Marshal encodes spec back to YAML.
func Marshal(spec *NetSpec) ([]byte, error) {
	data, err := yaml.Marshal(spec)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode network document")
	}
	return data, nil
}

// validate performs document-level checks that do not depend on graph wiring.
func (n *NetSpec) validate() error {
	seen := make(map[string]int, len(n.Layers))
	for i := range n.Layers {
		l := &n.Layers[i]
		if l.Name == "" {
			return errors.Errorf("layer %d has no name", i)
		}
		if l.Type == "" {
			return errors.Errorf("layer %q has no type", l.Name)
		}
		if prev, dup := seen[l.Name]; dup {
			return errors.Errorf("layer name %q used by layers %d and %d", l.Name, prev, i)
		}
		seen[l.Name] = i
	}
	return nil
}
