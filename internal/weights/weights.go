// Package weights reads and writes per-layer parameter blobs.
//
// Two on-disk formats are supported:
//   - Caffe binary NetParameter files (.caffemodel, .binaryproto), decoded
//     directly from the protobuf wire format
//   - .born files: a 64-byte fixed header with a SHA-256 checksum of the data
//     section, a JSON tensor index and 64-byte aligned raw tensor data
//
// Both decode into []LayerBlobs: one entry per layer, blobs in positional order.
package weights

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/blobnet/internal/tensor"
)

// LayerBlobs holds the parameter blobs of one named layer.
type LayerBlobs struct {
	Name  string
	Type  string
	Blobs []*tensor.RawTensor

	// LegacyShapes is set when the source described blobs with the
	// num/channels/height/width fields instead of an explicit shape.
	LegacyShapes bool
}

// Format identifies a weight file encoding.
type Format int

// Supported formats.
const (
	FormatUnknown Format = iota
	FormatCaffe
	FormatBorn
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatCaffe:
		return "caffemodel"
	case FormatBorn:
		return "born"
	default:
		return "unknown"
	}
}

// FormatForPath picks a format from a file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".caffemodel", ".binaryproto", ".pb":
		return FormatCaffe
	case ".born":
		return FormatBorn
	default:
		return FormatUnknown
	}
}

// ReadFile loads all layers from path. The format is chosen by extension,
// falling back to the magic bytes for unknown extensions.
func ReadFile(path string) ([]LayerBlobs, error) {
	m, err := openMapped(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()
	data := m.data

	format := FormatForPath(path)
	if format == FormatUnknown {
		format = FormatCaffe
		if bytes.HasPrefix(data, []byte(MagicBytes)) {
			format = FormatBorn
		}
	}

	var layers []LayerBlobs
	switch format {
	case FormatBorn:
		layers, _, err = DecodeBorn(data)
	default:
		_, layers, err = DecodeCaffeModel(data)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s: decode %s", path, format)
	}
	return layers, nil
}

// WriteFile stores layers at path in the format implied by its extension.
func WriteFile(path, netName string, layers []LayerBlobs) error {
	var (
		data []byte
		err  error
	)
	switch FormatForPath(path) {
	case FormatCaffe:
		data, err = EncodeCaffeModel(netName, layers)
	case FormatBorn:
		data, err = EncodeBorn(layers, map[string]string{"net": netName})
	default:
		return errors.Errorf("cannot infer weight format from %q", path)
	}
	if err != nil {
		return err
	}
	//nolint:gosec // G306: weight files are not secrets
	return errors.Wrap(os.WriteFile(path, data, 0o644), "failed to write weight file")
}
