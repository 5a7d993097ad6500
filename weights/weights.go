// Package weights reads and writes trained layer weights.
//
// Two formats are supported and picked by file extension:
//   - .caffemodel (also .binaryproto, .pb): a serialized NetParameter
//   - .born: a fixed header, a JSON tensor index and 64-byte aligned data,
//     protected by a SHA-256 checksum
//
// Example usage:
//
//	import (
//	    "github.com/born-ml/blobnet/net"
//	    "github.com/born-ml/blobnet/weights"
//	)
//
//	layers, err := weights.ReadFile("lenet.caffemodel")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := n.CopyTrainedLayers(layers); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Convert to the native format.
//	err = weights.WriteFile("lenet.born", n.Name(), n.ExportWeights())
package weights

import (
	"github.com/born-ml/blobnet/internal/weights"
)

// LayerBlobs holds the trained blobs of one source layer.
type LayerBlobs = weights.LayerBlobs

// Format identifies a weight file format.
type Format = weights.Format

// Supported formats.
const (
	FormatUnknown Format = weights.FormatUnknown
	FormatCaffe   Format = weights.FormatCaffe
	FormatBorn    Format = weights.FormatBorn
)

// Header is the decoded .born file header.
type Header = weights.Header

// ValidationError describes an inconsistent .born tensor index.
type ValidationError = weights.ValidationError

// Decoding errors.
var (
	ErrMalformedProto     = weights.ErrMalformedProto
	ErrChecksumMismatch   = weights.ErrChecksumMismatch
	ErrInvalidMagic       = weights.ErrInvalidMagic
	ErrUnsupportedVersion = weights.ErrUnsupportedVersion
	ErrHeaderTooLarge     = weights.ErrHeaderTooLarge
	ErrTruncated          = weights.ErrTruncated
)

// FormatForPath picks a format from a file extension.
func FormatForPath(path string) Format {
	return weights.FormatForPath(path)
}

// ReadFile reads a weight file. When the extension is not recognized the
// content is sniffed for the .born magic bytes.
//
// Example:
//
//	layers, err := weights.ReadFile("model.born")
//	for _, l := range layers {
//	    fmt.Println(l.Name, len(l.Blobs))
//	}
func ReadFile(path string) ([]LayerBlobs, error) {
	return weights.ReadFile(path)
}

// WriteFile writes layers in the format implied by path's extension.
func WriteFile(path, netName string, layers []LayerBlobs) error {
	return weights.WriteFile(path, netName, layers)
}

// DecodeCaffeModel parses a serialized NetParameter.
func DecodeCaffeModel(b []byte) (string, []LayerBlobs, error) {
	return weights.DecodeCaffeModel(b)
}

// EncodeCaffeModel serializes layers as a NetParameter.
func EncodeCaffeModel(name string, layers []LayerBlobs) ([]byte, error) {
	return weights.EncodeCaffeModel(name, layers)
}

// DecodeBorn parses a .born file image.
func DecodeBorn(b []byte) ([]LayerBlobs, Header, error) {
	return weights.DecodeBorn(b)
}

// EncodeBorn serializes layers as a .born file image.
func EncodeBorn(layers []LayerBlobs, metadata map[string]string) ([]byte, error) {
	return weights.EncodeBorn(layers, metadata)
}
