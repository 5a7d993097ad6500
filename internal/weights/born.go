package weights

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/born-ml/blobnet/internal/tensor"
)

// .born layout constants.
const (
	MagicBytes       = "BORN"
	FormatVersion    = 2
	HeaderAlignment  = 64 // Tensor data starts on a 64-byte boundary
	FixedHeaderSize  = 64
	ChecksumSize     = 32
	ChecksumOffset   = 0x20
	FlagHasMetadata  = uint32(1 << 2)
	producerName     = "blobnet"
	maxHeaderSize    = 100 * 1024 * 1024
	maxTensorCount   = 100_000
	maxTensorNameLen = 4096
)

// Header is the JSON index stored after the fixed header.
type Header struct {
	FormatVersion int               `json:"format_version"`
	Producer      string            `json:"producer"`
	CreatedAt     time.Time         `json:"created_at"`
	Tensors       []TensorMeta      `json:"tensors"`
	Metadata      map[string]string `json:"metadata"`
}

// TensorMeta locates one parameter blob in the data section.
type TensorMeta struct {
	Name   string `json:"name"`  // "<layer>.<index>"
	Layer  string `json:"layer"` // Owning layer name
	Type   string `json:"type,omitempty"`
	Index  int    `json:"index"` // Positional blob index within the layer
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"` // Bytes from the start of the data section
	Size   int64  `json:"size"`
}

// EncodeBorn serializes layers in .born format.
func EncodeBorn(layers []LayerBlobs, metadata map[string]string) ([]byte, error) {
	header := Header{
		FormatVersion: FormatVersion,
		Producer:      producerName,
		CreatedAt:     time.Now().UTC(),
		Metadata:      metadata,
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	var data []byte
	for _, l := range layers {
		for i, blob := range l.Blobs {
			size := int64(blob.ByteSize())
			header.Tensors = append(header.Tensors, TensorMeta{
				Name:   fmt.Sprintf("%s.%d", l.Name, i),
				Layer:  l.Name,
				Type:   l.Type,
				Index:  i,
				DType:  blob.DType().String(),
				Shape:  []int(blob.Shape().Clone()),
				Offset: int64(len(data)),
				Size:   size,
			})
			data = append(data, blob.Data()...)
		}
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal header")
	}
	checksum := sha256.Sum256(data)

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	flags := uint32(0)
	if len(metadata) > 0 {
		flags |= FlagHasMetadata
	}
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	// 0x0C-0x0F reserved
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	var buf bytes.Buffer
	buf.Grow(FixedHeaderSize + len(headerJSON) + HeaderAlignment + len(data))
	buf.Write(fixed)
	buf.Write(headerJSON)
	buf.Write(make([]byte, padding(FixedHeaderSize+len(headerJSON))))
	buf.Write(data)
	return buf.Bytes(), nil
}

func padding(pos int) int {
	return (HeaderAlignment - pos%HeaderAlignment) % HeaderAlignment
}

// DecodeBorn parses a .born file, verifying its checksum and tensor index.
// Layers are returned in first-appearance order.
func DecodeBorn(b []byte) ([]LayerBlobs, Header, error) {
	var header Header
	if len(b) < FixedHeaderSize {
		return nil, header, errors.Wrapf(ErrTruncated, "%d bytes", len(b))
	}
	if string(b[0:4]) != MagicBytes {
		return nil, header, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(b[4:8]); v != FormatVersion {
		return nil, header, errors.Wrapf(ErrUnsupportedVersion, "got %d, expected %d", v, FormatVersion)
	}
	headerSize := binary.LittleEndian.Uint64(b[16:24])
	dataSize := binary.LittleEndian.Uint64(b[24:32])
	if headerSize > maxHeaderSize {
		return nil, header, ErrHeaderTooLarge
	}

	headerEnd := FixedHeaderSize + int(headerSize) //nolint:gosec // G115: bounded by maxHeaderSize
	if headerEnd > len(b) {
		return nil, header, errors.Wrap(ErrTruncated, "header")
	}
	if err := json.Unmarshal(b[FixedHeaderSize:headerEnd], &header); err != nil {
		return nil, header, errors.Wrap(err, "failed to parse header JSON")
	}

	dataStart := headerEnd + padding(headerEnd)
	if dataStart > len(b) || uint64(len(b)-dataStart) < dataSize {
		return nil, header, errors.Wrap(ErrTruncated, "data section")
	}
	data := b[dataStart : dataStart+int(dataSize)] //nolint:gosec // G115: checked against len(b)

	var stored [ChecksumSize]byte
	copy(stored[:], b[ChecksumOffset:ChecksumOffset+ChecksumSize])
	if sha256.Sum256(data) != stored {
		return nil, header, ErrChecksumMismatch
	}
	if err := ValidateHeader(&header, int64(len(data))); err != nil {
		return nil, header, err
	}

	var layers []LayerBlobs
	index := make(map[string]int)
	for _, meta := range header.Tensors {
		dtype, ok := tensor.ParseDataType(meta.DType)
		if !ok {
			return nil, header, errors.Errorf("tensor %q: unsupported dtype %q", meta.Name, meta.DType)
		}
		raw, err := tensor.NewRaw(tensor.Shape(meta.Shape), dtype)
		if err != nil {
			return nil, header, errors.Wrapf(err, "tensor %q", meta.Name)
		}
		if int64(raw.ByteSize()) != meta.Size {
			return nil, header, &ValidationError{
				Type:    "size_mismatch",
				Tensor:  meta.Name,
				Details: fmt.Sprintf("shape %v needs %d bytes, index says %d", meta.Shape, raw.ByteSize(), meta.Size),
			}
		}
		copy(raw.Data(), data[meta.Offset:meta.Offset+meta.Size])

		li, seen := index[meta.Layer]
		if !seen {
			li = len(layers)
			index[meta.Layer] = li
			layers = append(layers, LayerBlobs{Name: meta.Layer, Type: meta.Type})
		}
		if meta.Index != len(layers[li].Blobs) {
			return nil, header, &ValidationError{
				Type:    "index_order",
				Tensor:  meta.Name,
				Details: fmt.Sprintf("blob index %d follows %d blobs", meta.Index, len(layers[li].Blobs)),
			}
		}
		layers[li].Blobs = append(layers[li].Blobs, raw)
	}
	return layers, header, nil
}
