package weights

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/born-ml/blobnet/internal/tensor"
)

// Field numbers of the Caffe messages that carry weights. Everything else in
// a NetParameter is skipped.
const (
	netName        protowire.Number = 1
	netLegacyLayer protowire.Number = 2
	netLayer       protowire.Number = 100

	layerName  protowire.Number = 1
	layerType  protowire.Number = 2
	layerBlobs protowire.Number = 7

	legacyLayerName  protowire.Number = 4
	legacyLayerBlobs protowire.Number = 6

	blobNum        protowire.Number = 1
	blobChannels   protowire.Number = 2
	blobHeight     protowire.Number = 3
	blobWidth      protowire.Number = 4
	blobData       protowire.Number = 5
	blobShape      protowire.Number = 7
	blobDoubleData protowire.Number = 8

	shapeDim protowire.Number = 1
)

// ErrMalformedProto is returned for truncated or inconsistent wire data.
var ErrMalformedProto = errors.New("malformed protobuf")

// DecodeCaffeModel decodes a binary NetParameter into its name and the blobs of
// every layer that carries any. Both the current "layer" and the legacy
// "layers" fields are read.
func DecodeCaffeModel(b []byte) (string, []LayerBlobs, error) {
	var (
		name   string
		layers []LayerBlobs
	)
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		switch {
		case num == netName && typ == protowire.BytesType:
			name = string(v)
		case num == netLayer && typ == protowire.BytesType:
			l, err := decodeLayer(v, layerName, layerType, layerBlobs)
			if err != nil {
				return errors.Wrapf(err, "layer %d", len(layers))
			}
			layers = append(layers, l)
		case num == netLegacyLayer && typ == protowire.BytesType:
			l, err := decodeLayer(v, legacyLayerName, 0, legacyLayerBlobs)
			if err != nil {
				return errors.Wrapf(err, "legacy layer %d", len(layers))
			}
			layers = append(layers, l)
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return name, layers, nil
}

func decodeLayer(b []byte, nameField, typeField, blobsField protowire.Number) (LayerBlobs, error) {
	var l LayerBlobs
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case nameField:
			l.Name = string(v)
		case typeField:
			l.Type = string(v)
		case blobsField:
			blob, legacy, err := decodeBlob(v)
			if err != nil {
				return errors.Wrapf(err, "blob %d", len(l.Blobs))
			}
			l.LegacyShapes = l.LegacyShapes || legacy
			l.Blobs = append(l.Blobs, blob)
		}
		return nil
	})
	return l, err
}

// decodeBlob decodes a BlobProto. The second result reports whether the shape
// came from the legacy 4-D fields.
func decodeBlob(b []byte) (*tensor.RawTensor, bool, error) {
	var (
		shape    tensor.Shape
		hasShape bool
		legacy   [4]int
		hasDims  bool
		floats   []float32
		doubles  []float64
	)
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, scalar uint64) error {
		switch num {
		case blobNum, blobChannels, blobHeight, blobWidth:
			if typ != protowire.VarintType {
				return errors.Wrapf(ErrMalformedProto, "field %d: wire type %d", num, typ)
			}
			legacy[num-blobNum] = int(int32(scalar)) //nolint:gosec // G115: proto int32 fields
			hasDims = true
		case blobShape:
			hasShape = true
			return walk(v, func(n protowire.Number, t protowire.Type, pv []byte, s uint64) error {
				if n != shapeDim {
					return nil
				}
				if t == protowire.VarintType {
					shape = append(shape, int(int64(s))) //nolint:gosec // G115: proto int64 dims
					return nil
				}
				for len(pv) > 0 {
					d, k := protowire.ConsumeVarint(pv)
					if k < 0 {
						return errors.Wrap(protowire.ParseError(k), "shape dim")
					}
					shape = append(shape, int(int64(d))) //nolint:gosec // G115: proto int64 dims
					pv = pv[k:]
				}
				return nil
			})
		case blobData:
			var err error
			floats, err = appendFloats(floats, typ, v, scalar)
			return err
		case blobDoubleData:
			var err error
			doubles, err = appendDoubles(doubles, typ, v, scalar)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	usedLegacy := false
	if !hasShape && hasDims {
		shape = tensor.Shape{legacy[0], legacy[1], legacy[2], legacy[3]}
		usedLegacy = true
	}
	switch {
	case !hasShape && !hasDims:
		shape = tensor.Shape{max(len(floats), len(doubles))}
	case shape == nil:
		shape = tensor.Shape{}
	}

	var raw *tensor.RawTensor
	switch {
	case len(doubles) > 0:
		if len(doubles) != shape.NumElements() {
			return nil, false, errors.Wrapf(tensor.ErrCountMismatch, "%d double values for shape %v", len(doubles), []int(shape))
		}
		raw, err = tensor.NewRaw(shape, tensor.Float64)
		if err == nil {
			copy(raw.AsFloat64(), doubles)
		}
	default:
		raw, err = tensor.FromFloat32(floats, shape)
	}
	if err != nil {
		return nil, false, err
	}
	return raw, usedLegacy, nil
}

func appendFloats(dst []float32, typ protowire.Type, v []byte, scalar uint64) ([]float32, error) {
	switch typ {
	case protowire.Fixed32Type:
		return append(dst, math.Float32frombits(uint32(scalar))), nil //nolint:gosec // G115: fixed32 value
	case protowire.BytesType:
		if len(v)%4 != 0 {
			return nil, errors.Wrapf(ErrMalformedProto, "packed float data of %d bytes", len(v))
		}
		for i := 0; i < len(v); i += 4 {
			dst = append(dst, math.Float32frombits(binary.LittleEndian.Uint32(v[i:])))
		}
		return dst, nil
	default:
		return nil, errors.Wrapf(ErrMalformedProto, "float data with wire type %d", typ)
	}
}

func appendDoubles(dst []float64, typ protowire.Type, v []byte, scalar uint64) ([]float64, error) {
	switch typ {
	case protowire.Fixed64Type:
		return append(dst, math.Float64frombits(scalar)), nil
	case protowire.BytesType:
		if len(v)%8 != 0 {
			return nil, errors.Wrapf(ErrMalformedProto, "packed double data of %d bytes", len(v))
		}
		for i := 0; i < len(v); i += 8 {
			dst = append(dst, math.Float64frombits(binary.LittleEndian.Uint64(v[i:])))
		}
		return dst, nil
	default:
		return nil, errors.Wrapf(ErrMalformedProto, "double data with wire type %d", typ)
	}
}

// walk calls fn for every field of a message. Length-delimited fields pass
// their payload in v; varint and fixed fields pass their value in scalar.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, scalar uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "tag")
		}
		b = b[n:]

		var (
			v      []byte
			scalar uint64
		)
		switch typ {
		case protowire.VarintType:
			scalar, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var x uint32
			x, n = protowire.ConsumeFixed32(b)
			scalar = uint64(x)
		case protowire.Fixed64Type:
			scalar, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			v, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return errors.Wrapf(protowire.ParseError(n), "field %d", num)
		}
		b = b[n:]

		if err := fn(num, typ, v, scalar); err != nil {
			return err
		}
	}
	return nil
}

// EncodeCaffeModel encodes layers as a binary NetParameter using the current
// "layer" field and explicit blob shapes. float64 blobs go to double_data.
func EncodeCaffeModel(name string, layers []LayerBlobs) ([]byte, error) {
	var b []byte
	if name != "" {
		b = protowire.AppendTag(b, netName, protowire.BytesType)
		b = protowire.AppendString(b, name)
	}
	for _, l := range layers {
		var lb []byte
		lb = protowire.AppendTag(lb, layerName, protowire.BytesType)
		lb = protowire.AppendString(lb, l.Name)
		if l.Type != "" {
			lb = protowire.AppendTag(lb, layerType, protowire.BytesType)
			lb = protowire.AppendString(lb, l.Type)
		}
		for i, blob := range l.Blobs {
			bb, err := encodeBlob(blob)
			if err != nil {
				return nil, errors.Wrapf(err, "layer %q blob %d", l.Name, i)
			}
			lb = protowire.AppendTag(lb, layerBlobs, protowire.BytesType)
			lb = protowire.AppendBytes(lb, bb)
		}
		b = protowire.AppendTag(b, netLayer, protowire.BytesType)
		b = protowire.AppendBytes(b, lb)
	}
	return b, nil
}

func encodeBlob(t *tensor.RawTensor) ([]byte, error) {
	var dims []byte
	for _, d := range t.Shape() {
		dims = protowire.AppendVarint(dims, uint64(int64(d))) //nolint:gosec // G115: dims are non-negative
	}
	var shape []byte
	shape = protowire.AppendTag(shape, shapeDim, protowire.BytesType)
	shape = protowire.AppendBytes(shape, dims)

	var b []byte
	b = protowire.AppendTag(b, blobShape, protowire.BytesType)
	b = protowire.AppendBytes(b, shape)

	switch t.DType() {
	case tensor.Float32:
		b = protowire.AppendTag(b, blobData, protowire.BytesType)
	case tensor.Float64:
		b = protowire.AppendTag(b, blobDoubleData, protowire.BytesType)
	default:
		return nil, errors.Errorf("cannot encode %s blob", t.DType())
	}
	// Packed fixed-width values are little-endian, the same layout as the tensor.
	return protowire.AppendBytes(b, t.Data()), nil
}
