package weights

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/born-ml/blobnet/internal/tensor"
)

func sampleLayers(t *testing.T) []LayerBlobs {
	t.Helper()
	w, err := tensor.FromFloat32([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)
	b, err := tensor.FromFloat32([]float32{0.5, -0.5}, tensor.Shape{2})
	require.NoError(t, err)
	w2, err := tensor.FromFloat32([]float32{7}, tensor.Shape{1, 1})
	require.NoError(t, err)
	return []LayerBlobs{
		{Name: "fc1", Type: "InnerProduct", Blobs: []*tensor.RawTensor{w, b}},
		{Name: "fc2", Type: "InnerProduct", Blobs: []*tensor.RawTensor{w2}},
	}
}

func assertSameLayers(t *testing.T, want, got []LayerBlobs) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.Equal(t, want[i].Type, got[i].Type)
		require.Len(t, got[i].Blobs, len(want[i].Blobs))
		for j := range want[i].Blobs {
			assert.Equal(t, want[i].Blobs[j].Shape(), got[i].Blobs[j].Shape())
			assert.Equal(t, want[i].Blobs[j].Data(), got[i].Blobs[j].Data())
		}
	}
}

func TestCaffeModel_RoundTrip(t *testing.T) {
	layers := sampleLayers(t)
	data, err := EncodeCaffeModel("lenet", layers)
	require.NoError(t, err)

	name, got, err := DecodeCaffeModel(data)
	require.NoError(t, err)
	assert.Equal(t, "lenet", name)
	assertSameLayers(t, layers, got)
	assert.False(t, got[0].LegacyShapes)
}

func TestCaffeModel_ScalarBlob(t *testing.T) {
	scalar, err := tensor.FromFloat32([]float32{2.5}, tensor.Shape{})
	require.NoError(t, err)
	data, err := EncodeCaffeModel("", []LayerBlobs{{Name: "s", Blobs: []*tensor.RawTensor{scalar}}})
	require.NoError(t, err)

	_, got, err := DecodeCaffeModel(data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, tensor.Shape{}, got[0].Blobs[0].Shape())
	assert.Equal(t, []float32{2.5}, got[0].Blobs[0].AsFloat32())
}

// legacyBlob hand-encodes a BlobProto with num/channels/height/width and
// unpacked float data.
func legacyBlob(dims [4]int, values ...float32) []byte {
	var b []byte
	for i, d := range dims {
		b = protowire.AppendTag(b, protowire.Number(i+1), protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(d))
	}
	for _, v := range values {
		b = protowire.AppendTag(b, blobData, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(v))
	}
	return b
}

func TestCaffeModel_LegacyLayers(t *testing.T) {
	var layer []byte
	layer = protowire.AppendTag(layer, legacyLayerName, protowire.BytesType)
	layer = protowire.AppendString(layer, "conv1")
	layer = protowire.AppendTag(layer, legacyLayerBlobs, protowire.BytesType)
	layer = protowire.AppendBytes(layer, legacyBlob([4]int{1, 1, 1, 2}, 3, 4))
	// An unknown varint field must be skipped.
	layer = protowire.AppendTag(layer, 99, protowire.VarintType)
	layer = protowire.AppendVarint(layer, 5)

	var msg []byte
	msg = protowire.AppendTag(msg, netLegacyLayer, protowire.BytesType)
	msg = protowire.AppendBytes(msg, layer)

	_, got, err := DecodeCaffeModel(msg)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "conv1", got[0].Name)
	assert.True(t, got[0].LegacyShapes)
	assert.Equal(t, tensor.Shape{1, 1, 1, 2}, got[0].Blobs[0].Shape())
	assert.Equal(t, []float32{3, 4}, got[0].Blobs[0].AsFloat32())
}

func TestCaffeModel_DoubleData(t *testing.T) {
	var dims []byte
	dims = protowire.AppendVarint(dims, 2)
	var shape []byte
	shape = protowire.AppendTag(shape, shapeDim, protowire.BytesType)
	shape = protowire.AppendBytes(shape, dims)

	packed := make([]byte, 16)
	binary.LittleEndian.PutUint64(packed[0:], math.Float64bits(1.5))
	binary.LittleEndian.PutUint64(packed[8:], math.Float64bits(-2))

	var blob []byte
	blob = protowire.AppendTag(blob, blobShape, protowire.BytesType)
	blob = protowire.AppendBytes(blob, shape)
	blob = protowire.AppendTag(blob, blobDoubleData, protowire.BytesType)
	blob = protowire.AppendBytes(blob, packed)

	raw, legacy, err := decodeBlob(blob)
	require.NoError(t, err)
	assert.False(t, legacy)
	assert.Equal(t, tensor.Float64, raw.DType())
	assert.Equal(t, []float64{1.5, -2}, raw.AsFloat64())
}

func TestCaffeModel_Malformed(t *testing.T) {
	_, _, err := DecodeCaffeModel([]byte{0xff})
	assert.Error(t, err)

	// Shape says 3 elements but only 2 values follow.
	var dims []byte
	dims = protowire.AppendVarint(dims, 3)
	var shape []byte
	shape = protowire.AppendTag(shape, shapeDim, protowire.BytesType)
	shape = protowire.AppendBytes(shape, dims)
	var blob []byte
	blob = protowire.AppendTag(blob, blobShape, protowire.BytesType)
	blob = protowire.AppendBytes(blob, shape)
	blob = protowire.AppendTag(blob, blobData, protowire.BytesType)
	blob = protowire.AppendBytes(blob, make([]byte, 8))
	_, _, err = decodeBlob(blob)
	assert.ErrorIs(t, err, tensor.ErrCountMismatch)
}

func TestBorn_RoundTrip(t *testing.T) {
	layers := sampleLayers(t)
	data, err := EncodeBorn(layers, map[string]string{"net": "lenet"})
	require.NoError(t, err)

	got, header, err := DecodeBorn(data)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, header.FormatVersion)
	assert.Equal(t, "lenet", header.Metadata["net"])
	assert.Len(t, header.Tensors, 3)
	assert.Equal(t, "fc1.1", header.Tensors[1].Name)
	assertSameLayers(t, layers, got)
}

func TestBorn_DataIsAligned(t *testing.T) {
	data, err := EncodeBorn(sampleLayers(t), nil)
	require.NoError(t, err)
	headerSize := int(binary.LittleEndian.Uint64(data[16:24]))
	dataSize := int(binary.LittleEndian.Uint64(data[24:32]))
	start := FixedHeaderSize + headerSize
	start += padding(start)
	assert.Zero(t, start%HeaderAlignment)
	assert.Equal(t, len(data), start+dataSize)
}

func TestBorn_Corruption(t *testing.T) {
	data, err := EncodeBorn(sampleLayers(t), nil)
	require.NoError(t, err)

	t.Run("checksum", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[len(bad)-1] ^= 0xff
		_, _, err := DecodeBorn(bad)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})
	t.Run("magic", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		copy(bad, "NOPE")
		_, _, err := DecodeBorn(bad)
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})
	t.Run("truncated", func(t *testing.T) {
		_, _, err := DecodeBorn(data[:len(data)-4])
		assert.ErrorIs(t, err, ErrTruncated)
	})
	t.Run("empty index cut inside padding", func(t *testing.T) {
		empty, err := EncodeBorn(nil, nil)
		require.NoError(t, err)
		headerEnd := FixedHeaderSize + int(binary.LittleEndian.Uint64(empty[16:24]))
		if padding(headerEnd) == 0 {
			t.Skip("header happens to end on an alignment boundary")
		}
		_, _, err = DecodeBorn(empty[:headerEnd])
		assert.ErrorIs(t, err, ErrTruncated)
	})
	t.Run("version", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		binary.LittleEndian.PutUint32(bad[4:8], 9)
		_, _, err := DecodeBorn(bad)
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})
}

func TestValidateTensorOffsets(t *testing.T) {
	tests := []struct {
		name    string
		tensors []TensorMeta
		kind    string
	}{
		{"ok", []TensorMeta{{Name: "a", Size: 4}, {Name: "b", Offset: 4, Size: 4}}, ""},
		{"overlap", []TensorMeta{{Name: "a", Size: 8}, {Name: "b", Offset: 4, Size: 4}}, "offset_overlap"},
		{"out of bounds", []TensorMeta{{Name: "a", Offset: 4, Size: 8}}, "out_of_bounds"},
		{"negative", []TensorMeta{{Name: "a", Offset: -1, Size: 1}}, "negative_offset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTensorOffsets(tt.tensors, 8)
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.kind, verr.Type)
		})
	}
}

func TestReadWriteFile(t *testing.T) {
	layers := sampleLayers(t)
	dir := t.TempDir()

	for _, name := range []string{"w.caffemodel", "w.born"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, WriteFile(path, "lenet", layers))
			got, err := ReadFile(path)
			require.NoError(t, err)
			assertSameLayers(t, layers, got)
		})
	}
}

func TestReadFile_SniffsUnknownExtension(t *testing.T) {
	data, err := EncodeBorn(sampleLayers(t), nil)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "weights.bin")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestWriteFile_UnknownExtension(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "w.txt"), "n", sampleLayers(t))
	assert.Error(t, err)
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatCaffe, FormatForPath("a/b.caffemodel"))
	assert.Equal(t, FormatCaffe, FormatForPath("mean.BINARYPROTO"))
	assert.Equal(t, FormatBorn, FormatForPath("x.born"))
	assert.Equal(t, FormatUnknown, FormatForPath("x"))
}

func TestOpenMapped(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("BORN-mapped"), 0o600))
	m, err := openMapped(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("BORN-mapped"), m.data)
	require.NoError(t, m.Close())
	assert.Nil(t, m.data)
	require.NoError(t, m.Close())

	empty := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	m, err = openMapped(empty)
	require.NoError(t, err)
	assert.Empty(t, m.data)
	require.NoError(t, m.Close())

	_, err = openMapped(filepath.Join(dir, "missing.bin"))
	assert.Error(t, err)
}

func TestReadFile_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.born")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	_, err := ReadFile(path)
	assert.ErrorIs(t, err, ErrTruncated)
}
