package tensor

import (
	"errors"
	"fmt"
	"math"
	"unsafe"
)

// ErrCountMismatch is returned by CopyFrom and ShareData when element counts differ.
var ErrCountMismatch = errors.New("element count mismatch")

// RawTensor is a typed N-d storage slot.
//
// Storage grows monotonically: Reshape reallocates only when the new shape
// needs more bytes than the current capacity, so views obtained before a
// shrinking reshape stay backed by the same memory. Callers must not keep views
// across a growing reshape.
type RawTensor struct {
	data   []byte // len(data) is the capacity in bytes
	shape  Shape
	stride []int
	count  int // 0 until the first Reshape
	dtype  DataType
}

// New creates an empty tensor with no shape and no storage.
// The graph creates blobs this way and lets layer setup size them.
func New(dtype DataType) *RawTensor {
	return &RawTensor{dtype: dtype}
}

// NewRaw creates a zero-filled tensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	r := New(dtype)
	if err := r.Reshape(shape); err != nil {
		return nil, err
	}
	return r, nil
}

// FromFloat32 creates a float32 tensor holding a copy of data.
func FromFloat32(data []float32, shape Shape) (*RawTensor, error) {
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrCountMismatch, len(data), []int(shape))
	}
	r, err := NewRaw(shape, Float32)
	if err != nil {
		return nil, err
	}
	copy(r.AsFloat32(), data)
	return r, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// NumElements returns the total number of elements (0 for an unshaped tensor).
func (r *RawTensor) NumElements() int {
	return r.count
}

// ByteSize returns the size of the live region in bytes.
func (r *RawTensor) ByteSize() int {
	return r.count * r.dtype.Size()
}

// Capacity returns the allocated size in bytes.
func (r *RawTensor) Capacity() int {
	return len(r.data)
}

// Data returns the live region as raw bytes.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	return r.data[:r.ByteSize()]
}

// ShapeString formats the shape as "2 3 4 (24)".
func (r *RawTensor) ShapeString() string {
	return r.shape.String()
}

// Reshape changes the shape, growing storage only if needed.
func (r *RawTensor) Reshape(shape Shape) error {
	if err := shape.Validate(); err != nil {
		return fmt.Errorf("invalid shape: %w", err)
	}
	count := shape.NumElements()
	if count > math.MaxInt32 {
		return fmt.Errorf("blob size %d exceeds INT_MAX", count)
	}
	r.shape = shape.Clone()
	r.stride = r.shape.ComputeStrides()
	r.count = count
	if need := count * r.dtype.Size(); need > len(r.data) {
		r.data = make([]byte, need)
	}
	return nil
}

// ReshapeLike gives r the same shape as other.
func (r *RawTensor) ReshapeLike(other *RawTensor) error {
	return r.Reshape(other.shape)
}

// CopyFrom copies src's contents into r. With reshape=false the element
// counts must already agree; with reshape=true r takes src's shape first.
func (r *RawTensor) CopyFrom(src *RawTensor, reshape bool) error {
	if src.dtype != r.dtype {
		return fmt.Errorf("cannot copy %s data into %s tensor", src.dtype, r.dtype)
	}
	if src.count != r.count || !src.shape.Equal(r.shape) {
		if !reshape {
			if src.count != r.count {
				return fmt.Errorf("%w: source %s, target %s", ErrCountMismatch, src.ShapeString(), r.ShapeString())
			}
		} else if err := r.ReshapeLike(src); err != nil {
			return err
		}
	}
	copy(r.Data(), src.Data())
	return nil
}

// ShareData makes r a view of src's storage. The counts must match; r keeps
// its own shape. Used to alias a shared parameter onto its owner.
func (r *RawTensor) ShareData(src *RawTensor) error {
	if src.dtype != r.dtype {
		return fmt.Errorf("cannot share %s data with %s tensor", src.dtype, r.dtype)
	}
	if src.count != r.count {
		return fmt.Errorf("%w: source %s, target %s", ErrCountMismatch, src.ShapeString(), r.ShapeString())
	}
	r.data = src.data
	return nil
}

// SharesData reports whether r and other are backed by the same memory.
func (r *RawTensor) SharesData(other *RawTensor) bool {
	if len(r.data) == 0 || len(other.data) == 0 {
		return false
	}
	return &r.data[0] == &other.data[0]
}

// Clone returns a deep copy with an exactly sized buffer.
func (r *RawTensor) Clone() *RawTensor {
	c := &RawTensor{
		data:   make([]byte, r.ByteSize()),
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		count:  r.count,
		dtype:  r.dtype,
	}
	copy(c.data, r.Data())
	return c
}

// Fill sets every element of a float32 tensor to v.
func (r *RawTensor) Fill(v float32) {
	data := r.AsFloat32()
	for i := range data {
		data[i] = v
	}
}

// AsFloat32 interprets the live region as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	if r.count == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by Reshape
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.count)
}

// AsFloat64 interprets the live region as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(fmt.Sprintf("tensor dtype is %s, not float64", r.dtype))
	}
	if r.count == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by Reshape
	return unsafe.Slice((*float64)(unsafe.Pointer(&r.data[0])), r.count)
}

// ToFloat32 returns a float32 copy of a float32 or float64 tensor.
func (r *RawTensor) ToFloat32() (*RawTensor, error) {
	switch r.dtype {
	case Float32:
		return r.Clone(), nil
	case Float64:
		out, err := NewRaw(r.shape, Float32)
		if err != nil {
			return nil, err
		}
		dst := out.AsFloat32()
		for i, v := range r.AsFloat64() {
			dst[i] = float32(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot convert %s tensor to float32", r.dtype)
	}
}
