package fits

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
)

// BitPix is the FITS data type code.
type BitPix int

const (
	BitPixUint8   BitPix = 8
	BitPixInt16   BitPix = 16
	BitPixInt32   BitPix = 32
	BitPixInt64   BitPix = 64
	BitPixFloat32 BitPix = -32
	BitPixFloat64 BitPix = -64
)

// Valid reports whether b is one of the six standard codes.
func (b BitPix) Valid() bool {
	switch b {
	case BitPixUint8, BitPixInt16, BitPixInt32, BitPixInt64, BitPixFloat32, BitPixFloat64:
		return true
	}
	return false
}

// Size returns the element size in bytes.
func (b BitPix) Size() int {
	if b < 0 {
		return int(-b) / 8
	}
	return int(b) / 8
}

// IsFloat reports whether b stores IEEE floats.
func (b BitPix) IsFloat() bool { return b < 0 }

const (
	uint16Zero = 1 << 15
	uint32Zero = 1 << 31
)

// Element is the set of Go types an image array can hold.
// Unsigned 16 and 32-bit values use the BZERO offset convention; bool is
// stored as bytes 0/1.
type Element interface {
	bool | uint8 | int16 | uint16 | int32 | uint32 | int64 | float32 | float64
}

type number interface {
	uint8 | int16 | uint16 | int32 | uint32 | int64 | float32 | float64
}

// Array is an N-dimensional array in row-major order: Shape[0] is the
// slowest varying axis (NAXISn) and Shape[len-1] the fastest (NAXIS1).
type Array[T Element] struct {
	Shape []int
	Data  []T
}

// NewArray validates that data has exactly prod(shape) elements.
func NewArray[T Element](shape []int, data []T) (*Array[T], error) {
	if len(shape) == 0 {
		return nil, fmt.Errorf("%w: empty shape", ErrShape)
	}
	n, err := numElements(shape)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: shape %v needs %d elements, got %d", ErrShape, shape, n, len(data))
	}
	return &Array[T]{Shape: slices.Clone(shape), Data: data}, nil
}

// Zeros allocates an array of the given shape.
func Zeros[T Element](shape ...int) *Array[T] {
	n, err := numElements(shape)
	if err != nil {
		panic(err)
	}
	return &Array[T]{Shape: slices.Clone(shape), Data: make([]T, n)}
}

// Len returns the number of elements.
func (a *Array[T]) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Data)
}

// Clone returns a deep copy.
func (a *Array[T]) Clone() *Array[T] {
	if a == nil {
		return nil
	}
	return &Array[T]{Shape: slices.Clone(a.Shape), Data: slices.Clone(a.Data)}
}

// Equal reports whether a and b have the same shape and elements.
func (a *Array[T]) Equal(b *Array[T]) bool {
	if a == nil || b == nil {
		return a == b
	}
	return slices.Equal(a.Shape, b.Shape) && slices.Equal(a.Data, b.Data)
}

// SameShape reports whether two shapes are identical.
func SameShape(a, b []int) bool { return slices.Equal(a, b) }

// encodeArray returns the storage code, the BZERO offset (0 when none is
// needed) and the big-endian payload of a.
func encodeArray[T Element](a *Array[T]) (BitPix, int64, []byte) {
	be := binary.BigEndian
	switch d := any(a.Data).(type) {
	case []bool:
		out := make([]byte, len(d))
		for i, v := range d {
			if v {
				out[i] = 1
			}
		}
		return BitPixUint8, 0, out
	case []uint8:
		return BitPixUint8, 0, slices.Clone(d)
	case []int16:
		out := make([]byte, 2*len(d))
		for i, v := range d {
			be.PutUint16(out[2*i:], uint16(v))
		}
		return BitPixInt16, 0, out
	case []uint16:
		out := make([]byte, 2*len(d))
		for i, v := range d {
			be.PutUint16(out[2*i:], v^uint16Zero)
		}
		return BitPixInt16, uint16Zero, out
	case []int32:
		out := make([]byte, 4*len(d))
		for i, v := range d {
			be.PutUint32(out[4*i:], uint32(v))
		}
		return BitPixInt32, 0, out
	case []uint32:
		out := make([]byte, 4*len(d))
		for i, v := range d {
			be.PutUint32(out[4*i:], v^uint32Zero)
		}
		return BitPixInt32, uint32Zero, out
	case []int64:
		out := make([]byte, 8*len(d))
		for i, v := range d {
			be.PutUint64(out[8*i:], uint64(v))
		}
		return BitPixInt64, 0, out
	case []float32:
		out := make([]byte, 4*len(d))
		for i, v := range d {
			be.PutUint32(out[4*i:], math.Float32bits(v))
		}
		return BitPixFloat32, 0, out
	case []float64:
		out := make([]byte, 8*len(d))
		for i, v := range d {
			be.PutUint64(out[8*i:], math.Float64bits(v))
		}
		return BitPixFloat64, 0, out
	}
	panic("fits: unreachable element type")
}

// ReadArray converts the data of an image HDU to an array of T, applying
// BZERO/BSCALE. Integer targets require integral scaling; bool targets are
// true for every non-zero pixel.
func ReadArray[T Element](h *HDU) (*Array[T], error) {
	if h == nil {
		return nil, ErrHDUNotFound
	}
	if !h.IsImage() {
		return nil, fmt.Errorf("%w: HDU %d is not an image", ErrUnsupportedHDU, h.Index)
	}
	bp := h.BitPix()
	if !bp.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitPix, bp)
	}
	shape := h.Shape()
	n, err := numElements(shape)
	if err != nil {
		return nil, err
	}
	if n > len(h.Data)/bp.Size() {
		return nil, fmt.Errorf("%w: HDU %d data truncated", ErrCorruptFile, h.Index)
	}

	bzero, bscale := h.scaling()
	out := make([]T, n)
	integral := !bp.IsFloat() && bscale == 1 && bzero == math.Trunc(bzero) && math.Abs(bzero) <= 1<<62
	if integral {
		vals := decodeInts(bp, h.Data, n)
		off := int64(bzero)
		if off != 0 {
			for i := range vals {
				vals[i] += off
			}
		}
		castInto(out, vals)
	} else {
		vals := decodeFloats(bp, h.Data, n)
		if bzero != 0 || bscale != 1 {
			for i := range vals {
				vals[i] = bzero + bscale*vals[i]
			}
		}
		castInto(out, vals)
	}
	return &Array[T]{Shape: shape, Data: out}, nil
}

func decodeInts(bp BitPix, raw []byte, n int) []int64 {
	be := binary.BigEndian
	out := make([]int64, n)
	switch bp {
	case BitPixUint8:
		for i := range out {
			out[i] = int64(raw[i])
		}
	case BitPixInt16:
		for i := range out {
			out[i] = int64(int16(be.Uint16(raw[2*i:])))
		}
	case BitPixInt32:
		for i := range out {
			out[i] = int64(int32(be.Uint32(raw[4*i:])))
		}
	case BitPixInt64:
		for i := range out {
			out[i] = int64(be.Uint64(raw[8*i:]))
		}
	}
	return out
}

func decodeFloats(bp BitPix, raw []byte, n int) []float64 {
	be := binary.BigEndian
	switch bp {
	case BitPixFloat32:
		out := make([]float64, n)
		for i := range out {
			out[i] = float64(math.Float32frombits(be.Uint32(raw[4*i:])))
		}
		return out
	case BitPixFloat64:
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(be.Uint64(raw[8*i:]))
		}
		return out
	}
	ints := decodeInts(bp, raw, n)
	out := make([]float64, n)
	for i, v := range ints {
		out[i] = float64(v)
	}
	return out
}

func castInto[T Element, S int64 | float64](dst []T, src []S) {
	switch d := any(dst).(type) {
	case []bool:
		for i, v := range src {
			d[i] = v != 0
		}
	case []uint8:
		castSlice(d, src)
	case []int16:
		castSlice(d, src)
	case []uint16:
		castSlice(d, src)
	case []int32:
		castSlice(d, src)
	case []uint32:
		castSlice(d, src)
	case []int64:
		castSlice(d, src)
	case []float32:
		castSlice(d, src)
	case []float64:
		castSlice(d, src)
	}
}

func castSlice[D number, S int64 | float64](dst []D, src []S) {
	for i, v := range src {
		dst[i] = D(v)
	}
}
