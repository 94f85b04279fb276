// Package matrixvm implements the small CPU-side matrix operation VM used
// by pipeline nodes for pose/transform math: a column-major strided matrix
// type plus a stateless, op-code-dispatched interpreter over it.
package matrixvm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidShape is returned when a matrix's dimensions violate the
// stride >= rows invariant, or when an operation's operands have
// incompatible shapes.
var ErrInvalidShape = errors.New("matrixvm: invalid matrix shape")

// DType identifies the element encoding a Matrix's backing storage would
// use on the wire; all in-memory computation happens in float64 regardless
// of DType, matching the precision the reference GPU kernels compute in.
type DType int

const (
	Float32 DType = iota
	Float64
	Int32
	Uint8
)

func (d DType) byteSize() int {
	switch d {
	case Float32, Int32:
		return 4
	case Float64:
		return 8
	case Uint8:
		return 1
	default:
		return 0
	}
}

// Matrix is a column-major, strided 2D array: element (r, c) lives at
// Data[c*Stride+r]. Stride may exceed Rows, leaving padding rows at the
// bottom of each column untouched by operations.
type Matrix struct {
	Rows, Columns, Stride int
	DType                 DType
	Data                  []float64
}

// New allocates a zeroed matrix. stride must be >= rows.
func New(rows, columns, stride int, dtype DType) (*Matrix, error) {
	if rows <= 0 || columns <= 0 {
		return nil, fmt.Errorf("%w: rows=%d columns=%d must be positive", ErrInvalidShape, rows, columns)
	}
	if stride < rows {
		return nil, fmt.Errorf("%w: stride=%d must be >= rows=%d", ErrInvalidShape, stride, rows)
	}
	return &Matrix{
		Rows: rows, Columns: columns, Stride: stride, DType: dtype,
		Data: make([]float64, stride*columns),
	}, nil
}

func (m *Matrix) index(r, c int) int { return c*m.Stride + r }

// At returns the element at (r, c).
func (m *Matrix) At(r, c int) float64 { return m.Data[m.index(r, c)] }

// Set writes the element at (r, c).
func (m *Matrix) Set(r, c int, v float64) { m.Data[m.index(r, c)] = v }

// SameShape reports whether m and other have equal Rows and Columns
// (Stride and DType may differ).
func (m *Matrix) SameShape(other *Matrix) bool {
	return m.Rows == other.Rows && m.Columns == other.Columns
}

// clampToDType rounds and saturates v to what DType could represent on the
// wire, without changing the in-memory float64 representation. Operations
// call this before writing results so a matrix that round-trips through an
// integer DType behaves consistently regardless of which op produced it.
func clampToDType(v float64, dtype DType) float64 {
	switch dtype {
	case Int32:
		v = math.Round(v)
		if v > math.MaxInt32 {
			return math.MaxInt32
		}
		if v < math.MinInt32 {
			return math.MinInt32
		}
		return v
	case Uint8:
		v = math.Round(v)
		if v > 255 {
			return 255
		}
		if v < 0 {
			return 0
		}
		return v
	default:
		return v
	}
}

// EncodeBytes serializes the matrix's Rows*Columns logical elements
// (ignoring stride padding) in column-major order using DType's wire
// encoding, little-endian.
func (m *Matrix) EncodeBytes() []byte {
	out := make([]byte, m.Rows*m.Columns*m.DType.byteSize())
	i := 0
	for c := 0; c < m.Columns; c++ {
		for r := 0; r < m.Rows; r++ {
			v := clampToDType(m.At(r, c), m.DType)
			switch m.DType {
			case Float32:
				binary.LittleEndian.PutUint32(out[i:], math.Float32bits(float32(v)))
				i += 4
			case Float64:
				binary.LittleEndian.PutUint64(out[i:], math.Float64bits(v))
				i += 8
			case Int32:
				binary.LittleEndian.PutUint32(out[i:], uint32(int32(v)))
				i += 4
			case Uint8:
				out[i] = uint8(v)
				i++
			}
		}
	}
	return out
}

// DecodeBytes deserializes a matrix previously written by EncodeBytes.
// The result has Stride == rows (no padding).
func DecodeBytes(rows, columns int, dtype DType, data []byte) (*Matrix, error) {
	m, err := New(rows, columns, rows, dtype)
	if err != nil {
		return nil, err
	}
	want := rows * columns * dtype.byteSize()
	if len(data) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidShape, len(data), want)
	}
	i := 0
	for c := 0; c < columns; c++ {
		for r := 0; r < rows; r++ {
			var v float64
			switch dtype {
			case Float32:
				v = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i:])))
				i += 4
			case Float64:
				v = math.Float64frombits(binary.LittleEndian.Uint64(data[i:]))
				i += 8
			case Int32:
				v = float64(int32(binary.LittleEndian.Uint32(data[i:])))
				i += 4
			case Uint8:
				v = float64(data[i])
				i++
			}
			m.Set(r, c, v)
		}
	}
	return m, nil
}
