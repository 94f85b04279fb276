package matrixvm

import (
	"errors"
	"math"
	"testing"
)

func mustMatrix(t *testing.T, rows, cols int, vals ...float64) *Matrix {
	t.Helper()
	m, err := New(rows, cols, rows, Float64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	i := 0
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			m.Set(r, c, vals[i])
			i++
		}
	}
	return m
}

func TestDispatchAddSub(t *testing.T) {
	a := mustMatrix(t, 2, 2, 1, 2, 3, 4)
	b := mustMatrix(t, 2, 2, 5, 6, 7, 8)
	dst, _ := New(2, 2, 2, Float64)

	if _, err := Dispatch(Instruction{Op: ADD, Dst: dst, A: a, B: b}); err != nil {
		t.Fatalf("ADD: %v", err)
	}
	if dst.At(0, 0) != 6 || dst.At(1, 1) != 12 {
		t.Errorf("ADD result = %v", dst.Data)
	}

	if _, err := Dispatch(Instruction{Op: SUB, Dst: dst, A: b, B: a}); err != nil {
		t.Fatalf("SUB: %v", err)
	}
	if dst.At(0, 0) != 4 {
		t.Errorf("SUB result = %v", dst.Data)
	}
}

func TestDispatchMulIsStandardMatrixProduct(t *testing.T) {
	a := mustMatrix(t, 2, 2, 1, 3, 2, 4) // [[1,2],[3,4]]
	b := mustMatrix(t, 2, 2, 5, 7, 6, 8) // [[5,6],[7,8]]
	dst, _ := New(2, 2, 2, Float64)

	if _, err := Dispatch(Instruction{Op: MUL, Dst: dst, A: a, B: b}); err != nil {
		t.Fatalf("MUL: %v", err)
	}
	want := mustMatrix(t, 2, 2, 19, 43, 22, 50) // [[19,22],[43,50]]
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			if dst.At(r, c) != want.At(r, c) {
				t.Errorf("MUL[%d][%d] = %v, want %v", r, c, dst.At(r, c), want.At(r, c))
			}
		}
	}
}

func TestDispatchMulIdentityIsNoop(t *testing.T) {
	a := mustMatrix(t, 2, 2, 1, 3, 2, 4)
	identity := mustMatrix(t, 2, 2, 1, 0, 0, 1)
	dst, _ := New(2, 2, 2, Float64)

	if _, err := Dispatch(Instruction{Op: MUL, Dst: dst, A: a, B: identity}); err != nil {
		t.Fatalf("MUL: %v", err)
	}
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			if dst.At(r, c) != a.At(r, c) {
				t.Errorf("MUL(A,I)[%d][%d] = %v, want %v", r, c, dst.At(r, c), a.At(r, c))
			}
		}
	}
}

func TestDispatchMulWithPaddedStride(t *testing.T) {
	// stride=4 on logical 2x2 matrices: rows 2-3 of every column are
	// padding that MUL must neither read nor write.
	a, err := New(2, 2, 4, Float64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.Set(0, 0, 1)
	a.Set(1, 0, 3)
	a.Set(0, 1, 2)
	a.Set(1, 1, 4)

	b, err := New(2, 2, 4, Float64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.Set(0, 0, 5)
	b.Set(1, 0, 7)
	b.Set(0, 1, 6)
	b.Set(1, 1, 8)

	dst, err := New(2, 2, 4, Float64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const sentinel = -999.0
	for _, m := range []*Matrix{a, b, dst} {
		for c := 0; c < m.Columns; c++ {
			for r := m.Rows; r < m.Stride; r++ {
				m.Data[c*m.Stride+r] = sentinel
			}
		}
	}

	if _, err := Dispatch(Instruction{Op: MUL, Dst: dst, A: a, B: b}); err != nil {
		t.Fatalf("MUL: %v", err)
	}

	want := [2][2]float64{{19, 22}, {43, 50}}
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			if dst.At(r, c) != want[r][c] {
				t.Errorf("MUL[%d][%d] = %v, want %v", r, c, dst.At(r, c), want[r][c])
			}
		}
	}

	for _, m := range []*Matrix{a, b, dst} {
		for c := 0; c < m.Columns; c++ {
			for r := m.Rows; r < m.Stride; r++ {
				if got := m.Data[c*m.Stride+r]; got != sentinel {
					t.Errorf("padding at column %d row %d = %v, want untouched sentinel %v", c, r, got, sentinel)
				}
			}
		}
	}
}

func TestDispatchMulltIsTransposedMatrixProduct(t *testing.T) {
	// a is 3x2 ([[1,2],[3,4],[5,6]]), b is 3x2; MULLT computes a^T * b,
	// a 2x2 result.
	a := mustMatrix(t, 3, 2, 1, 3, 5, 2, 4, 6)
	b := mustMatrix(t, 3, 2, 7, 9, 11, 8, 10, 12)
	dst, _ := New(2, 2, 2, Float64)

	if _, err := Dispatch(Instruction{Op: MULLT, Dst: dst, A: a, B: b}); err != nil {
		t.Fatalf("MULLT: %v", err)
	}
	want := mustMatrix(t, 2, 2, 89, 116, 98, 128)
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			if dst.At(r, c) != want.At(r, c) {
				t.Errorf("MULLT[%d][%d] = %v, want %v", r, c, dst.At(r, c), want.At(r, c))
			}
		}
	}
}

func TestDispatchMulltEqualsMulOfTranspose(t *testing.T) {
	a := mustMatrix(t, 3, 2, 1, 3, 5, 2, 4, 6)
	b := mustMatrix(t, 3, 2, 7, 9, 11, 8, 10, 12)

	mullt, _ := New(2, 2, 2, Float64)
	if _, err := Dispatch(Instruction{Op: MULLT, Dst: mullt, A: a, B: b}); err != nil {
		t.Fatalf("MULLT: %v", err)
	}

	at, _ := New(2, 3, 2, Float64)
	if _, err := Dispatch(Instruction{Op: TRANSPOSE, Dst: at, A: a}); err != nil {
		t.Fatalf("TRANSPOSE: %v", err)
	}
	mul, _ := New(2, 2, 2, Float64)
	if _, err := Dispatch(Instruction{Op: MUL, Dst: mul, A: at, B: b}); err != nil {
		t.Fatalf("MUL: %v", err)
	}

	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			if mullt.At(r, c) != mul.At(r, c) {
				t.Errorf("MULLT[%d][%d] = %v, want MUL(TRANSPOSE(A),B) = %v", r, c, mullt.At(r, c), mul.At(r, c))
			}
		}
	}
}

func TestDispatchMulrtTransposesRHS(t *testing.T) {
	a := mustMatrix(t, 2, 2, 1, 0, 0, 1) // identity
	b := mustMatrix(t, 3, 2, 1, 2, 3, 4, 5, 6)
	dst, _ := New(2, 3, 2, Float64)

	if _, err := Dispatch(Instruction{Op: MULRT, Dst: dst, A: a, B: b}); err != nil {
		t.Fatalf("MULRT: %v", err)
	}
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			if dst.At(r, c) != b.At(c, r) {
				t.Errorf("MULRT[%d][%d] = %v, want %v", r, c, dst.At(r, c), b.At(c, r))
			}
		}
	}
}

func TestDispatchDeterminant2x2(t *testing.T) {
	a := mustMatrix(t, 2, 2, 4, 2, 7, 6)
	got, err := Dispatch(Instruction{Op: DETERMINANT2X2, A: a})
	if err != nil {
		t.Fatalf("DETERMINANT2X2: %v", err)
	}
	if got != 10 {
		t.Errorf("det = %v, want 10", got)
	}
}

func TestDispatchInvert2x2RoundTrip(t *testing.T) {
	a := mustMatrix(t, 2, 2, 4, 2, 7, 6)
	inv, _ := New(2, 2, 2, Float64)
	if _, err := Dispatch(Instruction{Op: INVERT2X2, Dst: inv, A: a}); err != nil {
		t.Fatalf("INVERT2X2: %v", err)
	}
	product, _ := New(2, 2, 2, Float64)
	if _, err := Dispatch(Instruction{Op: MUL, Dst: product, A: a, B: inv}); err != nil {
		t.Fatalf("MUL: %v", err)
	}
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			want := 0.0
			if r == c {
				want = 1
			}
			if math.Abs(product.At(r, c)-want) > 1e-9 {
				t.Errorf("A*inv(A)[%d][%d] = %v, want %v", r, c, product.At(r, c), want)
			}
		}
	}
}

func TestDispatchInvertSingularReturnsError(t *testing.T) {
	a := mustMatrix(t, 2, 2, 1, 2, 2, 4) // rows are linearly dependent
	inv, _ := New(2, 2, 2, Float64)
	_, err := Dispatch(Instruction{Op: INVERT2X2, Dst: inv, A: a})
	if !errors.Is(err, ErrSingular) {
		t.Fatalf("INVERT2X2() error = %v, want ErrSingular", err)
	}
}

func TestDispatchInvertNearSingularReturnsError(t *testing.T) {
	// det = 1*4 - 2*(2+1e-9) = -2e-9, well within singularEpsilon of zero
	// despite never comparing exactly equal to it.
	a := mustMatrix(t, 2, 2, 1, 2, 2+1e-9, 4)
	inv, _ := New(2, 2, 2, Float64)
	_, err := Dispatch(Instruction{Op: INVERT2X2, Dst: inv, A: a})
	if !errors.Is(err, ErrSingular) {
		t.Fatalf("INVERT2X2() error = %v, want ErrSingular for a near-singular determinant", err)
	}
}

func TestDispatchTrace(t *testing.T) {
	a := mustMatrix(t, 3, 3, 1, 0, 0, 0, 2, 0, 0, 0, 3)
	got, err := Dispatch(Instruction{Op: TRACE, A: a})
	if err != nil {
		t.Fatalf("TRACE: %v", err)
	}
	if got != 6 {
		t.Errorf("trace = %v, want 6", got)
	}
}

func TestDispatchNormalizeCols(t *testing.T) {
	a := mustMatrix(t, 2, 1, 3, 4) // column vector (3,4), length 5
	dst, _ := New(2, 1, 2, Float64)
	if _, err := Dispatch(Instruction{Op: NORMALIZECOLS, Dst: dst, A: a}); err != nil {
		t.Fatalf("NORMALIZECOLS: %v", err)
	}
	if math.Abs(dst.At(0, 0)-0.6) > 1e-9 || math.Abs(dst.At(1, 0)-0.8) > 1e-9 {
		t.Errorf("normalized column = (%v,%v), want (0.6,0.8)", dst.At(0, 0), dst.At(1, 0))
	}
}

func TestDispatchShapeMismatchIsError(t *testing.T) {
	a := mustMatrix(t, 2, 2, 1, 2, 3, 4)
	b := mustMatrix(t, 3, 3, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	dst, _ := New(2, 2, 2, Float64)
	_, err := Dispatch(Instruction{Op: ADD, Dst: dst, A: a, B: b})
	if !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("Dispatch() error = %v, want ErrInvalidShape", err)
	}
}
