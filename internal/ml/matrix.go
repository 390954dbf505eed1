package ml

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// InitRange is the bound of the uniform distribution used by Random.
const InitRange = 0.8

// Matrix is a dense row-major matrix with a shape fixed at construction.
// Binary operations allocate their result, Map and AddInPlace mutate the receiver.
// Operands of mismatched shape are a programming error and cause a panic.
type Matrix struct {
	dense *mat.Dense
}

func New(rows, cols int) *Matrix {
	checkDims(rows, cols)
	return &Matrix{dense: mat.NewDense(rows, cols, nil)}
}

// FromSlice wraps data without copying it. len(data) must equal rows*cols.
func FromSlice(rows, cols int, data []float64) *Matrix {
	checkDims(rows, cols)
	if len(data) != rows*cols {
		panic(fmt.Sprintf("ml: %d values for %dx%d matrix", len(data), rows, cols))
	}
	return &Matrix{dense: mat.NewDense(rows, cols, data)}
}

func Random(rnd *rand.Rand, rows, cols int) *Matrix {
	var m = New(rows, cols)
	InitUniform(rnd, m.dense.RawMatrix().Data, InitRange)
	return m
}

func InitUniform(rnd *rand.Rand, data []float64, max float64) {
	for i := range data {
		data[i] = (rnd.Float64() - 0.5) * 2 * max
	}
}

func checkDims(rows, cols int) {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("ml: invalid matrix shape %dx%d", rows, cols))
	}
}

func (m *Matrix) Rows() int {
	var r, _ = m.dense.Dims()
	return r
}

func (m *Matrix) Cols() int {
	var _, c = m.dense.Dims()
	return c
}

func (m *Matrix) At(row, col int) float64 {
	return m.dense.At(row, col)
}

func (m *Matrix) Set(row, col int, v float64) {
	m.dense.Set(row, col, v)
}

func (m *Matrix) String() string {
	return fmt.Sprintf("%dx%d", m.Rows(), m.Cols())
}

func (m *Matrix) sameShape(op string, other *Matrix) {
	var r1, c1 = m.dense.Dims()
	var r2, c2 = other.dense.Dims()
	if r1 != r2 || c1 != c2 {
		panic(fmt.Sprintf("ml: %s shape mismatch %dx%d vs %dx%d", op, r1, c1, r2, c2))
	}
}

func (m *Matrix) Clone() *Matrix {
	var d mat.Dense
	d.CloneFrom(m.dense)
	return &Matrix{dense: &d}
}

func (m *Matrix) Add(other *Matrix) *Matrix {
	m.sameShape("add", other)
	var d mat.Dense
	d.Add(m.dense, other.dense)
	return &Matrix{dense: &d}
}

// AddInPlace adds other to m elementwise and returns m.
func (m *Matrix) AddInPlace(other *Matrix) *Matrix {
	m.sameShape("add", other)
	m.dense.Add(m.dense, other.dense)
	return m
}

func (m *Matrix) Subtract(other *Matrix) *Matrix {
	m.sameShape("subtract", other)
	var d mat.Dense
	d.Sub(m.dense, other.dense)
	return &Matrix{dense: &d}
}

// Multiply is the elementwise (Hadamard) product.
func (m *Matrix) Multiply(other *Matrix) *Matrix {
	m.sameShape("multiply", other)
	var d mat.Dense
	d.MulElem(m.dense, other.dense)
	return &Matrix{dense: &d}
}

func (m *Matrix) Divide(other *Matrix) *Matrix {
	m.sameShape("divide", other)
	var d mat.Dense
	d.DivElem(m.dense, other.dense)
	return &Matrix{dense: &d}
}

func (m *Matrix) DivideByNum(v float64) *Matrix {
	var d mat.Dense
	d.Apply(func(_, _ int, x float64) float64 {
		return x / v
	}, m.dense)
	return &Matrix{dense: &d}
}

func (m *Matrix) Scale(v float64) *Matrix {
	var d mat.Dense
	d.Scale(v, m.dense)
	return &Matrix{dense: &d}
}

func (m *Matrix) Pow(e float64) *Matrix {
	var d mat.Dense
	d.Apply(func(_, _ int, v float64) float64 {
		return math.Pow(v, e)
	}, m.dense)
	return &Matrix{dense: &d}
}

// Dot is the matrix product m x other.
func (m *Matrix) Dot(other *Matrix) *Matrix {
	var r1, c1 = m.dense.Dims()
	var r2, c2 = other.dense.Dims()
	if c1 != r2 {
		panic(fmt.Sprintf("ml: dot shape mismatch %dx%d vs %dx%d", r1, c1, r2, c2))
	}
	var d mat.Dense
	d.Mul(m.dense, other.dense)
	return &Matrix{dense: &d}
}

func (m *Matrix) Transpose() *Matrix {
	var d mat.Dense
	d.CloneFrom(m.dense.T())
	return &Matrix{dense: &d}
}

// Map replaces every entry with fn(entry) and returns m.
func (m *Matrix) Map(fn func(float64) float64) *Matrix {
	m.dense.Apply(func(_, _ int, v float64) float64 {
		return fn(v)
	}, m.dense)
	return m
}

// Flatten returns a row-major copy of the entries.
func (m *Matrix) Flatten() []float64 {
	var rows, cols = m.dense.Dims()
	var result = make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		result = append(result, m.dense.RawRowView(i)...)
	}
	return result
}

func (m *Matrix) FillZeros() {
	m.dense.Zero()
}
