package ml

import (
	"math"
	"math/rand"
	"testing"
)

func TestDotTransposeSymmetric(t *testing.T) {
	var rnd = rand.New(rand.NewSource(1))
	for _, shape := range [][2]int{{1, 1}, {3, 2}, {5, 7}, {16, 4}} {
		var a = Random(rnd, shape[0], shape[1])
		var s = a.Transpose().Dot(a)
		if s.Rows() != shape[1] || s.Cols() != shape[1] {
			t.Fatalf("shape %v: got %v", shape, s)
		}
		for i := 0; i < s.Rows(); i++ {
			for j := 0; j < s.Cols(); j++ {
				if math.Abs(s.At(i, j)-s.At(j, i)) > 1e-12 {
					t.Errorf("shape %v: s[%d][%d]=%v s[%d][%d]=%v", shape, i, j, s.At(i, j), j, i, s.At(j, i))
				}
			}
		}
	}
}

func TestRandomRange(t *testing.T) {
	var m = Random(rand.New(rand.NewSource(2)), 64, 64)
	var nonZero int
	for _, v := range m.Flatten() {
		if v < -InitRange || v >= InitRange {
			t.Fatalf("value %v out of range", v)
		}
		if v != 0 {
			nonZero++
		}
	}
	if nonZero == 0 {
		t.Error("random matrix is all zeros")
	}
}

func TestElementwise(t *testing.T) {
	var a = FromSlice(2, 2, []float64{1, 2, 3, 4})
	var b = FromSlice(2, 2, []float64{2, 2, 2, 2})

	var cases = []struct {
		name string
		got  *Matrix
		want []float64
	}{
		{"add", a.Add(b), []float64{3, 4, 5, 6}},
		{"subtract", a.Subtract(b), []float64{-1, 0, 1, 2}},
		{"multiply", a.Multiply(b), []float64{2, 4, 6, 8}},
		{"divide", a.Divide(b), []float64{0.5, 1, 1.5, 2}},
		{"divideByNum", a.DivideByNum(4), []float64{0.25, 0.5, 0.75, 1}},
		{"scale", a.Scale(-1), []float64{-1, -2, -3, -4}},
		{"pow", a.Pow(2), []float64{1, 4, 9, 16}},
		{"transpose", a.Transpose(), []float64{1, 3, 2, 4}},
		{"dot", a.Dot(b), []float64{6, 6, 14, 14}},
	}
	for _, c := range cases {
		var got = c.got.Flatten()
		for i := range c.want {
			if math.Abs(got[i]-c.want[i]) > 1e-12 {
				t.Errorf("%v: got %v, want %v", c.name, got, c.want)
				break
			}
		}
	}

	// operands are untouched by binary operations
	if a.At(0, 0) != 1 || a.At(1, 1) != 4 {
		t.Errorf("operand mutated: %v", a.Flatten())
	}
}

func TestMapMutatesReceiver(t *testing.T) {
	var m = FromSlice(1, 4, []float64{-2, 0.25, 0.75, 3})
	var res = m.Map(ClippedReLU)
	if res != m {
		t.Fatal("Map must return its receiver")
	}
	var want = []float64{0, 0.25, 0.75, 1}
	for i, v := range m.Flatten() {
		if v != want[i] {
			t.Errorf("got %v, want %v", m.Flatten(), want)
		}
	}
	m.FillZeros()
	for _, v := range m.Flatten() {
		if v != 0 {
			t.Fatalf("FillZeros left %v", m.Flatten())
		}
	}
}

func TestShapeMismatchPanics(t *testing.T) {
	var a = New(2, 3)
	var b = New(3, 2)
	var ops = map[string]func(){
		"add":        func() { a.Add(b) },
		"addInPlace": func() { a.AddInPlace(b) },
		"subtract":   func() { a.Subtract(b) },
		"multiply":   func() { a.Multiply(b) },
		"divide":     func() { a.Divide(b) },
		"dot":        func() { a.Dot(a) },
		"fromSlice":  func() { FromSlice(2, 2, []float64{1}) },
		"zeroShape":  func() { New(0, 3) },
	}
	for name, op := range ops {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%v: expected panic", name)
				}
			}()
			op()
		}()
	}
}

func TestClippedReLU(t *testing.T) {
	for _, x := range []float64{-1e9, -3, -0.5, 0, 0.1, 0.5, 0.999, 1, 1.5, 42, 1e9} {
		var y = ClippedReLU(x)
		if y < 0 || y > 1 {
			t.Errorf("ClippedReLU(%v) = %v", x, y)
		}
		if x >= 0 && x <= 1 && y != x {
			t.Errorf("ClippedReLU(%v) = %v, want identity", x, y)
		}
	}
	if ClippedReLUPrime(0) != 0 || ClippedReLUPrime(1) != 0 || ClippedReLUPrime(0.5) != 1 {
		t.Error("ClippedReLUPrime wrong at boundaries")
	}
}

func TestSigmoid(t *testing.T) {
	if Sigmoid(0) != 0 {
		t.Errorf("Sigmoid(0) = %v", Sigmoid(0))
	}
	for _, x := range []float64{-30, -2, -0.1, 0.1, 2, 30} {
		var y = Sigmoid(x)
		if y <= -1 || y >= 1 {
			t.Errorf("Sigmoid(%v) = %v out of (-1, 1)", x, y)
		}
		if math.Abs(Sigmoid(-x)+y) > 1e-12 {
			t.Errorf("Sigmoid not odd at %v", x)
		}
		// numeric derivative
		const h = 1e-6
		var numeric = (Sigmoid(x+h) - Sigmoid(x-h)) / (2 * h)
		if math.Abs(numeric-SigmoidPrime(x)) > 1e-6 {
			t.Errorf("SigmoidPrime(%v) = %v, numeric %v", x, SigmoidPrime(x), numeric)
		}
	}
	if SigmoidPrime(0) != 0.5 {
		t.Errorf("SigmoidPrime(0) = %v", SigmoidPrime(0))
	}
}
