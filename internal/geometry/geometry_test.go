package geometry

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name     string
		x, y     r3.Vec
		expected float64
	}{
		{name: "same", x: r3.Vec{X: 1, Y: 2, Z: 3}, y: r3.Vec{X: 1, Y: 2, Z: 3}, expected: 0},
		{name: "pythagoras", x: r3.Vec{}, y: r3.Vec{X: 3, Y: 4}, expected: 5},
		{name: "negative", x: r3.Vec{X: -1, Y: -2, Z: -2}, y: r3.Vec{}, expected: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.x, tt.y); math.Abs(got-tt.expected) > 1e-12 {
				t.Fatalf("expected %f got %f", tt.expected, got)
			}
		})
	}
}

func TestBistaticRange(t *testing.T) {
	tx := r3.Vec{X: 3, Y: 4}
	rx := r3.Vec{X: -6, Y: 0, Z: 8}
	if got := BistaticRange(tx, rx, r3.Vec{}); math.Abs(got-15) > 1e-12 {
		t.Fatalf("expected 15 got %f", got)
	}
	// Monostatic geometry doubles the one-way range.
	if got := BistaticRange(tx, tx, r3.Vec{}); math.Abs(got-10) > 1e-12 {
		t.Fatalf("expected 10 got %f", got)
	}
}

func TestModulo(t *testing.T) {
	cases := [][3]int{{5, 4, 1}, {-1, 4, 3}, {-4, 4, 0}, {-9, 4, 3}, {0, 7, 0}}
	for _, c := range cases {
		if got := Modulo(c[0], c[1]); got != c[2] {
			t.Fatalf("Modulo(%d, %d) expected %d got %d", c[0], c[1], c[2], got)
		}
	}
}

func TestVecsFromFlatSharesMemory(t *testing.T) {
	flat := []float64{1, 2, 3, 4, 5, 6}
	vecs, err := VecsFromFlat(flat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 || vecs[1] != (r3.Vec{X: 4, Y: 5, Z: 6}) {
		t.Fatalf("unexpected view %v", vecs)
	}
	vecs[0].Y = 20
	if flat[1] != 20 {
		t.Fatalf("expected write-through to flat array, got %v", flat)
	}
	back := Flatten(vecs)
	if len(back) != 6 || back[5] != 6 {
		t.Fatalf("unexpected flatten %v", back)
	}
}

func TestVecsFromFlatRejectsRaggedArray(t *testing.T) {
	if _, err := VecsFromFlat([]float64{1, 2}); err == nil {
		t.Fatalf("expected error for length 2")
	}
	vecs, err := VecsFromFlat(nil)
	if err != nil || len(vecs) != 0 {
		t.Fatalf("expected empty view, got %v %v", vecs, err)
	}
}
