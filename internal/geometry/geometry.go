// Package geometry holds the handful of 3-vector operations the SAR kernels
// need: point distances, bistatic ranges and views over flat coordinate arrays.
package geometry

import (
	"fmt"
	"unsafe"

	"gonum.org/v1/gonum/spatial/r3"
)

// C0 is the vacuum speed of light in m/s.
const C0 = 299792458.0

// Distance returns the Euclidean distance between x and y.
func Distance(x, y r3.Vec) float64 {
	return r3.Norm(r3.Sub(x, y))
}

// BistaticRange returns ||x - tx|| + ||x - rx||.
func BistaticRange(tx, rx, x r3.Vec) float64 {
	return Distance(x, tx) + Distance(x, rx)
}

// Modulo returns a mod b in [0, b) for b > 0, wrapping negative a upwards.
func Modulo(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// VecsFromFlat views a pulse-major, xyz-minor coordinate array as vectors.
// The returned slice shares memory with flat.
func VecsFromFlat(flat []float64) ([]r3.Vec, error) {
	if len(flat)%3 != 0 {
		return nil, fmt.Errorf("coordinate array length %d is not a multiple of 3", len(flat))
	}
	if len(flat) == 0 {
		return []r3.Vec{}, nil
	}
	return unsafe.Slice((*r3.Vec)(unsafe.Pointer(unsafe.SliceData(flat))), len(flat)/3), nil
}

// Flatten is the inverse view of VecsFromFlat.
func Flatten(vecs []r3.Vec) []float64 {
	if len(vecs) == 0 {
		return []float64{}
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(unsafe.SliceData(vecs))), 3*len(vecs))
}
