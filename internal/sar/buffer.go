package sar

import (
	"fmt"
	"unsafe"
)

// Buffer is either storage allocated by this package or a view of a caller's
// slice. Release drops owned storage and detaches from borrowed storage
// without touching it.
type Buffer[T any] struct {
	data  []T
	owned bool
}

// OwnedBuffer allocates n zeroed elements.
func OwnedBuffer[T any](n int) Buffer[T] {
	return Buffer[T]{data: make([]T, n), owned: true}
}

// BorrowedBuffer adopts s without copying.
func BorrowedBuffer[T any](s []T) Buffer[T] {
	return Buffer[T]{data: s}
}

// Slice returns the underlying elements.
func (b Buffer[T]) Slice() []T { return b.data }

// Len returns the number of elements.
func (b Buffer[T]) Len() int { return len(b.data) }

// Owned reports whether the storage was allocated by this package.
func (b Buffer[T]) Owned() bool { return b.owned }

// Release frees owned storage and reports whether anything was freed.
func (b *Buffer[T]) Release() bool {
	freed := b.owned && b.data != nil
	if freed {
		clear(b.data)
	}
	b.data = nil
	b.owned = false
	return freed
}

// complexView reinterprets interleaved (re, im) reals as complex values,
// sharing memory with flat.
func complexView(flat []float64) ([]complex128, error) {
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("%w: interleaved complex array has odd length %d", ErrShape, len(flat))
	}
	if len(flat) == 0 {
		return []complex128{}, nil
	}
	return unsafe.Slice((*complex128)(unsafe.Pointer(unsafe.SliceData(flat))), len(flat)/2), nil
}

// interleaved is the inverse view of complexView.
func interleaved(c []complex128) []float64 {
	if len(c) == 0 {
		return []float64{}
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(unsafe.SliceData(c))), 2*len(c))
}

// overlaps reports whether two float slices share any memory.
func overlaps(a, b []float64) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	const size = unsafe.Sizeof(float64(0))
	a0 := uintptr(unsafe.Pointer(unsafe.SliceData(a)))
	b0 := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	a1 := a0 + uintptr(len(a))*size
	b1 := b0 + uintptr(len(b))*size
	return a0 < b1 && b0 < a1
}

// copyInto writes src into *dst, reusing the slot when its length matches.
func copyInto(dst *[]float64, src []float64) {
	if len(*dst) != len(src) {
		*dst = make([]float64, len(src))
	}
	copy(*dst, src)
}
