package sar

import (
	"fmt"

	"github.com/rjboer/sarsolver/internal/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// Hypothesis is an unordered set of point scatterers: positions and complex
// Born amplitudes.
type Hypothesis struct {
	NumScatterers int

	positions  Buffer[r3.Vec]
	amplitudes Buffer[complex128]
}

// NewHypothesis allocates np scatterers at the origin with zero amplitude.
func NewHypothesis(np int) (*Hypothesis, error) {
	if np < 0 {
		return nil, fmt.Errorf("%w: num_scatterers=%d", ErrShape, np)
	}
	return &Hypothesis{
		NumScatterers: np,
		positions:     OwnedBuffer[r3.Vec](np),
		amplitudes:    OwnedBuffer[complex128](np),
	}, nil
}

// HypothesisFromRecord adopts the record's scatterer arrays without copying.
func HypothesisFromRecord(info *CalculationInfo) (*Hypothesis, error) {
	if err := info.validateHypothesis(); err != nil {
		return nil, err
	}
	pos, err := geometry.VecsFromFlat(info.ScatPosns)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShape, err)
	}
	amps, err := complexView(info.ScatteringAmplitudes)
	if err != nil {
		return nil, err
	}
	return &Hypothesis{
		NumScatterers: info.NumScatterers,
		positions:     BorrowedBuffer(pos),
		amplitudes:    BorrowedBuffer(amps),
	}, nil
}

// ScatPosns returns the scatterer positions.
func (h *Hypothesis) ScatPosns() []r3.Vec { return h.positions.Slice() }

// ScatAmps returns the scatterer amplitudes.
func (h *Hypothesis) ScatAmps() []complex128 { return h.amplitudes.Slice() }

// Owned reports whether the arrays were allocated by NewHypothesis.
func (h *Hypothesis) Owned() bool { return h.amplitudes.Owned() }

// Zero clears the amplitudes so the next adjoint starts from nothing.
func (h *Hypothesis) Zero() { clear(h.amplitudes.Slice()) }

// CopyIntoRecord writes the scatterer count and arrays into info.
func (h *Hypothesis) CopyIntoRecord(info *CalculationInfo) {
	info.NumScatterers = h.NumScatterers
	copyInto(&info.ScatPosns, geometry.Flatten(h.ScatPosns()))
	copyInto(&info.ScatteringAmplitudes, interleaved(h.ScatAmps()))
}

// Release frees owned arrays and detaches borrowed ones.
func (h *Hypothesis) Release() {
	h.positions.Release()
	h.amplitudes.Release()
}
