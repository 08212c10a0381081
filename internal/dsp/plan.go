package dsp

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Plan is a reusable complex FFT of fixed length and sign.
//
// A sign of -1 computes X[k] = sum x[j]·exp(-2πi·jk/n) and a sign of +1 the
// conjugate kernel. Neither direction is normalized, so a round trip through
// a plan and its inverse scales the input by n.
type Plan struct {
	mu   sync.Mutex
	fft  *fourier.CmplxFFT
	n    int
	sign int
}

// NewPlan builds a plan of length n with the given sign.
func NewPlan(n, sign int) (p *Plan, err error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}
	if sign != 1 && sign != -1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSign, sign)
	}
	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = fmt.Errorf("%w: length %d: %v", ErrPlan, n, r)
		}
	}()
	return &Plan{fft: fourier.NewCmplxFFT(n), n: n, sign: sign}, nil
}

// Len returns the transform length.
func (p *Plan) Len() int { return p.n }

// Sign returns the exponent sign of the transform kernel.
func (p *Plan) Sign() int { return p.sign }

// Inverse builds the plan of the same length with the opposite sign.
func (p *Plan) Inverse() (*Plan, error) {
	return NewPlan(p.n, -p.sign)
}

// Execute transforms src into dst. dst and src may be the same slice.
func (p *Plan) Execute(dst, src []complex128) error {
	if len(dst) != p.n || len(src) != p.n {
		return fmt.Errorf("%w: plan %d, dst %d, src %d", ErrLengthMismatch, p.n, len(dst), len(src))
	}
	p.mu.Lock()
	if p.sign < 0 {
		p.fft.Coefficients(dst, src)
	} else {
		p.fft.Sequence(dst, src)
	}
	p.mu.Unlock()
	return nil
}

// Freq returns the relative frequency of bin i in cycles per sample.
func (p *Plan) Freq(i int) float64 {
	return p.fft.Freq(i)
}
