package sar

import (
	"math"
	"math/cmplx"

	"github.com/rjboer/sarsolver/internal/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// deposit locates a residual bistatic range on the circular working profile.
// It returns the two neighbouring bins, the linear interpolation weight of the
// upper bin and the carrier exp(sign·j·k₀·r).
func (w *Worker) deposit(rRes float64) (lo, hi int, frac float64, carrier complex128) {
	s := rRes * w.rangeBinScale
	n := math.Floor(s)
	frac = s - n
	lo = geometry.Modulo(int(n), w.workingFastTimes)
	hi = lo + 1
	if hi == w.workingFastTimes {
		hi = 0
	}
	sin, cos := math.Sincos(float64(w.sign) * w.centreWavenumber * rRes)
	return lo, hi, frac, complex(cos, sin)
}

// residualRange is the bistatic range of x minus the stabilization range.
func residualRange(tx, rx, x r3.Vec, ref float64) float64 {
	return geometry.BistaticRange(tx, rx, x) - ref
}

// ExecuteForwardEvaluate synthesizes the phase history of every pulse from
// the hypothesis, overwriting the cube.
func (w *Worker) ExecuteForwardEvaluate() error {
	if !w.ready {
		return ErrNotSetup
	}
	m, h := w.measurements, w.hypothesis
	tx, rx, srp := m.TransmitPosns(), m.ReceivePosns(), m.StabRefPosns()
	pos, amps := h.ScatPosns(), h.ScatAmps()
	spectrum, gains := w.waveform.Slice(), w.weighting.Slice()
	buf := w.rangeProfile

	for p := 0; p < m.NumSlowTimes; p++ {
		clear(buf)
		ref := geometry.BistaticRange(tx[p], rx[p], srp[p])
		for q := range pos {
			lo, hi, frac, carrier := w.deposit(residualRange(tx[p], rx[p], pos[q], ref))
			c := amps[q] * carrier
			buf[lo] += c * complex(1-frac, 0)
			buf[hi] += c * complex(frac, 0)
		}
		if err := w.forwardPlan.Execute(buf, buf); err != nil {
			return err
		}
		for i := range buf {
			buf[i] *= spectrum[i]
		}
		if err := w.inversePlan.Execute(buf, buf); err != nil {
			return err
		}
		g := gains[p]
		row := m.Row(p)
		for i := range row {
			row[i] = g * buf[i]
		}
	}
	return nil
}

// ExecuteAdjointEvaluate back-projects the phase history onto the scatterers.
// Results are added to the existing amplitudes; call Hypothesis().Zero()
// first for a fresh image.
func (w *Worker) ExecuteAdjointEvaluate() error {
	if !w.ready {
		return ErrNotSetup
	}
	m, h := w.measurements, w.hypothesis
	tx, rx, srp := m.TransmitPosns(), m.ReceivePosns(), m.StabRefPosns()
	pos, amps := h.ScatPosns(), h.ScatAmps()
	spectrum, gains := w.waveform.Slice(), w.weighting.Slice()
	buf := w.rangeProfile
	nf := m.NumFastTimes

	for p := 0; p < m.NumSlowTimes; p++ {
		g := cmplx.Conj(gains[p])
		row := m.Row(p)
		for i := range row {
			buf[i] = g * row[i]
		}
		clear(buf[nf:])
		if err := w.forwardPlan.Execute(buf, buf); err != nil {
			return err
		}
		for i := range buf {
			buf[i] *= cmplx.Conj(spectrum[i])
		}
		if err := w.inversePlan.Execute(buf, buf); err != nil {
			return err
		}
		ref := geometry.BistaticRange(tx[p], rx[p], srp[p])
		for q := range pos {
			lo, hi, frac, carrier := w.deposit(residualRange(tx[p], rx[p], pos[q], ref))
			amps[q] += cmplx.Conj(carrier) * (complex(1-frac, 0)*buf[lo] + complex(frac, 0)*buf[hi])
		}
	}
	return nil
}
