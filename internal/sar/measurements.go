package sar

import (
	"fmt"

	"github.com/rjboer/sarsolver/internal/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// Measurements holds the per-pulse aperture geometry and the pulse-major
// phase-history cube of shape NumSlowTimes × NumFastTimes.
type Measurements struct {
	NumFastTimes    int
	NumSlowTimes    int
	CentreFrequency float64
	SampleFrequency float64
	LightSpeed      float64

	transmit     Buffer[r3.Vec]
	receive      Buffer[r3.Vec]
	stabRef      Buffer[r3.Vec]
	phaseHistory Buffer[complex128]
}

// NewMeasurements allocates zeroed geometry and phase history. A zero cEff
// selects the vacuum speed of light.
func NewMeasurements(nf, ns int, centreFreq, sampleFreq, cEff float64) (*Measurements, error) {
	if nf <= 0 || ns <= 0 {
		return nil, fmt.Errorf("%w: num_fast_times=%d num_slow_times=%d", ErrShape, nf, ns)
	}
	if cEff == 0 {
		cEff = geometry.C0
	}
	return &Measurements{
		NumFastTimes:    nf,
		NumSlowTimes:    ns,
		CentreFrequency: centreFreq,
		SampleFrequency: sampleFreq,
		LightSpeed:      cEff,
		transmit:        OwnedBuffer[r3.Vec](ns),
		receive:         OwnedBuffer[r3.Vec](ns),
		stabRef:         OwnedBuffer[r3.Vec](ns),
		phaseHistory:    OwnedBuffer[complex128](ns * nf),
	}, nil
}

// MeasurementsFromRecord adopts the record's measurement arrays without copying.
func MeasurementsFromRecord(info *CalculationInfo) (*Measurements, error) {
	if err := info.validateMeasurements(); err != nil {
		return nil, err
	}
	tx, err := geometry.VecsFromFlat(info.TransmitPosns)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShape, err)
	}
	rx, err := geometry.VecsFromFlat(info.ReceivePosns)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShape, err)
	}
	srp, err := geometry.VecsFromFlat(info.StabRefPosns)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShape, err)
	}
	ph, err := complexView(info.PhaseHistory)
	if err != nil {
		return nil, err
	}
	return &Measurements{
		NumFastTimes:    info.NumFastTimes,
		NumSlowTimes:    info.NumSlowTimes,
		CentreFrequency: info.CentreFrequency,
		SampleFrequency: info.SampleFrequency,
		LightSpeed:      info.CEff,
		transmit:        BorrowedBuffer(tx),
		receive:         BorrowedBuffer(rx),
		stabRef:         BorrowedBuffer(srp),
		phaseHistory:    BorrowedBuffer(ph),
	}, nil
}

// TransmitPosns returns the transmitter position of every pulse.
func (m *Measurements) TransmitPosns() []r3.Vec { return m.transmit.Slice() }

// ReceivePosns returns the receiver position of every pulse.
func (m *Measurements) ReceivePosns() []r3.Vec { return m.receive.Slice() }

// StabRefPosns returns the stabilization reference point of every pulse.
func (m *Measurements) StabRefPosns() []r3.Vec { return m.stabRef.Slice() }

// PhaseHistory returns the whole cube, pulse-major.
func (m *Measurements) PhaseHistory() []complex128 { return m.phaseHistory.Slice() }

// Row returns the fast-time samples of pulse p.
func (m *Measurements) Row(p int) []complex128 {
	return m.phaseHistory.Slice()[p*m.NumFastTimes : (p+1)*m.NumFastTimes]
}

// Owned reports whether the arrays were allocated by NewMeasurements.
func (m *Measurements) Owned() bool { return m.phaseHistory.Owned() }

// StabilizationRange returns the bistatic range of the reference point of pulse p.
func (m *Measurements) StabilizationRange(p int) float64 {
	return geometry.BistaticRange(m.transmit.Slice()[p], m.receive.Slice()[p], m.stabRef.Slice()[p])
}

// CopyIntoRecord writes shape, scalars and arrays into info.
func (m *Measurements) CopyIntoRecord(info *CalculationInfo) {
	info.NumFastTimes = m.NumFastTimes
	info.NumSlowTimes = m.NumSlowTimes
	info.CentreFrequency = m.CentreFrequency
	info.SampleFrequency = m.SampleFrequency
	info.CEff = m.LightSpeed
	copyInto(&info.TransmitPosns, geometry.Flatten(m.TransmitPosns()))
	copyInto(&info.ReceivePosns, geometry.Flatten(m.ReceivePosns()))
	copyInto(&info.StabRefPosns, geometry.Flatten(m.StabRefPosns()))
	copyInto(&info.PhaseHistory, interleaved(m.PhaseHistory()))
}

// Release frees owned arrays and detaches borrowed ones.
func (m *Measurements) Release() {
	m.transmit.Release()
	m.receive.Release()
	m.stabRef.Release()
	m.phaseHistory.Release()
}
