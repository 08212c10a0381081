package sar

import (
	"fmt"
	"math"
)

// CalculationInfo is the flat parameter record exchanged with hosts.
//
// Position arrays are pulse-major (scatterer-major for ScatPosns) with xyz
// minor. Complex arrays are interleaved (re, im) reals. A worker built from a
// record reads and writes these slices in place.
type CalculationInfo struct {
	NumFastTimes  int
	NumSlowTimes  int
	NumScatterers int

	TransmitPosns []float64 // 3·NumSlowTimes
	ReceivePosns  []float64 // 3·NumSlowTimes
	StabRefPosns  []float64 // 3·NumSlowTimes
	ScatPosns     []float64 // 3·NumScatterers

	PhaseHistory         []float64 // 2·NumSlowTimes·NumFastTimes
	ScatteringAmplitudes []float64 // 2·NumScatterers
	WaveformFFT          []float64 // 2·WorkingFastTimes(NumFastTimes, UpsampleRatio)
	SlowTimeWeighting    []float64 // 2·NumSlowTimes

	CentreFrequency float64 // Hz
	SampleFrequency float64 // Hz
	CEff            float64 // m/s
	UpsampleRatio   float64
	SignMultiplier  float64
}

// WorkingFastTimes returns ceil(ratio·nf), the length of the working range
// profile and of the waveform spectrum.
func WorkingFastTimes(nf int, ratio float64) int {
	return int(math.Ceil(ratio * float64(nf)))
}

// NewCalculationInfo allocates every array of a record for the given shape.
// Geometry is zero, the waveform spectrum and slow-time weighting are ones.
func NewCalculationInfo(nf, ns, np int, centreFreq, sampleFreq, cEff, ratio float64, sign float64) (*CalculationInfo, error) {
	if err := validateSizes(nf, ns, np); err != nil {
		return nil, err
	}
	if err := validateUpsample(ratio); err != nil {
		return nil, err
	}
	nw := WorkingFastTimes(nf, ratio)
	info := &CalculationInfo{
		NumFastTimes:         nf,
		NumSlowTimes:         ns,
		NumScatterers:        np,
		TransmitPosns:        make([]float64, 3*ns),
		ReceivePosns:         make([]float64, 3*ns),
		StabRefPosns:         make([]float64, 3*ns),
		ScatPosns:            make([]float64, 3*np),
		PhaseHistory:         make([]float64, 2*ns*nf),
		ScatteringAmplitudes: make([]float64, 2*np),
		WaveformFFT:          make([]float64, 2*nw),
		SlowTimeWeighting:    make([]float64, 2*ns),
		CentreFrequency:      centreFreq,
		SampleFrequency:      sampleFreq,
		CEff:                 cEff,
		UpsampleRatio:        ratio,
		SignMultiplier:       sign,
	}
	for i := 0; i < nw; i++ {
		info.WaveformFFT[2*i] = 1
	}
	for p := 0; p < ns; p++ {
		info.SlowTimeWeighting[2*p] = 1
	}
	return info, nil
}

// Validate checks shapes, the upsample ratio, scalars, the sign and aliasing,
// in that order.
func (c *CalculationInfo) Validate() error {
	if err := c.validateMeasurements(); err != nil {
		return err
	}
	if err := c.validateHypothesis(); err != nil {
		return err
	}
	if err := validateUpsample(c.UpsampleRatio); err != nil {
		return err
	}
	nw := WorkingFastTimes(c.NumFastTimes, c.UpsampleRatio)
	if nw <= 0 {
		return fmt.Errorf("%w: working fast times %d", ErrShape, nw)
	}
	if err := checkLen("waveform_fft", c.WaveformFFT, 2*nw); err != nil {
		return err
	}
	if err := checkLen("slow_time_weighting", c.SlowTimeWeighting, 2*c.NumSlowTimes); err != nil {
		return err
	}
	if err := validateScalars(c.SampleFrequency, c.CEff); err != nil {
		return err
	}
	if _, err := signOf(c.SignMultiplier); err != nil {
		return err
	}
	if overlaps(c.PhaseHistory, c.ScatteringAmplitudes) {
		return ErrAlias
	}
	return nil
}

func (c *CalculationInfo) validateMeasurements() error {
	if c.NumFastTimes <= 0 || c.NumSlowTimes <= 0 {
		return fmt.Errorf("%w: num_fast_times=%d num_slow_times=%d", ErrShape, c.NumFastTimes, c.NumSlowTimes)
	}
	ns := c.NumSlowTimes
	if err := checkLen("transmit_posns", c.TransmitPosns, 3*ns); err != nil {
		return err
	}
	if err := checkLen("receive_posns", c.ReceivePosns, 3*ns); err != nil {
		return err
	}
	if err := checkLen("stab_ref_posns", c.StabRefPosns, 3*ns); err != nil {
		return err
	}
	return checkLen("phase_history", c.PhaseHistory, 2*ns*c.NumFastTimes)
}

func (c *CalculationInfo) validateHypothesis() error {
	if c.NumScatterers < 0 {
		return fmt.Errorf("%w: num_scatterers=%d", ErrShape, c.NumScatterers)
	}
	if err := checkLen("scat_posns", c.ScatPosns, 3*c.NumScatterers); err != nil {
		return err
	}
	return checkLen("scattering_amplitudes", c.ScatteringAmplitudes, 2*c.NumScatterers)
}

// Clone returns a deep copy of the record.
func (c *CalculationInfo) Clone() *CalculationInfo {
	out := *c
	out.TransmitPosns = append([]float64(nil), c.TransmitPosns...)
	out.ReceivePosns = append([]float64(nil), c.ReceivePosns...)
	out.StabRefPosns = append([]float64(nil), c.StabRefPosns...)
	out.ScatPosns = append([]float64(nil), c.ScatPosns...)
	out.PhaseHistory = append([]float64(nil), c.PhaseHistory...)
	out.ScatteringAmplitudes = append([]float64(nil), c.ScatteringAmplitudes...)
	out.WaveformFFT = append([]float64(nil), c.WaveformFFT...)
	out.SlowTimeWeighting = append([]float64(nil), c.SlowTimeWeighting...)
	return &out
}

// PhaseHistoryComplex views the phase history as Nₛ·Nf complex samples.
func (c *CalculationInfo) PhaseHistoryComplex() ([]complex128, error) {
	return complexView(c.PhaseHistory)
}

// AmplitudesComplex views the scattering amplitudes as Nₚ complex values.
func (c *CalculationInfo) AmplitudesComplex() ([]complex128, error) {
	return complexView(c.ScatteringAmplitudes)
}

// WaveformComplex views the waveform spectrum as Nf′ complex values.
func (c *CalculationInfo) WaveformComplex() ([]complex128, error) {
	return complexView(c.WaveformFFT)
}

// WeightingComplex views the slow-time weighting as Nₛ complex values.
func (c *CalculationInfo) WeightingComplex() ([]complex128, error) {
	return complexView(c.SlowTimeWeighting)
}

func validateSizes(nf, ns, np int) error {
	if nf <= 0 || ns <= 0 || np < 0 {
		return fmt.Errorf("%w: num_fast_times=%d num_slow_times=%d num_scatterers=%d", ErrShape, nf, ns, np)
	}
	return nil
}

func validateUpsample(ratio float64) error {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio < 1 {
		return fmt.Errorf("%w: got %v", ErrUpsample, ratio)
	}
	return nil
}

func validateScalars(sampleFreq, cEff float64) error {
	if !(sampleFreq > 0) || math.IsInf(sampleFreq, 0) {
		return fmt.Errorf("%w: sample_frequency=%v", ErrParameter, sampleFreq)
	}
	if !(cEff > 0) || math.IsInf(cEff, 0) {
		return fmt.Errorf("%w: c_eff=%v", ErrParameter, cEff)
	}
	return nil
}

func signOf(v float64) (int, error) {
	switch v {
	case 1:
		return 1, nil
	case -1:
		return -1, nil
	default:
		return 0, fmt.Errorf("%w: got %v", ErrSign, v)
	}
}

func checkLen(name string, s []float64, want int) error {
	if len(s) != want {
		return fmt.Errorf("%w: %s has %d reals, want %d", ErrShape, name, len(s), want)
	}
	return nil
}
