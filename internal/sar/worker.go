// Package sar implements the scalar bistatic Born forward and adjoint
// operators for pulse-compressed phase histories.
//
// A Worker owns the up-sampled working range profile, the FFT plans and the
// wavenumber table for one partition of pulses and one scatterer set. Workers
// are single threaded and share no mutable state; run several of them on
// disjoint partitions for parallelism.
package sar

import (
	"errors"
	"fmt"
	"math"

	"github.com/rjboer/sarsolver/internal/dsp"
	"github.com/rjboer/sarsolver/internal/geometry"
	"github.com/rjboer/sarsolver/internal/logging"
)

// Params describes a worker built from shapes rather than from a record.
type Params struct {
	NumFastTimes    int
	NumSlowTimes    int
	NumScatterers   int
	WorkerIndex     int
	CentreFrequency float64 // Hz
	SampleFrequency float64 // Hz
	CEff            float64 // m/s, zero selects geometry.C0
	UpsampleRatio   float64 // zero selects 1
	Sign            int
	Logger          logging.Logger
}

// Worker evaluates the forward and adjoint operators.
type Worker struct {
	index            int
	workingFastTimes int
	upsampleRatio    float64
	sign             int

	measurements *Measurements
	hypothesis   *Hypothesis

	centreWavenumber float64
	rangeBinScale    float64 // working bins per metre of bistatic range

	rangeProfile []complex128
	waveform     Buffer[complex128]
	weighting    Buffer[complex128]
	kModes       []float64

	forwardPlan *dsp.Plan
	inversePlan *dsp.Plan
	ready       bool

	logger logging.Logger
}

// NewWorker allocates measurements, hypothesis and working buffers. The
// waveform spectrum and slow-time weighting start as ones.
func NewWorker(p Params) (*Worker, error) {
	if p.CEff == 0 {
		p.CEff = geometry.C0
	}
	if p.UpsampleRatio == 0 {
		p.UpsampleRatio = 1
	}
	if err := validateSizes(p.NumFastTimes, p.NumSlowTimes, p.NumScatterers); err != nil {
		return nil, err
	}
	if err := validateUpsample(p.UpsampleRatio); err != nil {
		return nil, err
	}
	if err := validateScalars(p.SampleFrequency, p.CEff); err != nil {
		return nil, err
	}
	sign, err := signOf(float64(p.Sign))
	if err != nil {
		return nil, err
	}
	m, err := NewMeasurements(p.NumFastTimes, p.NumSlowTimes, p.CentreFrequency, p.SampleFrequency, p.CEff)
	if err != nil {
		return nil, err
	}
	h, err := NewHypothesis(p.NumScatterers)
	if err != nil {
		return nil, err
	}
	nw := WorkingFastTimes(p.NumFastTimes, p.UpsampleRatio)
	w := &Worker{
		index:            p.WorkerIndex,
		workingFastTimes: nw,
		upsampleRatio:    p.UpsampleRatio,
		sign:             sign,
		measurements:     m,
		hypothesis:       h,
		rangeProfile:     make([]complex128, nw),
		waveform:         OwnedBuffer[complex128](nw),
		weighting:        OwnedBuffer[complex128](p.NumSlowTimes),
		logger:           p.Logger,
	}
	fill(w.waveform.Slice(), 1)
	fill(w.weighting.Slice(), 1)
	w.deriveScalars()
	return w, nil
}

// WorkerFromRecord builds a worker that reads and writes the record's arrays
// in place. The record is validated before anything is built.
func WorkerFromRecord(info *CalculationInfo, index int) (*Worker, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	sign, _ := signOf(info.SignMultiplier)
	m, err := MeasurementsFromRecord(info)
	if err != nil {
		return nil, err
	}
	h, err := HypothesisFromRecord(info)
	if err != nil {
		return nil, err
	}
	wf, err := complexView(info.WaveformFFT)
	if err != nil {
		return nil, err
	}
	wt, err := complexView(info.SlowTimeWeighting)
	if err != nil {
		return nil, err
	}
	nw := WorkingFastTimes(info.NumFastTimes, info.UpsampleRatio)
	w := &Worker{
		index:            index,
		workingFastTimes: nw,
		upsampleRatio:    info.UpsampleRatio,
		sign:             sign,
		measurements:     m,
		hypothesis:       h,
		rangeProfile:     make([]complex128, nw),
		waveform:         BorrowedBuffer(wf),
		weighting:        BorrowedBuffer(wt),
	}
	w.deriveScalars()
	return w, nil
}

func (w *Worker) deriveScalars() {
	m := w.measurements
	w.centreWavenumber = 2 * math.Pi * m.CentreFrequency / m.LightSpeed
	w.rangeBinScale = m.SampleFrequency * w.upsampleRatio / m.LightSpeed
}

// SetLogger attaches a logger for setup diagnostics.
func (w *Worker) SetLogger(l logging.Logger) { w.logger = l }

// SetupForwardEvaluate builds the FFT plans and the wavenumber table. It is
// idempotent and must be called again after SetSign or SetUpsampleRatio.
func (w *Worker) SetupForwardEvaluate() error { return w.setup("forward") }

// SetupAdjointEvaluate is the adjoint counterpart of SetupForwardEvaluate.
// Both directions share plans, so either call prepares the worker fully.
func (w *Worker) SetupAdjointEvaluate() error { return w.setup("adjoint") }

func (w *Worker) setup(direction string) error {
	if w.rangeProfile == nil {
		return fmt.Errorf("%w: worker released", ErrNotSetup)
	}
	if w.ready && w.forwardPlan.Len() == w.workingFastTimes && w.forwardPlan.Sign() == w.sign {
		return nil
	}
	w.ready = false
	fwd, err := dsp.NewPlan(w.workingFastTimes, w.sign)
	if err != nil {
		return planError(err)
	}
	inv, err := fwd.Inverse()
	if err != nil {
		return planError(err)
	}
	w.forwardPlan, w.inversePlan = fwd, inv

	m := w.measurements
	workingRate := m.SampleFrequency * w.upsampleRatio
	w.kModes = make([]float64, w.workingFastTimes)
	for i := range w.kModes {
		w.kModes[i] = w.centreWavenumber + 2*math.Pi*fwd.Freq(i)*workingRate/m.LightSpeed
	}
	w.ready = true
	if w.logger != nil {
		w.logger.Debug("worker set up",
			logging.F("direction", direction),
			logging.F("worker", w.index),
			logging.F("working_fast_times", w.workingFastTimes),
			logging.F("sign", w.sign))
	}
	return nil
}

func planError(err error) error {
	if errors.Is(err, dsp.ErrInvalidSign) {
		return fmt.Errorf("%w: %v", ErrSign, err)
	}
	return fmt.Errorf("%w: %v", ErrPlan, err)
}

// SetSign changes the time convention. Setup must run again.
func (w *Worker) SetSign(sign int) error {
	s, err := signOf(float64(sign))
	if err != nil {
		return err
	}
	if s != w.sign {
		w.sign = s
		w.ready = false
	}
	return nil
}

// SetUpsampleRatio changes the working length and installs a waveform
// spectrum of the new length. Setup must run again.
func (w *Worker) SetUpsampleRatio(ratio float64, waveform []complex128) error {
	if err := validateUpsample(ratio); err != nil {
		return err
	}
	nw := WorkingFastTimes(w.measurements.NumFastTimes, ratio)
	if len(waveform) != nw {
		return fmt.Errorf("%w: waveform has %d bins, want %d", ErrShape, len(waveform), nw)
	}
	w.upsampleRatio = ratio
	w.workingFastTimes = nw
	w.rangeProfile = make([]complex128, nw)
	w.waveform.Release()
	w.waveform = OwnedBuffer[complex128](nw)
	copy(w.waveform.Slice(), waveform)
	w.deriveScalars()
	w.ready = false
	return nil
}

// SetWaveform copies a spectrum of WorkingFastTimes bins, in FFT ordering.
func (w *Worker) SetWaveform(waveform []complex128) error {
	if len(waveform) != w.workingFastTimes {
		return fmt.Errorf("%w: waveform has %d bins, want %d", ErrShape, len(waveform), w.workingFastTimes)
	}
	copy(w.waveform.Slice(), waveform)
	return nil
}

// SetSlowTimeWeighting copies one complex gain per pulse.
func (w *Worker) SetSlowTimeWeighting(weights []complex128) error {
	if len(weights) != w.measurements.NumSlowTimes {
		return fmt.Errorf("%w: weighting has %d pulses, want %d", ErrShape, len(weights), w.measurements.NumSlowTimes)
	}
	copy(w.weighting.Slice(), weights)
	return nil
}

// Measurements returns the measurement block.
func (w *Worker) Measurements() *Measurements { return w.measurements }

// Hypothesis returns the scatterer block.
func (w *Worker) Hypothesis() *Hypothesis { return w.hypothesis }

// Index returns the worker index.
func (w *Worker) Index() int { return w.index }

// Sign returns the sign multiplier of the exp(±j·k·r) kernel.
func (w *Worker) Sign() int { return w.sign }

// WorkingFastTimes returns Nf′.
func (w *Worker) WorkingFastTimes() int { return w.workingFastTimes }

// CentreWavenumber returns k₀ = 2π·fc/c_eff in rad/m.
func (w *Worker) CentreWavenumber() float64 { return w.centreWavenumber }

// RangeBinScale returns working range bins per metre of residual bistatic range.
func (w *Worker) RangeBinScale() float64 { return w.rangeBinScale }

// WorkingSpatialSampleRate returns working samples per metre of one-way range,
// the reciprocal of the c_eff/(2·fs·u) bin spacing.
func (w *Worker) WorkingSpatialSampleRate() float64 { return 2 * w.rangeBinScale }

// Wavenumbers returns the wavenumber of every working bin in FFT ordering.
// It is nil until setup has run.
func (w *Worker) Wavenumbers() []float64 { return w.kModes }

// Waveform returns the waveform spectrum.
func (w *Worker) Waveform() []complex128 { return w.waveform.Slice() }

// SlowTimeWeighting returns the per-pulse gains.
func (w *Worker) SlowTimeWeighting() []complex128 { return w.weighting.Slice() }

// ZeroFFTBuffers clears the working range profile.
func (w *Worker) ZeroFFTBuffers() { clear(w.rangeProfile) }

// CopyIntoRecord writes every block and scalar of the worker into info.
func (w *Worker) CopyIntoRecord(info *CalculationInfo) {
	w.measurements.CopyIntoRecord(info)
	w.hypothesis.CopyIntoRecord(info)
	copyInto(&info.WaveformFFT, interleaved(w.waveform.Slice()))
	copyInto(&info.SlowTimeWeighting, interleaved(w.weighting.Slice()))
	info.UpsampleRatio = w.upsampleRatio
	info.SignMultiplier = float64(w.sign)
}

// Release drops the plans and frees owned buffers. The worker cannot be
// evaluated afterwards.
func (w *Worker) Release() {
	w.ready = false
	w.forwardPlan, w.inversePlan = nil, nil
	w.rangeProfile = nil
	w.kModes = nil
	w.waveform.Release()
	w.weighting.Release()
	w.measurements.Release()
	w.hypothesis.Release()
}

func fill(s []complex128, v complex128) {
	for i := range s {
		s[i] = v
	}
}
