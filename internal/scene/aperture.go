// Package scene builds synthetic collection geometries and scatterer grids
// and writes them into calculation records.
package scene

import (
	"errors"
	"fmt"
	"math"

	"github.com/rjboer/sarsolver/internal/geometry"
	"github.com/rjboer/sarsolver/internal/sar"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrInvalidAperture is returned for non-physical aperture parameters.
	ErrInvalidAperture = errors.New("scene: invalid aperture")
	// ErrInvalidGrid is returned for empty, non-finite or oversized grids.
	ErrInvalidGrid = errors.New("scene: invalid grid")
)

// ApertureConfig describes a straight, uniformly sampled collection track
// parallel to the y axis.
type ApertureConfig struct {
	NumSlowTimes    int
	NumFastTimes    int
	CentreFrequency float64 // Hz
	SampleFrequency float64 // Hz
	LightSpeed      float64 // m/s, zero selects geometry.C0
	StandoffRange   float64 // m, x coordinate of the track
	TrackLength     float64 // m
	Height          float64 // m, z coordinate of the track
	ReceiverOffset  r3.Vec  // receiver position relative to the transmitter; zero is monostatic
	Reference       r3.Vec  // stabilization reference point shared by every pulse
}

// DefaultApertureConfig returns a small X-band monostatic collection: 249
// pulses of 251 samples along a 60 m track 2 km from the origin.
func DefaultApertureConfig() ApertureConfig {
	return ApertureConfig{
		NumSlowTimes:    249,
		NumFastTimes:    251,
		CentreFrequency: 10e9,
		SampleFrequency: 300e6,
		StandoffRange:   2000,
		TrackLength:     60,
	}
}

// Aperture is the per-pulse geometry of a collection.
type Aperture struct {
	Transmit []r3.Vec
	Receive  []r3.Vec
	StabRef  []r3.Vec

	NumFastTimes    int
	CentreFrequency float64
	SampleFrequency float64
	LightSpeed      float64
}

// LinearAperture samples the track of cfg at NumSlowTimes evenly spaced
// positions from -TrackLength/2 to +TrackLength/2.
func LinearAperture(cfg ApertureConfig) (*Aperture, error) {
	if cfg.LightSpeed == 0 {
		cfg.LightSpeed = geometry.C0
	}
	switch {
	case cfg.NumSlowTimes <= 0 || cfg.NumFastTimes <= 0:
		return nil, fmt.Errorf("%w: %d pulses of %d samples", ErrInvalidAperture, cfg.NumSlowTimes, cfg.NumFastTimes)
	case !(cfg.SampleFrequency > 0) || !(cfg.CentreFrequency > 0):
		return nil, fmt.Errorf("%w: centre frequency %g Hz, sample frequency %g Hz", ErrInvalidAperture, cfg.CentreFrequency, cfg.SampleFrequency)
	case !(cfg.LightSpeed > 0):
		return nil, fmt.Errorf("%w: light speed %g", ErrInvalidAperture, cfg.LightSpeed)
	case cfg.TrackLength < 0 || math.IsNaN(cfg.TrackLength):
		return nil, fmt.Errorf("%w: track length %g", ErrInvalidAperture, cfg.TrackLength)
	}

	ns := cfg.NumSlowTimes
	ys := make([]float64, ns)
	if ns > 1 {
		floats.Span(ys, -cfg.TrackLength/2, cfg.TrackLength/2)
	}
	a := &Aperture{
		Transmit:        make([]r3.Vec, ns),
		Receive:         make([]r3.Vec, ns),
		StabRef:         make([]r3.Vec, ns),
		NumFastTimes:    cfg.NumFastTimes,
		CentreFrequency: cfg.CentreFrequency,
		SampleFrequency: cfg.SampleFrequency,
		LightSpeed:      cfg.LightSpeed,
	}
	for p, y := range ys {
		tx := r3.Vec{X: cfg.StandoffRange, Y: y, Z: cfg.Height}
		a.Transmit[p] = tx
		a.Receive[p] = r3.Add(tx, cfg.ReceiverOffset)
		a.StabRef[p] = cfg.Reference
	}
	return a, nil
}

// Len returns the number of pulses.
func (a *Aperture) Len() int { return len(a.Transmit) }

// Wavelength returns the centre wavelength in metres.
func (a *Aperture) Wavelength() float64 { return a.LightSpeed / a.CentreFrequency }

// RangeResolution returns the one-way range sample spacing c/(2·fs).
func (a *Aperture) RangeResolution() float64 { return a.LightSpeed / (2 * a.SampleFrequency) }

// AngularExtent returns the largest angle, in radians, between the bistatic
// look directions towards centre of any pulse and the first pulse.
func (a *Aperture) AngularExtent(centre r3.Vec) float64 {
	if a.Len() == 0 {
		return 0
	}
	first := a.look(0, centre)
	var widest float64
	for p := 1; p < a.Len(); p++ {
		cos := r3.Dot(first, a.look(p, centre))
		widest = math.Max(widest, math.Acos(math.Max(-1, math.Min(1, cos))))
	}
	return widest
}

// look is the unit bisector of the transmit and receive directions of pulse p.
func (a *Aperture) look(p int, centre r3.Vec) r3.Vec {
	tx := r3.Unit(r3.Sub(a.Transmit[p], centre))
	rx := r3.Unit(r3.Sub(a.Receive[p], centre))
	return r3.Unit(r3.Add(tx, rx))
}

// CrossRangeResolution returns λ/(2·Δθ) for the angular extent seen from
// centre. A single look direction gives +Inf.
func (a *Aperture) CrossRangeResolution(centre r3.Vec) float64 {
	extent := a.AngularExtent(centre)
	if extent == 0 {
		return math.Inf(1)
	}
	return a.Wavelength() / (2 * extent)
}

// Fill writes the aperture geometry and carrier parameters into info, whose
// pulse and fast-time counts must match.
func (a *Aperture) Fill(info *sar.CalculationInfo) error {
	if info.NumSlowTimes != a.Len() || info.NumFastTimes != a.NumFastTimes {
		return fmt.Errorf("%w: record holds %d×%d samples, aperture %d×%d",
			sar.ErrShape, info.NumSlowTimes, info.NumFastTimes, a.Len(), a.NumFastTimes)
	}
	copy(info.TransmitPosns, geometry.Flatten(a.Transmit))
	copy(info.ReceivePosns, geometry.Flatten(a.Receive))
	copy(info.StabRefPosns, geometry.Flatten(a.StabRef))
	info.CentreFrequency = a.CentreFrequency
	info.SampleFrequency = a.SampleFrequency
	info.CEff = a.LightSpeed
	return nil
}
