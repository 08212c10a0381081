// Package app wires apertures, scenes and the partitioned operator into a
// simulate / back-project / verify session.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/cmplx"
	"math/rand/v2"
	"time"

	"github.com/rjboer/sarsolver/internal/dsp"
	"github.com/rjboer/sarsolver/internal/logging"
	"github.com/rjboer/sarsolver/internal/operator"
	"github.com/rjboer/sarsolver/internal/scene"
	"github.com/rjboer/sarsolver/internal/telemetry"
	"gonum.org/v1/gonum/spatial/r3"
)

// Target is a point scatterer placed in the simulated scene. It is snapped
// to the nearest grid sample.
type Target struct {
	Position  r3.Vec
	Amplitude complex128
}

// Config captures session level configuration. Zero values select defaults
// in Init.
type Config struct {
	Aperture       scene.ApertureConfig
	SceneCentre    r3.Vec
	SceneExtents   [3]float64 // m, xyz
	SafetyFactor   float64
	UpsampleRatio  float64
	Sign           int
	Waveform       string  // flat | band | chirp
	Bandwidth      float64 // Hz
	PulseDuration  float64 // s
	Window         string  // slow-time taper: rectangular | hamming | hann
	RangeWindow    string  // fast-time taper applied to the waveform spectrum
	Targets        []Target
	NoiseStd       float64
	Partitions     int
	Concurrency    int
	NormIterations int
	Seed           uint64
}

// Summary reports the outcome of one Run.
type Summary struct {
	Pulses     int
	FastTimes  int
	Scatterers int
	Partitions int

	TargetIndices []int
	PeakIndex     int
	PeakPosition  r3.Vec
	PeakMagnitude float64
	Image         []complex128 // back-projected amplitudes, one per grid sample

	DotTestError float64
	Norm         float64

	ForwardDuration time.Duration
	AdjointDuration time.Duration
	VerifyDuration  time.Duration
}

// Session owns the operator built for one configuration.
type Session struct {
	cfg      Config
	reporter telemetry.Reporter
	logger   logging.Logger

	aperture *scene.Aperture
	grid     *scene.Grid
	op       *operator.Operator
	rng      *rand.Rand
}

// NewSession stores the configuration; call Init before Run.
func NewSession(reporter telemetry.Reporter, logger logging.Logger, cfg Config) *Session {
	if logger == nil {
		logger = logging.Default()
	}
	return &Session{
		cfg:      cfg,
		reporter: reporter,
		logger:   logger.With(logging.F("subsystem", "session")),
	}
}

// Init applies defaults and builds the aperture, scene grid and operator.
func (s *Session) Init(ctx context.Context) error {
	if s.cfg.Aperture.NumSlowTimes == 0 {
		s.cfg.Aperture = scene.DefaultApertureConfig()
	}
	if s.cfg.SceneExtents == ([3]float64{}) {
		s.cfg.SceneExtents = [3]float64{20, 20, 0}
	}
	if s.cfg.SafetyFactor == 0 {
		s.cfg.SafetyFactor = 2
	}
	if s.cfg.UpsampleRatio == 0 {
		s.cfg.UpsampleRatio = 1
	}
	if s.cfg.Sign == 0 {
		s.cfg.Sign = 1
	}
	if s.cfg.Waveform == "" {
		s.cfg.Waveform = "flat"
	}
	if s.cfg.NormIterations == 0 {
		s.cfg.NormIterations = 10
	}
	if len(s.cfg.Targets) == 0 {
		s.cfg.Targets = []Target{{Position: s.cfg.SceneCentre, Amplitude: 1}}
	}
	if s.cfg.Seed == 0 {
		s.cfg.Seed = 1
	}
	s.rng = rand.New(rand.NewPCG(s.cfg.Seed, s.cfg.Seed^0x5a5a))

	aperture, err := scene.LinearAperture(s.cfg.Aperture)
	if err != nil {
		return fmt.Errorf("build aperture: %w", err)
	}
	grid, err := scene.GridFromAperture(aperture, s.cfg.SceneCentre, s.cfg.SceneExtents, s.cfg.SafetyFactor)
	if err != nil {
		return fmt.Errorf("build scene: %w", err)
	}
	record, err := scene.Record(aperture, grid, s.cfg.UpsampleRatio, float64(s.cfg.Sign))
	if err != nil {
		return fmt.Errorf("build record: %w", err)
	}

	working := record.SampleFrequency * record.UpsampleRatio
	spectrum, err := dsp.WaveformByName(s.cfg.Waveform, len(record.WaveformFFT)/2, working, s.cfg.Bandwidth, s.cfg.PulseDuration)
	if err != nil {
		return fmt.Errorf("build waveform: %w", err)
	}
	rangeWindow, ok := dsp.WindowByName(s.cfg.RangeWindow, len(spectrum))
	if !ok {
		return fmt.Errorf("unknown range window %q", s.cfg.RangeWindow)
	}
	if spectrum, err = dsp.TaperSpectrum(spectrum, rangeWindow); err != nil {
		return fmt.Errorf("taper waveform: %w", err)
	}
	window, ok := dsp.WindowByName(s.cfg.Window, aperture.Len())
	if !ok {
		return fmt.Errorf("unknown slow-time window %q", s.cfg.Window)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	op, err := operator.New(record, operator.Options{
		Partitions:  s.cfg.Partitions,
		Concurrency: s.cfg.Concurrency,
		Logger:      s.logger,
		Reporter:    s.reporter,
	})
	if err != nil {
		return fmt.Errorf("build operator: %w", err)
	}
	if err := op.SetWaveform(spectrum); err != nil {
		op.Close()
		return fmt.Errorf("install waveform: %w", err)
	}
	if err := op.SetSlowTimeWeighting(dsp.WindowWeights(window)); err != nil {
		op.Close()
		return fmt.Errorf("install weighting: %w", err)
	}

	s.Close()
	s.aperture, s.grid, s.op = aperture, grid, op
	s.logger.Info("session initialised",
		logging.F("pulses", aperture.Len()),
		logging.F("fast_times", aperture.NumFastTimes),
		logging.F("scatterers", grid.Len()),
		logging.F("grid", grid.Counts),
		logging.F("spacing_m", grid.Spacing[0]),
		logging.F("waveform", s.cfg.Waveform),
		logging.F("window", s.cfg.Window),
		logging.F("range_window", s.cfg.RangeWindow))
	return nil
}

// Run simulates the configured targets, back-projects the noisy phase
// history and verifies the operator pair.
func (s *Session) Run(ctx context.Context) (Summary, error) {
	if s.op == nil {
		return Summary{}, errors.New("session not initialised")
	}
	sum := Summary{
		Pulses:     s.aperture.Len(),
		FastTimes:  s.aperture.NumFastTimes,
		Scatterers: s.grid.Len(),
		Partitions: s.op.Partitions(),
	}

	truth := make([]complex128, s.grid.Len())
	for _, tgt := range s.cfg.Targets {
		idx := s.grid.Nearest(tgt.Position)
		truth[idx] += tgt.Amplitude
		sum.TargetIndices = append(sum.TargetIndices, idx)
	}

	start := time.Now()
	cube, err := s.op.Direct(ctx, truth)
	if err != nil {
		return sum, fmt.Errorf("simulate: %w", err)
	}
	sum.ForwardDuration = time.Since(start)
	if s.cfg.NoiseStd > 0 {
		for i := range cube {
			cube[i] += complex(s.cfg.NoiseStd*s.rng.NormFloat64(), s.cfg.NoiseStd*s.rng.NormFloat64())
		}
	}

	start = time.Now()
	image, err := s.op.Adjoint(ctx, cube)
	if err != nil {
		return sum, fmt.Errorf("back-project: %w", err)
	}
	sum.AdjointDuration = time.Since(start)
	sum.Image = image
	sum.PeakIndex = dsp.PeakIndex(image)
	if sum.PeakIndex >= 0 {
		sum.PeakPosition = s.grid.Points[sum.PeakIndex]
		sum.PeakMagnitude = cmplx.Abs(image[sum.PeakIndex])
	}

	start = time.Now()
	if sum.DotTestError, err = operator.DotTest(ctx, s.op, s.rng); err != nil {
		return sum, err
	}
	if s.cfg.NormIterations > 0 {
		if sum.Norm, err = operator.Norm(ctx, s.op, s.cfg.NormIterations, s.rng); err != nil {
			return sum, err
		}
	}
	sum.VerifyDuration = time.Since(start)

	s.logger.Info("session complete",
		logging.F("peak_index", sum.PeakIndex),
		logging.F("peak_position", sum.PeakPosition),
		logging.F("peak_magnitude", sum.PeakMagnitude),
		logging.F("dot_test_error", sum.DotTestError),
		logging.F("norm", sum.Norm),
		logging.F("forward_ms", sum.ForwardDuration.Seconds()*1000),
		logging.F("adjoint_ms", sum.AdjointDuration.Seconds()*1000))
	return sum, nil
}

// Config returns the configuration with defaults applied.
func (s *Session) Config() Config { return s.cfg }

// Grid returns the scene grid built by Init.
func (s *Session) Grid() *scene.Grid { return s.grid }

// Close releases the operator.
func (s *Session) Close() {
	if s.op != nil {
		s.op.Close()
		s.op = nil
	}
}
