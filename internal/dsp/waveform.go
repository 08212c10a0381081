package dsp

import (
	"fmt"
	"math"
	"math/cmplx"
)

// FlatSpectrum returns n unit coefficients, the spectrum of an ideal impulse.
func FlatSpectrum(n int) ([]complex128, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}
	out := make([]complex128, n)
	for i := range out {
		out[i] = 1
	}
	return out, nil
}

// BandLimitedSpectrum keeps the bins whose relative frequency lies within
// ±fraction/2 cycles per sample and zeroes the rest. Bins are in FFT order.
func BandLimitedSpectrum(n int, fraction float64) ([]complex128, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}
	if !(fraction > 0) || fraction > 1 {
		return nil, fmt.Errorf("band fraction %g outside (0, 1]", fraction)
	}
	freqs := FFTFreq(n, 1)
	out := make([]complex128, n)
	for i, f := range freqs {
		if math.Abs(f) <= fraction/2 {
			out[i] = 1
		}
	}
	return out, nil
}

// ChirpSpectrum returns the matched-filtered spectrum |S|² of a linear FM pulse
// of the given bandwidth and duration, sampled at sampleRate and zero padded to
// n points. The result is on FFT bin ordering and normalized to unit peak.
func ChirpSpectrum(n int, sampleRate, bandwidth, duration float64) ([]complex128, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}
	if sampleRate <= 0 || bandwidth <= 0 || duration <= 0 {
		return nil, fmt.Errorf("chirp needs positive sample rate, bandwidth and duration")
	}
	m := int(math.Round(duration * sampleRate))
	if m < 1 {
		m = 1
	}
	if m > n {
		return nil, fmt.Errorf("%w: chirp of %d samples exceeds transform length %d", ErrLengthMismatch, m, n)
	}
	rate := bandwidth / duration
	pulse := make([]complex128, n)
	for i := 0; i < m; i++ {
		t := (float64(i) - 0.5*float64(m-1)) / sampleRate
		pulse[i] = cmplx.Exp(complex(0, math.Pi*rate*t*t))
	}
	plan, err := NewPlan(n, -1)
	if err != nil {
		return nil, err
	}
	if err := plan.Execute(pulse, pulse); err != nil {
		return nil, err
	}
	peak := 0.0
	for i, v := range pulse {
		p := real(v)*real(v) + imag(v)*imag(v)
		pulse[i] = complex(p, 0)
		if p > peak {
			peak = p
		}
	}
	if peak > 0 {
		for i := range pulse {
			pulse[i] /= complex(peak, 0)
		}
	}
	return pulse, nil
}

// WaveformByName builds "flat", "band" (band-limited to fraction of the
// working band) or "chirp" spectra of length n.
func WaveformByName(name string, n int, sampleRate, bandwidth, duration float64) ([]complex128, error) {
	switch name {
	case "", "flat":
		return FlatSpectrum(n)
	case "band":
		return BandLimitedSpectrum(n, bandwidth/sampleRate)
	case "chirp":
		return ChirpSpectrum(n, sampleRate, bandwidth, duration)
	default:
		return nil, fmt.Errorf("unknown waveform %q", name)
	}
}
