package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FFTShift returns the FFT output shifted so that DC is centered.
func FFTShift(data []complex128) []complex128 {
	n := len(data)
	if n == 0 {
		return []complex128{}
	}
	half := (n + 1) / 2
	shifted := make([]complex128, 0, n)
	shifted = append(shifted, data[half:]...)
	shifted = append(shifted, data[:half]...)
	return shifted
}

// IFFTShift undoes FFTShift, moving the centred DC bin back to index 0.
func IFFTShift(data []complex128) []complex128 {
	n := len(data)
	if n == 0 {
		return []complex128{}
	}
	half := n / 2
	shifted := make([]complex128, 0, n)
	shifted = append(shifted, data[half:]...)
	shifted = append(shifted, data[:half]...)
	return shifted
}

// FFTFreq returns the centre frequency of every bin of an n-point transform
// sampled at sampleRate, in FFT ordering: non-negative frequencies first and
// negative frequencies in the upper half.
func FFTFreq(n int, sampleRate float64) []float64 {
	if n <= 0 {
		return []float64{}
	}
	fft := fourier.NewCmplxFFT(n)
	freqs := make([]float64, n)
	for i := range freqs {
		freqs[i] = fft.Freq(i) * sampleRate
	}
	return freqs
}

// MagnitudeDB converts samples to 20·log10(|x|/ref). Zero samples map to -Inf.
func MagnitudeDB(samples []complex128, ref float64) []float64 {
	if ref <= 0 {
		ref = 1
	}
	db := make([]float64, len(samples))
	for i, v := range samples {
		mag := cmplx.Abs(v)
		if mag == 0 {
			db[i] = math.Inf(-1)
			continue
		}
		db[i] = 20 * math.Log10(mag/ref)
	}
	return db
}

// PeakIndex returns the index of the largest magnitude in samples, or -1 when
// samples is empty.
func PeakIndex(samples []complex128) int {
	best := -1
	bestMag := -1.0
	for i, v := range samples {
		if mag := cmplx.Abs(v); mag > bestMag {
			bestMag = mag
			best = i
		}
	}
	return best
}
