package dsp

import "math"

// Hamming returns a Hamming window of length n.
// If n is zero or negative, an empty slice is returned.
func Hamming(n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	if n == 1 {
		return []float64{1}
	}
	win := make([]float64, n)
	for i := 0; i < n; i++ {
		win[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return win
}

// Hann returns a symmetric Hann window of length n.
func Hann(n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	if n == 1 {
		return []float64{1}
	}
	win := make([]float64, n)
	for i := 0; i < n; i++ {
		win[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return win
}

// Rectangular returns n ones.
func Rectangular(n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	win := make([]float64, n)
	for i := range win {
		win[i] = 1
	}
	return win
}

// WindowByName resolves "hamming", "hann" or "rectangular" (also "" and "none").
func WindowByName(name string, n int) ([]float64, bool) {
	switch name {
	case "hamming":
		return Hamming(n), true
	case "hann", "hanning":
		return Hann(n), true
	case "", "none", "rectangular":
		return Rectangular(n), true
	default:
		return nil, false
	}
}

// ApplyWindow multiplies the input complex samples with the provided window.
// The window length must match the input length.
func ApplyWindow(samples []complex128, window []float64) []complex128 {
	if len(samples) != len(window) {
		return []complex128{}
	}
	out := make([]complex128, len(samples))
	for i, v := range samples {
		out[i] = complex(real(v)*window[i], imag(v)*window[i])
	}
	return out
}

// WindowWeights lifts a real taper to complex per-pulse gains.
func WindowWeights(window []float64) []complex128 {
	out := make([]complex128, len(window))
	for i, w := range window {
		out[i] = complex(w, 0)
	}
	return out
}

// TaperSpectrum weights an FFT-ordered spectrum with a window centred on DC.
// The window length must match the spectrum length.
func TaperSpectrum(spectrum []complex128, window []float64) ([]complex128, error) {
	if len(spectrum) != len(window) {
		return nil, ErrLengthMismatch
	}
	return IFFTShift(ApplyWindow(FFTShift(spectrum), window)), nil
}
