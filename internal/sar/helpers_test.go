package sar

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/cmplxs"
)

const (
	testLightSpeed = 3e8
	testSampleFreq = 1.5e8 // half a working bin per metre of bistatic range at u=1
	testCentreFreq = 1e9
)

func randComplex(rng *rand.Rand, n int) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		out[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	return out
}

func setComplex(dst []float64, src []complex128) {
	for i, v := range src {
		dst[2*i] = real(v)
		dst[2*i+1] = imag(v)
	}
}

func getComplex(t testing.TB, src []float64) []complex128 {
	t.Helper()
	view, err := complexView(src)
	if err != nil {
		t.Fatalf("complexView: %v", err)
	}
	return append([]complex128(nil), view...)
}

// randomRecord builds a side-looking bistatic aperture around the origin with
// random scatterers, waveform spectrum and slow-time weighting.
func randomRecord(t testing.TB, rng *rand.Rand, nf, ns, np int, ratio float64, sign float64) *CalculationInfo {
	t.Helper()
	info, err := NewCalculationInfo(nf, ns, np, testCentreFreq, testSampleFreq, testLightSpeed, ratio, sign)
	if err != nil {
		t.Fatalf("NewCalculationInfo: %v", err)
	}
	for p := 0; p < ns; p++ {
		y := -30 + 60*float64(p)/float64(ns)
		copy(info.TransmitPosns[3*p:], []float64{2000, y, 500})
		copy(info.ReceivePosns[3*p:], []float64{1800, y + 100, 300})
		copy(info.StabRefPosns[3*p:], []float64{rng.Float64(), rng.Float64(), 0})
	}
	for q := 0; q < np; q++ {
		copy(info.ScatPosns[3*q:], []float64{40 * (rng.Float64() - 0.5), 40 * (rng.Float64() - 0.5), 2 * rng.Float64()})
	}
	setComplex(info.ScatteringAmplitudes, randComplex(rng, np))
	setComplex(info.WaveformFFT, randComplex(rng, WorkingFastTimes(nf, ratio)))
	setComplex(info.SlowTimeWeighting, randComplex(rng, ns))
	return info
}

// monostaticRecord places one pulse at (d, 0, 0) looking at scatterers on the
// x axis. The stabilization point is the antenna, so residual ranges are the
// full two-way ranges.
func monostaticRecord(t testing.TB, nf int, d float64, xs []float64, amps []complex128) *CalculationInfo {
	t.Helper()
	info, err := NewCalculationInfo(nf, 1, len(xs), testCentreFreq, testSampleFreq, testLightSpeed, 1, 1)
	if err != nil {
		t.Fatalf("NewCalculationInfo: %v", err)
	}
	copy(info.TransmitPosns, []float64{d, 0, 0})
	copy(info.ReceivePosns, []float64{d, 0, 0})
	copy(info.StabRefPosns, []float64{d, 0, 0})
	for q, x := range xs {
		info.ScatPosns[3*q] = x
	}
	setComplex(info.ScatteringAmplitudes, amps)
	return info
}

func forward(t testing.TB, info *CalculationInfo) []complex128 {
	t.Helper()
	if err := ForwardEvaluate(info); err != nil {
		t.Fatalf("ForwardEvaluate: %v", err)
	}
	return getComplex(t, info.PhaseHistory)
}

func adjoint(t testing.TB, info *CalculationInfo) []complex128 {
	t.Helper()
	if err := AdjointEvaluate(info); err != nil {
		t.Fatalf("AdjointEvaluate: %v", err)
	}
	return getComplex(t, info.ScatteringAmplitudes)
}

func assertClose(t testing.TB, name string, got, want []complex128, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %d samples got %d", name, len(want), len(got))
	}
	scale := math.Max(cmplxs.Norm(want, 2), 1)
	for i := range got {
		if cmplx.Abs(got[i]-want[i]) > tol*scale {
			t.Fatalf("%s: index %d expected %v got %v", name, i, want[i], got[i])
		}
	}
}
