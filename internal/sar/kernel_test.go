package sar

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"github.com/rjboer/sarsolver/internal/dsp"
	"gonum.org/v1/gonum/cmplxs"
)

func TestAdjointness(t *testing.T) {
	tests := []struct {
		name       string
		nf, ns, np int
		ratio      float64
		sign       float64
	}{
		{name: "large", nf: 64, ns: 32, np: 100, ratio: 1, sign: 1},
		{name: "upsampled", nf: 40, ns: 8, np: 30, ratio: 1.7, sign: 1},
		{name: "negative_sign", nf: 33, ns: 5, np: 17, ratio: 2, sign: -1},
		{name: "single", nf: 1, ns: 1, np: 1, ratio: 3, sign: 1},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewPCG(uint64(i), 7))
			info := randomRecord(t, rng, tt.nf, tt.ns, tt.np, tt.ratio, tt.sign)
			x := getComplex(t, info.ScatteringAmplitudes)
			fx := forward(t, info)

			y := randComplex(rng, tt.ns*tt.nf)
			setComplex(info.PhaseHistory, y)
			clear(info.ScatteringAmplitudes)
			ay := adjoint(t, info)

			lhs := cmplxs.Dot(fx, y)
			rhs := cmplxs.Dot(x, ay)
			scale := cmplxs.Norm(fx, 2) * cmplxs.Norm(y, 2)
			if scale == 0 {
				t.Fatalf("degenerate forward output")
			}
			if rel := cmplx.Abs(lhs-rhs) / scale; rel > 1e-9 {
				t.Fatalf("<Fx,y>=%v <x,F*y>=%v relative error %g", lhs, rhs, rel)
			}
		})
	}
}

func TestForwardLinearity(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	info := randomRecord(t, rng, 32, 6, 20, 1.5, 1)
	x1 := randComplex(rng, 20)
	x2 := randComplex(rng, 20)
	alpha, beta := complex(0.3, -1.2), complex(-2, 0.5)

	setComplex(info.ScatteringAmplitudes, x1)
	y1 := forward(t, info)
	setComplex(info.ScatteringAmplitudes, x2)
	y2 := forward(t, info)
	mixed := make([]complex128, 20)
	for i := range mixed {
		mixed[i] = alpha*x1[i] + beta*x2[i]
	}
	setComplex(info.ScatteringAmplitudes, mixed)
	got := forward(t, info)

	want := make([]complex128, len(y1))
	for i := range want {
		want[i] = alpha*y1[i] + beta*y2[i]
	}
	assertClose(t, "forward", got, want, 1e-12)
}

func TestAdjointLinearity(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	info := randomRecord(t, rng, 24, 4, 15, 1, -1)
	y1 := randComplex(rng, 24*4)
	y2 := randComplex(rng, 24*4)
	alpha, beta := complex(1.5, 0.25), complex(0, -3)

	run := func(y []complex128) []complex128 {
		setComplex(info.PhaseHistory, y)
		clear(info.ScatteringAmplitudes)
		return adjoint(t, info)
	}
	a1 := run(y1)
	a2 := run(y2)
	mixed := make([]complex128, len(y1))
	for i := range mixed {
		mixed[i] = alpha*y1[i] + beta*y2[i]
	}
	got := run(mixed)
	want := make([]complex128, len(a1))
	for i := range want {
		want[i] = alpha*a1[i] + beta*a2[i]
	}
	assertClose(t, "adjoint", got, want, 1e-12)
}

func TestZeroPreservation(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	info := randomRecord(t, rng, 16, 3, 9, 1.25, 1)
	clear(info.ScatteringAmplitudes)
	for i, v := range forward(t, info) {
		if v != 0 {
			t.Fatalf("forward(0) sample %d = %v", i, v)
		}
	}
	clear(info.PhaseHistory)
	for i, v := range adjoint(t, info) {
		if v != 0 {
			t.Fatalf("adjoint(0) amplitude %d = %v", i, v)
		}
	}
}

func TestMonostaticPointTarget(t *testing.T) {
	const nf = 16
	k0 := 2 * math.Pi * testCentreFreq / testLightSpeed

	t.Run("integer_bin", func(t *testing.T) {
		info := monostaticRecord(t, nf, 5, []float64{0}, []complex128{1})
		row := forward(t, info)
		want := make([]complex128, nf)
		want[5] = nf * cmplx.Exp(complex(0, k0*10))
		assertClose(t, "row", row, want, 1e-12)
	})

	t.Run("fractional_bin", func(t *testing.T) {
		info := monostaticRecord(t, nf, 5.25, []float64{0}, []complex128{2i})
		row := forward(t, info)
		carrier := cmplx.Exp(complex(0, k0*10.5))
		want := make([]complex128, nf)
		want[5] = nf * 2i * carrier * 0.75
		want[6] = nf * 2i * carrier * 0.25
		assertClose(t, "row", row, want, 1e-12)
	})

	t.Run("band_limited_peak", func(t *testing.T) {
		info := monostaticRecord(t, nf, 5, []float64{0}, []complex128{1})
		w, err := dsp.BandLimitedSpectrum(nf, 0.5)
		if err != nil {
			t.Fatalf("BandLimitedSpectrum: %v", err)
		}
		setComplex(info.WaveformFFT, w)
		row := forward(t, info)
		if idx := dsp.PeakIndex(row); idx != 5 {
			t.Fatalf("expected sinc peak at bin 5 got %d", idx)
		}
		if row[4] == 0 || row[6] == 0 {
			t.Fatalf("band limiting should spread energy into neighbours: %v", row)
		}
	})

	t.Run("wraps_negative_range", func(t *testing.T) {
		// Reference 2 m beyond the scatterer: residual range -4 m.
		info := monostaticRecord(t, nf, 5, []float64{0}, []complex128{1})
		copy(info.StabRefPosns, []float64{-2, 0, 0})
		row := forward(t, info)
		if idx := dsp.PeakIndex(row); idx != nf-2 {
			t.Fatalf("expected wrapped peak at bin %d got %d", nf-2, idx)
		}
	})
}

func TestCoincidentScatterersAdd(t *testing.T) {
	a, b := complex(1, 2), complex(-0.5, 0.75)
	pair := monostaticRecord(t, 32, 9.3, []float64{1.1, 1.1}, []complex128{a, b})
	single := monostaticRecord(t, 32, 9.3, []float64{1.1}, []complex128{a + b})
	assertClose(t, "pair", forward(t, pair), forward(t, single), 1e-12)
}

func TestEmptyHypothesis(t *testing.T) {
	rng := rand.New(rand.NewPCG(8, 9))
	info := randomRecord(t, rng, 16, 4, 0, 1, 1)
	setComplex(info.PhaseHistory, randComplex(rng, 64))
	for i, v := range forward(t, info) {
		if v != 0 {
			t.Fatalf("sample %d = %v, expected zero cube", i, v)
		}
	}
	if got := adjoint(t, info); len(got) != 0 {
		t.Fatalf("expected no amplitudes got %v", got)
	}
}

func TestAdjointAccumulates(t *testing.T) {
	rng := rand.New(rand.NewPCG(10, 11))
	info := randomRecord(t, rng, 20, 5, 12, 1.5, 1)
	setComplex(info.PhaseHistory, randComplex(rng, 100))
	clear(info.ScatteringAmplitudes)
	once := adjoint(t, info)
	twice := adjoint(t, info)
	want := make([]complex128, len(once))
	for i := range once {
		want[i] = 2 * once[i]
	}
	assertClose(t, "accumulated", twice, want, 1e-12)
}

func TestSignDuality(t *testing.T) {
	rng := rand.New(rand.NewPCG(12, 13))
	plus := randomRecord(t, rng, 30, 4, 10, 1.3, 1)
	amps := make([]complex128, 10)
	for i := range amps {
		amps[i] = complex(rng.NormFloat64(), 0)
	}
	setComplex(plus.ScatteringAmplitudes, amps)

	minus := plus.Clone()
	minus.SignMultiplier = -1
	for i := 1; i < len(minus.WaveformFFT); i += 2 {
		minus.WaveformFFT[i] = -minus.WaveformFFT[i]
	}
	for i := 1; i < len(minus.SlowTimeWeighting); i += 2 {
		minus.SlowTimeWeighting[i] = -minus.SlowTimeWeighting[i]
	}

	yPlus := forward(t, plus)
	yMinus := forward(t, minus)
	conj := make([]complex128, len(yPlus))
	for i, v := range yPlus {
		conj[i] = cmplx.Conj(v)
	}
	assertClose(t, "conjugate cube", yMinus, conj, 1e-12)
}

func TestStabilizationShiftIsCircularShift(t *testing.T) {
	const nf = 32
	rng := rand.New(rand.NewPCG(14, 15))
	info, err := NewCalculationInfo(nf, 1, 6, testCentreFreq, testSampleFreq, testLightSpeed, 1, 1)
	if err != nil {
		t.Fatalf("NewCalculationInfo: %v", err)
	}
	copy(info.TransmitPosns, []float64{1000, 0, 0})
	copy(info.ReceivePosns, []float64{1000, 0, 0})
	for q := 0; q < 6; q++ {
		copy(info.ScatPosns[3*q:], []float64{10 * (rng.Float64() - 0.5), 10 * (rng.Float64() - 0.5), 0})
	}
	setComplex(info.ScatteringAmplitudes, randComplex(rng, 6))
	setComplex(info.WaveformFFT, randComplex(rng, nf))
	base := forward(t, info)

	// Moving the reference 5 m further away adds 10 m of bistatic range,
	// i.e. 5 bins at this sample rate.
	shifted := info.Clone()
	copy(shifted.StabRefPosns, []float64{-5, 0, 0})
	got := forward(t, shifted)

	k0 := 2 * math.Pi * testCentreFreq / testLightSpeed
	phase := cmplx.Exp(complex(0, -k0*10))
	want := make([]complex128, nf)
	for i := range want {
		want[i] = base[(i+5)%nf] * phase
	}
	assertClose(t, "shifted", got, want, 1e-9)
	if e0, e1 := cmplxs.Norm(base, 2), cmplxs.Norm(got, 2); math.Abs(e0-e1) > 1e-9*e0 {
		t.Fatalf("energy changed from %g to %g", e0, e1)
	}
}

func TestRoundTripPeaksAtScatterer(t *testing.T) {
	xs := []float64{-6, -2, 2, 6}
	for q := range xs {
		amps := make([]complex128, len(xs))
		amps[q] = 1
		single := monostaticRecord(t, 32, 20, xs, amps)
		forward(t, single)
		clear(single.ScatteringAmplitudes)
		psf := adjoint(t, single)
		if idx := dsp.PeakIndex(psf); idx != q {
			t.Fatalf("point spread of scatterer %d peaks at %d: %v", q, idx, psf)
		}

		// Three identical pulses triple the peak.
		triple, err := NewCalculationInfo(32, 3, len(xs), testCentreFreq, testSampleFreq, testLightSpeed, 1, 1)
		if err != nil {
			t.Fatalf("NewCalculationInfo: %v", err)
		}
		for p := 0; p < 3; p++ {
			copy(triple.TransmitPosns[3*p:], single.TransmitPosns)
			copy(triple.ReceivePosns[3*p:], single.ReceivePosns)
			copy(triple.StabRefPosns[3*p:], single.StabRefPosns)
		}
		copy(triple.ScatPosns, single.ScatPosns)
		setComplex(triple.ScatteringAmplitudes, amps)
		forward(t, triple)
		clear(triple.ScatteringAmplitudes)
		psf3 := adjoint(t, triple)
		if ratio := cmplx.Abs(psf3[q]) / cmplx.Abs(psf[q]); math.Abs(ratio-3) > 1e-9 {
			t.Fatalf("expected peak to scale with pulse count, ratio %f", ratio)
		}
	}
}

func BenchmarkForwardEvaluate(b *testing.B) {
	rng := rand.New(rand.NewPCG(1, 1))
	info := randomRecord(b, rng, 256, 64, 400, 1.5, 1)
	w, err := WorkerFromRecord(info, 0)
	if err != nil {
		b.Fatalf("WorkerFromRecord: %v", err)
	}
	if err := w.SetupForwardEvaluate(); err != nil {
		b.Fatalf("setup: %v", err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := w.ExecuteForwardEvaluate(); err != nil {
			b.Fatalf("forward: %v", err)
		}
	}
}
