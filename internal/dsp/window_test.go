package dsp

import (
	"errors"
	"math"
	"testing"
)

func TestHamming(t *testing.T) {
	win := Hamming(4)
	expected := []float64{0.08, 0.77, 0.77, 0.08}
	if len(win) != len(expected) {
		t.Fatalf("unexpected length: %d", len(win))
	}
	for i := range expected {
		if math.Abs(win[i]-expected[i]) > 1e-6 {
			t.Fatalf("index %d expected %.2f got %.6f", i, expected[i], win[i])
		}
	}
}

func TestHann(t *testing.T) {
	win := Hann(5)
	expected := []float64{0, 0.5, 1, 0.5, 0}
	for i := range expected {
		if math.Abs(win[i]-expected[i]) > 1e-12 {
			t.Fatalf("index %d expected %.2f got %.6f", i, expected[i], win[i])
		}
	}
	if len(Hann(0)) != 0 || Hann(1)[0] != 1 {
		t.Fatalf("unexpected degenerate windows")
	}
}

func TestWindowByName(t *testing.T) {
	for _, name := range []string{"hamming", "hann", "rectangular", ""} {
		if win, ok := WindowByName(name, 8); !ok || len(win) != 8 {
			t.Fatalf("window %q not resolved", name)
		}
	}
	if _, ok := WindowByName("kaiser", 8); ok {
		t.Fatalf("expected unknown window to fail")
	}
}

func TestApplyWindow(t *testing.T) {
	samples := []complex128{1 + 1i, 2 + 0i}
	win := []float64{0.5, 0.25}
	out := ApplyWindow(samples, win)
	if len(out) != 2 {
		t.Fatalf("length mismatch")
	}
	if real(out[0]) != 0.5 || imag(out[0]) != 0.5 {
		t.Fatalf("unexpected first value %v", out[0])
	}
	if len(ApplyWindow(samples, []float64{1})) != 0 {
		t.Fatalf("expected empty slice when lengths differ")
	}
}

func TestWindowWeights(t *testing.T) {
	w := WindowWeights([]float64{0.5, 2})
	if len(w) != 2 || w[0] != 0.5 || w[1] != 2 {
		t.Fatalf("unexpected weights %v", w)
	}
}

func TestTaperSpectrumCentresOnDC(t *testing.T) {
	flat, err := FlatSpectrum(5)
	if err != nil {
		t.Fatalf("FlatSpectrum: %v", err)
	}
	win := Hamming(5)
	out, err := TaperSpectrum(flat, win)
	if err != nil {
		t.Fatalf("TaperSpectrum: %v", err)
	}
	expected := []float64{win[2], win[3], win[4], win[0], win[1]}
	for i, e := range expected {
		if math.Abs(real(out[i])-e) > 1e-12 || imag(out[i]) != 0 {
			t.Fatalf("bin %d expected %v got %v", i, e, out[i])
		}
	}
	if _, err := TaperSpectrum(flat, win[:4]); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}
