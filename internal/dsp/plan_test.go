package dsp

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"
)

func TestNewPlanValidation(t *testing.T) {
	if _, err := NewPlan(0, -1); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength got %v", err)
	}
	if _, err := NewPlan(8, 2); !errors.Is(err, ErrInvalidSign) {
		t.Fatalf("expected ErrInvalidSign got %v", err)
	}
}

func TestPlanSignConvention(t *testing.T) {
	const n = 8
	for _, sign := range []int{-1, 1} {
		plan, err := NewPlan(n, sign)
		if err != nil {
			t.Fatalf("NewPlan: %v", err)
		}
		buf := make([]complex128, n)
		buf[1] = 1
		if err := plan.Execute(buf, buf); err != nil {
			t.Fatalf("Execute: %v", err)
		}
		for k, v := range buf {
			want := cmplx.Exp(complex(0, float64(sign)*2*math.Pi*float64(k)/n))
			if cmplx.Abs(v-want) > 1e-12 {
				t.Fatalf("sign %d bin %d expected %v got %v", sign, k, want, v)
			}
		}
	}
}

func TestPlanRoundTripScalesByLength(t *testing.T) {
	const n = 12
	fwd, err := NewPlan(n, 1)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	inv, err := fwd.Inverse()
	if err != nil {
		t.Fatalf("Inverse: %v", err)
	}
	if inv.Sign() != -1 || inv.Len() != n {
		t.Fatalf("unexpected inverse plan sign=%d len=%d", inv.Sign(), inv.Len())
	}
	src := make([]complex128, n)
	for i := range src {
		src[i] = complex(float64(i), -float64(i*i)/3)
	}
	buf := append([]complex128(nil), src...)
	if err := fwd.Execute(buf, buf); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := inv.Execute(buf, buf); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for i := range src {
		if cmplx.Abs(buf[i]-n*src[i]) > 1e-9 {
			t.Fatalf("index %d expected %v got %v", i, n*src[i], buf[i])
		}
	}
}

func TestPlanLengthMismatch(t *testing.T) {
	plan, err := NewPlan(4, -1)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	if err := plan.Execute(make([]complex128, 4), make([]complex128, 3)); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch got %v", err)
	}
}

func BenchmarkPlanExecute(b *testing.B) {
	plan, err := NewPlan(4096, -1)
	if err != nil {
		b.Fatalf("NewPlan: %v", err)
	}
	buf := make([]complex128, 4096)
	for i := range buf {
		buf[i] = complex(float64(i), float64(i))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = plan.Execute(buf, buf)
	}
}
