package operator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"

	"gonum.org/v1/gonum/cmplxs"
)

// ErrDegenerate is returned when a probe vector maps to zero.
var ErrDegenerate = errors.New("operator: degenerate probe")

// DotTest draws random x and y and returns the relative adjoint mismatch
// |⟨Ax, y⟩ − ⟨x, Aᴴy⟩| / (‖Ax‖·‖y‖).
func DotTest(ctx context.Context, op Linear, rng *rand.Rand) (float64, error) {
	x := randomVector(rng, op.DomainLen())
	y := randomVector(rng, op.RangeLen())
	ax, err := op.Direct(ctx, x)
	if err != nil {
		return 0, fmt.Errorf("dot test: %w", err)
	}
	ay, err := op.Adjoint(ctx, y)
	if err != nil {
		return 0, fmt.Errorf("dot test: %w", err)
	}
	scale := cmplxs.Norm(ax, 2) * cmplxs.Norm(y, 2)
	if scale == 0 {
		return 0, ErrDegenerate
	}
	return cmplx.Abs(cmplxs.Dot(ax, y)-cmplxs.Dot(x, ay)) / scale, nil
}

// Norm estimates the spectral norm ‖A‖₂ by power iteration on AᴴA starting
// from a random vector.
func Norm(ctx context.Context, op Linear, iterations int, rng *rand.Rand) (float64, error) {
	if iterations <= 0 {
		return 0, fmt.Errorf("norm: iterations must be positive, got %d", iterations)
	}
	v := randomVector(rng, op.DomainLen())
	if len(v) == 0 {
		return 0, nil
	}
	cmplxs.Scale(complex(1/cmplxs.Norm(v, 2), 0), v)

	var lambda float64
	for i := 0; i < iterations; i++ {
		av, err := op.Direct(ctx, v)
		if err != nil {
			return 0, fmt.Errorf("norm: iteration %d: %w", i, err)
		}
		w, err := op.Adjoint(ctx, av)
		if err != nil {
			return 0, fmt.Errorf("norm: iteration %d: %w", i, err)
		}
		lambda = cmplxs.Norm(w, 2)
		if lambda == 0 {
			return 0, nil
		}
		cmplxs.Scale(complex(1/lambda, 0), w)
		v = w
	}
	return math.Sqrt(lambda), nil
}

func randomVector(rng *rand.Rand, n int) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		out[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	return out
}
