package sar

import "errors"

// Sentinel errors returned when building or running a worker.
var (
	// ErrShape is returned when sizes are non-positive or a buffer length does
	// not match the declared shape.
	ErrShape = errors.New("sar: shape violation")

	// ErrSign is returned when the sign multiplier is neither +1 nor -1.
	ErrSign = errors.New("sar: sign multiplier must be +1 or -1")

	// ErrUpsample is returned when the upsample ratio is below 1 or not finite.
	ErrUpsample = errors.New("sar: upsample ratio must be finite and >= 1")

	// ErrParameter is returned for non-positive propagation speed or sample frequency.
	ErrParameter = errors.New("sar: invalid scalar parameter")

	// ErrAlias is returned when the phase history and the scatterer amplitudes
	// share memory.
	ErrAlias = errors.New("sar: phase history aliases scatterer amplitudes")

	// ErrPlan is returned when the FFT plans could not be built. The worker
	// stays un-runnable.
	ErrPlan = errors.New("sar: FFT plan construction failed")

	// ErrNotSetup is returned by the evaluate calls before setup succeeded.
	ErrNotSetup = errors.New("sar: worker not set up")
)
