package dsp

import "errors"

// Sentinel errors returned by the FFT plans and spectrum builders.
var (
	// ErrInvalidLength is returned when a transform or window length is not positive.
	ErrInvalidLength = errors.New("dsp: invalid length")

	// ErrInvalidSign is returned when an FFT sign is neither +1 nor -1.
	ErrInvalidSign = errors.New("dsp: invalid FFT sign")

	// ErrLengthMismatch is returned when a buffer does not match the plan length.
	ErrLengthMismatch = errors.New("dsp: slice length mismatch")

	// ErrPlan is returned when the FFT backend could not build a plan.
	ErrPlan = errors.New("dsp: plan construction failed")
)
