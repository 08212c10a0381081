package sar

import "fmt"

// ForwardEvaluate synthesizes info.PhaseHistory from the scatterers in info.
func ForwardEvaluate(info *CalculationInfo) error {
	w, err := WorkerFromRecord(info, 0)
	if err != nil {
		return fmt.Errorf("forward evaluate: %w", err)
	}
	defer w.Release()
	if err := w.SetupForwardEvaluate(); err != nil {
		return fmt.Errorf("forward evaluate: %w", err)
	}
	if err := w.ExecuteForwardEvaluate(); err != nil {
		return fmt.Errorf("forward evaluate: %w", err)
	}
	w.CopyIntoRecord(info)
	return nil
}

// AdjointEvaluate adds the back-projection of info.PhaseHistory to
// info.ScatteringAmplitudes.
func AdjointEvaluate(info *CalculationInfo) error {
	w, err := WorkerFromRecord(info, 0)
	if err != nil {
		return fmt.Errorf("adjoint evaluate: %w", err)
	}
	defer w.Release()
	if err := w.SetupAdjointEvaluate(); err != nil {
		return fmt.Errorf("adjoint evaluate: %w", err)
	}
	if err := w.ExecuteAdjointEvaluate(); err != nil {
		return fmt.Errorf("adjoint evaluate: %w", err)
	}
	w.CopyIntoRecord(info)
	return nil
}

// RoundaboutCopy runs forward then adjoint on a worker built from in and
// copies the resulting state into out.
func RoundaboutCopy(in, out *CalculationInfo) error {
	w, err := WorkerFromRecord(in, 0)
	if err != nil {
		return fmt.Errorf("roundabout copy: %w", err)
	}
	defer w.Release()
	if err := w.SetupForwardEvaluate(); err != nil {
		return fmt.Errorf("roundabout copy: %w", err)
	}
	if err := w.ExecuteForwardEvaluate(); err != nil {
		return fmt.Errorf("roundabout copy: %w", err)
	}
	if err := w.ExecuteAdjointEvaluate(); err != nil {
		return fmt.Errorf("roundabout copy: %w", err)
	}
	w.CopyIntoRecord(out)
	return nil
}

// ForwardCopy copies the measurement fields of in into out.
func ForwardCopy(in, out *CalculationInfo) error {
	m, err := MeasurementsFromRecord(in)
	if err != nil {
		return fmt.Errorf("forward copy: %w", err)
	}
	m.CopyIntoRecord(out)
	return nil
}

// AdjointCopy copies the hypothesis fields of in into out.
func AdjointCopy(in, out *CalculationInfo) error {
	h, err := HypothesisFromRecord(in)
	if err != nil {
		return fmt.Errorf("adjoint copy: %w", err)
	}
	h.CopyIntoRecord(out)
	return nil
}

// DirectCopy copies every field of in into out through a worker.
func DirectCopy(in, out *CalculationInfo) error {
	w, err := WorkerFromRecord(in, 0)
	if err != nil {
		return fmt.Errorf("direct copy: %w", err)
	}
	defer w.Release()
	w.CopyIntoRecord(out)
	return nil
}
