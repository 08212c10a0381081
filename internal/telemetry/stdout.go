package telemetry

import (
	"time"

	"github.com/rjboer/sarsolver/internal/logging"
)

// Sample describes one operator evaluation.
type Sample struct {
	Timestamp  time.Time `json:"timestamp"`
	Direction  string    `json:"direction"`
	Pulses     int       `json:"pulses"`
	Scatterers int       `json:"scatterers"`
	Partitions int       `json:"partitions"`
	DurationMs float64   `json:"durationMs"`
	OutputNorm float64   `json:"outputNorm"`
	Err        string    `json:"error,omitempty"`
}

// Directions reported by the operator.
const (
	DirectionForward = "forward"
	DirectionAdjoint = "adjoint"
)

// Reporter captures telemetry events.
type Reporter interface {
	Report(sample Sample)
}

// MultiReporter fans out telemetry to multiple destinations.
type MultiReporter []Reporter

// Report forwards the sample to each configured reporter.
func (m MultiReporter) Report(sample Sample) {
	for _, r := range m {
		if r != nil {
			r.Report(sample)
		}
	}
}

// StdoutReporter writes evaluation samples through a logger.
type StdoutReporter struct {
	logger logging.Logger
}

// NewStdoutReporter builds a stdout reporter with the provided logger.
func NewStdoutReporter(logger logging.Logger) StdoutReporter {
	if logger == nil {
		logger = logging.Default()
	}
	return StdoutReporter{logger: logger}
}

func (r StdoutReporter) Report(sample Sample) {
	fields := []logging.Field{
		{Key: "subsystem", Value: "telemetry"},
		{Key: "direction", Value: sample.Direction},
		{Key: "pulses", Value: sample.Pulses},
		{Key: "scatterers", Value: sample.Scatterers},
		{Key: "duration_ms", Value: sample.DurationMs},
	}
	if sample.Partitions > 1 {
		fields = append(fields, logging.Field{Key: "partitions", Value: sample.Partitions})
	}
	if sample.OutputNorm != 0 {
		fields = append(fields, logging.Field{Key: "output_norm", Value: sample.OutputNorm})
	}
	if sample.Err != "" {
		fields = append(fields, logging.Field{Key: "error", Value: sample.Err})
		r.logger.Warn("evaluation failed", fields...)
		return
	}
	r.logger.Info("evaluation sample", fields...)
}
