// Package operator composes sar workers into a linear operator over the whole
// collection: pulses are split into contiguous partitions evaluated by a
// bounded goroutine pool.
package operator

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rjboer/sarsolver/internal/logging"
	"github.com/rjboer/sarsolver/internal/sar"
	"github.com/rjboer/sarsolver/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/cmplxs"
)

const tracerName = "github.com/rjboer/sarsolver/internal/operator"

// ErrClosed is returned by evaluations after Close.
var ErrClosed = errors.New("operator: closed")

// Linear is a linear map between scatterer amplitudes and phase-history
// cubes together with its adjoint.
type Linear interface {
	DomainLen() int
	RangeLen() int
	Direct(ctx context.Context, x []complex128) ([]complex128, error)
	Adjoint(ctx context.Context, y []complex128) ([]complex128, error)
}

// Options tunes partitioning and observability.
type Options struct {
	Partitions  int // zero selects runtime.NumCPU(); capped at the pulse count
	Concurrency int // zero selects Partitions
	Logger      logging.Logger
	Reporter    telemetry.Reporter
	Tracer      trace.Tracer
}

type partition struct {
	first, count int
	worker       *sar.Worker
}

// Operator is the Born forward operator of one collection and scatterer set.
// Calls are serialized; the parallelism is across partitions of one call.
type Operator struct {
	mu sync.Mutex

	numFastTimes  int
	numSlowTimes  int
	numScatterers int

	record      *sar.CalculationInfo
	cube        []complex128
	partitions  []partition
	concurrency int

	logger   logging.Logger
	reporter telemetry.Reporter
	tracer   trace.Tracer
	closed   bool
}

// New copies template and builds one worker per partition. The template's
// phase history and amplitudes are not used.
func New(template *sar.CalculationInfo, opts Options) (*Operator, error) {
	if err := template.Validate(); err != nil {
		return nil, fmt.Errorf("operator: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	ns := template.NumSlowTimes
	parts := opts.Partitions
	if parts <= 0 {
		parts = runtime.NumCPU()
	}
	parts = max(1, min(parts, ns))
	conc := opts.Concurrency
	if conc <= 0 || conc > parts {
		conc = parts
	}

	rec := template.Clone()
	clear(rec.PhaseHistory)
	cube, err := rec.PhaseHistoryComplex()
	if err != nil {
		return nil, fmt.Errorf("operator: %w", err)
	}
	op := &Operator{
		numFastTimes:  template.NumFastTimes,
		numSlowTimes:  ns,
		numScatterers: template.NumScatterers,
		record:        rec,
		cube:          cube,
		concurrency:   conc,
		logger:        opts.Logger.With(logging.F("subsystem", "operator")),
		reporter:      opts.Reporter,
		tracer:        opts.Tracer,
	}

	first := 0
	for i := 0; i < parts; i++ {
		count := ns / parts
		if i < ns%parts {
			count++
		}
		w, err := sar.WorkerFromRecord(slicePulses(rec, first, count), i)
		if err == nil {
			w.SetLogger(op.logger)
			err = w.SetupForwardEvaluate()
		}
		if err != nil {
			op.Close()
			return nil, fmt.Errorf("operator: partition %d: %w", i, err)
		}
		op.partitions = append(op.partitions, partition{first: first, count: count, worker: w})
		first += count
	}

	op.logger.Info("operator ready",
		logging.F("pulses", ns),
		logging.F("fast_times", op.numFastTimes),
		logging.F("scatterers", op.numScatterers),
		logging.F("partitions", parts),
		logging.F("concurrency", conc))
	return op, nil
}

// slicePulses returns a record sharing rec's geometry, waveform and phase
// history for pulses [first, first+count), with private amplitudes.
func slicePulses(rec *sar.CalculationInfo, first, count int) *sar.CalculationInfo {
	nf := rec.NumFastTimes
	sub := *rec
	sub.NumSlowTimes = count
	sub.TransmitPosns = rec.TransmitPosns[3*first : 3*(first+count)]
	sub.ReceivePosns = rec.ReceivePosns[3*first : 3*(first+count)]
	sub.StabRefPosns = rec.StabRefPosns[3*first : 3*(first+count)]
	sub.SlowTimeWeighting = rec.SlowTimeWeighting[2*first : 2*(first+count)]
	sub.PhaseHistory = rec.PhaseHistory[2*nf*first : 2*nf*(first+count)]
	sub.ScatteringAmplitudes = make([]float64, 2*rec.NumScatterers)
	return &sub
}

// DomainLen returns the number of scatterers.
func (o *Operator) DomainLen() int { return o.numScatterers }

// RangeLen returns the number of phase-history samples.
func (o *Operator) RangeLen() int { return o.numSlowTimes * o.numFastTimes }

// Partitions returns the number of pulse partitions.
func (o *Operator) Partitions() int { return len(o.partitions) }

// Direct synthesizes the phase-history cube, pulse-major, for amplitudes x.
func (o *Operator) Direct(ctx context.Context, x []complex128) ([]complex128, error) {
	if len(x) != o.numScatterers {
		return nil, fmt.Errorf("%w: %d amplitudes, want %d", sar.ErrShape, len(x), o.numScatterers)
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []complex128
	err := o.evaluate(ctx, telemetry.DirectionForward, func() ([]complex128, error) {
		for _, p := range o.partitions {
			copy(p.worker.Hypothesis().ScatAmps(), x)
		}
		if err := o.run(ctx, (*sar.Worker).ExecuteForwardEvaluate); err != nil {
			return nil, err
		}
		out = append([]complex128(nil), o.cube...)
		return out, nil
	})
	return out, err
}

// Adjoint back-projects the cube y onto the scatterers. Partition
// contributions are summed in pulse order.
func (o *Operator) Adjoint(ctx context.Context, y []complex128) ([]complex128, error) {
	if len(y) != o.RangeLen() {
		return nil, fmt.Errorf("%w: %d samples, want %d", sar.ErrShape, len(y), o.RangeLen())
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []complex128
	err := o.evaluate(ctx, telemetry.DirectionAdjoint, func() ([]complex128, error) {
		copy(o.cube, y)
		for _, p := range o.partitions {
			p.worker.Hypothesis().Zero()
		}
		if err := o.run(ctx, (*sar.Worker).ExecuteAdjointEvaluate); err != nil {
			return nil, err
		}
		out = make([]complex128, o.numScatterers)
		for _, p := range o.partitions {
			for q, a := range p.worker.Hypothesis().ScatAmps() {
				out[q] += a
			}
		}
		return out, nil
	})
	return out, err
}

// evaluate wraps one operator application in a span, a telemetry sample and
// a debug log line.
func (o *Operator) evaluate(ctx context.Context, direction string, body func() ([]complex128, error)) error {
	if o.closed {
		return ErrClosed
	}
	ctx, span := o.tracer.Start(ctx, "operator."+direction, trace.WithAttributes(
		attribute.Int("sar.pulses", o.numSlowTimes),
		attribute.Int("sar.fast_times", o.numFastTimes),
		attribute.Int("sar.scatterers", o.numScatterers),
		attribute.Int("sar.partitions", len(o.partitions)),
	))
	defer span.End()

	start := time.Now()
	out, err := body()
	elapsed := time.Since(start)

	sample := telemetry.Sample{
		Timestamp:  start,
		Direction:  direction,
		Pulses:     o.numSlowTimes,
		Scatterers: o.numScatterers,
		Partitions: len(o.partitions),
		DurationMs: float64(elapsed) / float64(time.Millisecond),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		sample.Err = err.Error()
	} else {
		sample.OutputNorm = cmplxs.Norm(out, 2)
	}
	if o.reporter != nil {
		o.reporter.Report(sample)
	}
	o.logger.Debug("evaluation complete",
		logging.F("direction", direction),
		logging.F("duration", elapsed),
		logging.F("error", sample.Err))
	return err
}

// run executes fn on every partition with a pool of o.concurrency goroutines.
// Partitions not yet started when ctx is done are skipped with ctx.Err().
func (o *Operator) run(ctx context.Context, fn func(*sar.Worker) error) error {
	errs := make([]error, len(o.partitions))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < o.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					continue
				}
				if err := fn(o.partitions[i].worker); err != nil {
					errs[i] = fmt.Errorf("partition %d: %w", i, err)
				}
			}
		}()
	}
	for i := range o.partitions {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// SetWaveform replaces the waveform spectrum of every partition.
func (o *Operator) SetWaveform(spectrum []complex128) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	w, err := o.record.WaveformComplex()
	if err != nil {
		return err
	}
	if len(spectrum) != len(w) {
		return fmt.Errorf("%w: waveform has %d bins, want %d", sar.ErrShape, len(spectrum), len(w))
	}
	copy(w, spectrum)
	return nil
}

// SetSlowTimeWeighting replaces the per-pulse gains.
func (o *Operator) SetSlowTimeWeighting(weights []complex128) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	g, err := o.record.WeightingComplex()
	if err != nil {
		return err
	}
	if len(weights) != len(g) {
		return fmt.Errorf("%w: weighting has %d pulses, want %d", sar.ErrShape, len(weights), len(g))
	}
	copy(g, weights)
	return nil
}

// Record returns a copy of the operator's calculation record holding the
// latest cube.
func (o *Operator) Record() *sar.CalculationInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.record.Clone()
}

// Close releases every worker. Further evaluations return ErrClosed.
func (o *Operator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, p := range o.partitions {
		p.worker.Release()
	}
	o.closed = true
}
