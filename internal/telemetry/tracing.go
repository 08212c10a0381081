package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rjboer/sarsolver/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// TracingConfig governs how operator tracing is initialised.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	SampleRatio float64
	Pretty      bool
	Writer      io.Writer // stdout exporter sink; nil selects os.Stdout
	Exporter    string    // stdout | otlp
	Endpoint    string    // OTLP gRPC collector, used when Exporter == otlp
}

// TracingConfigFromEnv reads SAR_TRACING_* variables through lookup, using
// defaults when unset. A nil lookup reads the process environment.
func TracingConfigFromEnv(lookup func(string) (string, bool)) TracingConfig {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := TracingConfig{ServiceName: "sarsolver", SampleRatio: 1, Exporter: "stdout"}
	if raw, ok := lookup("SAR_TRACING_ENABLED"); ok {
		cfg.Enabled = strings.EqualFold(raw, "true") || raw == "1"
	}
	if raw, ok := lookup("SAR_TRACING_SERVICE_NAME"); ok && raw != "" {
		cfg.ServiceName = raw
	}
	if raw, ok := lookup("SAR_TRACING_SAMPLE_RATIO"); ok {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed >= 0 && parsed <= 1 {
			cfg.SampleRatio = parsed
		}
	}
	if raw, ok := lookup("SAR_TRACING_PRETTY"); ok {
		cfg.Pretty = strings.EqualFold(raw, "true") || raw == "1"
	}
	if raw, ok := lookup("SAR_TRACING_EXPORTER"); ok {
		cfg.Exporter = raw
	}
	if raw, ok := lookup("SAR_OTLP_ENDPOINT"); ok {
		cfg.Endpoint = raw
	}
	return cfg
}

// InitTracing installs a global tracer provider exporting spans to the
// configured writer. It returns a shutdown function that flushes spans.
func InitTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (func(context.Context) error, error) {
	if log == nil {
		log = logging.Noop()
	}

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.TraceContext{})
		log.Debug("tracing disabled; using noop tracer provider")
		return func(context.Context) error { return nil }, nil
	}

	exp, err := exporterFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.namespace", "sarsolver"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	log.Info("tracing enabled",
		logging.F("exporter", cfg.Exporter),
		logging.F("service_name", cfg.ServiceName),
		logging.F("sampler", fmt.Sprintf("parentbased_traceidratio_%0.2f", cfg.SampleRatio)),
	)
	return tp.Shutdown, nil
}

func exporterFromConfig(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case "stdout", "":
		writer := cfg.Writer
		if writer == nil {
			writer = os.Stdout
		}
		opts := []stdouttrace.Option{stdouttrace.WithWriter(writer), stdouttrace.WithoutTimestamps()}
		if cfg.Pretty {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exp, err := stdouttrace.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		return exp, nil
	case "otlp", "otlpgrpc":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
		exp, err := otlptrace.New(ctx, client)
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("unsupported tracing exporter %q", cfg.Exporter)
	}
}

// ShutdownWithTimeout invokes shutdown with a bounded timeout, logging
// failures instead of returning them.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, log logging.Logger) {
	if shutdown == nil {
		return
	}
	if log == nil {
		log = logging.Noop()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn("tracing shutdown failed", logging.F("error", err.Error()))
	}
}
