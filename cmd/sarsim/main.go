// Command sarsim simulates point targets through the bistatic SAR Born
// operator, back-projects the result and verifies the operator pair.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rjboer/sarsolver/internal/app"
	"github.com/rjboer/sarsolver/internal/logging"
	"github.com/rjboer/sarsolver/internal/telemetry"
)

const defaultConfigPath = "sarsim.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.LookupEnv, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "sarsim: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, lookup func(string) (string, bool), stdout io.Writer) error {
	configPath := envString(lookup, "SAR_CONFIG", defaultConfigPath)
	persistentCfg, err := loadOrCreateConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg, err := parseConfig(args, lookup, persistentCfg)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := saveConfig(configPath, persistentFromCLI(cfg)); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	level, err := logging.ParseLevel(cfg.logLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(cfg.logFormat)
	if err != nil {
		return err
	}
	logger := logging.New(level, format, stdout)
	logging.SetDefault(logger)

	shutdown, err := telemetry.InitTracing(ctx, telemetry.TracingConfigFromEnv(lookup), logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer telemetry.ShutdownWithTimeout(context.Background(), shutdown, logger)

	metrics, err := telemetry.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	reporters := telemetry.MultiReporter{metrics}
	var serverErr chan error
	if cfg.webAddr != "" {
		hub := telemetry.NewHub(cfg.historyLimit, logger)
		reporters = append(reporters, hub)
		server := telemetry.NewWebServer(cfg.webAddr, hub, metrics, logger)
		serverErr = make(chan error, 1)
		go func() { serverErr <- server.Start(ctx) }()
		logger.Info("web interface", logging.F("url", "http://localhost"+cfg.webAddr))
	} else {
		reporters = append(reporters, telemetry.NewStdoutReporter(logger))
	}

	sessionCfg, err := appConfig(cfg)
	if err != nil {
		return err
	}
	session := app.NewSession(reporters, logger, sessionCfg)
	if err := session.Init(ctx); err != nil {
		return fmt.Errorf("init session: %w", err)
	}
	defer session.Close()

	sum, err := session.Run(ctx)
	if err != nil {
		return fmt.Errorf("run session: %w", err)
	}
	metrics.SetProblemSize(sum.Pulses, sum.Scatterers, sum.Partitions)
	printSummary(stdout, sum)
	if cfg.imageOut != "" {
		if err := writeImage(cfg.imageOut, session.Grid().Points, sum.Image, sum.PeakMagnitude); err != nil {
			return fmt.Errorf("write image: %w", err)
		}
		logger.Info("image written", logging.F("path", cfg.imageOut), logging.F("samples", len(sum.Image)))
	}

	if cfg.serve && serverErr != nil {
		logger.Info("serving telemetry (Ctrl+C to stop)")
		select {
		case <-ctx.Done():
			return <-serverErr
		case err := <-serverErr:
			return err
		}
	}
	return nil
}

func printSummary(w io.Writer, sum app.Summary) {
	fmt.Fprintf(w, "pulses=%d fast_times=%d scatterers=%d partitions=%d\n",
		sum.Pulses, sum.FastTimes, sum.Scatterers, sum.Partitions)
	fmt.Fprintf(w, "targets=%v peak=%d at (%.3f, %.3f, %.3f) |peak|=%.6g\n",
		sum.TargetIndices, sum.PeakIndex, sum.PeakPosition.X, sum.PeakPosition.Y, sum.PeakPosition.Z, sum.PeakMagnitude)
	fmt.Fprintf(w, "dot_test=%.3e norm=%.6g\n", sum.DotTestError, sum.Norm)
	fmt.Fprintf(w, "forward=%s adjoint=%s verify=%s\n", sum.ForwardDuration, sum.AdjointDuration, sum.VerifyDuration)
}
