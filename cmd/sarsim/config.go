package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rjboer/sarsolver/internal/app"
	"github.com/rjboer/sarsolver/internal/scene"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

type cliConfig struct {
	numSlowTimes    int
	numFastTimes    int
	centreFrequency float64
	sampleFrequency float64
	lightSpeed      float64
	standoffRange   float64
	trackLength     float64
	height          float64
	receiverOffset  string
	sceneExtent     float64
	safetyFactor    float64
	upsampleRatio   float64
	sign            int
	waveform        string
	bandwidth       float64
	pulseDuration   float64
	window          string
	rangeWindow     string
	targets         string
	noiseStd        float64
	partitions      int
	concurrency     int
	normIterations  int
	seed            uint64
	logLevel        string
	logFormat       string
	historyLimit    int
	webAddr         string
	serve           bool
	imageOut        string
}

type persistentConfig struct {
	NumSlowTimes    int     `json:"num_slow_times" yaml:"num_slow_times"`
	NumFastTimes    int     `json:"num_fast_times" yaml:"num_fast_times"`
	CentreFrequency float64 `json:"centre_frequency" yaml:"centre_frequency"`
	SampleFrequency float64 `json:"sample_frequency" yaml:"sample_frequency"`
	LightSpeed      float64 `json:"light_speed" yaml:"light_speed"`
	StandoffRange   float64 `json:"standoff_range" yaml:"standoff_range"`
	TrackLength     float64 `json:"track_length" yaml:"track_length"`
	Height          float64 `json:"height" yaml:"height"`
	ReceiverOffset  string  `json:"receiver_offset" yaml:"receiver_offset"`
	SceneExtent     float64 `json:"scene_extent" yaml:"scene_extent"`
	SafetyFactor    float64 `json:"safety_factor" yaml:"safety_factor"`
	UpsampleRatio   float64 `json:"upsample_ratio" yaml:"upsample_ratio"`
	Sign            int     `json:"sign" yaml:"sign"`
	Waveform        string  `json:"waveform" yaml:"waveform"`
	Bandwidth       float64 `json:"bandwidth" yaml:"bandwidth"`
	PulseDuration   float64 `json:"pulse_duration" yaml:"pulse_duration"`
	Window          string  `json:"window" yaml:"window"`
	RangeWindow     string  `json:"range_window" yaml:"range_window"`
	Targets         string  `json:"targets" yaml:"targets"`
	NoiseStd        float64 `json:"noise_std" yaml:"noise_std"`
	Partitions      int     `json:"partitions" yaml:"partitions"`
	Concurrency     int     `json:"concurrency" yaml:"concurrency"`
	NormIterations  int     `json:"norm_iterations" yaml:"norm_iterations"`
	Seed            uint64  `json:"seed" yaml:"seed"`
	LogLevel        string  `json:"log_level" yaml:"log_level"`
	LogFormat       string  `json:"log_format" yaml:"log_format"`
	HistoryLimit    int     `json:"history_limit" yaml:"history_limit"`
	WebAddr         string  `json:"web_addr" yaml:"web_addr"`
}

func parseConfig(args []string, lookup func(string) (string, bool), defaults persistentConfig) (cliConfig, error) {
	cfg := cliConfig{}
	fs := flag.NewFlagSet("sarsim", flag.ContinueOnError)
	fs.IntVar(&cfg.numSlowTimes, "pulses", envInt(lookup, "SAR_PULSES", defaults.NumSlowTimes), "Number of pulses (slow times)")
	fs.IntVar(&cfg.numFastTimes, "fast-times", envInt(lookup, "SAR_FAST_TIMES", defaults.NumFastTimes), "Samples per pulse")
	fs.Float64Var(&cfg.centreFrequency, "centre-freq", envFloat(lookup, "SAR_CENTRE_FREQ", defaults.CentreFrequency), "Centre frequency in Hz")
	fs.Float64Var(&cfg.sampleFrequency, "sample-freq", envFloat(lookup, "SAR_SAMPLE_FREQ", defaults.SampleFrequency), "Fast-time sample frequency in Hz")
	fs.Float64Var(&cfg.lightSpeed, "light-speed", envFloat(lookup, "SAR_LIGHT_SPEED", defaults.LightSpeed), "Propagation speed in m/s (0 for vacuum)")
	fs.Float64Var(&cfg.standoffRange, "standoff", envFloat(lookup, "SAR_STANDOFF", defaults.StandoffRange), "Track standoff range in m")
	fs.Float64Var(&cfg.trackLength, "track-length", envFloat(lookup, "SAR_TRACK_LENGTH", defaults.TrackLength), "Track length in m")
	fs.Float64Var(&cfg.height, "height", envFloat(lookup, "SAR_HEIGHT", defaults.Height), "Track height in m")
	fs.StringVar(&cfg.receiverOffset, "rx-offset", envString(lookup, "SAR_RX_OFFSET", defaults.ReceiverOffset), "Receiver offset from the transmitter as x,y,z in m (empty for monostatic)")
	fs.Float64Var(&cfg.sceneExtent, "scene-extent", envFloat(lookup, "SAR_SCENE_EXTENT", defaults.SceneExtent), "Side of the square ground scene in m")
	fs.Float64Var(&cfg.safetyFactor, "safety-factor", envFloat(lookup, "SAR_SAFETY_FACTOR", defaults.SafetyFactor), "Grid oversampling relative to the resolution")
	fs.Float64Var(&cfg.upsampleRatio, "upsample", envFloat(lookup, "SAR_UPSAMPLE", defaults.UpsampleRatio), "Fast-time upsample ratio (>= 1)")
	fs.IntVar(&cfg.sign, "sign", envInt(lookup, "SAR_SIGN", defaults.Sign), "Time convention sign (+1 or -1)")
	fs.StringVar(&cfg.waveform, "waveform", envString(lookup, "SAR_WAVEFORM", defaults.Waveform), "Waveform spectrum (flat|band|chirp)")
	fs.Float64Var(&cfg.bandwidth, "bandwidth", envFloat(lookup, "SAR_BANDWIDTH", defaults.Bandwidth), "Waveform bandwidth in Hz")
	fs.Float64Var(&cfg.pulseDuration, "pulse-duration", envFloat(lookup, "SAR_PULSE_DURATION", defaults.PulseDuration), "Chirp duration in s")
	fs.StringVar(&cfg.window, "window", envString(lookup, "SAR_WINDOW", defaults.Window), "Slow-time taper (rectangular|hamming|hann)")
	fs.StringVar(&cfg.rangeWindow, "range-window", envString(lookup, "SAR_RANGE_WINDOW", defaults.RangeWindow), "Fast-time taper on the waveform spectrum (rectangular|hamming|hann)")
	fs.StringVar(&cfg.targets, "targets", envString(lookup, "SAR_TARGETS", defaults.Targets), "Point targets as x,y,z[,amplitude] separated by ';'")
	fs.Float64Var(&cfg.noiseStd, "noise", envFloat(lookup, "SAR_NOISE", defaults.NoiseStd), "Complex noise standard deviation per sample")
	fs.IntVar(&cfg.partitions, "partitions", envInt(lookup, "SAR_PARTITIONS", defaults.Partitions), "Pulse partitions (0 for one per CPU)")
	fs.IntVar(&cfg.concurrency, "concurrency", envInt(lookup, "SAR_CONCURRENCY", defaults.Concurrency), "Concurrent partitions (0 for all)")
	fs.IntVar(&cfg.normIterations, "norm-iterations", envInt(lookup, "SAR_NORM_ITERATIONS", defaults.NormIterations), "Power iterations for the operator norm (negative to skip)")
	fs.Uint64Var(&cfg.seed, "seed", envUint(lookup, "SAR_SEED", defaults.Seed), "Random seed")
	fs.StringVar(&cfg.logLevel, "log-level", envString(lookup, "SAR_LOG_LEVEL", defaults.LogLevel), "Log level (debug|info|warn|error)")
	fs.StringVar(&cfg.logFormat, "log-format", envString(lookup, "SAR_LOG_FORMAT", defaults.LogFormat), "Log format (text|json)")
	fs.IntVar(&cfg.historyLimit, "history-limit", envInt(lookup, "SAR_HISTORY_LIMIT", defaults.HistoryLimit), "Maximum samples to keep in telemetry history")
	fs.StringVar(&cfg.webAddr, "web-addr", envString(lookup, "SAR_WEB_ADDR", defaults.WebAddr), "Optional web telemetry listen address (e.g. :8080)")
	fs.BoolVar(&cfg.serve, "serve", false, "Keep serving telemetry after the run until interrupted")
	fs.StringVar(&cfg.imageOut, "image-out", "", "Optional CSV path for the back-projected image")

	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}
	return cfg, nil
}

func persistentFromCLI(cfg cliConfig) persistentConfig {
	return persistentConfig{
		NumSlowTimes:    cfg.numSlowTimes,
		NumFastTimes:    cfg.numFastTimes,
		CentreFrequency: cfg.centreFrequency,
		SampleFrequency: cfg.sampleFrequency,
		LightSpeed:      cfg.lightSpeed,
		StandoffRange:   cfg.standoffRange,
		TrackLength:     cfg.trackLength,
		Height:          cfg.height,
		ReceiverOffset:  cfg.receiverOffset,
		SceneExtent:     cfg.sceneExtent,
		SafetyFactor:    cfg.safetyFactor,
		UpsampleRatio:   cfg.upsampleRatio,
		Sign:            cfg.sign,
		Waveform:        cfg.waveform,
		Bandwidth:       cfg.bandwidth,
		PulseDuration:   cfg.pulseDuration,
		Window:          cfg.window,
		RangeWindow:     cfg.rangeWindow,
		Targets:         cfg.targets,
		NoiseStd:        cfg.noiseStd,
		Partitions:      cfg.partitions,
		Concurrency:     cfg.concurrency,
		NormIterations:  cfg.normIterations,
		Seed:            cfg.seed,
		LogLevel:        cfg.logLevel,
		LogFormat:       cfg.logFormat,
		HistoryLimit:    cfg.historyLimit,
		WebAddr:         cfg.webAddr,
	}
}

// appConfig converts the command line into a session configuration.
func appConfig(cfg cliConfig) (app.Config, error) {
	offset, err := parseVec(cfg.receiverOffset)
	if err != nil {
		return app.Config{}, fmt.Errorf("rx-offset: %w", err)
	}
	targets, err := parseTargets(cfg.targets)
	if err != nil {
		return app.Config{}, fmt.Errorf("targets: %w", err)
	}
	return app.Config{
		Aperture: scene.ApertureConfig{
			NumSlowTimes:    cfg.numSlowTimes,
			NumFastTimes:    cfg.numFastTimes,
			CentreFrequency: cfg.centreFrequency,
			SampleFrequency: cfg.sampleFrequency,
			LightSpeed:      cfg.lightSpeed,
			StandoffRange:   cfg.standoffRange,
			TrackLength:     cfg.trackLength,
			Height:          cfg.height,
			ReceiverOffset:  offset,
		},
		SceneExtents:   [3]float64{cfg.sceneExtent, cfg.sceneExtent, 0},
		SafetyFactor:   cfg.safetyFactor,
		UpsampleRatio:  cfg.upsampleRatio,
		Sign:           cfg.sign,
		Waveform:       cfg.waveform,
		Bandwidth:      cfg.bandwidth,
		PulseDuration:  cfg.pulseDuration,
		Window:         cfg.window,
		RangeWindow:    cfg.rangeWindow,
		Targets:        targets,
		NoiseStd:       cfg.noiseStd,
		Partitions:     cfg.partitions,
		Concurrency:    cfg.concurrency,
		NormIterations: cfg.normIterations,
		Seed:           cfg.seed,
	}, nil
}

// parseVec reads "x,y,z". An empty string is the zero vector.
func parseVec(s string) (r3.Vec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return r3.Vec{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vec{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var xyz [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r3.Vec{}, fmt.Errorf("coordinate %d: %w", i, err)
		}
		xyz[i] = v
	}
	return r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

// parseTargets reads "x,y,z[,amplitude];..." where amplitude is a real or a
// Go complex literal such as 1+2i.
func parseTargets(s string) ([]app.Target, error) {
	var out []app.Target
	for _, item := range strings.Split(s, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ",")
		if len(parts) != 3 && len(parts) != 4 {
			return nil, fmt.Errorf("want x,y,z[,amplitude], got %q", item)
		}
		pos, err := parseVec(strings.Join(parts[:3], ","))
		if err != nil {
			return nil, err
		}
		amp := complex128(1)
		if len(parts) == 4 {
			if amp, err = strconv.ParseComplex(strings.TrimSpace(parts[3]), 128); err != nil {
				return nil, fmt.Errorf("amplitude of %q: %w", item, err)
			}
		}
		out = append(out, app.Target{Position: pos, Amplitude: amp})
	}
	return out, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func loadOrCreateConfig(path string) (persistentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaultPersistentConfig()
			if saveErr := saveConfig(path, cfg); saveErr != nil {
				return persistentConfig{}, saveErr
			}
			return cfg, nil
		}
		return persistentConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := defaultPersistentConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return persistentConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func saveConfig(path string, cfg persistentConfig) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultPersistentConfig() persistentConfig {
	ap := scene.DefaultApertureConfig()
	return persistentConfig{
		NumSlowTimes:    ap.NumSlowTimes,
		NumFastTimes:    ap.NumFastTimes,
		CentreFrequency: ap.CentreFrequency,
		SampleFrequency: ap.SampleFrequency,
		StandoffRange:   ap.StandoffRange,
		TrackLength:     ap.TrackLength,
		SceneExtent:     20,
		SafetyFactor:    2,
		UpsampleRatio:   1,
		Sign:            1,
		Waveform:        "flat",
		Bandwidth:       150e6,
		PulseDuration:   100e-9,
		Window:          "rectangular",
		RangeWindow:     "rectangular",
		Targets:         "0,0,0;3,-4,0,0.5",
		NormIterations:  10,
		Seed:            1,
		LogLevel:        "info",
		LogFormat:       "text",
		HistoryLimit:    500,
	}
}

func envFloat(lookup func(string) (string, bool), key string, def float64) float64 {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}

func envInt(lookup func(string) (string, bool), key string, def int) int {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envUint(lookup func(string) (string, bool), key string, def uint64) uint64 {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.ParseUint(val, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func envString(lookup func(string) (string, bool), key, def string) string {
	if val, ok := lookup(key); ok {
		return val
	}
	return def
}
