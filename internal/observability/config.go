package observability

import (
	"io"
	"time"

	"talentloop/internal/config"
)

// ObservabilityConfig is the resolved telemetry setup for one talentloop process
type ObservabilityConfig struct {
	ServiceName     string
	ServiceVersion  string
	ServiceInstance string
	// Command is the CLI command path recorded on the resource, e.g. "talentloop interview"
	Command string

	Enabled       bool
	ConsoleOutput bool
	PrettyPrint   bool
	// Console receives stdout exporter output. Nil means os.Stderr, so telemetry
	// never mixes with formatted command output on stdout.
	Console io.Writer

	SampleRate         float64
	CollectionInterval time.Duration
	Metrics            MetricToggles
	OTLP               OTLPConfig
	Prometheus         PrometheusConfig
}

// OTLPConfig holds the OTLP/HTTP collector settings shared by traces and metrics
type OTLPConfig struct {
	Enabled  bool
	Endpoint string
	Insecure bool
	Headers  map[string]string
}

const defaultCollectionInterval = 15 * time.Second

// GetObservabilityConfig resolves the observability section of cfg. A nil cfg
// yields a disabled setup.
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	if cfg == nil {
		return ObservabilityConfig{
			ServiceName:        "talentloop",
			ServiceVersion:     version,
			ServiceInstance:    "talentloop-1",
			SampleRate:         1.0,
			CollectionInterval: defaultCollectionInterval,
			Metrics:            AllMetrics(),
			Prometheus:         GetPrometheusConfig(nil),
		}
	}

	obs := cfg.Observability

	serviceVersion := obs.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}
	instance := obs.ServiceInstance
	if instance == "" {
		instance = "talentloop-1"
	}
	interval := obs.Metrics.CollectionInterval
	if interval <= 0 {
		interval = defaultCollectionInterval
	}

	custom := obs.CustomMetrics
	return ObservabilityConfig{
		ServiceName:        obs.ServiceName,
		ServiceVersion:     serviceVersion,
		ServiceInstance:    instance,
		Enabled:            obs.Enabled,
		ConsoleOutput:      obs.ConsoleOutput || obs.Console.Enabled,
		PrettyPrint:        obs.Console.PrettyPrint,
		SampleRate:         obs.SampleRate,
		CollectionInterval: interval,
		Metrics: MetricToggles{
			Transport:         obs.Metrics.Enabled && custom.Transport.Enabled,
			TransportDuration: custom.Transport.TrackDuration,
			Interview:         obs.Metrics.Enabled && custom.Interview.Enabled,
			InterviewTurns:    custom.Interview.TrackTurns,
			AI:                obs.Metrics.Enabled && custom.AI.Enabled,
			AIDuration:        custom.AI.TrackDuration,
		},
		OTLP: OTLPConfig{
			Enabled:  obs.OTLP.Enabled,
			Endpoint: obs.OTLP.Endpoint,
			Insecure: obs.OTLP.Insecure,
			Headers:  obs.OTLP.Headers,
		},
		Prometheus: GetPrometheusConfig(cfg),
	}
}
