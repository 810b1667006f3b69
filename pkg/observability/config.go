// Package observability holds the settings shared by the metrics and
// tracing packages.
package observability

import (
	"net"
	"strconv"
)

// Trace exporters.
const (
	ExporterXRay   = "xray"
	ExporterStdout = "stdout"
)

// Config groups both observability sections of the settings file.
type Config struct {
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing" yaml:"tracing"`
}

// MetricsConfig controls the /metrics endpoint the CLI can serve while a
// resume is polling. The Lambda ignores it.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port" yaml:"port" validate:"gte=0,lte=65535"`
	Path    string `mapstructure:"path" yaml:"path"`
	Bind    string `mapstructure:"bind" yaml:"bind"`
}

// Addr is the listen address, e.g. localhost:9090.
func (c MetricsConfig) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// TracingConfig controls span export for runs.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled" yaml:"enabled"`
	Exporter     string  `mapstructure:"exporter" yaml:"exporter" validate:"omitempty,oneof=xray stdout"`
	SamplingRate float64 `mapstructure:"sampling_rate" yaml:"sampling_rate" validate:"gte=0,lte=1"`
}

// DefaultConfig leaves both sections off. Tracing samples a tenth of runs
// to X-Ray once enabled.
func DefaultConfig() Config {
	return Config{
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
			Bind: "localhost",
		},
		Tracing: TracingConfig{
			Exporter:     ExporterXRay,
			SamplingRate: 0.1,
		},
	}
}
