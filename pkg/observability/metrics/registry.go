package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry is a private Prometheus registry. Nothing here touches the
// global default registerer, so tests can build as many as they like.
type Registry struct {
	reg *prometheus.Registry
}

// RegistryOption configures a Registry.
type RegistryOption func(*prometheus.Registry)

// WithRuntimeCollectors adds the Go runtime and process collectors. The CLI
// turns them on when it serves /metrics.
func WithRuntimeCollectors() RegistryOption {
	return func(r *prometheus.Registry) {
		r.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
		)
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	reg := prometheus.NewRegistry()
	for _, opt := range opts {
		opt(reg)
	}
	return &Registry{reg: reg}
}

// MustRegister registers collectors and panics on duplicates. A nil
// Registry drops them.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	if r == nil {
		return
	}
	r.reg.MustRegister(cs...)
}

// Gatherer returns the registry for scraping. A nil Registry gathers nothing.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.Gatherers{}
	}
	return r.reg
}
