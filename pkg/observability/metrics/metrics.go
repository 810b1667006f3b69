// Package metrics exposes Prometheus instruments for resume runs and an
// optional HTTP endpoint that serves them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "asgresume"

// Metrics holds the run instruments. A nil *Metrics is valid and records
// nothing, so callers never need to guard.
type Metrics struct {
	runsTotal          *prometheus.CounterVec
	assumeRoleFailures prometheus.Counter
	candidatesTried    prometheus.Histogram
	pollSamplesTotal   prometheus.Counter
	pollDuration       *prometheus.HistogramVec
	resumeCallsTotal   *prometheus.CounterVec
	notifyFailures     prometheus.Counter
}

// New creates the instruments and registers them on reg.
func New(reg *Registry) *Metrics {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Resume runs by terminal status",
		}, []string{"status"}),
		assumeRoleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sts",
			Name:      "assume_role_failures_total",
			Help:      "Candidate roles that could not be assumed",
		}),
		candidatesTried: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidates_tried",
			Help:      "Candidate accounts tried per run",
			Buckets:   []float64{1, 2, 3, 5, 10, 20},
		}),
		pollSamplesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "samples_total",
			Help:      "Health samples taken",
		}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "duration_seconds",
			Help:      "Time spent waiting for group health",
			Buckets:   []float64{0, 30, 60, 120, 300, 600, 900},
		}, []string{"outcome"}),
		resumeCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resume",
			Name:      "calls_total",
			Help:      "ResumeProcesses calls by result",
		}, []string{"result"}),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Result notifications that could not be published",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.runsTotal,
			m.assumeRoleFailures,
			m.candidatesTried,
			m.pollSamplesTotal,
			m.pollDuration,
			m.resumeCallsTotal,
			m.notifyFailures,
		)
	}
	return m
}

// RecordRun counts a finished run and how many candidates it tried.
func (m *Metrics) RecordRun(status string, candidates int) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status).Inc()
	m.candidatesTried.Observe(float64(candidates))
}

// RecordAssumeRoleFailure counts one unusable candidate.
func (m *Metrics) RecordAssumeRoleFailure() {
	if m == nil {
		return
	}
	m.assumeRoleFailures.Inc()
}

// RecordPoll records one health wait.
func (m *Metrics) RecordPoll(outcome string, samples int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.pollSamplesTotal.Add(float64(samples))
	m.pollDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RecordResume counts a ResumeProcesses call.
func (m *Metrics) RecordResume(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.resumeCallsTotal.WithLabelValues(result).Inc()
}

// RecordNotifyFailure counts a failed result notification.
func (m *Metrics) RecordNotifyFailure() {
	if m == nil {
		return
	}
	m.notifyFailures.Inc()
}
