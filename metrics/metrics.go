// Package metrics exposes Router activity as Prometheus metrics.
//
//	m := metrics.New()
//	reg := metrics.NewRegistry(m)
//	r := monitor.New(m.Options()...)
//	http.Handle("/metrics", metrics.Handler(reg))
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bjaus/monitor"
)

const namespace = "monitor"

// Metrics holds the dispatch engine's collectors.
type Metrics struct {
	Dispatches       *prometheus.CounterVec
	DispatchDuration prometheus.Histogram
	MatcherRuns      *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	RuleErrors       *prometheus.CounterVec
}

// New creates the collectors. They are not registered anywhere yet.
func New() *Metrics {
	return &Metrics{
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "total",
				Help:      "Total number of dispatched events",
			},
			[]string{"type", "blocked"},
		),

		DispatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "duration_seconds",
				Help:      "Event dispatch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		MatcherRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "matcher",
				Name:      "runs_total",
				Help:      "Total number of matcher runs by final status",
			},
			[]string{"module", "status"},
		),

		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "matcher",
				Name:      "run_duration_seconds",
				Help:      "Matcher run duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"module"},
		),

		RuleErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rule",
				Name:      "errors_total",
				Help:      "Total number of failed rule checks",
			},
			[]string{"module"},
		),
	}
}

// Collectors returns every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Dispatches, m.DispatchDuration, m.MatcherRuns, m.RunDuration, m.RuleErrors}
}

// NewRegistry returns a Prometheus registry holding m plus the Go runtime
// and process collectors.
func NewRegistry(m *Metrics) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.Collectors()...)
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Options returns the Router hooks that feed m.
func (m *Metrics) Options() []monitor.Option {
	return []monitor.Option{
		monitor.WithOnDispatch(m.recordDispatch),
		monitor.WithOnSuccess(func(_ context.Context, def *monitor.Definition, res monitor.Result, d time.Duration) {
			m.RecordRun(module(def), res.Status, d)
		}),
		monitor.WithOnFailure(func(_ context.Context, def *monitor.Definition, _ error, d time.Duration) {
			m.RecordRun(module(def), monitor.StatusErrored, d)
		}),
		monitor.WithOnRuleError(func(_ context.Context, def *monitor.Definition, _ error) {
			m.RuleErrors.WithLabelValues(module(def)).Inc()
		}),
	}
}

func (m *Metrics) recordDispatch(_ context.Context, msg *monitor.Message, _ int, blocked bool, d time.Duration) {
	m.Dispatches.WithLabelValues(msg.EventType(), strconv.FormatBool(blocked)).Inc()
	m.DispatchDuration.Observe(d.Seconds())
}

// RecordRun counts one matcher run and records its duration.
func (m *Metrics) RecordRun(module string, status monitor.Status, d time.Duration) {
	m.MatcherRuns.WithLabelValues(module, status.String()).Inc()
	m.RunDuration.WithLabelValues(module).Observe(d.Seconds())
}

func module(def *monitor.Definition) string {
	if def.Module() == "" {
		return "unknown"
	}
	return def.Module()
}
