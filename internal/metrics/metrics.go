// Package metrics exposes run progress to Prometheus and serves a small
// HTTP status endpoint.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/bbseed/internal/scheduler"
	"github.com/aretw0/bbseed/pkg/domain"
)

const namespace = "bbseed"

// ProgressSource is implemented by *scheduler.Scheduler.
type ProgressSource interface {
	Progress() scheduler.Progress
}

// Metrics holds the collectors of one process. It implements
// scheduler.Observer.
type Metrics struct {
	registry *prometheus.Registry

	classified  *prometheus.CounterVec
	decided     *prometheus.CounterVec
	checkpoints *prometheus.HistogramVec

	mu     sync.Mutex
	source ProgressSource
}

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		classified: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classified_total",
				Help:      "Machines classified by this process.",
			},
			[]string{"class"},
		),
		decided: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decided_total",
				Help:      "Machines decided by this process, per decider.",
			},
			[]string{"decider"},
		),
		checkpoints: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "checkpoint_duration_seconds",
				Help:      "Duration of checkpoint saves.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"result"},
		),
	}
	for _, c := range domain.Classifications {
		m.classified.WithLabelValues(c.String())
	}
	m.registry.MustRegister(
		m.classified,
		m.decided,
		m.checkpoints,
		&progressCollector{m: m},
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Track makes the run gauges follow src. Until Track is called they are
// not reported.
func (m *Metrics) Track(src ProgressSource) {
	m.mu.Lock()
	m.source = src
	m.mu.Unlock()
}

// Flushed implements scheduler.Observer.
func (m *Metrics) Flushed(delta domain.Counters, by map[string]uint64) {
	for _, c := range domain.Classifications {
		if n := delta.Get(c); n > 0 {
			m.classified.WithLabelValues(c.String()).Add(float64(n))
		}
	}
	for name, n := range by {
		m.decided.WithLabelValues(name).Add(float64(n))
	}
}

// ObserveCheckpoint records a successful checkpoint save.
func (m *Metrics) ObserveCheckpoint(d time.Duration) {
	m.checkpoints.WithLabelValues("ok").Observe(d.Seconds())
}

// ObserveCheckpointFailure records a failed checkpoint save.
func (m *Metrics) ObserveCheckpointFailure(d time.Duration) {
	m.checkpoints.WithLabelValues("error").Observe(d.Seconds())
}

func (m *Metrics) progress() (scheduler.Progress, bool) {
	m.mu.Lock()
	src := m.source
	m.mu.Unlock()
	if src == nil {
		return scheduler.Progress{}, false
	}
	return src.Progress(), true
}

var (
	runMachinesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "run", "machines"),
		"Machines classified by the whole run, resumed segments included.",
		[]string{"class"}, nil,
	)
	frontierDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "frontier_nodes"),
		"Frontier nodes waiting to be expanded.",
		[]string{"queue"}, nil,
	)
	workersDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "workers"),
		"Workers per state.",
		[]string{"state"}, nil,
	)
)

// progressCollector reads the scheduler at scrape time.
type progressCollector struct {
	m *Metrics
}

func (c *progressCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- runMachinesDesc
	ch <- frontierDesc
	ch <- workersDesc
}

func (c *progressCollector) Collect(ch chan<- prometheus.Metric) {
	p, ok := c.m.progress()
	if !ok {
		return
	}
	for _, cl := range domain.Classifications {
		ch <- prometheus.MustNewConstMetric(runMachinesDesc, prometheus.GaugeValue, float64(p.Counters.Get(cl)), cl.String())
	}
	ch <- prometheus.MustNewConstMetric(frontierDesc, prometheus.GaugeValue, float64(p.Pool), "pool")
	ch <- prometheus.MustNewConstMetric(frontierDesc, prometheus.GaugeValue, float64(p.Local), "local")
	for _, s := range scheduler.WorkerStates {
		ch <- prometheus.MustNewConstMetric(workersDesc, prometheus.GaugeValue, float64(p.States[s]), s.String())
	}
}
