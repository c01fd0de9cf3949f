// Package monitoring keeps in-process counters for the prediction service
// and renders them in the Prometheus text format.
package monitoring

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricType is the Prometheus metric kind.
type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
)

// Metric is one labelled series.
type Metric struct {
	Name   string            `json:"name"`
	Type   MetricType        `json:"type"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels,omitempty"`
	Help   string            `json:"help,omitempty"`
}

// MetricsCollector holds the latest value of every series.
type MetricsCollector struct {
	metrics     map[string]*Metric
	metricsLock sync.RWMutex

	startTime time.Time
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics:   make(map[string]*Metric),
		startTime: time.Now(),
	}
}

func seriesKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	return name + formatLabels(labels)
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

// IncrCounter adds value to the named counter.
func (mc *MetricsCollector) IncrCounter(name, help string, value float64, labels map[string]string) {
	mc.record(name, help, MetricTypeCounter, labels, func(m *Metric) { m.Value += value })
}

// SetGauge replaces the named gauge.
func (mc *MetricsCollector) SetGauge(name, help string, value float64, labels map[string]string) {
	mc.record(name, help, MetricTypeGauge, labels, func(m *Metric) { m.Value = value })
}

func (mc *MetricsCollector) record(name, help string, typ MetricType, labels map[string]string, update func(*Metric)) {
	key := seriesKey(name, labels)

	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()

	m, ok := mc.metrics[key]
	if !ok {
		m = &Metric{Name: name, Type: typ, Help: help}
		if len(labels) > 0 {
			m.Labels = make(map[string]string, len(labels))
			for k, v := range labels {
				m.Labels[k] = v
			}
		}
		mc.metrics[key] = m
	}
	update(m)
}

// Value returns the current value of a series, zero if it was never set.
func (mc *MetricsCollector) Value(name string, labels map[string]string) float64 {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()
	if m, ok := mc.metrics[seriesKey(name, labels)]; ok {
		return m.Value
	}
	return 0
}

// Snapshot returns copies of every series ordered by name and labels.
func (mc *MetricsCollector) Snapshot() []Metric {
	mc.collectSystemMetrics()

	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	keys := make([]string, 0, len(mc.metrics))
	for k := range mc.metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Metric, len(keys))
	for i, k := range keys {
		out[i] = *mc.metrics[k]
	}
	return out
}

func (mc *MetricsCollector) collectSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	mc.SetGauge("memory_heap_alloc_bytes", "Heap bytes allocated", float64(m.HeapAlloc), nil)
	mc.SetGauge("system_goroutines", "Number of goroutines", float64(runtime.NumGoroutine()), nil)
	mc.SetGauge("process_uptime_seconds", "Seconds since start", mc.GetUptime().Seconds(), nil)
}

// ExportPrometheus renders the text exposition format, one HELP and TYPE
// line per metric name.
func (mc *MetricsCollector) ExportPrometheus() string {
	var b strings.Builder
	seen := make(map[string]bool)
	for _, m := range mc.Snapshot() {
		if !seen[m.Name] {
			seen[m.Name] = true
			help := m.Help
			if help == "" {
				help = fmt.Sprintf("Metric %s", m.Name)
			}
			fmt.Fprintf(&b, "# HELP %s %s\n", m.Name, help)
			fmt.Fprintf(&b, "# TYPE %s %s\n", m.Name, m.Type)
		}
		fmt.Fprintf(&b, "%s%s %g\n", m.Name, formatLabels(m.Labels), m.Value)
	}
	return b.String()
}

func (mc *MetricsCollector) GetUptime() time.Duration {
	return time.Since(mc.startTime)
}

// PredictionMetrics records the outcome of each form submission.
type PredictionMetrics struct {
	collector *MetricsCollector
}

func NewPredictionMetrics(collector *MetricsCollector) *PredictionMetrics {
	return &PredictionMetrics{collector: collector}
}

// Observe counts one submission. result is "high", "low", "invalid" or
// "error".
func (pm *PredictionMetrics) Observe(result string, elapsed time.Duration) {
	if pm == nil {
		return
	}
	labels := map[string]string{"result": result}
	pm.collector.IncrCounter("predictions_total", "Form submissions by result", 1, labels)
	pm.collector.IncrCounter("prediction_seconds_sum", "Time spent serving submissions", elapsed.Seconds(), labels)
}

func (pm *PredictionMetrics) Collector() *MetricsCollector {
	return pm.collector
}
