// Package metrics exposes keyword list aggregates and backend call
// statistics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blumenshine/rankwatch/pkg/keywords"
)

const namespace = "rankwatch"

var (
	keywordsDesc = prometheus.NewDesc(
		namespace+"_keywords",
		"Tracked keywords by status",
		[]string{"status"},
		nil,
	)
	averageDesc = prometheus.NewDesc(
		namespace+"_average_position",
		"Average ranking position over ranked keywords",
		nil, nil,
	)
	bestDesc = prometheus.NewDesc(
		namespace+"_best_position",
		"Best (lowest) ranking position",
		nil, nil,
	)
	lastUpdatedDesc = prometheus.NewDesc(
		namespace+"_last_updated_timestamp_seconds",
		"Most recent measurement time across keywords",
		nil, nil,
	)
)

// SummarySource yields the current list aggregates. *tracker.Tracker
// implements it.
type SummarySource interface {
	Summary() keywords.Summary
}

// SummaryCollector is a custom Prometheus collector that reads the list
// aggregates on each scrape. Gauges without a value (no ranked keyword yet)
// are not emitted.
type SummaryCollector struct {
	src SummarySource
}

// Describe sends the metric descriptors to the channel.
func (c *SummaryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- keywordsDesc
	ch <- averageDesc
	ch <- bestDesc
	ch <- lastUpdatedDesc
}

// Collect emits the aggregates of the current list.
func (c *SummaryCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Summary()
	ch <- prometheus.MustNewConstMetric(keywordsDesc, prometheus.GaugeValue, float64(s.Ranked), string(keywords.StatusRanked))
	ch <- prometheus.MustNewConstMetric(keywordsDesc, prometheus.GaugeValue, float64(s.Pending), string(keywords.StatusPending))
	if s.Average != nil {
		ch <- prometheus.MustNewConstMetric(averageDesc, prometheus.GaugeValue, *s.Average)
	}
	if s.Best != nil {
		ch <- prometheus.MustNewConstMetric(bestDesc, prometheus.GaugeValue, float64(*s.Best))
	}
	if s.LastUpdated != nil {
		ch <- prometheus.MustNewConstMetric(lastUpdatedDesc, prometheus.GaugeValue, float64(s.LastUpdated.Unix()))
	}
}

// Metrics holds the backend call metrics.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers the summary collector for src and the request metrics on
// reg.
func New(reg prometheus.Registerer, src SummarySource) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Backend calls by operation and outcome",
		}, []string{"op", "outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Backend call latency by operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(m.Requests, m.RequestDuration)
	if src != nil {
		reg.MustRegister(&SummaryCollector{src: src})
	}
	return m
}

// Observe records one backend call. Its signature matches api.Observer.
func (m *Metrics) Observe(op string, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Requests.WithLabelValues(op, outcome).Inc()
	m.RequestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}
