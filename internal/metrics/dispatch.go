// Package metrics exposes Prometheus metrics derived from dispatch lifecycle events.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

// DispatchMetrics is an event publisher that turns lifecycle events into metrics.
type DispatchMetrics struct {
	EventsTotal      *prometheus.CounterVec   // Every published event by type and channel
	DeliveriesTotal  *prometheus.CounterVec   // Terminal outcomes by channel, provider and status
	RetriesTotal     *prometheus.CounterVec   // RETRYING events by channel
	AttemptsPerSend  *prometheus.HistogramVec // Attempts consumed by each terminal dispatch
	DispatchDuration *prometheus.HistogramVec // SENDING to terminal event
	InFlight         prometheus.Gauge         // Dispatches between SENDING and a terminal event

	// started queues the SENDING time of every open dispatch per notification id.
	// A redelivered id can be in flight more than once; terminals close the oldest.
	mu      sync.Mutex
	started map[string][]time.Time

	registry *prometheus.Registry
}

// NewDispatchMetrics creates the metrics and registers them on registry.
func NewDispatchMetrics(registry *prometheus.Registry) (*DispatchMetrics, error) {
	m := &DispatchMetrics{
		registry: registry,
		started:  make(map[string][]time.Time),
	}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register dispatch metrics: %w", err)
	}
	return m, nil
}

func (m *DispatchMetrics) initMetrics() {
	m.EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_events_total",
			Help: "Total number of lifecycle events by event type and notification type",
		},
		[]string{"event_type", "notification_type"},
	)

	m.DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_deliveries_total",
			Help: "Total number of finished dispatches by notification type, provider and status",
		},
		[]string{"notification_type", "provider", "status"}, // status: success, failed
	)

	m.RetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_retries_total",
			Help: "Total number of scheduled retries by notification type",
		},
		[]string{"notification_type"},
	)

	m.AttemptsPerSend = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_attempts_per_dispatch",
			Help:    "Number of attempts used by each finished dispatch",
			Buckets: []float64{1, 2, 3, 4, 5, 7, 10},
		},
		[]string{"notification_type"},
	)

	m.DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_dispatch_duration_seconds",
			Help:    "Time from the SENDING event to the terminal event, including retry waits",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"notification_type", "status"},
	)

	m.InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_dispatch_inflight",
			Help: "Number of dispatches that have announced SENDING but not finished",
		},
	)
}

// Describe implements prometheus.Collector.
func (m *DispatchMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.EventsTotal.Describe(ch)
	m.DeliveriesTotal.Describe(ch)
	m.RetriesTotal.Describe(ch)
	m.AttemptsPerSend.Describe(ch)
	m.DispatchDuration.Describe(ch)
	m.InFlight.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *DispatchMetrics) Collect(ch chan<- prometheus.Metric) {
	m.EventsTotal.Collect(ch)
	m.DeliveriesTotal.Collect(ch)
	m.RetriesTotal.Collect(ch)
	m.AttemptsPerSend.Collect(ch)
	m.DispatchDuration.Collect(ch)
	m.InFlight.Collect(ch)
}

// Publish records e. It never fails.
func (m *DispatchMetrics) Publish(_ context.Context, e notification.Event) error {
	channel := string(e.NotificationType)
	m.EventsTotal.WithLabelValues(string(e.Type), channel).Inc()

	switch e.Type {
	case notification.EventSending:
		// A dispatch emits SENDING once, with attempt 1.
		if e.AttemptNumber <= 1 {
			m.mu.Lock()
			m.started[e.NotificationID] = append(m.started[e.NotificationID], e.Timestamp)
			m.mu.Unlock()
			m.InFlight.Inc()
		}
	case notification.EventRetrying:
		m.RetriesTotal.WithLabelValues(channel).Inc()
	case notification.EventSuccess, notification.EventFailed:
		status := strings.ToLower(string(e.Type))
		m.DeliveriesTotal.WithLabelValues(channel, e.ProviderName, status).Inc()
		m.AttemptsPerSend.WithLabelValues(channel).Observe(float64(e.AttemptNumber))

		start, ok := m.finish(e.NotificationID)
		if ok {
			m.InFlight.Dec()
			if d := e.Timestamp.Sub(start); d >= 0 {
				m.DispatchDuration.WithLabelValues(channel, status).Observe(d.Seconds())
			}
		}
	}
	return nil
}

// finish pops the oldest open dispatch for id.
func (m *DispatchMetrics) finish(id string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	open := m.started[id]
	if len(open) == 0 {
		return time.Time{}, false
	}
	start := open[0]
	if len(open) == 1 {
		delete(m.started, id)
	} else {
		m.started[id] = open[1:]
	}
	return start, true
}

// Handler serves the registry in the Prometheus exposition format.
func (m *DispatchMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
