package observability

import (
	"context"
	"errors"
	"sync"
	"time"

	"marketplace-chat/domain/chat"
	chaterrors "marketplace-chat/errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "marketplace_chat"

// MonitoringStats is the latest process and hub snapshot shown on the debug page.
type MonitoringStats struct {
	OnlineIdentities int       `json:"online_identities"`
	LiveConnections  int       `json:"live_connections"`
	CPUPercent       float64   `json:"cpu_percent"`
	RSSMb            uint64    `json:"rss_mb"`
	AllocMemMb       uint64    `json:"alloc_mem_mb"`
	NumGC            uint32    `json:"num_gc"`
	Goroutines       int       `json:"goroutines"`
	Timestamp        time.Time `json:"timestamp"`
}

// Metrics holds every Prometheus collector of the hub.
type Metrics struct {
	MessagesPersisted prometheus.Counter
	PersistFailures   prometheus.Counter
	RouteDuration     prometheus.Histogram
	Pushes            *prometheus.CounterVec
	PushFailures      *prometheus.CounterVec
	Invocations       *prometheus.CounterVec
	EventsDropped     prometheus.Counter
	SinkFailures      *prometheus.CounterVec
	WorkerRestarts    *prometheus.CounterVec
	OnlineIdentities  prometheus.Gauge
	LiveConnections   prometheus.Gauge
	ProcessCPU        prometheus.Gauge
	ProcessRSS        prometheus.Gauge
	QueueLength       *prometheus.GaugeVec
	QueueCapacity     *prometheus.GaugeVec

	mu     sync.RWMutex
	latest MonitoringStats
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_persisted_total",
			Help:      "Number of messages durably stored",
		}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Number of messages the store refused",
		}),
		RouteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "route_duration_seconds",
			Help:      "Time spent persisting and pushing one message",
			Buckets:   prometheus.DefBuckets,
		}),
		Pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pushes_total",
			Help:      "Number of pushes queued on live connections",
		}, []string{"target"}),
		PushFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_failures_total",
			Help:      "Number of pushes that could not be queued",
		}, []string{"target", "reason"}),
		Invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Number of hub invocations by target and outcome",
		}, []string{"target", "outcome"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Number of domain events dropped because the fan-out queue was full",
		}),
		SinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_failures_total",
			Help:      "Number of domain events a permanent sink failed to consume",
		}, []string{"sink"}),
		WorkerRestarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_restarts_total",
			Help:      "Number of supervised workers restarted after a crash",
		}, []string{"worker"}),
		OnlineIdentities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_identities",
			Help:      "Number of identities with at least one live connection",
		}),
		LiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_connections",
			Help:      "Number of registered connections",
		}),
		ProcessCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_cpu_percent",
			Help:      "CPU usage of the hub process",
		}),
		ProcessRSS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_rss_bytes",
			Help:      "Resident memory of the hub process",
		}),
		QueueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_length",
			Help:      "Number of items waiting in an internal channel",
		}, []string{"channel"}),
		QueueCapacity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_capacity",
			Help:      "Buffer size of an internal channel",
		}, []string{"channel"}),
	}

	reg.MustRegister(
		m.MessagesPersisted,
		m.PersistFailures,
		m.RouteDuration,
		m.Pushes,
		m.PushFailures,
		m.Invocations,
		m.EventsDropped,
		m.SinkFailures,
		m.WorkerRestarts,
		m.OnlineIdentities,
		m.LiveConnections,
		m.ProcessCPU,
		m.ProcessRSS,
		m.QueueLength,
		m.QueueCapacity,
	)
	return m
}

// ObservePushFailure counts a failed push under a coarse reason label.
func (m *Metrics) ObservePushFailure(target string, err error) {
	m.PushFailures.WithLabelValues(target, PushFailureReason(err)).Inc()
}

func PushFailureReason(err error) string {
	switch {
	case errors.Is(err, chaterrors.ErrConnectionClosed):
		return "closed"
	case errors.Is(err, chaterrors.ErrBackpressure):
		return "backpressure"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// ObserveInvocation counts one hub invocation, outcome being "ok" or the fault text.
func (m *Metrics) ObserveInvocation(target string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = chaterrors.FaultMessage(err)
	}
	m.Invocations.WithLabelValues(InvocationLabel(target), outcome).Inc()
}

// InvocationLabel keeps client-chosen target names out of the label set.
func InvocationLabel(target string) string {
	switch target {
	case chat.TargetSendMessage:
		return target
	default:
		return "unknown"
	}
}

// Update stores the latest snapshot and mirrors it into the gauges.
func (m *Metrics) Update(stats MonitoringStats) {
	m.OnlineIdentities.Set(float64(stats.OnlineIdentities))
	m.LiveConnections.Set(float64(stats.LiveConnections))
	m.ProcessCPU.Set(stats.CPUPercent)
	m.ProcessRSS.Set(float64(stats.RSSMb * 1024 * 1024))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = stats
}

func (m *Metrics) GetLatest() MonitoringStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}
