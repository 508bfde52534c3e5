package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "forum"

// Metrics bundles the collectors of the sync core. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	channelPublishes *prometheus.CounterVec
	voteOperations   *prometheus.CounterVec
	remoteRequests   *prometheus.CounterVec
	remoteLatency    *prometheus.HistogramVec
	staleDiscards    *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		channelPublishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_publishes_total",
			Help:      "Snapshots published per broadcast channel.",
		}, []string{"channel"}),
		voteOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_operations_total",
			Help:      "Vote operations by direction and outcome.",
		}, []string{"op", "outcome"}),
		remoteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "Requests sent to the remote store.",
		}, []string{"method", "route", "status"}),
		remoteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "Latency of remote store requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		staleDiscards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_discarded_total",
			Help:      "Load results dropped because a newer state was already published.",
		}, []string{"channel"}),
	}

	reg.MustRegister(m.channelPublishes, m.voteOperations, m.remoteRequests, m.remoteLatency, m.staleDiscards)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// PublishHook matches broadcast.WithPublishHook.
func (m *Metrics) PublishHook(channel string) {
	if m == nil {
		return
	}
	m.channelPublishes.WithLabelValues(channel).Inc()
}

func (m *Metrics) VoteOperation(op, outcome string) {
	if m == nil {
		return
	}
	m.voteOperations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) StaleDiscard(channel string) {
	if m == nil {
		return
	}
	m.staleDiscards.WithLabelValues(channel).Inc()
}

// RemoteRequest records one round trip; status 0 means a transport failure.
func (m *Metrics) RemoteRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.remoteRequests.WithLabelValues(method, route, label).Inc()
	m.remoteLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
