package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels
const (
	OutcomeApplied = "applied"
	OutcomeIgnored = "ignored"
	OutcomeInvalid = "invalid"
	OutcomeValid   = "valid"
	OutcomeSaved   = "saved"
	OutcomeFailed  = "failed"
)

// Collector holds the Prometheus metrics of the flow editor. Each collector
// owns its registry, so tests can create as many as they like. All methods
// are safe on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Commands          *prometheus.CounterVec
	NodesCreated      prometheus.Counter
	NodesRemoved      prometheus.Counter
	ConnectionsMade   prometheus.Counter
	EdgesReplaced     prometheus.Counter
	Validations       *prometheus.CounterVec
	Saves             *prometheus.CounterVec
	RepositoryLatency *prometheus.HistogramVec
}

// NewCollector creates a collector whose metric names start with namespace
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Editor commands by kind and outcome",
		}, []string{"kind", "outcome"}),
		NodesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_created_total",
			Help:      "Total number of nodes created",
		}),
		NodesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_removed_total",
			Help:      "Total number of nodes removed",
		}),
		ConnectionsMade: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total number of connections resolved into edges",
		}),
		EdgesReplaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_replaced_total",
			Help:      "Edges dropped because their source handle was reconnected",
		}),
		Validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Flow validations by outcome",
		}, []string{"outcome"}),
		Saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Save attempts by outcome",
		}, []string{"outcome"}),
		RepositoryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "repository_operation_duration_seconds",
			Help:      "Repository operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Commands,
		c.NodesCreated,
		c.NodesRemoved,
		c.ConnectionsMade,
		c.EdgesReplaced,
		c.Validations,
		c.Saves,
		c.RepositoryLatency,
	)
	return c
}

// Registry returns the Prometheus registry for this collector
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) CommandApplied(kind string, applied bool) {
	if c == nil {
		return
	}
	outcome := OutcomeApplied
	if !applied {
		outcome = OutcomeIgnored
	}
	c.Commands.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) CommandRejected(kind string) {
	if c == nil {
		return
	}
	c.Commands.WithLabelValues(kind, OutcomeInvalid).Inc()
}

func (c *Collector) NodeCreated() {
	if c == nil {
		return
	}
	c.NodesCreated.Inc()
}

func (c *Collector) NodeRemoved() {
	if c == nil {
		return
	}
	c.NodesRemoved.Inc()
}

// Connected records a resolved connection and whether it displaced an edge
func (c *Collector) Connected(replaced bool) {
	if c == nil {
		return
	}
	c.ConnectionsMade.Inc()
	if replaced {
		c.EdgesReplaced.Inc()
	}
}

func (c *Collector) Validated(valid bool) {
	if c == nil {
		return
	}
	outcome := OutcomeValid
	if !valid {
		outcome = OutcomeInvalid
	}
	c.Validations.WithLabelValues(outcome).Inc()
}

// SaveOutcome records one of OutcomeSaved, OutcomeInvalid or OutcomeFailed
func (c *Collector) SaveOutcome(outcome string) {
	if c == nil {
		return
	}
	c.Saves.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveRepository(operation string, d time.Duration) {
	if c == nil {
		return
	}
	c.RepositoryLatency.WithLabelValues(operation).Observe(d.Seconds())
}

func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
