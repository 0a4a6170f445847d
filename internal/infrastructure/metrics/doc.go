// Package metrics exposes the Prometheus counters of the flow editor: applied
// and ignored commands, resolved connections, validations and saves, plus
// HTTP request metrics for the API server. The collector is served at
// /metrics.
package metrics
