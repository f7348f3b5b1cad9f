// Package metrics exposes node telemetry to Prometheus.
//
// The Collector counts scan decisions and admin operations and tracks the
// stored template count and active mode. It registers on a private
// registry, served together with a JSON /healthz probe by Server.
package metrics
