// Package telemetry exports runtime activity as Prometheus metrics.
//
// Collector is a runtime.Observer. It registers on the registry it is
// given rather than the global one, so several runtimes (or tests) can
// each own a registry.
package telemetry
