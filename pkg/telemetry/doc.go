// Package telemetry groups the observability subsystems: Prometheus
// metrics under telemetry/metrics and structured logging under
// telemetry/logging.
package telemetry
