// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Connection state, reconnect attempts and terminal failures
//   - Subscribe chunks sent and failed, tokens subscribed
//   - Heartbeat probes and failures
//   - Event log entries written, dropped and failed
//
// All methods are safe to call on a nil *Metrics.
package metrics
