package realtime

import "time"

// Metrics receives connection and delivery counters. The Prometheus
// collector in the monitoring package satisfies it.
type Metrics interface {
	ConnectionOpened(authenticated bool)
	ConnectionClosed(authenticated bool)
	EventHandled(event, outcome string, duration time.Duration)
	BroadcastSent(kind string)
	MessageDropped()
	BackplaneMessage(direction string)
}

type noopMetrics struct{}

func (noopMetrics) ConnectionOpened(bool)                       {}
func (noopMetrics) ConnectionClosed(bool)                       {}
func (noopMetrics) EventHandled(string, string, time.Duration) {}
func (noopMetrics) BroadcastSent(string)                        {}
func (noopMetrics) MessageDropped()                             {}
func (noopMetrics) BackplaneMessage(string)                     {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
