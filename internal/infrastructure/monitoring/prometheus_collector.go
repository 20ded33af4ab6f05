package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	connectionsActive *prometheus.GaugeVec
	connectionsTotal  *prometheus.CounterVec

	eventsHandled   *prometheus.CounterVec
	eventDuration   *prometheus.HistogramVec
	broadcastsSent  *prometheus.CounterVec
	messagesDropped prometheus.Counter
	backplane       *prometheus.CounterVec
	circuitState    *prometheus.GaugeVec
	roomsActive     prometheus.Gauge
}

// NewPrometheusCollector registers the realtime metrics on reg. A nil reg
// uses the default registerer.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusCollector{
		connectionsActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "exphub_ws_connections",
			Help: "Number of open socket connections",
		}, []string{"authenticated"}),

		connectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exphub_ws_connections_total",
			Help: "Total number of socket connections accepted",
		}, []string{"authenticated"}),

		eventsHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exphub_ws_events_total",
			Help: "Inbound socket events by event name and outcome",
		}, []string{"event", "outcome"}),

		eventDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exphub_ws_event_duration_seconds",
			Help:    "Time spent handling an inbound socket event",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"event"}),

		broadcastsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exphub_broadcasts_total",
			Help: "Directed sends by target kind",
		}, []string{"target"}),

		messagesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "exphub_ws_dropped_messages_total",
			Help: "Outbound messages dropped because a client send buffer was full",
		}),

		backplane: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exphub_backplane_messages_total",
			Help: "Envelopes relayed over the backplane by direction",
		}, []string{"direction"}),

		circuitState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "exphub_circuit_breaker_state",
			Help: "Circuit breaker state per dependency (0 closed, 1 open, 2 half-open)",
		}, []string{"dependency"}),

		roomsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "exphub_rooms",
			Help: "Rooms with at least one local member, sampled periodically",
		}),
	}
}

func authLabel(authenticated bool) string {
	if authenticated {
		return "true"
	}
	return "false"
}

func (p *PrometheusCollector) ConnectionOpened(authenticated bool) {
	p.connectionsActive.WithLabelValues(authLabel(authenticated)).Inc()
	p.connectionsTotal.WithLabelValues(authLabel(authenticated)).Inc()
}

func (p *PrometheusCollector) ConnectionClosed(authenticated bool) {
	p.connectionsActive.WithLabelValues(authLabel(authenticated)).Dec()
}

func (p *PrometheusCollector) EventHandled(event, outcome string, duration time.Duration) {
	p.eventsHandled.WithLabelValues(event, outcome).Inc()
	if duration > 0 {
		p.eventDuration.WithLabelValues(event).Observe(duration.Seconds())
	}
}

func (p *PrometheusCollector) BroadcastSent(kind string) {
	p.broadcastsSent.WithLabelValues(kind).Inc()
}

func (p *PrometheusCollector) MessageDropped() {
	p.messagesDropped.Inc()
}

func (p *PrometheusCollector) BackplaneMessage(direction string) {
	p.backplane.WithLabelValues(direction).Inc()
}

// CircuitStateChanged records the numeric state of a dependency's breaker.
func (p *PrometheusCollector) CircuitStateChanged(dependency string, state int) {
	p.circuitState.WithLabelValues(dependency).Set(float64(state))
}

func (p *PrometheusCollector) RoomsSampled(rooms int) {
	p.roomsActive.Set(float64(rooms))
}
