// Package metrics exposes Prometheus metrics for the streaming client, the
// REST executor and the Kafka sink.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/alejoacosta74/coinbase-api/internal/ws"
	"github.com/alejoacosta74/coinbase-api/pkg/coinbase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

const namespace = "coinbase"

// Recorder records metrics reported by the client components. It implements
// dispatcher.Observer, client.ConnectionObserver, rest.Observer and
// kafka.Observer.
type Recorder struct {
	wsMetrics struct {
		framesReceived  *prometheus.CounterVec // frames dispatched by channel
		eventsReceived  *prometheus.CounterVec // events delivered by channel
		dispatchErrors  *prometheus.CounterVec // frames that failed to decode
		connectionState prometheus.Gauge       // ws.State as a number
		connects        prometheus.Counter
		subscriptions   prometheus.Gauge
	}
	restMetrics struct {
		requests *prometheus.CounterVec
		latency  *prometheus.HistogramVec
		errors   *prometheus.CounterVec
	}
	kafkaMetrics struct {
		messagesSent *prometheus.CounterVec
		sendErrors   *prometheus.CounterVec
	}

	stateMu   sync.Mutex
	lastState ws.State

	logger *logrus.Entry
}

// NewRecorder creates every metric and registers it with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	r := &Recorder{
		logger: logrus.WithField("component", "metrics_recorder"),
	}

	r.wsMetrics.framesReceived = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "frames_total",
		Help:      "Number of websocket frames dispatched, by channel",
	}, []string{"channel"})

	r.wsMetrics.eventsReceived = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "events_total",
		Help:      "Number of events delivered to listeners, by channel",
	}, []string{"channel"})

	r.wsMetrics.dispatchErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "dispatch_errors_total",
		Help:      "Number of frames that could not be decoded, by channel",
	}, []string{"channel"})

	r.wsMetrics.connectionState = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "connection_state",
		Help:      "Connection state: 0 closed, 1 connecting, 2 open",
	})

	r.wsMetrics.connects = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "connects_total",
		Help:      "Number of successful connections",
	})

	r.wsMetrics.subscriptions = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "active_subscriptions",
		Help:      "Number of active channel subscriptions",
	})

	r.restMetrics.requests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rest",
		Name:      "requests_total",
		Help:      "Number of REST calls by method and status code",
	}, []string{"method", "code"})

	r.restMetrics.latency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "rest",
		Name:      "request_duration_seconds",
		Help:      "Duration of REST calls including retries",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method"})

	r.restMetrics.errors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rest",
		Name:      "request_errors_total",
		Help:      "Number of failed REST calls by method",
	}, []string{"method"})

	r.kafkaMetrics.messagesSent = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "kafka",
		Name:      "messages_sent_total",
		Help:      "Number of frames published to Kafka, by topic",
	}, []string{"topic"})

	r.kafkaMetrics.sendErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "kafka",
		Name:      "send_errors_total",
		Help:      "Number of failed Kafka publishes, by topic",
	}, []string{"topic"})

	r.logger.Debug("Metrics recorder initialized")
	return r
}

func (r *Recorder) FrameDispatched(channel coinbase.Channel, events int) {
	r.wsMetrics.framesReceived.WithLabelValues(channel.String()).Inc()
	r.wsMetrics.eventsReceived.WithLabelValues(channel.String()).Add(float64(events))
}

func (r *Recorder) DispatchFailed(channel string, err error) {
	if channel == "" {
		channel = "unknown"
	}
	r.wsMetrics.dispatchErrors.WithLabelValues(channel).Inc()
}

// ConnectionStateChanged counts a connect on every transition to open.
// Repeated reports of the same state are ignored.
func (r *Recorder) ConnectionStateChanged(state ws.State) {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	if state == ws.StateOpen && r.lastState != ws.StateOpen {
		r.wsMetrics.connects.Inc()
	}
	r.lastState = state
	r.wsMetrics.connectionState.Set(float64(state))
}

func (r *Recorder) SubscriptionsChanged(active int) {
	r.wsMetrics.subscriptions.Set(float64(active))
}

func (r *Recorder) RequestDone(method string, statusCode int, elapsed time.Duration, err error) {
	r.restMetrics.requests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	r.restMetrics.latency.WithLabelValues(method).Observe(elapsed.Seconds())
	if err != nil {
		r.restMetrics.errors.WithLabelValues(method).Inc()
	}
}

func (r *Recorder) MessageSent(topic string) {
	r.kafkaMetrics.messagesSent.WithLabelValues(topic).Inc()
}

func (r *Recorder) SendFailed(topic string, err error) {
	r.kafkaMetrics.sendErrors.WithLabelValues(topic).Inc()
	r.logger.WithError(err).Debugf("Kafka send to %s failed", topic)
}
