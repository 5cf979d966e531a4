package bridge

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/snakebridge/internal/model"
)

// Call outcome label values.
const (
	outcomeResolved    = "resolved"
	outcomeCancelled   = "cancelled"
	outcomeUnavailable = "unavailable"
	outcomeViolation   = "protocol_violation"
	outcomeError       = "error"
)

// Dropped reply reasons.
const (
	reasonStale     = "stale"
	reasonUnclaimed = "unclaimed"
)

var (
	callsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snakebridge_bridge_calls_total",
			Help: "Total number of bridge calls and notifications by outcome.",
		},
		[]string{"kind", "outcome"},
	)

	callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snakebridge_bridge_call_duration_seconds",
			Help:    "Time from call entry to reply, including time queued at the gate.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	gateWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snakebridge_bridge_gate_wait_seconds",
			Help:    "Time a call waited for its kind's gate.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	gateWaiting = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snakebridge_bridge_gate_waiting",
			Help: "Number of calls queued at a kind's gate.",
		},
		[]string{"kind"},
	)

	droppedReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snakebridge_bridge_dropped_replies_total",
			Help: "Engine replies that no pending call claimed.",
		},
		[]string{"kind", "reason"},
	)
)

func init() {
	prometheus.MustRegister(callsTotal)
	prometheus.MustRegister(callDuration)
	prometheus.MustRegister(gateWaitDuration)
	prometheus.MustRegister(gateWaiting)
	prometheus.MustRegister(droppedReplies)

	for _, k := range model.ReplyKinds {
		for _, o := range []string{outcomeResolved, outcomeCancelled, outcomeUnavailable, outcomeViolation} {
			callsTotal.WithLabelValues(string(k), o)
		}
		droppedReplies.WithLabelValues(string(k), reasonStale)
		droppedReplies.WithLabelValues(string(k), reasonUnclaimed)
		gateWaiting.WithLabelValues(string(k))
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeResolved
	case errors.Is(err, ErrCancelled):
		return outcomeCancelled
	case errors.Is(err, ErrEngineUnavailable):
		return outcomeUnavailable
	case errors.Is(err, ErrProtocolViolation):
		return outcomeViolation
	default:
		return outcomeError
	}
}

func observeCall(kind model.Kind, start time.Time, err error) {
	callsTotal.WithLabelValues(string(kind), outcomeOf(err)).Inc()
	callDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
}
