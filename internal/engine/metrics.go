package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/snakebridge/internal/model"
)

var (
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snakebridge_engine_messages_total",
			Help: "Total number of inbound messages processed by the engine.",
		},
		[]string{"kind"},
	)

	deciderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snakebridge_engine_decider_errors_total",
			Help: "Total number of decider failures.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(messagesTotal)
	prometheus.MustRegister(deciderErrorsTotal)

	for _, k := range []model.Kind{model.KindStart, model.KindMove, model.KindEnd} {
		messagesTotal.WithLabelValues(string(k))
		deciderErrorsTotal.WithLabelValues(string(k))
	}
}
