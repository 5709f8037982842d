package correction

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	correctionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rtscorrect",
			Subsystem: "correction",
			Name:      "requests_total",
			Help:      "Correction requests by outcome (applied or pass-through reason)",
		},
		[]string{"outcome"},
	)

	correctionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rtscorrect",
			Subsystem: "correction",
			Name:      "duration_seconds",
			Help:      "Wall time of correction requests that reached the model",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
		},
	)

	generatedTokens = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rtscorrect",
			Subsystem: "generation",
			Name:      "tokens_total",
			Help:      "Tokens generated by the model",
		},
	)

	stopReasons = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rtscorrect",
			Subsystem: "generation",
			Name:      "stops_total",
			Help:      "Generation loop terminations by stop reason",
		},
		[]string{"reason"},
	)

	initTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rtscorrect",
			Subsystem: "manager",
			Name:      "initializations_total",
			Help:      "Background initializations by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(correctionsTotal, correctionDuration, generatedTokens, stopReasons, initTotal)
}
