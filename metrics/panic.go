package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricPanic = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "imapdecode_panic_total",
		Help: "Number of unhandled panics while decoding, by package.",
	},
	[]string{
		"pkg",
	},
)

// PanicInc counts a recovered panic in package pkg.
func PanicInc(pkg string) {
	metricPanic.WithLabelValues(pkg).Inc()
}
