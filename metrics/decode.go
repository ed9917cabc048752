// Package metrics has prometheus metric variables/functions.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mjl-/imapdecode/mlog"
)

var pkglog = mlog.New("metrics", nil)

var (
	metricResponse = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imapdecode_response_total",
			Help: "Responses read, by kind and result.",
		},
		[]string{
			"kind",   // untagged, tagged, continuation, none
			"result", // ok, or the class of error, e.g. quoted, literal, list, spec, char, nesting, depth, toolong, read
		},
	)
	metricResponseSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "imapdecode_response_size_bytes",
			Help:    "Size of responses including literals.",
			Buckets: []float64{64, 256, 1024, 4 * 1024, 16 * 1024, 64 * 1024, 256 * 1024, 1024 * 1024, 16 * 1024 * 1024},
		},
	)
	metricParseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imapdecode_parse_duration_seconds",
			Help:    "Time spent parsing a response, excluding reading it.",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		},
		[]string{
			"result", // ok, error
		},
	)
)

// ResponseObserve tracks a decoded response in the metrics and logs the result.
// Result is "ok" or the class of error. The parse duration is measured from
// start.
func ResponseObserve(ctx context.Context, kind, result string, size int, start time.Time) {
	log := pkglog.WithContext(ctx)
	d := time.Since(start)
	metricResponse.WithLabelValues(kind, result).Inc()
	metricResponseSize.Observe(float64(size))
	r := "ok"
	if result != "ok" {
		r = "error"
	}
	metricParseDuration.WithLabelValues(r).Observe(float64(d) / float64(time.Second))
	log.Debug("response decoded",
		slog.String("kind", kind),
		slog.String("result", result),
		slog.Int("size", size),
		slog.Duration("duration", d))
}
