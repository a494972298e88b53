// Package metrics holds the prometheus collectors shared by the HTTP server
// and the queue worker.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MeKo-Tech/omr/internal/engine"
)

var (
	recognitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omr_recognitions_total",
			Help: "Total number of recognition calls by output code",
		},
		[]string{"kind", "code"}, // kind: recognize, second, websocket, task
	)

	recognitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "omr_recognition_duration_seconds",
			Help:    "Recognition duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 25},
		},
		[]string{"kind"},
	)

	imagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omr_images_total",
			Help: "Submitted photographs by registration status",
		},
		[]string{"status"},
	)

	pagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omr_pages_total",
			Help: "Template pages by whether a photograph was assigned",
		},
		[]string{"matched"},
	)
)

// ObserveOutput records a finished recognition.
func ObserveOutput(kind string, out *engine.Output, d time.Duration) {
	recognitionsTotal.WithLabelValues(kind, strconv.Itoa(out.Code)).Inc()
	recognitionDuration.WithLabelValues(kind).Observe(d.Seconds())
	for _, im := range out.Images {
		imagesTotal.WithLabelValues(im.Code.String()).Inc()
	}
	for _, p := range out.Pages {
		pagesTotal.WithLabelValues(strconv.FormatBool(p.HasPage)).Inc()
	}
}

// ObserveFailure records a recognition call that returned an error.
func ObserveFailure(kind string) {
	recognitionsTotal.WithLabelValues(kind, "error").Inc()
}
