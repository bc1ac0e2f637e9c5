package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	thumbnails = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagedeck",
			Name:      "thumbnails_total",
			Help:      "Thumbnail renders by result (rendered, failed)",
		},
		[]string{"result"},
	)

	renderLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pagedeck",
			Name:      "thumbnail_render_duration_seconds",
			Help:      "Duration of a single page thumbnail render",
			Buckets:   prometheus.DefBuckets,
		},
	)

	generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagedeck",
			Name:      "generations_total",
			Help:      "Thumbnail generation epochs by final state (completed, cancelled)",
		},
		[]string{"state"},
	)

	exports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagedeck",
			Name:      "exports_total",
			Help:      "Export runs by delivery mode and result",
		},
		[]string{"mode", "result"},
	)

	exportLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pagedeck",
			Name:      "export_duration_seconds",
			Help:      "Duration of export runs by delivery mode",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	exportedDocs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagedeck",
			Name:      "exported_documents_total",
			Help:      "Documents processed by export, labeled by result or failure kind",
		},
		[]string{"result"},
	)

	sessions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pagedeck",
			Name:      "sessions_loaded_total",
			Help:      "Document sets loaded into a fresh session",
		},
	)

	rejectedUploads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pagedeck",
			Name:      "uploads_rejected_total",
			Help:      "Uploaded files dropped because they are not PDF documents",
		},
	)

	registerOnce sync.Once
)

// Init registers collectors. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(thumbnails, renderLatency, generations, exports, exportLatency, exportedDocs, sessions, rejectedUploads)
	})
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveRender(dur time.Duration, err error) {
	renderLatency.Observe(dur.Seconds())
	if err != nil {
		thumbnails.WithLabelValues("failed").Inc()
		return
	}
	thumbnails.WithLabelValues("rendered").Inc()
}

func IncGeneration(state string) { generations.WithLabelValues(state).Inc() }

func ObserveExport(mode, result string, dur time.Duration) {
	exports.WithLabelValues(mode, result).Inc()
	exportLatency.WithLabelValues(mode).Observe(dur.Seconds())
}

func IncExportedDocument(result string) { exportedDocs.WithLabelValues(result).Inc() }
func IncSession()                        { sessions.Inc() }
func AddRejectedUploads(n int)           { rejectedUploads.Add(float64(n)) }
