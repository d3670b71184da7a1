package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/dittoshare/pkg/metrics"
)

// blobMetrics is the Prometheus implementation of metrics.BlobMetrics.
type blobMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	bytes      *prometheus.CounterVec
}

// NewBlobMetrics returns the blob metrics bound to the active registry.
// Returns nil if metrics are not enabled.
func NewBlobMetrics() *blobMetrics {
	reg := metrics.GetRegistry()
	if reg == nil {
		return nil
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if m, ok := blobCache[reg]; ok {
		return m
	}

	m := &blobMetrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittoshare_blob_operations_total",
				Help: "Total number of blob store operations by backend, operation and status",
			},
			[]string{"backend", "operation", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittoshare_blob_operation_duration_milliseconds",
				Help: "Duration of blob store operations in milliseconds",
				Buckets: []float64{
					0.5,
					1,
					5,
					10,
					50, // remote object stores
					100,
					500,
					1000,
					5000,
				},
			},
			[]string{"backend", "operation"},
		),
		bytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittoshare_blob_bytes_total",
				Help: "Total bytes moved through the blob store",
			},
			[]string{"backend", "operation"},
		),
	}
	blobCache[reg] = m
	return m
}

func (m *blobMetrics) ObserveOperation(backend, op string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operations.WithLabelValues(backend, op, status).Inc()
	m.duration.WithLabelValues(backend, op).Observe(float64(duration.Microseconds()) / 1000.0)
}

func (m *blobMetrics) RecordBytes(backend, op string, bytes int64) {
	if m == nil || bytes <= 0 {
		return
	}
	m.bytes.WithLabelValues(backend, op).Add(float64(bytes))
}
