package metrics

import "time"

// BlobMetrics observes blob store calls.
type BlobMetrics interface {
	// ObserveOperation records one call against backend (fs, s3, memory).
	ObserveOperation(backend, op string, duration time.Duration, err error)

	// RecordBytes adds bytes moved by op.
	RecordBytes(backend, op string, bytes int64)
}

var newPrometheusBlobMetrics func() BlobMetrics

// RegisterBlobMetricsConstructor is called by the prometheus package
// during initialization.
func RegisterBlobMetricsConstructor(constructor func() BlobMetrics) {
	newPrometheusBlobMetrics = constructor
}

// NewBlobMetrics returns Prometheus-backed blob metrics, or nil when
// metrics are disabled.
func NewBlobMetrics() BlobMetrics {
	if !IsEnabled() || newPrometheusBlobMetrics == nil {
		return nil
	}
	return newPrometheusBlobMetrics()
}

func ObserveBlobOperation(m BlobMetrics, backend, op string, duration time.Duration, err error) {
	if m != nil {
		m.ObserveOperation(backend, op, duration, err)
	}
}

func RecordBlobBytes(m BlobMetrics, backend, op string, bytes int64) {
	if m != nil {
		m.RecordBytes(backend, op, bytes)
	}
}
