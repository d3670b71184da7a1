package metrics

import "time"

// Operation outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeUserError   = "user_error"
	OutcomeSystemError = "system_error"
)

// ShareMetrics observes share core operations.
type ShareMetrics interface {
	// ObserveOperation records one completed operation (create, get,
	// list, set_permissions, set_timestamp, delete) and its outcome.
	ObserveOperation(op, outcome string, duration time.Duration)

	// RecordRecovered adds n replayed transaction records.
	RecordRecovered(n int)

	// RecordTransaction counts a transaction record written for kind.
	RecordTransaction(kind string)
}

var newPrometheusShareMetrics func() ShareMetrics

// RegisterShareMetricsConstructor is called by the prometheus package
// during initialization.
func RegisterShareMetricsConstructor(constructor func() ShareMetrics) {
	newPrometheusShareMetrics = constructor
}

// NewShareMetrics returns Prometheus-backed share metrics, or nil when
// metrics are disabled or no implementation is linked in.
func NewShareMetrics() ShareMetrics {
	if !IsEnabled() || newPrometheusShareMetrics == nil {
		return nil
	}
	return newPrometheusShareMetrics()
}

func ObserveOperation(m ShareMetrics, op, outcome string, duration time.Duration) {
	if m != nil {
		m.ObserveOperation(op, outcome, duration)
	}
}

func RecordRecovered(m ShareMetrics, n int) {
	if m != nil {
		m.RecordRecovered(n)
	}
}

func RecordTransaction(m ShareMetrics, kind string) {
	if m != nil {
		m.RecordTransaction(kind)
	}
}
