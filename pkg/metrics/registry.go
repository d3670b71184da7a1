// Package metrics holds the process-wide Prometheus registry and the
// metric interfaces instrumented components accept.
//
// Metrics are off until InitRegistry is called. Constructors return nil
// while disabled and every interface method has a nil-safe helper, so an
// uninstrumented component pays nothing.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry enables metrics with a fresh registry carrying the Go
// runtime and process collectors. Calling it again replaces the registry.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mu.Lock()
	registry = reg
	mu.Unlock()
	return reg
}

// Reset disables metrics.
func Reset() {
	mu.Lock()
	registry = nil
	mu.Unlock()
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the active registry, or nil when disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// WriteTextfile writes every gathered metric to path in the text
// exposition format, for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, reg)
}
