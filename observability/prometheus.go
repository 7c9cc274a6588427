package observability

import (
	"errors"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/ecoseed"
)

// PrometheusFactory implements MetricFactory on a prometheus.Registerer.
// Dotted metric names become underscore names; counters gain a _total suffix.
type PrometheusFactory struct {
	reg prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Histogram
}

// NewPrometheusFactory creates a factory registering into reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewPrometheusFactory(reg prometheus.Registerer) *PrometheusFactory {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusFactory{
		reg:        reg,
		counters:   make(map[string]prometheus.Counter),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// Counter returns the counter registered under name, creating it once.
func (f *PrometheusFactory) Counter(name string) Counter {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: promName(name) + "_total",
		Help: "Eco-Seed ledger counter " + name + ".",
	})
	f.counters[name] = register(f.reg, c).(prometheus.Counter)
	return f.counters[name]
}

// Histogram returns the histogram registered under name, creating it once.
func (f *PrometheusFactory) Histogram(name string) Histogram {
	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.histograms[name]; ok {
		return h
	}
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    promName(name),
		Help:    "Eco-Seed ledger histogram " + name + ".",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
	})
	f.histograms[name] = register(f.reg, h).(prometheus.Histogram)
	return f.histograms[name]
}

// register adds c to reg, reusing the collector already registered under
// the same descriptor.
func register(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
	}
	return c
}

func promName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}

// isRejection reports whether err is a business rejection rather than a
// storage failure.
func isRejection(err error) bool {
	switch ecoseed.KindOf(err) {
	case ecoseed.KindValidation, ecoseed.KindState, ecoseed.KindUnauthenticated:
		return true
	}
	return false
}
