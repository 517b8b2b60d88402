package metricsink

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus is a Sink backed by github.com/prometheus/client_golang:
// every distinct counter/histogram name seen is lazily registered on
// first use against the supplied registerer.
type Prometheus struct {
	reg        prometheus.Registerer
	namespace  string
	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Histogram
}

// NewPrometheus returns a Sink that registers all of its metrics under
// namespace on reg.
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	return &Prometheus{
		reg:        reg,
		namespace:  namespace,
		counters:   make(map[string]prometheus.Counter),
		histograms: make(map[string]prometheus.Histogram),
	}
}

func (p *Prometheus) IncCounter(name string, delta uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.counters[name]
	if !ok {
		c = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      name,
		})
		p.reg.MustRegister(c)
		p.counters[name] = c
	}
	c.Add(float64(delta))
}

func (p *Prometheus) ObserveDuration(name string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.histograms[name]
	if !ok {
		h = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      name,
			Buckets:   prometheus.DefBuckets,
		})
		p.reg.MustRegister(h)
		p.histograms[name] = h
	}
	h.Observe(d.Seconds())
}
