// Package metrics exports tracer records as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wnxd/microtrace/syscalls"
)

const namespace = "microtrace"

// Collector counts every record it consumes. Subscribe it to a tracer and
// register it with a prometheus.Registerer.
type Collector struct {
	records  *prometheus.CounterVec
	failures *prometheus.CounterVec
	inFlight prometheus.GaugeFunc
}

var (
	_ prometheus.Collector = (*Collector)(nil)
	_ syscalls.Consumer    = (*Collector)(nil)
)

func NewCollector(tr syscalls.Tracer) *Collector {
	labels := prometheus.Labels{"profile": tr.Profile().Tag().String()}
	return &Collector{
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "records_total",
				Help:        "Records emitted by the correlation engine",
				ConstLabels: labels,
			}, []string{"kind", "syscall"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "syscall_failures_total",
				Help:        "Syscalls whose decoded return reports failure",
				ConstLabels: labels,
			}, []string{"syscall"},
		),
		inFlight: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "in_flight",
				Help:        "Syscalls entered and not yet returned",
				ConstLabels: labels,
			}, func() float64 { return float64(tr.InFlight()) },
		),
	}
}

func (c *Collector) Consume(r syscalls.Record) {
	var name string
	switch r := r.(type) {
	case *syscalls.SyscallEnter:
		name = r.Name()
	case *syscalls.SyscallReturn:
		name = r.Name()
		if !r.Return.Success {
			c.failures.WithLabelValues(name).Inc()
		}
	}
	c.records.WithLabelValues(r.Kind().String(), name).Inc()
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.records.Describe(ch)
	c.failures.Describe(ch)
	c.inFlight.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.records.Collect(ch)
	c.failures.Collect(ch)
	c.inFlight.Collect(ch)
}
