// Package metrics exports optimization progress as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/san-kum/krotov/internal/krotov"
)

const namespace = "krotov"

// Collector is an observer that updates a fixed set of metrics after every
// iteration. The metrics carry the model and functional as constant labels.
type Collector struct {
	iterations   prometheus.Counter
	value        prometheus.Gauge
	delta        prometheus.Gauge
	total        prometheus.Gauge
	propagations prometheus.Counter
	duration     prometheus.Histogram
	runs         *prometheus.CounterVec
}

func NewCollector(model, functional string) *Collector {
	labels := prometheus.Labels{"model": model, "functional": functional}
	return &Collector{
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "iterations_total",
			Help: "Completed optimization iterations.", ConstLabels: labels,
		}),
		value: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "functional_value",
			Help: "Final-time functional after the latest iteration.", ConstLabels: labels,
		}),
		delta: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "functional_delta",
			Help: "Change of the functional in the latest iteration.", ConstLabels: labels,
		}),
		total: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "functional_total",
			Help: "Functional including the running cost.", ConstLabels: labels,
		}),
		propagations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "propagations_total",
			Help: "Single-interval propagations performed.", ConstLabels: labels,
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "iteration_duration_seconds",
			Help: "Wall-clock time per iteration.", ConstLabels: labels,
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_total",
			Help: "Finished runs by termination reason.", ConstLabels: labels,
		}, []string{"reason"}),
	}
}

func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{c.iterations, c.value, c.delta, c.total, c.propagations, c.duration, c.runs} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) OnIteration(rec krotov.IterationRecord) *krotov.Stop {
	c.iterations.Inc()
	c.value.Set(rec.Value)
	c.delta.Set(rec.Delta)
	c.total.Set(rec.Total)
	c.propagations.Add(float64(rec.Propagations))
	c.duration.Observe(rec.Elapsed.Seconds())
	return nil
}

// Finish counts the run under its termination reason. The guess evaluation is
// folded into the propagation count here since observers never see it.
func (c *Collector) Finish(res *krotov.Result) {
	if res.Guess != nil {
		c.propagations.Add(float64(res.Guess.Propagations))
		if len(res.History) == 0 {
			c.value.Set(res.Guess.Value)
		}
	}
	c.runs.WithLabelValues(res.Reason.String()).Inc()
}
