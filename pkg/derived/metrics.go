package derived

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	recomputations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dataset",
		Subsystem: "derived",
		Name:      "recomputations_total",
		Help:      "Number of derived dataset computations by recipe kind and result.",
	}, []string{"kind", "result"})

	recomputeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dataset",
		Subsystem: "derived",
		Name:      "recompute_duration_seconds",
		Help:      "Time spent computing derived datasets by recipe kind.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"kind"})
)

// RegisterMetrics registers the derived dataset metrics. Registering twice is not an error.
func RegisterMetrics(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{recomputations, recomputeDuration} {
		if err := r.Register(c); err != nil {
			are := prometheus.AlreadyRegisteredError{}
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func observe(kind Kind, err error, timer *prometheus.Timer) {
	timer.ObserveDuration()
	result := "success"
	if err != nil {
		result = "error"
	}
	recomputations.WithLabelValues(string(kind), result).Inc()
}
