package abstraction

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records k-means progress. A nil *Metrics records nothing.
type Metrics struct {
	iterations        prometheus.Counter
	changedFraction   prometheus.Gauge
	iterationDuration prometheus.Histogram
	restarts          prometheus.Counter
	fits              *prometheus.CounterVec
}

// NewMetrics creates the k-means metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		iterations: f.NewCounter(prometheus.CounterOpts{
			Name: "abstraction_kmeans_iterations_total",
			Help: "Total k-means fitting iterations",
		}),
		changedFraction: f.NewGauge(prometheus.GaugeOpts{
			Name: "abstraction_kmeans_changed_fraction",
			Help: "Fraction of points that changed cluster in the last iteration",
		}),
		iterationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "abstraction_kmeans_iteration_duration_seconds",
			Help:    "Duration of one predict and center update pass",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
		restarts: f.NewCounter(prometheus.CounterOpts{
			Name: "abstraction_kmeans_restarts_total",
			Help: "Random restarts evaluated during initialization",
		}),
		fits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "abstraction_kmeans_fits_total",
			Help: "Completed fits by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observeIteration(changed float64, d time.Duration) {
	if m == nil {
		return
	}
	m.iterations.Inc()
	m.changedFraction.Set(changed)
	m.iterationDuration.Observe(d.Seconds())
}

func (m *Metrics) observeRestarts(n int) {
	if m == nil {
		return
	}
	m.restarts.Add(float64(n))
}

func (m *Metrics) observeFit(outcome string) {
	if m == nil {
		return
	}
	m.fits.WithLabelValues(outcome).Inc()
}
