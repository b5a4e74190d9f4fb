package green

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	waitOK        = "ok"
	waitFailed    = "failed"
	waitNoHandler = "no_handler"
)

// Metrics collects dispatcher activity. A nil *Metrics records
// nothing.
type Metrics struct {
	waits    *prometheus.CounterVec
	duration prometheus.Histogram
	changes  prometheus.Counter
	active   prometheus.Gauge
}

// NewMetrics creates the dispatcher collectors and registers them
// with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		waits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "green",
				Name:      "waits_total",
				Help:      "cooperative waits dispatched, by result.",
			},
			[]string{"result"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "green",
				Name:      "wait_duration_seconds",
				Help:      "time spent inside the wait handler.",
				Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		changes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "green",
				Name:      "handler_changes_total",
				Help:      "wait handler installs and clears.",
			},
		),
		active: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "green",
				Name:      "cooperative_mode",
				Help:      "1 while a wait handler is registered.",
			},
		),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.waits, m.duration, m.changes, m.active} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

func (m *Metrics) waitDone(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.waits.WithLabelValues(result).Inc()
	if result != waitNoHandler {
		m.duration.Observe(d.Seconds())
	}
}

func (m *Metrics) handlerChanged(active bool) {
	if m == nil {
		return
	}
	m.changes.Inc()
	if active {
		m.active.Set(1)
	} else {
		m.active.Set(0)
	}
}
