package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the ingestion metrics
type Metrics struct {
	cycles          *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	cameraResults   *prometheus.CounterVec
	observations    *prometheus.CounterVec
	staleSnapshots  prometheus.Counter
	detectorLatency prometheus.Histogram
	lastCycle       prometheus.Gauge
}

// Metric label values for cycle results
const (
	CycleStatusCompleted = "completed"
	CycleStatusSkipped   = "skipped"
	CycleStatusFailed    = "failed"
)

// NewMetrics creates the ingestion metrics and registers them on reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "occupancy",
			Subsystem: "ingest",
			Name:      "cycles_total",
			Help:      "Total number of ingestion cycles by status.",
		}, []string{"status"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "occupancy",
			Subsystem: "ingest",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of completed ingestion cycles.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		cameraResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "occupancy",
			Subsystem: "ingest",
			Name:      "camera_results_total",
			Help:      "Per camera results by final state and failed step.",
		}, []string{"state", "failed_at"}),
		observations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "occupancy",
			Subsystem: "ingest",
			Name:      "observations_total",
			Help:      "History appends by outcome.",
		}, []string{"outcome"}),
		staleSnapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "occupancy",
			Subsystem: "ingest",
			Name:      "stale_snapshots_total",
			Help:      "Snapshots older than the stored live state, left out of it.",
		}),
		detectorLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "occupancy",
			Subsystem: "ingest",
			Name:      "detector_duration_seconds",
			Help:      "Latency of detector calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "occupancy",
			Subsystem: "ingest",
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the last completed cycle finished.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.cycles, m.cycleDuration, m.cameraResults, m.observations, m.staleSnapshots, m.detectorLatency, m.lastCycle} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

func (m *Metrics) recordCycle(status string) {
	m.cycles.WithLabelValues(status).Inc()
}

func (m *Metrics) recordReport(r *CycleReport) {
	m.cycleDuration.Observe(r.FinishedAt.Sub(r.StartedAt).Seconds())
	m.lastCycle.Set(float64(r.FinishedAt.Unix()))
	for _, res := range r.Results {
		m.cameraResults.WithLabelValues(string(res.State), string(res.FailedAt)).Inc()
		if res.Outcome != "" {
			m.observations.WithLabelValues(string(res.Outcome)).Inc()
		}
		if res.Stale {
			m.staleSnapshots.Inc()
		}
	}
}
