package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	uploads       *prometheus.CounterVec
	uploadBytes   prometheus.Counter
	putAttempts   *prometheus.CounterVec
	compensations *prometheus.CounterVec
	thumbnails    *prometheus.CounterVec
	lockWait      prometheus.Histogram
	duration      prometheus.Histogram
}

// NewMetrics creates the pipeline collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "briefapi",
			Subsystem: "ingest",
			Name:      "uploads_total",
			Help:      "Ingestion attempts by outcome code.",
		}, []string{"result"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "briefapi",
			Subsystem: "ingest",
			Name:      "upload_bytes_total",
			Help:      "Bytes written to object storage by successful ingestions.",
		}),
		putAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "briefapi",
			Subsystem: "ingest",
			Name:      "storage_put_attempts_total",
			Help:      "Object storage put attempts by result.",
		}, []string{"result"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "briefapi",
			Subsystem: "ingest",
			Name:      "compensations_total",
			Help:      "Compensating object deletes after a failed metadata insert.",
		}, []string{"result"}),
		thumbnails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "briefapi",
			Subsystem: "ingest",
			Name:      "thumbnails_total",
			Help:      "Video thumbnail derivations by result.",
		}, []string{"result"}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "briefapi",
			Subsystem: "ingest",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for the upload lock.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30},
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "briefapi",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Time spent inside the upload lock per ingestion.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),
	}

	for _, c := range []prometheus.Collector{
		m.uploads, m.uploadBytes, m.putAttempts, m.compensations, m.thumbnails, m.lockWait, m.duration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) recordUpload(err error, bytes int) {
	if m == nil {
		return
	}
	if err != nil {
		result := string(CodeOf(err))
		if result == "" {
			result = "error"
		}
		m.uploads.WithLabelValues(result).Inc()
		return
	}
	m.uploads.WithLabelValues("success").Inc()
	m.uploadBytes.Add(float64(bytes))
}

func (m *Metrics) recordPut(err error) {
	if m == nil {
		return
	}
	switch {
	case err == nil:
		m.putAttempts.WithLabelValues("success").Inc()
	case isTransient(err):
		m.putAttempts.WithLabelValues("transient").Inc()
	default:
		m.putAttempts.WithLabelValues("permanent").Inc()
	}
}

func (m *Metrics) recordCompensation(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.compensations.WithLabelValues("success").Inc()
		return
	}
	m.compensations.WithLabelValues("failed").Inc()
}

func (m *Metrics) recordThumbnail(result string) {
	if m == nil {
		return
	}
	m.thumbnails.WithLabelValues(result).Inc()
}

func (m *Metrics) observeLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}

func (m *Metrics) observeDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}
