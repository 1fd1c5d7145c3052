package prometheus

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/tzuhan/go-endpoint-queue/core"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	operationDurationSeconds *prom.HistogramVec
	operationsQueuedTotal    *prom.CounterVec
	operationsFailedTotal    *prom.CounterVec
	operationsRejectedTotal  *prom.CounterVec
	queueDepth               *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "endpointqueue"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Operation processing duration in seconds.",
		Buckets:   buckets,
	}, []string{"key", "priority"})
	queuedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "operations_queued_total",
		Help:      "Total number of admitted operations.",
	}, []string{"key"})
	failedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "operations_failed_total",
		Help:      "Total number of failed or cancelled operations.",
	}, []string{"key"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "operations_rejected_total",
		Help:      "Total number of rejected submissions.",
	}, []string{"key", "reason"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current number of buffered items per key.",
	}, []string{"key"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if queuedVec, err = registerCollector(reg, queuedVec); err != nil {
		return nil, err
	}
	if failedVec, err = registerCollector(reg, failedVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		operationDurationSeconds: durationVec,
		operationsQueuedTotal:    queuedVec,
		operationsFailedTotal:    failedVec,
		operationsRejectedTotal:  rejectedVec,
		queueDepth:               queueDepthVec,
	}, nil
}

// RecordProcessed records a successful operation's duration.
func (m *MetricsExporter) RecordProcessed(key string, priority core.Priority, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationDurationSeconds.WithLabelValues(normalizeLabel(key, "unknown"), priorityLabel(priority)).Observe(duration.Seconds())
}

// RecordFailed records a failed or cancelled operation.
func (m *MetricsExporter) RecordFailed(key string) {
	if m == nil {
		return
	}
	m.operationsFailedTotal.WithLabelValues(normalizeLabel(key, "unknown")).Inc()
}

// RecordQueued records one admitted operation.
func (m *MetricsExporter) RecordQueued(key string) {
	if m == nil {
		return
	}
	m.operationsQueuedTotal.WithLabelValues(normalizeLabel(key, "unknown")).Inc()
}

// RecordRejected records a submission that was never admitted.
func (m *MetricsExporter) RecordRejected(key string, reason string) {
	if m == nil {
		return
	}
	m.operationsRejectedTotal.WithLabelValues(normalizeLabel(key, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordQueueDepth records the current buffered item count.
func (m *MetricsExporter) RecordQueueDepth(key string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(normalizeLabel(key, "unknown")).Set(float64(depth))
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func priorityLabel(priority core.Priority) string {
	switch priority {
	case core.PriorityHigh:
		return "high"
	case core.PriorityNormal:
		return "normal"
	case core.PriorityLow:
		return "low"
	default:
		return strconv.Itoa(int(priority))
	}
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
