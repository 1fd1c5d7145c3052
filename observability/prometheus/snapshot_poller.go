package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/tzuhan/go-endpoint-queue/core"
)

// StatsProvider provides point-in-time stats snapshots for every live key.
// *core.QueueRegistry satisfies this interface.
type StatsProvider interface {
	GetAllStats() map[string]core.QueueStats
}

// SnapshotPoller periodically exports registry GetAllStats() snapshots
// into Prometheus gauges. It complements MetricsExporter: the exporter
// observes events as they happen, the poller mirrors the queues' own
// counters so the two can be cross-checked.
type SnapshotPoller struct {
	interval time.Duration

	providersMu sync.RWMutex
	providers   map[string]StatsProvider

	queueQueued     *prom.GaugeVec
	queueProcessed  *prom.GaugeVec
	queueFailed     *prom.GaugeVec
	queuePending    *prom.GaugeVec
	queueAvgSeconds *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	queued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "endpointqueue",
		Name:      "queue_queued",
		Help:      "Admitted operation count snapshot per key.",
	}, []string{"registry", "key"})
	processed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "endpointqueue",
		Name:      "queue_processed",
		Help:      "Processed operation count snapshot per key.",
	}, []string{"registry", "key"})
	failed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "endpointqueue",
		Name:      "queue_failed",
		Help:      "Failed operation count snapshot per key.",
	}, []string{"registry", "key"})
	pending := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "endpointqueue",
		Name:      "queue_pending",
		Help:      "Buffered item count snapshot per key.",
	}, []string{"registry", "key"})
	avgSeconds := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "endpointqueue",
		Name:      "queue_average_processing_seconds",
		Help:      "Rolling-window mean processing time per key.",
	}, []string{"registry", "key"})

	var err error
	if queued, err = registerCollector(reg, queued); err != nil {
		return nil, err
	}
	if processed, err = registerCollector(reg, processed); err != nil {
		return nil, err
	}
	if failed, err = registerCollector(reg, failed); err != nil {
		return nil, err
	}
	if pending, err = registerCollector(reg, pending); err != nil {
		return nil, err
	}
	if avgSeconds, err = registerCollector(reg, avgSeconds); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:        interval,
		providers:       make(map[string]StatsProvider),
		queueQueued:     queued,
		queueProcessed:  processed,
		queueFailed:     failed,
		queuePending:    pending,
		queueAvgSeconds: avgSeconds,
	}, nil
}

// AddRegistry adds or replaces a stats provider by name.
func (p *SnapshotPoller) AddRegistry(name string, provider StatsProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "registry")
	p.providersMu.Lock()
	p.providers[name] = provider
	p.providersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.providersMu.RLock()
	defer p.providersMu.RUnlock()

	for name, provider := range p.providers {
		for key, stats := range provider.GetAllStats() {
			keyLabel := normalizeLabel(key, "unknown")
			p.queueQueued.WithLabelValues(name, keyLabel).Set(float64(stats.Queued))
			p.queueProcessed.WithLabelValues(name, keyLabel).Set(float64(stats.Processed))
			p.queueFailed.WithLabelValues(name, keyLabel).Set(float64(stats.Failed))
			p.queuePending.WithLabelValues(name, keyLabel).Set(float64(stats.Pending))
			if stats.AverageProcessingTime != nil {
				p.queueAvgSeconds.WithLabelValues(name, keyLabel).Set(stats.AverageProcessingTime.Seconds())
			}
		}
	}
}
