// Package health maintains an advisory belief about local backend
// reachability.
package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"ai-speech-proxy-service/internal/observability/logging"
	"ai-speech-proxy-service/internal/observability/metrics"
)

// Monitor periodically probes the local transcription backend and publishes
// a boolean reachability belief. It is the sole writer of the belief;
// concurrent readers observe a possibly stale value without blocking.
type Monitor struct {
	target    string
	interval  time.Duration
	client    *http.Client
	available atomic.Bool
	// lastChecked holds UnixNano of the most recent probe.
	lastChecked atomic.Int64
	metrics     *metrics.Metrics
}

// NewMonitor creates a monitor probing target every interval with the given
// per-probe timeout.
func NewMonitor(target string, interval, timeout time.Duration) *Monitor {
	return &Monitor{
		target:   target,
		interval: interval,
		client:   &http.Client{Timeout: timeout},
		metrics:  metrics.DefaultMetrics,
	}
}

// Available returns the current reachability belief.
func (m *Monitor) Available() bool {
	return m.available.Load()
}

// LastChecked returns when the belief was last refreshed. Zero before the
// first probe completes.
func (m *Monitor) LastChecked() time.Time {
	ns := m.lastChecked.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Start runs the probe loop until ctx is canceled. An initial probe runs
// immediately so the belief is populated before the first tick. The loop
// has a fixed cadence with no backoff and never exits on probe errors.
func (m *Monitor) Start(ctx context.Context) {
	log := logging.WithComponent("health-monitor")
	log.Info().
		Str("target", m.target).
		Dur("interval", m.interval).
		Msg("Health monitor started")

	m.probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Health monitor stopped")
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

// probe performs one reachability check. Any failure marks the backend
// unavailable; only a 200 response marks it available.
func (m *Monitor) probe(ctx context.Context) {
	available := false

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.target, nil)
	if err == nil {
		resp, err := m.client.Do(req)
		if err == nil {
			available = resp.StatusCode == http.StatusOK
			resp.Body.Close()
		}
	}

	prev := m.available.Swap(available)
	m.lastChecked.Store(time.Now().UnixNano())
	m.metrics.RecordHealthCheck(available)

	if prev != available {
		lg := logging.WithComponent("health-monitor")
		lg.Info().
			Bool("available", available).
			Msg("Local backend availability changed")
	}
}
