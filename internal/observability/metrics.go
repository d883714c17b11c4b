package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests   *CounterVec
	apiLatency    *HistogramVec
	apiInflight   *Gauge
	apiErrors     *Counter
	tierOps       *CounterVec
	storeUp       *GaugeVec
	invalidations *CounterVec
	syncPushed    *CounterVec
}

// NewMetrics returns nil when disabled. Every method is nil-safe.
func NewMetrics(enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	return &Metrics{
		apiRequests: NewCounterVec("dj_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"dj_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight:   NewGauge("dj_api_inflight_requests", "In-flight API requests."),
		apiErrors:     NewCounter("dj_api_server_errors_total", "API requests answered with a 5xx status."),
		tierOps:       NewCounterVec("dj_store_tier_ops_total", "Storage tier calls by tier/op/outcome.", []string{"tier", "op", "outcome"}),
		storeUp:       NewGaugeVec("dj_store_up", "1 when the storage tier answered its last health probe.", []string{"tier"}),
		invalidations: NewCounterVec("dj_cache_invalidations_total", "Cache invalidations applied, by source.", []string{"source"}),
		syncPushed:    NewCounterVec("dj_local_sync_pushed_total", "Local-only records pushed to the remote store, by kind.", []string{"kind"}),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiErrors,
		m.tierOps, m.storeUp, m.invalidations, m.syncPushed,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	if isServerErrorStatus(status) {
		m.apiErrors.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveTier satisfies tiered.TierObserver.
func (m *Metrics) ObserveTier(tier, op, outcome string) {
	if m == nil {
		return
	}
	m.tierOps.Inc(tier, op, outcome)
}

func (m *Metrics) IncInvalidation(source string) {
	if m == nil {
		return
	}
	m.invalidations.Inc(source)
}

func (m *Metrics) AddSyncPushed(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.syncPushed.Add(float64(n), kind)
}

// StartStoreCollector probes tier health every interval until ctx is done.
func (m *Metrics) StartStoreCollector(ctx context.Context, log *logger.Logger, interval time.Duration, probe func(context.Context) map[string]string) {
	if m == nil || probe == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	last := map[string]string{}
	collect := func() {
		pctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		for tier, state := range probe(pctx) {
			v := 0.0
			if state == "ok" {
				v = 1
			}
			m.storeUp.Set(v, tier)
			if prev, seen := last[tier]; seen && prev != state && log != nil {
				log.Warn("store tier state changed", "tier", tier, "from", prev, "to", state)
			}
			last[tier] = state
		}
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		collect()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				collect()
			}
		}
	}()
}

func isServerErrorStatus(status string) bool {
	status = strings.TrimSpace(status)
	if len(status) < 3 {
		return false
	}
	return status[0] == '5'
}
