package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveTier("remote", "get", "error")
	m.ApiInflightInc()
	m.IncInvalidation("bus")
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("WritePrometheus on nil: %v", err)
	}
	if NewMetrics(false) != nil {
		t.Fatalf("NewMetrics(false): want nil")
	}
}

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics(true)
	m.ObserveAPI("GET", "/journey/:subjectId", "200", 20*time.Millisecond)
	m.ObserveAPI("POST", "/journey/:subjectId/answers", "500", time.Second)
	m.ObserveTier("remote", "save", "error")
	m.ObserveTier("remote", "save", "error")
	m.AddSyncPushed("session", 3)

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`dj_api_requests_total{method="GET",route="/journey/:subjectId",status="200"} 1`,
		`dj_api_request_duration_seconds_bucket{method="GET",route="/journey/:subjectId",status="200",le="0.025"} 1`,
		`dj_api_server_errors_total 1`,
		`dj_store_tier_ops_total{tier="remote",op="save",outcome="error"} 2`,
		`dj_local_sync_pushed_total{kind="session"} 3`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q:\n%s", want, out)
		}
	}
}

func TestStoreCollectorSetsGauge(t *testing.T) {
	m := NewMetrics(true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{}, 1)
	m.StartStoreCollector(ctx, nil, time.Hour, func(context.Context) map[string]string {
		defer func() {
			select {
			case done <- struct{}{}:
			default:
			}
		}()
		return map[string]string{"local": "ok", "remote": "unavailable"}
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("collector did not probe")
	}
	var buf bytes.Buffer
	deadline := time.Now().Add(time.Second)
	for {
		buf.Reset()
		_ = m.WritePrometheus(&buf)
		if strings.Contains(buf.String(), `dj_store_up{tier="remote"} 0`) && strings.Contains(buf.String(), `dj_store_up{tier="local"} 1`) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("store gauges not set:\n%s", buf.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
