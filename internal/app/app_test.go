package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	devrepos "github.com/yungbote/devjourney-backend/internal/data/repos/development"
	"github.com/yungbote/devjourney-backend/internal/data/tiered"
	"github.com/yungbote/devjourney-backend/internal/observability"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
	"github.com/yungbote/devjourney-backend/internal/services"
)

func setLocalOnlyEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LOG_MODE", "test")
	t.Setenv("REMOTE_STORE_ENABLED", "false")
	t.Setenv("CACHE_BACKEND", "memory")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("CATALOG_PATH", "")
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	t.Setenv("LOCAL_STORE_PATH", filepath.Join(t.TempDir(), "local.db"))
}

func TestLoadConfigDefaults(t *testing.T) {
	setLocalOnlyEnv(t)
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "api-key=abc,tenant=t1")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.RemoteTimeout != 2*time.Second {
		t.Fatalf("RemoteTimeout: want=2s got=%s", cfg.RemoteTimeout)
	}
	if cfg.CacheSize != 1024 || cfg.CacheTTL != 5*time.Minute {
		t.Fatalf("cache defaults: got size=%d ttl=%s", cfg.CacheSize, cfg.CacheTTL)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("CORSOrigins: got=%v", cfg.CORSOrigins)
	}
	if cfg.OtelHeaders["tenant"] != "t1" {
		t.Fatalf("OtelHeaders: got=%v", cfg.OtelHeaders)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"unknown cache backend", map[string]string{"CACHE_BACKEND": "memcached"}},
		{"redis without addr", map[string]string{"CACHE_BACKEND": "redis"}},
		{"sample ratio", map[string]string{"OTEL_SAMPLER_RATIO": "1.5"}},
		{"production default secret", map[string]string{"LOG_MODE": "production", "JWT_SECRET_KEY": "defaultsecret"}},
		{"bad duration", map[string]string{"REMOTE_TIMEOUT": "soon"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setLocalOnlyEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("LoadConfig: want error")
			}
		})
	}
}

func TestAppLocalOnly(t *testing.T) {
	setLocalOnlyEnv(t)
	a, err := New(context.Background())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	a.Start()

	if a.Clients.Postgres != nil || a.Clients.Redis != nil {
		t.Fatalf("clients: want local only got=%+v", a.Clients)
	}
	if _, err := a.SyncOnce(context.Background()); err == nil {
		t.Fatalf("SyncOnce without remote: want error")
	}

	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck/stores", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stores health: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"local":"ok"`) {
		t.Fatalf("stores health body: got=%s", rec.Body.String())
	}

	token, err := services.SignAccessToken(a.Cfg.JWTSecretKey, uuid.New(), time.Minute)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/journey/child-1?ageInMonths=7", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("journey: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "dj_api_requests_total") {
		t.Fatalf("metrics: code=%d body=%s", rec.Code, rec.Body.String())
	}
}

type fakeSyncer struct {
	pushed map[tiered.Kind]int
	fail   map[tiered.Kind]bool
	calls  []tiered.Kind
}

func (f *fakeSyncer) SyncLocal(_ context.Context, kind tiered.Kind) (int, error) {
	f.calls = append(f.calls, kind)
	if f.fail[kind] {
		return 0, errors.New("remote down")
	}
	return f.pushed[kind], nil
}

func TestSyncAllContinuesPastFailures(t *testing.T) {
	f := &fakeSyncer{
		pushed: map[tiered.Kind]int{devrepos.KindSession: 2, devrepos.KindAssessment: 1},
		fail:   map[tiered.Kind]bool{devrepos.KindResponse: true},
	}
	m := observability.NewMetrics(true)
	got, err := syncAll(context.Background(), logger.Nop(), f, m)
	if err == nil {
		t.Fatalf("syncAll: want joined error")
	}
	if len(f.calls) != len(devrepos.Kinds()) {
		t.Fatalf("calls: want=%d got=%v", len(devrepos.Kinds()), f.calls)
	}
	if got[devrepos.KindSession] != 2 || got[devrepos.KindAssessment] != 1 {
		t.Fatalf("pushed: got=%v", got)
	}
	if _, ok := got[devrepos.KindResponse]; ok {
		t.Fatalf("pushed: failed kind should be absent, got=%v", got)
	}

	var sb strings.Builder
	if err := m.WritePrometheus(&sb); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	if !strings.Contains(sb.String(), `dj_local_sync_pushed_total{kind="session"} 2`) {
		t.Fatalf("sync metric missing: %s", sb.String())
	}
}
