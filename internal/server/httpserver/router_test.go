package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/crudkv-go/internal/core/service"
	"github.com/yndnr/crudkv-go/internal/server/config"
	"github.com/yndnr/crudkv-go/internal/storage"
	"github.com/yndnr/crudkv-go/internal/telemetry/metric"
)

func newTestRouter(t *testing.T, registry *metric.Registry) http.Handler {
	t.Helper()
	engine := storage.NewWithBackend(storage.NewMemory())
	t.Cleanup(func() { engine.Close() })

	return NewRouter(&RouterConfig{
		Resources:    service.NewResourceService(engine),
		Store:        engine,
		Endpoint:     config.Default().Endpoint,
		Metrics:      registry,
		Logger:       discardLogger,
		AdminEnabled: true,
		MaxBodyBytes: 1 << 20,
	})
}

func TestRouter_EndToEnd(t *testing.T) {
	registry := metric.NewRegistry()
	srv := httptest.NewServer(newTestRouter(t, registry))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/resources/", "application/octet-stream", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	var created struct {
		Resource string `json:"resource"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || created.Resource == "" {
		t.Fatalf("POST = %d %+v", resp.StatusCode, created)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID missing")
	}

	resp, err = http.Get(srv.URL + "/resources/" + created.Resource + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "payload" {
		t.Errorf("GET = %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !bytes.Contains(body, []byte("crudkv_http_requests_total")) {
		t.Error("/metrics does not expose request counters")
	}

	got := testutil.ToFloat64(registry.RequestsTotal.WithLabelValues("GET", "/resources/{id}", "200"))
	if got != 1 {
		t.Errorf("requests_total{GET,/resources/{id},200} = %v, want 1", got)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/nothing-here", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("/metrics without a registry: status = %d, want 404", rec.Code)
	}
}

func TestRouter_RateLimited(t *testing.T) {
	engine := storage.NewWithBackend(storage.NewMemory())
	t.Cleanup(func() { engine.Close() })

	h := NewRouter(&RouterConfig{
		Resources: service.NewResourceService(engine),
		Store:     engine,
		Endpoint:  config.Default().Endpoint,
		Logger:    discardLogger,
		RateLimit: 1,
	})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 429]", codes)
	}
}

func TestRouter_RateLimitBehindTrustedProxy(t *testing.T) {
	engine := storage.NewWithBackend(storage.NewMemory())
	t.Cleanup(func() { engine.Close() })

	h := NewRouter(&RouterConfig{
		Resources:      service.NewResourceService(engine),
		Store:          engine,
		Endpoint:       config.Default().Endpoint,
		Logger:         discardLogger,
		RateLimit:      1,
		TrustedProxies: []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")},
	})

	send := func(peer, forwarded string) int {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = peer
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("10.0.0.1:1", "203.0.113.1"); code != http.StatusOK {
		t.Fatalf("first client: status = %d", code)
	}
	if code := send("10.0.0.1:1", "203.0.113.2"); code != http.StatusOK {
		t.Errorf("second client behind the proxy shared a bucket: status = %d", code)
	}
	if code := send("10.0.0.1:1", "203.0.113.1"); code != http.StatusTooManyRequests {
		t.Errorf("first client again: status = %d, want 429", code)
	}

	if code := send("192.0.2.1:1", "203.0.113.3"); code != http.StatusOK {
		t.Fatalf("direct client: status = %d", code)
	}
	if code := send("192.0.2.1:1", "203.0.113.4"); code != http.StatusTooManyRequests {
		t.Errorf("direct client rotated X-Forwarded-For past the limit: status = %d", code)
	}
}
