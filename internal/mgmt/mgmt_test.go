package mgmt

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/openendpoint/openendpoint/internal/engine"
	"github.com/openendpoint/openendpoint/internal/metadata/pebble"
	"github.com/openendpoint/openendpoint/internal/storage/flatfile"
)

func testRouter(t *testing.T) *Router {
	t.Helper()

	backend := flatfile.NewTestBackend()
	store, err := pebble.New(t.TempDir())
	if err != nil {
		t.Fatalf("pebble.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := zap.NewNop().Sugar()
	eng := engine.New(backend, store, logger)
	return NewRouter(eng, logger, nil)
}

func TestRouter_HandleStatus(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/_mgmt/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_HandleHealth(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/_mgmt/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_HandleReady(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/_mgmt/ready", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_HandleMetrics(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/_mgmt/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_HandleBuckets(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/_mgmt/buckets", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_HandleCluster(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/_mgmt/cluster", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Body.String(); !strings.Contains(got, `"enabled":false`) {
		t.Errorf("body = %q, want disabled cluster status", got)
	}
}

func TestRouter_HandleEventsWS_NoNotifier(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/_mgmt/buckets/demo/events/ws", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}
