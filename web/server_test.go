package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/volatiq/gotdi/config"
	"github.com/volatiq/gotdi/strategy"
	"github.com/volatiq/gotdi/testutils"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultStrategyConfig()
	cfg.UseCorrelation = false
	st, err := strategy.NewTDIStrategy("BTCUSDT", cfg, testutils.NewMockExchange(1000), testutils.NewMockLogger())
	if err != nil {
		t.Fatalf("NewTDIStrategy: %v", err)
	}
	return NewServer(map[string]*strategy.TDIStrategy{"BTCUSDT": st}, testutils.NewMockLogger())
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "OK" {
		t.Fatalf("status field = %q, want OK", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t), "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]struct {
		InPosition bool `json:"in_position"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	entry, ok := body["BTCUSDT"]
	if !ok {
		t.Fatal("symbol missing from the status payload")
	}
	if entry.InPosition {
		t.Fatal("fresh strategy reported an open position")
	}
}

func TestTradesEndpointUnknownSymbol(t *testing.T) {
	rec := get(t, newTestServer(t), "/trades?symbol=NOPE")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestTradesEndpointAllSymbols(t *testing.T) {
	rec := get(t, newTestServer(t), "/trades")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("empty metrics exposition")
	}
}
