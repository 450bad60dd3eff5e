package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"AShareSentinel/internal/agent"
	"AShareSentinel/internal/backtest"
	"AShareSentinel/internal/collector"
	"AShareSentinel/internal/fund"
	"AShareSentinel/internal/metrics"
	"AShareSentinel/internal/store"
	"AShareSentinel/internal/strategy"
)

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	st, err := store.NewSQLiteStore(filepath.Join(dir, "agent.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	reg := prometheus.NewRegistry()
	fetcher := &collector.MockFetcher{Price: 10}
	ag := agent.New(agent.Options{
		Params:     strategy.DefaultParams(),
		Location:   time.FixedZone("CST", 8*3600),
		ResultsDir: filepath.Join(dir, "results"),
	}, agent.Deps{
		Collector: collector.NewCollector(fetcher, 120, collector.AdjustQFQ),
		Store:     st,
		Risk:      fund.NewManager(st, 0.15),
		Metrics:   metrics.New(reg),
	})
	h := &Handler{
		Agent:    ag,
		Backtest: backtest.NewEngine(fetcher, collector.AdjustQFQ, 4, 1),
		Symbols:  func() ([]string, error) { return nil, nil },
		Equity:   1000000,
	}
	return NewServer(":0", h, reg)
}

func do(t *testing.T, s *Server, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return rec.Code, env
}

func TestHandler_RunAndQuery(t *testing.T) {
	s := newTestServer(t)

	if code, _ := do(t, s, http.MethodGet, "/api/v1/risk", ""); code != http.StatusNotFound {
		t.Errorf("risk before run: code = %d, want 404", code)
	}

	code, env := do(t, s, http.MethodPost, "/api/v1/run", `{"symbols":["600519","000001"]}`)
	if code != http.StatusOK {
		t.Fatalf("run: code = %d, body = %s", code, env.Data)
	}
	var run struct {
		Signals []struct {
			ID     string `json:"id"`
			Symbol string `json:"symbol"`
		} `json:"signals"`
	}
	if err := json.Unmarshal(env.Data, &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if len(run.Signals) != 2 || run.Signals[0].Symbol != "600519" {
		t.Fatalf("run signals = %+v", run.Signals)
	}

	code, env = do(t, s, http.MethodGet, "/api/v1/signals", "")
	if code != http.StatusOK {
		t.Fatalf("signals: code = %d", code)
	}
	var list struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 2 {
		t.Errorf("signals total = %d, want 2", list.Total)
	}

	if code, _ := do(t, s, http.MethodGet, "/api/v1/signals/"+run.Signals[0].ID, ""); code != http.StatusOK {
		t.Errorf("signal by id: code = %d", code)
	}
	if code, _ := do(t, s, http.MethodGet, "/api/v1/signals/missing", ""); code != http.StatusNotFound {
		t.Errorf("unknown signal: code = %d, want 404", code)
	}
	if code, _ := do(t, s, http.MethodGet, "/api/v1/risk", ""); code != http.StatusOK {
		t.Errorf("risk after run: code = %d", code)
	}

	code, env = do(t, s, http.MethodGet, "/api/v1/bars/600519", "")
	if code != http.StatusOK {
		t.Fatalf("bars: code = %d", code)
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode bars: %v", err)
	}
	if list.Total == 0 {
		t.Error("expected stored bars for 600519")
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ashare_signals_total") {
		t.Errorf("metrics: code = %d", rec.Code)
	}
}

func TestHandler_BadRequests(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"bad date", http.MethodGet, "/api/v1/signals?date=2026/02/27", "", http.StatusBadRequest},
		{"negative equity", http.MethodPost, "/api/v1/run", `{"symbols":["600519"],"equity":-1}`, http.StatusBadRequest},
		{"empty watchlist", http.MethodPost, "/api/v1/run", `{}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/v1/run", `{"symbols":`, http.StatusBadRequest},
		{"bars bad start", http.MethodGet, "/api/v1/bars/600519?start=yesterday", "", http.StatusBadRequest},
		{"backtest missing start", http.MethodPost, "/api/v1/backtest", `{"symbols":["600519"],"end":"2026-02-01"}`, http.StatusBadRequest},
		{"backtest reversed", http.MethodPost, "/api/v1/backtest", `{"symbols":["600519"],"start":"2026-02-01","end":"2026-01-01"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _ := do(t, s, tt.method, tt.path, tt.body); code != tt.want {
				t.Errorf("code = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestHandler_Backtest(t *testing.T) {
	s := newTestServer(t)
	code, env := do(t, s, http.MethodPost, "/api/v1/backtest",
		`{"symbols":["600519"],"start":"2026-01-01","end":"2026-03-01"}`)
	if code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", code, env.Data)
	}
	var res struct {
		BenchmarkSymbol string `json:"benchmark_symbol"`
		Days            int    `json:"days"`
	}
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.BenchmarkSymbol != backtest.DefaultBenchmark || res.Days == 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestHealthz(t *testing.T) {
	s := NewServer(":0", nil, prometheus.NewRegistry())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("code = %d", rec.Code)
	}
}
