package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"AShareSentinel/internal/model"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_RiskStateUpsert(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	latest, err := s.LatestRiskState(ctx)
	if err != nil || latest != nil {
		t.Fatalf("expected empty, got %+v %v", latest, err)
	}

	d1 := time.Date(2026, 2, 26, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	for _, rs := range []model.RiskState{
		{Date: d1, Equity: 1_000_000, PeakEquity: 1_000_000, AllowNewBuy: true},
		{Date: d2, Equity: 900_000, PeakEquity: 1_000_000, Drawdown: 0.1, AllowNewBuy: true},
		{Date: d2, Equity: 840_000, PeakEquity: 1_000_000, Drawdown: 0.16, AllowNewBuy: false},
	} {
		if err := s.SaveRiskState(ctx, rs); err != nil {
			t.Fatal(err)
		}
	}

	latest, err = s.LatestRiskState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !latest.Date.Equal(d2) || latest.Equity != 840_000 || latest.AllowNewBuy {
		t.Errorf("unexpected latest %+v", latest)
	}
	var n int
	s.db.QueryRow(`SELECT COUNT(*) FROM risk_states`).Scan(&n)
	if n != 2 {
		t.Errorf("expected one row per date, got %d", n)
	}
}

func TestSQLiteStore_NewsDedupByURLHour(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	ts := time.Date(2026, 2, 27, 10, 10, 0, 0, time.UTC)
	items := []model.NewsItem{
		{ID: "a", Symbol: "002463", Time: ts, Title: "t1", URL: "https://x.example.com/1", Source: "x.example.com"},
		{ID: "b", Symbol: "002463", Time: ts.Add(40 * time.Minute), Title: "t2", URL: "https://x.example.com/1", Source: "x.example.com"},
		{ID: "c", Symbol: "002463", Time: ts.Add(time.Hour), Title: "t3", URL: "https://x.example.com/1", Source: "x.example.com"},
	}
	if err := s.SaveNewsItems(ctx, items); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveNewsItems(ctx, items); err != nil {
		t.Fatalf("second save should be ignored, got %v", err)
	}
	var n int
	s.db.QueryRow(`SELECT COUNT(*) FROM news_items`).Scan(&n)
	if n != 2 {
		t.Errorf("expected 2 rows after dedup, got %d", n)
	}
}

func TestSQLiteStore_SignalsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	loc := time.FixedZone("CST", 8*3600)
	ts := time.Date(2026, 2, 27, 15, 10, 0, 0, loc)
	sigs := []model.TradeSignal{
		{
			ID: "s1", Symbol: "002463", Time: ts, Action: model.ActionBuy,
			Entry: model.Some(22), StopLoss: model.Some(21.1), TakeProfit: model.Some(23.8),
			Confidence: 0.55, Score: 4.155, Reasons: []string{"收盘价站上MA5"},
			EvidenceURLs: []string{"https://a.example.com/1"}, PositionSizePct: 0.33, LowConfidence: true,
		},
		{
			ID: "s2", Symbol: "600000", Time: ts.Add(time.Second), Action: model.ActionHold,
			Confidence: 0.4, Reasons: []string{"缺少K线数据"},
		},
	}
	if err := s.SaveSignals(ctx, sigs); err != nil {
		t.Fatal(err)
	}

	got, err := s.SignalsByDate(ctx, ts)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(got))
	}
	if got[0].ID != "s1" || got[1].ID != "s2" {
		t.Errorf("unexpected order %s, %s", got[0].ID, got[1].ID)
	}
	if !got[0].Time.Equal(ts) || got[0].Action != model.ActionBuy || got[0].Entry != model.Some(22) {
		t.Errorf("unexpected signal %+v", got[0])
	}
	if got[1].Entry.Valid || got[1].StopLoss.Valid || got[1].EvidenceURLs == nil {
		t.Errorf("expected absent prices and empty evidence, got %+v", got[1])
	}
	if !reflect.DeepEqual(got[0].Reasons, sigs[0].Reasons) || !got[0].LowConfidence {
		t.Errorf("unexpected reasons/flags %+v", got[0])
	}

	one, err := s.SignalByID(ctx, "s2")
	if err != nil || one.Symbol != "600000" {
		t.Errorf("SignalByID: %+v %v", one, err)
	}
	if _, err := s.SignalByID(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	other, err := s.SignalsByDate(ctx, ts.AddDate(0, 0, 1))
	if err != nil || len(other) != 0 {
		t.Errorf("expected no signals next day, got %d %v", len(other), err)
	}
}

func TestSQLiteStore_BarsUpsertAndRange(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	start := time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	var bars []model.MarketBar
	for i := 0; i < 5; i++ {
		bars = append(bars, model.MarketBar{
			Symbol: "002463", Time: start.AddDate(0, 0, i),
			Open: 10, High: 11, Low: 9, Close: 10 + float64(i), Volume: 100, Amount: 1000, Source: "eastmoney",
		})
	}
	if err := s.SaveBars(ctx, bars); err != nil {
		t.Fatal(err)
	}
	bars[4].Close = 99
	if err := s.SaveBars(ctx, bars[4:]); err != nil {
		t.Fatal(err)
	}

	got, err := s.BarsBetween(ctx, "002463", start.AddDate(0, 0, 1), start.AddDate(0, 0, 4))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 bars, got %d", len(got))
	}
	if got[0].Close != 11 || got[3].Close != 99 {
		t.Errorf("unexpected closes %v .. %v", got[0].Close, got[3].Close)
	}
}

func TestSQLiteStore_AuditLog(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.LogEvent(ctx, EventRunStart, map[string]interface{}{"symbols": []string{"600000"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.LogEvent(ctx, EventRunEnd, map[string]int{"signals": 1}); err != nil {
		t.Fatal(err)
	}
	events, err := s.RecentEvents(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0].Event != EventRunStart || events[1].Payload != `{"signals":1}` {
		t.Errorf("unexpected events %+v", events)
	}
	if err := s.LogEvent(ctx, "bad", func() {}); err == nil {
		t.Error("expected encode error for func payload")
	}
}

func TestNoopStore(t *testing.T) {
	var s Store = NewNoopStore()
	ctx := context.Background()
	if rs, err := s.LatestRiskState(ctx); rs != nil || err != nil {
		t.Errorf("unexpected %v %v", rs, err)
	}
	if _, err := s.SignalByID(ctx, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

var _ Store = (*SQLiteStore)(nil)
