package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"AShareSentinel/internal/agent"
	"AShareSentinel/internal/model"
	"AShareSentinel/internal/store"
)

var cst = time.FixedZone("CST", 8*3600)

func TestInTradingWindow(t *testing.T) {
	tests := []struct {
		hh, mm int
		want   bool
	}{
		{9, 29, false},
		{9, 30, true},
		{10, 0, true},
		{11, 30, true},
		{11, 31, false},
		{12, 30, false},
		{13, 0, true},
		{14, 59, true},
		{15, 0, true},
		{15, 1, false},
		{21, 0, false},
	}
	for _, tt := range tests {
		ts := time.Date(2026, 3, 2, tt.hh, tt.mm, 0, 0, cst)
		if got := InTradingWindow(ts); got != tt.want {
			t.Errorf("InTradingWindow(%02d:%02d) = %v, want %v", tt.hh, tt.mm, got, tt.want)
		}
	}
}

func TestDailySpec(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"09:05", "0 5 9 * * 1-5", false},
		{" 15:10 ", "0 10 15 * * 1-5", false},
		{"25:00", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := DailySpec(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("DailySpec(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("DailySpec(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func newTestScheduler() *Scheduler {
	ag := agent.New(agent.Options{Location: cst}, agent.Deps{Store: store.NewNoopStore()})
	return NewScheduler(context.Background(), cst, ag, nil, func() ([]string, error) { return nil, nil }, 1000000)
}

func TestRegisterAll(t *testing.T) {
	s := newTestScheduler()
	if err := s.RegisterAll("09:05", "15:10", 30); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	if n := len(s.Cron.Entries()); n != 3 {
		t.Errorf("entries = %d, want 3", n)
	}

	s = newTestScheduler()
	if err := s.RegisterAll("09:05", "15:10", 0); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	if n := len(s.Cron.Entries()); n != 2 {
		t.Errorf("entries without intraday = %d, want 2", n)
	}

	if err := newTestScheduler().RegisterAll("9h", "15:10", 30); err == nil {
		t.Error("expected error for bad pre-open time")
	}
}

func TestRunNow_EmptyWatchlist(t *testing.T) {
	s := newTestScheduler()
	if _, err := s.RunNow(SlotManual); err != agent.ErrNoSymbols {
		t.Errorf("err = %v, want ErrNoSymbols", err)
	}
}

func TestHandleCommand(t *testing.T) {
	s := newTestScheduler()
	ctx := context.Background()

	if got := s.HandleCommand(ctx, "/help"); !strings.Contains(got, "/run") {
		t.Errorf("help = %q", got)
	}
	if got := s.HandleCommand(ctx, "/risk"); got != "暂无风险状态记录" {
		t.Errorf("risk = %q", got)
	}
	got := s.HandleCommand(ctx, "/signals")
	if !strings.HasSuffix(got, "无信号") || !strings.HasPrefix(got, model.DayKey(s.Agent.Today())) {
		t.Errorf("signals = %q", got)
	}
	if got := s.HandleCommand(ctx, "/run"); !strings.Contains(got, "运行失败") {
		t.Errorf("run = %q", got)
	}
}
