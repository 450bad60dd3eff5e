package strategy

import (
	"reflect"
	"strings"
	"testing"

	"AShareSentinel/internal/model"
)

func TestComputeTechnicalScore_Empty(t *testing.T) {
	score, reasons, snap := ComputeTechnicalScore(nil)
	if score != 0 {
		t.Errorf("expected 0, got %v", score)
	}
	if !reflect.DeepEqual(reasons, []string{ReasonMissingBars}) {
		t.Errorf("unexpected reasons %v", reasons)
	}
	if snap != (model.TechnicalSnapshot{}) {
		t.Errorf("expected all-absent snapshot, got %+v", snap)
	}
}

func TestComputeTechnicalScore_Uptrend(t *testing.T) {
	score, reasons, snap := ComputeTechnicalScore(uptrendBars(40))
	want := []string{
		ReasonAboveMA5,
		ReasonMA5AboveMA10,
		ReasonMA10AboveMA20,
		ReasonBreakout20,
		ReasonVolumeSurge,
		ReasonRSIOverheated,
	}
	if !reflect.DeepEqual(reasons, want) {
		t.Fatalf("expected %v, got %v", want, reasons)
	}
	if score != 4.5 {
		t.Errorf("expected 4.5, got %v", score)
	}
	if v, _ := snap.RSI14.Get(); v != 100 {
		t.Errorf("expected RSI 100 on a pure uptrend, got %v", v)
	}
}

func TestComputeTechnicalScore_ShortHistorySkipsRules(t *testing.T) {
	score, reasons, snap := ComputeTechnicalScore(uptrendBars(3))
	if score != 0 || len(reasons) != 0 {
		t.Errorf("expected no rules with 3 bars, got %v %v", score, reasons)
	}
	if snap.MA5.Valid || snap.RSI14.Valid || snap.ATR14.Valid || snap.Breakout20 {
		t.Errorf("expected absent indicators, got %+v", snap)
	}
}

func TestComputeTechnicalScore_AlwaysInRange(t *testing.T) {
	for _, n := range []int{1, 5, 14, 15, 21, 40, 120} {
		for _, bars := range [][]model.MarketBar{uptrendBars(n), downtrendBars(n)} {
			score, _, _ := ComputeTechnicalScore(bars)
			if score < 0 || score > 5 {
				t.Fatalf("n=%d: score %v out of range", n, score)
			}
		}
	}
}

func TestKeywordScorer(t *testing.T) {
	k := NewKeywordScorer()

	score, reasons := k.Score(nil)
	if score != 0 || !reflect.DeepEqual(reasons, []string{ReasonMissingEvidence}) {
		t.Errorf("empty evidence: got %v %v", score, reasons)
	}

	items := []model.NewsItem{
		{Title: "公司中标新项目且订单增长"},
		{Title: "收到交易所问询函"},
		{Title: "行业周报"},
	}
	score, reasons = k.Score(items)
	// 0.8 - 0.8 + 0.15 + 2.5
	if diff := score - 2.65; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected 2.65, got %v", score)
	}
	if len(reasons) != 3 || reasons[2] != "新闻覆盖数量: 3" {
		t.Errorf("unexpected reasons %v", reasons)
	}

	var many []model.NewsItem
	for i := 0; i < 10; i++ {
		many = append(many, model.NewsItem{Title: "回购增持突破"})
	}
	if score, _ := k.Score(many); score != 5 {
		t.Errorf("expected clamp at 5, got %v", score)
	}
}

func TestKeywordScorer_TruncatesTitle(t *testing.T) {
	title := strings.Repeat("订", 30)
	_, reasons := NewKeywordScorer().Score([]model.NewsItem{{Title: title}})
	want := "正向事件: " + strings.Repeat("订", 24)
	if reasons[0] != want {
		t.Errorf("expected %q, got %q", want, reasons[0])
	}
}
