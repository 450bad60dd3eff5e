// Package report writes the daily signal files under results/<date>/.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"AShareSentinel/internal/model"
)

const (
	SignalsFile  = "signals.json"
	MarkdownFile = "daily_report.md"
	maxReasons   = 8
)

// Paths are the files written for one day.
type Paths struct {
	Dir      string
	JSON     string
	Markdown string
}

// DailyDir returns <resultsDir>/<YYYY-MM-DD>.
func DailyDir(resultsDir string, day time.Time) string {
	return filepath.Join(resultsDir, model.DayKey(day))
}

// Write renders both reports for day into resultsDir, overwriting any
// earlier run of the same day.
func Write(resultsDir string, day time.Time, signals []model.TradeSignal, risk model.RiskState) (Paths, error) {
	dir := DailyDir(resultsDir, day)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create report dir: %w", err)
	}
	p := Paths{
		Dir:      dir,
		JSON:     filepath.Join(dir, SignalsFile),
		Markdown: filepath.Join(dir, MarkdownFile),
	}

	data, err := MarshalSignals(signals)
	if err != nil {
		return Paths{}, err
	}
	if err := os.WriteFile(p.JSON, data, 0644); err != nil {
		return Paths{}, fmt.Errorf("write %s: %w", SignalsFile, err)
	}
	if err := os.WriteFile(p.Markdown, []byte(RenderMarkdown(day, signals, risk)), 0644); err != nil {
		return Paths{}, fmt.Errorf("write %s: %w", MarkdownFile, err)
	}
	return p, nil
}

// MarshalSignals encodes signals as indented JSON without HTML escaping.
// A nil slice encodes as [].
func MarshalSignals(signals []model.TradeSignal) ([]byte, error) {
	if signals == nil {
		signals = []model.TradeSignal{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(signals); err != nil {
		return nil, fmt.Errorf("encode signals: %w", err)
	}
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}

// RenderMarkdown formats the daily report.
func RenderMarkdown(day time.Time, signals []model.TradeSignal, risk model.RiskState) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# A股波段信号日报 %s\n\n", model.DayKey(day))

	b.WriteString("## 组合风险状态\n\n")
	fmt.Fprintf(&b, "- 账户权益: %.2f\n", risk.Equity)
	fmt.Fprintf(&b, "- 峰值权益: %.2f\n", risk.PeakEquity)
	fmt.Fprintf(&b, "- 当前回撤: %.2f%%\n", risk.Drawdown*100)
	fmt.Fprintf(&b, "- 是否允许新增买入: %s\n\n", yesNo(risk.AllowNewBuy))

	b.WriteString("## 交易信号\n\n")
	if len(signals) == 0 {
		b.WriteString("- 今日无信号\n")
		return b.String()
	}

	for _, s := range signals {
		fmt.Fprintf(&b, "### %s - %s\n\n", s.Symbol, s.Action)
		fmt.Fprintf(&b, "- 分数: %.2f\n", s.Score)
		fmt.Fprintf(&b, "- 置信度: %.2f\n", s.Confidence)
		if v, ok := s.Entry.Get(); ok {
			fmt.Fprintf(&b, "- 入场参考: %.2f\n", v)
		}
		if v, ok := s.StopLoss.Get(); ok {
			fmt.Fprintf(&b, "- 止损参考: %.2f\n", v)
		}
		if v, ok := s.TakeProfit.Get(); ok {
			fmt.Fprintf(&b, "- 止盈参考: %.2f\n", v)
		}
		fmt.Fprintf(&b, "- 建议仓位占比: %.2f%%\n", s.PositionSizePct*100)
		fmt.Fprintf(&b, "- 低置信度标记: %s\n", yesNo(s.LowConfidence))

		b.WriteString("- 原因:\n")
		reasons := s.Reasons
		if len(reasons) > maxReasons {
			reasons = reasons[:maxReasons]
		}
		for _, r := range reasons {
			fmt.Fprintf(&b, "  - %s\n", r)
		}

		b.WriteString("- 证据链接:\n")
		if len(s.EvidenceURLs) == 0 {
			b.WriteString("  - 无\n")
		}
		for _, u := range s.EvidenceURLs {
			fmt.Fprintf(&b, "  - %s\n", u)
		}
		b.WriteString("\n")
	}
	return b.String()
}
