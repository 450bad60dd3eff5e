package notifier

import (
	"fmt"
	"strings"

	"AShareSentinel/internal/model"
)

// ShouldAlert reports whether a signal action is pushed to chat.
func ShouldAlert(a model.SignalAction) bool {
	return a == model.ActionBuy || a == model.ActionReduce
}

// FormatAlert formats a trade signal as alert text.
func FormatAlert(sig model.TradeSignal) string {
	evidence := "N/A"
	if len(sig.EvidenceURLs) > 0 {
		evidence = sig.EvidenceURLs[0]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[A股信号] %s %s\n", sig.Symbol, sig.Action)
	fmt.Fprintf(&b, "score=%.2f, confidence=%.2f\n", sig.Score, sig.Confidence)
	fmt.Fprintf(&b, "entry=%s, stop=%s, take=%s\n", sig.Entry, sig.StopLoss, sig.TakeProfit)
	fmt.Fprintf(&b, "position=%.2f%%\n", sig.PositionSizePct*100)
	fmt.Fprintf(&b, "evidence=%s", evidence)
	return b.String()
}

// FormatRiskState formats the portfolio risk state for display.
func FormatRiskState(rs model.RiskState) string {
	allow := "否"
	if rs.AllowNewBuy {
		allow = "是"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "组合风险状态 | %s\n", model.DayKey(rs.Date))
	fmt.Fprintf(&b, "权益: %.2f\n", rs.Equity)
	fmt.Fprintf(&b, "峰值权益: %.2f\n", rs.PeakEquity)
	fmt.Fprintf(&b, "回撤: %.2f%%\n", rs.Drawdown*100)
	fmt.Fprintf(&b, "允许新增买入: %s", allow)
	return b.String()
}

// FormatSignalList formats one line per signal.
func FormatSignalList(day string, signals []model.TradeSignal) string {
	if len(signals) == 0 {
		return fmt.Sprintf("%s 无信号", day)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s 信号 (%d)\n", day, len(signals))
	for _, s := range signals {
		flag := ""
		if s.LowConfidence {
			flag = " [低置信度]"
		}
		fmt.Fprintf(&b, "%s %s score=%.2f pos=%.2f%%%s\n", s.Symbol, s.Action, s.Score, s.PositionSizePct*100, flag)
	}
	return strings.TrimRight(b.String(), "\n")
}
