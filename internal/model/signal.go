package model

import (
	"fmt"
	"time"
)

// SignalAction is the discrete trading action of a signal.
type SignalAction uint8

const (
	ActionHold SignalAction = iota
	ActionBuy
	ActionReduce
)

func (a SignalAction) String() string {
	switch a {
	case ActionHold:
		return "HOLD"
	case ActionBuy:
		return "BUY"
	case ActionReduce:
		return "REDUCE"
	default:
		return fmt.Sprintf("SignalAction(%d)", uint8(a))
	}
}

// ParseSignalAction accepts exactly BUY, HOLD or REDUCE.
func ParseSignalAction(s string) (SignalAction, error) {
	switch s {
	case "HOLD":
		return ActionHold, nil
	case "BUY":
		return ActionBuy, nil
	case "REDUCE":
		return ActionReduce, nil
	}
	return ActionHold, fmt.Errorf("unknown signal action %q", s)
}

func (a SignalAction) MarshalText() ([]byte, error) {
	if a > ActionReduce {
		return nil, fmt.Errorf("invalid signal action %d", uint8(a))
	}
	return []byte(a.String()), nil
}

func (a *SignalAction) UnmarshalText(text []byte) error {
	v, err := ParseSignalAction(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// TradeSignal is the output of signal synthesis for one symbol in one run.
type TradeSignal struct {
	ID              string       `json:"id"`
	Symbol          string       `json:"symbol"`
	Time            time.Time    `json:"ts"`
	Action          SignalAction `json:"action"`
	Entry           OptFloat     `json:"entry"`
	StopLoss        OptFloat     `json:"stop_loss"`
	TakeProfit      OptFloat     `json:"take_profit"`
	Confidence      float64      `json:"confidence"`
	Score           float64      `json:"score"`
	Reasons         []string     `json:"reasons"`
	EvidenceURLs    []string     `json:"evidence_urls"`
	PositionSizePct float64      `json:"position_size_pct"`
	LowConfidence   bool         `json:"low_confidence"`
}

// RunResult is the outcome of one batch run over the watchlist.
type RunResult struct {
	Date           time.Time     `json:"date"`
	Symbols        []string      `json:"symbols"`
	Signals        []TradeSignal `json:"signals"`
	RiskState      RiskState     `json:"risk_state"`
	OutputMarkdown string        `json:"output_markdown"`
	OutputJSON     string        `json:"output_json"`
	AlertsSent     int           `json:"alerts_sent"`
}

// BacktestResult summarises a heuristic replay of the technical score.
type BacktestResult struct {
	Symbols         []string  `json:"symbols"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	BenchmarkSymbol string    `json:"benchmark_symbol"`
	TotalReturn     float64   `json:"total_return"`
	BenchmarkReturn float64   `json:"benchmark_return"`
	ExcessReturn    float64   `json:"excess_return"`
	MaxDrawdown     float64   `json:"max_drawdown"`
	WinRate         float64   `json:"win_rate"`
	ProfitLossRatio float64   `json:"profit_loss_ratio"`
	Days            int       `json:"days"`
	ActiveDays      int       `json:"active_days"`
	EquityCurveTail []float64 `json:"equity_curve_tail"`
}
