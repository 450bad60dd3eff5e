// Package backtest replays the technical score over history as a long/flat
// daily strategy.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"AShareSentinel/internal/calculator"
	"AShareSentinel/internal/collector"
	"AShareSentinel/internal/model"
	"AShareSentinel/internal/strategy"
)

// DefaultBenchmark is the CSI 300 index.
const DefaultBenchmark = "sh000300"

const (
	minBars   = 30
	warmup    = 20
	tailLen   = 5
	epsilon   = 1e-12
	precision = 1e6
)

// ErrNoSeries is returned when no symbol has enough history to replay.
var ErrNoSeries = errors.New("no usable backtest series, check symbols, date range and data source")

// Engine replays the technical score with the live buy/reduce thresholds.
type Engine struct {
	Fetcher         collector.Fetcher
	Adjust          collector.Adjust
	BuyThreshold    float64
	ReduceThreshold float64
}

func NewEngine(fetcher collector.Fetcher, adjust collector.Adjust, buy, reduce float64) *Engine {
	return &Engine{Fetcher: fetcher, Adjust: adjust, BuyThreshold: buy, ReduceThreshold: reduce}
}

// DailyReturns returns close-to-close returns; a non-positive previous close
// yields 0.
func DailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, closes[i]/closes[i-1]-1)
	}
	return out
}

// StrategyReturns holds a position of 1 after a score at or above buy and 0
// after a score at or below reduce, earning the next day's return.
func (e *Engine) StrategyReturns(bars []model.MarketBar) []float64 {
	if len(bars) < minBars {
		return nil
	}
	daily := DailyReturns(model.Closes(bars))

	position := 0.0
	out := make([]float64, 0, len(bars)-warmup-1)
	for i := warmup; i < len(bars)-1; i++ {
		score, _, _ := strategy.ComputeTechnicalScore(bars[:i+1])
		if score >= e.BuyThreshold {
			position = 1
		} else if score <= e.ReduceThreshold {
			position = 0
		}
		out = append(out, position*daily[i])
	}
	return out
}

// Run replays symbols over [start, end] as an equal-weight portfolio and
// compares it with the benchmark.
func (e *Engine) Run(ctx context.Context, symbols []string, start, end time.Time, benchmark string) (*model.BacktestResult, error) {
	if benchmark == "" {
		benchmark = DefaultBenchmark
	}

	var series [][]float64
	for _, symbol := range symbols {
		bars, err := e.Fetcher.FetchBars(ctx, symbol, start, end, e.Adjust)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("backtest fetch failed, skipping")
			continue
		}
		if r := e.StrategyReturns(bars); len(r) > 0 {
			series = append(series, r)
		}
	}
	if len(series) == 0 {
		return nil, ErrNoSeries
	}

	portfolio := equalWeight(series)
	curve := equityCurve(portfolio)
	total := curve[len(curve)-1] - 1

	benchReturn, err := e.benchmarkReturn(ctx, benchmark, start, end, len(portfolio))
	if err != nil {
		log.Warn().Err(err).Str("benchmark", benchmark).Msg("benchmark unavailable")
	}

	active := make([]float64, 0, len(portfolio))
	var wins, losses []float64
	for _, r := range portfolio {
		if math.Abs(r) <= epsilon {
			continue
		}
		active = append(active, r)
		if r > 0 {
			wins = append(wins, r)
		} else {
			losses = append(losses, r)
		}
	}
	winRate := 0.0
	if len(active) > 0 {
		winRate = float64(len(wins)) / float64(len(active))
	}
	plRatio := 0.0
	if avgLoss := math.Abs(mean(losses)); avgLoss > 0 {
		plRatio = mean(wins) / avgLoss
	}

	tail := curve
	if len(tail) > tailLen {
		tail = tail[len(tail)-tailLen:]
	}

	return &model.BacktestResult{
		Symbols:         append([]string(nil), symbols...),
		Start:           start,
		End:             end,
		BenchmarkSymbol: benchmark,
		TotalReturn:     round6(total),
		BenchmarkReturn: round6(benchReturn),
		ExcessReturn:    round6(total - benchReturn),
		MaxDrawdown:     round6(calculator.MaxDrawdown(curve)),
		WinRate:         round6(winRate),
		ProfitLossRatio: round6(plRatio),
		Days:            len(portfolio),
		ActiveDays:      len(active),
		EquityCurveTail: append([]float64(nil), tail...),
	}, nil
}

// benchmarkReturn compounds the last n unadjusted benchmark returns.
func (e *Engine) benchmarkReturn(ctx context.Context, symbol string, start, end time.Time, n int) (float64, error) {
	bars, err := e.Fetcher.FetchBars(ctx, symbol, start, end, collector.AdjustNone)
	if err != nil {
		return 0, fmt.Errorf("fetch benchmark %s: %w", symbol, err)
	}
	daily := DailyReturns(model.Closes(bars))
	if len(daily) == 0 {
		return 0, nil
	}
	if len(daily) > n {
		daily = daily[len(daily)-n:]
	}
	curve := equityCurve(daily)
	return curve[len(curve)-1] - 1, nil
}

// equalWeight aligns series on their common tail and averages each day.
func equalWeight(series [][]float64) []float64 {
	n := len(series[0])
	for _, s := range series[1:] {
		if len(s) < n {
			n = len(s)
		}
	}
	out := make([]float64, n)
	for _, s := range series {
		s = s[len(s)-n:]
		for i, r := range s {
			out[i] += r
		}
	}
	for i := range out {
		out[i] /= float64(len(series))
	}
	return out
}

func equityCurve(returns []float64) []float64 {
	curve := make([]float64, 1, len(returns)+1)
	curve[0] = 1
	for _, r := range returns {
		curve = append(curve, curve[len(curve)-1]*(1+r))
	}
	return curve
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func round6(v float64) float64 {
	return math.Round(v*precision) / precision
}
