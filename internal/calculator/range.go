package calculator

import (
	"math"

	"AShareSentinel/internal/model"
)

// PriorHigh returns the highest high of the `lookback` bars preceding the
// latest bar. Absent when there are not lookback+1 bars.
func PriorHigh(bars []model.MarketBar, lookback int) model.OptFloat {
	if lookback <= 0 || len(bars) < lookback+1 {
		return model.None()
	}
	n := len(bars)
	high := math.Inf(-1)
	for i := n - 1 - lookback; i < n-1; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
	}
	return model.Some(high)
}

// Breakout reports whether the latest close exceeds PriorHigh(bars, lookback).
func Breakout(bars []model.MarketBar, lookback int) bool {
	high, ok := PriorHigh(bars, lookback).Get()
	if !ok {
		return false
	}
	return bars[len(bars)-1].Close > high
}

// MaxDrawdown returns the largest peak-to-trough decline of an equity curve
// as a fraction of the peak.
func MaxDrawdown(curve []float64) float64 {
	peak := math.Inf(-1)
	mdd := 0.0
	for _, v := range curve {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > mdd {
			mdd = dd
		}
	}
	return mdd
}
