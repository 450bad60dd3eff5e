package fund

import (
	"math"

	"AShareSentinel/internal/calculator"
	"AShareSentinel/internal/model"
)

const (
	// BoardLot is the minimum tradable share increment on A-share boards.
	BoardLot = 100
	// RewardMultiple scales the stop distance into the take-profit distance.
	RewardMultiple = 2.0
	// MinPrice is the floor for a computed stop-loss price.
	MinPrice = 0.01
)

// StopLossPrice returns max(0.01, entry - multiple*atr).
// Absent when atr is absent or non-positive, or entry is non-positive.
func StopLossPrice(entry float64, atr model.OptFloat, multiple float64) model.OptFloat {
	a, ok := atr.Get()
	if !ok || a <= 0 || entry <= 0 {
		return model.None()
	}
	return model.Some(math.Max(MinPrice, entry-multiple*a))
}

// TakeProfitPrice returns entry + RewardMultiple*multiple*atr, with the same
// absence rule as StopLossPrice.
func TakeProfitPrice(entry float64, atr model.OptFloat, multiple float64) model.OptFloat {
	a, ok := atr.Get()
	if !ok || a <= 0 || entry <= 0 {
		return model.None()
	}
	return model.Some(entry + RewardMultiple*multiple*a)
}

// PositionSizeShares sizes a position so that a stop at multiple*atr risks
// equity*riskFraction, rounded down to whole board lots.
func PositionSizeShares(equity, entry float64, atr model.OptFloat, riskFraction, multiple float64) int {
	a, ok := atr.Get()
	if equity <= 0 || entry <= 0 || !ok || a <= 0 {
		return 0
	}
	budget := equity * riskFraction
	perShare := multiple * a
	if perShare <= 0 {
		return 0
	}
	lots := math.Floor(budget / perShare / BoardLot)
	if lots <= 0 || math.IsNaN(lots) {
		return 0
	}
	return int(lots) * BoardLot
}

// PositionSizePct is the notional of PositionSizeShares as a fraction of
// equity, clamped to [0, 1].
func PositionSizePct(equity, entry float64, atr model.OptFloat, riskFraction, multiple float64) float64 {
	shares := PositionSizeShares(equity, entry, atr, riskFraction, multiple)
	if shares <= 0 || equity <= 0 {
		return 0
	}
	return calculator.Clamp(float64(shares)*entry/equity, 0, 1)
}
