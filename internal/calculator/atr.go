package calculator

import (
	"math"

	"AShareSentinel/internal/model"
)

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(curr, prev model.MarketBar) float64 {
	return math.Max(curr.High-curr.Low,
		math.Max(math.Abs(curr.High-prev.Close), math.Abs(curr.Low-prev.Close)))
}

// ATR is the simple average of the trailing `period` true ranges.
// Requires more than period bars.
func ATR(bars []model.MarketBar, period int) model.OptFloat {
	if period <= 0 || len(bars) <= period {
		return model.None()
	}
	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		sum += TrueRange(bars[i], bars[i-1])
	}
	return model.Some(sum / float64(period))
}
