package calculator

import "AShareSentinel/internal/model"

// VolumeRatio divides the latest volume by the mean volume of the `window`
// bars before it. Absent with insufficient history or a non-positive base.
func VolumeRatio(bars []model.MarketBar, window int) model.OptFloat {
	if window <= 0 || len(bars) < window+1 {
		return model.None()
	}
	n := len(bars)
	base := 0.0
	for i := n - 1 - window; i < n-1; i++ {
		base += bars[i].Volume
	}
	base /= float64(window)
	if base <= 0 {
		return model.None()
	}
	return model.Some(bars[n-1].Volume / base)
}
