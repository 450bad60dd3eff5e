package calculator

import "AShareSentinel/internal/model"

// RSI computes the relative strength index from the simple average of the
// last `period` close-to-close changes. No smoothing is carried across
// history. Requires more than period closes; returns 100 when the average
// loss is zero.
func RSI(closes []float64, period int) model.OptFloat {
	if period <= 0 || len(closes) <= period {
		return model.None()
	}

	var gain, loss float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change // make positive
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	if avgLoss == 0 {
		return model.Some(100.0)
	}
	rs := avgGain / avgLoss
	return model.Some(100.0 - 100.0/(1.0+rs))
}
