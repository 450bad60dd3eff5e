package calculator

import "AShareSentinel/internal/model"

// SMA computes the simple moving average of the last `period` values.
// Absent when period is not positive or there are fewer than period values.
func SMA(values []float64, period int) model.OptFloat {
	if period <= 0 || len(values) < period {
		return model.None()
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return model.Some(sum / float64(period))
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
