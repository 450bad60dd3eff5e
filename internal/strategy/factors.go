package strategy

import (
	"AShareSentinel/internal/calculator"
	"AShareSentinel/internal/model"
)

// Indicator windows used by the technical score.
const (
	fastMA        = 5
	midMA         = 10
	slowMA        = 20
	rsiPeriod     = 14
	atrPeriod     = 14
	volumeWindow  = 5
	breakoutDays  = 20
	volumeSurge   = 1.2
	rsiOverheated = 75
	maxScore      = 5.0
)

// Reason texts appended by ComputeTechnicalScore, in rule order.
const (
	ReasonMissingBars   = "缺少K线数据"
	ReasonAboveMA5      = "收盘价站上MA5"
	ReasonMA5AboveMA10  = "MA5上穿MA10"
	ReasonMA10AboveMA20 = "MA10上穿MA20"
	ReasonBreakout20    = "突破20日高点"
	ReasonVolumeSurge   = "量比放大"
	ReasonRSIOverheated = "RSI过热"
)

// Snapshot computes the indicators over bars, which must be ascending by time.
func Snapshot(bars []model.MarketBar) model.TechnicalSnapshot {
	closes := model.Closes(bars)
	return model.TechnicalSnapshot{
		MA5:          calculator.SMA(closes, fastMA),
		MA10:         calculator.SMA(closes, midMA),
		MA20:         calculator.SMA(closes, slowMA),
		RSI14:        calculator.RSI(closes, rsiPeriod),
		ATR14:        calculator.ATR(bars, atrPeriod),
		VolumeRatio5: calculator.VolumeRatio(bars, volumeWindow),
		Breakout20:   calculator.Breakout(bars, breakoutDays),
	}
}

// ComputeTechnicalScore scores bars on the additive trend/volume rules and
// returns the score in [0, 5], the reasons that fired and the snapshot.
// A rule whose indicator is absent is skipped.
func ComputeTechnicalScore(bars []model.MarketBar) (float64, []string, model.TechnicalSnapshot) {
	if len(bars) == 0 {
		return 0, []string{ReasonMissingBars}, model.TechnicalSnapshot{}
	}

	snap := Snapshot(bars)
	last := bars[len(bars)-1].Close

	var (
		score   float64
		reasons []string
	)
	ma5, ok5 := snap.MA5.Get()
	ma10, ok10 := snap.MA10.Get()
	ma20, ok20 := snap.MA20.Get()

	if ok5 && last > ma5 {
		score++
		reasons = append(reasons, ReasonAboveMA5)
	}
	if ok5 && ok10 && ma5 > ma10 {
		score++
		reasons = append(reasons, ReasonMA5AboveMA10)
	}
	if ok10 && ok20 && ma10 > ma20 {
		score++
		reasons = append(reasons, ReasonMA10AboveMA20)
	}
	if snap.Breakout20 {
		score++
		reasons = append(reasons, ReasonBreakout20)
	}
	if vr, ok := snap.VolumeRatio5.Get(); ok && vr > volumeSurge {
		score++
		reasons = append(reasons, ReasonVolumeSurge)
	}
	if rsi, ok := snap.RSI14.Get(); ok && rsi > rsiOverheated {
		score -= 0.5
		reasons = append(reasons, ReasonRSIOverheated)
	}

	return calculator.Clamp(score, 0, maxScore), reasons, snap
}
