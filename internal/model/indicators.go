package model

// TechnicalSnapshot holds the indicators computed from a bar sequence.
// Absent fields mean the history was too short.
type TechnicalSnapshot struct {
	MA5          OptFloat `json:"ma5"`
	MA10         OptFloat `json:"ma10"`
	MA20         OptFloat `json:"ma20"`
	RSI14        OptFloat `json:"rsi14"`
	ATR14        OptFloat `json:"atr14"`
	VolumeRatio5 OptFloat `json:"volume_ratio5"`
	Breakout20   bool     `json:"breakout20"`
}
