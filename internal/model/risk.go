package model

import "time"

// RiskState is the portfolio-level drawdown state for one calendar date.
type RiskState struct {
	Date        time.Time `json:"date"`
	Equity      float64   `json:"equity"`
	PeakEquity  float64   `json:"peak_equity"`
	Drawdown    float64   `json:"drawdown"`
	AllowNewBuy bool      `json:"allow_new_buy"`
}
