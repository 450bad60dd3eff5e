package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// MarketBar represents a single daily OHLCV bar for one symbol.
type MarketBar struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Amount float64   `json:"amount"`
	Source string    `json:"source"`
}

// NewsItem is one piece of evidence (news article or company announcement).
type NewsItem struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Time      time.Time `json:"ts"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Source    string    `json:"source"`
	Sentiment float64   `json:"sentiment"` // unused, kept for future scoring
	Relevance float64   `json:"relevance"`
}

// HourBucket returns the UTC clock-hour bucket used for evidence dedup.
func (n NewsItem) HourBucket() string {
	return n.Time.UTC().Format("2006010215")
}

// URLHash is the hex sha256 of the item URL.
func (n NewsItem) URLHash() string {
	sum := sha256.Sum256([]byte(n.URL))
	return hex.EncodeToString(sum[:])
}

// Closes extracts the close prices of bars in order.
func Closes(bars []MarketBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// DayKey formats a date as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
