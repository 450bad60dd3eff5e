package collector

import (
	"context"
	"fmt"
	"time"

	"AShareSentinel/internal/model"
)

// Adjust selects the price adjustment mode of daily bars.
type Adjust string

const (
	AdjustNone Adjust = ""
	AdjustQFQ  Adjust = "qfq" // forward-adjusted
	AdjustHFQ  Adjust = "hfq" // backward-adjusted
)

// ParseAdjust accepts qfq, hfq, none or the empty string.
func ParseAdjust(s string) (Adjust, error) {
	switch s {
	case "", "none":
		return AdjustNone, nil
	case "qfq":
		return AdjustQFQ, nil
	case "hfq":
		return AdjustHFQ, nil
	}
	return AdjustNone, fmt.Errorf("unknown adjust mode %q", s)
}

// Fetcher defines the interface for fetching market data.
// Returned bars are ascending by time.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string, start, end time.Time, adjust Adjust) ([]model.MarketBar, error)
	Name() string
}
